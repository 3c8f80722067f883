package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AI provider variants. Each variant enumerates its own required fields,
// validated in Load.
const (
	ProviderAzure            = "azure"
	ProviderOpenAI           = "openai"
	ProviderOpenAICompatible = "openai_compatible"
)

// Config holds application configuration
type Config struct {
	// Database
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int

	// Telegram
	TelegramToken string // optional fallback token for single-tenant mode
	AdminUserIDs  []int64

	// Discord (optional adapter)
	DiscordToken   string
	DiscordGuildID string

	// WhatsApp
	WhatsAppAppSecret   string
	WhatsAppVerifyToken string
	WhatsAppGatewayURL  string // optional websocket gateway instead of webhooks

	// AI provider
	AIProvider          string // azure | openai | openai_compatible
	AIEndpoint          string
	AIAPIKey            string
	AIAPIVersion        string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingEndpoint   string // optional, defaults to AIEndpoint
	STTEndpoint         string // optional, defaults to AIEndpoint
	WhisperModel        string

	// Mention gate
	MentionGateEnabled bool
	MentionPatterns    []string

	// Skills
	SkillsDir string

	// Admin HTTP API
	AdminAPIAddr string
	AdminAPIKey  string

	LogLevel string
}

// DatabaseDSN returns the postgres connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
	)
}

// AIConfigured reports whether the AI provider has usable credentials.
func (c *Config) AIConfigured() bool {
	switch c.AIProvider {
	case ProviderAzure, ProviderOpenAICompatible:
		return c.AIAPIKey != "" && c.AIEndpoint != ""
	case ProviderOpenAI:
		return c.AIAPIKey != ""
	}
	return false
}

// Load reads configuration from environment variables and an optional .env
// file. Missing .env is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("POSTGRES_DB", "postgres")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "password")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("AI_PROVIDER", ProviderOpenAI)
	v.SetDefault("AI_API_VERSION", "2024-10-21")
	v.SetDefault("CHAT_MODEL", "gpt-4o")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	v.SetDefault("EMBEDDING_DIMENSIONS", 1536)
	v.SetDefault("WHISPER_MODEL", "whisper-1")
	v.SetDefault("MENTION_GATE_ENABLED", true)
	v.SetDefault("ADMIN_API_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "INFO")

	cfg := &Config{
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetInt("POSTGRES_PORT"),

		TelegramToken: v.GetString("TELEGRAM_BOT_TOKEN"),

		DiscordToken:   v.GetString("DISCORD_BOT_TOKEN"),
		DiscordGuildID: v.GetString("DISCORD_GUILD_ID"),

		WhatsAppAppSecret:   v.GetString("WHATSAPP_APP_SECRET"),
		WhatsAppVerifyToken: v.GetString("WHATSAPP_VERIFY_TOKEN"),
		WhatsAppGatewayURL:  v.GetString("WHATSAPP_GATEWAY_URL"),

		AIProvider:          strings.ToLower(v.GetString("AI_PROVIDER")),
		AIEndpoint:          v.GetString("AI_ENDPOINT"),
		AIAPIKey:            v.GetString("AI_API_KEY"),
		AIAPIVersion:        v.GetString("AI_API_VERSION"),
		ChatModel:           v.GetString("CHAT_MODEL"),
		EmbeddingModel:      v.GetString("EMBEDDING_MODEL"),
		EmbeddingDimensions: v.GetInt("EMBEDDING_DIMENSIONS"),
		EmbeddingEndpoint:   v.GetString("EMBEDDING_ENDPOINT"),
		STTEndpoint:         v.GetString("STT_ENDPOINT"),
		WhisperModel:        v.GetString("WHISPER_MODEL"),

		MentionGateEnabled: v.GetBool("MENTION_GATE_ENABLED"),

		SkillsDir: v.GetString("SKILLS_DIR"),

		AdminAPIAddr: v.GetString("ADMIN_API_ADDR"),
		AdminAPIKey:  v.GetString("ADMIN_API_KEY"),

		LogLevel: v.GetString("LOG_LEVEL"),
	}

	switch cfg.AIProvider {
	case ProviderAzure, ProviderOpenAI, ProviderOpenAICompatible:
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}
	if cfg.AIProvider != ProviderOpenAI && cfg.AIAPIKey != "" && cfg.AIEndpoint == "" {
		return nil, fmt.Errorf("AI_ENDPOINT is required for provider %q", cfg.AIProvider)
	}

	ids, err := parseIDList(v.GetString("ADMIN_USER_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.AdminUserIDs = ids

	if patterns := v.GetString("MENTION_PATTERNS"); patterns != "" {
		for _, p := range strings.Split(patterns, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.MentionPatterns = append(cfg.MentionPatterns, p)
			}
		}
	}

	return cfg, nil
}

// parseIDList parses a comma-separated list of user IDs
func parseIDList(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	var ids []int64
	for _, idStr := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q: %w", idStr, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
