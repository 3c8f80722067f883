// Package telegram is the Telegram adapter: one Bot per tenant, plus the
// supervisor that keeps the tenant set alive.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/igoryan-dao/renovabot/internal/adapter"
	"github.com/igoryan-dao/renovabot/internal/ai"
	"github.com/igoryan-dao/renovabot/internal/cache"
	"github.com/igoryan-dao/renovabot/internal/config"
	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/format"
	"github.com/igoryan-dao/renovabot/internal/fsm"
	"github.com/igoryan-dao/renovabot/internal/rag"
	"github.com/igoryan-dao/renovabot/internal/repo"
)

// Deps bundles everything a tenant bot needs. All tenants share one set.
type Deps struct {
	Repo     *repo.Repo
	Cache    *cache.Cache
	RAG      *rag.Service
	AI       *ai.Client
	States   *fsm.Store
	Cfg      *config.Config
	Dispatch *adapter.Dispatcher
}

// Bot runs one tenant's Telegram connection.
type Bot struct {
	deps   Deps
	tenant db.Tenant
	bot    *bot.Bot
	gate   *MentionGate
	sup    *Supervisor // nil outside supervisor-managed bots

	botID       int64
	botUsername string
}

// NewBot validates the token by constructing the client. Identity is
// confirmed later in Start.
func NewBot(tenant db.Tenant, deps Deps) (*Bot, error) {
	b := &Bot{
		deps:   deps,
		tenant: tenant,
		gate: &MentionGate{
			Enabled:  deps.Cfg.MentionGateEnabled,
			Patterns: deps.Cfg.MentionPatterns,
		},
	}
	tgBot, err := bot.New(tenant.TelegramBotToken, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("create bot for tenant %d: %w", tenant.ID, err)
	}
	b.bot = tgBot
	return b, nil
}

// Start confirms the bot identity, registers the command menus and
// consumes updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get me for tenant %d: %w", b.tenant.ID, err)
	}
	b.botID = me.ID
	b.botUsername = me.Username

	if err := b.deps.Repo.SetTenantUsername(ctx, b.tenant.ID, me.Username); err != nil {
		log.Printf("[tg:%d] persist username: %v", b.tenant.ID, err)
	}
	b.registerCommands(ctx)

	log.Printf("[tg:%d] @%s started", b.tenant.ID, me.Username)
	b.bot.Start(ctx)
	return nil
}

func (b *Bot) registerCommands(ctx context.Context) {
	private := []models.BotCommand{
		{Command: "newproject", Description: "Создать проект"},
		{Command: "myprojects", Description: "Мои проекты"},
		{Command: "stages", Description: "Этапы проекта"},
		{Command: "budget", Description: "Бюджет"},
		{Command: "expenses", Description: "Расходы"},
		{Command: "addexpense", Description: "Записать расход"},
		{Command: "report", Description: "Отчёт"},
		{Command: "summary", Description: "Сводка по участникам"},
		{Command: "status", Description: "Статус"},
		{Command: "nextstage", Description: "Следующий этап"},
		{Command: "deadline", Description: "Дедлайны"},
		{Command: "mystage", Description: "Мой этап"},
		{Command: "team", Description: "Команда"},
		{Command: "invite", Description: "Пригласить участника"},
		{Command: "myrole", Description: "Моя роль"},
		{Command: "ask", Description: "Вопрос по проекту"},
		{Command: "chat", Description: "Чат с ассистентом"},
		{Command: "stop", Description: "Выйти из диалога"},
		{Command: "launch", Description: "Запуск проекта"},
		{Command: "deleteproject", Description: "Деактивировать проект"},
	}
	group := []models.BotCommand{
		{Command: "link", Description: "Привязать чат к проекту"},
		{Command: "stages", Description: "Этапы проекта"},
		{Command: "budget", Description: "Бюджет"},
		{Command: "status", Description: "Статус"},
		{Command: "report", Description: "Отчёт"},
		{Command: "deadline", Description: "Дедлайны"},
		{Command: "ask", Description: "Вопрос по проекту"},
	}

	if _, err := b.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: private,
		Scope:    &models.BotCommandScopeAllPrivateChats{},
	}); err != nil {
		log.Printf("[tg:%d] set private commands: %v", b.tenant.ID, err)
	}
	if _, err := b.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: group,
		Scope:    &models.BotCommandScopeAllGroupChats{},
	}); err != nil {
		log.Printf("[tg:%d] set group commands: %v", b.tenant.ID, err)
	}
}

// send delivers markdown-ish text as Telegram HTML.
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	b.sendKb(ctx, chatID, text, nil)
}

// sendHTML delivers pre-rendered HTML.
func (b *Bot) sendHTML(ctx context.Context, chatID int64, html string) {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      html,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		log.Printf("[tg:%d] send to %d: %v", b.tenant.ID, chatID, err)
	}
}

func (b *Bot) sendKb(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      format.ToTelegramHTML(text),
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.bot.SendMessage(ctx, params); err != nil {
		log.Printf("[tg:%d] send to %d: %v", b.tenant.ID, chatID, err)
	}
}

func (b *Bot) sendHTMLKb(ctx context.Context, chatID int64, html string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      html,
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.bot.SendMessage(ctx, params); err != nil {
		log.Printf("[tg:%d] send to %d: %v", b.tenant.ID, chatID, err)
	}
}

// downloadFile fetches a file from the Telegram file API.
func (b *Bot) downloadFile(ctx context.Context, filePath string) ([]byte, error) {
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.tenant.TelegramBotToken, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// ── adapter.Adapter ──────────────────────────────────────────

// Platform implements adapter.Adapter.
func (b *Bot) Platform() string { return "telegram" }

// TenantID implements adapter.TenantScoped: notifications for another
// tenant's projects never ride this bot's token.
func (b *Bot) TenantID() int64 { return b.tenant.ID }

// CanReach implements adapter.Adapter.
func (b *Bot) CanReach(user *db.User) bool {
	return user.TelegramID != nil
}

// Notify implements adapter.Adapter. Checkpoint notifications carry the
// approve/reject keyboard.
func (b *Bot) Notify(ctx context.Context, user *db.User, n domain.Notification) error {
	if user.TelegramID == nil {
		return fmt.Errorf("user %d has no telegram id", user.ID)
	}
	var kb *models.InlineKeyboardMarkup
	if n.WithButtons && n.Type == domain.NotifyCheckpointReached && n.StageID != 0 {
		kb = checkpointKeyboard(n.StageID)
	}
	params := &bot.SendMessageParams{
		ChatID:    *user.TelegramID,
		Text:      renderNotification(n),
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := b.bot.SendMessage(ctx, params)
	return err
}
