// Package ai wraps the OpenAI-compatible providers behind one small
// client used by the RAG core, the chat service and media ingestion.
package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/igoryan-dao/renovabot/internal/config"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

// Texts longer than this are cut before embedding; the tail carries
// little retrieval signal.
const maxEmbedChars = 8000

const requestTimeout = 30 * time.Second

// Message is one turn of chat history.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatRequest is a single completion call.
type ChatRequest struct {
	System      string
	History     []Message
	User        string
	Temperature float64
	MaxTokens   int64
}

// Client talks to the configured provider. Separate endpoints for
// embeddings and speech fall back to the main endpoint.
type Client struct {
	chat       openai.Client
	embed      openai.Client
	stt        openai.Client
	chatModel  string
	embedModel string
	embedDims  int
	sttModel   string
}

// New builds the provider clients. Returns a configuration error when no
// usable credentials are present.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.AIConfigured() {
		return nil, fmt.Errorf("%w: AI provider %q has no usable credentials", domain.ErrConfiguration, cfg.AIProvider)
	}

	build := func(endpoint string) openai.Client {
		opts := []option.RequestOption{option.WithRequestTimeout(requestTimeout)}
		switch cfg.AIProvider {
		case config.ProviderAzure:
			opts = append(opts,
				azure.WithEndpoint(endpoint, cfg.AIAPIVersion),
				azure.WithAPIKey(cfg.AIAPIKey),
			)
		case config.ProviderOpenAICompatible:
			opts = append(opts,
				option.WithBaseURL(endpoint),
				option.WithAPIKey(cfg.AIAPIKey),
			)
		default:
			opts = append(opts, option.WithAPIKey(cfg.AIAPIKey))
			if endpoint != "" {
				opts = append(opts, option.WithBaseURL(endpoint))
			}
		}
		return openai.NewClient(opts...)
	}

	embedEndpoint := cfg.EmbeddingEndpoint
	if embedEndpoint == "" {
		embedEndpoint = cfg.AIEndpoint
	}
	sttEndpoint := cfg.STTEndpoint
	if sttEndpoint == "" {
		sttEndpoint = cfg.AIEndpoint
	}

	return &Client{
		chat:       build(cfg.AIEndpoint),
		embed:      build(embedEndpoint),
		stt:        build(sttEndpoint),
		chatModel:  cfg.ChatModel,
		embedModel: cfg.EmbeddingModel,
		embedDims:  cfg.EmbeddingDimensions,
		sttModel:   cfg.WhisperModel,
	}, nil
}

// Chat runs one completion and returns the assistant text.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.History {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	if req.User != "" {
		messages = append(messages, openai.UserMessage(req.User))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.chatModel),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}

	resp, err := c.chat.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", domain.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", domain.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the dense vector for a text, truncated to the model's
// safe input size.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = Truncate(text, maxEmbedChars)
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	}
	if c.embedDims > 0 {
		params.Dimensions = openai.Int(int64(c.embedDims))
	}

	resp, err := c.embed.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", domain.ErrUpstream, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: embedding returned no data", domain.ErrUpstream)
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Transcribe runs speech-to-text over an audio file.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	resp, err := c.stt.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(c.sttModel),
		File:  openai.File(audio, filename, "application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcription: %v", domain.ErrUpstream, err)
	}
	return resp.Text, nil
}

// ImageDataURL wraps raw image bytes into an inline data URL, so the
// image travels in the request body instead of a fetchable link.
func ImageDataURL(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

// DescribeImage asks the chat model to describe a photo, given as a URL
// or a data: URI. Low detail keeps the token cost of photos flat.
func (c *Client) DescribeImage(ctx context.Context, imageURL, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Опиши, что изображено на фото с ремонта. Кратко, по делу."
	}
	resp, err := c.chat.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    imageURL,
					Detail: "low",
				}),
			}),
		},
		MaxTokens: openai.Int(500),
	})
	if err != nil {
		return "", fmt.Errorf("%w: image description: %v", domain.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: image description returned no choices", domain.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
