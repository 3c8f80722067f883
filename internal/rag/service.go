// Package rag implements retrieval over the project conversation log and
// the prompt-composed answering built on top of it.
package rag

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/igoryan-dao/renovabot/internal/ai"
	"github.com/igoryan-dao/renovabot/internal/cache"
	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/repo"
	"github.com/igoryan-dao/renovabot/internal/skills"
)

const (
	askSkill         = "project-qa"
	chatSkill        = "chat-assistant"
	participantSkill = "participant-summary"

	chatHistoryTurns = 10 // user+assistant pairs kept per conversation

	participantMessageLimit = 200
	mentionedMessageLimit   = 30
	recentChatWindow        = 10
)

const askFallbackPrompt = `Ты ассистент по ремонту квартир. Отвечай на вопросы о проекте,
опираясь только на предоставленный контекст. Если данных недостаточно, так и скажи.
Отвечай кратко и по-русски.`

const chatFallbackPrompt = `Ты ассистент прораба в чате ремонта. Помогай команде: отвечай на
вопросы о ходе работ, бюджете и сроках, опираясь на контекст проекта. Отвечай по-русски.`

const participantFallbackPrompt = `Составь краткую сводку по сообщениям участника ремонта из 4 пунктов:
1) чем занимался, 2) что покупал, 3) какие суммы упоминал, 4) какие решения принимал.`

// Service is the RAG core. It owns the per-conversation chat history.
type Service struct {
	repo   *repo.Repo
	ai     *ai.Client
	cache  *cache.Cache
	skills *skills.Manager

	mu      sync.Mutex
	history map[string][]ai.Message
}

func NewService(r *repo.Repo, aiClient *ai.Client, kv *cache.Cache, sk *skills.Manager) *Service {
	return &Service{
		repo:    r,
		ai:      aiClient,
		cache:   kv,
		skills:  sk,
		history: make(map[string][]ai.Message),
	}
}

func (s *Service) logf(format string, args ...any) {
	log.Printf("[rag] "+format, args...)
}

// Ingest indexes one stored message. Messages without a project or
// without text are skipped, as are ones already indexed.
func (s *Service) Ingest(ctx context.Context, msg *db.Message) error {
	if msg.ProjectID == nil {
		return nil
	}
	text := msg.CanonicalText()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	exists, err := s.repo.HasEmbeddingForMessage(ctx, *msg.ProjectID, msg.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	vec, err := s.ai.Embed(ctx, text)
	if err != nil {
		return err
	}

	meta := db.EmbeddingMetadata{
		Source:    "message",
		MessageID: msg.ID,
		Date:      msg.CreatedAt.Format(time.RFC3339),
	}
	if msg.UserID != nil {
		meta.UserID = *msg.UserID
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode embedding metadata: %w", err)
	}
	_, err = s.repo.InsertEmbedding(ctx, *msg.ProjectID, text, raw, vec)
	return err
}

// AskCacheKey derives the answer cache key from the project and the
// normalized question.
func AskCacheKey(projectID int64, question string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(question))))
	return fmt.Sprintf("%s%d:%s", cache.AskKeyPrefix, projectID, hex.EncodeToString(sum[:])[:12])
}

// Ask answers a one-shot project question. Answers are cached for five
// minutes; the second return reports a cache hit.
func (s *Service) Ask(ctx context.Context, projectID int64, question string) (string, bool, error) {
	key := AskCacheKey(projectID, question)
	var cached string
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logf("answer cache read failed: %v", err)
	} else if hit {
		return cached, true, nil
	}

	projectCtx, err := s.BuildProjectContext(ctx, projectID)
	if err != nil {
		return "", false, err
	}
	hits, err := s.HybridSearch(ctx, projectID, question, AskTopK, AskMinSim)
	if err != nil {
		return "", false, err
	}

	system := s.skills.Prompt(askSkill)
	if system == "" {
		system = askFallbackPrompt
	}

	var b strings.Builder
	b.WriteString(projectCtx)
	if len(hits) > 0 {
		b.WriteString("\nИз переписки по проекту:\n")
		for _, h := range hits {
			fmt.Fprintf(&b, "- %s\n", h.Content)
		}
	}
	fmt.Fprintf(&b, "\nВопрос: %s", question)

	answer, err := s.ai.Chat(ctx, ai.ChatRequest{
		System:      system,
		User:        b.String(),
		Temperature: 0.4,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", false, err
	}

	if err := s.cache.Set(ctx, key, answer, cache.AnswerTTL); err != nil {
		s.logf("answer cache write failed: %v", err)
	}
	return answer, false, nil
}

func historyKey(projectID, userID int64) string {
	return fmt.Sprintf("%d:%d", projectID, userID)
}

// Chat handles one turn of interactive chat mode, maintaining a sliding
// window of the last ten turns per (project, user) conversation.
func (s *Service) Chat(ctx context.Context, projectID, userID int64, question string) (string, error) {
	projectCtx, err := s.BuildProjectContext(ctx, projectID)
	if err != nil {
		return "", err
	}
	roster, err := s.buildRoster(ctx, projectID)
	if err != nil {
		return "", err
	}
	mentioned, err := s.mentionedParticipantLogs(ctx, projectID, question)
	if err != nil {
		return "", err
	}
	hits, err := s.HybridSearch(ctx, projectID, question, ChatTopK, ChatMinSim)
	if err != nil {
		return "", err
	}

	base := s.skills.Prompt(chatSkill)
	if base == "" {
		base = chatFallbackPrompt
	}
	var system strings.Builder
	system.WriteString(base)
	system.WriteString("\n\n")
	system.WriteString(projectCtx)
	if roster != "" {
		system.WriteString("\n")
		system.WriteString(roster)
	}
	if mentioned != "" {
		system.WriteString("\n")
		system.WriteString(mentioned)
	}
	if len(hits) > 0 {
		system.WriteString("\nРелевантные сообщения:\n")
		for _, h := range hits {
			fmt.Fprintf(&system, "- %s\n", h.Content)
		}
	}
	if recent, err := s.repo.GetRecentUserMessages(ctx, projectID, recentChatWindow); err == nil && len(recent) > 0 {
		system.WriteString("\nПоследние сообщения в чате:\n")
		for _, m := range recent {
			name := "участник"
			if m.User != nil {
				name = m.User.FullName
			}
			fmt.Fprintf(&system, "- %s: %s\n", name, m.CanonicalText())
		}
	}

	key := historyKey(projectID, userID)
	s.mu.Lock()
	history := append([]ai.Message(nil), s.history[key]...)
	s.mu.Unlock()

	answer, err := s.ai.Chat(ctx, ai.ChatRequest{
		System:      system.String(),
		History:     history,
		User:        question,
		Temperature: 0.4,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", err
	}

	history = append(history,
		ai.Message{Role: "user", Content: question},
		ai.Message{Role: "assistant", Content: answer},
	)
	if max := chatHistoryTurns * 2; len(history) > max {
		history = history[len(history)-max:]
	}
	s.mu.Lock()
	s.history[key] = history
	s.mu.Unlock()

	return answer, nil
}

// ResetChat drops one conversation's history.
func (s *Service) ResetChat(projectID, userID int64) {
	s.mu.Lock()
	delete(s.history, historyKey(projectID, userID))
	s.mu.Unlock()
}

// mentionedParticipantLogs finds team members named in the question and
// renders their recent messages. Name parts shorter than three runes are
// ignored to avoid matching initials and particles.
func (s *Service) mentionedParticipantLogs(ctx context.Context, projectID int64, question string) (string, error) {
	team, err := s.repo.GetProjectTeam(ctx, projectID)
	if err != nil {
		return "", err
	}
	q := strings.ToLower(question)

	var b strings.Builder
	for _, m := range team {
		if !nameMentioned(q, m.User.FullName) {
			continue
		}
		msgs, err := s.repo.GetUserMessagesInProject(ctx, projectID, m.User.ID, mentionedMessageLimit)
		if err != nil {
			return "", err
		}
		if len(msgs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "Последние сообщения %s:\n", m.User.FullName)
		for _, msg := range msgs {
			fmt.Fprintf(&b, "[%s] %s\n", msg.CreatedAt.Format(domain.DateFormat), msg.CanonicalText())
		}
	}
	return b.String(), nil
}

func nameMentioned(lowerQuestion, fullName string) bool {
	for _, part := range strings.Fields(strings.ToLower(fullName)) {
		if len([]rune(part)) < 3 {
			continue
		}
		if strings.Contains(lowerQuestion, part) {
			return true
		}
	}
	return false
}

// ParticipantSummary is one member's AI-condensed activity digest.
type ParticipantSummary struct {
	UserID       int64
	FullName     string
	MessageCount int64
	Summary      string
}

// ParticipantSummaries condenses each member's messages into a 4-point
// digest, most active members first.
func (s *Service) ParticipantSummaries(ctx context.Context, projectID int64) ([]ParticipantSummary, error) {
	team, err := s.repo.GetProjectTeam(ctx, projectID)
	if err != nil {
		return nil, err
	}

	system := s.skills.Prompt(participantSkill)
	if system == "" {
		system = participantFallbackPrompt
	}

	var out []ParticipantSummary
	for _, m := range team {
		if m.MessageCount == 0 {
			continue
		}
		msgs, err := s.repo.GetUserMessagesInProject(ctx, projectID, m.User.ID, participantMessageLimit)
		if err != nil {
			return nil, err
		}
		var logb strings.Builder
		for _, msg := range msgs {
			fmt.Fprintf(&logb, "[%s] %s\n", msg.CreatedAt.Format(domain.DateFormat), msg.CanonicalText())
		}

		summary, err := s.ai.Chat(ctx, ai.ChatRequest{
			System:      system,
			User:        fmt.Sprintf("Участник: %s\n\nСообщения:\n%s", m.User.FullName, logb.String()),
			Temperature: 0.3,
			MaxTokens:   1000,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, ParticipantSummary{
			UserID:       m.User.ID,
			FullName:     m.User.FullName,
			MessageCount: m.MessageCount,
			Summary:      summary,
		})
	}

	// GetProjectTeam orders by user id; summaries go most-active first.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MessageCount > out[j].MessageCount
	})
	return out, nil
}
