package whatsapp

import (
	"context"
	"fmt"
	"log"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/format"
	"github.com/igoryan-dao/renovabot/internal/rag"
	"github.com/igoryan-dao/renovabot/internal/repo"
)

// Service ties inbound WhatsApp messages to the engine and implements
// the notification adapter for outbound delivery.
type Service struct {
	repo    *repo.Repo
	rag     *rag.Service
	gateway *Gateway
}

func NewService(r *repo.Repo, ragSvc *rag.Service) *Service {
	return &Service{repo: r, rag: ragSvc}
}

// AttachGateway wires the outbound channel once it exists.
func (s *Service) AttachGateway(g *Gateway) {
	s.gateway = g
}

// HandleMessage is the MessageHandler for both the webhook and the
// gateway. WhatsApp conversations are one-on-one, so every message is
// directed; the reply is returned for the gateway to deliver.
func (s *Service) HandleMessage(ctx context.Context, waID, name, text string) string {
	if name == "" {
		name = waID
	}
	user, err := s.repo.GetOrCreateUserByWhatsAppID(ctx, waID, name)
	if err != nil {
		log.Printf("[whatsapp] resolve user %s: %v", waID, err)
		return ""
	}

	projects, err := s.repo.GetAllUserProjects(ctx, user.ID)
	if err != nil {
		log.Printf("[whatsapp] projects for %s: %v", waID, err)
		return ""
	}
	if len(projects) == 0 {
		return "У вас пока нет проектов. Создайте проект в Telegram-боте и возвращайтесь с вопросами."
	}
	project := &projects[0]

	s.store(ctx, user, project, text)

	if len(projects) > 1 {
		return fmt.Sprintf("У вас несколько проектов, отвечаю по «%s». Остальные пока доступны в Telegram.", project.Name)
	}
	if s.rag == nil {
		return "Ассистент не настроен, попробуйте позже."
	}
	answer, _, err := s.rag.Ask(ctx, project.ID, text)
	if err != nil {
		log.Printf("[whatsapp] ask project %d: %v", project.ID, err)
		return "Не получилось ответить, попробуйте позже."
	}
	return format.ToWhatsAppText(answer)
}

func (s *Service) store(ctx context.Context, user *db.User, project *db.Project, text string) {
	row := &db.Message{
		ProjectID:      &project.ID,
		UserID:         &user.ID,
		Platform:       "whatsapp",
		PlatformChatID: *user.WhatsAppID,
		MessageType:    "text",
		RawText:        &text,
	}
	stored, err := s.repo.StoreMessage(ctx, row)
	if err != nil {
		log.Printf("[whatsapp] store message: %v", err)
		return
	}
	if s.rag != nil {
		if err := s.rag.Ingest(ctx, stored); err != nil {
			log.Printf("[whatsapp] ingest message %d: %v", stored.ID, err)
		}
	}
}

// ── adapter.Adapter ──────────────────────────────────────────

func (s *Service) Platform() string { return "whatsapp" }

func (s *Service) CanReach(user *db.User) bool {
	return user.WhatsAppID != nil && s.gateway != nil && s.gateway.Connected()
}

func (s *Service) Notify(ctx context.Context, user *db.User, n domain.Notification) error {
	if user.WhatsAppID == nil {
		return fmt.Errorf("user %d has no whatsapp id", user.ID)
	}
	if s.gateway == nil || !s.gateway.Connected() {
		return fmt.Errorf("%w: whatsapp gateway offline", domain.ErrUpstream)
	}
	body := n.Body
	if n.IsHTML {
		body = format.ToWhatsAppText(body)
	}
	text := n.Title + "\n\n" + body
	return s.gateway.SendText(*user.WhatsAppID, text)
}
