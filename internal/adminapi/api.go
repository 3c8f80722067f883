// Package adminapi is the operator-facing HTTP surface: tenant CRUD
// behind a shared-key header. It never serves end users.
package adminapi

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/repo"
)

// TenantRunner starts and stops live bots; the Telegram supervisor
// implements it.
type TenantRunner interface {
	AddTenant(ctx context.Context, token string) (*db.Tenant, error)
	StopTenant(tenantID int64)
	Running() []int64
}

type Server struct {
	repo   *repo.Repo
	runner TenantRunner
	apiKey string
	app    *fiber.App
}

func New(r *repo.Repo, runner TenantRunner, apiKey string) *Server {
	s := &Server{
		repo:   r,
		runner: runner,
		apiKey: apiKey,
		app:    newApp(),
	}
	s.routes()
	return s
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
}

func (s *Server) routes() {
	admin := s.app.Group("", s.auth)
	admin.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	admin.Get("/tenants", s.listTenants)
	admin.Post("/tenants", s.createTenant)
	admin.Get("/tenants/:id", s.getTenant)
	admin.Put("/tenants/:id", s.updateTenant)
	admin.Delete("/tenants/:id", s.deleteTenant)
}

// App exposes the underlying fiber app so other receivers (the WhatsApp
// webhook) can mount their routes outside the admin auth group.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// auth requires the configured key in X-Admin-Key on every request. An
// empty configured key disables the API entirely.
func (s *Server) auth(c *fiber.Ctx) error {
	if s.apiKey == "" || c.Get("X-Admin-Key") != s.apiKey {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	return c.Next()
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrIntegrity):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("[adminapi] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validationf("invalid tenant id %q", c.Params("id"))
	}
	return id, nil
}

// tenantView hides the bot token from list and get responses.
type tenantView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Username  *string   `json:"telegram_bot_username,omitempty"`
	IsActive  bool      `json:"is_active"`
	IsRunning bool      `json:"is_running"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) view(t *db.Tenant) tenantView {
	running := false
	if s.runner != nil {
		for _, id := range s.runner.Running() {
			if id == t.ID {
				running = true
			}
		}
	}
	return tenantView{
		ID:        t.ID,
		Name:      t.Name,
		Username:  t.TelegramBotUsername,
		IsActive:  t.IsActive,
		IsRunning: running,
		CreatedAt: t.CreatedAt,
	}
}

func (s *Server) listTenants(c *fiber.Ctx) error {
	tenants, err := s.repo.GetActiveTenants(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	views := make([]tenantView, 0, len(tenants))
	for i := range tenants {
		views = append(views, s.view(&tenants[i]))
	}
	return c.JSON(views)
}

type createTenantRequest struct {
	Name     string `json:"name"`
	BotToken string `json:"bot_token"`
}

func (s *Server) createTenant(c *fiber.Ctx) error {
	var req createTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, domain.Validationf("invalid body: %v", err))
	}
	if req.BotToken == "" {
		return s.fail(c, domain.Validationf("bot_token is required"))
	}

	var tenant *db.Tenant
	var err error
	if s.runner != nil {
		// The runner validates the token with Telegram and starts the bot.
		tenant, err = s.runner.AddTenant(c.Context(), req.BotToken)
	} else {
		name := req.Name
		if name == "" {
			name = "unnamed"
		}
		tenant, err = s.repo.CreateTenant(c.Context(), name, req.BotToken)
	}
	if err != nil {
		return s.fail(c, err)
	}
	if req.Name != "" && req.Name != tenant.Name {
		if tenant, err = s.repo.UpdateTenant(c.Context(), tenant.ID, &req.Name, nil); err != nil {
			return s.fail(c, err)
		}
	}
	return c.Status(fiber.StatusCreated).JSON(s.view(tenant))
}

func (s *Server) getTenant(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return s.fail(c, err)
	}
	tenant, err := s.repo.GetTenantByID(c.Context(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.view(tenant))
}

type updateTenantRequest struct {
	Name *string `json:"name"`
}

func (s *Server) updateTenant(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req updateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, domain.Validationf("invalid body: %v", err))
	}
	tenant, err := s.repo.UpdateTenant(c.Context(), id, req.Name, nil)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.view(tenant))
}

func (s *Server) deleteTenant(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.repo.DeactivateTenant(c.Context(), id); err != nil {
		return s.fail(c, err)
	}
	if s.runner != nil {
		s.runner.StopTenant(id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
