package telegram

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

// Supervisor owns one Bot per active tenant. Bots can be added and
// removed at runtime through the admin commands or the admin API.
type Supervisor struct {
	deps Deps
	base context.Context

	mu      sync.Mutex
	running map[int64]context.CancelFunc
	wg      sync.WaitGroup
}

func NewSupervisor(deps Deps) *Supervisor {
	return &Supervisor{
		deps:    deps,
		running: make(map[int64]context.CancelFunc),
	}
}

// StartAll spins up every active tenant. With an empty tenant table and
// a fallback token in the config, a default tenant is created first and
// pre-tenancy projects are attached to it.
func (s *Supervisor) StartAll(ctx context.Context) error {
	s.base = ctx

	tenants, err := s.deps.Repo.GetActiveTenants(ctx)
	if err != nil {
		return fmt.Errorf("load tenants: %w", err)
	}
	if len(tenants) == 0 && s.deps.Cfg.TelegramToken != "" {
		tenant, err := s.deps.Repo.CreateTenant(ctx, "default", s.deps.Cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create default tenant: %w", err)
		}
		moved, err := s.deps.Repo.BackfillTenant(ctx, tenant.ID)
		if err != nil {
			return fmt.Errorf("backfill default tenant: %w", err)
		}
		if moved > 0 {
			log.Printf("[supervisor] attached %d legacy projects to default tenant", moved)
		}
		tenants = []db.Tenant{*tenant}
	}
	if len(tenants) == 0 {
		return domain.Validationf("no active tenants and no TELEGRAM_BOT_TOKEN fallback")
	}

	for _, tenant := range tenants {
		if err := s.startTenant(tenant); err != nil {
			log.Printf("[supervisor] tenant %d failed to start: %v", tenant.ID, err)
		}
	}
	return nil
}

func (s *Supervisor) startTenant(tenant db.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.running[tenant.ID]; ok {
		return nil
	}

	b, err := NewBot(tenant, s.deps)
	if err != nil {
		return err
	}
	b.sup = s
	if s.deps.Dispatch != nil {
		s.deps.Dispatch.Register(b)
	}

	ctx, cancel := context.WithCancel(s.base)
	s.running[tenant.ID] = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := b.Start(ctx); err != nil {
			log.Printf("[supervisor] tenant %d stopped: %v", tenant.ID, err)
		}
		if s.deps.Dispatch != nil {
			s.deps.Dispatch.Unregister(b)
		}
		s.mu.Lock()
		delete(s.running, tenant.ID)
		s.mu.Unlock()
	}()
	return nil
}

// AddTenant registers and starts a new bot. The token is checked by
// creating the client before anything is persisted.
func (s *Supervisor) AddTenant(ctx context.Context, token string) (*db.Tenant, error) {
	probe, err := NewBot(db.Tenant{TelegramBotToken: token}, s.deps)
	if err != nil {
		return nil, domain.Validationf("bot token rejected: %v", err)
	}
	me, err := probe.bot.GetMe(ctx)
	if err != nil {
		return nil, domain.Validationf("bot token rejected by Telegram: %v", err)
	}

	tenant, err := s.deps.Repo.CreateTenant(ctx, me.Username, token)
	if err != nil {
		return nil, err
	}
	if err := s.startTenant(*tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// RemoveTenant deactivates the tenant and stops its bot.
func (s *Supervisor) RemoveTenant(ctx context.Context, tenantID int64) error {
	if err := s.deps.Repo.DeactivateTenant(ctx, tenantID); err != nil {
		return err
	}
	s.StopTenant(tenantID)
	return nil
}

// StopTenant cancels a running bot without touching the database.
func (s *Supervisor) StopTenant(tenantID int64) {
	s.mu.Lock()
	cancel, ok := s.running[tenantID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Running lists the tenant ids with live bots.
func (s *Supervisor) Running() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	return ids
}

// Wait blocks until every bot goroutine has exited.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
