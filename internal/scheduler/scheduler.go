// Package scheduler runs the periodic watchers: deadlines, idle stages,
// furniture lead times, budget overruns, weekly reports and cache
// maintenance. Notifications go through the adapter dispatcher; the KV
// cache deduplicates repeated alerts.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/igoryan-dao/renovabot/internal/adapter"
	"github.com/igoryan-dao/renovabot/internal/cache"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/fsm"
	"github.com/igoryan-dao/renovabot/internal/repo"
)

const (
	deadlineWindow    = 24 * time.Hour
	idleThreshold     = 3 * 24 * time.Hour
	furnitureWindow   = 45 * 24 * time.Hour
	budgetWarningPct  = 90.0
	dedupeDeadlineTTL = 23 * 3600 // seconds; just under the sweep period
	dedupeDailyTTL    = 23 * 3600
	dedupeIdleTTL     = 5 * 3600
)

type Scheduler struct {
	repo     *repo.Repo
	cache    *cache.Cache
	states   *fsm.Store
	dispatch *adapter.Dispatcher
	cron     *cron.Cron
}

func New(r *repo.Repo, c *cache.Cache, states *fsm.Store, d *adapter.Dispatcher) *Scheduler {
	return &Scheduler{
		repo:     r,
		cache:    c,
		states:   states,
		dispatch: d,
		cron:     cron.New(),
	}
}

// Start registers the jobs and launches the cron loop. Jobs stop when
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{"@every 1h", "deadlines", s.checkDeadlines},
		{"@every 2h", "overdue", s.checkOverdue},
		{"@every 6h", "status-prompts", s.requestStatusUpdates},
		{"@every 24h", "furniture", s.checkFurnitureOrders},
		{"@every 4h", "overspending", s.checkOverspending},
		{"0 9 * * 1", "weekly-report", s.sendWeeklyReports},
		{"@every 60s", "cache-maintenance", s.maintainCache},
	}
	for _, j := range jobs {
		job := j
		if _, err := s.cron.AddFunc(job.spec, func() {
			jctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()
			job.run(jctx)
		}); err != nil {
			return fmt.Errorf("register job %s: %w", job.name, err)
		}
	}

	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
	log.Printf("[scheduler] %d jobs registered", len(jobs))
	return nil
}

// seen reports whether the alert key fired within its TTL, marking it
// when it has not.
func (s *Scheduler) seen(ctx context.Context, key string, ttlSeconds int) bool {
	var v bool
	if hit, err := s.cache.Get(ctx, key, &v); err == nil && hit {
		return true
	}
	if err := s.cache.Set(ctx, key, true, ttlSeconds); err != nil {
		log.Printf("[scheduler] dedupe write %s: %v", key, err)
	}
	return false
}

func (s *Scheduler) eachProject(ctx context.Context, job string, fn func(context.Context, *projectScope) error) {
	projects, err := s.repo.GetActiveProjects(ctx, nil)
	if err != nil {
		log.Printf("[scheduler] %s: load projects: %v", job, err)
		return
	}
	for i := range projects {
		scope := &projectScope{s: s, project: &projects[i]}
		if err := fn(ctx, scope); err != nil {
			log.Printf("[scheduler] %s: project %d: %v", job, projects[i].ID, err)
		}
	}
}

// notify fills recipients from the notification type's role map and
// dispatches.
func (ps *projectScope) notify(ctx context.Context, n domain.Notification) error {
	roles, ok := domain.NotificationRecipients[n.Type]
	if !ok {
		return fmt.Errorf("no recipient roles for %s", n.Type)
	}
	ids, err := ps.s.repo.GetProjectUserIDsByRoles(ctx, ps.project.ID, roles)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	n.RecipientIDs = ids
	ps.s.dispatch.Dispatch(ctx, n)
	return nil
}
