// Package repo is the only place that talks to the database. Services and
// handlers call it; it returns db model structs and domain errors.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

// Repo wraps the shared gorm handle.
type Repo struct {
	db *gorm.DB
}

func New(gdb *gorm.DB) *Repo {
	return &Repo{db: gdb}
}

// DB exposes the underlying handle for raw-SQL collaborators (cache, RAG).
func (r *Repo) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn in one transaction, exposing a transactional Repo.
func (r *Repo) Transaction(ctx context.Context, fn func(tx *Repo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	})
}

func notFound(err error, what string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundf(what, args...)
	}
	return err
}

// AddChangeLog appends one immutable change record.
func (r *Repo) AddChangeLog(ctx context.Context, entry *db.ChangeLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("add change log: %w", err)
	}
	return nil
}

// GetChangeLogs returns the newest change records for a project.
func (r *Repo) GetChangeLogs(ctx context.Context, projectID int64, limit int) ([]db.ChangeLog, error) {
	var logs []db.ChangeLog
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("get change logs: %w", err)
	}
	return logs, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
