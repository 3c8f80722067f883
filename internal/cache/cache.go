// Package cache fronts the database-level key-value store and the
// materialized aggregation views.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Key prefixes and TTLs shared by middleware and services.
const (
	UserKeyPrefix    = "user:tg:"
	ProjectKeyPrefix = "project:chat:"
	AskKeyPrefix     = "ask:"

	ResolverTTL = 600 // seconds, user and project lookups
	AnswerTTL   = 300 // seconds, RAG answers
)

// Cache wraps the SQL cache functions. Values are JSON documents; the
// store is unlogged, so entries do not survive a crash.
type Cache struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Cache {
	return &Cache{db: db}
}

// Get loads a live entry into dest. Returns false on miss or expiry.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	var raw []byte
	err := c.db.WithContext(ctx).Raw(`SELECT cache_get(?)`, key).Scan(&raw).Error
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key for ttlSeconds.
func (c *Cache) Set(ctx context.Context, key string, value any, ttlSeconds int) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	err = c.db.WithContext(ctx).Exec(`SELECT cache_set(?, ?::jsonb, ?)`, key, string(raw), ttlSeconds).Error
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every key with the given prefix.
func (c *Cache) Invalidate(ctx context.Context, prefix string) error {
	err := c.db.WithContext(ctx).Exec(`SELECT cache_invalidate(?)`, prefix).Error
	if err != nil {
		return fmt.Errorf("cache invalidate %s: %w", prefix, err)
	}
	return nil
}

// Cleanup removes expired rows. The scheduler runs this every minute.
func (c *Cache) Cleanup(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Raw(`SELECT cache_cleanup()`).Scan(&n).Error
	if err != nil {
		return 0, fmt.Errorf("cache cleanup: %w", err)
	}
	return n, nil
}

// BudgetSummaryRow is one mv_budget_summary line, per category.
type BudgetSummaryRow struct {
	ProjectID        int64
	Category         string
	TotalWork        float64
	TotalMaterials   float64
	TotalPrepayments float64
	TotalSpent       float64
	ItemCount        int64
	ConfirmedCount   int64
}

// StageProgressRow is one mv_stage_progress line.
type StageProgressRow struct {
	ProjectID   int64
	TotalStages int64
	Planned     int64
	InProgress  int64
	Completed   int64
	Delayed     int64
}

// BudgetSummary reads the precomputed per-category budget aggregates for
// a project. Empty when the views have not caught up yet.
func (c *Cache) BudgetSummary(ctx context.Context, projectID int64) ([]BudgetSummaryRow, error) {
	var rows []BudgetSummaryRow
	err := c.db.WithContext(ctx).Raw(
		`SELECT project_id, category, total_work, total_materials,
		        total_prepayments, total_spent, item_count, confirmed_count
		 FROM mv_budget_summary
		 WHERE project_id = ?
		 ORDER BY total_spent DESC`, projectID,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("budget summary: %w", err)
	}
	return rows, nil
}

// StageProgress reads the precomputed stage aggregate for a project.
// Returns nil when the view has no row yet.
func (c *Cache) StageProgress(ctx context.Context, projectID int64) (*StageProgressRow, error) {
	var row StageProgressRow
	err := c.db.WithContext(ctx).Raw(
		`SELECT project_id, total_stages, planned, in_progress, completed, delayed
		 FROM mv_stage_progress WHERE project_id = ?`, projectID,
	).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stage progress: %w", err)
	}
	return &row, nil
}

// RefreshViews rebuilds both materialized views concurrently.
func (c *Cache) RefreshViews(ctx context.Context) error {
	err := c.db.WithContext(ctx).Exec(`SELECT refresh_materialized_views()`).Error
	if err != nil {
		return fmt.Errorf("refresh materialized views: %w", err)
	}
	return nil
}

// UserKey builds the middleware cache key for a Telegram user.
func UserKey(telegramID int64) string {
	return fmt.Sprintf("%s%d", UserKeyPrefix, telegramID)
}

// ProjectKey builds the middleware cache key for a chat's project.
func ProjectKey(chatID int64) string {
	return fmt.Sprintf("%s%d", ProjectKeyPrefix, chatID)
}
