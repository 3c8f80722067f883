package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/igoryan-dao/renovabot/internal/db"
)

// StoreMessage logs one conversation message. Redelivery of the same
// platform message id is a no-op returning the stored row.
func (r *Repo) StoreMessage(ctx context.Context, msg *db.Message) (*db.Message, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform"}, {Name: "platform_message_id"}},
			DoNothing: true,
		}).
		Create(msg).Error
	if err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	if msg.ID != 0 {
		return msg, nil
	}
	// Conflict path: fetch the existing row.
	var existing db.Message
	err = r.db.WithContext(ctx).
		Where("platform = ? AND platform_message_id = ?", msg.Platform, msg.PlatformMessageID).
		First(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("load stored message: %w", err)
	}
	return &existing, nil
}

// GetRecentUserMessages returns the last n human messages, oldest first.
// Bot replies are excluded.
func (r *Repo) GetRecentUserMessages(ctx context.Context, projectID int64, n int) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ? AND NOT is_from_bot", projectID).
		Order("created_at DESC").
		Limit(n).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("get recent user messages: %w", err)
	}
	reverse(msgs)
	return msgs, nil
}

// GetUserMessagesInProject returns one participant's last n messages,
// oldest first. Participant summaries are built from these.
func (r *Repo) GetUserMessagesInProject(ctx context.Context, projectID, userID int64, n int) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ? AND NOT is_from_bot", projectID, userID).
		Order("created_at DESC").
		Limit(n).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("get user messages: %w", err)
	}
	reverse(msgs)
	return msgs, nil
}

// CountProjectMessages counts human messages in a project.
func (r *Repo) CountProjectMessages(ctx context.Context, projectID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("project_id = ? AND NOT is_from_bot", projectID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// LastMessageAt returns when the project chat last saw a human message.
func (r *Repo) LastMessageAt(ctx context.Context, projectID int64) (*time.Time, error) {
	var msg db.Message
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND NOT is_from_bot", projectID).
		Order("created_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg.CreatedAt, nil
}

func reverse(msgs []db.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
