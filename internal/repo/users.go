package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

func (r *Repo) GetUserByID(ctx context.Context, id int64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user %d", id)
	}
	return &user, nil
}

func (r *Repo) GetUserByTelegramID(ctx context.Context, tgID int64) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", tgID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("user with telegram id %d", tgID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repo) GetUserByWhatsAppID(ctx context.Context, waID string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("whats_app_id = ?", waID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("user with whatsapp id %s", waID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreateUserByTelegramID loads the user, creating them on first
// contact. A fresh /start also flips is_bot_started.
func (r *Repo) GetOrCreateUserByTelegramID(ctx context.Context, tgID int64, fullName string, started bool) (*db.User, error) {
	user, err := r.GetUserByTelegramID(ctx, tgID)
	if err == nil {
		updates := map[string]any{}
		if started && !user.IsBotStarted {
			updates["is_bot_started"] = true
			user.IsBotStarted = true
		}
		if fullName != "" && user.FullName != fullName {
			updates["full_name"] = fullName
			user.FullName = fullName
		}
		if len(updates) > 0 {
			if err := r.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
		}
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if fullName == "" {
		fullName = fmt.Sprintf("User %d", tgID)
	}
	user = &db.User{TelegramID: &tgID, FullName: fullName, IsBotStarted: started}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetOrCreateUserByWhatsAppID mirrors the Telegram variant for the
// WhatsApp adapter.
func (r *Repo) GetOrCreateUserByWhatsAppID(ctx context.Context, waID, fullName string) (*db.User, error) {
	user, err := r.GetUserByWhatsAppID(ctx, waID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if fullName == "" {
		fullName = waID
	}
	user = &db.User{WhatsAppID: &waID, FullName: fullName, IsBotStarted: true}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUsersByIDs loads a batch of users. Missing ids are silently absent
// from the result.
func (r *Repo) GetUsersByIDs(ctx context.Context, ids []int64) ([]db.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	return users, nil
}

// CreatePlaceholderUser records an invited person who has not yet talked
// to the bot.
func (r *Repo) CreatePlaceholderUser(ctx context.Context, fullName string) (*db.User, error) {
	user := &db.User{FullName: fullName, IsBotStarted: false}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create placeholder user: %w", err)
	}
	return user, nil
}
