package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

// CreateTenant registers a new bot identity. Duplicate tokens are an
// integrity error carrying the existing tenant's id.
func (r *Repo) CreateTenant(ctx context.Context, name, botToken string) (*db.Tenant, error) {
	existing, err := r.GetTenantByBotToken(ctx, botToken)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Integrityf("tenant with this bot token already exists (id=%d)", existing.ID)
	}

	tenant := &db.Tenant{Name: name, TelegramBotToken: botToken, IsActive: true}
	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return tenant, nil
}

func (r *Repo) GetTenantByID(ctx context.Context, id int64) (*db.Tenant, error) {
	var tenant db.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, notFound(err, "tenant %d", id)
	}
	return &tenant, nil
}

func (r *Repo) GetTenantByBotToken(ctx context.Context, token string) (*db.Tenant, error) {
	var tenant db.Tenant
	err := r.db.WithContext(ctx).Where("telegram_bot_token = ?", token).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("tenant by token")
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *Repo) GetActiveTenants(ctx context.Context) ([]db.Tenant, error) {
	var tenants []db.Tenant
	err := r.db.WithContext(ctx).Where("is_active").Order("id").Find(&tenants).Error
	if err != nil {
		return nil, fmt.Errorf("get active tenants: %w", err)
	}
	return tenants, nil
}

// SetTenantUsername persists the bot username discovered at startup.
func (r *Repo) SetTenantUsername(ctx context.Context, tenantID int64, username string) error {
	return r.db.WithContext(ctx).Model(&db.Tenant{}).
		Where("id = ?", tenantID).
		Update("telegram_bot_username", username).Error
}

// UpdateTenant changes name and/or active flag.
func (r *Repo) UpdateTenant(ctx context.Context, id int64, name *string, isActive *bool) (*db.Tenant, error) {
	tenant, err := r.GetTenantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if name != nil {
		updates["name"] = *name
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}
	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(tenant).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update tenant: %w", err)
		}
	}
	return tenant, nil
}

// DeactivateTenant soft-deletes; the bot stops on next supervisor sweep.
func (r *Repo) DeactivateTenant(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&db.Tenant{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate tenant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("tenant %d", id)
	}
	return nil
}

// BackfillTenant attaches orphaned projects (and, through them, nothing
// else needs moving — messages and embeddings hang off projects) to the
// given tenant. Used when a default tenant is created from the fallback
// token.
func (r *Repo) BackfillTenant(ctx context.Context, tenantID int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&db.Project{}).
		Where("tenant_id IS NULL").
		Update("tenant_id", tenantID)
	if res.Error != nil {
		return 0, fmt.Errorf("backfill tenant: %w", res.Error)
	}
	return res.RowsAffected, nil
}
