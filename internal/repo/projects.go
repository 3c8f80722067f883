package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

// CreateProjectParams collects everything the project wizard gathers.
type CreateProjectParams struct {
	TenantID       *int64
	OwnerUserID    int64
	Name           string
	Address        *string
	AreaSqm        *float64
	RenovationType string
	TotalBudget    *float64
	CustomItems    []string
}

// CreateProject inserts the project, the owner role and all auto-generated
// stages in one transaction. Nothing is left behind on failure.
func (r *Repo) CreateProject(ctx context.Context, p CreateProjectParams) (*db.Project, error) {
	if p.Name == "" {
		return nil, domain.Validationf("project name is required")
	}
	if !domain.ValidRenovationType(p.RenovationType) {
		return nil, domain.Validationf("unknown renovation type %q", p.RenovationType)
	}

	project := &db.Project{
		TenantID:       p.TenantID,
		Name:           p.Name,
		Address:        p.Address,
		AreaSqm:        p.AreaSqm,
		RenovationType: p.RenovationType,
		TotalBudget:    p.TotalBudget,
		IsActive:       true,
	}

	err := r.Transaction(ctx, func(tx *Repo) error {
		if err := tx.db.Create(project).Error; err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		role := &db.ProjectRole{
			ProjectID: project.ID,
			UserID:    p.OwnerUserID,
			Role:      string(domain.RoleOwner),
		}
		if err := tx.db.Create(role).Error; err != nil {
			return fmt.Errorf("create owner role: %w", err)
		}

		templates := append([]domain.StageTemplate{}, domain.StandardStages...)
		templates = append(templates, domain.BuildParallelStages(p.CustomItems)...)

		stages := make([]db.Stage, 0, len(templates))
		for _, t := range templates {
			stages = append(stages, db.Stage{
				ProjectID:    project.ID,
				Name:         t.Name,
				Order:        t.Order,
				Status:       domain.StagePlanned,
				IsCheckpoint: t.IsCheckpoint,
				IsParallel:   t.IsParallel,
			})
		}
		if err := tx.db.Create(&stages).Error; err != nil {
			return fmt.Errorf("create stages: %w", err)
		}
		project.Stages = stages
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (r *Repo) GetProjectByID(ctx context.Context, id int64) (*db.Project, error) {
	var project db.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err, "project %d", id)
	}
	return &project, nil
}

// GetProjectByTelegramChatID resolves the project bound to a group chat.
func (r *Repo) GetProjectByTelegramChatID(ctx context.Context, chatID int64) (*db.Project, error) {
	var project db.Project
	err := r.db.WithContext(ctx).
		Where("telegram_chat_id = ? AND is_active", chatID).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("project for chat %d", chatID)
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetUserProjects lists active projects where the user holds any role,
// scoped to one tenant. tenantID nil matches legacy unscoped projects.
func (r *Repo) GetUserProjects(ctx context.Context, userID int64, tenantID *int64) ([]db.Project, error) {
	q := r.db.WithContext(ctx).
		Joins("JOIN project_roles pr ON pr.project_id = projects.id").
		Where("pr.user_id = ? AND projects.is_active", userID)
	if tenantID != nil {
		q = q.Where("projects.tenant_id = ?", *tenantID)
	} else {
		q = q.Where("projects.tenant_id IS NULL")
	}

	var projects []db.Project
	if err := q.Distinct().Order("projects.id").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("get user projects: %w", err)
	}
	return projects, nil
}

// GetAllUserProjects lists the user's active projects across every
// tenant. Channels without tenant identity (WhatsApp) resolve here.
func (r *Repo) GetAllUserProjects(ctx context.Context, userID int64) ([]db.Project, error) {
	var projects []db.Project
	err := r.db.WithContext(ctx).
		Joins("JOIN project_roles pr ON pr.project_id = projects.id").
		Where("pr.user_id = ? AND projects.is_active", userID).
		Distinct().Order("projects.id").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("get all user projects: %w", err)
	}
	return projects, nil
}

// GetProjectWithStages loads the project plus its stages (ordered) and
// their sub-stages.
func (r *Repo) GetProjectWithStages(ctx context.Context, id int64) (*db.Project, error) {
	var project db.Project
	err := r.db.WithContext(ctx).
		Preload("Stages", func(q *gorm.DB) *gorm.DB {
			return q.Order(`"order"`)
		}).
		Preload("Stages.SubStages", func(q *gorm.DB) *gorm.DB {
			return q.Order(`"order"`)
		}).
		Preload("Stages.ResponsibleUser").
		First(&project, id).Error
	if err != nil {
		return nil, notFound(err, "project %d", id)
	}
	return &project, nil
}

// LinkChat binds a Telegram group chat to a project. A chat already bound
// to another active project is rejected.
func (r *Repo) LinkChat(ctx context.Context, projectID, chatID int64) error {
	existing, err := r.GetProjectByTelegramChatID(ctx, chatID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if existing != nil && existing.ID != projectID {
		return domain.Integrityf("chat %d is already linked to project %q", chatID, existing.Name)
	}

	res := r.db.WithContext(ctx).Model(&db.Project{}).
		Where("id = ?", projectID).
		Update("telegram_chat_id", chatID)
	if res.Error != nil {
		return fmt.Errorf("link chat: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("project %d", projectID)
	}
	return nil
}

// UnlinkChat clears the chat binding.
func (r *Repo) UnlinkChat(ctx context.Context, projectID int64) error {
	return r.db.WithContext(ctx).Model(&db.Project{}).
		Where("id = ?", projectID).
		Update("telegram_chat_id", nil).Error
}

// UpdateProjectBudget sets or replaces the total budget.
func (r *Repo) UpdateProjectBudget(ctx context.Context, projectID int64, budget float64) error {
	res := r.db.WithContext(ctx).Model(&db.Project{}).
		Where("id = ?", projectID).
		Update("total_budget", budget)
	if res.Error != nil {
		return fmt.Errorf("update project budget: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("project %d", projectID)
	}
	return nil
}

// DeactivateProject soft-deletes a project. Stages and history remain.
func (r *Repo) DeactivateProject(ctx context.Context, projectID int64) error {
	res := r.db.WithContext(ctx).Model(&db.Project{}).
		Where("id = ?", projectID).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("project %d", projectID)
	}
	return nil
}

// GetActiveProjects lists every active project, optionally one tenant's.
// The scheduler sweeps these.
func (r *Repo) GetActiveProjects(ctx context.Context, tenantID *int64) ([]db.Project, error) {
	q := r.db.WithContext(ctx).Where("is_active")
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	var projects []db.Project
	if err := q.Order("id").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("get active projects: %w", err)
	}
	return projects, nil
}
