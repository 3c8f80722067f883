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

func (r *Repo) GetStageByID(ctx context.Context, id int64) (*db.Stage, error) {
	var stage db.Stage
	err := r.db.WithContext(ctx).
		Preload("SubStages", func(q *gorm.DB) *gorm.DB {
			return q.Order(`"order"`)
		}).
		Preload("ResponsibleUser").
		First(&stage, id).Error
	if err != nil {
		return nil, notFound(err, "stage %d", id)
	}
	return &stage, nil
}

func (r *Repo) GetProjectStages(ctx context.Context, projectID int64) ([]db.Stage, error) {
	var stages []db.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order(`"order"`).
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("get project stages: %w", err)
	}
	return stages, nil
}

// StageUpdate carries optional field changes; nil means leave as is.
type StageUpdate struct {
	StartDate          *time.Time
	EndDate            *time.Time
	Budget             *float64
	ResponsibleUserID  *int64
	ResponsibleContact *string
}

// UpdateStage applies field changes and writes one changelog row per
// changed field, all in one transaction.
func (r *Repo) UpdateStage(ctx context.Context, stageID int64, actorID *int64, upd StageUpdate) (*db.Stage, error) {
	stage, err := r.GetStageByID(ctx, stageID)
	if err != nil {
		return nil, err
	}

	if upd.StartDate != nil || upd.EndDate != nil {
		start, end := stage.StartDate, stage.EndDate
		if upd.StartDate != nil {
			start = upd.StartDate
		}
		if upd.EndDate != nil {
			end = upd.EndDate
		}
		if err := domain.ValidateStageDates(start, end); err != nil {
			return nil, err
		}
	}

	type change struct {
		field    string
		old, new *string
		value    any
	}
	var changes []change
	if upd.StartDate != nil {
		changes = append(changes, change{"start_date", fmtDatePtr(stage.StartDate), fmtDatePtr(upd.StartDate), *upd.StartDate})
	}
	if upd.EndDate != nil {
		changes = append(changes, change{"end_date", fmtDatePtr(stage.EndDate), fmtDatePtr(upd.EndDate), *upd.EndDate})
	}
	if upd.Budget != nil {
		changes = append(changes, change{"budget", fmtFloatPtr(stage.Budget), strPtr(fmt.Sprintf("%.2f", *upd.Budget)), *upd.Budget})
	}
	if upd.ResponsibleUserID != nil {
		changes = append(changes, change{"responsible_user_id", fmtInt64Ptr(stage.ResponsibleUserID), strPtr(fmt.Sprintf("%d", *upd.ResponsibleUserID)), *upd.ResponsibleUserID})
	}
	if upd.ResponsibleContact != nil {
		changes = append(changes, change{"responsible_contact", stage.ResponsibleContact, upd.ResponsibleContact, *upd.ResponsibleContact})
	}
	if len(changes) == 0 {
		return stage, nil
	}

	err = r.Transaction(ctx, func(tx *Repo) error {
		updates := map[string]any{"last_activity_at": time.Now().UTC()}
		for _, c := range changes {
			updates[c.field] = c.value
			entry := &db.ChangeLog{
				ProjectID:  stage.ProjectID,
				UserID:     actorID,
				EntityType: "stage",
				EntityID:   stage.ID,
				FieldName:  c.field,
				OldValue:   c.old,
				NewValue:   c.new,
			}
			if err := tx.AddChangeLog(ctx, entry); err != nil {
				return err
			}
		}
		return tx.db.Model(&db.Stage{}).Where("id = ?", stage.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetStageByID(ctx, stageID)
}

// SetStageStatus moves a stage through its lifecycle. Invalid transitions
// are rejected before anything is written.
func (r *Repo) SetStageStatus(ctx context.Context, stageID int64, actorID *int64, status string) (*db.Stage, error) {
	stage, err := r.GetStageByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if !domain.ValidStageTransition(stage.Status, status) {
		return nil, domain.Validationf("stage %q cannot go from %s to %s",
			stage.Name, domain.StatusLabels[stage.Status], domain.StatusLabels[status])
	}

	err = r.Transaction(ctx, func(tx *Repo) error {
		entry := &db.ChangeLog{
			ProjectID:  stage.ProjectID,
			UserID:     actorID,
			EntityType: "stage",
			EntityID:   stage.ID,
			FieldName:  "status",
			OldValue:   strPtr(stage.Status),
			NewValue:   strPtr(status),
		}
		if err := tx.AddChangeLog(ctx, entry); err != nil {
			return err
		}
		return tx.db.Model(&db.Stage{}).Where("id = ?", stage.ID).Updates(map[string]any{
			"status":           status,
			"last_activity_at": time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	stage.Status = status
	return stage, nil
}

// SetPaymentStatus moves a stage's payment state. Every move is logged
// with the actor for the audit trail.
func (r *Repo) SetPaymentStatus(ctx context.Context, stageID int64, actorID *int64, status string) (*db.Stage, error) {
	stage, err := r.GetStageByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePaymentTransition(stage.PaymentStatus, status); err != nil {
		return nil, err
	}

	err = r.Transaction(ctx, func(tx *Repo) error {
		entry := &db.ChangeLog{
			ProjectID:  stage.ProjectID,
			UserID:     actorID,
			EntityType: "stage",
			EntityID:   stage.ID,
			FieldName:  "payment_status",
			OldValue:   strPtr(stage.PaymentStatus),
			NewValue:   strPtr(status),
		}
		if err := tx.AddChangeLog(ctx, entry); err != nil {
			return err
		}
		return tx.db.Model(&db.Stage{}).Where("id = ?", stage.ID).
			Update("payment_status", status).Error
	})
	if err != nil {
		return nil, err
	}
	stage.PaymentStatus = status
	return stage, nil
}

// TouchStageActivity records that something happened on the stage, so the
// idle-status sweep skips it.
func (r *Repo) TouchStageActivity(ctx context.Context, stageID int64) error {
	return r.db.WithContext(ctx).Model(&db.Stage{}).
		Where("id = ?", stageID).
		Update("last_activity_at", time.Now().UTC()).Error
}

// GetCurrentInProgressStage returns the lowest-order non-parallel stage
// in progress, or a not-found error.
func (r *Repo) GetCurrentInProgressStage(ctx context.Context, projectID int64) (*db.Stage, error) {
	var stage db.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ? AND NOT is_parallel", projectID, domain.StageInProgress).
		Order(`"order"`).
		First(&stage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("no stage in progress for project %d", projectID)
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// GetNextPlannedStage returns the next non-parallel planned stage after
// the given order.
func (r *Repo) GetNextPlannedStage(ctx context.Context, projectID int64, afterOrder int) (*db.Stage, error) {
	var stage db.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ? AND NOT is_parallel AND \"order\" > ?",
			projectID, domain.StagePlanned, afterOrder).
		Order(`"order"`).
		First(&stage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("no planned stage after order %d", afterOrder)
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// GetStagesDueSoon finds active stages whose deadline falls inside the
// window starting now.
func (r *Repo) GetStagesDueSoon(ctx context.Context, projectID int64, now time.Time, window time.Duration) ([]db.Stage, error) {
	var stages []db.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status IN ? AND end_date IS NOT NULL AND end_date >= ? AND end_date <= ?",
			projectID, []string{domain.StageInProgress, domain.StageDelayed}, now, now.Add(window)).
		Order("end_date").
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("get stages due soon: %w", err)
	}
	return stages, nil
}

// GetOverdueStages finds active stages whose deadline already passed.
func (r *Repo) GetOverdueStages(ctx context.Context, projectID int64, now time.Time) ([]db.Stage, error) {
	var stages []db.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status IN ? AND end_date IS NOT NULL AND end_date < ?",
			projectID, []string{domain.StageInProgress, domain.StageDelayed}, now).
		Order("end_date").
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("get overdue stages: %w", err)
	}
	return stages, nil
}

// GetStagesStartingSoon finds planned main stages whose start date
// falls inside the window starting now.
func (r *Repo) GetStagesStartingSoon(ctx context.Context, projectID int64, now time.Time, window time.Duration) ([]db.Stage, error) {
	var stages []db.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ? AND NOT is_parallel AND start_date IS NOT NULL AND start_date >= ? AND start_date <= ?",
			projectID, domain.StagePlanned, now, now.Add(window)).
		Order("start_date").
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("get stages starting soon: %w", err)
	}
	return stages, nil
}

// GetIdleStages finds in-progress stages with no recorded activity for
// the given period. Stages that never logged activity count from their
// last update.
func (r *Repo) GetIdleStages(ctx context.Context, projectID int64, now time.Time, idle time.Duration) ([]db.Stage, error) {
	cutoff := now.Add(-idle)
	var stages []db.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ? AND COALESCE(last_activity_at, updated_at) < ?",
			projectID, domain.StageInProgress, cutoff).
		Order(`"order"`).
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("get idle stages: %w", err)
	}
	return stages, nil
}

// GetUpcomingInstallations finds parallel furniture stages whose
// installation step starts within the window. Matches Монтаж and
// Установка steps by name.
func (r *Repo) GetUpcomingInstallations(ctx context.Context, projectID int64, now time.Time, window time.Duration) ([]db.Stage, error) {
	var stages []db.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND is_parallel AND status != ?", projectID, domain.StageCompleted).
		Where("(LOWER(name) LIKE ? OR LOWER(name) LIKE ?)", "%монтаж%", "%установка%").
		Where("start_date IS NOT NULL AND start_date >= ? AND start_date <= ?", now, now.Add(window)).
		Order("start_date").
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("get upcoming installations: %w", err)
	}
	return stages, nil
}

// AddSubStages bulk-inserts sub-stages under one stage, continuing the
// order sequence.
func (r *Repo) AddSubStages(ctx context.Context, stageID int64, names []string) ([]db.SubStage, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var maxOrder int
	err := r.db.WithContext(ctx).Model(&db.SubStage{}).
		Where("stage_id = ?", stageID).
		Select(`COALESCE(MAX("order"), 0)`).
		Scan(&maxOrder).Error
	if err != nil {
		return nil, fmt.Errorf("get max substage order: %w", err)
	}

	subs := make([]db.SubStage, 0, len(names))
	for i, name := range names {
		subs = append(subs, db.SubStage{
			StageID: stageID,
			Name:    name,
			Order:   maxOrder + i + 1,
			Status:  domain.StagePlanned,
		})
	}
	if err := r.db.WithContext(ctx).Create(&subs).Error; err != nil {
		return nil, fmt.Errorf("add substages: %w", err)
	}
	return subs, nil
}

// GetSubStageByID loads one sub-stage.
func (r *Repo) GetSubStageByID(ctx context.Context, subStageID int64) (*db.SubStage, error) {
	var sub db.SubStage
	if err := r.db.WithContext(ctx).First(&sub, subStageID).Error; err != nil {
		return nil, notFound(err, "substage %d", subStageID)
	}
	return &sub, nil
}

// SetSubStageStatus moves one sub-stage; the parent stage's activity
// clock is touched too.
func (r *Repo) SetSubStageStatus(ctx context.Context, subStageID int64, status string) (*db.SubStage, error) {
	var sub db.SubStage
	if err := r.db.WithContext(ctx).First(&sub, subStageID).Error; err != nil {
		return nil, notFound(err, "substage %d", subStageID)
	}
	if !domain.ValidStageTransition(sub.Status, status) {
		return nil, domain.Validationf("substage %q cannot go from %s to %s",
			sub.Name, domain.StatusLabels[sub.Status], domain.StatusLabels[status])
	}
	err := r.Transaction(ctx, func(tx *Repo) error {
		if err := tx.db.Model(&db.SubStage{}).Where("id = ?", sub.ID).
			Update("status", status).Error; err != nil {
			return err
		}
		return tx.TouchStageActivity(ctx, sub.StageID)
	})
	if err != nil {
		return nil, err
	}
	sub.Status = status
	return &sub, nil
}

func fmtDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return strPtr(domain.FormatDate(t))
}

func fmtFloatPtr(f *float64) *string {
	if f == nil {
		return nil
	}
	return strPtr(fmt.Sprintf("%.2f", *f))
}

func fmtInt64Ptr(n *int64) *string {
	if n == nil {
		return nil
	}
	return strPtr(fmt.Sprintf("%d", *n))
}
