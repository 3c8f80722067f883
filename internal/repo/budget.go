package repo

import (
	"context"
	"fmt"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

// CreateBudgetItem records one expense and its changelog row atomically.
func (r *Repo) CreateBudgetItem(ctx context.Context, item *db.BudgetItem, actorID *int64) error {
	if item.WorkCost < 0 || item.MaterialCost < 0 || item.Prepayment < 0 {
		return domain.Validationf("budget amounts cannot be negative")
	}
	if item.Category == "" {
		item.Category = domain.CategoryOther
	}
	return r.Transaction(ctx, func(tx *Repo) error {
		if err := tx.db.Create(item).Error; err != nil {
			return fmt.Errorf("create budget item: %w", err)
		}
		total := item.WorkCost + item.MaterialCost
		entry := &db.ChangeLog{
			ProjectID:  item.ProjectID,
			UserID:     actorID,
			EntityType: "budget_item",
			EntityID:   item.ID,
			FieldName:  "created",
			NewValue:   strPtr(fmt.Sprintf("%s: %.2f", item.Category, total)),
		}
		return tx.AddChangeLog(ctx, entry)
	})
}

// ConfirmBudgetItem marks an expense approved by the given user.
func (r *Repo) ConfirmBudgetItem(ctx context.Context, projectID, itemID, confirmerID int64) error {
	res := r.db.WithContext(ctx).Model(&db.BudgetItem{}).
		Where("id = ? AND project_id = ?", itemID, projectID).
		Updates(map[string]any{
			"is_confirmed":         true,
			"confirmed_by_user_id": confirmerID,
		})
	if res.Error != nil {
		return fmt.Errorf("confirm budget item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("budget item %d", itemID)
	}
	return nil
}

// GetBudgetTotals sums all expenses of a project.
func (r *Repo) GetBudgetTotals(ctx context.Context, projectID int64) (domain.BudgetTotals, error) {
	var row struct {
		Work      float64
		Material  float64
		Prepay    float64
		Items     int
		Confirmed int
	}
	err := r.db.WithContext(ctx).Model(&db.BudgetItem{}).
		Select("COALESCE(SUM(work_cost),0) AS work, COALESCE(SUM(material_cost),0) AS material, " +
			"COALESCE(SUM(prepayment),0) AS prepay, COUNT(*) AS items, " +
			"COUNT(*) FILTER (WHERE is_confirmed) AS confirmed").
		Where("project_id = ?", projectID).
		Scan(&row).Error
	if err != nil {
		return domain.BudgetTotals{}, fmt.Errorf("get budget totals: %w", err)
	}
	return domain.BudgetTotals{
		TotalWork:        row.Work,
		TotalMaterials:   row.Material,
		TotalPrepayments: row.Prepay,
		TotalSpent:       row.Work + row.Material,
		ItemCount:        row.Items,
		ConfirmedCount:   row.Confirmed,
	}, nil
}

// GetCategorySummaries groups spend by category, largest first.
func (r *Repo) GetCategorySummaries(ctx context.Context, projectID int64) ([]domain.CategorySummary, error) {
	var rows []struct {
		Category  string
		Work      float64
		Material  float64
		Prepay    float64
		Confirmed float64
	}
	err := r.db.WithContext(ctx).Model(&db.BudgetItem{}).
		Select("category, COALESCE(SUM(work_cost),0) AS work, COALESCE(SUM(material_cost),0) AS material, " +
			"COALESCE(SUM(prepayment),0) AS prepay, " +
			"COALESCE(SUM(work_cost + material_cost) FILTER (WHERE is_confirmed), 0) AS confirmed").
		Where("project_id = ?", projectID).
		Group("category").
		Order("SUM(work_cost + material_cost) DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get category summaries: %w", err)
	}
	out := make([]domain.CategorySummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.CategorySummary{
			Category:    row.Category,
			Work:        row.Work,
			Materials:   row.Material,
			Prepayments: row.Prepay,
			Total:       row.Work + row.Material,
			Confirmed:   row.Confirmed,
		})
	}
	return out, nil
}

// GetStageSpend sums expenses attached to one stage.
func (r *Repo) GetStageSpend(ctx context.Context, stageID int64) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&db.BudgetItem{}).
		Select("COALESCE(SUM(work_cost + material_cost), 0)").
		Where("stage_id = ?", stageID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("get stage spend: %w", err)
	}
	return total, nil
}

// GetBudgetItems lists a project's expenses, newest first.
func (r *Repo) GetBudgetItems(ctx context.Context, projectID int64, limit int) ([]db.BudgetItem, error) {
	var items []db.BudgetItem
	q := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("get budget items: %w", err)
	}
	return items, nil
}
