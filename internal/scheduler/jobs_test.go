package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/igoryan-dao/renovabot/internal/domain"
)

func TestRenderWeeklyDigest(t *testing.T) {
	budget := 2000000.0
	r := &domain.WeeklyReport{
		ProjectName: "ЖК Ботанический",
		Stages: domain.StageCounts{
			Total:      5,
			InProgress: 2,
			Completed:  1,
			Delayed:    1,
		},
		BudgetTotals:   domain.BudgetTotals{TotalSpent: 500000},
		BudgetAnalysis: domain.AnalyzeBudget(&budget, 500000),
		Categories: []domain.CategorySummary{
			{Category: "electrical", Total: 300000},
		},
		OverdueList: []domain.StageBrief{
			{Name: "Стяжка", EndDate: "01.06.2025", IsOverdue: true, DaysOverdue: 4},
		},
	}

	out := renderWeeklyDigest(r)

	assert.Contains(t, out, "ЖК Ботанический")
	assert.Contains(t, out, "всего 5")
	assert.Contains(t, out, "500 000 ₸ из 2 000 000 ₸ (25%)")
	assert.Contains(t, out, domain.CategoryLabel("electrical"))
	assert.Contains(t, out, "Стяжка (дедлайн 01.06.2025)")
}

func TestRenderWeeklyDigestWithoutBudget(t *testing.T) {
	r := &domain.WeeklyReport{
		ProjectName:    "Студия",
		BudgetTotals:   domain.BudgetTotals{TotalSpent: 120000},
		BudgetAnalysis: domain.AnalyzeBudget(nil, 120000),
	}

	out := renderWeeklyDigest(r)

	assert.Contains(t, out, "120 000 ₸")
	assert.NotContains(t, out, "из")
	assert.NotContains(t, out, "Просрочено")
}
