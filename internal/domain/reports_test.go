package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/renovabot/internal/db"
)

var reportNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func datePtr(y int, m time.Month, d int) *time.Time {
	dt := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &dt
}

func TestBuildWeeklyReport(t *testing.T) {
	budget := 1000000.0
	stages := []db.Stage{
		{Name: "Демонтаж", Order: 1, Status: StageCompleted, EndDate: datePtr(2026, 4, 5)},
		{Name: "Электрика", Order: 2, Status: StageInProgress, EndDate: datePtr(2026, 4, 1)},
		{Name: "Сантехника", Order: 3, Status: StagePlanned, StartDate: datePtr(2026, 4, 14)},
		{Name: "Штукатурка", Order: 4, Status: StagePlanned, StartDate: datePtr(2026, 6, 1)},
		{Name: "Плитка", Order: 6, Status: StageDelayed, EndDate: datePtr(2026, 4, 8)},
	}
	totals := BudgetTotals{TotalSpent: 950000}

	r := BuildWeeklyReport("Квартира", &budget, stages, totals, nil, reportNow)

	assert.Equal(t, 5, r.Stages.Total)
	assert.Equal(t, 1, r.Stages.Completed)
	assert.Equal(t, 1, r.Stages.InProgress)
	assert.Equal(t, 1, r.Stages.Delayed)
	assert.Equal(t, 2, r.Stages.Planned)

	// Электрика overdue 9 days, Плитка overdue 2 days.
	require.Len(t, r.OverdueList, 2)
	assert.Equal(t, 9, r.OverdueList[0].DaysOverdue)
	assert.Equal(t, 2, r.OverdueList[1].DaysOverdue)

	// Only Сантехника starts within 7 days.
	require.Len(t, r.UpcomingList, 1)
	assert.Equal(t, "Сантехника", r.UpcomingList[0].Name)
	assert.Equal(t, 4, r.UpcomingList[0].DaysUntil)

	assert.Equal(t, BudgetWarning, r.BudgetAnalysis.Status)
}

func TestBuildStatusReport(t *testing.T) {
	stages := []db.Stage{
		{Name: "Демонтаж", Order: 1, Status: StageCompleted},
		{Name: "Электрика", Order: 2, Status: StageInProgress, EndDate: datePtr(2026, 4, 1)},
		{Name: "Сантехника", Order: 3, Status: StagePlanned},
		{Name: "Штукатурка", Order: 4, Status: StagePlanned},
	}

	r := BuildStatusReport("Квартира", stages, reportNow)

	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 1, r.Completed)
	assert.InDelta(t, 25, r.ProgressPct, 0.01)
	require.Len(t, r.Stages, 4)
	assert.True(t, r.Stages[1].IsOverdue)
	assert.False(t, r.Stages[0].IsOverdue)
}

func TestBuildDeadlineReport(t *testing.T) {
	stages := []db.Stage{
		{Name: "Электрика", Status: StageInProgress, EndDate: datePtr(2026, 4, 1)},
		{Name: "Сантехника", Status: StageInProgress, EndDate: datePtr(2026, 4, 12)},
		{Name: "Штукатурка", Status: StageInProgress, EndDate: datePtr(2026, 5, 20)},
		{Name: "Плитка", Status: StageCompleted, EndDate: datePtr(2026, 4, 1)},
		{Name: "Шпаклёвка", Status: StagePlanned, EndDate: datePtr(2026, 5, 25)},
	}

	r := BuildDeadlineReport("Квартира", stages, reportNow)

	require.Len(t, r.Overdue, 1)
	assert.Equal(t, "Электрика", r.Overdue[0].Name)

	require.Len(t, r.DueSoon, 1)
	assert.Equal(t, "Сантехника", r.DueSoon[0].Name)

	// Шпаклёвка is planned, so only the in-progress Штукатурка is on track.
	require.Len(t, r.OnTrack, 1)
	assert.Equal(t, "Штукатурка", r.OnTrack[0].Name)
}

func TestBuildNextStageReport(t *testing.T) {
	current := &db.Stage{Name: "Электрика", Status: StageInProgress}
	next := &db.Stage{Name: "Сантехника", Status: StagePlanned}

	r := BuildNextStageReport("Квартира", current, next)
	require.NotNil(t, r.Current)
	require.NotNil(t, r.Next)
	assert.Equal(t, "Электрика", r.Current.Name)
	assert.Equal(t, "Сантехника", r.Next.Name)

	r = BuildNextStageReport("Квартира", nil, nil)
	assert.Nil(t, r.Current)
	assert.Nil(t, r.Next)
}

func TestParseQuickCommand(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"бюджет", "budget"},
		{"Бюджет", "budget"},
		{"  СТАТУС  ", "status"},
		{"следующий этап", "next_stage"},
		{"my stage", "my_stage"},
		{"отчет", "report"},
		{"отчёт", "report"},
		{"эксперт", "expert"},
		{"привет", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseQuickCommand(tt.in), tt.in)
	}
}
