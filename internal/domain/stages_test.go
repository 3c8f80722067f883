package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/renovabot/internal/db"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"15.03.2026", "15/03/2026", "2026-03-15", "  15.03.2026  "} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"15-03-2026", "2026.03.15", "tomorrow", ""} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrValidation, in)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "—", FormatDate(nil))
	dt := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "20.03.2026", FormatDate(&dt))
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 20, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, 5, DaysBetween(start, end))
	assert.Equal(t, -5, DaysBetween(end, start))
	assert.Equal(t, 0, DaysBetween(start, start))
}

func TestValidStageTransition(t *testing.T) {
	assert.True(t, ValidStageTransition(StagePlanned, StageInProgress))
	assert.True(t, ValidStageTransition(StageInProgress, StageCompleted))
	assert.True(t, ValidStageTransition(StageInProgress, StageDelayed))
	assert.True(t, ValidStageTransition(StageDelayed, StageCompleted))
	assert.True(t, ValidStageTransition(StageCompleted, StageDelayed), "checkpoint rejection")

	assert.False(t, ValidStageTransition(StagePlanned, StageCompleted))
	assert.False(t, ValidStageTransition(StageCompleted, StageInProgress))
}

func TestValidateStageDates(t *testing.T) {
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateStageDates(&start, &end))
	assert.NoError(t, ValidateStageDates(&start, nil))
	assert.NoError(t, ValidateStageDates(nil, nil))
	assert.ErrorIs(t, ValidateStageDates(&end, &start), ErrValidation)
	assert.ErrorIs(t, ValidateStageDates(&start, &start), ErrValidation)
}

func TestValidateDuration(t *testing.T) {
	assert.NoError(t, ValidateDuration(1))
	assert.NoError(t, ValidateDuration(365))
	assert.ErrorIs(t, ValidateDuration(0), ErrValidation)
	assert.ErrorIs(t, ValidateDuration(366), ErrValidation)
}

func TestValidateLaunchReadiness(t *testing.T) {
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	contact := "Асхат"
	budget := 100000.0

	t.Run("no stages", func(t *testing.T) {
		ready, warnings := ValidateLaunchReadiness(&db.Project{})
		assert.False(t, ready)
		assert.Equal(t, []string{"Нет этапов в проекте"}, warnings)
	})

	t.Run("first stage missing start date", func(t *testing.T) {
		p := &db.Project{Stages: []db.Stage{{Name: "Демонтаж", Order: 1}}}
		ready, warnings := ValidateLaunchReadiness(p)
		assert.False(t, ready)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "дату начала")
	})

	t.Run("ready with warnings", func(t *testing.T) {
		p := &db.Project{Stages: []db.Stage{
			{Name: "Демонтаж", Order: 1, StartDate: &start},
			{Name: "Электрика", Order: 2, ResponsibleContact: &contact, Budget: &budget},
		}}
		ready, warnings := ValidateLaunchReadiness(p)
		assert.True(t, ready)
		// Stage 1 lacks responsible and budget, stage 2 lacks start date.
		assert.Len(t, warnings, 3)
	})

	t.Run("parallel stages ignored", func(t *testing.T) {
		p := &db.Project{Stages: []db.Stage{
			{Name: "Демонтаж", Order: 1, StartDate: &start, ResponsibleContact: &contact, Budget: &budget},
			{Name: "Кухня → Замер", Order: 100, IsParallel: true},
		}}
		ready, warnings := ValidateLaunchReadiness(p)
		assert.True(t, ready)
		assert.Empty(t, warnings)
	})
}
