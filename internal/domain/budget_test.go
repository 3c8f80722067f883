package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"500000", 500000, true},
		{"500 000", 500000, true},
		{"1500.50", 1500.50, true},
		{"1500,50", 1500.50, true},
		{"500 000 ₸", 500000, true},
		{"80000 тг", 80000, true},
		{"1 200 руб", 1200, true},
		{"99 ₽", 99, true},
		{"15$", 15, true},
		{"0", 0, true},
		{"-100", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.ErrorIs(t, err, ErrValidation, tt.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "999", FormatAmount(999))
	assert.Equal(t, "1 000", FormatAmount(1000))
	assert.Equal(t, "152 340", FormatAmount(152340))
	assert.Equal(t, "5 000 000", FormatAmount(5000000))
	assert.Equal(t, "-12 500", FormatAmount(-12500))
}

func TestAnalyzeBudget(t *testing.T) {
	budget := func(v float64) *float64 { return &v }

	t.Run("no budget", func(t *testing.T) {
		a := AnalyzeBudget(nil, 100000)
		assert.False(t, a.HasBudget)
		assert.Equal(t, BudgetOK, a.Status)
	})

	t.Run("ok", func(t *testing.T) {
		a := AnalyzeBudget(budget(1000000), 500000)
		assert.Equal(t, BudgetOK, a.Status)
		assert.Equal(t, 500000.0, a.Remaining)
		assert.InDelta(t, 50, a.UsagePct, 0.01)
	})

	t.Run("warning at 90 percent", func(t *testing.T) {
		a := AnalyzeBudget(budget(1000000), 900000)
		assert.Equal(t, BudgetWarning, a.Status)
	})

	t.Run("over", func(t *testing.T) {
		a := AnalyzeBudget(budget(1000000), 1100000)
		assert.Equal(t, BudgetOver, a.Status)
		assert.Contains(t, a.Message, "превышен")
	})
}

func TestGuessCategoryFromStage(t *testing.T) {
	tests := []struct {
		stage string
		want  string
	}{
		{"Демонтаж", CategoryDemolition},
		{"Электрика", CategoryElectrical},
		{"Чистовая сантехника", CategoryPlumbing},
		{"Плитка", CategoryTiling},
		{"Шпаклёвка", CategoryWalls},
		{"Покраска / обои", CategoryPainting},
		{"Напольное покрытие", CategoryFlooring},
		{"Установка дверей", CategoryDoors},
		{"Кухня → Монтаж", CategoryFurniture},
		{"Что-то ещё", CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GuessCategoryFromStage(tt.stage), tt.stage)
	}
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "⚡ Электрика", CategoryLabel(CategoryElectrical))
	assert.Equal(t, "📦 custom", CategoryLabel("custom"))
}
