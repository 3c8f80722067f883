package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardStages(t *testing.T) {
	require.Len(t, StandardStages, 13)

	var checkpoints []int
	seen := map[int]bool{}
	for _, s := range StandardStages {
		assert.False(t, seen[s.Order], "duplicate order %d", s.Order)
		seen[s.Order] = true
		assert.False(t, s.IsParallel)
		if s.IsCheckpoint {
			checkpoints = append(checkpoints, s.Order)
		}
	}
	assert.Equal(t, []int{2, 3, 6, 7, 13}, checkpoints)
	assert.Equal(t, "Демонтаж", StandardStages[0].Name)
	assert.Equal(t, "Финальная приёмка", StandardStages[12].Name)
}

func TestBuildParallelStages(t *testing.T) {
	stages := BuildParallelStages([]string{"kitchen", "wardrobes"})
	require.Len(t, stages, 10)

	assert.Equal(t, "Кухня → Замер", stages[0].Name)
	assert.Equal(t, 100, stages[0].Order)
	assert.True(t, stages[0].IsParallel)
	assert.False(t, stages[0].IsCheckpoint)

	assert.Equal(t, "Кухня → Монтаж", stages[4].Name)
	assert.Equal(t, 104, stages[4].Order)

	assert.Equal(t, "Шкафы → Замер", stages[5].Name)
	assert.Equal(t, 110, stages[5].Order)
	assert.Equal(t, 114, stages[9].Order)
}

func TestBuildParallelStagesUnknownKey(t *testing.T) {
	stages := BuildParallelStages([]string{"sauna"})
	require.Len(t, stages, 5)
	assert.Equal(t, "sauna → Замер", stages[0].Name)
}

func TestValidRenovationType(t *testing.T) {
	for _, typ := range []string{"cosmetic", "standard", "major", "designer"} {
		assert.True(t, ValidRenovationType(typ), typ)
	}
	assert.False(t, ValidRenovationType("euro"))
	assert.False(t, ValidRenovationType(""))
}
