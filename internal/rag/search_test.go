package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/renovabot/internal/repo"
)

func TestFuseRRFOverlap(t *testing.T) {
	vector := []repo.SearchHit{
		{ID: 1, Content: "плитка куплена"},
		{ID: 2, Content: "электрика готова"},
	}
	fts := []repo.SearchHit{
		{ID: 2, Content: "электрика готова"},
		{ID: 3, Content: "доставка плитки"},
	}

	hits := fuseRRF(vector, fts, 5)
	require.Len(t, hits, 3)

	// ID 2 is retrieved by both arms, so it outranks either single-arm hit.
	assert.Equal(t, int64(2), hits[0].ID)
	assert.ElementsMatch(t, []string{"vector", "fts"}, hits[0].Sources)

	// 0.6/61 > 0.4/61, so the vector-only hit beats the fts-only hit.
	assert.Equal(t, int64(1), hits[1].ID)
	assert.Equal(t, int64(3), hits[2].ID)
}

func TestFuseRRFScores(t *testing.T) {
	vector := []repo.SearchHit{{ID: 1}}
	fts := []repo.SearchHit{{ID: 1}}

	hits := fuseRRF(vector, fts, 1)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.6/61+0.4/61, hits[0].Score, 1e-9)
}

func TestFuseRRFTopK(t *testing.T) {
	var vector []repo.SearchHit
	for i := int64(1); i <= 10; i++ {
		vector = append(vector, repo.SearchHit{ID: i})
	}
	hits := fuseRRF(vector, nil, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, int64(1), hits[0].ID)
}

func TestFuseRRFEmpty(t *testing.T) {
	assert.Empty(t, fuseRRF(nil, nil, 5))
}

func TestAskCacheKey(t *testing.T) {
	k1 := AskCacheKey(7, "Сколько потратили?")
	k2 := AskCacheKey(7, "  сколько потратили?  ")
	assert.Equal(t, k1, k2)

	assert.NotEqual(t, k1, AskCacheKey(8, "Сколько потратили?"))
	assert.NotEqual(t, k1, AskCacheKey(7, "другой вопрос"))

	// ask:<project>:<12 hex chars>
	assert.Regexp(t, `^ask:7:[0-9a-f]{12}$`, k1)
}

func TestNameMentioned(t *testing.T) {
	assert.True(t, nameMentioned("что делал иван вчера", "Иван Петров"))
	assert.True(t, nameMentioned("спроси у петрова", "Иван Петров"))
	assert.False(t, nameMentioned("как дела", "Иван Петров"))
	// Two-rune name parts never match.
	assert.False(t, nameMentioned("ли это правда", "Ли Вон"))
}
