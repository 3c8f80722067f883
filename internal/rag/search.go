package rag

import (
	"context"
	"sort"

	"github.com/igoryan-dao/renovabot/internal/repo"
)

// Default retrieval knobs. Ask uses the stricter pair, chat the looser.
const (
	AskTopK    = 5
	AskMinSim  = 0.2
	ChatTopK   = 8
	ChatMinSim = 0.15

	rrfK         = 60
	vectorWeight = 0.6
	ftsWeight    = 0.4
)

// Hit is one fused result. Sources lists which arms retrieved it.
type Hit struct {
	ID      int64
	Content string
	Score   float64
	Sources []string
}

// fuseRRF merges the two ranked arms with Reciprocal Rank Fusion:
// score = sum over arms of weight / (60 + rank + 1).
func fuseRRF(vector, fts []repo.SearchHit, topK int) []Hit {
	type acc struct {
		hit     *Hit
		ordinal int
	}
	byID := map[int64]*acc{}
	ordinal := 0

	add := func(hits []repo.SearchHit, weight float64, source string) {
		for rank, h := range hits {
			a, ok := byID[h.ID]
			if !ok {
				a = &acc{
					hit:     &Hit{ID: h.ID, Content: h.Content},
					ordinal: ordinal,
				}
				ordinal++
				byID[h.ID] = a
			}
			a.hit.Score += weight / float64(rrfK+rank+1)
			a.hit.Sources = append(a.hit.Sources, source)
		}
	}
	add(vector, vectorWeight, "vector")
	add(fts, ftsWeight, "fts")

	accs := make([]*acc, 0, len(byID))
	for _, a := range byID {
		accs = append(accs, a)
	}
	sort.Slice(accs, func(i, j int) bool {
		if accs[i].hit.Score != accs[j].hit.Score {
			return accs[i].hit.Score > accs[j].hit.Score
		}
		return accs[i].ordinal < accs[j].ordinal
	})

	if len(accs) > topK {
		accs = accs[:topK]
	}
	out := make([]Hit, len(accs))
	for i, a := range accs {
		out[i] = *a.hit
	}
	return out
}

// HybridSearch runs the vector and full-text arms, over-fetching twice
// the requested size each, and fuses the rankings.
func (s *Service) HybridSearch(ctx context.Context, projectID int64, query string, topK int, minSim float64) ([]Hit, error) {
	overfetch := topK * 2

	var vector []repo.SearchHit
	vec, err := s.ai.Embed(ctx, query)
	if err == nil {
		vector, err = s.repo.SearchSimilar(ctx, projectID, vec, overfetch, minSim)
		if err != nil {
			return nil, err
		}
	} else {
		// The FTS arm still works without an embedding provider.
		s.logf("embedding unavailable for hybrid search: %v", err)
	}

	fts, err := s.repo.SearchFTS(ctx, projectID, query, overfetch)
	if err != nil {
		return nil, err
	}

	return fuseRRF(vector, fts, topK), nil
}
