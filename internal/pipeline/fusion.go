package pipeline

import (
	"sort"

	"github.com/hyperjump/chizu/internal/lexical"
	"github.com/hyperjump/chizu/internal/vector"
)

// rrfK dampens the rank contribution so a single first place does not
// dominate consistent mid-rank agreement across both lists.
const rrfK = 60

type fusedHit struct {
	ID          string
	Score       float64
	VectorScore float64
}

// fuseResults merges vector and lexical candidate lists by reciprocal rank.
// Each list contributes 1/(rrfK+rank) per candidate; candidates present in
// both lists accumulate both terms. Ties break on raw vector score, then ID,
// so the ordering is deterministic for identical inputs.
func fuseResults(vecResults []*vector.Result, lexResults []*lexical.Result) []fusedHit {
	merged := make(map[string]*fusedHit)

	for rank, r := range vecResults {
		h := &fusedHit{ID: r.ID, VectorScore: r.Score}
		h.Score = 1.0 / float64(rrfK+rank+1)
		merged[r.ID] = h
	}
	for rank, r := range lexResults {
		h, ok := merged[r.ID]
		if !ok {
			h = &fusedHit{ID: r.ID}
			merged[r.ID] = h
		}
		h.Score += 1.0 / float64(rrfK+rank+1)
	}

	hits := make([]fusedHit, 0, len(merged))
	for _, h := range merged {
		hits = append(hits, *h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].VectorScore != hits[j].VectorScore {
			return hits[i].VectorScore > hits[j].VectorScore
		}
		return hits[i].ID < hits[j].ID
	})
	return hits
}
