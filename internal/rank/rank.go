// Package rank scores stored vectors against a query vector.
package rank

import (
	"sort"

	"github.com/hyperjump/kioku/internal/vectorize"
)

// Candidate is one stored vector to score.
type Candidate struct {
	ID     int64
	Vector vectorize.Vector
}

// Hit is one ranked result.
type Hit struct {
	ID    int64
	Score float64
}

// Cosine returns the cosine similarity of two vectors. A zero-norm vector
// (empty query or empty unit) yields 0, never a division fault.
func Cosine(a, b vectorize.Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return a.Dot(b) / (na * nb)
}

// Rank scores every candidate against query with cosine similarity and
// returns at most topK hits, descending by score, ties broken by ascending
// id. The scan is exhaustive: index sizes are bounded in the thousands, so
// no approximate pruning is used. Identical inputs always yield identical
// output.
func Rank(query vectorize.Vector, candidates []*Candidate, topK int) []Hit {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}
	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = Hit{ID: c.ID, Score: Cosine(query, c.Vector)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits
}
