package storage

import (
	"math"
	"sort"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
//
// It returns 0 for vectors of different length, empty vectors, and when
// either norm is 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankByScore sorts scored entries by score (descending), drops entries
// whose score is not positive and truncates the result to limit.
// Equal scores keep their input order.
func RankByScore(scored []*ScoredMemory, limit int) []*ScoredMemory {
	kept := scored[:0]
	for _, s := range scored {
		if s.Score > 0 {
			kept = append(kept, s)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	if limit > 0 && len(kept) > limit {
		return kept[:limit]
	}
	return kept
}
