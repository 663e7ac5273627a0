package retrieve

import (
	"math"
	"sort"

	"chunkscope/internal/model"
)

// breakTies stabilizes a descending-score ordering by ascending Chunk.ID
// wherever scores are equal, per the documented tie-breaking rule.
func breakTies(results []model.RetrievalResult) []model.RetrievalResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	return results
}

// minMaxNormalize rescales scores to [0,1]. A constant list (including a
// single-element list) normalizes to all 1s, since every candidate is
// equally the best available.
func minMaxNormalize(results []model.RetrievalResult) []float64 {
	norm := make([]float64, len(results))
	if len(results) == 0 {
		return norm
	}
	lo, hi := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < lo {
			lo = r.Score
		}
		if r.Score > hi {
			hi = r.Score
		}
	}
	if hi == lo {
		for i := range norm {
			norm[i] = 1
		}
		return norm
	}
	span := hi - lo
	for i, r := range results {
		norm[i] = (r.Score - lo) / span
	}
	return norm
}

func cosineSim(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
