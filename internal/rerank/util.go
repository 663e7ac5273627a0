package rerank

import (
	"sort"

	"chunkscope/internal/model"
)

func sortByRerankScore(results []model.RerankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RerankScore != results[j].RerankScore {
			return results[i].RerankScore > results[j].RerankScore
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
}
