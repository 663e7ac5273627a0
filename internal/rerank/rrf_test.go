package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkscope/internal/model"
)

func chunkResult(id string, score float64) model.RetrievalResult {
	return model.RetrievalResult{Chunk: model.Chunk{ID: id}, Score: score}
}

func TestRRF_Rerank_PreservesOrder(t *testing.T) {
	t.Parallel()
	r := NewRRF(0)
	in := []model.RetrievalResult{chunkResult("a", 0.9), chunkResult("b", 0.5), chunkResult("c", 0.1)}

	out, err := r.Rerank(context.Background(), "q", in, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Chunk.ID)
	assert.Equal(t, "b", out[1].Chunk.ID)
	assert.Greater(t, out[0].RerankScore, out[1].RerankScore)
}

func TestRRF_Rerank_ZeroTopKOrEmpty(t *testing.T) {
	t.Parallel()
	r := NewRRF(0)

	out, err := r.Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = r.Rerank(context.Background(), "q", []model.RetrievalResult{chunkResult("a", 1)}, 0)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRRF_Fuse_SumsAcrossRankings(t *testing.T) {
	t.Parallel()
	r := NewRRF(1)
	dense := []model.RetrievalResult{chunkResult("a", 0), chunkResult("b", 0)}
	keyword := []model.RetrievalResult{chunkResult("b", 0), chunkResult("a", 0), chunkResult("c", 0)}

	fused := r.Fuse([][]model.RetrievalResult{dense, keyword}, 10)
	require.Len(t, fused, 3)

	ids := []string{fused[0].Chunk.ID, fused[1].Chunk.ID, fused[2].Chunk.ID}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, "c", fused[2].Chunk.ID, "c only appears once so it must rank last")
}

func TestRRF_Fuse_ZeroTopK(t *testing.T) {
	t.Parallel()
	r := NewRRF(0)
	assert.Nil(t, r.Fuse([][]model.RetrievalResult{{chunkResult("a", 1)}}, 0))
}

func TestNewRRF_DefaultsK(t *testing.T) {
	t.Parallel()
	r := NewRRF(0)
	assert.Equal(t, defaultRRFK, r.K)

	r = NewRRF(5)
	assert.Equal(t, 5, r.K)
}
