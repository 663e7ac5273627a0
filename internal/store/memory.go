// Package store implements C8's ports.ChunkRepository and
// ports.CheckpointStore against concrete backends: an in-memory map for
// tests and local runs, Postgres+pgvector, and Qdrant for the
// ChunkRepository; memory, file, Redis and S3 for the CheckpointStore.
//
// Grounded on internal/persistence/databases's memory_vector.go and
// memory_search.go (in-memory cosine search and term-count full text
// search, merged here into a single repository keyed by chunk ID rather
// than kept as two separate backends).
package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
)

type memoryChunkRepository struct {
	mu     sync.RWMutex
	chunks map[string]model.Chunk
}

// NewMemoryChunkRepository returns an in-memory ports.ChunkRepository
// combining cosine dense search and naive term-count keyword search over
// the same chunk set.
func NewMemoryChunkRepository() ports.ChunkRepository {
	return &memoryChunkRepository{chunks: make(map[string]model.Chunk)}
}

func (m *memoryChunkRepository) Upsert(_ context.Context, c model.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := c
	cp.Embedding = append([]float32(nil), c.Embedding...)
	cp.Metadata = copyMetadata(c.Metadata)
	m.chunks[c.ID] = cp
	return nil
}

func (m *memoryChunkRepository) GetByID(_ context.Context, id string) (model.Chunk, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chunks[id]
	return c, ok, nil
}

func (m *memoryChunkRepository) GetByIDs(_ context.Context, ids []string) ([]model.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryChunkRepository) DenseSearch(_ context.Context, queryEmbedding []float32, topK int, filter ports.Filter) ([]model.RetrievalResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 {
		topK = 10
	}
	qnorm := norm(queryEmbedding)
	results := make([]model.RetrievalResult, 0, len(m.chunks))
	for _, c := range m.chunks {
		if !matchesFilter(c, filter) {
			continue
		}
		if len(c.Embedding) == 0 {
			continue
		}
		score := cosine(queryEmbedding, c.Embedding, qnorm)
		results = append(results, model.RetrievalResult{Chunk: c, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *memoryChunkRepository) KeywordSearch(_ context.Context, query string, topK int, filter ports.Filter) ([]model.RetrievalResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 {
		topK = 10
	}
	terms := strings.Fields(strings.ToLower(query))
	results := make([]model.RetrievalResult, 0, len(m.chunks))
	for _, c := range m.chunks {
		if !matchesFilter(c, filter) {
			continue
		}
		lt := strings.ToLower(c.Text)
		var score float64
		for _, t := range terms {
			if t == "" {
				continue
			}
			if n := strings.Count(lt, t); n > 0 {
				score += float64(n)
			}
		}
		if score > 0 {
			results = append(results, model.RetrievalResult{Chunk: c, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func matchesFilter(c model.Chunk, f ports.Filter) bool {
	if f.DocumentID != "" && c.DocumentID != f.DocumentID {
		return false
	}
	for k, v := range f.Extra {
		if c.Metadata[k] != v {
			return false
		}
	}
	return true
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func norm(a []float32) float64 {
	var s float64
	for _, x := range a {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func cosine(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = norm(a)
	}
	bnorm := norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return dot(a, b) / (anorm * bnorm)
}
