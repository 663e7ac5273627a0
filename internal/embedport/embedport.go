// Package embedport implements C8's ports.Embedder against an OpenAI-
// compatible embeddings endpoint and against a deterministic, dependency-
// free test double.
//
// Grounded on internal/rag/embedder/embedder.go: clientEmbedder's
// rate-limited single-item-batch call pattern (kept, pointed at
// openai-go/v2's Embeddings API instead of the teacher's raw HTTP
// embedding.EmbedText client) and deterministicEmbedder (kept near-
// identical — it is explicitly a test fixture already minimal and
// idiomatic in the teacher).
package embedport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"chunkscope/internal/observability"
	"chunkscope/internal/ports"
)

type openAIEmbedder struct {
	client   openai.Client
	model    string
	dim      int
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// NewOpenAIEmbedder builds a ports.Embedder backed by an OpenAI-compatible
// embeddings endpoint. baseURL may be empty to use OpenAI's default.
func NewOpenAIEmbedder(apiKey, model, baseURL string, dim int) ports.Embedder {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(observability.NewHTTPClient(nil)),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIEmbedder{
		client: openai.NewClient(opts...),
		model:  model,
		dim:    dim,
	}
}

func (e *openAIEmbedder) Dimension() int { return e.dim }

// Embed serializes calls with a minimum inter-call delay, mirroring the
// teacher's rateLimitedCall guard against overwhelming a local inference
// server; minDelay defaults to zero (no throttling) for hosted APIs.
func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	if !e.lastCall.IsZero() {
		if elapsed := time.Since(e.lastCall); elapsed < e.minDelay {
			time.Sleep(e.minDelay - elapsed)
		}
	}
	e.lastCall = time.Now()
	e.mu.Unlock()

	params := openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	}
	if e.dim > 0 {
		params.Dimensions = openai.Int(int64(e.dim))
	}
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed: empty response")
	}
	out := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
