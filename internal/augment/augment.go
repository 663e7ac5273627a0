// Package augment implements the Query Augmentor (C7): MultiQuery, HyDE,
// and Expansion, each backed by an LLM call with a cache keyed by input
// and a deterministic degrade path when no LLM is configured. The cache
// defaults to an in-memory map but is swappable for a Redis-backed one
// so multiple enginectl processes (or repeated runs against the same
// process) can share augmentation results across process boundaries.
//
// Grounded on internal/rag/embedder/embedder.go's mutex-guarded call
// pattern, adapted from rate-limiting a single embedding call into
// caching a keyed set of LLM-backed query transforms.
package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chunkscope/internal/ports"
)

// Cache stores JSON-encoded augmentation results keyed by operation,
// fan-out count, and query text. Get reports whether key was present.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Augmentor implements the three C7 operations over an optional LLM
// port. A nil LLM makes every operation degrade to a deterministic
// placeholder derived from the input query, never an error.
type Augmentor struct {
	llm   ports.LLM
	cache Cache
}

// New builds an Augmentor backed by an in-memory cache. llm may be nil.
func New(llm ports.LLM) *Augmentor {
	return NewWithCache(llm, newMemoryCache())
}

// NewWithCache builds an Augmentor backed by cache, e.g. a Redis-backed
// Cache shared across processes. llm may be nil.
func NewWithCache(llm ports.LLM, cache Cache) *Augmentor {
	return &Augmentor{llm: llm, cache: cache}
}

func cacheKey(op, query string, n int) string {
	return fmt.Sprintf("%s:%d:%s", op, n, query)
}

func (a *Augmentor) getCached(ctx context.Context, key string, out any) bool {
	raw, ok := a.cache.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (a *Augmentor) setCached(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	a.cache.Set(ctx, key, string(raw))
}

// MultiQuery returns n query variants, always including the original
// query. Degrades to n copies of the original query when no LLM is
// configured or the LLM call fails.
func (a *Augmentor) MultiQuery(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 {
		n = 1
	}
	key := cacheKey("multi_query", query, n)
	var variants []string
	if a.getCached(ctx, key, &variants) {
		return variants, nil
	}

	variants = a.generateVariants(ctx, query, n)
	a.setCached(ctx, key, variants)
	return variants, nil
}

func (a *Augmentor) generateVariants(ctx context.Context, query string, n int) []string {
	if a.llm == nil {
		return placeholderVariants(query, n)
	}
	prompt := fmt.Sprintf("Generate %d alternative phrasings of this search query as a JSON array of strings. Query: %q", n, query)
	resp, err := a.llm.Complete(ctx, "You rewrite search queries. Respond with a JSON array of strings only.", prompt, ports.CompletionOptions{MaxTokens: 512})
	if err != nil {
		return placeholderVariants(query, n)
	}
	variants := parseVariants(resp)
	if len(variants) == 0 {
		return placeholderVariants(query, n)
	}
	return ensureOriginalPresent(query, variants, n)
}

func parseVariants(resp string) []string {
	trimmed := strings.TrimSpace(resp)
	var list []string
	if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
		return cleanLines(list)
	}
	return cleanLines(strings.Split(trimmed, "\n"))
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(strings.TrimLeft(l, "-*0123456789. "))
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func ensureOriginalPresent(original string, variants []string, n int) []string {
	found := false
	for _, v := range variants {
		if v == original {
			found = true
			break
		}
	}
	if !found {
		variants = append([]string{original}, variants...)
	}
	if len(variants) > n {
		variants = variants[:n]
	}
	for len(variants) < n {
		variants = append(variants, original)
	}
	return variants
}

func placeholderVariants(query string, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i == 0 {
			out[i] = query
			continue
		}
		out[i] = query
	}
	return out
}

// HyDE generates a short hypothetical answer to query, used as an
// alternative retrieval query/embedding source. Degrades to the
// original query when no LLM is configured.
func (a *Augmentor) HyDE(ctx context.Context, query string) (string, error) {
	key := cacheKey("hyde", query, 0)
	var out string
	if a.getCached(ctx, key, &out) {
		return out, nil
	}

	out = query
	if a.llm != nil {
		resp, err := a.llm.Complete(ctx,
			"You write short, plausible hypothetical answers to search queries, for use as a retrieval anchor.",
			fmt.Sprintf("Write a short hypothetical answer to: %q", query),
			ports.CompletionOptions{MaxTokens: 256})
		if err == nil && strings.TrimSpace(resp) != "" {
			out = resp
		}
	}
	a.setCached(ctx, key, out)
	return out, nil
}

// Expansion returns query with synonym/keyword expansions appended,
// intended for keyword-style retrievers. Degrades to the original query
// when no LLM is configured.
func (a *Augmentor) Expansion(ctx context.Context, query string) (string, error) {
	key := cacheKey("expansion", query, 0)
	var out string
	if a.getCached(ctx, key, &out) {
		return out, nil
	}

	out = query
	if a.llm != nil {
		resp, err := a.llm.Complete(ctx,
			"You expand search queries with relevant synonyms and related keywords, space separated, no explanation.",
			fmt.Sprintf("Expand this query with synonyms and related keywords: %q", query),
			ports.CompletionOptions{MaxTokens: 128})
		if err == nil && strings.TrimSpace(resp) != "" {
			out = query + " " + strings.TrimSpace(resp)
		}
	}
	a.setCached(ctx, key, out)
	return out, nil
}
