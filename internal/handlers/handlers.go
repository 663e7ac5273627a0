// Package handlers implements the per-Kind Handler bodies registered
// into the Capability Registry (C4): loader, splitter, embedder,
// retriever, reranker, llm, vector_db, and augmentor. Each wires one or
// more of the algorithm libraries (C1 chunking, C2 retrieve, C3 rerank,
// C7 augment) or a C8 port into the closed registry.Handler contract.
// Handlers are stateless between invocations; all per-run state lives
// in the node's model.Config and its upstream inputs.
//
// Grounded on the registry.Handler/Inputs contract itself (internal/tools
// gave that contract's shape) and on each wired library's own package.
package handlers

import (
	"encoding/json"
	"fmt"

	"chunkscope/internal/registry"
)

// decode round-trips v through JSON into out. It exists because an
// upstream node's output may arrive either as the concrete struct a
// handler produced in-process, or as a generic map[string]any decoded
// from a checkpoint restored from disk — this makes every handler
// tolerant of both without a type switch per producer.
func decode(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("decode: marshal: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode: unmarshal: %w", err)
	}
	return nil
}

// singleInput returns the sole entry of inputs, for handlers that
// expect exactly one upstream dependency. ok is false if inputs does
// not contain exactly one entry.
func singleInput(inputs registry.Inputs) (any, bool) {
	if len(inputs) != 1 {
		return nil, false
	}
	for _, v := range inputs {
		return v, true
	}
	return nil, false
}
