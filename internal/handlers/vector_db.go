package handlers

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
	"chunkscope/internal/registry"
)

// VectorDBResult is the vector_db Kind's output.
type VectorDBResult struct {
	Upserted int `json:"upserted"`
}

type chunksCarrier struct {
	Chunks []model.Chunk `json:"chunks"`
}

// NewVectorDB returns a Handler for model.KindVectorDB, forwarding the
// single upstream node's chunks (with or without embeddings attached)
// into repo.Upsert. The upstream is expected to be an embedder node
// with Config "attach" set to true so embeddings travel with the
// chunks; a splitter-only upstream upserts text-only chunks, useful
// when only keyword search is needed.
func NewVectorDB(repo ports.ChunkRepository) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, _ model.Config, inputs registry.Inputs) (any, error) {
		upstream, ok := singleInput(inputs)
		if !ok {
			return nil, model.NewError(model.ErrMissingInput, "vector_db requires exactly one upstream input", nil)
		}
		var carrier chunksCarrier
		if err := decode(upstream, &carrier); err != nil {
			return nil, model.NewError(model.ErrMissingInput, "vector_db: decoding upstream output", err)
		}
		if len(carrier.Chunks) == 0 {
			return nil, model.NewError(model.ErrMissingInput, "vector_db: upstream node produced no chunks; set embedder config \"attach\"=true", nil)
		}

		for _, c := range carrier.Chunks {
			if err := ctx.Err(); err != nil {
				return nil, model.NewError(model.ErrCancelled, "vector_db cancelled", err)
			}
			if err := repo.Upsert(ctx, c); err != nil {
				return nil, model.NewError(model.ErrExternal, "vector_db: upserting chunk "+c.ID, err)
			}
		}
		return VectorDBResult{Upserted: len(carrier.Chunks)}, nil
	})
}
