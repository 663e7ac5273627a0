package handlers

import (
	"context"

	"chunkscope/internal/model"
	"chunkscope/internal/registry"
)

// Augmentor is the subset of C7 the augmentor Kind handler depends on.
// Satisfied by *augment.Augmentor.
type Augmentor interface {
	MultiQuery(ctx context.Context, query string, n int) ([]string, error)
	HyDE(ctx context.Context, query string) (string, error)
	Expansion(ctx context.Context, query string) (string, error)
}

// AugmentorResult is the augmentor Kind's output.
type AugmentorResult struct {
	Query     string   `json:"query"`
	Operation string   `json:"operation"`
	Variants  []string `json:"variants,omitempty"`
	Text      string   `json:"text,omitempty"`
}

// NewAugmentor returns a Handler for model.KindAugmentor, a standalone
// C7 node usable outside the C2 retriever-wrapper compositions — e.g. to
// surface generated query variants to a downstream llm or logging node.
// Config "operation" selects "multi_query" (default), "hyde", or
// "expansion"; "query" supplies the input text, overridable by the
// single upstream node's "query" or "text" field; "variants" configures
// multi_query's count (default 3).
func NewAugmentor(aug Augmentor) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, cfg model.Config, inputs registry.Inputs) (any, error) {
		query := cfg.String("query")
		if query == "" {
			if upstream, ok := singleInput(inputs); ok {
				var qc queryCarrier
				if decode(upstream, &qc) == nil {
					if qc.Query != "" {
						query = qc.Query
					} else if qc.Text != "" {
						query = qc.Text
					}
				}
			}
		}
		if query == "" {
			return nil, model.NewError(model.ErrMissingInput, "augmentor requires a query, from config or upstream node", nil)
		}

		op := cfg.String("operation")
		if op == "" {
			op = "multi_query"
		}

		switch op {
		case "multi_query":
			n := cfg.Int("variants", 3)
			variants, err := aug.MultiQuery(ctx, query, n)
			if err != nil {
				return nil, model.NewError(model.ErrExternal, "augmentor: multi_query failed", err)
			}
			return AugmentorResult{Query: query, Operation: op, Variants: variants}, nil
		case "hyde":
			text, err := aug.HyDE(ctx, query)
			if err != nil {
				return nil, model.NewError(model.ErrExternal, "augmentor: hyde failed", err)
			}
			return AugmentorResult{Query: query, Operation: op, Text: text}, nil
		case "expansion":
			text, err := aug.Expansion(ctx, query)
			if err != nil {
				return nil, model.NewError(model.ErrExternal, "augmentor: expansion failed", err)
			}
			return AugmentorResult{Query: query, Operation: op, Text: text}, nil
		default:
			return nil, model.NewError(model.ErrInvalidConfig, "augmentor: unknown operation "+op, nil)
		}
	})
}
