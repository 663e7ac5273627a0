package handlers

import (
	"context"
	"os"
	"path/filepath"

	"chunkscope/internal/model"
	"chunkscope/internal/registry"
)

// LoaderResult is the loader Kind's output: the document's raw text
// plus whatever metadata the load produced (source path, size, etc).
type LoaderResult struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// NewLoader returns a Handler for model.KindLoader. Config "text"
// supplies inline content directly (tests, programmatic graphs);
// Config "path" reads a file from the local filesystem. Exactly one of
// the two must be set.
//
// A local-filesystem read has no natural library in this corpus to
// delegate to — every example repo that ingests documents does so
// through a higher-level fetcher (HTTP, object storage) wired
// elsewhere; reading a path off disk is os.ReadFile's job regardless
// of stack.
func NewLoader() registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, cfg model.Config, _ registry.Inputs) (any, error) {
		if text := cfg.String("text"); text != "" {
			md := map[string]any{"source": "inline"}
			return LoaderResult{Text: text, Metadata: md}, nil
		}
		path := cfg.String("path")
		if path == "" {
			return nil, model.NewError(model.ErrInvalidConfig, "loader requires config \"text\" or \"path\"", nil)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, model.NewError(model.ErrExternal, "loader: reading "+path, err)
		}
		md := map[string]any{
			"source":   path,
			"filename": filepath.Base(path),
			"bytes":    len(b),
		}
		return LoaderResult{Text: string(b), Metadata: md}, nil
	})
}
