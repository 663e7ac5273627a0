// Package registry implements the Capability Registry (C4): a
// process-wide mapping from node Kind to Handler, used by the execution
// engine to dispatch a node's work without knowing anything about the
// handler's semantics.
//
// Grounded on internal/tools/types.go's Tool/Registry interfaces and
// internal/tools/registry.go's defaultRegistry map-backed dispatch.
// Unlike the teacher's tools.Registry (one process-wide instance
// dispatching by string tool name, built for an LLM agent loop), this
// registry is constructor-built per engine instance and keyed by the
// closed model.Kind enum rather than an open tool namespace, per this
// domain's preference for explicit dependency wiring over global
// singletons.
package registry

import (
	"context"
	"fmt"

	"chunkscope/internal/model"
)

// Inputs maps a node's direct dependencies to their produced output.
type Inputs map[model.NodeID]any

// Handler executes a single node kind. Implementations are stateless
// between invocations: all per-run state lives in Config and Inputs.
type Handler interface {
	Execute(ctx context.Context, cfg model.Config, inputs Inputs) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, cfg model.Config, inputs Inputs) (any, error)

func (f HandlerFunc) Execute(ctx context.Context, cfg model.Config, inputs Inputs) (any, error) {
	return f(ctx, cfg, inputs)
}

// Registry dispatches node execution by Kind.
type Registry struct {
	handlers map[model.Kind]Handler
}

// New returns an empty Registry. Handlers are added with Register.
func New() *Registry {
	return &Registry{handlers: make(map[model.Kind]Handler)}
}

// Register installs the Handler for kind, replacing any previous
// registration.
func (r *Registry) Register(kind model.Kind, h Handler) {
	r.handlers[kind] = h
}

// Lookup returns the Handler registered for kind, or an InvalidConfig
// error if none is registered.
func (r *Registry) Lookup(kind model.Kind) (Handler, error) {
	h, ok := r.handlers[kind]
	if !ok {
		return nil, model.NewError(model.ErrInvalidConfig, fmt.Sprintf("no handler registered for kind %q", kind), nil)
	}
	return h, nil
}

// Execute looks up the Handler for kind and runs it. The engine calls
// this once per node per run; it never interprets cfg, inputs, or the
// returned output itself.
func (r *Registry) Execute(ctx context.Context, kind model.Kind, cfg model.Config, inputs Inputs) (any, error) {
	h, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, cfg, inputs)
}

// Kinds returns every kind with a registered handler, in no particular
// order.
func (r *Registry) Kinds() []model.Kind {
	out := make([]model.Kind, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	return out
}
