package engine

import (
	"context"
	"testing"
	"time"

	"chunkscope/internal/model"
	"chunkscope/internal/registry"
)

func echoHandler(out any) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, cfg model.Config, inputs registry.Inputs) (any, error) {
		return out, nil
	})
}

func failHandler(kind model.ErrorKind, msg string) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, cfg model.Config, inputs registry.Inputs) (any, error) {
		return nil, model.NewError(kind, msg, nil)
	})
}

func drain(t *testing.T, events <-chan model.ExecutionState) model.ExecutionState {
	t.Helper()
	var last model.ExecutionState
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-events:
			if !ok {
				return last
			}
			last = s
		case <-timeout:
			t.Fatal("timed out waiting for run to finish")
		}
	}
}

func twoNodeGraph() *model.Graph {
	g := model.NewGraph()
	g.AddNode(model.Node{ID: "a", Kind: model.KindLoader})
	g.AddNode(model.Node{ID: "b", Kind: model.KindSplitter})
	g.AddEdge("a", "b")
	return g
}

func TestEngine_Run_Completes(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	reg.Register(model.KindLoader, echoHandler("loaded"))
	reg.Register(model.KindSplitter, echoHandler("split"))

	eng := New(reg, Options{WorkerPoolSize: 2, RateGateLimit: 1})
	events, err := eng.Run(context.Background(), "run1", twoNodeGraph())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	final := drain(t, events)
	if final.Status != model.StatusCompleted {
		t.Fatalf("expected Completed, got %v (err=%v)", final.Status, final.Error)
	}
	if final.Progress != 1 {
		t.Fatalf("expected full progress, got %v", final.Progress)
	}
	if final.Results["a"] != "loaded" || final.Results["b"] != "split" {
		t.Fatalf("unexpected results: %+v", final.Results)
	}
}

func TestEngine_Run_InvalidGraphFailsSynchronously(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	eng := New(reg, Options{})

	_, err := eng.Run(context.Background(), "run1", model.NewGraph())
	var merr *model.Error
	if err == nil {
		t.Fatal("expected an error for an empty graph")
	}
	if me, ok := err.(*model.Error); ok {
		merr = me
	}
	if merr == nil || merr.Kind != model.ErrInvalidGraph {
		t.Fatalf("expected InvalidGraph, got %v", err)
	}
}

func TestEngine_Run_PropagatesHandlerFailure(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	reg.Register(model.KindLoader, failHandler(model.ErrExternal, "loader boom"))
	reg.Register(model.KindSplitter, echoHandler("unreachable"))

	eng := New(reg, Options{WorkerPoolSize: 2, RateGateLimit: 1})
	events, err := eng.Run(context.Background(), "run1", twoNodeGraph())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	final := drain(t, events)
	if final.Status != model.StatusFailed {
		t.Fatalf("expected Failed, got %v", final.Status)
	}
	if final.Error == nil || final.Error.Kind != model.ErrExternal {
		t.Fatalf("expected the loader's External error to propagate, got %v", final.Error)
	}
	if _, ok := final.Results["b"]; ok {
		t.Fatalf("expected splitter to never run after its dependency failed")
	}
}

func TestEngine_Run_CancelWaitsForInFlight(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	reg := registry.New()
	reg.Register(model.KindLoader, registry.HandlerFunc(func(ctx context.Context, cfg model.Config, inputs registry.Inputs) (any, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "loaded", nil
	}))
	reg.Register(model.KindSplitter, echoHandler("split"))

	eng := New(reg, Options{WorkerPoolSize: 2, RateGateLimit: 1})
	ctx, cancel := context.WithCancel(context.Background())
	events, err := eng.Run(ctx, "run1", twoNodeGraph())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	<-started
	cancel()
	close(release)

	final := drain(t, events)
	if final.Status != model.StatusCancelled {
		t.Fatalf("expected Cancelled, got %v", final.Status)
	}
}
