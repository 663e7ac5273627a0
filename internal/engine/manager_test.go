package engine

import (
	"context"
	"testing"
	"time"

	"chunkscope/internal/model"
	"chunkscope/internal/registry"
)

func idSeq(prefix string) func() model.RunID {
	n := 0
	return func() model.RunID {
		n++
		return model.RunID(prefix + string(rune('0'+n)))
	}
}

func TestManager_SubmitStatusEvents(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	reg.Register(model.KindLoader, echoHandler("loaded"))
	reg.Register(model.KindSplitter, echoHandler("split"))

	eng := New(reg, Options{WorkerPoolSize: 2, RateGateLimit: 1})
	mgr := NewManager(eng, nil)

	runID, err := mgr.Submit(idSeq("run"), twoNodeGraph())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	events, err := mgr.Events(runID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}

	var final model.ExecutionState
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-events:
			if !ok {
				goto done
			}
			final = s
		case <-timeout:
			t.Fatal("timed out waiting for events to close")
		}
	}
done:
	if final.Status != model.StatusCompleted {
		t.Fatalf("expected Completed, got %v", final.Status)
	}

	status, err := mgr.Status(runID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != model.StatusCompleted {
		t.Fatalf("expected Status to also report Completed, got %v", status.Status)
	}
}

func TestManager_SubmitInvalidGraph(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	eng := New(reg, Options{})
	mgr := NewManager(eng, nil)

	_, err := mgr.Submit(idSeq("run"), model.NewGraph())
	if err == nil {
		t.Fatal("expected an error for an empty graph")
	}
}

func TestManager_UnknownRunID(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	eng := New(reg, Options{})
	mgr := NewManager(eng, nil)

	if _, err := mgr.Status("nope"); err == nil {
		t.Fatal("expected Status on unknown run to error")
	}
	if _, err := mgr.Events("nope"); err == nil {
		t.Fatal("expected Events on unknown run to error")
	}
	if err := mgr.Cancel("nope"); err == nil {
		t.Fatal("expected Cancel on unknown run to error")
	}
}

func TestManager_Cancel(t *testing.T) {
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
	mgr := NewManager(eng, nil)

	runID, err := mgr.Submit(idSeq("run"), twoNodeGraph())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	events, err := mgr.Events(runID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}

	<-started
	if err := mgr.Cancel(runID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	close(release)

	var final model.ExecutionState
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-events:
			if !ok {
				goto done
			}
			final = s
		case <-timeout:
			t.Fatal("timed out waiting for cancelled run to finish")
		}
	}
done:
	if final.Status != model.StatusCancelled {
		t.Fatalf("expected Cancelled, got %v", final.Status)
	}
}
