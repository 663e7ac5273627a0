package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"chunkscope/internal/model"
)

// Manager tracks multiple concurrent runs against one Engine, giving
// each a stable RunID and exposing the four operations the core's
// external surface promises: Submit, Status, Events, and Cancel. Engine
// itself only knows how to run a single graph to completion and stream
// its own events; Manager is the thin bookkeeping layer callers (the
// CLI, an HTTP front end, a test) use to address a run after Submit
// returns.
type Manager struct {
	engine    *Engine
	publisher *KafkaEventPublisher

	mu   sync.Mutex
	runs map[model.RunID]*trackedRun
}

type trackedRun struct {
	mu     sync.Mutex
	latest model.ExecutionState
	cancel context.CancelFunc
	subs   []chan model.ExecutionState
	done   bool
}

// NewManager wraps eng with multi-run bookkeeping. publisher may be nil
// (see NewKafkaEventPublisher), in which case events are only ever
// delivered through Manager.Events.
func NewManager(eng *Engine, publisher *KafkaEventPublisher) *Manager {
	return &Manager{engine: eng, publisher: publisher, runs: make(map[model.RunID]*trackedRun)}
}

// Submit validates and starts graph under a freshly generated RunID, on
// a background context of its own: the run keeps executing after Submit
// returns and is only interrupted by an explicit Cancel(runID). It fails
// synchronously with InvalidGraph, or InvalidConfig when the only issues
// are unknown config keys (via Engine.Run's own validation), before any
// node executes.
func (m *Manager) Submit(newID func() model.RunID, graph *model.Graph) (model.RunID, error) {
	runID := newID()

	runCtx, cancel := context.WithCancel(context.Background())
	events, err := m.engine.Run(runCtx, runID, graph)
	if err != nil {
		cancel()
		return "", err
	}

	tr := &trackedRun{
		cancel: cancel,
		latest: model.ExecutionState{RunID: runID, Status: model.StatusPending},
	}
	m.mu.Lock()
	m.runs[runID] = tr
	m.mu.Unlock()

	go m.pump(tr, events)
	return runID, nil
}

// pump fans every ExecutionState off the engine's channel into the
// tracked run's latest-snapshot cache and out to any live Events
// subscribers, closing subscriber channels once the terminal snapshot
// has been delivered.
func (m *Manager) pump(tr *trackedRun, events <-chan model.ExecutionState) {
	for state := range events {
		tr.mu.Lock()
		tr.latest = state
		subs := append([]chan model.ExecutionState(nil), tr.subs...)
		tr.mu.Unlock()
		for _, ch := range subs {
			select {
			case ch <- state:
			default:
			}
		}
		if m.publisher != nil {
			if err := m.publisher.Publish(context.Background(), state); err != nil {
				log.Warn().Err(err).Str("run_id", string(state.RunID)).Msg("kafka_event_publish_failed")
			}
		}
	}
	tr.mu.Lock()
	tr.done = true
	subs := tr.subs
	tr.subs = nil
	tr.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
}

// Status returns the most recently observed ExecutionState snapshot for
// runID.
func (m *Manager) Status(runID model.RunID) (model.ExecutionState, error) {
	tr, ok := m.lookup(runID)
	if !ok {
		return model.ExecutionState{}, fmt.Errorf("engine: unknown run %q", runID)
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.latest, nil
}

// Events returns a best-effort, coalescable stream of ExecutionState
// snapshots for runID. The channel closes once the run reaches a
// terminal status; a slow receiver misses intermediate snapshots rather
// than stalling the run, consistent with Engine.Run's own emit policy.
func (m *Manager) Events(runID model.RunID) (<-chan model.ExecutionState, error) {
	tr, ok := m.lookup(runID)
	if !ok {
		return nil, fmt.Errorf("engine: unknown run %q", runID)
	}
	ch := make(chan model.ExecutionState, 8)
	tr.mu.Lock()
	if tr.done {
		tr.mu.Unlock()
		close(ch)
		return ch, nil
	}
	tr.subs = append(tr.subs, ch)
	tr.mu.Unlock()
	return ch, nil
}

// Cancel signals runID's run to stop admitting new nodes. Per the
// engine's cooperative cancellation contract, Status only reaches
// Cancelled once every already-dispatched handler has returned.
func (m *Manager) Cancel(runID model.RunID) error {
	tr, ok := m.lookup(runID)
	if !ok {
		return fmt.Errorf("engine: unknown run %q", runID)
	}
	tr.cancel()
	return nil
}

func (m *Manager) lookup(runID model.RunID) (*trackedRun, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.runs[runID]
	return tr, ok
}
