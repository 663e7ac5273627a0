// Package engine implements the Execution Engine (C6): it schedules a
// validated model.Graph's nodes in topological waves, dispatches each
// node to the Capability Registry (C4), and tracks an ExecutionState
// through to a terminal status.
//
// Grounded on internal/warpp/runner.go's DAG scheduling path almost
// line-for-line in structure: indegree/adjacency construction, a
// deterministic ready queue, a channel-based scheduler/worker-launcher
// pair, semaphore-bound concurrency, per-step timeouts via
// context.WithTimeout, and panic-safe workers. Diverges from the
// teacher in three ways the domain requires: two concurrency limits
// instead of one (a global worker pool plus a named rate gate for
// external-service node kinds, via golang.org/x/sync/semaphore),
// explicit ExecutionState snapshots streamed to the caller instead of a
// prose summary string, and cooperative cancellation that waits for
// every in-flight handler to return before the run transitions to
// Cancelled, rather than the teacher's fail-fast cancel() that abandons
// in-flight work.
package engine

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"chunkscope/internal/model"
	"chunkscope/internal/observability"
	"chunkscope/internal/ports"
	"chunkscope/internal/registry"
	"chunkscope/internal/validate"
)

// defaultTimeouts gives every external-service-backed or otherwise
// slow node kind a sane per-invocation ceiling. Kinds absent from this
// map fall back to Options.DefaultTimeout.
var defaultTimeouts = map[model.Kind]time.Duration{
	model.KindLoader:    5 * time.Second,
	model.KindSplitter:  60 * time.Second,
	model.KindEmbedder:  30 * time.Second,
	model.KindRetriever: 30 * time.Second,
	model.KindReranker:  30 * time.Second,
	model.KindLLM:       30 * time.Second,
	model.KindVectorDB:  30 * time.Second,
	model.KindAugmentor: 30 * time.Second,
}

// rateGateKinds are the node kinds that additionally consume a slot in
// the named rate gate, on top of the global worker pool slot every
// node consumes. These are the kinds that call out to a remote model
// service and are the ones worth throttling independently of raw
// worker concurrency.
var rateGateKinds = map[model.Kind]bool{
	model.KindEmbedder: true,
	model.KindLLM:      true,
	model.KindReranker: true,
}

// Options configures an Engine.
type Options struct {
	// WorkerPoolSize bounds the number of node handlers running
	// concurrently across the whole run. Defaults to 4.
	WorkerPoolSize int
	// RateGateLimit additionally bounds how many of those concurrent
	// handlers may be executing an external-service kind (embedder,
	// llm, reranker) at once. Defaults to 2. Must be <= WorkerPoolSize
	// to have any effect.
	RateGateLimit int
	// Timeouts overrides defaultTimeouts per kind.
	Timeouts map[model.Kind]time.Duration
	// DefaultTimeout applies to any kind absent from Timeouts/defaultTimeouts.
	DefaultTimeout time.Duration
	// Checkpoint persists best-effort run snapshots. Optional.
	Checkpoint ports.CheckpointStore
	// CheckpointEveryNodes writes a snapshot after this many node
	// completions since the last one, whichever of this and
	// CheckpointMinInterval elapses first. Defaults to 5.
	CheckpointEveryNodes int
	// CheckpointMinInterval writes a snapshot after this much wall time
	// has passed since the last one. Defaults to 2s.
	CheckpointMinInterval time.Duration
	// Clock abstracts wall-clock time for tests. Defaults to ports.SystemClock.
	Clock ports.Clock
}

func (o Options) withDefaults() Options {
	if o.WorkerPoolSize <= 0 {
		o.WorkerPoolSize = 4
	}
	if o.RateGateLimit <= 0 {
		o.RateGateLimit = 2
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 30 * time.Second
	}
	if o.CheckpointEveryNodes <= 0 {
		o.CheckpointEveryNodes = 5
	}
	if o.CheckpointMinInterval <= 0 {
		o.CheckpointMinInterval = 2 * time.Second
	}
	if o.Clock == nil {
		o.Clock = ports.SystemClock{}
	}
	return o
}

func (o Options) timeoutFor(kind model.Kind) time.Duration {
	if d, ok := o.Timeouts[kind]; ok {
		return d
	}
	if d, ok := defaultTimeouts[kind]; ok {
		return d
	}
	return o.DefaultTimeout
}

// Engine executes validated graphs against a Registry.
type Engine struct {
	registry *registry.Registry
	opts     Options
}

// New builds an Engine dispatching node work through reg.
func New(reg *registry.Registry, opts Options) *Engine {
	return &Engine{registry: reg, opts: opts.withDefaults()}
}

// Run validates graph, then schedules and executes it, streaming
// ExecutionState snapshots to the returned channel as progress is
// made. The channel is closed after the final, terminal snapshot is
// sent. Run returns an error synchronously only if graph fails
// validation; execution failures are reported through the final
// ExecutionState instead.
func (e *Engine) Run(ctx context.Context, runID model.RunID, graph *model.Graph) (<-chan model.ExecutionState, error) {
	res := validate.Graph(graph)
	if !res.OK() {
		return nil, res.Err()
	}

	events := make(chan model.ExecutionState, 8)
	go e.run(ctx, runID, graph, events)
	return events, nil
}

type run struct {
	e      *Engine
	runID  model.RunID
	graph  *model.Graph
	events chan<- model.ExecutionState

	mu          sync.Mutex
	state       model.ExecutionState
	nodesSinceCP int
	lastCP       time.Time
}

func (r *run) emit() {
	r.mu.Lock()
	snap := r.state.Clone()
	r.mu.Unlock()
	select {
	case r.events <- snap:
	default:
		// Caller isn't keeping up; drop the intermediate snapshot rather
		// than block the scheduler. The final terminal snapshot always
		// gets a blocking send (see run).
	}
}

func (e *Engine) run(ctx context.Context, runID model.RunID, graph *model.Graph, events chan<- model.ExecutionState) {
	defer close(events)
	log := observability.LoggerWithTrace(ctx)

	r := &run{
		e:      e,
		runID:  runID,
		graph:  graph,
		events: events,
		state: model.ExecutionState{
			RunID:     runID,
			Status:    model.StatusRunning,
			Results:   make(map[model.NodeID]any),
			StartedAt: e.opts.Clock.Now(),
		},
	}

	done := make(map[model.NodeID]bool)
	if e.opts.Checkpoint != nil {
		if cp, ok, err := e.opts.Checkpoint.Load(ctx, runID); err == nil && ok {
			for id, item := range cp.Results {
				if _, exists := graph.Nodes[id]; !exists {
					continue
				}
				var decoded any
				if json.Unmarshal(item.Bytes, &decoded) != nil {
					continue
				}
				r.mu.Lock()
				r.state.Results[id] = decoded
				r.mu.Unlock()
				done[id] = true
			}
			log.Info().Str("run_id", string(runID)).Int("restored_nodes", len(done)).Msg("engine_checkpoint_restored")
		}
	}

	finalStatus, finalErr := r.schedule(ctx, done)
	if finalStatus == model.StatusFailed && finalErr != nil {
		log.Error().Err(finalErr).Str("run_id", string(runID)).Msg("engine_run_failed")
	}

	r.mu.Lock()
	r.state.Status = finalStatus
	r.state.Error = finalErr
	r.state.CompletedAt = e.opts.Clock.Now()
	r.state.CurrentNodes = nil
	if len(graph.Nodes) > 0 {
		r.state.Progress = float64(len(r.state.Results)) / float64(len(graph.Nodes))
	}
	final := r.state.Clone()
	r.mu.Unlock()

	events <- final
}

// schedule runs the indegree/ready-queue/worker-pool loop. It returns
// the run's terminal status and, for Failed, the error that caused it.
func (r *run) schedule(ctx context.Context, done map[model.NodeID]bool) (model.Status, *model.Error) {
	graph := r.graph
	indegree := graph.InDegrees()
	adj := graph.Successors()

	for id := range done {
		for _, succ := range adj[id] {
			indegree[succ]--
		}
	}

	var ready []model.NodeID
	for id := range graph.Nodes {
		if !done[id] && indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sortNodeIDs(ready)

	total := len(graph.Nodes)
	completed := len(done)

	type nodeResult struct {
		id     model.NodeID
		output any
		err    *model.Error
	}

	pool := semaphore.NewWeighted(int64(r.e.opts.WorkerPoolSize))
	rateGate := semaphore.NewWeighted(int64(r.e.opts.RateGateLimit))

	resultCh := make(chan nodeResult)
	var wg sync.WaitGroup
	var firstErr *model.Error
	var mu sync.Mutex
	inFlight := make(map[model.NodeID]bool)
	outstanding := 0 // launched handlers whose result has not been received yet

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	launch := func(id model.NodeID) {
		wg.Add(1)
		outstanding++
		mu.Lock()
		inFlight[id] = true
		mu.Unlock()
		r.setCurrentNodes(inFlight)
		go func() {
			defer wg.Done()
			defer func() {
				mu.Lock()
				delete(inFlight, id)
				mu.Unlock()
				r.setCurrentNodes(inFlight)
			}()
			out, nerr := r.e.executeNode(runCtx, r, id)
			resultCh <- nodeResult{id: id, output: out, err: nerr}
		}()
	}

	admit := func() {
		for len(ready) > 0 {
			select {
			case <-runCtx.Done():
				return
			default:
			}
			id := ready[0]
			node := graph.Nodes[id]
			if !pool.TryAcquire(1) {
				return
			}
			if rateGateKinds[node.Kind] && !rateGate.TryAcquire(1) {
				pool.Release(1)
				return
			}
			ready = ready[1:]
			launch(id)
		}
	}

	releaseFor := func(kind model.Kind) {
		pool.Release(1)
		if rateGateKinds[kind] {
			rateGate.Release(1)
		}
	}

	cancelled := false
	for completed < total {
		admit()
		if runCtx.Err() != nil {
			// Cancellation stops admission: ready nodes are never launched.
			ready = nil
		}
		if len(ready) == 0 && outstanding == 0 {
			// Nothing left runnable and nothing in flight: either we're
			// done, or cancellation stopped admission with nodes still
			// pending (upstream failure, if any, already recorded via
			// firstErr).
			break
		}
		select {
		case <-runCtx.Done():
			cancelled = true
			// Stop admitting, but keep draining resultCh until every
			// already-launched handler reports back.
			for outstanding > 0 {
				res := <-resultCh
				outstanding--
				releaseFor(graph.Nodes[res.id].Kind)
				r.recordResult(res.id, res.output, res.err)
				completed++
				mu.Lock()
				delete(inFlight, res.id)
				mu.Unlock()
			}
		case res := <-resultCh:
			outstanding--
			releaseFor(graph.Nodes[res.id].Kind)
			r.recordResult(res.id, res.output, res.err)
			completed++
			if res.err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = res.err
				}
				mu.Unlock()
				cancel()
				continue
			}
			for _, succ := range adj[res.id] {
				indegree[succ]--
				if indegree[succ] == 0 {
					ready = append(ready, succ)
				}
			}
			sortNodeIDs(ready)
		}
	}
	wg.Wait()

	switch {
	case ctx.Err() != nil:
		return model.StatusCancelled, model.NewError(model.ErrCancelled, "run cancelled", ctx.Err())
	case cancelled && firstErr != nil:
		return model.StatusFailed, firstErr
	case firstErr != nil:
		return model.StatusFailed, firstErr
	default:
		return model.StatusCompleted, nil
	}
}

func (r *run) setCurrentNodes(inFlight map[model.NodeID]bool) {
	ids := make([]model.NodeID, 0, len(inFlight))
	for id := range inFlight {
		ids = append(ids, id)
	}
	sortNodeIDs(ids)
	r.mu.Lock()
	r.state.CurrentNodes = ids
	r.mu.Unlock()
	r.emit()
}

func (r *run) recordResult(id model.NodeID, output any, nerr *model.Error) {
	r.mu.Lock()
	if nerr == nil {
		r.state.Results[id] = output
	}
	if len(r.graph.Nodes) > 0 {
		r.state.Progress = float64(len(r.state.Results)) / float64(len(r.graph.Nodes))
	}
	r.mu.Unlock()
	r.emit()
	r.checkpoint(id, output, nerr)
}

// checkpoint writes a snapshot at most every CheckpointEveryNodes node
// completions or CheckpointMinInterval of wall time, whichever comes
// first, plus always on the node that completes the run.
func (r *run) checkpoint(id model.NodeID, output any, nerr *model.Error) {
	if r.e.opts.Checkpoint == nil || nerr != nil {
		return
	}
	r.mu.Lock()
	r.nodesSinceCP++
	now := r.e.opts.Clock.Now()
	due := r.lastCP.IsZero() ||
		r.nodesSinceCP >= r.e.opts.CheckpointEveryNodes ||
		now.Sub(r.lastCP) >= r.e.opts.CheckpointMinInterval ||
		len(r.state.Results) == len(r.graph.Nodes)
	if !due {
		r.mu.Unlock()
		return
	}
	r.nodesSinceCP = 0
	r.lastCP = now
	items := make(map[model.NodeID]model.CheckpointItem, len(r.state.Results))
	for nid, out := range r.state.Results {
		b, err := json.Marshal(out)
		if err != nil {
			continue
		}
		items[nid] = model.CheckpointItem{Kind: r.graph.Nodes[nid].Kind, Bytes: b}
	}
	r.mu.Unlock()

	cp := model.Checkpoint{RunID: r.runID, WrittenAt: now, Results: items}
	// Best-effort: a failed checkpoint write never fails the run.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.e.opts.Checkpoint.Save(ctx, cp); err != nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).Str("run_id", string(cp.RunID)).Msg("engine_checkpoint_save_failed")
		}
	}()
}

// executeNode runs a single node's handler under the kind's configured
// timeout, translating panics into Internal errors so one bad handler
// can never crash the scheduler.
func (e *Engine) executeNode(ctx context.Context, r *run, id model.NodeID) (output any, nerr *model.Error) {
	node := r.graph.Nodes[id]
	defer func() {
		if rec := recover(); rec != nil {
			nerr = model.NewError(model.ErrInternal, "handler panicked", nil)
		}
	}()

	timeout := e.opts.timeoutFor(node.Kind)
	nctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		nctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	inputs := make(registry.Inputs)
	for _, pred := range r.graph.Predecessors()[id] {
		r.mu.Lock()
		out, ok := r.state.Results[pred]
		r.mu.Unlock()
		if ok {
			inputs[pred] = out
		}
	}

	out, err := e.registry.Execute(nctx, node.Kind, node.Config, inputs)
	if err != nil {
		if nctx.Err() == context.DeadlineExceeded {
			return nil, model.NewError(model.ErrTimeout, "handler timed out", err)
		}
		if me, ok := err.(*model.Error); ok {
			return nil, me
		}
		return nil, model.NewError(model.ErrExternal, "handler failed", err)
	}
	return out, nil
}

func sortNodeIDs(ids []model.NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
