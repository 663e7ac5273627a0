// Package validate checks a submitted model.Graph for structural defects
// before the engine schedules it: unknown node kinds, dangling edges,
// cycles, and unreachable nodes. Grounded on the indegree/adjacency
// bookkeeping in internal/warpp's scheduler, run once up front rather
// than interleaved with execution.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"chunkscope/internal/model"
)

const unknownConfigKeyMsg = "unknown config key"

// Issue is a single validation finding. Kind Error-class issues make the
// graph unschedulable; Warning-class issues do not.
type Issue struct {
	Severity string `json:"severity"` // "error" | "warning"
	NodeID   model.NodeID `json:"node_id,omitempty"`
	Message  string `json:"message"`
}

func (i Issue) String() string {
	if i.NodeID != "" {
		return fmt.Sprintf("[%s] %s: %s", i.Severity, i.NodeID, i.Message)
	}
	return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
}

// Result is the outcome of validating a graph.
type Result struct {
	Errors   []Issue
	Warnings []Issue
}

// allowedConfigKeys closes each Kind's Config over the keys its
// registered handler actually reads (internal/handlers/*.go), per the
// "dynamic config -> closed per-handler config, unknown keys fail
// InvalidConfig" re-architecture directive: a typo'd or stale key fails
// at Submit rather than silently being ignored by model.Config's
// map-lookup accessors.
var allowedConfigKeys = map[model.Kind]map[string]bool{
	model.KindLoader: set("text", "path"),
	model.KindSplitter: set("strategy", "chunk_size", "overlap", "window_size",
		"min_chunk_size", "threshold", "document_id"),
	model.KindEmbedder: set("attach"),
	model.KindVectorDB: set(),
	model.KindRetriever: set("kind", "query", "top_k", "alpha", "lambda",
		"fetch_k", "variants", "rrf_k", "inner", "document_filter"),
	model.KindReranker: set("query", "top_k", "kind", "rrf_k"),
	model.KindLLM: set("system_prompt", "prompt", "prompt_template",
		"max_tokens", "temperature", "model", "top_n"),
	model.KindAugmentor: set("query", "operation", "variants"),
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// OK reports whether the graph has no Error-class issues.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Err bundles all Error-class issues into a single *model.Error, or nil
// if the graph is valid. The kind is InvalidConfig when every issue is
// an unknown config key, InvalidGraph otherwise.
func (r Result) Err() *model.Error {
	if len(r.Errors) == 0 {
		return nil
	}
	kind := model.ErrInvalidConfig
	msgs := make([]string, len(r.Errors))
	for i, iss := range r.Errors {
		msgs[i] = iss.String()
		if !strings.HasPrefix(iss.Message, unknownConfigKeyMsg) {
			kind = model.ErrInvalidGraph
		}
	}
	return model.NewError(kind, fmt.Sprintf("%d issue(s): %v", len(msgs), msgs), nil)
}

// Graph validates g structurally. It never mutates g.
func Graph(g *model.Graph) Result {
	var res Result
	if g == nil || len(g.Nodes) == 0 {
		res.Errors = append(res.Errors, Issue{Severity: "error", Message: "graph has no nodes"})
		return res
	}

	for id, n := range g.Nodes {
		if !model.ValidKind(n.Kind) {
			res.Errors = append(res.Errors, Issue{Severity: "error", NodeID: id, Message: fmt.Sprintf("unknown node kind %q", n.Kind)})
			continue
		}
		if allowed, ok := allowedConfigKeys[n.Kind]; ok {
			for key := range n.Config {
				if !allowed[key] {
					res.Errors = append(res.Errors, Issue{Severity: "error", NodeID: id, Message: fmt.Sprintf(unknownConfigKeyMsg+" %q for kind %q", key, n.Kind)})
				}
			}
		}
	}

	adj := make(map[model.NodeID][]model.NodeID, len(g.Nodes))
	indegree := make(map[model.NodeID]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = 0
	}
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.Source]; !ok {
			res.Errors = append(res.Errors, Issue{Severity: "error", NodeID: e.Target, Message: fmt.Sprintf("depends on unknown node %q", e.Source)})
			continue
		}
		if _, ok := g.Nodes[e.Target]; !ok {
			res.Errors = append(res.Errors, Issue{Severity: "error", NodeID: e.Source, Message: fmt.Sprintf("unknown dependent %q", e.Target)})
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		indegree[e.Target]++
	}

	if cyc := findCycle(g, adj); len(cyc) > 0 {
		res.Errors = append(res.Errors, Issue{Severity: "error", Message: fmt.Sprintf("cycle detected: %v", cyc)})
	}

	for id := range g.Nodes {
		if indegree[id] == 0 && len(adj[id]) == 0 && len(g.Nodes) > 1 {
			res.Warnings = append(res.Warnings, Issue{Severity: "warning", NodeID: id, Message: "isolated node: no edges in or out"})
		}
	}

	return res
}

// findCycle runs an iterative three-color DFS and returns one offending
// cycle (node IDs in order) if the graph is not a DAG, or nil otherwise.
// Node IDs are visited in sorted order so the result is deterministic.
func findCycle(g *model.Graph, adj map[model.NodeID][]model.NodeID) []model.NodeID {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[model.NodeID]int, len(g.Nodes))
	ids := make([]model.NodeID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
		color[id] = white
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, nbrs := range adj {
		sort.Slice(nbrs, func(i, j int) bool { return nbrs[i] < nbrs[j] })
	}

	type frame struct {
		id   model.NodeID
		next int
	}

	for _, start := range ids {
		if color[start] != white {
			continue
		}
		stack := []frame{{id: start}}
		color[start] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(adj[top.id]) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			next := adj[top.id][top.next]
			top.next++
			switch color[next] {
			case white:
				color[next] = gray
				stack = append(stack, frame{id: next})
			case gray:
				cyc := make([]model.NodeID, 0, len(stack))
				for _, f := range stack {
					cyc = append(cyc, f.id)
				}
				cyc = append(cyc, next)
				return cyc
			}
		}
	}
	return nil
}
