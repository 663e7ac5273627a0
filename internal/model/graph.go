// Package model defines the pipeline data model: nodes, edges, graphs,
// chunks, retrieval results, execution state, and the error taxonomy
// shared by every other package in this module.
package model

// NodeID identifies a node uniquely within a Graph.
type NodeID string

// Kind is the closed set of node kinds the registry can dispatch on.
type Kind string

const (
	KindLoader    Kind = "loader"
	KindSplitter  Kind = "splitter"
	KindEmbedder  Kind = "embedder"
	KindVectorDB  Kind = "vector_db"
	KindRetriever Kind = "retriever"
	KindReranker  Kind = "reranker"
	KindLLM       Kind = "llm"
	KindAugmentor Kind = "augmentor"
)

// ValidKind reports whether k is one of the closed set of node kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindLoader, KindSplitter, KindEmbedder, KindVectorDB, KindRetriever, KindReranker, KindLLM, KindAugmentor:
		return true
	}
	return false
}

// Config is an opaque key/value map interpreted by the handler for a Kind.
type Config map[string]any

// String returns a string config value, or "" if absent or not a string.
func (c Config) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// Int returns an int config value, accepting float64 (JSON-decoded numbers).
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Float returns a float64 config value, or def if absent.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Bool returns a bool config value, or def if absent.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// Node is a single pipeline stage. Immutable after a Graph is submitted.
type Node struct {
	ID     NodeID `json:"id"`
	Kind   Kind   `json:"kind"`
	Config Config `json:"config,omitempty"`
}

// Edge is a directed dependency: Target depends on Source's output.
type Edge struct {
	Source NodeID `json:"source"`
	Target NodeID `json:"target"`
}

// Graph is the submitted pipeline: a node set plus an ordered edge list.
// Edge order is preserved only for deterministic iteration; it carries no
// semantic meaning beyond that.
type Graph struct {
	Nodes map[NodeID]Node `json:"nodes"`
	Edges []Edge          `json:"edges"`
}

// NewGraph returns an empty, ready-to-populate Graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[NodeID]Node)}
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(n Node) {
	if g.Nodes == nil {
		g.Nodes = make(map[NodeID]Node)
	}
	g.Nodes[n.ID] = n
}

// AddEdge appends an edge. Does not validate; see internal/validate.
func (g *Graph) AddEdge(source, target NodeID) {
	g.Edges = append(g.Edges, Edge{Source: source, Target: target})
}

// Successors returns, for every node, the list of nodes that depend on it,
// in edge-insertion order.
func (g *Graph) Successors() map[NodeID][]NodeID {
	out := make(map[NodeID][]NodeID, len(g.Nodes))
	for _, e := range g.Edges {
		out[e.Source] = append(out[e.Source], e.Target)
	}
	return out
}

// Predecessors returns, for every node, the list of nodes it depends on,
// in edge-insertion order.
func (g *Graph) Predecessors() map[NodeID][]NodeID {
	out := make(map[NodeID][]NodeID, len(g.Nodes))
	for _, e := range g.Edges {
		out[e.Target] = append(out[e.Target], e.Source)
	}
	return out
}

// InDegrees returns the in-degree (count of incoming edges) of every node,
// including nodes with an in-degree of zero.
func (g *Graph) InDegrees() map[NodeID]int {
	out := make(map[NodeID]int, len(g.Nodes))
	for id := range g.Nodes {
		out[id] = 0
	}
	for _, e := range g.Edges {
		out[e.Target]++
	}
	return out
}
