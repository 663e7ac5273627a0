package validate

import (
	"testing"

	"chunkscope/internal/model"
)

func TestGraph_Valid(t *testing.T) {
	t.Parallel()
	g := model.NewGraph()
	g.AddNode(model.Node{ID: "load", Kind: model.KindLoader})
	g.AddNode(model.Node{ID: "split", Kind: model.KindSplitter})
	g.AddEdge("load", "split")

	res := Graph(g)
	if !res.OK() {
		t.Fatalf("expected valid graph, got errors: %v", res.Errors)
	}
	if res.Err() != nil {
		t.Fatalf("expected nil Err(), got %v", res.Err())
	}
}

func TestGraph_EmptyGraph(t *testing.T) {
	t.Parallel()
	res := Graph(model.NewGraph())
	if res.OK() {
		t.Fatalf("expected empty graph to be invalid")
	}
}

func TestGraph_UnknownKind(t *testing.T) {
	t.Parallel()
	g := model.NewGraph()
	g.AddNode(model.Node{ID: "mystery", Kind: model.Kind("not_a_kind")})

	res := Graph(g)
	if res.OK() {
		t.Fatalf("expected unknown kind to be an error")
	}
}

func TestGraph_DanglingEdge(t *testing.T) {
	t.Parallel()
	g := model.NewGraph()
	g.AddNode(model.Node{ID: "a", Kind: model.KindLoader})
	g.AddEdge("a", "ghost")

	res := Graph(g)
	if res.OK() {
		t.Fatalf("expected dangling edge to be an error")
	}
}

func TestGraph_Cycle(t *testing.T) {
	t.Parallel()
	g := model.NewGraph()
	g.AddNode(model.Node{ID: "a", Kind: model.KindLoader})
	g.AddNode(model.Node{ID: "b", Kind: model.KindSplitter})
	g.AddNode(model.Node{ID: "c", Kind: model.KindEmbedder})
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")

	res := Graph(g)
	if res.OK() {
		t.Fatalf("expected cycle to be detected")
	}
	found := false
	for _, iss := range res.Errors {
		if iss.Severity == "error" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected at least one error issue")
	}
}

func TestGraph_SelfLoop(t *testing.T) {
	t.Parallel()
	g := model.NewGraph()
	g.AddNode(model.Node{ID: "a", Kind: model.KindLoader})
	g.AddEdge("a", "a")

	res := Graph(g)
	if res.OK() {
		t.Fatalf("expected self-loop to be a cycle")
	}
}

func TestGraph_UnknownConfigKey(t *testing.T) {
	t.Parallel()
	g := model.NewGraph()
	g.AddNode(model.Node{ID: "load", Kind: model.KindLoader, Config: model.Config{"text": "hi", "bogus_key": true}})

	res := Graph(g)
	if res.OK() {
		t.Fatalf("expected unknown config key to be an error")
	}
}

func TestGraph_KnownConfigKeysAccepted(t *testing.T) {
	t.Parallel()
	g := model.NewGraph()
	g.AddNode(model.Node{ID: "load", Kind: model.KindLoader, Config: model.Config{"text": "hi"}})
	g.AddNode(model.Node{ID: "split", Kind: model.KindSplitter, Config: model.Config{"strategy": "fixed", "chunk_size": 10}})
	g.AddEdge("load", "split")

	res := Graph(g)
	if !res.OK() {
		t.Fatalf("expected valid graph, got errors: %v", res.Errors)
	}
}

func TestGraph_IsolatedNodeWarns(t *testing.T) {
	t.Parallel()
	g := model.NewGraph()
	g.AddNode(model.Node{ID: "a", Kind: model.KindLoader})
	g.AddNode(model.Node{ID: "b", Kind: model.KindSplitter})
	g.AddNode(model.Node{ID: "isolated", Kind: model.KindEmbedder})
	g.AddEdge("a", "b")

	res := Graph(g)
	if !res.OK() {
		t.Fatalf("expected graph still valid, got errors: %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d: %v", len(res.Warnings), res.Warnings)
	}
	if res.Warnings[0].NodeID != "isolated" {
		t.Fatalf("expected warning on isolated node, got %v", res.Warnings[0])
	}
}
