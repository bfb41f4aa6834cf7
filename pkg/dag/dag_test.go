package dag

import (
	"errors"
	"slices"
	"testing"
)

func build(t *testing.T, nodes []string, edges [][2]string) *DAG {
	t.Helper()
	g := New(nil)
	for _, id := range nodes {
		if err := g.AddNode(Node{ID: id}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(Edge{From: e[0], To: e[1]}); err != nil {
			t.Fatalf("AddEdge(%s→%s): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestAddNodeErrors(t *testing.T) {
	g := New(nil)
	if err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("AddNode(empty) = %v, want ErrInvalidNodeID", err)
	}
	_ = g.AddNode(Node{ID: "a"})
	if err := g.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("AddNode(dup) = %v, want ErrDuplicateNodeID", err)
	}
	n, _ := g.Node("a")
	if n.Meta == nil {
		t.Error("Meta should be initialized")
	}
}

func TestAddEdgeErrors(t *testing.T) {
	g := build(t, []string{"a"}, nil)
	if err := g.AddEdge(Edge{From: "x", To: "a"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("AddEdge(unknown from) = %v", err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "x"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("AddEdge(unknown to) = %v", err)
	}
}

func TestEnsureNode(t *testing.T) {
	g := New(nil)
	first, err := g.EnsureNode("a")
	if err != nil {
		t.Fatal(err)
	}
	first.Meta["k"] = "v"
	again, _ := g.EnsureNode("a")
	if again.Meta["k"] != "v" || g.NodeCount() != 1 {
		t.Error("EnsureNode should return the existing node")
	}
	if _, err := g.EnsureNode(""); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("EnsureNode(empty) = %v", err)
	}
}

func TestInsertionOrder(t *testing.T) {
	g := build(t, []string{"z", "a", "m"}, [][2]string{{"z", "m"}, {"z", "a"}})
	if got := NodeIDs(g.Nodes()); !slices.Equal(got, []string{"z", "a", "m"}) {
		t.Errorf("Nodes() = %v", got)
	}
	if got := g.Children("z"); !slices.Equal(got, []string{"m", "a"}) {
		t.Errorf("Children(z) = %v", got)
	}
	if got := NodeIDs(g.Sources()); !slices.Equal(got, []string{"z"}) {
		t.Errorf("Sources() = %v", got)
	}
	if got := NodeIDs(g.Sinks()); !slices.Equal(got, []string{"a", "m"}) {
		t.Errorf("Sinks() = %v", got)
	}
}

func TestRemoveEdge(t *testing.T) {
	g := build(t, []string{"a", "b"}, [][2]string{{"a", "b"}, {"a", "b"}})
	g.RemoveEdge("a", "b")
	if g.EdgeCount() != 1 || g.OutDegree("a") != 1 || g.InDegree("b") != 1 {
		t.Errorf("RemoveEdge should remove exactly one edge, got %d edges", g.EdgeCount())
	}
	g.RemoveEdge("b", "a")
	if g.EdgeCount() != 1 {
		t.Error("removing a missing edge should be a no-op")
	}
}

func TestBreadthFirst(t *testing.T) {
	// win10-x64 imports win81-x64 and win10; both import win; diamond.
	g := build(t,
		[]string{"win10-x64", "win81-x64", "win10", "win", "any"},
		[][2]string{
			{"win10-x64", "win81-x64"},
			{"win10-x64", "win10"},
			{"win81-x64", "win"},
			{"win10", "win"},
			{"win", "any"},
		})
	want := []string{"win10-x64", "win81-x64", "win10", "win", "any"}
	if got := g.BreadthFirst("win10-x64"); !slices.Equal(got, want) {
		t.Errorf("BreadthFirst() = %v, want %v", got, want)
	}
	if got := g.BreadthFirst("missing"); got != nil {
		t.Errorf("BreadthFirst(missing) = %v, want nil", got)
	}
}

func TestValidateCycle(t *testing.T) {
	g := build(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	_ = g.AddEdge(Edge{From: "c", To: "a"})
	if err := g.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("Validate() = %v, want ErrGraphHasCycle", err)
	}
	if _, err := g.TopologicalOrder(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("TopologicalOrder() = %v, want ErrGraphHasCycle", err)
	}
}

func TestTopologicalOrder(t *testing.T) {
	g := build(t, []string{"c", "b", "a"}, [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}})
	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatal(err)
	}
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range g.Edges() {
		if pos[e.From] >= pos[e.To] {
			t.Errorf("edge %s→%s violates order %v", e.From, e.To, order)
		}
	}
}
