package dag_test

import (
	"fmt"

	"github.com/matzehuels/packforge/pkg/dag"
)

func ExampleDAG_basic() {
	// RID fallback chain: win-x64 → win → any
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "win-x64"})
	_ = g.AddNode(dag.Node{ID: "win"})
	_ = g.AddNode(dag.Node{ID: "any"})
	_ = g.AddEdge(dag.Edge{From: "win-x64", To: "win"})
	_ = g.AddEdge(dag.Edge{From: "win", To: "any"})

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Println("Walk:", g.BreadthFirst("win-x64"))
	// Output:
	// Nodes: 3
	// Edges: 2
	// Walk: [win-x64 win any]
}

func ExampleDAG_traversal() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "app"})
	_ = g.AddNode(dag.Node{ID: "auth"})
	_ = g.AddNode(dag.Node{ID: "cache"})
	_ = g.AddEdge(dag.Edge{From: "app", To: "auth"})
	_ = g.AddEdge(dag.Edge{From: "app", To: "cache"})

	fmt.Println("Children of app:", g.Children("app"))
	fmt.Println("Parents of auth:", g.Parents("auth"))
	fmt.Println("Out-degree of app:", g.OutDegree("app"))
	// Output:
	// Children of app: [auth cache]
	// Parents of auth: [app]
	// Out-degree of app: 2
}

func ExampleDAG_TopologicalOrder() {
	g := dag.New(nil)
	for _, id := range []string{"core", "app", "lib"} {
		_ = g.AddNode(dag.Node{ID: id})
	}
	_ = g.AddEdge(dag.Edge{From: "app", To: "lib"})
	_ = g.AddEdge(dag.Edge{From: "lib", To: "core"})

	order, _ := g.TopologicalOrder()
	fmt.Println(order)
	// Output:
	// [app lib core]
}
