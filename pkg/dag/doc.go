// Package dag provides the small directed graph used throughout packforge.
//
// # Overview
//
// Two very different inputs share this structure:
//
//   - The runtime identifier (RID) compatibility graph, where an edge
//     "win-x64 → win" means "assets built for win run on win-x64". Edge order
//     matters: a RID's imports are listed from most to least preferred.
//   - The flattened package dependency graph produced by the assets
//     extractor, exported as JSON or DOT for inspection.
//
// Both need deterministic iteration, so unlike a plain map-backed graph,
// [DAG.Nodes], [DAG.Edges], [DAG.Children] and [DAG.Parents] all preserve
// insertion order.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "win-x64"})
//	g.AddNode(dag.Node{ID: "win"})
//	g.AddEdge(dag.Edge{From: "win-x64", To: "win"})
//
// [DAG.BreadthFirst] walks reachable nodes in preference order, and
// [DAG.Validate] / [DAG.TopologicalOrder] detect cycles.
//
// # Metadata
//
// Nodes, edges and the graph itself carry [Metadata] maps. They are never nil
// after passing through AddNode/AddEdge/New.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. Read-only access from
// multiple goroutines is safe once construction is finished.
package dag
