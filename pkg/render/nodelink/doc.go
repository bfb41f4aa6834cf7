// Package nodelink draws package graphs as node-link diagrams.
//
// [ToDOT] turns a graph from [github.com/matzehuels/packforge/pkg/assets.Graph.ToDAG]
// into Graphviz DOT, and [RenderSVG] renders it in-process with
// [github.com/goccy/go-graphviz]:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
package nodelink
