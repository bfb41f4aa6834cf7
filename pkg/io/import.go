package io

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/packforge/pkg/dag"
	"github.com/matzehuels/packforge/pkg/errors"
)

// Node kinds written by the package graph export.
const (
	KindTarget  = "target"
	KindPackage = "package"
)

// ReadJSON decodes a package graph written by [WriteJSON]. All failures are
// INVALID_INPUT: malformed JSON, a node kind other than [KindTarget] or
// [KindPackage], a graph "target" that names no target node, duplicate node
// ids, and edges to unknown nodes. Cycles are not checked.
func ReadJSON(r io.Reader) (*dag.DAG, error) {
	var data graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode package graph")
	}

	g := dag.New(data.Meta)
	for _, n := range data.Nodes {
		switch kind := n.Meta["kind"]; kind {
		case nil, KindTarget, KindPackage:
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "node %s: unknown kind %v", n.ID, kind)
		}
		if err := g.AddNode(dag.Node{ID: n.ID, Meta: n.Meta}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "node %s", n.ID)
		}
	}
	if target, ok := data.Meta["target"].(string); ok {
		if n, found := g.Node(target); !found || n.Meta["kind"] != KindTarget {
			return nil, errors.New(errors.ErrCodeInvalidInput, "graph target %q is not a target node", target)
		}
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(dag.Edge{From: e.From, To: e.To}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "edge %s->%s", e.From, e.To)
		}
	}
	return g, nil
}

// ImportJSON reads a package graph file.
func ImportJSON(path string) (*dag.DAG, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}
