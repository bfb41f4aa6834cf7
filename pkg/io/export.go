package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/packforge/pkg/dag"
)

type graph struct {
	Meta  dag.Metadata `json:"meta,omitempty"`
	Nodes []node       `json:"nodes"`
	Edges []edge       `json:"edges"`
}

type node struct {
	ID   string       `json:"id"`
	Meta dag.Metadata `json:"meta,omitempty"`
}

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WriteJSON encodes g as indented JSON.
func WriteJSON(g *dag.DAG, w io.Writer) error {
	out := graph{
		Meta:  g.Meta(),
		Nodes: make([]node, 0, g.NodeCount()),
		Edges: make([]edge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		out.Nodes = append(out.Nodes, node{ID: n.ID, Meta: n.Meta})
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, edge{From: e.From, To: e.To})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a file.
func ExportJSON(g *dag.DAG, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
