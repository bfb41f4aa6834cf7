package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/packforge/pkg/dag"
)

func sampleGraph(t *testing.T) *dag.DAG {
	t.Helper()
	g := dag.New(nil)
	nodes := []dag.Node{
		{ID: "net8.0", Meta: dag.Metadata{"kind": "target"}},
		{ID: "Shared/1.0.0", Meta: dag.Metadata{"kind": "package", "type": "project", "version": "1.0.0"}},
		{ID: "Newtonsoft.Json/13.0.3", Meta: dag.Metadata{"kind": "package", "type": "package", "version": "13.0.3"}},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	g.AddEdge(dag.Edge{From: "net8.0", To: "Shared/1.0.0"})
	g.AddEdge(dag.Edge{From: "Shared/1.0.0", To: "Newtonsoft.Json/13.0.3"})
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{})
	for _, want := range []string{
		`"net8.0" [label="net8.0", fillcolor="#dbeafe", penwidth=2];`,
		`"Shared/1.0.0" [label="Shared/1.0.0", style="rounded,filled,dashed", fillcolor=lightgrey];`,
		`"Shared/1.0.0" -> "Newtonsoft.Json/13.0.3";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{Detailed: true})
	if !strings.Contains(dot, `version: 13.0.3`) {
		t.Errorf("detailed label missing metadata:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `width="100" height="50"`) {
		t.Errorf("header not normalized: %s", out)
	}
	if got := string(normalizeViewBox([]byte("<svg><g/></svg>"))); got != "<svg><g/></svg>" {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}
