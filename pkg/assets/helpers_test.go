package assets

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/packforge/pkg/dag"
)

var quiet = log.New(discard{})

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func dagSources(d *dag.DAG) []string { return dag.NodeIDs(d.Sources()) }
