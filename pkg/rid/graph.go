// Package rid models the runtime identifier (RID) compatibility graph and
// answers "best matching RID" queries against it.
//
// Each RID lists the more general RIDs it can fall back to, most preferred
// first ("win-x64" imports "win", which imports "any"). A lookup walks that
// chain breadth-first and picks the first RID a pack actually supports.
//
// Lookups distinguish two failures that produce different diagnostics:
// a RID the graph has never heard of ([UnknownRID]) and a RID the graph knows
// but from which no supported RID is reachable ([Unreachable]).
package rid

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/packforge/pkg/dag"
	"github.com/matzehuels/packforge/pkg/errors"
)

// Any is the root of every RID graph.
const Any = "any"

// defaultMatchCacheSize bounds the memoized BestMatch results per graph.
const defaultMatchCacheSize = 4096

// Outcome classifies a BestMatch result.
type Outcome int

const (
	// Resolved means Match.RID holds the most specific supported RID.
	Resolved Outcome = iota
	// UnknownRID means the requested RID is not in the graph at all.
	UnknownRID
	// Unreachable means the RID is known but no supported, non-excluded RID
	// is compatible with it.
	Unreachable
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case UnknownRID:
		return "unknown"
	case Unreachable:
		return "unreachable"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Match is the result of a BestMatch lookup.
type Match struct {
	RID     string
	Outcome Outcome
}

// OK reports whether the lookup resolved to a RID.
func (m Match) OK() bool { return m.Outcome == Resolved }

// Graph is an immutable RID compatibility graph. It is safe for concurrent
// use once constructed.
type Graph struct {
	g       *dag.DAG
	matches *lru.Cache[string, Match]
	chains  *lru.Cache[string, []string]
}

// Runtime declares one RID and its ordered imports.
type Runtime struct {
	RID     string
	Imports []string
}

// New builds a graph from runtime declarations. Imports that are not
// declared themselves are added as leaf RIDs. Cycles are rejected.
func New(runtimes []Runtime) (*Graph, error) {
	g := dag.New(nil)
	for _, rt := range runtimes {
		if _, err := g.EnsureNode(rt.RID); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "declare runtime %q", rt.RID)
		}
	}
	for _, rt := range runtimes {
		for _, imp := range rt.Imports {
			if _, err := g.EnsureNode(imp); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "runtime %q import %q", rt.RID, imp)
			}
			if err := g.AddEdge(dag.Edge{From: rt.RID, To: imp}); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "runtime %q import %q", rt.RID, imp)
			}
		}
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "runtime graph")
	}
	matches, err := lru.New[string, Match](defaultMatchCacheSize)
	if err != nil {
		return nil, err
	}
	chains, err := lru.New[string, []string](defaultMatchCacheSize)
	if err != nil {
		return nil, err
	}
	return &Graph{g: g, matches: matches, chains: chains}, nil
}

// runtimeFile is the runtime.json shape: {"runtimes": {"rid": {"#import": [...]}}}.
type runtimeFile struct {
	Runtimes map[string]struct {
		Imports []string `json:"#import"`
	} `json:"runtimes"`
}

// Load reads a runtime.json document. Runtimes are declared in sorted order
// so the graph does not depend on JSON object ordering; import order is kept.
func Load(r io.Reader) (*Graph, error) {
	var f runtimeFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode runtime graph")
	}
	rids := make([]string, 0, len(f.Runtimes))
	for rid := range f.Runtimes {
		rids = append(rids, rid)
	}
	slices.Sort(rids)
	runtimes := make([]Runtime, len(rids))
	for i, rid := range rids {
		runtimes[i] = Runtime{RID: rid, Imports: f.Runtimes[rid].Imports}
	}
	return New(runtimes)
}

// LoadFile reads a runtime.json file from disk.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open runtime graph")
	}
	defer f.Close()
	return Load(f)
}

// Contains reports whether rid is in the graph.
func (g *Graph) Contains(rid string) bool {
	_, ok := g.g.Node(rid)
	return ok
}

// Len returns the number of RIDs in the graph.
func (g *Graph) Len() int { return g.g.NodeCount() }

// Imports returns the direct fallbacks of rid, most preferred first.
func (g *Graph) Imports(rid string) []string {
	return slices.Clone(g.g.Children(rid))
}

// Expand returns rid followed by every compatible RID, breadth-first in
// preference order. Returns nil for an unknown RID.
func (g *Graph) Expand(rid string) []string {
	if chain, ok := g.chains.Get(rid); ok {
		return slices.Clone(chain)
	}
	chain := g.g.BreadthFirst(rid)
	if chain != nil {
		g.chains.Add(rid, chain)
	}
	return slices.Clone(chain)
}

// BestMatch walks the compatibility chain of rid and returns the first RID
// that is in supported and not in excluded. Excluded RIDs are skipped as
// candidates but their own fallbacks are still walked.
//
// The result is deterministic: the same (rid, supported, excluded) triple
// always yields the same Match.
func (g *Graph) BestMatch(rid string, supported, excluded []string) Match {
	key := matchKey(rid, supported, excluded)
	if m, ok := g.matches.Get(key); ok {
		return m
	}
	m := g.bestMatch(rid, supported, excluded)
	g.matches.Add(key, m)
	return m
}

func (g *Graph) bestMatch(rid string, supported, excluded []string) Match {
	if !g.Contains(rid) {
		return Match{Outcome: UnknownRID}
	}
	sup := toSet(supported)
	exc := toSet(excluded)
	for _, candidate := range g.Expand(rid) {
		if exc[candidate] {
			continue
		}
		if sup[candidate] {
			return Match{RID: candidate, Outcome: Resolved}
		}
	}
	return Match{Outcome: Unreachable}
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

// matchKey is order-insensitive in supported/excluded since both are sets.
func matchKey(rid string, supported, excluded []string) string {
	s := slices.Clone(supported)
	e := slices.Clone(excluded)
	slices.Sort(s)
	slices.Sort(e)
	return rid + "\x00" + strings.Join(s, "\x01") + "\x00" + strings.Join(e, "\x01")
}
