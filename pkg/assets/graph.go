package assets

import (
	"slices"

	"github.com/matzehuels/packforge/pkg/dag"
	"github.com/matzehuels/packforge/pkg/errors"
)

// Graph is the flattened form of a resolved project.
type Graph struct {
	Targets             []TargetDef         `json:"targets"`
	Packages            []PackageDef        `json:"packages"`
	Files               []FileDef           `json:"files"`
	PackageDependencies []PackageDependency `json:"package_dependencies"`
	FileDependencies    []FileDependency    `json:"file_dependencies"`
}

type TargetDef struct {
	Key       string `json:"key"`
	Framework string `json:"framework"`
	RID       string `json:"rid,omitempty"`
}

type PackageDef struct {
	Key          string      `json:"key"`
	Name         string      `json:"name"`
	Version      string      `json:"version"`
	Type         LibraryType `json:"type"`
	Path         string      `json:"path,omitempty"`
	ResolvedPath string      `json:"resolved_path,omitempty"`
}

type FileDef struct {
	Key          string   `json:"key"`
	Package      string   `json:"package"`
	Path         string   `json:"path"`
	ResolvedPath string   `json:"resolved_path"`
	Type         FileType `json:"type,omitempty"`
	Related      []string `json:"related,omitempty"`
}

// PackageDependency is an edge to Package. ParentPackage is empty for
// packages the project declares itself.
type PackageDependency struct {
	Package       string `json:"package"`
	Target        string `json:"target"`
	ParentPackage string `json:"parent_package,omitempty"`
}

// FileDependency ties a file to the package and role it comes from.
type FileDependency struct {
	File    string    `json:"file"`
	Target  string    `json:"target"`
	Package string    `json:"package"`
	Role    AssetRole `json:"role"`
	Locale  string    `json:"locale,omitempty"`
	RID     string    `json:"rid,omitempty"`
}

// TargetKeys returns the target keys in order.
func (g *Graph) TargetKeys() []string {
	keys := make([]string, len(g.Targets))
	for i, t := range g.Targets {
		keys[i] = t.Key
	}
	return keys
}

// FilesFor returns the file dependencies of one package in one target.
func (g *Graph) FilesFor(target, pkg string) []FileDependency {
	var out []FileDependency
	for _, fd := range g.FileDependencies {
		if fd.Target == target && fd.Package == pkg {
			out = append(out, fd)
		}
	}
	return out
}

// ToDAG returns the package graph of one target. The target itself is the
// single source node; its children are the packages the project declares.
func (g *Graph) ToDAG(target string) (*dag.DAG, error) {
	if !slices.Contains(g.TargetKeys(), target) {
		return nil, errors.New(errors.ErrCodeNotFound, "target %q is not in the graph", target)
	}
	pkgs := make(map[string]PackageDef, len(g.Packages))
	for _, p := range g.Packages {
		pkgs[p.Key] = p
	}

	d := dag.New(dag.Metadata{"target": target})
	if err := d.AddNode(dag.Node{ID: target, Meta: dag.Metadata{"kind": "target"}}); err != nil {
		return nil, err
	}
	ensure := func(key string) error {
		if _, ok := d.Node(key); ok {
			return nil
		}
		meta := dag.Metadata{"kind": "package"}
		if p, ok := pkgs[key]; ok {
			meta["version"] = p.Version
			meta["type"] = string(p.Type)
		}
		return d.AddNode(dag.Node{ID: key, Meta: meta})
	}
	for _, pd := range g.PackageDependencies {
		if pd.Target != target {
			continue
		}
		from := pd.ParentPackage
		if from == "" {
			from = target
		}
		if err := ensure(from); err != nil {
			return nil, err
		}
		if err := ensure(pd.Package); err != nil {
			return nil, err
		}
		if slices.Contains(d.Children(from), pd.Package) {
			continue
		}
		if err := d.AddEdge(dag.Edge{From: from, To: pd.Package}); err != nil {
			return nil, err
		}
	}
	return d, nil
}
