package assets

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/matzehuels/packforge/pkg/errors"
)

// LibraryType says whether a library resolved to package content or to
// another project of the same build.
type LibraryType string

const (
	LibraryPackage LibraryType = "package"
	LibraryProject LibraryType = "project"
)

// AssetRole names an asset group of a target library.
type AssetRole string

const (
	RoleCompile             AssetRole = "compile"
	RoleRuntime             AssetRole = "runtime"
	RoleNative              AssetRole = "native"
	RoleResource            AssetRole = "resource"
	RoleBuild               AssetRole = "build"
	RoleBuildMultiTargeting AssetRole = "buildMultiTargeting"
	RoleContentFiles        AssetRole = "contentFiles"
	RoleRuntimeTargets      AssetRole = "runtimeTargets"
)

// roleOrder is the order groups are visited in.
var roleOrder = []AssetRole{
	RoleCompile, RoleRuntime, RoleNative, RoleResource,
	RoleBuild, RoleBuildMultiTargeting, RoleContentFiles, RoleRuntimeTargets,
}

// Model is a resolved project: what restore decided, per target.
type Model struct {
	Targets   []Target
	Libraries []Library
	// ProjectDependencies lists, per target framework, the package names the
	// project declares directly.
	ProjectDependencies map[string][]string
	PackageFolders      []string
}

// Target is one framework, optionally narrowed to a RID.
type Target struct {
	Framework string
	RID       string
	Libraries []TargetLibrary
}

// Key is the target's name in the lock file, "net8.0" or "net8.0/win-x64".
func (t Target) Key() string {
	if t.RID == "" {
		return t.Framework
	}
	return t.Framework + "/" + t.RID
}

// Library is a package or project known to the restore.
type Library struct {
	Name    string
	Version string
	Type    LibraryType
	// Path is the package folder relative path, or for projects the path to
	// the project file relative to the current project.
	Path  string
	Files []string
}

// Key is "<name>/<version>".
func (l Library) Key() string { return l.Name + "/" + l.Version }

// TargetLibrary is a library as resolved for one target.
type TargetLibrary struct {
	Name         string
	Version      string
	Type         LibraryType
	Dependencies []Dependency
	Groups       []AssetGroup
}

// Key is "<name>/<version>".
func (l TargetLibrary) Key() string { return l.Name + "/" + l.Version }

// Dependency is a dependency edge as declared by a library.
type Dependency struct {
	Name         string
	VersionRange string
}

// AssetGroup is the files a library contributes in one role.
type AssetGroup struct {
	Role   AssetRole
	Assets []Asset
}

// Asset is one file of an asset group.
type Asset struct {
	Path string
	// Related holds sibling file suffixes such as ".xml" or ".pdb".
	Related []string
	Locale  string
	// RID and AssetType are set for runtimeTargets assets.
	RID       string
	AssetType string
}

// lock file subset.
type lockFile struct {
	Version                     int                                     `json:"version"`
	Targets                     map[string]map[string]lockTargetLibrary `json:"targets"`
	Libraries                   map[string]lockLibrary                  `json:"libraries"`
	ProjectFileDependencyGroups map[string][]string                     `json:"projectFileDependencyGroups"`
	PackageFolders              map[string]json.RawMessage              `json:"packageFolders"`
}

type lockLibrary struct {
	Type           string   `json:"type"`
	Path           string   `json:"path"`
	MSBuildProject string   `json:"msbuildProject"`
	Files          []string `json:"files"`
}

type lockAsset struct {
	Related   string `json:"related"`
	Locale    string `json:"locale"`
	RID       string `json:"rid"`
	AssetType string `json:"assetType"`
}

type lockTargetLibrary struct {
	Type                string               `json:"type"`
	Dependencies        map[string]string    `json:"dependencies"`
	Compile             map[string]lockAsset `json:"compile"`
	Runtime             map[string]lockAsset `json:"runtime"`
	Native              map[string]lockAsset `json:"native"`
	Resource            map[string]lockAsset `json:"resource"`
	Build               map[string]lockAsset `json:"build"`
	BuildMultiTargeting map[string]lockAsset `json:"buildMultiTargeting"`
	ContentFiles        map[string]lockAsset `json:"contentFiles"`
	RuntimeTargets      map[string]lockAsset `json:"runtimeTargets"`
}

func (l lockTargetLibrary) group(role AssetRole) map[string]lockAsset {
	switch role {
	case RoleCompile:
		return l.Compile
	case RoleRuntime:
		return l.Runtime
	case RoleNative:
		return l.Native
	case RoleResource:
		return l.Resource
	case RoleBuild:
		return l.Build
	case RoleBuildMultiTargeting:
		return l.BuildMultiTargeting
	case RoleContentFiles:
		return l.ContentFiles
	case RoleRuntimeTargets:
		return l.RuntimeTargets
	}
	return nil
}

// ReadModel decodes a project lock file. JSON objects carry no order, so
// targets, libraries and files come back sorted by key.
func ReadModel(r io.Reader) (*Model, error) {
	var lf lockFile
	if err := json.NewDecoder(r).Decode(&lf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode lock file")
	}

	m := &Model{ProjectDependencies: make(map[string][]string)}
	for _, key := range sortedKeys(lf.Libraries) {
		ll := lf.Libraries[key]
		name, ver, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		lib := Library{Name: name, Version: ver, Type: LibraryType(ll.Type), Path: ll.Path, Files: ll.Files}
		if lib.Type == LibraryProject && ll.MSBuildProject != "" {
			lib.Path = ll.MSBuildProject
		}
		m.Libraries = append(m.Libraries, lib)
	}

	for _, tkey := range sortedKeys(lf.Targets) {
		framework, rid, _ := strings.Cut(tkey, "/")
		t := Target{Framework: framework, RID: rid}
		libs := lf.Targets[tkey]
		for _, lkey := range sortedKeys(libs) {
			ltl := libs[lkey]
			name, ver, err := splitKey(lkey)
			if err != nil {
				return nil, err
			}
			tl := TargetLibrary{Name: name, Version: ver, Type: LibraryType(ltl.Type)}
			for _, dep := range sortedKeys(ltl.Dependencies) {
				tl.Dependencies = append(tl.Dependencies, Dependency{Name: dep, VersionRange: ltl.Dependencies[dep]})
			}
			for _, role := range roleOrder {
				group := ltl.group(role)
				if len(group) == 0 {
					continue
				}
				ag := AssetGroup{Role: role}
				for _, p := range sortedKeys(group) {
					a := group[p]
					ag.Assets = append(ag.Assets, Asset{
						Path:      p,
						Related:   splitRelated(a.Related),
						Locale:    a.Locale,
						RID:       a.RID,
						AssetType: a.AssetType,
					})
				}
				tl.Groups = append(tl.Groups, ag)
			}
			t.Libraries = append(t.Libraries, tl)
		}
		m.Targets = append(m.Targets, t)
	}

	for framework, deps := range lf.ProjectFileDependencyGroups {
		for _, d := range deps {
			if name, _, _ := strings.Cut(strings.TrimSpace(d), " "); name != "" {
				m.ProjectDependencies[framework] = append(m.ProjectDependencies[framework], name)
			}
		}
	}
	m.PackageFolders = sortedKeys(lf.PackageFolders)
	return m, nil
}

// ReadModelFile reads a lock file from disk.
func ReadModelFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open lock file")
	}
	defer f.Close()
	return ReadModel(f)
}

func splitKey(key string) (name, version string, err error) {
	name, version, ok := strings.Cut(key, "/")
	if !ok || name == "" || version == "" {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "library key %q is not <name>/<version>", key)
	}
	return name, version, nil
}

func splitRelated(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
