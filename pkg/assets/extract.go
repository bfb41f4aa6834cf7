package assets

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/packforge/pkg/errors"
)

// placeholder marks an intentionally empty asset folder.
const placeholder = "_._"

// FileType classifies a file by the asset groups it appears in.
type FileType string

const (
	FileUnknown  FileType = ""
	FileAssembly FileType = "assembly"
	FileNative   FileType = "native"
	FileBuild    FileType = "msbuild"
	FileContent  FileType = "content"
)

func fileType(role AssetRole, a Asset) FileType {
	switch role {
	case RoleCompile, RoleRuntime, RoleResource:
		return FileAssembly
	case RoleNative:
		return FileNative
	case RoleBuild, RoleBuildMultiTargeting:
		return FileBuild
	case RoleContentFiles:
		return FileContent
	case RoleRuntimeTargets:
		if a.AssetType == "native" {
			return FileNative
		}
		return FileAssembly
	}
	return FileUnknown
}

// Options configures Extract.
type Options struct {
	// ProjectDir resolves project library paths. Empty leaves them relative.
	ProjectDir string
	// PackageFolder resolves package paths. Empty uses the model's first
	// package folder.
	PackageFolder string
	Logger        *log.Logger
}

// Extract flattens m into definitions and dependency edges. Output order
// follows the model's order.
//
// A file typed differently by two asset groups, a project library without a
// path, and a target library missing from the library list are contract
// violations. Placeholder files (_._) are left out.
func Extract(m *Model, opts Options) (*Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	folder := opts.PackageFolder
	if folder == "" && len(m.PackageFolders) > 0 {
		folder = m.PackageFolders[0]
	}

	g := &Graph{}
	libs := make(map[string]Library, len(m.Libraries))
	resolved := make(map[string]string, len(m.Libraries))
	files := make(map[string]int)

	for _, lib := range m.Libraries {
		def := PackageDef{Key: lib.Key(), Name: lib.Name, Version: lib.Version, Type: lib.Type, Path: lib.Path}
		switch lib.Type {
		case LibraryProject:
			if lib.Path == "" {
				return nil, errors.ContractViolation("project %s has no path", lib.Key())
			}
			def.ResolvedPath = joinPath(opts.ProjectDir, lib.Path)
		default:
			def.ResolvedPath = joinPath(folder, packageDir(lib))
		}
		libs[strings.ToLower(lib.Key())] = lib
		resolved[strings.ToLower(lib.Key())] = def.ResolvedPath
		g.Packages = append(g.Packages, def)

		for _, f := range lib.Files {
			if isPlaceholder(f) {
				continue
			}
			key := lib.Key() + "/" + f
			if _, ok := files[key]; ok {
				continue
			}
			files[key] = len(g.Files)
			g.Files = append(g.Files, FileDef{Key: key, Package: lib.Key(), Path: f, ResolvedPath: resolveFile(lib, def.ResolvedPath, f)})
		}
	}

	for _, t := range m.Targets {
		tkey := t.Key()
		g.Targets = append(g.Targets, TargetDef{Key: tkey, Framework: t.Framework, RID: t.RID})

		byName := make(map[string]TargetLibrary, len(t.Libraries))
		for _, tl := range t.Libraries {
			byName[strings.ToLower(tl.Name)] = tl
		}
		for _, name := range m.ProjectDependencies[t.Framework] {
			if dep, ok := byName[strings.ToLower(name)]; ok {
				g.PackageDependencies = append(g.PackageDependencies, PackageDependency{Package: dep.Key(), Target: tkey})
			} else {
				logger.Debug("project dependency not resolved for target", "dependency", name, "target", tkey)
			}
		}

		for _, tl := range t.Libraries {
			lib, ok := libs[strings.ToLower(tl.Key())]
			if !ok {
				return nil, errors.ContractViolation("target %s references %s, which is not a known library", tkey, tl.Key())
			}
			for _, d := range tl.Dependencies {
				if dep, ok := byName[strings.ToLower(d.Name)]; ok {
					g.PackageDependencies = append(g.PackageDependencies, PackageDependency{Package: dep.Key(), Target: tkey, ParentPackage: lib.Key()})
				}
			}
			base := resolved[strings.ToLower(lib.Key())]
			for _, grp := range tl.Groups {
				for _, a := range grp.Assets {
					if isPlaceholder(a.Path) {
						continue
					}
					key := lib.Key() + "/" + a.Path
					typ := fileType(grp.Role, a)
					idx, ok := files[key]
					if !ok {
						idx = len(g.Files)
						files[key] = idx
						g.Files = append(g.Files, FileDef{Key: key, Package: lib.Key(), Path: a.Path, ResolvedPath: resolveFile(lib, base, a.Path)})
					}
					def := &g.Files[idx]
					switch {
					case def.Type == FileUnknown:
						def.Type = typ
						def.Related = a.Related
					case def.Type != typ:
						return nil, errors.ContractViolation("%s is %s in one asset group and %s in %s of target %s", key, def.Type, typ, grp.Role, tkey)
					}
					g.FileDependencies = append(g.FileDependencies, FileDependency{
						File:    key,
						Target:  tkey,
						Package: lib.Key(),
						Role:    grp.Role,
						Locale:  a.Locale,
						RID:     a.RID,
					})
				}
			}
		}
	}
	logger.Debug("extracted dependency graph",
		"targets", len(g.Targets), "packages", len(g.Packages), "files", len(g.Files))
	return g, nil
}

// packageDir is where a package's content lives below a package folder.
func packageDir(lib Library) string {
	if lib.Path != "" {
		return lib.Path
	}
	return strings.ToLower(lib.Name) + "/" + strings.ToLower(lib.Version)
}

// resolveFile places f relative to its library. Project files are relative
// to the project's directory, not its project file.
func resolveFile(lib Library, base, f string) string {
	if lib.Type == LibraryProject {
		return joinPath(filepath.Dir(base), f)
	}
	return joinPath(base, f)
}

func joinPath(base, rel string) string {
	rel = filepath.FromSlash(rel)
	if base == "" {
		return filepath.Clean(rel)
	}
	return filepath.Join(base, rel)
}

func isPlaceholder(p string) bool {
	return path.Base(strings.ReplaceAll(p, `\`, "/")) == placeholder
}
