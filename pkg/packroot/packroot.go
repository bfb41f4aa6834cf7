// Package packroot locates already-present packs on disk.
//
// A pack lives at <root>/<name>/<version>. Roots are searched in a fixed
// order: roots from the environment, then the user's package cache, then the
// configured targeting-pack root.
package packroot

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultEnvVar names the environment variable holding extra pack roots.
const DefaultEnvVar = "PACKFORGE_PACK_ROOTS"

// Search is an ordered pack-root search path. Empty entries are skipped.
type Search struct {
	EnvRoots          []string
	UserCache         string
	TargetingPackRoot string
}

// FromEnv returns the OS path list stored in varName, dropping empty entries.
func FromEnv(varName string) []string {
	var roots []string
	for _, r := range filepath.SplitList(os.Getenv(varName)) {
		if r = strings.TrimSpace(r); r != "" {
			roots = append(roots, r)
		}
	}
	return roots
}

// Roots returns the search path in order.
func (s Search) Roots() []string {
	roots := make([]string, 0, len(s.EnvRoots)+2)
	roots = append(roots, s.EnvRoots...)
	if s.UserCache != "" {
		roots = append(roots, s.UserCache)
	}
	if s.TargetingPackRoot != "" {
		roots = append(roots, s.TargetingPackRoot)
	}
	return roots
}

// Find returns the first <root>/<name>/<version> directory that exists.
// Package caches store ids in lower case, so the lower-cased name is tried
// after the name as given.
func (s Search) Find(name, version string) (string, bool) {
	names := []string{name}
	if lower := strings.ToLower(name); lower != name {
		names = append(names, lower)
	}
	for _, root := range s.Roots() {
		for _, n := range names {
			dir := filepath.Join(root, n, version)
			if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
				return dir, true
			}
		}
	}
	return "", false
}
