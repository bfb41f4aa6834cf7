package conflicts

import (
	"bufio"
	"io"
	"strings"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/version"
)

// PackageOverride declares that files from OverridingPackageID replace files
// from OverriddenPackageID, provided the overriding package is at least
// MinimumOverridingVersion.
type PackageOverride struct {
	OverriddenPackageID      string
	OverridingPackageID      string
	MinimumOverridingVersion string
}

// OverrideIndex maps an overridden package to the packages that override it.
// Only one hop is ever consulted: if A overrides B and B overrides C, A does
// not override C.
type OverrideIndex struct {
	byOverridden map[string][]indexedOverride
}

type indexedOverride struct {
	overriding string // lower-cased
	minimum    version.Semantic
	hasMinimum bool
}

// NewOverrideIndex builds an index from override declarations. A malformed
// minimum version is an input error.
func NewOverrideIndex(overrides []PackageOverride) (*OverrideIndex, error) {
	idx := &OverrideIndex{byOverridden: make(map[string][]indexedOverride)}
	for _, o := range overrides {
		entry := indexedOverride{overriding: strings.ToLower(o.OverridingPackageID)}
		if o.MinimumOverridingVersion != "" {
			v, err := version.ParseSemantic(o.MinimumOverridingVersion)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err,
					"override of %s by %s", o.OverriddenPackageID, o.OverridingPackageID)
			}
			entry.minimum = v
			entry.hasMinimum = true
		}
		key := strings.ToLower(o.OverriddenPackageID)
		idx.byOverridden[key] = append(idx.byOverridden[key], entry)
	}
	return idx, nil
}

// Len returns the number of overridden packages in the index.
func (idx *OverrideIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byOverridden)
}

// Overrides reports whether winner's package overrides loser's package.
func (idx *OverrideIndex) Overrides(winner, loser *Item) bool {
	if idx == nil || winner.PackageID == "" || loser.PackageID == "" {
		return false
	}
	for _, o := range idx.byOverridden[strings.ToLower(loser.PackageID)] {
		if o.overriding != strings.ToLower(winner.PackageID) {
			continue
		}
		if !o.hasMinimum {
			return true
		}
		v, err := version.ParseSemantic(winner.PackageVersion)
		if err != nil {
			continue
		}
		if v.AtLeast(o.minimum) {
			return true
		}
	}
	return false
}

// ParsePackageOverrides reads the override list shipped inside an
// overriding package: one "OverriddenId|MinimumOverridingVersion" entry per
// line. Blank lines and lines starting with '#' are ignored.
func ParsePackageOverrides(overridingPackageID string, r io.Reader) ([]PackageOverride, error) {
	var out []PackageOverride
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, ver, _ := strings.Cut(text, "|")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "package overrides line %d: missing package id", line)
		}
		out = append(out, PackageOverride{
			OverriddenPackageID:      id,
			OverridingPackageID:      overridingPackageID,
			MinimumOverridingVersion: strings.TrimSpace(ver),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read package overrides")
	}
	return out, nil
}
