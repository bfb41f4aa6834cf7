package workload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/matzehuels/packforge/pkg/errors"
)

// PackKind is the role a workload pack plays once installed.
type PackKind int

const (
	KindSdk PackKind = iota
	KindFramework
	KindLibrary
	KindTemplate
	KindTool
)

var packKindNames = map[PackKind]string{
	KindSdk:       "sdk",
	KindFramework: "framework",
	KindLibrary:   "library",
	KindTemplate:  "template",
	KindTool:      "tool",
}

func (k PackKind) String() string {
	if s, ok := packKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("PackKind(%d)", int(k))
}

// ParsePackKind parses a manifest kind such as "Sdk" or "template".
func ParsePackKind(s string) (PackKind, error) {
	for k, name := range packKindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidManifest, "unknown pack kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k PackKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PackKind) UnmarshalText(b []byte) error {
	parsed, err := ParsePackKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Strategy is how a pack's archive is placed on disk. The set is closed.
type Strategy int

const (
	// StrategyExtract unpacks the archive into a versioned directory.
	StrategyExtract Strategy = iota
	// StrategyCopyArchive stores the archive itself, for template packs that
	// are consumed as archives.
	StrategyCopyArchive
)

func (s Strategy) String() string {
	if s == StrategyCopyArchive {
		return "copy-archive"
	}
	return "extract"
}

// StrategyFor returns the install strategy for kind.
func StrategyFor(kind PackKind) Strategy {
	switch kind {
	case KindTemplate:
		return StrategyCopyArchive
	default:
		return StrategyExtract
	}
}

// PackInfo identifies one installable pack.
type PackInfo struct {
	ID      string   `json:"id"`
	Version string   `json:"version"`
	Kind    PackKind `json:"kind"`
	// ResolvedPackageID is the package actually fetched, which differs from
	// ID for RID-specific packs ("alias-to" in manifests).
	ResolvedPackageID string `json:"resolved_package_id,omitempty"`
	RID               string `json:"rid,omitempty"`
}

// PackageID returns the package to fetch.
func (p PackInfo) PackageID() string {
	if p.ResolvedPackageID != "" {
		return p.ResolvedPackageID
	}
	return p.ID
}

// Key identifies the pack independent of feature band.
func (p PackInfo) Key() string {
	return strings.ToLower(p.ID) + "/" + strings.ToLower(p.Version)
}

func (p PackInfo) String() string { return p.ID + "@" + p.Version }

// Validate rejects ids and versions that are unsafe as path elements.
func (p PackInfo) Validate() error {
	if err := errors.ValidatePackageID(p.ID); err != nil {
		return err
	}
	if p.ResolvedPackageID != "" {
		if err := errors.ValidatePackageID(p.ResolvedPackageID); err != nil {
			return err
		}
	}
	if p.Version == "" || strings.ContainsAny(p.Version, `/\`) || strings.Contains(p.Version, "..") {
		return errors.New(errors.ErrCodeInvalidVersion, "pack %s: invalid version %q", p.ID, p.Version)
	}
	return nil
}

// Path returns where the pack lives under an install root.
func (p PackInfo) Path(root string) string {
	switch StrategyFor(p.Kind) {
	case StrategyCopyArchive:
		return filepath.Join(root, "template-packs", archiveName(p.PackageID(), p.Version))
	default:
		if p.Kind == KindTool {
			return filepath.Join(root, "tool-packs", p.ID, p.Version)
		}
		return filepath.Join(root, "packs", p.ID, p.Version)
	}
}

// archiveName is the file name of a package archive.
func archiveName(id, version string) string {
	return strings.ToLower(id) + "." + strings.ToLower(version) + ".nupkg"
}
