package framework

import (
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/version"
)

// RIDToken is replaced by the resolved RID in pack name patterns.
const RIDToken = "**RID**"

// KnownFrameworkReference describes a shared framework that a project can
// reference by name.
type KnownFrameworkReference struct {
	Name                           string `toml:"name"`
	TargetFramework                string `toml:"target_framework"`
	RuntimeFrameworkName           string `toml:"runtime_framework_name"`
	DefaultRuntimeFrameworkVersion string `toml:"default_runtime_framework_version"`
	LatestRuntimeFrameworkVersion  string `toml:"latest_runtime_framework_version"`
	TargetingPackName              string `toml:"targeting_pack_name"`
	TargetingPackVersion           string `toml:"targeting_pack_version"`
	Profile                        string `toml:"profile"`
	IsWindowsOnly                  bool   `toml:"is_windows_only"`

	tfm TargetFramework
}

// KnownRuntimePack describes the RID-specific implementation packs of a
// shared framework.
type KnownRuntimePack struct {
	Name                       string   `toml:"name"`
	RuntimeFrameworkName       string   `toml:"runtime_framework_name"`
	TargetFramework            string   `toml:"target_framework"`
	NamePattern                string   `toml:"name_pattern"`
	RuntimeIdentifiers         []string `toml:"runtime_identifiers"`
	ExcludedRuntimeIdentifiers []string `toml:"excluded_runtime_identifiers"`
	LatestVersion              string   `toml:"latest_version"`
	Labels                     []string `toml:"labels"`
	AlwaysCopyLocal            bool     `toml:"always_copy_local"`
	IsTrimmable                bool     `toml:"is_trimmable"`

	tfm TargetFramework
}

// KnownCrossgenPack describes an ahead-of-time compiler pack.
type KnownCrossgenPack struct {
	TargetFramework    string   `toml:"target_framework"`
	NamePattern        string   `toml:"name_pattern"`
	Version            string   `toml:"version"`
	RuntimeIdentifiers []string `toml:"runtime_identifiers"`

	tfm TargetFramework
}

// Catalog is the read-only set of known packs. Build it with NewCatalog or
// LoadCatalog; the zero value is empty.
type Catalog struct {
	FrameworkReferences []KnownFrameworkReference `toml:"framework_reference"`
	RuntimePacks        []KnownRuntimePack        `toml:"runtime_pack"`
	CrossgenPacks       []KnownCrossgenPack       `toml:"crossgen_pack"`
}

// NewCatalog validates the entries and returns a catalog holding copies.
func NewCatalog(refs []KnownFrameworkReference, packs []KnownRuntimePack, crossgen []KnownCrossgenPack) (*Catalog, error) {
	c := &Catalog{
		FrameworkReferences: append([]KnownFrameworkReference(nil), refs...),
		RuntimePacks:        append([]KnownRuntimePack(nil), packs...),
		CrossgenPacks:       append([]KnownCrossgenPack(nil), crossgen...),
	}
	if err := c.prepare(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalog decodes a TOML catalog with [[framework_reference]],
// [[runtime_pack]] and [[crossgen_pack]] tables.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode catalog")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidCatalog, "unknown catalog key %q", undecoded[0].String())
	}
	if err := c.prepare(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile reads a TOML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open catalog %s", path)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func (c *Catalog) prepare() error {
	for i := range c.FrameworkReferences {
		ref := &c.FrameworkReferences[i]
		if ref.Name == "" || ref.RuntimeFrameworkName == "" {
			return catalogErr("framework_reference", i, "name and runtime_framework_name are required")
		}
		tfm, err := ParseTargetFramework(ref.TargetFramework)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "framework_reference %s", ref.Name)
		}
		ref.tfm = tfm
		for _, v := range []string{ref.DefaultRuntimeFrameworkVersion, ref.LatestRuntimeFrameworkVersion, ref.TargetingPackVersion} {
			if err := checkVersion(v); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "framework_reference %s", ref.Name)
			}
		}
		if ref.DefaultRuntimeFrameworkVersion == "" {
			return catalogErr("framework_reference", i, "default_runtime_framework_version is required")
		}
	}
	for i := range c.RuntimePacks {
		p := &c.RuntimePacks[i]
		if p.RuntimeFrameworkName == "" || p.NamePattern == "" {
			return catalogErr("runtime_pack", i, "runtime_framework_name and name_pattern are required")
		}
		if len(p.RuntimeIdentifiers) > 0 && !strings.Contains(p.NamePattern, RIDToken) {
			return errors.New(errors.ErrCodeInvalidCatalog, "runtime_pack %s: name_pattern lacks %s", p.NamePattern, RIDToken)
		}
		tfm, err := ParseTargetFramework(p.TargetFramework)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "runtime_pack %s", p.NamePattern)
		}
		p.tfm = tfm
		if err := checkVersion(p.LatestVersion); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "runtime_pack %s", p.NamePattern)
		}
	}
	for i := range c.CrossgenPacks {
		p := &c.CrossgenPacks[i]
		if p.NamePattern == "" || p.Version == "" {
			return catalogErr("crossgen_pack", i, "name_pattern and version are required")
		}
		tfm, err := ParseTargetFramework(p.TargetFramework)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "crossgen_pack %s", p.NamePattern)
		}
		p.tfm = tfm
		if err := checkVersion(p.Version); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "crossgen_pack %s", p.NamePattern)
		}
	}
	return nil
}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	_, err := version.ParseSemantic(v)
	return err
}

func catalogErr(table string, index int, msg string) error {
	return errors.New(errors.ErrCodeInvalidCatalog, "%s #%d: %s", table, index+1, msg)
}

// frameworkReference finds the entry for name that targets tfm.
func (c *Catalog) frameworkReference(name string, tfm TargetFramework) (KnownFrameworkReference, bool) {
	for _, ref := range c.FrameworkReferences {
		if strings.EqualFold(ref.Name, name) && ref.tfm.Matches(tfm) {
			return ref, true
		}
	}
	return KnownFrameworkReference{}, false
}

// runtimePacks returns, in catalog order, the packs for runtimeFramework and
// tfm whose label set is exactly labels.
func (c *Catalog) runtimePacks(runtimeFramework string, tfm TargetFramework, labels []string) []KnownRuntimePack {
	var out []KnownRuntimePack
	for _, p := range c.RuntimePacks {
		if strings.EqualFold(p.RuntimeFrameworkName, runtimeFramework) && p.tfm.Matches(tfm) && sameLabels(p.Labels, labels) {
			out = append(out, p)
		}
	}
	return out
}

// crossgenPacks returns the compiler packs for tfm in catalog order.
func (c *Catalog) crossgenPacks(tfm TargetFramework) []KnownCrossgenPack {
	var out []KnownCrossgenPack
	for _, p := range c.CrossgenPacks {
		if p.tfm.Matches(tfm) {
			out = append(out, p)
		}
	}
	return out
}

func sameLabels(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, l := range a {
		set[strings.ToLower(l)] = true
	}
	other := make(map[string]bool, len(b))
	for _, l := range b {
		other[strings.ToLower(l)] = true
	}
	if len(set) != len(other) {
		return false
	}
	for l := range other {
		if !set[l] {
			return false
		}
	}
	return true
}
