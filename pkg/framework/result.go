package framework

import (
	"strings"

	"github.com/matzehuels/packforge/pkg/errors"
)

// PackageToDownload is a pack that must be acquired before the build.
type PackageToDownload struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// RuntimeFramework is the framework the application runs on.
type RuntimeFramework struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	FrameworkName string `json:"framework_name"`
}

// TargetingPack provides reference assemblies for compilation.
type TargetingPack struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	FrameworkName string `json:"framework_name"`
	Profile       string `json:"profile,omitempty"`
	// Path is set when the pack was found under a pack root.
	Path string `json:"path,omitempty"`
}

// RuntimePack is a resolved runtime implementation pack.
type RuntimePack struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	FrameworkName     string `json:"framework_name"`
	RuntimeIdentifier string `json:"runtime_identifier"`
	RequestedRID      string `json:"requested_rid"`
	IsTrimmable       bool   `json:"is_trimmable"`
	AlwaysCopyLocal   bool   `json:"always_copy_local"`
}

// CrossgenPack is the ahead-of-time compiler pack for the host machine.
type CrossgenPack struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	RuntimeIdentifier string `json:"runtime_identifier"`
}

// UnavailableRuntimePack records a framework with no runtime pack for a
// requested RID. It only becomes an error for directly declared references
// in builds that deploy runtime bits.
type UnavailableRuntimePack struct {
	FrameworkName     string `json:"framework_name"`
	RuntimeIdentifier string `json:"runtime_identifier"`
	NamePattern       string `json:"name_pattern"`
	Transitive        bool   `json:"transitive"`
}

// Result is the outcome of one Select call.
type Result struct {
	PackagesToDownload      []PackageToDownload      `json:"packages_to_download"`
	RuntimeFrameworks       []RuntimeFramework       `json:"runtime_frameworks"`
	TargetingPacks          []TargetingPack          `json:"targeting_packs"`
	RuntimePacks            []RuntimePack            `json:"runtime_packs"`
	CrossgenPacks           []CrossgenPack           `json:"crossgen_packs"`
	UnavailableRuntimePacks []UnavailableRuntimePack `json:"unavailable_runtime_packs"`
	Diagnostics             errors.Diagnostics       `json:"diagnostics"`

	downloads map[string]bool
}

func (r *Result) download(id, version string) {
	key := strings.ToLower(id) + "/" + strings.ToLower(version)
	if r.downloads == nil {
		r.downloads = make(map[string]bool)
	}
	if r.downloads[key] {
		return
	}
	r.downloads[key] = true
	r.PackagesToDownload = append(r.PackagesToDownload, PackageToDownload{ID: id, Version: version})
}

// EscalateUnavailable turns deferred unavailability into errors for every
// directly declared reference, provided runtimePacksRequired. It returns the
// number of diagnostics added.
func (r *Result) EscalateUnavailable(runtimePacksRequired bool) int {
	if !runtimePacksRequired {
		return 0
	}
	n := 0
	for _, u := range r.UnavailableRuntimePacks {
		if u.Transitive {
			continue
		}
		r.Diagnostics.Errorf(errors.ErrCodeRuntimePackUnavailable,
			"no runtime pack for %s is available for runtime identifier %s (pattern %s)",
			u.FrameworkName, u.RuntimeIdentifier, u.NamePattern)
		n++
	}
	return n
}
