package framework

// VersionPolicy decides which catalog version a framework reference gets when
// no version is requested explicitly.
type VersionPolicy int

const (
	// UseDefaultVersion compiles and deploys against the default version.
	UseDefaultVersion VersionPolicy = iota
	// UseLatestVersion compiles and deploys against the latest patch.
	UseLatestVersion
	// UseDefaultVersionWithLatestRuntimePack compiles against the default
	// version but acquires the latest runtime pack, so a later self-contained
	// or ahead-of-time build has current bits.
	UseDefaultVersionWithLatestRuntimePack
)

func (p VersionPolicy) String() string {
	switch p {
	case UseLatestVersion:
		return "latest"
	case UseDefaultVersionWithLatestRuntimePack:
		return "default-with-latest-runtime-pack"
	default:
		return "default"
	}
}

// FrameworkReference is one framework a project declares or inherits.
type FrameworkReference struct {
	Name string
	// RuntimeFrameworkVersion pins the version for this reference only.
	RuntimeFrameworkVersion string
	// Labels select a runtime pack variant; they must match exactly.
	Labels []string
	// TargetLatestRuntimePatch overrides the project-wide setting when set.
	TargetLatestRuntimePatch *bool
	// IsTransitive marks references pulled in by dependencies rather than
	// declared by the project.
	IsTransitive bool
}

// Request describes one project build.
type Request struct {
	TargetFramework     string
	FrameworkReferences []FrameworkReference

	// RuntimeFrameworkVersion pins every reference without its own version.
	RuntimeFrameworkVersion string
	// TargetLatestRuntimePatch is the project-wide roll-forward setting.
	// TargetLatestRuntimePatchIsDefault records that the caller never set it.
	TargetLatestRuntimePatch          bool
	TargetLatestRuntimePatchIsDefault bool

	RuntimeIdentifier  string
	RuntimeIdentifiers []string

	SelfContained                bool
	ReadyToRun                   bool
	DisableTargetingPackDownload bool

	// HostRID is the machine the build runs on; empty means rid.HostRID().
	HostRID string
}

// RuntimePacksRequired reports whether the build deploys runtime bits.
func (r Request) RuntimePacksRequired() bool {
	return r.SelfContained || r.ReadyToRun
}

// Policy returns the version policy that applies to ref.
func (r Request) Policy(ref FrameworkReference) VersionPolicy {
	if ref.TargetLatestRuntimePatch != nil {
		if *ref.TargetLatestRuntimePatch {
			return UseLatestVersion
		}
		return UseDefaultVersion
	}
	if r.TargetLatestRuntimePatch {
		return UseLatestVersion
	}
	if r.TargetLatestRuntimePatchIsDefault {
		return UseDefaultVersionWithLatestRuntimePack
	}
	return UseDefaultVersion
}

// requestedRIDs returns RuntimeIdentifier followed by RuntimeIdentifiers,
// without duplicates or blanks.
func (r Request) requestedRIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range append([]string{r.RuntimeIdentifier}, r.RuntimeIdentifiers...) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// versions resolves the runtime framework version (what the app runs on) and
// the runtime pack version (what gets acquired) for ref.
func (r Request) versions(ref FrameworkReference, known KnownFrameworkReference, pack *KnownRuntimePack) (framework, runtimePack string) {
	if ref.RuntimeFrameworkVersion != "" {
		return ref.RuntimeFrameworkVersion, ref.RuntimeFrameworkVersion
	}
	if r.RuntimeFrameworkVersion != "" {
		return r.RuntimeFrameworkVersion, r.RuntimeFrameworkVersion
	}
	latest := known.LatestRuntimeFrameworkVersion
	if pack != nil && pack.LatestVersion != "" {
		latest = pack.LatestVersion
	}
	if latest == "" {
		latest = known.DefaultRuntimeFrameworkVersion
	}
	switch r.Policy(ref) {
	case UseLatestVersion:
		return latest, latest
	case UseDefaultVersionWithLatestRuntimePack:
		return known.DefaultRuntimeFrameworkVersion, latest
	default:
		return known.DefaultRuntimeFrameworkVersion, known.DefaultRuntimeFrameworkVersion
	}
}
