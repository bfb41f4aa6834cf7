package workload

import (
	"fmt"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/version"
)

// FeatureBand is the SDK release train that install state is scoped to.
// SDK 8.0.105 and 8.0.199 share band 8.0.100; 8.0.200 starts a new one.
// A prerelease label is part of the band: 9.0.100-preview.3 and 9.0.100
// are different bands.
type FeatureBand struct {
	major, minor, patch int
	prerelease          string
}

// ParseFeatureBand derives the band from an SDK version or a band string.
func ParseFeatureBand(sdkVersion string) (FeatureBand, error) {
	v, err := version.ParseSemantic(sdkVersion)
	if err != nil {
		return FeatureBand{}, errors.Wrap(errors.ErrCodeInvalidVersion, err, "sdk version %q", sdkVersion)
	}
	return FeatureBand{
		major:      v.Major(),
		minor:      v.Minor(),
		patch:      v.Patch() / 100 * 100,
		prerelease: v.Prerelease(),
	}, nil
}

// MustParseFeatureBand is like ParseFeatureBand but panics on error.
func MustParseFeatureBand(s string) FeatureBand {
	b, err := ParseFeatureBand(s)
	if err != nil {
		panic(err)
	}
	return b
}

// IsZero reports whether b was never parsed.
func (b FeatureBand) IsZero() bool { return b == FeatureBand{} }

// IsPrerelease reports whether the band belongs to a preview SDK.
func (b FeatureBand) IsPrerelease() bool { return b.prerelease != "" }

func (b FeatureBand) String() string {
	s := fmt.Sprintf("%d.%d.%d", b.major, b.minor, b.patch)
	if b.prerelease != "" {
		s += "-" + b.prerelease
	}
	return s
}
