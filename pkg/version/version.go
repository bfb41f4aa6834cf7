// Package version parses and orders the two version shapes packforge deals
// with: numeric assembly/file/framework versions (up to four components) and
// semantic package versions.
//
// Semantic versions are a thin wrapper around github.com/Masterminds/semver/v3.
// Package versions with a fourth, non-zero component (legacy NuGet versions)
// are not valid semver; they are ordered numerically instead.
package version

import (
	"fmt"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Numeric is a dotted version of up to four non-negative integer components,
// e.g. an assembly version "4.0.12.0" or a framework version "8.0".
type Numeric struct {
	parts [4]int
	n     int // number of components that were present when parsed
}

// ParseNumeric parses a dotted numeric version. Leading "v" is accepted.
func ParseNumeric(raw string) (Numeric, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "v")
	if s == "" {
		return Numeric{}, fmt.Errorf("version: parse numeric %q: empty", raw)
	}
	fields := strings.Split(s, ".")
	if len(fields) > 4 {
		return Numeric{}, fmt.Errorf("version: parse numeric %q: too many components", raw)
	}
	var v Numeric
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return Numeric{}, fmt.Errorf("version: parse numeric %q: invalid component %q", raw, f)
		}
		v.parts[i] = n
	}
	v.n = len(fields)
	return v, nil
}

// MustParseNumeric is like ParseNumeric but panics on error.
func MustParseNumeric(raw string) Numeric {
	v, err := ParseNumeric(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v is the zero value (never parsed).
func (v Numeric) IsZero() bool { return v.n == 0 }

// Major returns the first component.
func (v Numeric) Major() int { return v.parts[0] }

// Minor returns the second component.
func (v Numeric) Minor() int { return v.parts[1] }

// Compare returns -1, 0 or 1. Missing components compare as zero, so
// "8.0" == "8.0.0.0".
func (v Numeric) Compare(o Numeric) int {
	for i := range v.parts {
		switch {
		case v.parts[i] < o.parts[i]:
			return -1
		case v.parts[i] > o.parts[i]:
			return 1
		}
	}
	return 0
}

// Normalize strips trailing zero build and revision components, never going
// below major.minor: "8.0.0.0" → "8.0", "8.0.1.0" → "8.0.1".
func (v Numeric) Normalize() Numeric {
	out := v
	out.n = 4
	for out.n > 2 && out.parts[out.n-1] == 0 {
		out.n--
	}
	return out
}

// String renders the components that were present.
func (v Numeric) String() string {
	if v.n == 0 {
		return ""
	}
	parts := make([]string, v.n)
	for i := range v.n {
		parts[i] = strconv.Itoa(v.parts[i])
	}
	return strings.Join(parts, ".")
}

// CompareNumericStrings parses and compares two numeric versions. The second
// return value is false if either side does not parse.
func CompareNumericStrings(a, b string) (int, bool) {
	va, err := ParseNumeric(a)
	if err != nil {
		return 0, false
	}
	vb, err := ParseNumeric(b)
	if err != nil {
		return 0, false
	}
	return va.Compare(vb), true
}

// Semantic is a package version.
type Semantic struct {
	raw     string
	v       *mm.Version
	numeric Numeric // set for four-part versions Masterminds cannot parse
}

// ParseSemantic parses a package version such as "8.0.1", "9.0.0-preview.3.24172.9"
// or the legacy four-part "4.3.0.1".
func ParseSemantic(raw string) (Semantic, error) {
	s := strings.TrimSpace(raw)
	v, err := mm.NewVersion(s)
	if err == nil {
		return Semantic{raw: s, v: v}, nil
	}
	if n, nerr := ParseNumeric(s); nerr == nil {
		return Semantic{raw: s, numeric: n}, nil
	}
	return Semantic{}, fmt.Errorf("version: parse %q: %w", raw, err)
}

// MustParseSemantic is like ParseSemantic but panics on error.
func MustParseSemantic(raw string) Semantic {
	v, err := ParseSemantic(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v is the zero value.
func (v Semantic) IsZero() bool { return v.v == nil && v.numeric.IsZero() }

// IsPrerelease reports whether v carries a prerelease label.
func (v Semantic) IsPrerelease() bool { return v.v != nil && v.v.Prerelease() != "" }

// Major returns the major component.
func (v Semantic) Major() int {
	if v.v != nil {
		return int(v.v.Major())
	}
	return v.numeric.Major()
}

// Minor returns the minor component.
func (v Semantic) Minor() int {
	if v.v != nil {
		return int(v.v.Minor())
	}
	return v.numeric.Minor()
}

// Patch returns the patch component.
func (v Semantic) Patch() int {
	if v.v != nil {
		return int(v.v.Patch())
	}
	return v.numeric.parts[2]
}

// Prerelease returns the prerelease label without the leading '-'.
func (v Semantic) Prerelease() string {
	if v.v == nil {
		return ""
	}
	return v.v.Prerelease()
}

// String returns the version as it was given.
func (v Semantic) String() string { return v.raw }

// Compare returns -1, 0 or 1. Zero values sort lowest.
func (v Semantic) Compare(o Semantic) int {
	switch {
	case v.IsZero() && o.IsZero():
		return 0
	case v.IsZero():
		return -1
	case o.IsZero():
		return 1
	case v.v != nil && o.v != nil:
		return v.v.Compare(o.v)
	}
	if c := v.asNumeric().Compare(o.asNumeric()); c != 0 {
		return c
	}
	// Same numeric value: a prerelease sorts before its release.
	switch {
	case v.IsPrerelease() && !o.IsPrerelease():
		return -1
	case !v.IsPrerelease() && o.IsPrerelease():
		return 1
	}
	return 0
}

// AtLeast reports whether v >= min.
func (v Semantic) AtLeast(min Semantic) bool { return v.Compare(min) >= 0 }

func (v Semantic) asNumeric() Numeric {
	if v.v == nil {
		return v.numeric
	}
	return Numeric{parts: [4]int{int(v.v.Major()), int(v.v.Minor()), int(v.v.Patch())}, n: 3}
}

// Latest returns the highest version in candidates, skipping prereleases
// unless includePrerelease is set. If several are equal, the first wins.
func Latest(candidates []Semantic, includePrerelease bool) (Semantic, bool) {
	var best Semantic
	found := false
	for _, c := range candidates {
		if c.IsPrerelease() && !includePrerelease {
			continue
		}
		if !found || c.Compare(best) > 0 {
			best = c
			found = true
		}
	}
	return best, found
}
