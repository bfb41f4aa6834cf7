package framework

import (
	"strings"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/version"
)

// Target framework identifiers.
const (
	NETCoreApp   = ".NETCoreApp"
	NETStandard  = ".NETStandard"
	NETFramework = ".NETFramework"
)

// TargetFramework is a parsed short target framework moniker such as
// "net8.0", "net8.0-windows" or "netstandard2.1".
type TargetFramework struct {
	Identifier string
	Version    version.Numeric
	Platform   string // e.g. "windows", "" if none
	moniker    string
}

// ParseTargetFramework parses a short target framework moniker.
func ParseTargetFramework(moniker string) (TargetFramework, error) {
	s := strings.ToLower(strings.TrimSpace(moniker))
	base, platform, _ := strings.Cut(s, "-")

	var prefix string
	for _, p := range []string{"netcoreapp", "netstandard", "net"} {
		if strings.HasPrefix(base, p) {
			prefix = p
			break
		}
	}
	if prefix == "" {
		return TargetFramework{}, errors.New(errors.ErrCodeInvalidInput, "unsupported target framework %q", moniker)
	}
	raw := base[len(prefix):]
	if raw == "" {
		return TargetFramework{}, errors.New(errors.ErrCodeInvalidInput, "target framework %q has no version", moniker)
	}

	id := NETCoreApp
	switch prefix {
	case "netstandard":
		id = NETStandard
	case "net":
		// net48 and friends spell the version without dots.
		if !strings.Contains(raw, ".") {
			id = NETFramework
			raw = strings.Join(strings.Split(raw, ""), ".")
		}
	}
	v, err := version.ParseNumeric(raw)
	if err != nil {
		return TargetFramework{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "target framework %q", moniker)
	}
	return TargetFramework{Identifier: id, Version: v, Platform: platform, moniker: s}, nil
}

// Matches reports whether both monikers name the same framework: same
// identifier and the same normalized version. Platforms are ignored.
func (tf TargetFramework) Matches(o TargetFramework) bool {
	return tf.Identifier == o.Identifier && tf.Version.Normalize().Compare(o.Version.Normalize()) == 0
}

func (tf TargetFramework) String() string {
	if tf.moniker != "" {
		return tf.moniker
	}
	return tf.Identifier + ",Version=v" + tf.Version.Normalize().String()
}
