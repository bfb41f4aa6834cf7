package framework

import (
	"strings"
	"testing"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/version"
)

func TestParseTargetFramework(t *testing.T) {
	tests := []struct {
		in       string
		id       string
		version  string
		platform string
	}{
		{"net8.0", NETCoreApp, "8.0", ""},
		{"net8.0-windows", NETCoreApp, "8.0", "windows"},
		{"NET10.0", NETCoreApp, "10.0", ""},
		{"netcoreapp3.1", NETCoreApp, "3.1", ""},
		{"netstandard2.0", NETStandard, "2.0", ""},
		{"net472", NETFramework, "4.7.2", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tf, err := ParseTargetFramework(tt.in)
			if err != nil {
				t.Fatalf("ParseTargetFramework: %v", err)
			}
			if tf.Identifier != tt.id || tf.Version.String() != tt.version || tf.Platform != tt.platform {
				t.Errorf("got %+v", tf)
			}
		})
	}

	for _, bad := range []string{"", "net", "monoandroid", "netx.y"} {
		if _, err := ParseTargetFramework(bad); err == nil {
			t.Errorf("ParseTargetFramework(%q) succeeded", bad)
		}
	}
}

func TestTargetFrameworkMatchesNormalizedVersion(t *testing.T) {
	a, _ := ParseTargetFramework("netcoreapp3.1")
	b := TargetFramework{Identifier: NETCoreApp, Version: mustNumeric(t, "3.1.0.0")}
	if !a.Matches(b) {
		t.Error("3.1 and 3.1.0.0 should match")
	}
	c, _ := ParseTargetFramework("netstandard3.1")
	if a.Matches(c) {
		t.Error("different identifiers must not match")
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", `
[[runtime_pack]]
runtime_framework_name = "A"
target_framework = "net8.0"
name_pattern = "A.Runtime.**RID**"
color = "blue"
`},
		{"pattern without token", `
[[runtime_pack]]
runtime_framework_name = "A"
target_framework = "net8.0"
name_pattern = "A.Runtime"
runtime_identifiers = ["linux-x64"]
`},
		{"bad target framework", `
[[crossgen_pack]]
target_framework = "wat"
name_pattern = "C.**RID**"
version = "1.0.0"
`},
		{"bad version", `
[[framework_reference]]
name = "A"
runtime_framework_name = "A"
target_framework = "net8.0"
default_runtime_framework_version = "eight"
`},
		{"missing default version", `
[[framework_reference]]
name = "A"
runtime_framework_name = "A"
target_framework = "net8.0"
`},
		{"not toml", `[[framework_reference`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(strings.NewReader(tt.doc))
			if !errors.Is(err, errors.ErrCodeInvalidCatalog) {
				t.Errorf("err = %v, want %s", err, errors.ErrCodeInvalidCatalog)
			}
		})
	}
}

func TestNewCatalogCopiesEntries(t *testing.T) {
	refs := []KnownFrameworkReference{{
		Name:                           "A",
		TargetFramework:                "net8.0",
		RuntimeFrameworkName:           "A",
		DefaultRuntimeFrameworkVersion: "8.0.0",
	}}
	c, err := NewCatalog(refs, nil, nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	refs[0].Name = "B"
	tfm, _ := ParseTargetFramework("net8.0")
	if _, ok := c.frameworkReference("a", tfm); !ok {
		t.Error("catalog entry changed with the caller's slice")
	}
}

func mustNumeric(t *testing.T, s string) version.Numeric {
	t.Helper()
	v, err := version.ParseNumeric(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
