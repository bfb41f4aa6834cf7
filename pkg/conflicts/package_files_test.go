package conflicts

import (
	"testing"

	"github.com/matzehuels/packforge/pkg/errors"
)

func TestPlatformBeatsReference(t *testing.T) {
	ref := &Item{SourcePath: "/nuget/pkgx/1.0.0/lib/net8.0/Foo.dll", Type: Reference, PackageID: "pkgX", AssemblyVersion: "1.0.0.0"}
	plat := &Item{SourcePath: "Foo.dll", Type: Platform, PackageID: "pkgY", AssemblyVersion: "0.9.0.0"}

	out, err := ResolvePackageFileConflicts(Input{
		References:    []*Item{ref},
		PlatformItems: []*Item{plat},
	})
	if err != nil {
		t.Fatalf("ResolvePackageFileConflicts: %v", err)
	}
	if len(out.ReferencesWithoutConflicts) != 0 {
		t.Errorf("ReferencesWithoutConflicts = %v, want none", out.ReferencesWithoutConflicts)
	}
	if len(out.Conflicts) != 1 {
		t.Fatalf("Conflicts = %v, want 1", out.Conflicts)
	}
	c := out.Conflicts[0]
	if c.Item != ref || c.Type != Reference || c.PackageID != "pkgX" || c.Winner != plat {
		t.Errorf("conflict = %+v", c)
	}
	if len(out.CompilePlatformWinners) != 1 || out.CompilePlatformWinners[0] != plat {
		t.Errorf("CompilePlatformWinners = %v, want [%v]", out.CompilePlatformWinners, plat)
	}
}

func TestOverrideLetsReferenceBeatPlatform(t *testing.T) {
	ref := &Item{SourcePath: "lib/Foo.dll", Type: Reference, PackageID: "Foo", PackageVersion: "9.0.1", AssemblyVersion: "9.0.0.0"}
	plat := &Item{SourcePath: "Foo.dll", Type: Platform, PackageID: "Microsoft.NETCore.App.Ref", AssemblyVersion: "8.0.0.0"}

	out, err := ResolvePackageFileConflicts(Input{
		References:    []*Item{ref},
		PlatformItems: []*Item{plat},
		Overrides: []PackageOverride{{
			OverriddenPackageID:      "Microsoft.NETCore.App.Ref",
			OverridingPackageID:      "Foo",
			MinimumOverridingVersion: "9.0.0",
		}},
	})
	if err != nil {
		t.Fatalf("ResolvePackageFileConflicts: %v", err)
	}
	if len(out.ReferencesWithoutConflicts) != 1 || out.ReferencesWithoutConflicts[0] != ref {
		t.Errorf("ReferencesWithoutConflicts = %v, want [%v]", out.ReferencesWithoutConflicts, ref)
	}
	if len(out.CompilePlatformWinners) != 0 {
		t.Errorf("CompilePlatformWinners = %v, want none", out.CompilePlatformWinners)
	}
	if len(out.Conflicts) != 1 || out.Conflicts[0].Item != plat || out.Conflicts[0].Reason != ReasonPackageOverride {
		t.Errorf("Conflicts = %+v", out.Conflicts)
	}
}

func TestRuntimeLoserStaysForCompile(t *testing.T) {
	ref := &Item{SourcePath: "r/Foo.dll", Type: Reference, PackageID: "R", FileVersion: "1.0.0.0", Private: true}
	local := &Item{SourcePath: "s/runtimes/Foo.dll", DestinationSubPath: "Foo.dll", Type: CopyLocal, PackageID: "S", FileVersion: "2.0.0.0"}
	olderLocal := &Item{SourcePath: "t/Foo.dll", DestinationSubPath: "foo.dll", Type: CopyLocal, PackageID: "T", FileVersion: "1.5.0.0"}

	out, err := ResolvePackageFileConflicts(Input{
		References: []*Item{ref},
		CopyLocal:  []*Item{olderLocal, local},
	})
	if err != nil {
		t.Fatalf("ResolvePackageFileConflicts: %v", err)
	}

	if len(out.ReferencesWithoutConflicts) != 1 {
		t.Fatalf("ReferencesWithoutConflicts = %v, want 1 item", out.ReferencesWithoutConflicts)
	}
	got := out.ReferencesWithoutConflicts[0]
	if got == ref {
		t.Error("demoted reference must be a copy, not the input item")
	}
	if got.Private {
		t.Error("runtime loser is still copy-local")
	}
	if !ref.Private {
		t.Error("input item was mutated")
	}
	if len(out.CopyLocalWithoutConflicts) != 1 || out.CopyLocalWithoutConflicts[0] != local {
		t.Errorf("CopyLocalWithoutConflicts = %v, want [%v]", out.CopyLocalWithoutConflicts, local)
	}
	if len(out.Conflicts) != 2 {
		t.Errorf("Conflicts = %+v, want 2", out.Conflicts)
	}
}

func TestAnalyzerPass(t *testing.T) {
	a1 := &Item{SourcePath: "a/analyzers/dotnet/cs/Gen.dll", Type: Analyzer, PackageID: "A", AssemblyVersion: "1.0"}
	a2 := &Item{SourcePath: "b/analyzers/dotnet/cs/gen.dll", Type: Analyzer, PackageID: "B", AssemblyVersion: "2.0"}
	a3 := &Item{SourcePath: "b/analyzers/dotnet/cs/Other.dll", Type: Analyzer, PackageID: "B"}

	out, err := ResolvePackageFileConflicts(Input{Analyzers: []*Item{a1, a2, a3}})
	if err != nil {
		t.Fatalf("ResolvePackageFileConflicts: %v", err)
	}
	want := []*Item{a2, a3}
	if len(out.AnalyzersWithoutConflicts) != len(want) {
		t.Fatalf("AnalyzersWithoutConflicts = %v, want %v", out.AnalyzersWithoutConflicts, want)
	}
	for i := range want {
		if out.AnalyzersWithoutConflicts[i] != want[i] {
			t.Errorf("AnalyzersWithoutConflicts[%d] = %v, want %v", i, out.AnalyzersWithoutConflicts[i], want[i])
		}
	}
}

func TestNoConflictsPreservesInput(t *testing.T) {
	a := &Item{SourcePath: "A.dll", Type: Reference}
	b := &Item{SourcePath: "B.dll", Type: Reference}
	out, err := ResolvePackageFileConflicts(Input{References: []*Item{a, b, a}})
	if err != nil {
		t.Fatalf("ResolvePackageFileConflicts: %v", err)
	}
	if len(out.Conflicts) != 0 {
		t.Errorf("Conflicts = %v, want none", out.Conflicts)
	}
	if len(out.ReferencesWithoutConflicts) != 3 {
		t.Errorf("ReferencesWithoutConflicts = %v, want 3 items", out.ReferencesWithoutConflicts)
	}
}

func TestInvalidOverrideVersion(t *testing.T) {
	_, err := ResolvePackageFileConflicts(Input{
		Overrides: []PackageOverride{{OverriddenPackageID: "A", OverridingPackageID: "B", MinimumOverridingVersion: "not-a-version"}},
	})
	if !errors.Is(err, errors.ErrCodeInvalidVersion) {
		t.Errorf("err = %v, want %s", err, errors.ErrCodeInvalidVersion)
	}
}

func TestRemoveConflicts(t *testing.T) {
	a := &Item{SourcePath: "a"}
	b := &Item{SourcePath: "b"}
	c := &Item{SourcePath: "c"}
	twin := &Item{SourcePath: "b"}

	t.Run("removes every occurrence and keeps order", func(t *testing.T) {
		got, err := RemoveConflicts([]*Item{a, b, c, b, twin}, []*Item{b})
		if err != nil {
			t.Fatalf("RemoveConflicts: %v", err)
		}
		want := []*Item{a, c, twin}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("got[%d] = %p, want %p", i, got[i], want[i])
			}
		}
	})

	t.Run("repeated instance", func(t *testing.T) {
		got, err := RemoveConflicts([]*Item{a, a, c}, []*Item{a})
		if err != nil {
			t.Fatalf("RemoveConflicts: %v", err)
		}
		if len(got) != 1 || got[0] != c {
			t.Errorf("got %v, want only c", got)
		}
	})

	t.Run("nothing excluded", func(t *testing.T) {
		in := []*Item{a, b}
		got, err := RemoveConflicts(in, nil)
		if err != nil {
			t.Fatalf("RemoveConflicts: %v", err)
		}
		if len(got) != 2 || got[0] != a || got[1] != b {
			t.Errorf("got %v", got)
		}
		got[0] = c
		if in[0] != a {
			t.Error("result aliases the input slice")
		}
	})

	t.Run("excluded item not present", func(t *testing.T) {
		_, err := RemoveConflicts([]*Item{a, b}, []*Item{c})
		if !errors.Is(err, errors.ErrCodeContractViolation) {
			t.Errorf("err = %v, want %s", err, errors.ErrCodeContractViolation)
		}
	})
}
