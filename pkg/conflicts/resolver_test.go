package conflicts

import (
	"testing"
)

func mustIndex(t *testing.T, overrides ...PackageOverride) *OverrideIndex {
	t.Helper()
	idx, err := NewOverrideIndex(overrides)
	if err != nil {
		t.Fatalf("NewOverrideIndex: %v", err)
	}
	return idx
}

func TestChoose(t *testing.T) {
	overrides := []PackageOverride{
		{OverriddenPackageID: "Pkg.B", OverridingPackageID: "Pkg.A", MinimumOverridingVersion: "1.0.0"},
		{OverriddenPackageID: "Pkg.C", OverridingPackageID: "Pkg.B", MinimumOverridingVersion: "1.0.0"},
	}

	tests := []struct {
		name       string
		first      *Item
		second     *Item
		preferred  []string
		wantSecond bool
		wantReason Reason
	}{
		{
			name:       "override beats version",
			first:      &Item{SourcePath: "b/Foo.dll", PackageID: "Pkg.B", AssemblyVersion: "9.0.0.0"},
			second:     &Item{SourcePath: "a/Foo.dll", PackageID: "pkg.a", PackageVersion: "2.0.0", AssemblyVersion: "1.0.0.0"},
			wantSecond: true,
			wantReason: ReasonPackageOverride,
		},
		{
			name:       "override beats platform",
			first:      &Item{SourcePath: "Foo.dll", Type: Platform, PackageID: "Pkg.B"},
			second:     &Item{SourcePath: "a/Foo.dll", PackageID: "Pkg.A", PackageVersion: "1.0.0"},
			wantSecond: true,
			wantReason: ReasonPackageOverride,
		},
		{
			name:       "override below minimum is ignored",
			first:      &Item{SourcePath: "b/Foo.dll", PackageID: "Pkg.B", AssemblyVersion: "9.0.0.0"},
			second:     &Item{SourcePath: "a/Foo.dll", PackageID: "Pkg.A", PackageVersion: "0.9.0", AssemblyVersion: "1.0.0.0"},
			wantSecond: false,
			wantReason: ReasonAssemblyVersion,
		},
		{
			name:       "overrides are one hop",
			first:      &Item{SourcePath: "c/Foo.dll", PackageID: "Pkg.C", AssemblyVersion: "2.0.0.0"},
			second:     &Item{SourcePath: "a/Foo.dll", PackageID: "Pkg.A", PackageVersion: "5.0.0", AssemblyVersion: "1.0.0.0"},
			wantSecond: false,
			wantReason: ReasonAssemblyVersion,
		},
		{
			name:       "platform beats reference",
			first:      &Item{SourcePath: "x/Foo.dll", PackageID: "X", AssemblyVersion: "1.0.0.0"},
			second:     &Item{SourcePath: "Foo.dll", Type: Platform, PackageID: "Y", AssemblyVersion: "0.9.0.0"},
			wantSecond: true,
			wantReason: ReasonPlatform,
		},
		{
			name:       "preferred package beats version",
			first:      &Item{SourcePath: "p/Foo.dll", PackageID: "P", AssemblyVersion: "2.0.0.0"},
			second:     &Item{SourcePath: "q/Foo.dll", PackageID: "Q", AssemblyVersion: "1.0.0.0"},
			preferred:  []string{"q", "p"},
			wantSecond: true,
			wantReason: ReasonPreferredPackage,
		},
		{
			name:       "listed preferred package beats unlisted",
			first:      &Item{SourcePath: "p/Foo.dll", PackageID: "P", AssemblyVersion: "2.0.0.0"},
			second:     &Item{SourcePath: "q/Foo.dll", PackageID: "Q"},
			preferred:  []string{"Q"},
			wantSecond: true,
			wantReason: ReasonPreferredPackage,
		},
		{
			name:       "higher assembly version",
			first:      &Item{SourcePath: "p/Foo.dll", AssemblyVersion: "4.0.0.0", FileVersion: "9.0.0.0"},
			second:     &Item{SourcePath: "q/Foo.dll", AssemblyVersion: "4.1.0.0", FileVersion: "1.0.0.0"},
			wantSecond: true,
			wantReason: ReasonAssemblyVersion,
		},
		{
			name:       "file version when assembly version is one-sided",
			first:      &Item{SourcePath: "p/Foo.dll", AssemblyVersion: "4.0.0.0", FileVersion: "1.0.0.0"},
			second:     &Item{SourcePath: "q/Foo.dll", FileVersion: "1.2.0.0"},
			wantSecond: true,
			wantReason: ReasonFileVersion,
		},
		{
			name:       "equal versions keep first",
			first:      &Item{SourcePath: "p/Foo.dll", AssemblyVersion: "4.0.0.0", FileVersion: "1.0.0.0"},
			second:     &Item{SourcePath: "q/Foo.dll", AssemblyVersion: "4.0", FileVersion: "1.0.0.0"},
			wantSecond: false,
			wantReason: ReasonInputOrder,
		},
		{
			name:       "no information keeps first",
			first:      &Item{SourcePath: "p/Foo.dll"},
			second:     &Item{SourcePath: "q/Foo.dll"},
			wantSecond: false,
			wantReason: ReasonInputOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(mustIndex(t, overrides...), tt.preferred, nil)
			winner, reason := r.Choose(tt.first, tt.second)
			want := tt.first
			if tt.wantSecond {
				want = tt.second
			}
			if winner != want {
				t.Errorf("winner = %v, want %v", winner, want)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %v, want %v", reason, tt.wantReason)
			}
		})
	}
}

func TestResolveSkipsSameInstance(t *testing.T) {
	a := &Item{SourcePath: "a/Foo.dll"}
	r := NewResolver(nil, nil, nil)
	calls := 0
	r.Resolve([]*Item{a, a, a}, (*Item).ReferenceKey, func(_, _ *Item, _ Reason) { calls++ })
	if calls != 0 {
		t.Errorf("onLoser called %d times for a repeated instance", calls)
	}
}

func TestResolveKeepsRunningWinner(t *testing.T) {
	low := &Item{SourcePath: "1/Foo.dll", AssemblyVersion: "1.0.0.0"}
	high := &Item{SourcePath: "2/foo.DLL", AssemblyVersion: "3.0.0.0"}
	mid := &Item{SourcePath: "3/Foo.dll", AssemblyVersion: "2.0.0.0"}
	other := &Item{SourcePath: "3/Bar.dll", AssemblyVersion: "0.1.0.0"}

	var losers []*Item
	r := NewResolver(nil, nil, nil)
	r.Resolve([]*Item{low, other, high, mid}, (*Item).ReferenceKey, func(winner, loser *Item, _ Reason) {
		if winner != high {
			t.Errorf("winner = %v, want %v", winner, high)
		}
		losers = append(losers, loser)
	})
	if len(losers) != 2 || losers[0] != low || losers[1] != mid {
		t.Errorf("losers = %v, want [%v %v]", losers, low, mid)
	}
}

func TestItemKeys(t *testing.T) {
	it := &Item{SourcePath: `C:\packages\foo\lib\Foo.Bar.DLL`, DestinationSubPath: `runtimes\win\Foo.Bar.dll`}
	if got := it.FileName(); got != "Foo.Bar.DLL" {
		t.Errorf("FileName() = %q", got)
	}
	if got := it.ReferenceKey(); got != "foo.bar" {
		t.Errorf("ReferenceKey() = %q", got)
	}
	if got := it.RuntimeKey(); got != "runtimes/win/foo.bar.dll" {
		t.Errorf("RuntimeKey() = %q", got)
	}
	it.DestinationSubPath = ""
	if got := it.RuntimeKey(); got != "foo.bar.dll" {
		t.Errorf("RuntimeKey() without destination = %q", got)
	}
}
