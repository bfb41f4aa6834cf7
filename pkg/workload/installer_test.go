package workload

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/packforge/pkg/errors"
)

var (
	band8  = MustParseFeatureBand("8.0.100")
	sdkA   = PackInfo{ID: "Pack.Sdk.A", Version: "1.0.0", Kind: KindSdk}
	libB   = PackInfo{ID: "Pack.Lib.B", Version: "2.0.0", Kind: KindLibrary}
	tmplC  = PackInfo{ID: "Pack.Templates.C", Version: "3.0.0", Kind: KindTemplate}
	absent = PackInfo{ID: "Pack.Missing", Version: "1.0.0", Kind: KindSdk}
)

func newInstaller(t *testing.T, packs ...PackInfo) *Installer {
	t.Helper()
	return &Installer{Root: t.TempDir(), Fetcher: feedWith(t, packs...), Logger: quiet}
}

func install(t *testing.T, in *Installer, band FeatureBand, offlineCache string, packs ...PackInfo) error {
	t.Helper()
	return RunInTransaction(context.Background(), quiet, func(ctx context.Context, tx *Transaction) error {
		return in.InstallWorkloadPacks(ctx, packs, band, tx, offlineCache)
	})
}

func TestInstallWorkloadPacks(t *testing.T) {
	in := newInstaller(t, sdkA, tmplC)
	if err := install(t, in, band8, "", sdkA, tmplC); err != nil {
		t.Fatalf("install: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(sdkA.Path(in.Root), "data", "Pack.Sdk.A.txt"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(data) != sdkA.String() {
		t.Errorf("extracted content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(sdkA.Path(in.Root), "_rels")); !os.IsNotExist(err) {
		t.Error("package metadata was extracted")
	}
	if fi, err := os.Stat(tmplC.Path(in.Root)); err != nil || fi.IsDir() {
		t.Errorf("template archive not copied: %v", err)
	}

	refs, err := in.GetInstalledPacks(band8)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || !containsRef(refs, sdkA.ID) || !containsRef(refs, tmplC.ID) {
		t.Errorf("installed = %v", refs)
	}
	if refs, _ := in.GetInstalledPacks(MustParseFeatureBand("8.0.200")); len(refs) != 0 {
		t.Errorf("other band sees %v", refs)
	}
	if entries, _ := os.ReadDir(filepath.Join(in.Root, ".staging")); len(entries) != 0 {
		t.Errorf("staging not cleaned: %d entries", len(entries))
	}
}

func TestInstallIsAllOrNothing(t *testing.T) {
	in := newInstaller(t, sdkA)
	err := install(t, in, band8, "", sdkA, absent)
	if !errors.Is(err, errors.ErrCodeInstallFailed) {
		t.Fatalf("err = %v, want %s", err, errors.ErrCodeInstallFailed)
	}
	if _, err := os.Stat(sdkA.Path(in.Root)); !os.IsNotExist(err) {
		t.Error("first pack survived rollback")
	}
	refs, err := in.GetInstalledPacks(band8)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 0 {
		t.Errorf("records survived rollback: %v", refs)
	}
	entries, _ := snapshotRecords(in.Root)
	for _, e := range entries {
		t.Errorf("leftover record file %s", e.path)
	}
}

func TestInstallSecondBandReusesPack(t *testing.T) {
	in := newInstaller(t, sdkA)
	if err := install(t, in, band8, "", sdkA); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(sdkA.Path(in.Root), "marker")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	band9 := MustParseFeatureBand("9.0.100")
	if err := install(t, in, band9, "", sdkA); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Error("pack was re-extracted for a second band")
	}
	for _, b := range []FeatureBand{band8, band9} {
		if refs, _ := in.GetInstalledPacks(b); !containsRef(refs, sdkA.ID) {
			t.Errorf("band %s missing record", b)
		}
	}
}

func TestInstallRejectsCorruptOfflineArchive(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, path string)
	}{
		{"not a zip", func(t *testing.T, path string) {
			if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
				t.Fatal(err)
			}
		}},
		{"hash mismatch", func(t *testing.T, path string) {
			writeArchive(t, path, map[string]string{"a.txt": "a"})
			if err := os.WriteFile(path+hashSuffix, []byte("AAAA"), 0o644); err != nil {
				t.Fatal(err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := t.TempDir()
			tt.write(t, filepath.Join(cache, archiveName(sdkA.ID, sdkA.Version)))
			in := &Installer{Root: t.TempDir(), Logger: quiet}
			err := install(t, in, band8, cache, sdkA)
			if err == nil || !strings.Contains(err.Error(), string(errors.ErrCodeCorruptCacheEntry)) {
				t.Fatalf("err = %v, want %s", err, errors.ErrCodeCorruptCacheEntry)
			}
			if _, err := os.Stat(sdkA.Path(in.Root)); !os.IsNotExist(err) {
				t.Error("corrupt archive was installed")
			}
		})
	}
}

func TestInstallFromOfflineCache(t *testing.T) {
	in := newInstaller(t, sdkA)
	cache := t.TempDir()
	if _, err := in.DownloadToOfflineCache(context.Background(), sdkA, cache, false); err != nil {
		t.Fatal(err)
	}

	offline := &Installer{Root: t.TempDir(), Logger: quiet}
	if err := install(t, offline, band8, cache, sdkA); err != nil {
		t.Fatalf("offline install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sdkA.Path(offline.Root), "data", "Pack.Sdk.A.txt")); err != nil {
		t.Error(err)
	}

	err := install(t, offline, band8, cache, libB)
	if err == nil || !strings.Contains(err.Error(), string(errors.ErrCodeNotFound)) {
		t.Errorf("missing offline archive err = %v", err)
	}
}

func repair(t *testing.T, in *Installer, p PackInfo) error {
	t.Helper()
	return RunInTransaction(context.Background(), quiet, func(ctx context.Context, tx *Transaction) error {
		return in.RepairWorkloadPack(ctx, p, band8, tx, "")
	})
}

func TestRepairIsIdempotent(t *testing.T) {
	in := newInstaller(t, sdkA)
	if err := install(t, in, band8, "", sdkA); err != nil {
		t.Fatal(err)
	}
	dir := sdkA.Path(in.Root)
	clean := snapshotTree(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "data", "Pack.Sdk.A.txt"), []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "tools", "readme.md")); err != nil {
		t.Fatal(err)
	}

	if err := repair(t, in, sdkA); err != nil {
		t.Fatalf("first repair: %v", err)
	}
	once := snapshotTree(t, dir)
	if !equalTrees(once, clean) {
		t.Errorf("repair did not restore content: %v", once)
	}
	if err := repair(t, in, sdkA); err != nil {
		t.Fatalf("second repair: %v", err)
	}
	if twice := snapshotTree(t, dir); !equalTrees(twice, once) {
		t.Errorf("second repair changed files: %v", twice)
	}
	if refs, _ := in.GetInstalledPacks(band8); len(refs) != 1 {
		t.Errorf("records after repair = %v", refs)
	}
}

func TestRepairRollbackRestoresPreviousContent(t *testing.T) {
	in := newInstaller(t, sdkA)
	if err := install(t, in, band8, "", sdkA); err != nil {
		t.Fatal(err)
	}
	dir := sdkA.Path(in.Root)
	target := filepath.Join(dir, "data", "Pack.Sdk.A.txt")
	if err := os.WriteFile(target, []byte("local edit"), 0o644); err != nil {
		t.Fatal(err)
	}

	tx := NewTransaction(quiet)
	if err := in.RepairWorkloadPack(context.Background(), sdkA, band8, tx, ""); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "local edit" {
		t.Errorf("after rollback content = %q, %v", data, err)
	}
	if refs, _ := in.GetInstalledPacks(band8); len(refs) != 1 {
		t.Errorf("record lost on rollback: %v", refs)
	}
}

func TestRepairCommitFailureRestoresPreviousContent(t *testing.T) {
	in := newInstaller(t, sdkA)
	if err := install(t, in, band8, "", sdkA); err != nil {
		t.Fatal(err)
	}
	dir := sdkA.Path(in.Root)
	target := filepath.Join(dir, "data", "Pack.Sdk.A.txt")
	if err := os.WriteFile(target, []byte("local edit"), 0o644); err != nil {
		t.Fatal(err)
	}
	before := snapshotTree(t, dir)

	tx := NewTransaction(quiet)
	if err := in.RepairWorkloadPack(context.Background(), sdkA, band8, tx, ""); err != nil {
		t.Fatal(err)
	}
	boom := stderrors.New("record store unavailable")
	tx.OnCommit(func() error { return boom })
	if err := tx.Commit(); !stderrors.Is(err, boom) {
		t.Fatalf("Commit() = %v, want %v", err, boom)
	}
	if after := snapshotTree(t, dir); !equalTrees(after, before) {
		t.Errorf("content after failed commit = %v, want %v", after, before)
	}
	if refs, _ := in.GetInstalledPacks(band8); len(refs) != 1 {
		t.Errorf("record lost on failed commit: %v", refs)
	}
}

func TestUninstallCommitFailureKeepsWorkload(t *testing.T) {
	in := newInstaller(t, sdkA)
	err := RunInTransaction(context.Background(), quiet, func(_ context.Context, tx *Transaction) error {
		return in.RecordWorkloadInstalled(band8, "wasm-tools", tx)
	})
	if err != nil {
		t.Fatal(err)
	}

	tx := NewTransaction(quiet)
	if err := in.UninstallWorkload(band8, "wasm-tools", tx); err != nil {
		t.Fatal(err)
	}
	boom := stderrors.New("boom")
	tx.OnCommit(func() error { return boom })
	if err := tx.Commit(); !stderrors.Is(err, boom) {
		t.Fatalf("Commit() = %v, want %v", err, boom)
	}
	got, err := in.InstalledWorkloads(band8)
	if err != nil || len(got) != 1 || got[0] != "wasm-tools" {
		t.Errorf("InstalledWorkloads() = %v, %v; want [wasm-tools]", got, err)
	}
}

func TestRepairNotInstalled(t *testing.T) {
	in := newInstaller(t, sdkA)
	err := repair(t, in, sdkA)
	if !errors.Is(err, errors.ErrCodeNotInstalled) {
		t.Errorf("err = %v, want %s", err, errors.ErrCodeNotInstalled)
	}
}

func TestRecordWorkloadInstalled(t *testing.T) {
	in := newInstaller(t)
	tx := NewTransaction(quiet)
	if err := in.RecordWorkloadInstalled(band8, "wasm-tools", tx); err != nil {
		t.Fatal(err)
	}
	if ids, _ := in.InstalledWorkloads(band8); len(ids) != 0 {
		t.Errorf("marker visible before commit: %v", ids)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	ids, err := in.InstalledWorkloads(band8)
	if err != nil || len(ids) != 1 || ids[0] != "wasm-tools" {
		t.Errorf("InstalledWorkloads = %v, %v", ids, err)
	}

	err = RunInTransaction(context.Background(), quiet, func(_ context.Context, tx *Transaction) error {
		return in.UninstallWorkload(band8, "wasm-tools", tx)
	})
	if err != nil {
		t.Fatal(err)
	}
	if ids, _ := in.InstalledWorkloads(band8); len(ids) != 0 {
		t.Errorf("marker left after uninstall: %v", ids)
	}
}

func TestConcurrentInstallsOfSamePack(t *testing.T) {
	in := newInstaller(t, sdkA)
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		band := MustParseFeatureBand([]string{"8.0.100", "8.0.200", "8.0.300", "8.0.400"}[i])
		go func() { errs <- install(t, in, band, "", sdkA) }()
	}
	for i := 0; i < 4; i++ {
		if err := <-errs; err != nil {
			t.Errorf("install: %v", err)
		}
	}
	entries, err := snapshotRecords(in.Root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("records = %d, want 4", len(entries))
	}
}
