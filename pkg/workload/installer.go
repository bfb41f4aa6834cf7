package workload

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/observability"
)

// Installer places workload packs under Root and keeps installation records
// per feature band. Every mutating operation runs inside a caller-supplied
// [Transaction]; operations on different packs may run concurrently, while
// operations on the same pack serialize on the pack's lock.
type Installer struct {
	Root      string
	Fetcher   Fetcher
	Manifests *ManifestProvider
	Logger    *log.Logger
}

func (in *Installer) logger() *log.Logger {
	if in.Logger == nil {
		return log.Default()
	}
	return in.Logger
}

func (in *Installer) stagingDir() (string, error) {
	dir := filepath.Join(in.Root, ".staging")
	return dir, os.MkdirAll(dir, 0o755)
}

// InstallWorkloadPacks installs packs for band as one unit: records only
// become visible when tx commits. With offlineCache set, archives come from
// that directory and are verified first; a corrupt archive fails the
// install.
func (in *Installer) InstallWorkloadPacks(ctx context.Context, packs []PackInfo, band FeatureBand, tx *Transaction, offlineCache string) error {
	for _, p := range packs {
		start := time.Now()
		err := in.installPack(ctx, p, band, tx, offlineCache)
		observability.Install().OnPackOperation(ctx, "install", p.ID, time.Since(start), err)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInstallFailed, err, "install %s for band %s", p, band)
		}
	}
	return nil
}

func (in *Installer) installPack(ctx context.Context, p PackInfo, band FeatureBand, tx *Transaction, offlineCache string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.lock(in.Root, p); err != nil {
		return err
	}
	if exists(p.Path(in.Root)) {
		in.logger().Debug("pack already on disk", "pack", p, "band", band)
	} else {
		archive, err := in.acquire(ctx, tx, p, offlineCache)
		if err != nil {
			return err
		}
		if err := in.place(tx, p, archive); err != nil {
			return err
		}
		in.logger().Info("installed pack", "pack", p, "kind", p.Kind, "band", band)
	}
	return writeRecord(tx, in.Root, p, band)
}

// RepairWorkloadPack re-applies an installed pack from its archive. The old
// content is kept aside until tx commits and restored on rollback. Repairing
// twice leaves the same files as repairing once.
func (in *Installer) RepairWorkloadPack(ctx context.Context, p PackInfo, band FeatureBand, tx *Transaction, offlineCache string) error {
	start := time.Now()
	err := in.repairPack(ctx, p, band, tx, offlineCache)
	observability.Install().OnPackOperation(ctx, "repair", p.ID, time.Since(start), err)
	if err != nil && !errors.Is(err, errors.ErrCodeNotInstalled) {
		return errors.Wrap(errors.ErrCodeRepairFailed, err, "repair %s for band %s", p, band)
	}
	return err
}

func (in *Installer) repairPack(ctx context.Context, p PackInfo, band FeatureBand, tx *Transaction, offlineCache string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := tx.lock(in.Root, p); err != nil {
		return err
	}
	if !exists(recordPath(in.Root, p, band)) {
		return errors.New(errors.ErrCodeNotInstalled, "%s is not installed for band %s", p, band)
	}
	archive, err := in.acquire(ctx, tx, p, offlineCache)
	if err != nil {
		return err
	}
	if err := in.place(tx, p, archive); err != nil {
		return err
	}
	in.logger().Info("repaired pack", "pack", p, "band", band)
	return writeRecord(tx, in.Root, p, band)
}

// acquire returns the path of a verified archive for p.
func (in *Installer) acquire(ctx context.Context, tx *Transaction, p PackInfo, offlineCache string) (string, error) {
	name := archiveName(p.PackageID(), p.Version)
	if offlineCache != "" {
		archive := filepath.Join(offlineCache, name)
		if !exists(archive) {
			return "", errors.New(errors.ErrCodeNotFound, "%s is not in offline cache %s", name, offlineCache)
		}
		if err := verifyArchive(archive); err != nil {
			return "", err
		}
		return archive, nil
	}
	if in.Fetcher == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "no fetcher and no offline cache for %s", p)
	}
	staging, err := in.stagingDir()
	if err != nil {
		return "", err
	}
	tmp, err := os.MkdirTemp(staging, "fetch-")
	if err != nil {
		return "", err
	}
	cleanup := func() error { return os.RemoveAll(tmp) }
	tx.OnCommitted(cleanup)
	tx.OnRollback(cleanup)

	archive := filepath.Join(tmp, name)
	if err := in.Fetcher.Fetch(ctx, p.PackageID(), p.Version, archive); err != nil {
		return "", err
	}
	if err := verifyArchive(archive); err != nil {
		return "", err
	}
	return archive, nil
}

// place materializes archive at p's path. Existing content is moved aside
// and restored if tx rolls back.
func (in *Installer) place(tx *Transaction, p PackInfo, archive string) error {
	staging, err := in.stagingDir()
	if err != nil {
		return err
	}
	work, err := os.MkdirTemp(staging, "pack-")
	if err != nil {
		return err
	}
	// work holds the previous content until the transaction is decided.
	cleanup := func() error { return os.RemoveAll(work) }
	tx.OnCommitted(cleanup)
	tx.OnRollback(cleanup)

	staged := filepath.Join(work, "content")
	switch StrategyFor(p.Kind) {
	case StrategyExtract:
		if err := extractArchive(archive, staged); err != nil {
			return err
		}
	case StrategyCopyArchive:
		if err := copyFile(archive, staged); err != nil {
			return err
		}
	}

	final := p.Path(in.Root)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}
	if exists(final) {
		backup := filepath.Join(work, "previous")
		if err := os.Rename(final, backup); err != nil {
			return err
		}
		tx.OnRollback(func() error {
			if err := os.RemoveAll(final); err != nil {
				return err
			}
			return os.Rename(backup, final)
		})
	} else {
		tx.OnRollback(func() error { return os.RemoveAll(final) })
	}
	return os.Rename(staged, final)
}

// GetInstalledPacks lists the packs committed for band.
func (in *Installer) GetInstalledPacks(band FeatureBand) ([]PackRef, error) {
	entries, err := snapshotRecords(in.Root)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []PackRef
	for _, e := range entries {
		if e.pending || e.band != band.String() {
			continue
		}
		if key := e.pack.Key(); !seen[key] {
			seen[key] = true
			out = append(out, PackRef{ID: e.pack.ID, Version: e.pack.Version})
		}
	}
	sortRefs(out)
	return out, nil
}

// RecordWorkloadInstalled marks workloadID as installed for band once tx
// commits. Garbage collection keeps every pack an installed workload needs.
func (in *Installer) RecordWorkloadInstalled(band FeatureBand, workloadID string, tx *Transaction) error {
	if err := errors.ValidatePackageID(workloadID); err != nil {
		return err
	}
	dir := workloadMarkersDir(in.Root, band)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	final := filepath.Join(dir, workloadID)
	if exists(final) {
		return nil
	}
	pending := final + pendingSuffix
	tx.OnRollback(func() error {
		os.Remove(pending)
		if err := os.Remove(final); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	})
	if err := os.WriteFile(pending, nil, 0o644); err != nil {
		return err
	}
	tx.OnCommit(func() error { return os.Rename(pending, final) })
	return nil
}

// UninstallWorkload removes the marker for workloadID once tx commits. The
// packs stay until the next garbage collection.
func (in *Installer) UninstallWorkload(band FeatureBand, workloadID string, tx *Transaction) error {
	if err := errors.ValidatePackageID(workloadID); err != nil {
		return err
	}
	final := filepath.Join(workloadMarkersDir(in.Root, band), workloadID)
	if !exists(final) {
		return errors.New(errors.ErrCodeNotInstalled, "workload %s is not installed for band %s", workloadID, band)
	}
	removed := final + removedSuffix
	tx.OnRollback(func() error {
		if !exists(removed) {
			return nil
		}
		return os.Rename(removed, final)
	})
	tx.OnCommit(func() error { return os.Rename(final, removed) })
	tx.OnCommitted(func() error { return os.Remove(removed) })
	return nil
}

// InstalledWorkloads lists the workloads committed for band.
func (in *Installer) InstalledWorkloads(band FeatureBand) ([]string, error) {
	entries, err := os.ReadDir(workloadMarkersDir(in.Root, band))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), pendingSuffix) || strings.HasSuffix(e.Name(), removedSuffix) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// InstallWorkloads resolves workloads through the manifests and installs
// their packs and markers in one transaction.
func (in *Installer) InstallWorkloads(ctx context.Context, band FeatureBand, workloads []string, offlineCache string) ([]PackInfo, error) {
	if in.Manifests == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "installer has no manifest provider")
	}
	packs, err := in.Manifests.Packs(band, workloads)
	if err != nil {
		return nil, err
	}
	err = RunInTransaction(ctx, in.Logger, func(ctx context.Context, tx *Transaction) error {
		if err := in.InstallWorkloadPacks(ctx, packs, band, tx, offlineCache); err != nil {
			return err
		}
		for _, w := range workloads {
			if err := in.RecordWorkloadInstalled(band, w, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return packs, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
