package workload

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/observability"
)

// GCFailure is a pack garbage collection could not remove.
type GCFailure struct {
	Pack PackRef
	Err  error
}

// GCReport summarizes one garbage collection run.
type GCReport struct {
	// Collected packs were removed from disk.
	Collected []PackRef
	// RecordsRemoved counts the band records dropped, including records of
	// packs still used by another band.
	RecordsRemoved int
	// Skipped packs were locked or mid-install and left alone.
	Skipped []PackRef
	Failed  []GCFailure
}

// GarbageCollectInstalledWorkloadPacks removes records of packs no installed
// workload needs anymore, and packs left without any record.
//
// A pack whose lock is held by a live install, repair or collection is
// skipped. Pending records whose pack is not locked were left by a
// transaction that never finished; they are dropped, and so is the pack once
// no committed record remains. Directories under packs/ and tool-packs/
// without any record are removed the same way. A failure on one pack does
// not stop the others. With offlineCache set, archives of collected packs
// are removed from it too.
func (in *Installer) GarbageCollectInstalledWorkloadPacks(ctx context.Context, offlineCache string) (*GCReport, error) {
	start := time.Now()
	report, err := in.collect(ctx, offlineCache)
	if report != nil {
		observability.Install().OnGarbageCollect(ctx, len(report.Collected), len(report.Failed), len(report.Skipped), time.Since(start))
	}
	return report, err
}

func (in *Installer) collect(ctx context.Context, offlineCache string) (*GCReport, error) {
	if in.Manifests == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "garbage collection needs a manifest provider")
	}
	entries, err := snapshotRecords(in.Root)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]recordEntry)
	var keys []string
	for _, e := range entries {
		k := e.pack.Key()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], e)
	}
	sort.Strings(keys)

	needed := make(map[string]map[string]bool)
	for _, e := range entries {
		if e.pending {
			continue
		}
		if _, ok := needed[e.band]; ok {
			continue
		}
		set, ok := in.neededPacks(e.band)
		if !ok {
			// Leave bands we cannot evaluate untouched.
			needed[e.band] = nil
			continue
		}
		needed[e.band] = set
	}

	report := &GCReport{}
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		group := groups[k]
		if !collectable(group, needed) {
			continue
		}
		p := group[0].pack
		removed, collected, err := in.collectPack(p, group, needed, offlineCache)
		report.RecordsRemoved += removed
		report.add(in, PackRef{ID: p.ID, Version: p.Version}, collected, err)
	}

	orphans, err := in.orphanedPacks(groups)
	if err != nil {
		return report, err
	}
	for _, p := range orphans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		collected, err := in.collectOrphan(p, offlineCache)
		report.add(in, PackRef{ID: p.ID, Version: p.Version}, collected, err)
	}
	return report, nil
}

func (r *GCReport) add(in *Installer, ref PackRef, collected bool, err error) {
	switch {
	case stderrors.Is(err, errPackLocked):
		in.logger().Debug("pack in use, skipping", "pack", ref)
		r.Skipped = append(r.Skipped, ref)
	case err != nil:
		in.logger().Warn("could not collect pack", "pack", ref, "error", err)
		r.Failed = append(r.Failed, GCFailure{Pack: ref, Err: err})
	case collected:
		in.logger().Info("collected pack", "pack", ref)
		r.Collected = append(r.Collected, ref)
	}
}

// collectable reports whether group has a pending record or a record its
// band no longer needs.
func collectable(group []recordEntry, needed map[string]map[string]bool) bool {
	for _, e := range group {
		if e.pending {
			return true
		}
		if set := needed[e.band]; set != nil && !set[e.pack.Key()] {
			return true
		}
	}
	return false
}

// neededPacks returns the keys of every pack the band's installed workloads
// need. ok is false when the band cannot be evaluated.
func (in *Installer) neededPacks(bandName string) (map[string]bool, bool) {
	band, err := ParseFeatureBand(bandName)
	if err != nil || band.String() != bandName {
		in.logger().Warn("skipping records with unrecognized band", "band", bandName)
		return nil, false
	}
	workloads, err := in.InstalledWorkloads(band)
	if err != nil {
		in.logger().Warn("cannot list installed workloads", "band", band, "error", err)
		return nil, false
	}
	set := make(map[string]bool)
	if len(workloads) == 0 {
		return set, true
	}
	packs, err := in.Manifests.Packs(band, workloads)
	if err != nil {
		in.logger().Warn("cannot resolve workload packs", "band", band, "error", err)
		return nil, false
	}
	for _, p := range packs {
		set[p.Key()] = true
	}
	return set, true
}

// collectPack works on p under its lock. Pending records are left over from
// dead transactions, since a live one would hold the lock, and are dropped
// along with records their band no longer needs. The pack goes once no
// record is left. removed counts committed records only.
func (in *Installer) collectPack(p PackInfo, group []recordEntry, needed map[string]map[string]bool, offlineCache string) (removed int, collected bool, err error) {
	l, err := tryLockPack(in.Root, p)
	if err != nil {
		return 0, false, err
	}
	defer l.release()

	key := p.Key()
	for _, e := range group {
		drop := e.pending
		if !drop {
			set := needed[e.band]
			drop = set != nil && !set[key]
		}
		if !drop {
			continue
		}
		err := os.Remove(e.path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return removed, false, err
		}
		if e.pending {
			in.logger().Debug("dropped record of unfinished transaction", "pack", p, "band", e.band)
		} else {
			removed++
		}
	}

	dir := filepath.Dir(group[0].path)
	left, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return removed, false, err
	}
	if len(left) > 0 {
		return removed, false, nil
	}
	if err := in.removePack(p, offlineCache); err != nil {
		return removed, false, err
	}
	return removed, true, nil
}

// orphanedPacks lists pack directories under packs/ and tool-packs/ that no
// record in groups refers to.
func (in *Installer) orphanedPacks(groups map[string][]recordEntry) ([]PackInfo, error) {
	var out []PackInfo
	for _, layout := range []struct {
		dir  string
		kind PackKind
	}{{"packs", KindSdk}, {"tool-packs", KindTool}} {
		ids, err := os.ReadDir(filepath.Join(in.Root, layout.dir))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !id.IsDir() {
				continue
			}
			versions, err := os.ReadDir(filepath.Join(in.Root, layout.dir, id.Name()))
			if err != nil {
				return nil, err
			}
			for _, ver := range versions {
				p := PackInfo{ID: id.Name(), Version: ver.Name(), Kind: layout.kind}
				if _, ok := groups[p.Key()]; ver.IsDir() && !ok {
					out = append(out, p)
				}
			}
		}
	}
	return out, nil
}

// collectOrphan removes a record-less pack directory unless a live
// transaction holds the pack or a record appeared since the snapshot.
func (in *Installer) collectOrphan(p PackInfo, offlineCache string) (bool, error) {
	l, err := tryLockPack(in.Root, p)
	if err != nil {
		return false, err
	}
	defer l.release()

	left, err := os.ReadDir(filepath.Dir(recordPath(in.Root, p, FeatureBand{})))
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if len(left) > 0 {
		return false, nil
	}
	if err := in.removePack(p, offlineCache); err != nil {
		return false, err
	}
	return true, nil
}

// removePack deletes p's content, its empty record directories and, with
// offlineCache set, its cached archive.
func (in *Installer) removePack(p PackInfo, offlineCache string) error {
	if err := os.RemoveAll(p.Path(in.Root)); err != nil {
		return err
	}
	os.Remove(filepath.Dir(p.Path(in.Root)))
	dir := filepath.Dir(recordPath(in.Root, p, FeatureBand{}))
	os.Remove(dir)
	os.Remove(filepath.Dir(dir))
	if offlineCache == "" {
		return nil
	}
	archive := filepath.Join(offlineCache, archiveName(p.PackageID(), p.Version))
	for _, f := range []string{archive, archive + hashSuffix} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
