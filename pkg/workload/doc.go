// Package workload installs, repairs, downloads and garbage-collects SDK
// workload packs.
//
// # Layout
//
// Packs are installed under one root, shared by every SDK feature band:
//
//	packs/<id>/<version>/                         extracted packs
//	tool-packs/<id>/<version>/                    extracted tool packs
//	template-packs/<id>.<version>.nupkg           template archives
//	metadata/installed-packs/v1/<id>/<ver>/<band>.json
//	metadata/installed-workloads/<band>/<workload>
//	metadata/locks/<id>.<version>.lock
//
// A pack stays on disk as long as at least one band has a record for it.
// [Installer.GarbageCollectInstalledWorkloadPacks] drops records no
// installed workload needs and removes packs left without records.
//
// # Transactions
//
// Install and repair stage their work and register undo and commit steps on
// a [Transaction]. Records are written as .pending files and renamed at
// commit, so an interrupted install never looks installed and garbage
// collection leaves it alone:
//
//	err := workload.RunInTransaction(ctx, logger, func(ctx context.Context, tx *workload.Transaction) error {
//	    return installer.InstallWorkloadPacks(ctx, packs, band, tx, "")
//	})
//
// # Locking
//
// Each pack (id + version) has an exclusive lock held from first use until
// the owning transaction ends. Within a process the lock is a condition
// table; on Linux it is also an flock on the lock file so separate processes
// exclude each other.
package workload
