package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/packforge/pkg/cache"
	"github.com/matzehuels/packforge/pkg/conflicts"
	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/framework"
	"github.com/matzehuels/packforge/pkg/observability"
	"github.com/matzehuels/packforge/pkg/rid"
	"github.com/matzehuels/packforge/pkg/workload"
)

// Runner ties the selector and the installer together and caches
// selections. It holds no per-run state; one Runner may serve concurrent
// runs.
type Runner struct {
	Selector  *framework.Selector
	Installer *workload.Installer
	Cache     cache.Cache
	Keyer     cache.Keyer
	// Fingerprint identifies the catalog and RID graph in cache keys. Runs
	// with different inputs must use different fingerprints.
	Fingerprint string
	Logger      *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching; a nil keyer
// uses the default one.
func NewRunner(sel *framework.Selector, inst *workload.Installer, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Selector: sel, Installer: inst, Cache: c, Keyer: keyer, Logger: logger}
}

// Execute plans and, if requested, acquires.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{}

	planStart := time.Now()
	sel, hit, err := r.PlanWithCacheInfo(ctx, opts.Request, opts.Refresh)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	result.Selection = sel
	result.CacheInfo.PlanHit = hit
	result.Stats.PlanTime = time.Since(planStart)
	result.Stats.Diagnostics = len(sel.Diagnostics)
	r.Logger.Info("selected framework packs",
		"target_framework", opts.Request.TargetFramework,
		"downloads", len(sel.PackagesToDownload),
		"diagnostics", len(sel.Diagnostics),
		"cached", hit,
		"duration", result.Stats.PlanTime)

	if !opts.Install {
		result.Stats.Packs = len(sel.PackagesToDownload)
		return result, nil
	}
	if err := sel.Diagnostics.Err(); err != nil {
		return result, fmt.Errorf("plan: %w", err)
	}

	acquireStart := time.Now()
	installed, err := r.Acquire(ctx, sel, opts.band, opts.OfflineCache)
	if err != nil {
		return result, fmt.Errorf("acquire: %w", err)
	}
	result.Installed = installed
	result.Stats.Packs = len(installed)
	result.Stats.AcquireTime = time.Since(acquireStart)
	r.Logger.Info("acquired packs", "packs", len(installed), "band", opts.band, "duration", result.Stats.AcquireTime)
	return result, nil
}

// PlanWithCacheInfo runs the selector, reusing a cached selection for the
// same request unless refresh is set.
func (r *Runner) PlanWithCacheInfo(ctx context.Context, req framework.Request, refresh bool) (*framework.Result, bool, error) {
	if r.Selector == nil {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "runner has no selector")
	}
	if req.HostRID == "" {
		req.HostRID = rid.HostRID()
	}
	key := r.Keyer.SelectionKey(r.Fingerprint, req)

	if !refresh && r.Cache != nil {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached framework.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "selection")
				return &cached, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "selection")
	}

	start := time.Now()
	res, err := r.Selector.Select(req)
	packs, diags := 0, 0
	if res != nil {
		packs, diags = len(res.PackagesToDownload), len(res.Diagnostics)
	}
	observability.Resolve().OnSelect(ctx, req.TargetFramework, packs, diags, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if r.Cache == nil {
		return res, false, nil
	}
	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLSelection); err == nil {
			observability.Cache().OnCacheSet(ctx, "selection", len(data))
		}
	}
	return res, false, nil
}

// Plan is PlanWithCacheInfo without the cache hit flag.
func (r *Runner) Plan(ctx context.Context, req framework.Request) (*framework.Result, error) {
	res, _, err := r.PlanWithCacheInfo(ctx, req, false)
	return res, err
}

// Acquire installs the packs of a selection for band in one transaction.
func (r *Runner) Acquire(ctx context.Context, sel *framework.Result, band workload.FeatureBand, offlineCache string) ([]workload.PackInfo, error) {
	if r.Installer == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "runner has no installer")
	}
	packs := PacksFor(sel)
	if len(packs) == 0 {
		return nil, nil
	}
	err := workload.RunInTransaction(ctx, r.Logger, func(ctx context.Context, tx *workload.Transaction) error {
		return r.Installer.InstallWorkloadPacks(ctx, packs, band, tx, offlineCache)
	})
	if err != nil {
		return nil, err
	}
	return packs, nil
}

// ResolveConflicts runs conflict resolution and reports it to the resolve
// hooks.
func (r *Runner) ResolveConflicts(ctx context.Context, in conflicts.Input) (*conflicts.Output, error) {
	if in.Logger == nil {
		in.Logger = r.Logger
	}
	start := time.Now()
	out, err := conflicts.ResolvePackageFileConflicts(in)
	if err != nil {
		return nil, err
	}
	candidates := len(in.References) + len(in.Analyzers) + len(in.CopyLocal) + len(in.OtherRuntimeItems) + len(in.PlatformItems)
	observability.Resolve().OnConflicts(ctx, candidates, len(out.Conflicts), time.Since(start))
	return out, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
