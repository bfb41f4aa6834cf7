// Package observability provides hooks for metrics and tracing.
//
// Libraries call the registered hooks; main decides what, if anything, is
// behind them. The defaults are no-ops, so packforge as a library carries no
// metrics backend. The [prom] subpackage provides a Prometheus
// implementation.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New(prometheus.DefaultRegisterer)
//	    observability.SetResolveHooks(m)
//	    observability.SetInstallHooks(m)
//	    // ... run application
//	}
//
// Libraries emit events through the accessors:
//
//	start := time.Now()
//	res, err := selector.Select(req)
//	observability.Resolve().OnSelect(ctx, req.TargetFramework, len(res.PackagesToDownload), len(res.Diagnostics), time.Since(start), err)
//
// [prom]: https://pkg.go.dev/github.com/matzehuels/packforge/pkg/observability/prom
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolve Hooks
// =============================================================================

// ResolveHooks receives events from pack selection and conflict resolution.
type ResolveHooks interface {
	// OnSelect records one framework pack selection.
	OnSelect(ctx context.Context, targetFramework string, packs, diagnostics int, duration time.Duration, err error)

	// OnConflicts records one conflict resolution run.
	OnConflicts(ctx context.Context, candidates, conflicts int, duration time.Duration)
}

// =============================================================================
// Install Hooks
// =============================================================================

// InstallHooks receives events from the workload pack installer.
type InstallHooks interface {
	// OnPackOperation records an install, repair or download of one pack.
	// op is "install", "repair" or "download".
	OnPackOperation(ctx context.Context, op, packID string, duration time.Duration, err error)

	// OnGarbageCollect records one collection run.
	OnGarbageCollect(ctx context.Context, collected, failed, skipped int, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from feed HTTP requests.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolveHooks is a no-op implementation of ResolveHooks.
type NoopResolveHooks struct{}

func (NoopResolveHooks) OnSelect(context.Context, string, int, int, time.Duration, error) {}
func (NoopResolveHooks) OnConflicts(context.Context, int, int, time.Duration)             {}

// NoopInstallHooks is a no-op implementation of InstallHooks.
type NoopInstallHooks struct{}

func (NoopInstallHooks) OnPackOperation(context.Context, string, string, time.Duration, error) {}
func (NoopInstallHooks) OnGarbageCollect(context.Context, int, int, int, time.Duration)        {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	resolveHooks ResolveHooks = NoopResolveHooks{}
	installHooks InstallHooks = NoopInstallHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetResolveHooks registers custom resolve hooks. Call it once at startup.
func SetResolveHooks(h ResolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolveHooks = h
	}
}

// SetInstallHooks registers custom install hooks. Call it once at startup.
func SetInstallHooks(h InstallHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		installHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. Call it once at startup.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks. Call it once at startup.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Resolve returns the registered resolve hooks.
func Resolve() ResolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolveHooks
}

// Install returns the registered install hooks.
func Install() InstallHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return installHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults. Tests use it.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	resolveHooks = NoopResolveHooks{}
	installHooks = NoopInstallHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
