package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/packforge/pkg/buildinfo"
	"github.com/matzehuels/packforge/pkg/cache"
	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/framework"
	"github.com/matzehuels/packforge/pkg/httputil"
	"github.com/matzehuels/packforge/pkg/observability"
	"github.com/matzehuels/packforge/pkg/observability/prom"
	"github.com/matzehuels/packforge/pkg/pipeline"
	"github.com/matzehuels/packforge/pkg/rid"
	"github.com/matzehuels/packforge/pkg/workload"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "packforge"

	// selectionCacheSize bounds the in-memory selection cache used with --no-cache.
	selectionCacheSize = 64
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Config is loaded before any command runs.
	Config *Config

	configPath string
	registry   *prometheus.Registry
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	cfg := DefaultConfig()
	return &CLI{Logger: newLogger(w, level), Config: &cfg}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Packforge selects, resolves and installs .NET framework packs",
		Long: `Packforge resolves runtime identifiers, selects the targeting, runtime and
crossgen packs a build needs, removes conflicting package files, installs
workload packs transactionally and extracts dependency graphs from project
lock files.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.flushMetrics()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/packforge/config.toml)")

	root.AddCommand(c.conflictsCommand())
	root.AddCommand(c.selectCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.workloadCommand())
	root.AddCommand(c.ridCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and installs metrics hooks.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	lvl, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if c.Logger.GetLevel() > lvl {
		c.Logger.SetLevel(lvl)
	}

	if cfg.MetricsFile != "" {
		c.registry = prometheus.NewRegistry()
		m := prom.New(c.registry)
		observability.SetResolveHooks(m)
		observability.SetInstallHooks(m)
		observability.SetCacheHooks(m)
		observability.SetHTTPHooks(m)
	}

	cmd.SetContext(withLogger(cmd.Context(), commandLogger(c.Logger, cmd)))
	return nil
}

// flushMetrics writes collected metrics in the text exposition format.
func (c *CLI) flushMetrics() error {
	if c.registry == nil || c.Config.MetricsFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Config.MetricsFile), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(c.Config.MetricsFile, c.registry)
}

// =============================================================================
// Factories
// =============================================================================

// newSelector loads the known-pack catalog and the RID graph.
func (c *CLI) newSelector(catalogPath, graphPath string) (*framework.Selector, string, error) {
	if catalogPath == "" {
		catalogPath = c.Config.Catalog
	}
	if catalogPath == "" {
		return nil, "", errors.New(errors.ErrCodeInvalidInput, "no catalog: pass --catalog or set catalog in the config")
	}
	g, graphData, err := c.loadGraph(graphPath)
	if err != nil {
		return nil, "", err
	}
	catalogData, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeFileNotFound, err, "read catalog")
	}
	cat, err := framework.LoadCatalog(bytes.NewReader(catalogData))
	if err != nil {
		return nil, "", err
	}

	search := c.Config.packSearch()
	fingerprint := cache.Hash([]byte(string(catalogData) + "\x00" + string(graphData) + "\x00" + strings.Join(search.Roots(), string(os.PathListSeparator))))
	return &framework.Selector{
		Catalog:   cat,
		Graph:     g,
		PackRoots: search,
		Logger:    c.Logger,
	}, fingerprint, nil
}

// loadGraph reads the RID graph from path or the configured rid_graph.
func (c *CLI) loadGraph(path string) (*rid.Graph, []byte, error) {
	if path == "" {
		path = c.Config.RIDGraph
	}
	if path == "" {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "no RID graph: pass --rid-graph or set rid_graph in the config")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read RID graph")
	}
	g, err := rid.Load(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return g, data, nil
}

// newFetcher returns the configured pack feed: a local folder when feed.dir
// is set, else the HTTP feed with its index cached on disk.
func (c *CLI) newFetcher() (workload.Fetcher, error) {
	if c.Config.Feed.Dir != "" {
		return workload.DirFeed{Dir: c.Config.Feed.Dir}, nil
	}
	var httpCache *httputil.Cache
	if dir, err := cacheDir(); err == nil {
		if hc, err := httputil.NewCache(filepath.Join(dir, "http"), c.Config.Feed.CacheTTL); err == nil {
			httpCache = hc
		}
	}
	feed, err := workload.NewHTTPFeed(c.Config.Feed.URL, httpCache)
	if err != nil {
		return nil, err
	}
	feed.Retry = c.Config.Feed.retryPolicy()
	return feed, nil
}

// newInstaller builds an installer over the configured install root.
// Manifests are optional; commands that need them check.
func (c *CLI) newInstaller(root, manifestsDir, graphPath string) (*workload.Installer, error) {
	if root == "" {
		root = c.Config.InstallRoot
	}
	fetcher, err := c.newFetcher()
	if err != nil {
		return nil, err
	}
	inst := &workload.Installer{Root: root, Fetcher: fetcher, Logger: c.Logger}

	if manifestsDir == "" {
		manifestsDir = c.Config.Manifests
	}
	if manifestsDir != "" {
		provider := &workload.ManifestProvider{Dir: manifestsDir, HostRID: c.Config.HostRID}
		if graphPath != "" || c.Config.RIDGraph != "" {
			g, _, err := c.loadGraph(graphPath)
			if err != nil {
				return nil, err
			}
			provider.Graph = g
		}
		inst.Manifests = provider
	}
	return inst, nil
}

// newRunner creates a pipeline runner for CLI use. Selections are cached on
// disk unless noCache is set, in which case they live for one run only.
// Keys are scoped by the packforge version, since the cached result shape
// follows the binary.
func (c *CLI) newRunner(noCache bool, sel *framework.Selector, fingerprint string, inst *workload.Installer) (*pipeline.Runner, error) {
	store, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(nil, "packforge@"+buildinfo.Version+":")
	r := pipeline.NewRunner(sel, inst, store, keyer, c.Logger)
	r.Fingerprint = fingerprint
	return r, nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewMemoryCache(selectionCacheSize)
	}
	dir, err := cacheDir()
	if err != nil {
		// No home directory: run without a selection cache.
		return nil, nil
	}
	return cache.NewFileCache(filepath.Join(dir, "selections"))
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/packforge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatJSON}
	}
	return strings.Split(s, ",")
}

// parseBand parses the band flag, falling back to the configured one.
func (c *CLI) parseBand(flag string) (workload.FeatureBand, error) {
	if flag == "" {
		flag = c.Config.FeatureBand
	}
	if flag == "" {
		return workload.FeatureBand{}, errors.New(errors.ErrCodeInvalidInput, "no feature band: pass --band or set feature_band in the config")
	}
	return workload.ParseFeatureBand(flag)
}
