package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matzehuels/packforge/pkg/httputil"
	"github.com/matzehuels/packforge/pkg/packroot"
)

const (
	configFileName = "config"
	configFileExt  = "toml"
	envPrefix      = "PACKFORGE"
)

// Config is the merged configuration of the config file, PACKFORGE_*
// environment variables and defaults. Flags override it per command.
type Config struct {
	InstallRoot       string   `mapstructure:"install_root"`
	OfflineCache      string   `mapstructure:"offline_cache"`
	PackRoots         []string `mapstructure:"pack_roots"`
	UserPackCache     string   `mapstructure:"user_pack_cache"`
	TargetingPackRoot string   `mapstructure:"targeting_pack_root"`
	FeatureBand       string   `mapstructure:"feature_band"`
	HostRID           string   `mapstructure:"host_rid"`
	Catalog           string   `mapstructure:"catalog"`
	RIDGraph          string   `mapstructure:"rid_graph"`
	Manifests         string   `mapstructure:"manifests"`
	MetricsFile       string   `mapstructure:"metrics_file"`

	Feed FeedConfig `mapstructure:"feed"`
	Log  LogConfig  `mapstructure:"log"`
}

// FeedConfig selects where pack archives come from. Dir wins over URL.
// The retry settings apply to the HTTP feed only.
type FeedConfig struct {
	URL           string        `mapstructure:"url"`
	Dir           string        `mapstructure:"dir"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	RetryMaxDelay time.Duration `mapstructure:"retry_max_delay"`
}

func (f FeedConfig) retryPolicy() httputil.Policy {
	return httputil.Policy{Attempts: f.RetryAttempts, Delay: f.RetryDelay, MaxDelay: f.RetryMaxDelay}
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		InstallRoot:   filepath.Join(home, ".packforge", "packs"),
		UserPackCache: filepath.Join(home, ".nuget", "packages"),
		Feed: FeedConfig{
			URL:           "https://api.nuget.org/v3-flatcontainer",
			CacheTTL:      24 * time.Hour,
			RetryAttempts: httputil.DefaultPolicy.Attempts,
			RetryDelay:    httputil.DefaultPolicy.Delay,
			RetryMaxDelay: httputil.DefaultPolicy.MaxDelay,
		},
		Log: LogConfig{Level: "info"},
	}
}

// configDir returns the packforge configuration directory:
// %APPDATA% on Windows, $XDG_CONFIG_HOME (default ~/.config) elsewhere.
func configDir() (string, error) {
	var base string
	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
	}
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// loadConfig reads path, or config.toml in the config directory when path
// is empty. A missing default file is not an error; a missing explicit one
// is.
func loadConfig(path string) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("install_root", defaults.InstallRoot)
	v.SetDefault("offline_cache", defaults.OfflineCache)
	v.SetDefault("pack_roots", defaults.PackRoots)
	v.SetDefault("user_pack_cache", defaults.UserPackCache)
	v.SetDefault("targeting_pack_root", defaults.TargetingPackRoot)
	v.SetDefault("feature_band", defaults.FeatureBand)
	v.SetDefault("host_rid", defaults.HostRID)
	v.SetDefault("catalog", defaults.Catalog)
	v.SetDefault("rid_graph", defaults.RIDGraph)
	v.SetDefault("manifests", defaults.Manifests)
	v.SetDefault("metrics_file", defaults.MetricsFile)
	v.SetDefault("feed.url", defaults.Feed.URL)
	v.SetDefault("feed.dir", defaults.Feed.Dir)
	v.SetDefault("feed.cache_ttl", defaults.Feed.CacheTTL)
	v.SetDefault("feed.retry_attempts", defaults.Feed.RetryAttempts)
	v.SetDefault("feed.retry_delay", defaults.Feed.RetryDelay)
	v.SetDefault("feed.retry_max_delay", defaults.Feed.RetryMaxDelay)
	v.SetDefault("log.level", defaults.Log.Level)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved := ""
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", path)
		}
		resolved = path
	} else if dir, err := configDir(); err == nil {
		candidate := filepath.Join(dir, configFileName+"."+configFileExt)
		if _, err := os.Stat(candidate); err == nil {
			resolved = candidate
		}
	}
	if resolved != "" {
		v.SetConfigFile(resolved)
		v.SetConfigType(configFileExt)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", resolved, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("parse config: %w", err)
	}
	return &cfg, resolved, nil
}

// packSearch builds the pack-root search path: PACKFORGE_PACK_ROOTS, then
// configured roots, then the user cache and the targeting-pack root.
// Viper also maps PACKFORGE_PACK_ROOTS onto pack_roots, so repeats are
// dropped.
func (c *Config) packSearch() packroot.Search {
	var roots []string
	seen := make(map[string]bool)
	for _, r := range append(packroot.FromEnv(packroot.DefaultEnvVar), c.PackRoots...) {
		if r != "" && !seen[r] {
			seen[r] = true
			roots = append(roots, r)
		}
	}
	return packroot.Search{
		EnvRoots:          roots,
		UserCache:         c.UserPackCache,
		TargetingPackRoot: c.TargetingPackRoot,
	}
}
