// Package pipeline runs packforge end to end: select the framework packs a
// build needs, then acquire them into the install root.
//
// # Stages
//
//  1. Plan: run the framework pack selector, cached by request
//  2. Acquire: install the selected runtime, crossgen and missing targeting
//     packs in one transaction
//
// The dependency graph extracted from a project lock file goes through a
// third entry point, [Runner.RenderGraph], which exports it as JSON, DOT or
// SVG.
//
// # Usage
//
//	runner := pipeline.NewRunner(selector, installer, cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Request:     req,
//	    Install:     true,
//	    FeatureBand: "8.0.100",
//	})
package pipeline

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/framework"
	"github.com/matzehuels/packforge/pkg/workload"
)

// Graph export formats.
const (
	FormatJSON   = "json"
	FormatAssets = "assets"
	FormatDOT    = "dot"
	FormatSVG    = "svg"
)

// ValidFormats is the set of supported graph export formats.
var ValidFormats = map[string]bool{
	FormatJSON:   true,
	FormatAssets: true,
	FormatDOT:    true,
	FormatSVG:    true,
}

// ValidateFormat checks that format is a supported export format.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format %q (must be one of: json, assets, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// Options configures one pipeline run.
type Options struct {
	Request framework.Request `json:"request"`

	// Install acquires the selected packs after planning.
	Install      bool   `json:"install,omitempty"`
	FeatureBand  string `json:"feature_band,omitempty"`
	OfflineCache string `json:"offline_cache,omitempty"`

	// Refresh bypasses cached selections.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	band      workload.FeatureBand
	validated bool
}

// ValidateAndSetDefaults checks the options once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Request.TargetFramework == "" {
		return errors.New(errors.ErrCodeInvalidInput, "target framework is required")
	}
	if o.Install {
		if o.FeatureBand == "" {
			return errors.New(errors.ErrCodeInvalidInput, "feature band is required to install packs")
		}
		band, err := workload.ParseFeatureBand(o.FeatureBand)
		if err != nil {
			return err
		}
		o.band = band
	}
	o.validated = true
	return nil
}

// Result is the outcome of [Runner.Execute].
type Result struct {
	Selection *framework.Result
	// Installed lists the packs acquired, empty unless Options.Install.
	Installed []workload.PackInfo
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds timings and counts of a run.
type Stats struct {
	Packs       int
	Diagnostics int
	PlanTime    time.Duration
	AcquireTime time.Duration
}

// CacheInfo tracks which stages were served from cache.
type CacheInfo struct {
	PlanHit bool
}

func (s Stats) String() string {
	return fmt.Sprintf("%d packs, %d diagnostics, plan %s, acquire %s",
		s.Packs, s.Diagnostics, s.PlanTime.Round(time.Millisecond), s.AcquireTime.Round(time.Millisecond))
}
