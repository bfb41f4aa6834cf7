package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/packforge/pkg/framework"
	"github.com/matzehuels/packforge/pkg/pipeline"
	"github.com/matzehuels/packforge/pkg/workload"
)

type selectFlags struct {
	catalog, ridGraph string
	targetFramework   string
	frameworks        []string
	transitive        []string
	rid               string
	rids              []string
	runtimeVersion    string
	latestPatch       bool
	selfContained     bool
	readyToRun        bool
	noTargetingPackDL bool
	hostRID           string
	install           bool
	band, root        string
	offlineCache      string
	noCache, refresh  bool
	asJSON            bool
}

// parseFrameworkRef parses "Name" or "Name@version".
func parseFrameworkRef(s string, transitive bool) framework.FrameworkReference {
	name, ver, _ := strings.Cut(s, "@")
	return framework.FrameworkReference{Name: name, RuntimeFrameworkVersion: ver, IsTransitive: transitive}
}

func (f *selectFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.catalog, "catalog", "", "known-pack catalog (TOML)")
	fl.StringVar(&f.ridGraph, "rid-graph", "", "RID graph (runtime.json)")
	fl.StringVarP(&f.targetFramework, "framework-target", "f", "", "target framework, e.g. net8.0")
	fl.StringArrayVar(&f.frameworks, "framework", nil, "framework reference Name[@version] (repeatable)")
	fl.StringArrayVar(&f.transitive, "transitive-framework", nil, "framework reference pulled in by a dependency (repeatable)")
	fl.StringVar(&f.rid, "rid", "", "runtime identifier")
	fl.StringSliceVar(&f.rids, "rids", nil, "additional runtime identifiers (comma-separated)")
	fl.StringVar(&f.runtimeVersion, "runtime-version", "", "runtime framework version for every reference")
	fl.BoolVar(&f.latestPatch, "latest-patch", false, "roll forward to the latest runtime patch")
	fl.BoolVar(&f.selfContained, "self-contained", false, "deploy the runtime with the application")
	fl.BoolVar(&f.readyToRun, "ready-to-run", false, "compile ahead of time")
	fl.BoolVar(&f.noTargetingPackDL, "no-targeting-pack-download", false, "never download targeting packs")
	fl.StringVar(&f.hostRID, "host-rid", "", "RID of the build machine (default: detected)")
	fl.BoolVar(&f.install, "install", false, "install the selected packs")
	fl.StringVar(&f.band, "band", "", "SDK feature band for --install")
	fl.StringVar(&f.root, "root", "", "install root (default from config)")
	fl.StringVar(&f.offlineCache, "offline-cache", "", "install from this offline cache")
	fl.BoolVar(&f.noCache, "no-cache", false, "do not reuse cached selections")
	fl.BoolVar(&f.refresh, "refresh", false, "recompute and re-cache the selection")
	fl.BoolVar(&f.asJSON, "json", false, "print the selection as JSON")
	_ = cmd.MarkFlagRequired("framework-target")
}

func (f *selectFlags) request(cmd *cobra.Command, defaultHost string) framework.Request {
	req := framework.Request{
		TargetFramework:              f.targetFramework,
		RuntimeFrameworkVersion:      f.runtimeVersion,
		TargetLatestRuntimePatch:     f.latestPatch,
		RuntimeIdentifier:            f.rid,
		RuntimeIdentifiers:           f.rids,
		SelfContained:                f.selfContained,
		ReadyToRun:                   f.readyToRun,
		DisableTargetingPackDownload: f.noTargetingPackDL,
		HostRID:                      f.hostRID,
	}
	if req.HostRID == "" {
		req.HostRID = defaultHost
	}
	// Without an explicit setting roll-forward is "defaulted".
	req.TargetLatestRuntimePatchIsDefault = !cmd.Flags().Changed("latest-patch")
	for _, s := range f.frameworks {
		req.FrameworkReferences = append(req.FrameworkReferences, parseFrameworkRef(s, false))
	}
	for _, s := range f.transitive {
		req.FrameworkReferences = append(req.FrameworkReferences, parseFrameworkRef(s, true))
	}
	return req
}

// selectCommand creates the select command.
func (c *CLI) selectCommand() *cobra.Command {
	var f selectFlags

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select the targeting, runtime and crossgen packs a build needs",
		Long: `Select framework packs for a target framework and its framework references.

With --install the selected packs that are not already present are fetched
and installed for the given feature band in one transaction.`,
		Example: `  packforge select -f net8.0 --framework Microsoft.NETCore.App --rid linux-x64 --self-contained
  packforge select -f net8.0 --framework Microsoft.AspNetCore.App --rid linux-x64 --self-contained --install --band 8.0.100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			sel, fingerprint, err := c.newSelector(f.catalog, f.ridGraph)
			if err != nil {
				return err
			}
			opts := pipeline.Options{
				Request:      f.request(cmd, c.Config.HostRID),
				Install:      f.install,
				FeatureBand:  f.band,
				OfflineCache: f.offlineCache,
				Refresh:      f.refresh,
				Logger:       logger,
			}
			if opts.Install && opts.FeatureBand == "" {
				opts.FeatureBand = c.Config.FeatureBand
			}
			if opts.OfflineCache == "" {
				opts.OfflineCache = c.Config.OfflineCache
			}

			var inst *workload.Installer
			if f.install {
				in, err := c.newInstaller(f.root, "", f.ridGraph)
				if err != nil {
					return err
				}
				inst = in
			}
			runner, err := c.newRunner(f.noCache, sel, fingerprint, inst)
			if err != nil {
				return err
			}
			defer runner.Close()

			var spinner *Spinner
			if !f.asJSON {
				spinner = newSpinnerWithContext(ctx, "Selecting packs...")
				spinner.Start()
			}
			res, err := runner.Execute(ctx, opts)
			if spinner != nil {
				spinner.Stop()
			}
			if err != nil {
				if res != nil && res.Selection != nil && !f.asJSON {
					ui.diagnostics(res.Selection.Diagnostics)
				}
				return err
			}

			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res.Selection)
			}
			printSelection(ui, res)
			return nil
		},
	}

	f.register(cmd)

	return cmd
}

func printSelection(ui printer, res *pipeline.Result) {
	sel := res.Selection
	ui.success("Selected packs for %d framework(s)", len(sel.RuntimeFrameworks))
	ui.stats(len(sel.PackagesToDownload), len(sel.Diagnostics), res.CacheInfo.PlanHit)

	for _, rf := range sel.RuntimeFrameworks {
		ui.keyValue("runtime", rf.Name+" "+rf.Version)
	}
	for _, tp := range sel.TargetingPacks {
		where := "download"
		if tp.Path != "" {
			where = tp.Path
		}
		ui.keyValue("targeting", tp.Name+" "+tp.Version+" "+StyleDim.Render(where))
	}
	for _, rp := range sel.RuntimePacks {
		ui.keyValue("runtime pack", rp.Name+" "+rp.Version)
	}
	for _, cp := range sel.CrossgenPacks {
		ui.keyValue("crossgen", cp.Name+" "+cp.Version)
	}
	ui.diagnostics(sel.Diagnostics)

	if len(res.Installed) > 0 {
		ui.success("Installed %d packs (%s)", len(res.Installed), res.Stats.AcquireTime)
		for _, p := range res.Installed {
			ui.detail("%s", p)
		}
	} else if len(sel.PackagesToDownload) > 0 {
		ui.nextStep("Install them", "packforge select ... --install --band <band>")
	}
}
