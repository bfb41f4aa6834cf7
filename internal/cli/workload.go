package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/workload"
)

// workloadFlags are shared by the workload subcommands.
type workloadFlags struct {
	band         string
	root         string
	manifests    string
	ridGraph     string
	offlineCache string
}

func (f *workloadFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.band, "band", "", "SDK feature band, e.g. 8.0.100 (default from config)")
	fl.StringVar(&f.root, "root", "", "install root (default from config)")
	fl.StringVar(&f.manifests, "manifests", "", "workload manifest directory (default from config)")
	fl.StringVar(&f.ridGraph, "rid-graph", "", "RID graph used to resolve RID-specific packs")
	fl.StringVar(&f.offlineCache, "offline-cache", "", "offline cache directory (default from config)")
}

// workloadSetup resolves the band and builds the installer.
func (c *CLI) workloadSetup(f *workloadFlags, needManifests bool) (*workload.Installer, workload.FeatureBand, error) {
	band, err := c.parseBand(f.band)
	if err != nil {
		return nil, workload.FeatureBand{}, err
	}
	inst, err := c.newInstaller(f.root, f.manifests, f.ridGraph)
	if err != nil {
		return nil, workload.FeatureBand{}, err
	}
	if needManifests && inst.Manifests == nil {
		return nil, workload.FeatureBand{}, errors.New(errors.ErrCodeInvalidInput, "no workload manifests: pass --manifests or set manifests in the config")
	}
	if f.offlineCache == "" {
		f.offlineCache = c.Config.OfflineCache
	}
	return inst, band, nil
}

// parsePackSpec parses "id@version" or "id@version:kind".
func parsePackSpec(s string) (workload.PackInfo, error) {
	spec, kindName, hasKind := strings.Cut(s, ":")
	id, ver, ok := strings.Cut(spec, "@")
	if !ok || id == "" || ver == "" {
		return workload.PackInfo{}, errors.New(errors.ErrCodeInvalidInput, "pack %q: want id@version[:kind]", s)
	}
	p := workload.PackInfo{ID: id, Version: ver, Kind: workload.KindSdk}
	if hasKind {
		kind, err := workload.ParsePackKind(kindName)
		if err != nil {
			return workload.PackInfo{}, err
		}
		p.Kind = kind
	}
	return p, p.Validate()
}

// workloadCommand creates the workload command tree.
func (c *CLI) workloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Install, repair and garbage-collect workload packs",
	}

	cmd.AddCommand(c.workloadInstallCommand())
	cmd.AddCommand(c.workloadRepairCommand())
	cmd.AddCommand(c.workloadDownloadCommand())
	cmd.AddCommand(c.workloadGCCommand())
	cmd.AddCommand(c.workloadListCommand())
	cmd.AddCommand(c.workloadRecordCommand())

	return cmd
}

func (c *CLI) workloadInstallCommand() *cobra.Command {
	var (
		f     workloadFlags
		packs []string
	)

	cmd := &cobra.Command{
		Use:   "install [workload...]",
		Short: "Install workloads or individual packs for a feature band",
		Long: `Install the packs of the named workloads, or the packs given with --pack,
in one transaction. Either every pack is installed and recorded, or nothing
changes.`,
		Example: `  packforge workload install wasm-tools --band 8.0.100
  packforge workload install --pack Microsoft.NET.Runtime.WebAssembly.Sdk@8.0.5:sdk --band 8.0.100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			if len(args) == 0 && len(packs) == 0 {
				return errors.New(errors.ErrCodeInvalidInput, "name at least one workload or --pack")
			}
			ctx := cmd.Context()
			inst, band, err := c.workloadSetup(&f, len(args) > 0)
			if err != nil {
				return err
			}

			prog := newProgress(loggerFromContext(ctx))
			spinner := newSpinnerWithContext(ctx, "Installing packs...")
			spinner.Start()

			var installed []workload.PackInfo
			if len(args) > 0 {
				installed, err = inst.InstallWorkloads(ctx, band, args, f.offlineCache)
			} else {
				installed, err = installPacks(ctx, inst, band, packs, f.offlineCache)
			}
			if err != nil {
				spinner.StopWithError("Install failed, nothing changed")
				return err
			}
			spinner.Stop()
			prog.done("Installed packs", "count", len(installed), "band", band)

			ui.success("Installed %d packs for band %s", len(installed), band)
			for _, p := range installed {
				ui.detail("%s (%s)", p, p.Kind)
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringArrayVar(&packs, "pack", nil, "pack id@version[:kind] to install (repeatable)")
	return cmd
}

func installPacks(ctx context.Context, inst *workload.Installer, band workload.FeatureBand, specs []string, offlineCache string) ([]workload.PackInfo, error) {
	packs := make([]workload.PackInfo, 0, len(specs))
	for _, s := range specs {
		p, err := parsePackSpec(s)
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	err := workload.RunInTransaction(ctx, inst.Logger, func(ctx context.Context, tx *workload.Transaction) error {
		return inst.InstallWorkloadPacks(ctx, packs, band, tx, offlineCache)
	})
	if err != nil {
		return nil, err
	}
	return packs, nil
}

func (c *CLI) workloadRepairCommand() *cobra.Command {
	var f workloadFlags

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Re-extract every pack of the installed workloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			ctx := cmd.Context()
			inst, band, err := c.workloadSetup(&f, true)
			if err != nil {
				return err
			}
			workloads, err := inst.InstalledWorkloads(band)
			if err != nil {
				return err
			}
			if len(workloads) == 0 {
				ui.info("No workloads installed for band %s", band)
				return nil
			}
			packs, err := inst.Manifests.Packs(band, workloads)
			if err != nil {
				return err
			}

			spinner := newSpinnerWithContext(ctx, "Repairing packs...")
			spinner.Start()
			err = workload.RunInTransaction(ctx, inst.Logger, func(ctx context.Context, tx *workload.Transaction) error {
				for _, p := range packs {
					if err := inst.RepairWorkloadPack(ctx, p, band, tx, f.offlineCache); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				spinner.StopWithError("Repair failed, previous contents restored")
				return err
			}
			spinner.StopWithSuccess("Repaired " + pluralPacks(len(packs)) + " for " + strings.Join(workloads, ", "))
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func (c *CLI) workloadDownloadCommand() *cobra.Command {
	var (
		f               workloadFlags
		includePreviews bool
		parallelism     int
	)

	cmd := &cobra.Command{
		Use:   "download <workload...>",
		Short: "Download workload packs into an offline cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			ctx := cmd.Context()
			inst, band, err := c.workloadSetup(&f, true)
			if err != nil {
				return err
			}
			if f.offlineCache == "" {
				return errors.New(errors.ErrCodeInvalidInput, "no offline cache: pass --offline-cache or set offline_cache in the config")
			}
			packs, err := inst.Manifests.Packs(band, args)
			if err != nil {
				return err
			}

			spinner := newSpinnerWithContext(ctx, "Downloading packs...")
			spinner.Start()
			files, err := inst.DownloadPacksToOfflineCache(ctx, packs, f.offlineCache, includePreviews, parallelism)
			if err != nil {
				spinner.StopWithError("Download failed")
				return err
			}
			spinner.StopWithSuccess("Downloaded " + pluralPacks(len(files)))
			for _, file := range files {
				ui.file(file)
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&includePreviews, "include-previews", false, "allow prerelease pack versions")
	cmd.Flags().IntVar(&parallelism, "parallel", workload.DefaultDownloadParallelism, "concurrent downloads")
	return cmd
}

func (c *CLI) workloadGCCommand() *cobra.Command {
	var f workloadFlags

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove packs no installed workload needs",
		Long: `Garbage-collect installed packs across every feature band. Packs still
needed by a recorded workload, packs locked by a running install and packs
with pending records are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			ctx := cmd.Context()
			inst, err := c.newInstaller(f.root, f.manifests, f.ridGraph)
			if err != nil {
				return err
			}
			if inst.Manifests == nil {
				return errors.New(errors.ErrCodeInvalidInput, "no workload manifests: pass --manifests or set manifests in the config")
			}
			offline := f.offlineCache
			if offline == "" {
				offline = c.Config.OfflineCache
			}

			rep, err := inst.GarbageCollectInstalledWorkloadPacks(ctx, offline)
			if err != nil {
				return err
			}
			ui.success("Collected %s, removed %d records", pluralPacks(rep.Collected), rep.RecordsRemoved)
			for _, p := range rep.Skipped {
				ui.detail("skipped %s (in use)", p)
			}
			for _, fail := range rep.Failed {
				ui.warning("%s: %v", fail.Pack, fail.Err)
			}
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func (c *CLI) workloadListCommand() *cobra.Command {
	var (
		f           workloadFlags
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed workloads and packs for a feature band",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			inst, band, err := c.workloadSetup(&f, false)
			if err != nil {
				return err
			}
			workloads, err := inst.InstalledWorkloads(band)
			if err != nil {
				return err
			}
			packs, err := inst.GetInstalledPacks(band)
			if err != nil {
				return err
			}

			if interactive {
				return runPackBrowser(band, inst.Root, workloads, packs)
			}

			ui.keyValue("band", band.String())
			ui.keyValue("workloads", orDash(strings.Join(workloads, ", ")))
			ui.keyValue("packs", pluralPacks(len(packs)))
			for _, p := range packs {
				ui.detail("%s", p)
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the installed packs")
	return cmd
}

func (c *CLI) workloadRecordCommand() *cobra.Command {
	var (
		f      workloadFlags
		remove bool
	)

	cmd := &cobra.Command{
		Use:   "record <workload...>",
		Short: "Record workloads as installed, or remove the record with --remove",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			ctx := cmd.Context()
			inst, band, err := c.workloadSetup(&f, false)
			if err != nil {
				return err
			}
			err = workload.RunInTransaction(ctx, inst.Logger, func(ctx context.Context, tx *workload.Transaction) error {
				for _, id := range args {
					var err error
					if remove {
						err = inst.UninstallWorkload(band, id, tx)
					} else {
						err = inst.RecordWorkloadInstalled(band, id, tx)
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			verb := "Recorded"
			if remove {
				verb = "Removed records for"
			}
			ui.success("%s %s in band %s", verb, strings.Join(args, ", "), band)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the installation record")
	return cmd
}

func pluralPacks(n int) string {
	if n == 1 {
		return "1 pack"
	}
	return strconv.Itoa(n) + " packs"
}
