package cli

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/packforge/pkg/conflicts"
	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/pipeline"
)

// conflictsFile is the TOML description of one build's candidate files.
// Relative platform manifest and override paths are resolved against the
// file's directory.
type conflictsFile struct {
	PreferredPackages []string          `toml:"preferred_packages"`
	References        []fileItem        `toml:"reference"`
	Analyzers         []fileItem        `toml:"analyzer"`
	CopyLocal         []fileItem        `toml:"copy_local"`
	RuntimeOther      []fileItem        `toml:"runtime_other"`
	Platform          []fileItem        `toml:"platform"`
	PlatformManifests []platformFile    `toml:"platform_manifest"`
	Overrides         []overrideEntry   `toml:"override"`
	OverrideFiles     []overrideFileRef `toml:"override_file"`
}

type fileItem struct {
	Path            string `toml:"path"`
	Destination     string `toml:"destination"`
	Package         string `toml:"package"`
	PackageVersion  string `toml:"package_version"`
	AssemblyVersion string `toml:"assembly_version"`
	FileVersion     string `toml:"file_version"`
	Private         bool   `toml:"private"`
}

type platformFile struct {
	Path           string `toml:"path"`
	PackageVersion string `toml:"package_version"`
}

type overrideEntry struct {
	Overridden string `toml:"overridden"`
	Overriding string `toml:"overriding"`
	Minimum    string `toml:"minimum"`
}

type overrideFileRef struct {
	Path    string `toml:"path"`
	Package string `toml:"package"`
}

func (f fileItem) item(t conflicts.ItemType) *conflicts.Item {
	return &conflicts.Item{
		SourcePath:         f.Path,
		DestinationSubPath: f.Destination,
		Type:               t,
		PackageID:          f.Package,
		PackageVersion:     f.PackageVersion,
		AssemblyVersion:    f.AssemblyVersion,
		FileVersion:        f.FileVersion,
		Private:            f.Private,
	}
}

func items(entries []fileItem, t conflicts.ItemType) []*conflicts.Item {
	out := make([]*conflicts.Item, len(entries))
	for i, e := range entries {
		out[i] = e.item(t)
	}
	return out
}

// loadConflictsInput decodes a conflicts file into resolver input.
func loadConflictsInput(path string) (conflicts.Input, error) {
	var f conflictsFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return conflicts.Input{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return conflicts.Input{}, errors.New(errors.ErrCodeInvalidInput, "%s: unknown key %s", path, undecoded[0])
	}
	base := filepath.Dir(path)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	in := conflicts.Input{
		PreferredPackages: f.PreferredPackages,
		References:        items(f.References, conflicts.Reference),
		Analyzers:         items(f.Analyzers, conflicts.Analyzer),
		CopyLocal:         items(f.CopyLocal, conflicts.CopyLocal),
		OtherRuntimeItems: items(f.RuntimeOther, conflicts.RuntimeOther),
		PlatformItems:     items(f.Platform, conflicts.Platform),
	}
	for _, pm := range f.PlatformManifests {
		r, err := os.Open(resolve(pm.Path))
		if err != nil {
			return conflicts.Input{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "platform manifest")
		}
		parsed, err := conflicts.ParsePlatformManifest(r, pm.PackageVersion)
		r.Close()
		if err != nil {
			return conflicts.Input{}, err
		}
		in.PlatformItems = append(in.PlatformItems, parsed...)
	}
	for _, o := range f.Overrides {
		in.Overrides = append(in.Overrides, conflicts.PackageOverride{
			OverriddenPackageID:      o.Overridden,
			OverridingPackageID:      o.Overriding,
			MinimumOverridingVersion: o.Minimum,
		})
	}
	for _, of := range f.OverrideFiles {
		r, err := os.Open(resolve(of.Path))
		if err != nil {
			return conflicts.Input{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "override file")
		}
		parsed, err := conflicts.ParsePackageOverrides(of.Package, r)
		r.Close()
		if err != nil {
			return conflicts.Input{}, err
		}
		in.Overrides = append(in.Overrides, parsed...)
	}
	return in, nil
}

type conflictReport struct {
	References []string         `json:"references"`
	Analyzers  []string         `json:"analyzers"`
	CopyLocal  []string         `json:"copy_local"`
	Conflicts  []conflictRecord `json:"conflicts"`
}

type conflictRecord struct {
	Item    string `json:"item"`
	Type    string `json:"type"`
	Package string `json:"package,omitempty"`
	Winner  string `json:"winner,omitempty"`
	Reason  string `json:"reason"`
}

func paths(items []*conflicts.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.SourcePath
	}
	return out
}

func newConflictReport(out *conflicts.Output) conflictReport {
	rep := conflictReport{
		References: paths(out.ReferencesWithoutConflicts),
		Analyzers:  paths(out.AnalyzersWithoutConflicts),
		CopyLocal:  paths(out.CopyLocalWithoutConflicts),
	}
	for _, c := range out.Conflicts {
		rec := conflictRecord{Item: c.Item.SourcePath, Type: c.Type.String(), Package: c.PackageID, Reason: c.Reason.String()}
		if c.Winner != nil {
			rec.Winner = c.Winner.SourcePath
		}
		rep.Conflicts = append(rep.Conflicts, rec)
	}
	return rep
}

// conflictsCommand creates the conflicts command.
func (c *CLI) conflictsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "conflicts <input.toml>",
		Short: "Remove conflicting package files from a build's item lists",
		Long: `Resolve conflicts between compile references, analyzers and runtime files
described in a TOML file. Losers are reported with the rule that decided
against them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			in, err := loadConflictsInput(args[0])
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(nil, nil, nil, nil, loggerFromContext(cmd.Context()))
			out, err := runner.ResolveConflicts(cmd.Context(), in)
			if err != nil {
				return err
			}
			rep := newConflictReport(out)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}

			ui.success("%d references, %d analyzers, %d copy-local files kept",
				len(rep.References), len(rep.Analyzers), len(rep.CopyLocal))
			for _, rec := range rep.Conflicts {
				ui.warning("%s %s lost to %s (%s)", rec.Type, rec.Item, orDash(rec.Winner), rec.Reason)
			}
			if len(rep.Conflicts) == 0 {
				ui.detail("no conflicts")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

