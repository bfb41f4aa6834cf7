package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/packforge/pkg/assets"
	pkgio "github.com/matzehuels/packforge/pkg/io"
	"github.com/matzehuels/packforge/pkg/pipeline"
	"github.com/matzehuels/packforge/pkg/render/nodelink"
)

// depsCommand creates the deps command and its render subcommand.
func (c *CLI) depsCommand() *cobra.Command {
	var (
		projectDir    string
		packageFolder string
		target        string
		formats       string
		output        string
		detailed      bool
		listOnly      bool
	)

	cmd := &cobra.Command{
		Use:   "deps <project.assets.json>",
		Short: "Extract the dependency graph of a project lock file",
		Long: `Extract targets, packages, files and their dependency edges from a
project.assets.json lock file and export the graph of one target.

Formats: json (graph of one target), assets (every definition and edge),
dot, svg.`,
		Example: `  packforge deps obj/project.assets.json --target net8.0 -o deps --format json,svg
  packforge deps obj/project.assets.json --list`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			fs := parseFormats(formats)
			if err := pipeline.ValidateFormats(fs); err != nil {
				return err
			}

			prog := newProgress(logger)
			m, err := assets.ReadModelFile(args[0])
			if err != nil {
				return err
			}
			if projectDir == "" {
				projectDir = filepath.Dir(filepath.Dir(args[0]))
			}
			g, err := assets.Extract(m, assets.Options{ProjectDir: projectDir, PackageFolder: packageFolder, Logger: logger})
			if err != nil {
				return err
			}
			prog.done("Extracted dependency graph", "packages", len(g.Packages), "files", len(g.Files))

			if listOnly {
				printGraphSummary(ui, g)
				return nil
			}

			runner := pipeline.NewRunner(nil, nil, nil, nil, logger)
			out, err := runner.RenderGraph(ctx, g, target, fs, detailed)
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(filepath.Base(args[0]), ".json")
			}
			return writeOutputs(ui, out, fs, output)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&projectDir, "project-dir", "", "directory project paths are relative to (default: parent of the lock file's directory)")
	fl.StringVar(&packageFolder, "package-folder", "", "package folder (default: first folder in the lock file)")
	fl.StringVarP(&target, "target", "t", "", "target to export, e.g. net8.0/linux-x64 (default: first)")
	fl.StringVar(&formats, "format", "", "output formats, comma-separated: json, assets, dot, svg (default: json)")
	fl.StringVarP(&output, "output", "o", "", "output path without extension")
	fl.BoolVar(&detailed, "detailed", false, "label nodes with version and type")
	fl.BoolVar(&listOnly, "list", false, "print targets and packages instead of exporting")

	cmd.AddCommand(c.depsRenderCommand())
	return cmd
}

// depsRenderCommand renders a previously exported JSON graph.
func (c *CLI) depsRenderCommand() *cobra.Command {
	var (
		output   string
		format   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "render <graph.json>",
		Short: "Render an exported dependency graph as DOT or SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := newPrinter(cmd.OutOrStdout())
			g, err := pkgio.ImportJSON(args[0])
			if err != nil {
				return err
			}
			dot := nodelink.ToDOT(g, nodelink.Options{Detailed: detailed})

			var data []byte
			switch format {
			case pipeline.FormatDOT:
				data = []byte(dot)
			case pipeline.FormatSVG:
				if data, err = nodelink.RenderSVG(dot); err != nil {
					return err
				}
			default:
				return fmt.Errorf("render supports dot and svg, not %q", format)
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + format
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			ui.success("Rendered %d nodes", g.NodeCount())
			ui.file(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with the format's extension)")
	cmd.Flags().StringVar(&format, "format", pipeline.FormatSVG, "dot or svg")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label nodes with version and type")
	return cmd
}

// writeOutputs writes one file per format next to base.
func writeOutputs(ui printer, out map[string][]byte, formats []string, base string) error {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	ui.success("Exported %d format(s)", len(formats))
	for _, f := range formats {
		ext := f
		if f == pipeline.FormatAssets {
			ext = "assets.json"
		}
		path := base + "." + ext
		if err := os.WriteFile(path, out[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		ui.file(path)
	}
	return nil
}

func printGraphSummary(ui printer, g *assets.Graph) {
	for _, key := range g.TargetKeys() {
		n := 0
		for _, pd := range g.PackageDependencies {
			if pd.Target == key {
				n++
			}
		}
		ui.keyValue("target", key+" "+StyleDim.Render(fmt.Sprintf("(%d edges)", n)))
	}
	for _, p := range g.Packages {
		ui.detail("%s %s", p.Key, p.Type)
	}
}
