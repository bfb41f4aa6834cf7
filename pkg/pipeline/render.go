package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/packforge/pkg/assets"
	"github.com/matzehuels/packforge/pkg/errors"
	pkgio "github.com/matzehuels/packforge/pkg/io"
	"github.com/matzehuels/packforge/pkg/render/nodelink"
)

// RenderGraph exports the dependency graph of one target in each format.
// An empty target selects the first target in key order. FormatAssets
// writes the complete extracted graph rather than a single target.
func (r *Runner) RenderGraph(ctx context.Context, g *assets.Graph, target string, formats []string, detailed bool) (map[string][]byte, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}
	if target == "" {
		keys := g.TargetKeys()
		if len(keys) == 0 {
			return nil, errors.New(errors.ErrCodeNotFound, "graph has no targets")
		}
		target = keys[0]
	}

	d, err := g.ToDAG(target)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(formats))
	var dot string
	for _, format := range formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch format {
		case FormatAssets:
			data, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("encode graph: %w", err)
			}
			out[format] = append(data, '\n')
		case FormatJSON:
			var buf bytes.Buffer
			if err := pkgio.WriteJSON(d, &buf); err != nil {
				return nil, err
			}
			out[format] = buf.Bytes()
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(d, nodelink.Options{Detailed: detailed})
			}
			if format == FormatDOT {
				out[format] = []byte(dot)
				continue
			}
			svg, err := nodelink.RenderSVG(dot)
			if err != nil {
				return nil, fmt.Errorf("render svg: %w", err)
			}
			out[format] = svg
		}
	}
	r.Logger.Debug("rendered graph", "target", target, "nodes", d.NodeCount(), "formats", formats)
	return out, nil
}
