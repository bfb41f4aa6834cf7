package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/packforge/pkg/errors"
	"github.com/matzehuels/packforge/pkg/rid"
)

// ridCommand creates the rid command tree.
func (c *CLI) ridCommand() *cobra.Command {
	var graphPath string

	cmd := &cobra.Command{
		Use:   "rid",
		Short: "Query the runtime identifier graph",
	}
	cmd.PersistentFlags().StringVar(&graphPath, "rid-graph", "", "RID graph (runtime.json, default from config)")

	cmd.AddCommand(c.ridMatchCommand(&graphPath))
	cmd.AddCommand(c.ridExpandCommand(&graphPath))
	cmd.AddCommand(c.ridHostCommand())
	return cmd
}

func (c *CLI) ridMatchCommand(graphPath *string) *cobra.Command {
	var supported, excluded []string

	cmd := &cobra.Command{
		Use:     "match <rid>",
		Short:   "Find the most specific supported RID compatible with a RID",
		Example: `  packforge rid match linux-musl-x64 --supported linux-x64,linux-musl-x64,unix`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateRID(args[0]); err != nil {
				return err
			}
			g, _, err := c.loadGraph(*graphPath)
			if err != nil {
				return err
			}
			m := g.BestMatch(args[0], supported, excluded)
			switch m.Outcome {
			case rid.Resolved:
				fmt.Fprintln(cmd.OutOrStdout(), m.RID)
				return nil
			case rid.UnknownRID:
				return errors.New(errors.ErrCodeUnknownRID, "runtime identifier %q is not in the graph", args[0])
			default:
				return errors.New(errors.ErrCodeNotFound, "no supported runtime identifier is compatible with %q", args[0])
			}
		},
	}

	cmd.Flags().StringSliceVar(&supported, "supported", nil, "supported RIDs (comma-separated)")
	cmd.Flags().StringSliceVar(&excluded, "excluded", nil, "excluded RIDs (comma-separated)")
	_ = cmd.MarkFlagRequired("supported")
	return cmd
}

func (c *CLI) ridExpandCommand(graphPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "expand <rid>",
		Short: "Print a RID followed by every RID it is compatible with, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateRID(args[0]); err != nil {
				return err
			}
			g, _, err := c.loadGraph(*graphPath)
			if err != nil {
				return err
			}
			if !g.Contains(args[0]) {
				return errors.New(errors.ErrCodeUnknownRID, "runtime identifier %q is not in the graph", args[0])
			}
			for _, r := range g.Expand(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}

func (c *CLI) ridHostCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Print the RID of this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			host := c.Config.HostRID
			if host == "" {
				host = rid.HostRID()
			}
			fmt.Fprintln(cmd.OutOrStdout(), host)
			return nil
		},
	}
}
