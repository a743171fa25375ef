// ABOUTME: Visualization CLI commands
// ABOUTME: Renders the deal pipeline and account graphs as DOT, SVG, or PNG
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harperreed/pagen-admin/viz"
)

func (a *app) vizCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Generate graphviz graphs",
	}

	graph := func(use, short string, generate func(*viz.GraphGenerator, context.Context, viz.Format) ([]byte, error)) *cobra.Command {
		var output, format string

		c := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				// The output extension picks the format unless --format is given
				if format == "" && output != "" {
					format = filepath.Ext(output)
				}
				f, err := viz.ParseFormat(format)
				if err != nil {
					return err
				}

				ws, err := a.workspace()
				if err != nil {
					return err
				}
				if err := ws.LoadAll(cmd.Context()); err != nil {
					return fmt.Errorf("failed to load records: %w", err)
				}

				data, err := generate(viz.NewGraphGenerator(ws), cmd.Context(), f)
				if err != nil {
					return err
				}

				if output != "" {
					if err := os.WriteFile(output, data, 0644); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", output)
					return nil
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		}

		c.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
		c.Flags().StringVar(&format, "format", "", "dot, svg, or png (default: from --output, else dot)")
		return c
	}

	cmd.AddCommand(
		graph("pipeline", "Deals by pipeline stage", (*viz.GraphGenerator).GeneratePipelineGraph),
		graph("accounts", "Companies with their contacts and deals", (*viz.GraphGenerator).GenerateAccountGraph),
	)
	return cmd
}
