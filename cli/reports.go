// ABOUTME: Reporting commands: kanban board, per-entity stats, dashboard, analytics
// ABOUTME: Summaries are computed from freshly loaded pages
package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/harperreed/pagen-admin/analytics"
	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/viz"
)

func (a *app) boardCommand() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show deals grouped by pipeline stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := a.load(cmd.Context(), "deals")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var count int
			var total float64
			for _, b := range ws.Board(query) {
				fmt.Fprintf(out, "%s (%d, $%s)\n", b.Name, b.Count, humanize.Commaf(b.Total))
				for _, d := range b.Items {
					fmt.Fprintf(out, "  #%d %s  $%s\n", d.ID, d.Title, humanize.Commaf(d.Value))
				}
				count += b.Count
				total += b.Total
			}
			fmt.Fprintf(out, "\nTotal: %d deals, $%s\n", count, humanize.Commaf(total))
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Only deals matching this search")
	return cmd
}

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <deals|quotes|transactions|activities>",
		Short: "Show totals by stage or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, c, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch c.Name() {
			case "deals":
				return writeTotals(out, "STAGE", ws.PipelineStats())
			case "quotes":
				return writeTotals(out, "STATUS", ws.QuoteStats())
			case "transactions":
				return writeTotals(out, "STATUS", ws.TransactionTotals())
			case "activities":
				open := ws.OpenActivities()
				overdue := ws.OverdueActivities(ws.Now())
				fmt.Fprintf(out, "Open:      %d\n", len(open))
				fmt.Fprintf(out, "Completed: %d\n", len(ws.ActivityHistory()))
				fmt.Fprintf(out, "Overdue:   %d\n", len(overdue))
				for _, act := range overdue {
					fmt.Fprintf(out, "  ! %s (due %s)\n", act.Title, act.DueDate)
				}
				return nil
			}
			return fmt.Errorf("no stats for %s", c.Name())
		},
	}
}

func writeTotals(w io.Writer, heading string, totals []crm.StatusTotal) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tCOUNT\tAMOUNT\n", heading)
	var count int
	var amount float64
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%d\t$%s\n", t.Status, t.Count, humanize.Commaf(t.Amount))
		count += t.Count
		amount += t.Amount
	}
	fmt.Fprintf(tw, "%s\t%d\t$%s\n", strings.Repeat("─", len(heading)), count, humanize.Commaf(amount))
	return tw.Flush()
}

func (a *app) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the ASCII dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			if err := ws.LoadAll(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load records: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), viz.RenderDashboard(viz.GenerateDashboardStats(ws)))
			return nil
		},
	}
}

func (a *app) analyticsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Print pipeline, conversion, activity, and forecast metrics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}

			m, err := analytics.Load(cmd.Context(), ws)
			if err != nil {
				return fmt.Errorf("failed to compute analytics: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), m)
		},
	}
}
