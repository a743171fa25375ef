// ABOUTME: Record commands: list, show, add, update, delete, transition, complete
// ABOUTME: Every write goes through the page pipeline so validation and effects apply
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/entity"
)

var moneyFields = map[string]bool{
	"value":          true,
	"totalAmount":    true,
	"amount":         true,
	"totalDealValue": true,
	"discount":       true,
	"taxAmount":      true,
}

func (a *app) listCommand() *cobra.Command {
	var (
		query  string
		sortBy string
		desc   bool
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List records, optionally filtered and sorted",
		Example: `  pagen-admin list contacts --query sarah
  pagen-admin list deals --sort value --desc --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			sortState := c.DefaultSort()
			if sortBy != "" {
				if _, ok := c.Mapping().Field(sortBy); !ok {
					return fmt.Errorf("unknown sort field %q for %s", sortBy, c.Name())
				}
				sortState = entity.SortState{Field: sortBy, Dir: entity.Asc}
			}
			if desc {
				sortState.Dir = entity.Desc
			}

			rows := c.List(query, sortState)
			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintf(out, "No %s found.\n", c.Name())
				return nil
			}
			return writeTable(out, c.Columns(), rows)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Search text")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Field to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) showCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <entity> <id>",
		Short: "Show every field of one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			_, c, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			values, ok := c.Get(id)
			if !ok {
				return fmt.Errorf("%s %d: %w", singular(c.Name()), id, entity.ErrNotFound)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), values)
			}
			writeRecord(cmd.OutOrStdout(), c, values)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) addCommand() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:     "add <entity>",
		Short:   "Create a record",
		Example: `  pagen-admin add companies --set name=Acme --set industry=Software`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			values, err := parseSets(c, sets)
			if err != nil {
				return err
			}

			created, err := c.Create(cmd.Context(), values)
			if err != nil {
				return describe("create", c, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s %v (ID: %v)\n",
				singular(c.Name()), displayName(c, created), created["id"])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value (repeatable)")
	return cmd
}

func (a *app) updateCommand() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:     "update <entity> <id>",
		Short:   "Change fields of a record",
		Example: `  pagen-admin update contacts 1 --set phone=555-0100`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			if len(sets) == 0 {
				return fmt.Errorf("at least one --set is required")
			}
			_, c, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			values, err := parseSets(c, sets)
			if err != nil {
				return err
			}

			updated, err := c.Update(cmd.Context(), id, values)
			if err != nil {
				return describe("update", c, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated %s %v\n", singular(c.Name()), displayName(c, updated))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value (repeatable)")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			_, c, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !yes && term.IsTerminal(int(os.Stdin.Fd())) {
				name := fmt.Sprint(id)
				if values, ok := c.Get(id); ok {
					name = fmt.Sprint(displayName(c, values))
				}
				fmt.Fprintf(out, "Delete %s %s? [y/N] ", singular(c.Name()), name)
				if !confirmed(cmd.InOrStdin()) {
					fmt.Fprintln(out, "Cancelled")
					return nil
				}
			}

			if err := c.Delete(cmd.Context(), id); err != nil {
				return describe("delete", c, err)
			}
			fmt.Fprintf(out, "✓ Deleted %s %d\n", singular(c.Name()), id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (a *app) transitionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "transition <entity> <id> <field> <value>",
		Short:   "Move a record to a new stage or status",
		Example: `  pagen-admin transition deals 2 stage Qualified`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			_, c, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			field := args[2]
			if _, ok := c.Mapping().Field(field); !ok {
				return fmt.Errorf("unknown field %q for %s", field, c.Name())
			}
			value, err := c.Mapping().Coerce(field, args[3])
			if err != nil {
				return fmt.Errorf("invalid %s: %w", field, err)
			}

			updated, err := c.Transition(cmd.Context(), id, field, value)
			if err != nil {
				return describe("transition", c, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %v: %s is now %v\n",
				singular(c.Name()), displayName(c, updated), entity.Label(field), updated[field])
			return nil
		},
	}
}

func (a *app) completeCommand() *cobra.Command {
	var outcome string

	cmd := &cobra.Command{
		Use:   "complete <activity-id>",
		Short: "Mark an activity completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ws, _, err := a.load(cmd.Context(), "activities")
			if err != nil {
				return err
			}
			activity, err := ws.CompleteActivity(cmd.Context(), id, outcome)
			if err != nil {
				return fmt.Errorf("failed to complete activity: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Completed %s\n  Outcome: %s\n", activity.Title, activity.Outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&outcome, "outcome", "", "Outcome note (default: "+crm.DefaultOutcome+")")
	return cmd
}

// parseSets turns field=value flags into coerced values. Every bad field is
// reported at once.
func parseSets(c crm.Collection, sets []string) (map[string]any, error) {
	raw := make(map[string]string, len(sets))
	for _, s := range sets {
		field, value, ok := strings.Cut(s, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --set %q: want field=value", s)
		}
		if _, known := c.Mapping().Field(field); !known {
			return nil, fmt.Errorf("unknown field %q for %s", field, c.Name())
		}
		raw[field] = value
	}

	values, failures := c.Mapping().CoerceAll(raw)
	if len(failures) > 0 {
		return nil, entity.FieldErrors(failures)
	}
	return values, nil
}

func describe(op string, c crm.Collection, err error) error {
	if fe, ok := entity.AsFieldErrors(err); ok {
		return fmt.Errorf("cannot %s %s: %s", op, singular(c.Name()), fe.Error())
	}
	return fmt.Errorf("failed to %s %s: %w", op, singular(c.Name()), err)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}

func confirmed(in io.Reader) bool {
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func displayName(c crm.Collection, values map[string]any) any {
	if f, ok := c.Mapping().UIName(c.Mapping().Display()); ok {
		if v, ok := values[f]; ok && v != "" {
			return v
		}
	}
	for _, f := range []string{"name", "title", "quoteNumber", "transactionId"} {
		if v, ok := values[f]; ok && v != "" {
			return v
		}
	}
	return values["id"]
}

func singular(name string) string {
	switch name {
	case "companies":
		return "company"
	case "activities":
		return "activity"
	}
	return strings.TrimSuffix(name, "s")
}

func writeTable(w io.Writer, columns []string, rows []map[string]any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = strings.ToUpper(entity.Label(col))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = formatValue(col, row[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeRecord(w io.Writer, c crm.Collection, values map[string]any) {
	fields := make([]string, 0, len(values))
	for _, f := range c.Mapping().Fields() {
		if _, ok := values[f.UI]; ok {
			fields = append(fields, f.UI)
		}
	}
	for _, f := range fields {
		v := formatValue(f, values[f])
		if v == "" {
			continue
		}
		fmt.Fprintf(w, "%-20s %s\n", entity.Label(f)+":", v)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(field string, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case float64:
		if moneyFields[field] {
			return "$" + humanize.Commaf(x)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case []any:
		return fmt.Sprintf("%d entries", len(x))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
