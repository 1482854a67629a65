package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newViewCmd(a *app) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "view <source>",
		Short: "Print the visible rows of a source",
		Long: "Load a JSONL file or SQLite query and print its rows after applying\n" +
			"--where conditions, --sort keys and --columns visibility. With --search the\n" +
			"matching rows are marked and the match count reported.",
		Example: "  tabula view people.jsonl --where 'age>=30' --sort name --columns name,age\n" +
			"  tabula view shop.db --query 'SELECT * FROM orders' --sort total:desc",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.open(cmd.Context(), args[0], &f)
			if err != nil {
				return err
			}
			if f.search != "" {
				selectMatches(m)
			}
			if a.jsonMode {
				return writeJSON(cmd.OutOrStdout(), visibleObjects(m))
			}
			renderTable(cmd.OutOrStdout(), m, f.search != "")
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d rows", m.Items().VisibleCount(), m.Items().Count())
			if f.search != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d matches", len(m.Search().Results()))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.search, "search", "", "mark rows containing this text")
	return cmd
}

// renderTable prints the visible columns of the visible rows. With marks,
// selected rows are flagged with a leading "*".
func renderTable(w io.Writer, m *recordModel, marks bool) {
	columns := m.Columns().VisibleColumns()
	header := columns
	if marks {
		header = append([]string{""}, columns...)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)

	rows := m.Items().Visible()
	registry := m.Registry()
	for i, r := range rows {
		line := make([]string, 0, len(header))
		if marks {
			mark := ""
			if m.Selection().Contains(i) {
				mark = "*"
			}
			line = append(line, mark)
		}
		for _, c := range columns {
			line = append(line, registry.String(r, c))
		}
		tw.Append(line)
	}
	tw.Render()
}

// selectMatches selects every row holding a search match.
func selectMatches(m *recordModel) {
	results := m.Search().Results()
	m.Selection().Adjust(func() {
		for _, r := range results {
			_ = m.Selection().AddIndex(r.Row)
		}
	})
}

// visibleObjects returns the visible rows as objects holding the visible
// columns.
func visibleObjects(m *recordModel) []map[string]any {
	columns := m.Columns().VisibleColumns()
	registry := m.Registry()
	rows := m.Items().Visible()
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		obj := make(map[string]any, len(columns))
		for _, c := range columns {
			obj[c] = registry.Value(r, c)
		}
		out = append(out, obj)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
