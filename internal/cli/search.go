package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// searchHit is one match in --json output.
type searchHit struct {
	Row    int    `json:"row"`
	ID     string `json:"id"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

func newSearchCmd(a *app) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "search <source> <text>",
		Short: "List the cells matching a text or pattern",
		Long: "Scan the visible columns of the visible rows for text, in display order,\n" +
			"and print each match as row, column and cell value.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.search = args[1]
			m, err := a.open(cmd.Context(), args[0], &f)
			if err != nil {
				return err
			}
			rows := m.Items().Visible()
			registry := m.Registry()
			hits := make([]searchHit, 0)
			for _, r := range m.Search().Results() {
				row := rows[r.Row]
				hits = append(hits, searchHit{
					Row:    r.Row,
					ID:     row.ID,
					Column: r.ID,
					Value:  registry.String(row, r.ID),
				})
			}
			if a.jsonMode {
				return writeJSON(cmd.OutOrStdout(), hits)
			}
			for _, h := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", h.Row, h.ID, h.Column, h.Value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d matches\n", len(hits))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
