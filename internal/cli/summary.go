package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// summaryOutput is the --json form of a column summary.
type summaryOutput struct {
	Column  string  `json:"column"`
	Rows    int     `json:"rows"`
	Count   int     `json:"count"`
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

func newSummaryCmd(a *app) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "summary <source> <column>",
		Short: "Summarize the numeric values of a column",
		Long:  "Print count, sum, average, minimum and maximum of the numeric values of\na column over the visible rows. Non-numeric cells are skipped.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.open(cmd.Context(), args[0], &f)
			if err != nil {
				return err
			}
			s, err := m.Summary(args[1])
			if err != nil {
				return usagef("%s", err)
			}
			out := summaryOutput{
				Column:  args[1],
				Rows:    m.Items().VisibleCount(),
				Count:   s.Count,
				Sum:     s.Sum,
				Average: s.Average,
				Min:     s.Min,
				Max:     s.Max,
			}
			if a.jsonMode {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "column:  %s\n", out.Column)
			fmt.Fprintf(w, "rows:    %d\n", out.Rows)
			fmt.Fprintf(w, "count:   %d\n", out.Count)
			if out.Count == 0 {
				return nil
			}
			fmt.Fprintf(w, "sum:     %g\n", out.Sum)
			fmt.Fprintf(w, "average: %g\n", out.Average)
			fmt.Fprintf(w, "min:     %g\n", out.Min)
			fmt.Fprintf(w, "max:     %g\n", out.Max)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
