package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tabula/pkg/source"
	"github.com/mesh-intelligence/tabula/pkg/table"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		f         viewFlags
		delimiter string
		noHeader  bool
		output    string
		matches   string
	)
	cmd := &cobra.Command{
		Use:   "export <source>",
		Short: "Write the visible rows as delimited text or JSONL",
		Long: "Export the visible columns of the visible rows. Output goes to stdout or,\n" +
			"with --output, to a file; a .jsonl output file receives whole records\n" +
			"written atomically. With --matches only rows containing the text are written.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.search = matches
			m, err := a.open(cmd.Context(), args[0], &f)
			if err != nil {
				return err
			}
			if matches != "" {
				selectMatches(m)
			}

			if strings.EqualFold(filepath.Ext(output), ".jsonl") {
				rows := m.Items().Visible()
				if matches != "" {
					rows = m.Selection().Items()
				}
				if err := source.WriteJSONL(output, rows); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", len(rows), output)
				return nil
			}

			opts := table.ExportOptions{
				Delimiter:    a.cfg.DelimiterRune(),
				Header:       !noHeader,
				SelectedOnly: matches != "",
			}
			if delimiter != "" {
				d := strings.ReplaceAll(delimiter, `\t`, "\t")
				if utf8.RuneCountInString(d) != 1 {
					return usagef("--delimiter %q: want a single character", delimiter)
				}
				opts.Delimiter, _ = utf8.DecodeRuneInString(d)
			}
			if output == "" {
				return m.Export(cmd.OutOrStdout(), opts)
			}
			var buf bytes.Buffer
			if err := m.Export(&buf, opts); err != nil {
				return err
			}
			return os.WriteFile(output, buf.Bytes(), 0o644)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", `field delimiter, \t for tab (default from config)`)
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "omit the header line")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file; .jsonl writes records")
	cmd.Flags().StringVar(&matches, "matches", "", "export only rows containing this text")
	return cmd
}
