package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tabula/internal/paths"
	"github.com/mesh-intelligence/tabula/pkg/source"
)

func newImportCmd(a *app) *cobra.Command {
	var tableName string
	cmd := &cobra.Command{
		Use:   "import <file.jsonl>... <database>",
		Short: "Load JSONL records into a SQLite table",
		Long: "Read records from JSONL files and write them into a SQLite table, creating\n" +
			"it when missing. Records replace earlier rows with the same id.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db := args[len(args)-1]
			if !source.IsDatabase(db) {
				return usagef("%s: want a .db, .sqlite or .sqlite3 database", db)
			}
			files := make([]string, 0, len(args)-1)
			for _, f := range args[:len(args)-1] {
				files = append(files, paths.ResolveSource(a.cfg.DataDir, f))
			}
			if tableName == "" {
				base := filepath.Base(files[0])
				tableName = strings.TrimSuffix(base, filepath.Ext(base))
			}
			records, err := source.JSONL(a.log, files...)(cmd.Context())
			if err != nil {
				return err
			}
			n, err := source.Import(cmd.Context(), db, tableName, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records into %s.%s\n", n, db, tableName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tableName, "table", "t", "", "table name (default: first file's base name)")
	return cmd
}
