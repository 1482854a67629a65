package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		force    bool
		defaults types.Config
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		Long:  "Create the configuration directory and write config.yaml with the given settings.\nAn existing file is kept unless --force is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.dataDir != "" {
				dir, err := filepath.Abs(a.dataDir)
				if err != nil {
					return err
				}
				defaults.DataDir = dir
			}
			if err := defaults.Validate(); err != nil {
				return usagef("%s", err)
			}
			written, err := writeConfig(a.configDir, defaults, force)
			if err != nil {
				return err
			}
			path := filepath.Join(a.configDir, configFileExt)
			if !written {
				fmt.Fprintf(cmd.OutOrStdout(), "config already exists: %s\n", path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config.yaml")
	cmd.Flags().StringVar(&defaults.Delimiter, "delimiter", ",", "default export delimiter")
	cmd.Flags().BoolVar(&defaults.CaseSensitive, "case-sensitive", false, "match conditions and searches case-sensitively by default")
	cmd.Flags().StringVar(&defaults.RefreshStrategy, "refresh-strategy", types.StrategyClear, "refresh strategy: clear or merge")
	return cmd
}
