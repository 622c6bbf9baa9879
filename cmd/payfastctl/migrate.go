package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/payfast/payfast/internal/infra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := infra.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Println("schema is up to date")
			return nil
		},
	}
}
