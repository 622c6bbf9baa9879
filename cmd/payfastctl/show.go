package main

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/payfast/payfast/internal/account"
	"github.com/payfast/payfast/internal/money"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an account's details and balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeFn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			acc, err := app.accounts.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return pterm.DefaultTable.WithWriter(cmd.OutOrStdout()).WithData(summaryTable(acc.Summary())).Render()
		},
	}
}

func summaryTable(s account.Summary) pterm.TableData {
	return pterm.TableData{
		{"UPI", s.ID},
		{"Name", s.OwnerName},
		{"Email", s.OwnerEmail},
		{"Balance", money.Format(s.Balance)},
		{"Opened", s.CreatedAt.Format(time.RFC3339)},
	}
}
