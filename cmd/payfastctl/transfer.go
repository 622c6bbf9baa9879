package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/payfast/payfast/internal/money"
	"github.com/payfast/payfast/internal/notification"
	"github.com/payfast/payfast/internal/transfer"
)

func newTransferCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "transfer FROM TO AMOUNT",
		Short:   "Move funds between two accounts",
		Example: "  payfastctl transfer 1a2b3c4d@payfast 5e6f7a8b@payfast 300.50",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := money.Parse(args[2])
			if err != nil {
				return err
			}

			app, closeFn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			executor := transfer.NewExecutor(app.store, notification.NewLoggerNotifier(app.logger),
				transfer.WithTimeout(app.cfg.TransferTimeout),
				transfer.WithLogger(app.logger),
			)
			rec, err := executor.Transfer(cmd.Context(), args[0], args[1], amount)
			if err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("transfer %s: %s from %s to %s",
				rec.ID, money.Format(rec.Amount), rec.FromID, rec.ToID)
			return nil
		},
	}
}
