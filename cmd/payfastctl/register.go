package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/payfast/payfast/internal/account"
	"github.com/payfast/payfast/internal/money"
	"github.com/payfast/payfast/internal/payid"
)

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var input account.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Open an account with the configured starting balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, closeFn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			ids := payid.NewGenerator(app.accounts,
				payid.WithNamespace(app.cfg.PayIDNamespace),
				payid.WithMaxAttempts(app.cfg.PayIDMaxAttempts),
			)
			svc := account.NewService(app.accounts, ids, app.cfg.StartingBalance, account.WithLogger(app.logger))
			acc, err := svc.Register(cmd.Context(), input)
			if err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("registered %s with balance %s", acc.ID, money.Format(acc.Balance))
			return nil
		},
	}

	cmd.Flags().StringVar(&input.FullName, "name", "", "account holder's full name")
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	cmd.Flags().StringVar(&input.Password, "password", "", "sign-in password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
