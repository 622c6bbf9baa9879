package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/payfast/payfast/internal/account"
	"github.com/payfast/payfast/internal/config"
	"github.com/payfast/payfast/internal/infra"
	"github.com/payfast/payfast/internal/ledger"
	"github.com/payfast/payfast/internal/logging"
)

// cliApp holds the stores a command works against.
type cliApp struct {
	cfg      config.Config
	logger   *slog.Logger
	accounts account.Repository
	store    ledger.Store
}

type rootOptions struct {
	databaseURL string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "payfastctl",
		Short:         "Operator tooling for the PayFast wallet ledger",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "postgres connection string (defaults to DATABASE_URL)")

	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newRegisterCmd(opts))
	rootCmd.AddCommand(newTransferCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newShowCmd(opts))
	return rootCmd
}

// loadConfig reads the environment and applies flag overrides. Commands always talk to a real
// database, so the URL is required regardless of profile. Redis is never used here.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.LoadFor(config.Backends{})
	if err != nil {
		return config.Config{}, err
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	if cfg.DatabaseURL == "" {
		return config.Config{}, fmt.Errorf("a database is required: set DATABASE_URL or --database-url")
	}
	return cfg, nil
}

func (o *rootOptions) open(ctx context.Context) (*cliApp, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, infra.PoolOptionsFrom(cfg)...)
	if err != nil {
		return nil, nil, err
	}
	accounts := account.NewPostgresRepository(pool)
	app := &cliApp{
		cfg:      cfg,
		logger:   logging.New(cfg.AppName+"-ctl", cfg.LogLevel, "text"),
		accounts: accounts,
		store:    ledger.NewPostgresStore(pool),
	}
	return app, pool.Close, nil
}
