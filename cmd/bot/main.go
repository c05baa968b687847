package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/guild-audit-bot/internal/app"
	"github.com/example/guild-audit-bot/internal/config"
	"github.com/example/guild-audit-bot/internal/repository"
)

func main() {
	root := &cobra.Command{
		Use:           "bot",
		Short:         "Guild audit and reporting bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}
	root.Flags().String("env-file", "", "optional .env file to load before reading the environment")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command) error {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		// A missing default .env is fine; the environment may be set directly.
		_ = godotenv.Load()
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	ledger, err := repository.NewSQLLedger(cfg.LedgerDriver, cfg.LedgerDSN)
	if err != nil {
		return err
	}
	defer ledger.Close()

	return app.New(cfg, ledger, logger).Run(cmd.Context())
}
