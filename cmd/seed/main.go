// Package main provides a CLI tool for seeding the database with demo quotes.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hubchantier/internal/app"
	"hubchantier/internal/config"
	appctx "hubchantier/internal/core/context"
	"hubchantier/pkg/logger"
)

type seedOptions struct {
	configPath string
	migrate    bool
	userID     string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Seed the database with demo quotes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_FILE"), "Config file path (YAML)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "Apply the schema before seeding")
	cmd.Flags().StringVar(&opts.userID, "user", "seed", "User recorded in the quote journal")

	return cmd
}

func runSeed(ctx context.Context, opts *seedOptions) error {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx = appctx.WithUserID(ctx, opts.userID)

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer application.Close()

	log.Info("connected to database")

	if opts.migrate {
		if err := application.Migrate(ctx); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	for _, demo := range demoQuotes() {
		q, err := seedQuote(ctx, application.Quotes, demo)
		if err != nil {
			return fmt.Errorf("seed quote for %s: %w", demo.ClientName, err)
		}
		log.Infow("seeded demo quote", "number", q.Number, "id", q.ID, "lots", len(demo.Lots))
	}

	log.Info("seeding completed successfully")
	return nil
}
