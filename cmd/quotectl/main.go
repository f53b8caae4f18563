// Package main provides quotectl, the operator CLI for Hub Chantier quotes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hubchantier/internal/app"
	"hubchantier/internal/config"
	appctx "hubchantier/internal/core/context"
	"hubchantier/pkg/logger"
)

const appName = "quotectl"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	userID     string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operate Hub Chantier quotes from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_FILE"), "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.userID, "user", appName, "User recorded in the quote journal")

	cmd.AddCommand(
		importCmd(opts),
		marginsCmd(opts),
		migrateCmd(opts),
		templateCmd(),
		tokenCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, version)
			},
		},
	)

	return cmd
}

// loadConfig reads the configuration and installs the process logger.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.IsDevelopment(),
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	return cfg, nil
}

// withApp opens the database, runs fn with the acting user in context and
// closes everything afterwards.
func (o *globalOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	ctx := appctx.WithUserID(cmd.Context(), o.userID)
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
