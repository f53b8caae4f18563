package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hubchantier/internal/app"
	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/auth"
	"hubchantier/pkg/logger"
)

func marginsCmd(opts *globalOptions) *cobra.Command {
	var quoteID string

	cmd := &cobra.Command{
		Use:   "margins",
		Short: "Print the margin report of a quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := id.Parse(quoteID)
			if err != nil {
				return fmt.Errorf("invalid --quote: %w", err)
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Pricing.ComputeMargins(ctx, parsed)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report.DTO())
			})
		},
	}
	cmd.Flags().StringVar(&quoteID, "quote", "", "Quote id")
	_ = cmd.MarkFlagRequired("quote")
	return cmd
}

func migrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				logger.Info(ctx, "migration complete")
				return nil
			})
		},
	}
}

// tokenCmd signs a bearer token with the configured secret, for local
// testing against an API started with auth enabled.
func tokenCmd(opts *globalOptions) *cobra.Command {
	var (
		email string
		roles []string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for the --user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth secret is not configured")
			}

			jwtCfg := auth.DefaultJWTConfig(cfg.Auth.Secret)
			if cfg.Auth.Issuer != "" {
				jwtCfg.Issuer = cfg.Auth.Issuer
			}
			if ttl > 0 {
				jwtCfg.AccessTokenTTL = ttl
			}

			token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(opts.userID, email, roles)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"token":     token,
				"expiresAt": expiresAt,
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role claim (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default from auth config)")
	return cmd
}
