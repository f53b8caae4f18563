// Package main is the entry point for the Hub Chantier API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hubchantier/internal/app"
	"hubchantier/internal/config"
	v1 "hubchantier/internal/infrastructure/http/v1"
	"hubchantier/internal/infrastructure/http/v1/middleware"
	"hubchantier/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the Hub Chantier quote API",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log, err := logger.New(logger.Config{
				Level:       cfg.App.LogLevel,
				Development: cfg.IsDevelopment(),
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger.SetDefault(log)

			if err := run(cfg, log); err != nil {
				log.Errorw("server failed", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "Config file path (YAML)")

	return cmd
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()
	log.Infow("starting hubchantier server", "version", version, "env", cfg.App.Env)

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()
	log.Info("database connection established")

	if cfg.App.AutoMigrate {
		if err := application.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if !cfg.Auth.Enabled {
		log.Warn("bearer authentication disabled, X-User-ID header is trusted")
	}

	var keys middleware.IdempotencyStore
	if application.Idempotency != nil {
		keys = application.Idempotency
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:            log,
		JWTValidator:      application.JWT,
		AuthEnabled:       cfg.Auth.Enabled,
		Metrics:           application.Metrics,
		HealthDB:          application.Pool,
		Version:           version,
		ReleaseMode:       !cfg.IsDevelopment(),
		Idempotency:       keys,
		QuoteService:      application.Quotes,
		PricingService:    application.Pricing,
		ImportService:     application.Import,
		VersioningService: application.Versioning,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
