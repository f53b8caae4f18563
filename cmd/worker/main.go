// Package main is the entry point for the Hub Chantier background worker.
// It periodically expires sent and viewed quotes past their validity date
// and purges expired idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hubchantier/internal/app"
	"hubchantier/internal/config"
	appctx "hubchantier/internal/core/context"
	"hubchantier/pkg/logger"
)

// workerUserID is recorded as the author of automatic status changes.
const workerUserID = "system:expiry-worker"

type workerOptions struct {
	configPath string
	interval   time.Duration
	once       bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &workerOptions{}

	cmd := &cobra.Command{
		Use:           "worker",
		Short:         "Expire overdue quotes and purge idempotency keys on a schedule",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_FILE"), "Config file path (YAML)")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Hour, "Delay between sweeps")
	cmd.Flags().BoolVar(&opts.once, "once", false, "Run a single sweep and exit")

	return cmd
}

func runWorker(ctx context.Context, opts *workerOptions) error {
	cfg, err := config.Load(opts.configPath)
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

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("starting hubchantier worker")

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer application.Close()

	worker := NewExpiryWorker(application, log, opts.interval)

	if opts.once {
		worker.Sweep(ctx)
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
	return nil
}

// Expirer is the quote use case the worker drives.
type Expirer interface {
	ExpireOverdue(ctx context.Context, today time.Time) (int, error)
}

// KeyCleaner purges expired idempotency keys.
type KeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// ExpiryWorker runs the expiry sweep on a ticker.
type ExpiryWorker struct {
	quotes   Expirer
	keys     KeyCleaner
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

// NewExpiryWorker creates a worker over the application's quote service.
func NewExpiryWorker(a *app.App, log *logger.Logger, interval time.Duration) *ExpiryWorker {
	w := newExpiryWorker(a.Quotes, log, interval)
	if a.Idempotency != nil {
		w.keys = a.Idempotency
	}
	return w
}

func newExpiryWorker(quotes Expirer, log *logger.Logger, interval time.Duration) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiryWorker{
		quotes:   quotes,
		log:      log.WithComponent("expiry-worker"),
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (w *ExpiryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep expires overdue quotes once, then drops expired idempotency keys.
func (w *ExpiryWorker) Sweep(ctx context.Context) {
	ctx = appctx.WithUserID(ctx, workerUserID)
	today := w.now().UTC()

	count, err := w.quotes.ExpireOverdue(ctx, today)
	switch {
	case err != nil:
		w.log.Errorw("expiry sweep failed", "error", err)
	case count > 0:
		w.log.Infow("expired overdue quotes", "count", count, "today", today.Format(time.DateOnly))
	}

	if w.keys == nil {
		return
	}
	purged, err := w.keys.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}
	if purged > 0 {
		w.log.Infow("purged idempotency keys", "count", purged)
	}
}
