// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/dpgf"
	"hubchantier/internal/domain/quote/pricing"
	"hubchantier/internal/domain/quote/versioning"
	"hubchantier/internal/infrastructure/http/v1/handlers"
	"hubchantier/internal/infrastructure/http/v1/middleware"
	"hubchantier/internal/infrastructure/metrics"
	"hubchantier/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthEnabled requires a bearer token on /api/v1.
	// When false the X-User-ID header names the acting user.
	AuthEnabled bool

	// Metrics collects HTTP and domain metrics; nil disables /metrics
	Metrics *metrics.Metrics

	// HealthDB is pinged by the readiness check
	HealthDB handlers.Pinger

	// Version is reported by /health/info
	Version string

	// ReleaseMode switches gin to release mode
	ReleaseMode bool

	// Idempotency dedupes writes sent with X-Idempotency-Key; nil disables it
	Idempotency middleware.IdempotencyStore

	QuoteService      *quote.Service
	PricingService    *pricing.Service
	ImportService     *dpgf.Service
	VersioningService *versioning.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	if cfg.Logger != nil {
		router.Use(middleware.Logger(cfg.Logger))
	}
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.HealthDB, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// API v1
	v1 := router.Group("/api/v1")
	if cfg.AuthEnabled {
		v1.Use(middleware.Auth(cfg.JWTValidator))
	} else {
		v1.Use(middleware.UserContext())
	}
	if cfg.Idempotency != nil {
		maxBody := int64(1 << 20)
		if cfg.ImportService != nil {
			maxBody += cfg.ImportService.MaxFileSize()
		}
		v1.Use(middleware.Idempotency(cfg.Idempotency, maxBody))
	}

	baseHandler := handlers.NewBaseHandler()

	if cfg.QuoteService != nil {
		RegisterQuoteRoutes(v1, handlers.NewQuoteHandler(baseHandler, cfg.QuoteService))
	}
	if cfg.PricingService != nil {
		RegisterMarginRoutes(v1, handlers.NewMarginHandler(baseHandler, cfg.PricingService))
	}
	if cfg.ImportService != nil {
		registerImportRoutes(v1, handlers.NewImportHandler(baseHandler, cfg.ImportService))
	}
	if cfg.VersioningService != nil {
		RegisterVersionRoutes(v1, handlers.NewVersionHandler(baseHandler, cfg.VersioningService))
	}

	return router
}

// registerImportRoutes registers DPGF upload and template download.
func registerImportRoutes(rg *gin.RouterGroup, handler *handlers.ImportHandler) {
	rg.POST("/quotes/:id/import", handler.LimitBody(), handler.Import)
	rg.GET("/dpgf/template", handler.Template)
}
