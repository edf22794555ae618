// Package api provides the HTTP API for AirSight.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/api/handler"
	"github.com/airsight/airsight/internal/api/middleware"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/station"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version        string
	BuildTime      string
	Logger         zerolog.Logger
	ServiceName    string
	Metrics        *middleware.Metrics
	StationService *station.Service
	FeedRegistry   *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "airsight-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	stationsHandler := handler.NewStationsHandler(cfg.StationService)
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.StationService, cfg.FeedRegistry)

	queryRateLimit := middleware.RateLimitByIP(middleware.QueryRateLimit)       // 60 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Station queries fan out to upstream feeds on a cache miss, so
		// they carry the tighter rate limit.
		r.Route("/stations", func(r chi.Router) {
			r.Use(queryRateLimit)
			r.Get("/", stationsHandler.QueryByRadius)
			r.Get("/bounds", stationsHandler.QueryByBounds)
			r.Get("/nearest", stationsHandler.Nearest)
			r.Get("/clusters", stationsHandler.Clusters)
		})

		// Ops endpoints
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
			r.With(standardRateLimit).Post("/cache/invalidate", opsHandler.InvalidateCache)
		})
	})

	return r
}
