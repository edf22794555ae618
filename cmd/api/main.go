// Package main provides the entrypoint for the AirSight API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/api"
	"github.com/airsight/airsight/internal/api/middleware"
	"github.com/airsight/airsight/internal/provider/doe"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/provider/waqi"
	"github.com/airsight/airsight/internal/station"
	"github.com/airsight/airsight/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airsight-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AirSight API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Initialize upstream feed clients behind circuit breakers
	registry := resilience.NewRegistry()

	doeHTTP := resilience.NewClient(resilience.ClientConfig{Name: doe.ProviderName})
	registry.Register(doe.ProviderName, doeHTTP)
	doeClient := doe.NewClient(doe.ClientConfig{
		BaseURL:    os.Getenv("DOE_BASE_URL"),
		HTTPClient: doeHTTP,
	})
	log.Info().Msg("DOE feed client initialized")

	waqiHTTP := resilience.NewClient(resilience.ClientConfig{Name: waqi.ProviderName})
	registry.Register(waqi.ProviderName, waqiHTTP)
	waqiToken := os.Getenv("WAQI_TOKEN")
	if waqiToken == "" {
		log.Warn().Msg("WAQI_TOKEN not set - fallback feed requests may be rejected")
	}
	waqiClient := waqi.NewClient(waqi.ClientConfig{
		BaseURL:    os.Getenv("WAQI_BASE_URL"),
		Token:      waqiToken,
		HTTPClient: waqiHTTP,
	})
	log.Info().Msg("WAQI feed client initialized")

	// Initialize the station query service
	stationService, err := station.NewService(station.ServiceConfig{
		Adapters: []station.Adapter{doeClient, waqiClient},
		Logger:   log,
		Registry: registry,
		CacheTTL: durationFromEnv("CACHE_TTL", 5*time.Minute),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize station service")
	}
	log.Info().Msg("station service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		StationService: stationService,
		FeedRegistry:   registry,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// durationFromEnv reads a duration in seconds from the environment.
func durationFromEnv(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}
