// Package main provides the entrypoint for the AirSight cache warming worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/provider/doe"
	"github.com/airsight/airsight/internal/provider/resilience"
	"github.com/airsight/airsight/internal/provider/waqi"
	"github.com/airsight/airsight/internal/station"
	"github.com/airsight/airsight/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airsight-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AirSight worker")

	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the same feed stack the API uses; the warm job shares its
	// query path so cache keys line up with user queries.
	registry := resilience.NewRegistry()

	doeHTTP := resilience.NewClient(resilience.ClientConfig{Name: doe.ProviderName})
	registry.Register(doe.ProviderName, doeHTTP)
	doeClient := doe.NewClient(doe.ClientConfig{
		BaseURL:    os.Getenv("DOE_BASE_URL"),
		HTTPClient: doeHTTP,
	})

	waqiHTTP := resilience.NewClient(resilience.ClientConfig{Name: waqi.ProviderName})
	registry.Register(waqi.ProviderName, waqiHTTP)
	waqiClient := waqi.NewClient(waqi.ClientConfig{
		BaseURL:    os.Getenv("WAQI_BASE_URL"),
		Token:      os.Getenv("WAQI_TOKEN"),
		HTTPClient: waqiHTTP,
	})

	stationService, err := station.NewService(station.ServiceConfig{
		Adapters: []station.Adapter{doeClient, waqiClient},
		Logger:   log,
		Registry: registry,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize station service")
	}

	warmJob := worker.NewWarmJob(worker.WarmJobConfig{
		Logger:  log,
		Service: stationService,
	})

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Pub/Sub-driven jobs, when a subscription is configured.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID != "" && subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			WarmJob:          warmJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize pubsub handler")
		}
		defer func() {
			if closeErr := handler.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Fatal().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Warn().Msg("pubsub not configured - running on the warm interval only")
	}

	// Periodic warm runs regardless of Pub/Sub.
	interval := intervalFromEnv("WARM_INTERVAL_SECONDS", 5*time.Minute)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Warm once at startup so the first user queries hit a hot cache.
		warmJob.Run(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				warmJob.Run(ctx)
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// intervalFromEnv reads an interval in seconds from the environment.
func intervalFromEnv(key string, def time.Duration) time.Duration {
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
