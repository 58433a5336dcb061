package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linkdrop/linkdrop/internal/client"
	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/metrics"
	"github.com/linkdrop/linkdrop/internal/proxy"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	logger.Info().
		Str("proxy_connection_string", cfg.ProxyConnectionString).
		Str("backend_url", cfg.BackendURL).
		Int("server_port", cfg.Server.Port).
		Str("server_address", cfg.Server.Address).
		Bool("circuit_breaker", cfg.CircuitBreaker.Enabled).
		Msg("Application started with configuration")

	if cfg.Sentry.DSN != "" {
		flush, err := proxy.InitSentry(cfg.Sentry.DSN, cfg.Sentry.Environment)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize Sentry, continuing without error reporting")
		} else {
			defer flush()
		}
	}

	backend, err := client.NewClient(cfg, cfg.BackendURL)
	if err != nil {
		logger.Fatal().Err(err).Str("backend_url", cfg.BackendURL).Msg("Invalid backend URL")
	}
	defer func() { _ = backend.Close() }()
	logger.Info().Str("origin", backend.Origin()).Msg("Relaying to backend")

	handler, err := proxy.NewHandler(backend)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build HTTP handler")
	}
	server := proxy.NewHTTPServer(cfg.Server.Address, cfg.Server.Port, handler)

	// Start Prometheus metrics HTTP server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal().Err(err).Msg("Failed to serve metrics")
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown metrics server")
			}
		}()
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown timed out, closing open streams")
			_ = server.Close()
		}
	}()

	logger.Info().Str("address", server.Addr).Msg("Starting HTTP server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Failed to serve HTTP")
	}
	<-stopped

	logger.Info().Msg("Server stopped gracefully")
}
