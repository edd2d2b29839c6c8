// Package main is the entry point for the data logger gateway.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/api"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/config"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/sensor"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/settings"
)

func main() {
	// Load configuration
	cfg := config.Get()

	// Setup logging
	setupLogging(cfg.LogLevel)

	log.Info().
		Str("version", cfg.Version).
		Str("listen", cfg.ListenAddr()).
		Str("mount", cfg.MountPoint).
		Msg("Starting data logger gateway")

	// Open settings store
	store, err := settings.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open settings store")
	}

	// Shared sensor state; logging resumes automatically if configured
	state := sensor.NewState(cfg.SnapshotWait)
	if store.LogOnBoot() {
		log.Info().Msg("log_on_boot is set, starting logging")
		state.SetLogging(true)
	}

	// Start the acquisition loop
	sampler := sensor.NewSampler(
		state,
		sensor.NewIIOSampleFunc(cfg.IIODevices),
		store.Factors,
		cfg.MountPoint,
		cfg.SamplePeriod,
	)
	samplerCtx, stopSampler := context.WithCancel(context.Background())
	samplerDone := make(chan struct{})
	go func() {
		sampler.Run(samplerCtx)
		close(samplerDone)
	}()

	// Create HTTP server
	srv := &http.Server{
		Addr:        cfg.ListenAddr(),
		Handler:     api.NewRouter(cfg, store, state),
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.ListenAddr()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop acquisition so the current log file is closed cleanly
	stopSampler()
	<-samplerDone

	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing settings store")
	}

	log.Info().Msg("Stopped")
}

// setupLogging configures zerolog based on log level.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
