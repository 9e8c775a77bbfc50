package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"signal-controller-go/internal/api"
	"signal-controller-go/internal/config"
	"signal-controller-go/internal/logging"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logging.Setup(cfg)

	lanesWithVideo := 0
	for _, uri := range cfg.Videos {
		if uri != "" {
			lanesWithVideo++
		}
	}

	log.Info().
		Str("controller_id", cfg.ControllerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Int("total_ticks", cfg.TotalTicks).
		Int("default_lane_videos", lanesWithVideo).
		Bool("nats_enabled", cfg.NatsEnabled).
		Bool("auto_emergency", cfg.AutoEmergency).
		Msg("Starting signal controller")

	// Create and start server
	server, err := api.NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	} else {
		log.Info().Msg("Server shutdown complete")
	}
}
