package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rheumactive/internal/config"
	"rheumactive/internal/logger"
	"rheumactive/internal/microservices/tcp"
	"rheumactive/internal/pose"
	"rheumactive/internal/streamer"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Setup structured logging
	logger := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting_camera_streamer",
		"ingest_addr", cfg.IngestAddr,
		"width", cfg.CameraWidth,
		"height", cfg.CameraHeight,
		"fps", cfg.CameraFPS,
	)

	link, err := tcp.DialRetry(ctx, cfg.IngestAddr, time.Second, logger)
	if err != nil {
		logger.Info("camera_streamer_stopped", "reason", err.Error())
		return
	}
	defer link.Close()

	s := streamer.New(
		link,
		pose.NewMockEstimator(cfg.CameraWidth, cfg.CameraHeight),
		pose.Renderer{Width: cfg.CameraWidth, Height: cfg.CameraHeight, Quality: cfg.JPEGQuality},
		cfg.CameraFPS,
		logger,
	)

	// reverse path: commands from the web back end
	go func() {
		if err := link.ReadCommands(s.HandleCommand); err != nil {
			logger.Warn("command_reader_stopped", "error", err.Error())
		}
	}()

	if err := s.Run(ctx); err != nil {
		logger.Error("streamer_error", "error", err.Error(), "frames_sent", link.Sent())
		os.Exit(1)
	}
	logger.Info("camera_streamer_stopped", "frames_sent", link.Sent())
}
