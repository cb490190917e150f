package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"rheumactive/database"
	"rheumactive/internal/config"
	"rheumactive/internal/logger"
	"rheumactive/internal/microservices/http-api/handler"
	"rheumactive/internal/microservices/http-api/middleware"
	"rheumactive/internal/microservices/http-api/repository"
	"rheumactive/internal/microservices/http-api/service"
	"rheumactive/internal/microservices/mjpeg"
	"rheumactive/internal/microservices/tcp"
	"rheumactive/internal/microservices/websocket"
	"rheumactive/internal/output"
	"rheumactive/internal/web"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Setup structured logging
	logger := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Producer link
	store := tcp.NewFrameStore()
	supervisor := tcp.NewSupervisor(tcp.ListenerConfig{
		Addr:                cfg.IngestAddr,
		MaxMessageSize:      uint32(cfg.IngestMaxMessageBytes),
		CommandWriteTimeout: cfg.CommandWriteTimeout,
	}, store, logger)
	supervisor.Reconnect = cfg.IngestReconnect
	supervisor.Delay = cfg.IngestReconnectDelay

	go func() {
		// failures are logged by the supervisor; the web surface keeps serving
		_ = supervisor.Run(ctx)
	}()

	// Measurement store
	var (
		repo   repository.MeasurementRepository
		pinger handler.DatabasePinger
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("database_connect_failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		repo = repository.NewMeasurementRepository(db.Gorm)
		pinger = db
	} else {
		logger.Warn("database_in_memory", "reason", "DATABASE_URL not set, measurements are lost on exit")
		repo = repository.NewMemoryMeasurementRepository()
	}

	if cfg.RedisURL != "" {
		if rdb, err := connectRedis(ctx, cfg); err != nil {
			logger.Warn("measurement_cache_disabled", "error", err.Error())
		} else {
			defer rdb.Close()
			repo = repository.NewCachedMeasurementRepository(repo, rdb, cfg.CacheExpiry(), logger)
			logger.Info("measurement_cache_enabled", "ttl", cfg.CacheExpiry().String())
		}
	}

	opts := []service.MeasurementOption{}
	if rawLog, err := output.NewRawLogWriter(cfg.LogsDir); err != nil {
		logger.Warn("measurement_export_disabled", "dir", cfg.LogsDir, "error", err.Error())
	} else {
		opts = append(opts, service.WithExporter(rawLog))
		logger.Info("measurement_export_enabled", "dir", rawLog.Dir())
	}
	measurements := service.NewMeasurementService(repo, logger, opts...)

	// Setup Gin
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	web.RegisterRoutes(r)

	responder := mjpeg.NewResponder(store, cfg.StreamInterval, logger)
	streamHandler := handler.NewStreamHandler(store, supervisor, responder, pinger, logger)
	commandLimiter := rate.NewLimiter(rate.Limit(cfg.CommandRateLimit), cfg.CommandRateBurst)
	streamHandler.RegisterRoutes(r, middleware.RateLimit(commandLimiter))

	r.GET("/ws/angle", websocket.AngleHandler(ctx, store, cfg.StreamInterval, logger))

	handler.NewMeasurementHandler(measurements).RegisterRoutes(r.Group("/api/measurements"))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end with the process so open streams return on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http_server_starting", "addr", srv.Addr, "ingest_addr", cfg.IngestAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("http_server_error", "error", err.Error())
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_failed", "error", err.Error())
	}
	logger.Info("server_stopped_gracefully")
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	var opts *redis.Options
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.RedisURL}
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
