package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/igdb-proxy/internal/config"
	"github.com/igdb-proxy/internal/handler"
	"github.com/igdb-proxy/internal/igdb"
	"github.com/igdb-proxy/internal/kafka"
	"github.com/igdb-proxy/internal/postgres"
	"github.com/igdb-proxy/internal/redis"
	"github.com/igdb-proxy/internal/service"
	"github.com/igdb-proxy/internal/transform"
	"github.com/igdb-proxy/internal/twitch"
	"github.com/igdb-proxy/internal/websocket"
	"github.com/igdb-proxy/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to an optional .env file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup structured logging
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(*envPath); err != nil {
		logger.Warn("failed to load env file", "path", *envPath, "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	formatter, err := transform.NewFormatter(cfg.Format.Locale, cfg.Format.TimeZone)
	if err != nil {
		logger.Error("invalid format settings", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		redisClient, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("connected to Redis")
	}

	// Token cache and IGDB client
	tokenOpts := []twitch.Option{
		twitch.WithTokenURL(cfg.Twitch.TokenURL),
		twitch.WithHTTPClient(&http.Client{Timeout: cfg.Twitch.Timeout}),
		twitch.WithExpiryMargin(cfg.Twitch.ExpiryMargin),
	}
	if redisClient != nil && cfg.Redis.ShareToken {
		tokenOpts = append(tokenOpts, twitch.WithStore(redis.NewTokenStore(redisClient)))
	}
	tokens, err := twitch.NewTokenCache(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret, logger, tokenOpts...)
	if err != nil {
		logger.Error("failed to create token cache", "error", err)
		os.Exit(1)
	}

	igdbClient, err := igdb.New(tokens.ClientID(), tokens,
		igdb.WithBaseURL(cfg.IGDB.BaseURL),
		igdb.WithHTTPClient(&http.Client{Timeout: cfg.IGDB.Timeout}),
	)
	if err != nil {
		logger.Error("failed to create IGDB client", "error", err)
		os.Exit(1)
	}

	serviceOpts := []service.Option{}
	handlerOpts := []handler.Option{}

	if redisClient != nil {
		serviceOpts = append(serviceOpts, service.WithCache(redis.NewResponseCache(redisClient, cfg.Redis.CacheTTL)))
		handlerOpts = append(handlerOpts, handler.WithReadinessCheck("redis", redisClient))
	}

	// Initialize PostgreSQL
	var postgresRepo *postgres.Repository
	if cfg.Postgres.Enabled {
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		postgresRepo, err = postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer postgresRepo.Close()
		logger.Info("connected to PostgreSQL")

		// Run database migrations
		if err := postgresRepo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		serviceOpts = append(serviceOpts, service.WithRecorder(postgresRepo))
		handlerOpts = append(handlerOpts,
			handler.WithLookups(postgresRepo),
			handler.WithReadinessCheck("postgres", postgresRepo),
		)
	}

	// Initialize WebSocket hub
	var wsHub *websocket.Hub
	if cfg.WebSocket.Enabled {
		wsHub = websocket.NewHub(logger)
		go wsHub.Run()
		serviceOpts = append(serviceOpts, service.WithBroadcaster(wsHub))
		handlerOpts = append(handlerOpts, handler.WithHub(wsHub))
		logger.Info("WebSocket hub initialized")
	}

	// Initialize Kafka publisher for lookup events
	var kafkaPublisher *kafka.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher, err = kafka.NewPublisher(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka publisher, continuing without Kafka", "error", err)
		} else {
			serviceOpts = append(serviceOpts, service.WithPublisher(kafkaPublisher))
		}
	}

	// Initialize services
	gameService := service.NewGameService(
		igdbClient,
		transform.New(formatter),
		&cfg.IGDB,
		logger,
		serviceOpts...,
	)

	// Initialize Kafka consumer for prefetch requests
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.PrefetchTopic,
		)
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, gameService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else if err := kafkaConsumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
			kafkaConsumer = nil
		} else {
			logger.Info("Kafka consumer started successfully")
		}
	}

	// Initialize warm worker
	var warmWorker *worker.WarmWorker
	if cfg.Warm.Enabled {
		var top worker.TopGamesSource
		if postgresRepo != nil {
			top = postgresRepo
		}
		warmWorker = worker.NewWarmWorker(tokens, gameService, top, &cfg.Warm, logger)
		if err := warmWorker.Start(ctx); err != nil {
			logger.Error("failed to start warm worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(gameService, logger, handlerOpts...)
	routes, err := httpHandler.Binding(cfg.Server.Transport)
	if err != nil {
		logger.Error("failed to build routes", "error", err)
		os.Exit(1)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      routes,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "transport", cfg.Server.Transport)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server first so no new lookups are produced
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	if warmWorker != nil {
		if err := warmWorker.Stop(); err != nil {
			logger.Error("failed to stop warm worker", "error", err)
		}
	}

	// Deliver queued lookup events before the sinks go away
	gameService.Close()

	if wsHub != nil {
		wsHub.Stop()
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("failed to close Kafka publisher", "error", err)
		}
		sent, failed := kafkaPublisher.Stats()
		logger.Info("Kafka publisher closed", "sent", sent, "failed", failed)
	}

	logger.Info("server stopped")
}
