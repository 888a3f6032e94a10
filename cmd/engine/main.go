// Package main provides the entry point for the Pizoo client engine. It
// stands up the durable flag store, the backend client and the local HTTP
// gateway a UI talks to.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/pizoo-client/internal/adapter"
	"github.com/pizoo-client/internal/api"
	"github.com/pizoo-client/internal/config"
	"github.com/pizoo-client/internal/logging"
	"github.com/pizoo-client/internal/retry"
	"github.com/pizoo-client/internal/service"
	"github.com/pizoo-client/internal/session"
	"github.com/pizoo-client/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// durable flags: Redis when configured, in-process otherwise
	var flags storage.FlagStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		flags = storage.NewRedisFlagStore(client, "pizoo:flags")
		logger.WithField("addr", cfg.Redis.Addr).Info("Using Redis flag store")
	} else {
		flags = storage.NewMemoryFlagStore()
		logger.Warn("No Redis configured, flags will not survive restarts")
	}

	sess := session.New()

	backend, err := adapter.NewBackendClient(adapter.BackendClientConfig{
		BaseURL:           cfg.Backend.BaseURL,
		RequestTimeout:    cfg.Backend.RequestTimeout,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		RequestBurst:      cfg.Backend.RequestBurst,
		Tokens:            sess,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create backend client")
	}

	// reachability probe: the backend may still be coming up
	if err := retry.WithRetry(context.Background(), func(ctx context.Context, attempt int) error {
		return backend.Ping(ctx)
	}); err != nil {
		logger.WithError(err).Fatal("Backend unreachable")
	}
	logger.WithField("baseUrl", cfg.Backend.BaseURL).Info("Backend reachable")

	engine, err := service.NewEngine(&service.EngineConfig{
		Backend:      backend,
		Flags:        flags,
		Session:      sess,
		FetchLimit:   cfg.Discover.FetchLimit,
		OverlayTTL:   cfg.Chat.MatchOverlayTTL,
		PollInterval: cfg.Chat.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create engine")
	}

	server := api.NewServer(&api.ServerConfig{
		Host:            cfg.Gateway.Host,
		Port:            cfg.Gateway.Port,
		ReadTimeout:     cfg.Gateway.ReadTimeout,
		WriteTimeout:    cfg.Gateway.WriteTimeout,
		IdleTimeout:     cfg.Gateway.IdleTimeout,
		ShutdownTimeout: cfg.Gateway.ShutdownTimeout,
	}, engine, sess, logger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Gateway failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
	defer cancel()

	engine.CloseAllChats(ctx)

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Gateway forced to shutdown")
	}

	logger.Info("Engine exited")
}
