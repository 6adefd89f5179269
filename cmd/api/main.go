package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/api"
	"resumeBuilder/internal/assist"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/listcache"
	"resumeBuilder/internal/metrics"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/store"
)

func main() {
	cfg := config.MustLoad()
	log.Printf("api bootstrapped with db driver=%s host=%s port=%d db=%s",
		cfg.Database.Driver,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
	)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	log.Printf("database migrated")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	notifier := gateway.NewRedisNotifier(redisClient, logger)
	gw := gateway.NewNotifyingGateway(
		gateway.NewCachedGateway(gateway.NewGormGateway(db), cfg.Store.GetCacheTTL),
		notifier,
		logger,
	)

	registry := store.NewRegistry(gw, store.RegistryConfig{
		CollectionFor: cfg.Store.CollectionFor,
		Fallback:      store.FallbackPolicy(cfg.Store.FallbackPolicy),
		RecentWindow:  cfg.Store.RecentWindow,
		Snapshot:      listcache.NewRedisSnapshot(redisClient, cfg.Store.SnapshotTTL),
		Metrics:       metrics.StoreRecorder{},
		Logger:        logger,
	})

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	var generator assist.Generator
	if cfg.Assist.Enabled() {
		generator = assist.NewChatGenerator(cfg.Assist.BaseURL, cfg.Assist.APIKey, cfg.Assist.Model, cfg.Assist.Timeout)
		log.Printf("suggestions enabled, model=%s", cfg.Assist.Model)
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Deps{
		Registry:       registry,
		Enqueuer:       asynqClient,
		Exports:        storageClient,
		Generator:      generator,
		Subscriber:     notifier,
		RedisClient:    redisClient,
		Logger:         logger,
		OwnerHeader:    cfg.API.OwnerHeader,
		AllowedOrigins: cfg.API.Origins(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", slog.Any("error", err))
	}
}
