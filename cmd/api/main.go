package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"certforge/internal/api"
	"certforge/internal/config"
	"certforge/internal/generator"
	"certforge/internal/jobs"
	"certforge/internal/metrics"
	"certforge/internal/storage"
	"certforge/internal/workspace"
)

func main() {
	// .env 仅用于本地开发，缺失时直接使用环境变量。
	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	gen := generator.New(generator.Assets{
		NameFontPath:    cfg.Assets.NameFont,
		DetailsFontPath: cfg.Assets.DetailsFont,
	}, logger, metrics.Generation{})

	deps := api.Deps{
		Generator: gen,
		Inputs:    workspace.New(cfg.Storage.InputDir()),
		Outputs:   workspace.New(cfg.Storage.OutputDir()),
		JobsDir:   cfg.Storage.JobsDir(),
		Logger:    logger,
	}

	if scanner := api.NewClamdScanner(cfg.Clamd.Addr); scanner != nil {
		deps.Scanner = scanner
		logger.Info("upload scanning enabled", slog.String("clamd_addr", cfg.Clamd.Addr))
	}

	if cfg.MinIO.Enabled() {
		storageClient, err := storage.NewClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("init storage client: %v", err)
		}
		deps.Storage = storageClient
		logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))
	}

	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}

		asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
		defer asynqClient.Close()

		deps.Enqueuer = asynqClient
		deps.Status = jobs.NewStore(redisClient, jobs.DefaultTTL)
		deps.Redis = redisClient
		logger.Info("async jobs enabled", slog.String("redis_addr", cfg.Redis.Addr()))
	}

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, deps)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address), slog.String("data_dir", cfg.Storage.DataDir))
	if err := router.Run(address); err != nil {
		logger.Error("failed to start api server", slog.Any("error", err))
		os.Exit(1)
	}
}
