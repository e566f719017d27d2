package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"certforge/internal/config"
	"certforge/internal/generator"
	"certforge/internal/jobs"
	"certforge/internal/metrics"
	"certforge/internal/storage"
	"certforge/internal/tasks"
	"certforge/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if !cfg.Redis.Enabled() {
		log.Fatal("worker requires REDIS_HOST")
	}
	if !cfg.MinIO.Enabled() {
		log.Fatal("worker requires MINIO_ENDPOINT")
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Logger:      newAsynqLogger(logger),
	})

	gen := generator.New(generator.Assets{
		NameFontPath:    cfg.Assets.NameFont,
		DetailsFontPath: cfg.Assets.DetailsFont,
	}, logger, metrics.Generation{})
	certHandler := worker.NewCertificateTaskHandler(
		gen,
		storageClient,
		jobs.NewStore(redisClient, jobs.DefaultTTL),
		cfg.Storage.JobsDir(),
		logger,
	)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeCertificateGenerate, certHandler)

	logger.Info("worker service started",
		slog.String("redis_addr", redisAddr),
		slog.Int("concurrency", cfg.Worker.Concurrency),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
