package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"etiqueta/internal/config"
	"etiqueta/internal/database"
	"etiqueta/internal/metrics"
	"etiqueta/internal/notify"
	"etiqueta/internal/render"
	"etiqueta/internal/storage"
	"etiqueta/internal/store"
	"etiqueta/internal/tasks"
	"etiqueta/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	jobStore := store.NewJobStore(db)
	notifier := notify.NewPublisher(redisClient)
	renderer := render.NewClient(cfg.Renderer.BaseURL, cfg.Renderer.Density)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
	})

	previewHandler := worker.NewPreviewTaskHandler(jobStore, renderer, storageClient, notifier, logger)
	retentionHandler := worker.NewRetentionTaskHandler(jobStore, storageClient, cfg.Retention, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypePreviewRender, previewHandler)
	mux.Handle(tasks.TypeJobsRetention, retentionHandler)

	// Nightly retention sweep, scheduled through asynq so a single worker
	// deployment needs no external cron.
	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("0 3 * * *", tasks.NewJobsRetentionTask()); err != nil {
		log.Fatalf("register retention schedule: %v", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("scheduler stopped", slog.Any("error", err))
		}
	}()

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
