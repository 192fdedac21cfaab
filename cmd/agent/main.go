package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"etiqueta/internal/agent"
	"etiqueta/internal/config"
	"etiqueta/internal/database"
	"etiqueta/internal/notify"
	"etiqueta/internal/store"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for agent")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	// The status feed is best effort: the agent keeps dispatching even when
	// Redis is down, so a ping failure is only logged.
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("ping redis failed, status feed disabled until it recovers", slog.Any("error", err))
	}

	dispatcher := agent.New(
		store.NewJobStore(db),
		store.NewPrinterStore(db),
		notify.NewPublisher(redisClient),
		logger,
		cfg.Agent.PollInterval(),
		cfg.Agent.SocketTimeout(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher.Run(ctx)
}
