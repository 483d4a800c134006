// cmd/historian/main.go drains the session action queue from Redis into PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/pokdeng/internal/cache"
	"github.com/jason-s-yu/pokdeng/internal/config"
	"github.com/jason-s-yu/pokdeng/internal/database"
	"github.com/jason-s-yu/pokdeng/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer pool.Close()

	store := &database.ActionStore{Pool: pool}
	if err := store.Migrate(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to migrate historian tables")
	}

	rdb, err := cache.Connect(redisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer rdb.Close()
	queue := cache.NewQueue(rdb, cfg.QueueName)

	svc := historian.New(queue, store, historian.Options{
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlushDelay,
		Inactivity: cfg.HistorianInactivity,
	}, logger.WithField("queue", queue.Name()))

	svc.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
