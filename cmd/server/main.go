// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/pokdeng/internal/cache"
	"github.com/jason-s-yu/pokdeng/internal/config"
	"github.com/jason-s-yu/pokdeng/internal/game"
	"github.com/jason-s-yu/pokdeng/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	opts := []game.RegistryOption{
		game.WithSessionTTL(cfg.SessionTTL),
		game.WithRegistryLogger(logger),
	}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Warn("Action history disabled")
		} else {
			defer rdb.Close()
			q := cache.NewQueue(rdb, cfg.QueueName)
			opts = append(opts, game.WithActionRecorder(q))
			logger.Infof("Publishing session actions to Redis list %q", q.Name())
		}
	}
	registry := game.NewSessionRegistry(opts...)

	hub := handlers.NewHub(registry, cfg.MaxConnections, cfg.MaxConnectionsPerIP, logger)
	dispatcher := game.NewDispatcher(registry, cfg.GlobalSessionID, logger)
	api := handlers.NewAPIServer(registry, hub, dispatcher, handlers.WSOptions{
		RateMax:    cfg.SocketRateMax,
		RateWindow: cfg.SocketRateWindow,
		Validator: handlers.Validator{
			NameMin: cfg.NameMinLen,
			NameMax: cfg.NameMaxLen,
			ChatMax: cfg.ChatMaxLen,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		GlobalSession:  cfg.GlobalSessionID != "",
	}, logger)
	api.HTTPRateMax = cfg.HTTPRateMax
	api.HTTPRateWindow = cfg.HTTPRateWindow

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go registry.RunCleanup(ctx, cfg.SessionCleanupInterval)
	go logStats(ctx, logger, registry, hub, cfg.StatsInterval)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Infof("Running on %s", cfg.Addr())
		if cfg.GlobalSessionID != "" {
			logger.Infof("All players join session %q", cfg.GlobalSessionID)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	logger.Info("Server stopped")
}

// logStats writes a periodic summary line until ctx is done.
func logStats(ctx context.Context, logger logrus.FieldLogger, registry *game.SessionRegistry, hub *handlers.Hub, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions, players := registry.Counts()
			logger.WithFields(logrus.Fields{
				"sessions":    sessions,
				"players":     players,
				"connections": hub.Count(),
			}).Info("Server stats")
		}
	}
}
