package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"marketwatcher/config"
	"marketwatcher/internal/watcher"
	"marketwatcher/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("market watcher starting",
		zap.Strings("instruments", cfg.Subscribe),
		zap.String("backend", cfg.Storage.Backend),
		zap.Bool("persist", cfg.Storage.PersistEnabled()),
	)

	// run watcher until interrupted
	if err := watcher.Start(ctx, cfg, log); err != nil {
		log.Fatal("watcher failed", zap.Error(err))
	}
	log.Info("market watcher stopped")
}
