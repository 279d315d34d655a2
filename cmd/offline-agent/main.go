package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nazarialireza/invextry-offline/internal/app"
	"github.com/nazarialireza/invextry-offline/internal/config"
	"github.com/nazarialireza/invextry-offline/internal/logging"
)

func main() {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to start", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error(context.Background(), "shutdown error", "error", err)
		}
	}()

	log.Info(ctx, "offline agent started", "db", cfg.DatabaseDSN, "server", cfg.ServerBaseURL)

	if err := a.Run(ctx); err != nil {
		log.Error(ctx, "agent stopped with error", "error", err)
		os.Exit(1)
	}
}
