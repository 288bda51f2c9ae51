package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/mirrelia/tweet-relay-bot/internal/di"
	streamService "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/service"
	"github.com/mirrelia/tweet-relay-bot/internal/shared/config"
	"github.com/mirrelia/tweet-relay-bot/internal/telemetry"
	httpServer "github.com/mirrelia/tweet-relay-bot/internal/transport/http"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"
)

func main() {
	// Structured logging with multiple handlers: human-readable text on
	// stdout, JSON errors on stderr.
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	multiHandler := slogmulti.Fanout(textHandler, jsonHandler)
	logger := slog.New(multiHandler)
	slog.SetDefault(logger)

	telemetry.Init()

	injector, err := di.Setup()
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := do.MustInvoke[*config.Config](injector)
	manager := do.MustInvoke[*streamService.Manager](injector)
	server := do.MustInvoke[*httpServer.Server](injector)
	b := do.MustInvoke[*bot.Bot](injector)

	// Resume watches persisted from previous runs.
	if err := manager.Rebuild(ctx); err != nil {
		slog.Error("Initial subscription rebuild failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Failed to start status server", "error", err)
			os.Exit(1)
		}
	}()

	go b.Start(ctx)

	slog.Info("Bot started", "port", cfg.HTTPPort)
	slog.Info("Press Ctrl+C to stop")

	<-ctx.Done()
	slog.Info("Shutting down...")
}
