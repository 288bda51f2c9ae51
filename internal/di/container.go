package di

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	historyRepo "github.com/mirrelia/tweet-relay-bot/internal/modules/history/repository"
	historyService "github.com/mirrelia/tweet-relay-bot/internal/modules/history/service"
	monitorRepo "github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/repository"
	monitorService "github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/service"
	streamDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/domain"
	streamService "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/service"
	"github.com/mirrelia/tweet-relay-bot/internal/shared/config"
	httpServer "github.com/mirrelia/tweet-relay-bot/internal/transport/http"
	telegramTransport "github.com/mirrelia/tweet-relay-bot/internal/transport/telegram"
	"github.com/mirrelia/tweet-relay-bot/internal/transport/twitter"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Monitor Repository (Postgres when configured, files otherwise)
	do.Provide(injector, func(i do.Injector) (monitorRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.DatabaseURL != "" {
			repo, err := monitorRepo.NewPostgresStorage(context.Background(), cfg.DatabaseURL)
			if err != nil {
				return nil, oops.With("context", "failed to initialize postgres monitor repository").Wrap(err)
			}
			return repo, nil
		}
		repo, err := monitorRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize monitor repository").Wrap(err)
		}
		return repo, nil
	})

	// Register History Repository
	do.Provide(injector, func(i do.Injector) (historyRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := historyRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize history repository").Wrap(err)
		}
		return repo, nil
	})

	// Register History Service
	do.Provide(injector, func(i do.Injector) (*historyService.Service, error) {
		repo := do.MustInvoke[historyRepo.Repository](i)
		return historyService.New(repo), nil
	})

	// Register Twitter Client (upstream stream client + account directory)
	do.Provide(injector, func(i do.Injector) (*twitter.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client, err := twitter.NewClient(context.Background(), cfg)
		if err != nil {
			return nil, oops.With("context", "failed to initialize twitter client").Wrap(err)
		}
		return client, nil
	})

	// Register Telegram Sink
	do.Provide(injector, func(i do.Injector) (*telegramTransport.Sink, error) {
		return telegramTransport.NewSink(), nil
	})

	// Register Post Router
	do.Provide(injector, func(i do.Injector) (*streamService.Router, error) {
		sink := do.MustInvoke[*telegramTransport.Sink](i)
		history := do.MustInvoke[*historyService.Service](i)
		return streamService.NewRouter(sink, history), nil
	})

	// Register Stream Manager
	do.Provide(injector, func(i do.Injector) (*streamService.Manager, error) {
		repo := do.MustInvoke[monitorRepo.Repository](i)
		client := do.MustInvoke[*twitter.Client](i)
		router := do.MustInvoke[*streamService.Router](i)
		return streamService.NewManager(repo, client, router), nil
	})

	// Register Monitor Service
	do.Provide(injector, func(i do.Injector) (*monitorService.Service, error) {
		repo := do.MustInvoke[monitorRepo.Repository](i)
		var directory streamDomain.Directory = do.MustInvoke[*twitter.Client](i)
		manager := do.MustInvoke[*streamService.Manager](i)
		return monitorService.New(repo, directory, manager), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramTransport.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		monitors := do.MustInvoke[*monitorService.Service](i)
		manager := do.MustInvoke[*streamService.Manager](i)
		return telegramTransport.New(cfg, monitors, manager), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[monitorRepo.Repository](i)
		history := do.MustInvoke[*historyService.Service](i)
		server := httpServer.New(cfg, repo, history)
		server.SetLogger(slog.Default())
		return server, nil
	})

	// Register Bot (needs to be initialized after handlers are ready)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramTransport.Handler](i)

		b, err := bot.New(cfg.TelegramBotToken)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		handler.RegisterCommands(b)

		// Break the bot -> handler -> manager -> router -> sink -> bot cycle
		sink := do.MustInvoke[*telegramTransport.Sink](i)
		sink.SetBot(b)

		return b, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	// Stop accepting commands before draining the stream.
	if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
		b.Close(ctx)
	}

	if manager, err := do.Invoke[*streamService.Manager](injector); err == nil && manager != nil {
		manager.Shutdown()
	}

	return nil
}
