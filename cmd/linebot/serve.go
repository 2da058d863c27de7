package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/shenwii/line-chatgpt-bot/internal/bot"
	"github.com/shenwii/line-chatgpt-bot/internal/catalog"
	"github.com/shenwii/line-chatgpt-bot/internal/chat"
	"github.com/shenwii/line-chatgpt-bot/internal/config"
	"github.com/shenwii/line-chatgpt-bot/internal/handlers"
	"github.com/shenwii/line-chatgpt-bot/internal/line"
	"github.com/shenwii/line-chatgpt-bot/internal/logger"
	"github.com/shenwii/line-chatgpt-bot/internal/media"
	"github.com/shenwii/line-chatgpt-bot/internal/server"
	"github.com/shenwii/line-chatgpt-bot/internal/session"
)

func runServe(cfgPath string) {
	fx.New(
		fx.Supply(configPathValue(cfgPath)),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideCatalog,
			provideMongoDatabase,
			provideSessionStore,
			provideLineClient,
			provideTranscoder,
			provideEngine,
			provideRouter,
			provideWebhookHandler,
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

type configPathValue string

func provideConfig(path configPathValue) (config.Config, error) {
	cfgPath := string(path)
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideCatalog(cfg config.Config) (catalog.Catalog, error) {
	cat, err := catalog.Load(cfg.Chat.ConfigDir)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

func provideMongoDatabase(lc fx.Lifecycle, cfg config.Config) (*mongo.Database, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		return client.Disconnect(ctx)
	}})
	return client.Database(cfg.Mongo.Database), nil
}

func provideSessionStore(log *slog.Logger, db *mongo.Database) *session.Store {
	return session.NewStore(log, db)
}

func provideLineClient(log *slog.Logger, cfg config.Config) (*line.Client, error) {
	return line.NewClient(log, cfg.Line.ChannelAccessToken)
}

func provideTranscoder(log *slog.Logger, cfg config.Config) *media.Transcoder {
	return media.NewTranscoder(log, cfg.Chat.MaxPixel, cfg.Chat.JPEGQuality)
}

func provideEngine(log *slog.Logger, cfg config.Config, cat catalog.Catalog, lineClient *line.Client, transcoder *media.Transcoder) *chat.Engine {
	completer := chat.NewOpenAICompleter(log, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	return chat.NewEngine(log, cat, completer, lineClient, transcoder, cfg.Chat.MaxHistory)
}

func provideRouter(log *slog.Logger, cfg config.Config, cat catalog.Catalog, lineClient *line.Client, store *session.Store, engine *chat.Engine) *bot.Router {
	return bot.NewRouter(log, lineClient, store, engine, cat, cfg.Chat.AllowList, cfg.Chat.DenyList)
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, router *bot.Router) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, cfg.Line.ChannelSecret, router)
}

func provideServer(log *slog.Logger, cfg config.Config, webhookHandler *handlers.WebhookHandler) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, webhookHandler)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
