package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/xaenox/commentbot/internal/bot"
	"github.com/xaenox/commentbot/internal/instagram"
	"github.com/xaenox/commentbot/internal/responder"
	"github.com/xaenox/commentbot/internal/server"
	"github.com/xaenox/commentbot/internal/storage"
	"github.com/xaenox/commentbot/internal/webhook"
	"github.com/xaenox/commentbot/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return err
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", zap.Error(err))
		return err
	}
	defer store.Close()

	ig := instagram.NewClient(cfg.Instagram.APIBase, cfg.Instagram.AccessToken, logger.Named("instagram"),
		instagram.WithRateLimit(cfg.Instagram.RateLimit, cfg.Instagram.RateBurst))

	matcher := responder.NewMatcher(store, store, ig, logger.Named("matcher"))
	handshake := responder.NewHandshake(store, store, ig, responder.HandshakeConfig{
		AffirmativeWord: cfg.Handshake.AffirmativeWord,
		AtMostOnce:      cfg.Handshake.AtMostOnce,
	}, logger.Named("handshake"))

	dispatcher := webhook.NewDispatcher(cfg.Dispatcher.Workers, cfg.Dispatcher.QueueSize, logger.Named("dispatcher"))
	router := webhook.NewRouter(matcher, handshake, cfg.Instagram.AccountID, logger.Named("router"))
	events := webhook.NewHandler(cfg.Instagram.VerifyToken, router, dispatcher, logger.Named("webhook"))

	admin, err := newAdminBot(cfg, store, logger.Named("admin"))
	if err != nil {
		logger.Error("Failed to start admin bot", zap.Error(err))
		return err
	}

	routes := server.Routes{WebhookPath: cfg.Server.WebhookPath, AdminWebhookPath: cfg.Server.AdminWebhookPath}
	httpServer := server.NewHTTPServer(cfg.Server.Port, server.NewRouter(routes, events, admin, logger.Named("http")))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Server started",
			zap.Int("port", cfg.Server.Port),
			zap.String("webhook_path", cfg.Server.WebhookPath),
			zap.String("admin_webhook_path", cfg.Server.AdminWebhookPath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	return nil
}

// newAdminBot returns nil when no Telegram token is configured.
func newAdminBot(cfg *config.Config, store storage.TriggerStorage, logger *zap.Logger) (server.UpdateHandler, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("Telegram token not set, the admin bot is disabled")
		return nil, nil
	}

	api, err := bot.NewAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	if cfg.Server.PublicURL != "" {
		url := adminWebhookURL(cfg)
		if err := bot.SetWebhook(api, url); err != nil {
			// The server can still serve Instagram; the webhook can be set later.
			logger.Error("Failed to register Telegram webhook", zap.Error(err), zap.String("url", url))
		} else {
			logger.Info("Telegram webhook registered", zap.String("url", url))
		}
	}

	engine := bot.NewEngine(storage.NewMemorySessionStore(), store, logger)
	return bot.New(api, engine, cfg.Telegram.AdminIDs, logger), nil
}
