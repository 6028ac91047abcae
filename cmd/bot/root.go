package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xaenox/commentbot/internal/storage"
	"github.com/xaenox/commentbot/pkg/config"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "bot",
	Short:        "Instagram comment auto-responder with a Telegram admin console",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "optional config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(setWebhookCmd())
	rootCmd.AddCommand(triggersCmd())
}

// setup loads .env, the configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	atom, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	if atom.Level() == zap.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = atom
	return zcfg.Build()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	return storage.Open(ctx, storage.DatabaseConfig(cfg.Database), logger)
}

func adminWebhookURL(cfg *config.Config) string {
	return strings.TrimRight(cfg.Server.PublicURL, "/") + cfg.Server.AdminWebhookPath
}
