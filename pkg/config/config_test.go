package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("VERIFY_TOKEN", "secret")
	t.Setenv("INSTAGRAM_ACCESS_TOKEN", "token")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/webhook", cfg.Server.WebhookPath)
	assert.Equal(t, "/admin-webhook", cfg.Server.AdminWebhookPath)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "да", cfg.Handshake.AffirmativeWord)
	assert.False(t, cfg.Handshake.AtMostOnce)
	assert.Equal(t, 4, cfg.Dispatcher.Workers)
	assert.Empty(t, cfg.Telegram.AdminIDs)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("VERIFY_TOKEN", "secret")
	t.Setenv("INSTAGRAM_ACCESS_TOKEN", "token")
	t.Setenv("WEBHOOK_PATH", "/ig")
	t.Setenv("PORT", "8080")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg")
	t.Setenv("TELEGRAM_ADMIN_IDS", " 101, 202 ,")
	t.Setenv("PUBLIC_URL", "https://example.com")
	t.Setenv("HANDSHAKE_AT_MOST_ONCE", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Instagram.VerifyToken)
	assert.Equal(t, "token", cfg.Instagram.AccessToken)
	assert.Equal(t, "/ig", cfg.Server.WebhookPath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "tg", cfg.Telegram.Token)
	assert.Equal(t, []int64{101, 202}, cfg.Telegram.AdminIDs)
	assert.Equal(t, "https://example.com", cfg.Server.PublicURL)
	assert.True(t, cfg.Handshake.AtMostOnce)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
instagram:
  verify_token: from-file
  access_token: file-token
database:
  driver: memory
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Instagram.VerifyToken)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestLoadConfig_DatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://bot:pw@db.internal:6543/triggers?sslmode=require")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DatabaseConfig{
		Driver:   "postgres",
		Host:     "db.internal",
		Port:     6543,
		User:     "bot",
		Password: "pw",
		DBName:   "triggers",
		SSLMode:  "require",
	}, cfg.Database)
}

func TestLoadConfig_InvalidAdminIDs(t *testing.T) {
	t.Setenv("TELEGRAM_ADMIN_IDS", "1,abc")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server:     ServerConfig{WebhookPath: "/webhook", AdminWebhookPath: "/admin-webhook"},
		Dispatcher: DispatcherConfig{Workers: 1, QueueSize: 1},
	}

	err := cfg.Validate()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "VERIFY_TOKEN", cfgErr.Field)

	cfg.Instagram.VerifyToken = "v"
	cfg.Instagram.AccessToken = "a"
	assert.NoError(t, cfg.Validate())

	cfg.Server.AdminWebhookPath = "/webhook"
	assert.Error(t, cfg.Validate())
}
