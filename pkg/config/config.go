package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Instagram  InstagramConfig  `mapstructure:"instagram"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Handshake  HandshakeConfig  `mapstructure:"handshake"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port             int    `mapstructure:"port"`
	PublicURL        string `mapstructure:"public_url"`
	WebhookPath      string `mapstructure:"webhook_path"`
	AdminWebhookPath string `mapstructure:"admin_webhook_path"`
}

type InstagramConfig struct {
	VerifyToken string  `mapstructure:"verify_token"`
	AccessToken string  `mapstructure:"access_token"`
	APIBase     string  `mapstructure:"api_base"`
	AccountID   string  `mapstructure:"account_id"`
	RateLimit   float64 `mapstructure:"rate_limit"`
	RateBurst   int     `mapstructure:"rate_burst"`
}

type TelegramConfig struct {
	Token    string  `mapstructure:"token"`
	AdminIDs []int64 `mapstructure:"-"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type DispatcherConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type HandshakeConfig struct {
	AffirmativeWord string `mapstructure:"affirmative_word"`
	AtMostOnce      bool   `mapstructure:"at_most_once"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// envBindings maps config keys to the environment variables the service
// has always been deployed with.
var envBindings = map[string]string{
	"instagram.verify_token":     "VERIFY_TOKEN",
	"instagram.access_token":     "INSTAGRAM_ACCESS_TOKEN",
	"instagram.api_base":         "INSTAGRAM_API_BASE",
	"instagram.account_id":       "INSTAGRAM_ACCOUNT_ID",
	"instagram.rate_limit":       "INSTAGRAM_RATE_LIMIT",
	"instagram.rate_burst":       "INSTAGRAM_RATE_BURST",
	"server.port":                "PORT",
	"server.public_url":          "PUBLIC_URL",
	"server.webhook_path":        "WEBHOOK_PATH",
	"server.admin_webhook_path":  "ADMIN_WEBHOOK_PATH",
	"telegram.token":             "TELEGRAM_BOT_TOKEN",
	"telegram.admin_ids":         "TELEGRAM_ADMIN_IDS",
	"database.driver":            "DATABASE_DRIVER",
	"database.path":              "DATABASE_PATH",
	"database.host":              "DATABASE_HOST",
	"database.port":              "DATABASE_PORT",
	"database.user":              "DATABASE_USER",
	"database.password":          "DATABASE_PASSWORD",
	"database.dbname":            "DATABASE_NAME",
	"database.sslmode":           "DATABASE_SSLMODE",
	"dispatcher.workers":         "DISPATCHER_WORKERS",
	"dispatcher.queue_size":      "DISPATCHER_QUEUE_SIZE",
	"handshake.affirmative_word": "HANDSHAKE_AFFIRMATIVE_WORD",
	"handshake.at_most_once":     "HANDSHAKE_AT_MOST_ONCE",
	"log.level":                  "LOG_LEVEL",
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

// ParseAdminIDs parses a comma separated list of Telegram user ids.
func ParseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LoadConfig reads the optional config file at path and the environment.
// Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.webhook_path", "/webhook")
	v.SetDefault("server.admin_webhook_path", "/admin-webhook")
	v.SetDefault("instagram.api_base", "https://graph.instagram.com/v21.0")
	v.SetDefault("instagram.rate_limit", 5.0)
	v.SetDefault("instagram.rate_burst", 5)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./database.sqlite")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("dispatcher.workers", 4)
	v.SetDefault("dispatcher.queue_size", 256)
	v.SetDefault("handshake.affirmative_word", "да")
	v.SetDefault("handshake.at_most_once", false)
	v.SetDefault("log.level", "info")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	if err := v.BindEnv("database_url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}

	// The config file is optional; a deployment may use the environment only.
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	adminIDs, err := ParseAdminIDs(v.GetString("telegram.admin_ids"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse TELEGRAM_ADMIN_IDS: %w", err)
	}
	config.Telegram.AdminIDs = adminIDs

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("database_url"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	return &config, nil
}

// Validate reports the first missing required value.
func (c *Config) Validate() error {
	if c.Instagram.VerifyToken == "" {
		return &ConfigError{Field: "VERIFY_TOKEN", Message: "required"}
	}
	if c.Instagram.AccessToken == "" {
		return &ConfigError{Field: "INSTAGRAM_ACCESS_TOKEN", Message: "required"}
	}
	if !strings.HasPrefix(c.Server.WebhookPath, "/") {
		return &ConfigError{Field: "WEBHOOK_PATH", Message: "must start with /"}
	}
	if !strings.HasPrefix(c.Server.AdminWebhookPath, "/") {
		return &ConfigError{Field: "ADMIN_WEBHOOK_PATH", Message: "must start with /"}
	}
	if c.Server.WebhookPath == c.Server.AdminWebhookPath {
		return &ConfigError{Field: "ADMIN_WEBHOOK_PATH", Message: "must differ from WEBHOOK_PATH"}
	}
	if c.Dispatcher.Workers < 1 || c.Dispatcher.QueueSize < 1 {
		return &ConfigError{Field: "DISPATCHER_WORKERS/DISPATCHER_QUEUE_SIZE", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
