package storage

import (
	"context"
	"fmt"

	"github.com/xaenox/commentbot/internal/models"
	"go.uber.org/zap"
)

// Example trigger inserted into a newly created store.
var ExampleTrigger = models.Trigger{
	Phrase:        "тест",
	CommentReply:  "Это тестовый ответ на коммент.",
	DirectMessage: "Это тестовое сообщение в личку.",
}

// Open selects the backend named by config.Driver.
func Open(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (Storage, error) {
	switch config.Driver {
	case "memory":
		logger.Info("Using in-memory storage")
		store := NewMemoryStorage()
		if err := SeedExampleTrigger(ctx, store, logger); err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		logger.Info("Using PostgreSQL storage", zap.String("host", config.Host), zap.String("dbname", config.DBName))
		store, err := NewPostgresStorage(ctx, config, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite", "":
		logger.Info("Using SQLite storage", zap.String("path", config.Path))
		store, err := NewSQLiteStorage(ctx, config.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", config.Driver)
	}
}

// SeedExampleTrigger stores ExampleTrigger.
func SeedExampleTrigger(ctx context.Context, store TriggerStorage, logger *zap.Logger) error {
	t, err := store.AddTrigger(ctx, ExampleTrigger.Phrase, ExampleTrigger.CommentReply, ExampleTrigger.DirectMessage)
	if err != nil {
		return fmt.Errorf("error seeding example trigger: %w", err)
	}
	logger.Info("Example trigger added", zap.String("phrase", t.Phrase), zap.String("trigger_id", t.ID))
	return nil
}
