package storage

import (
	"context"
	"errors"

	"github.com/xaenox/commentbot/internal/models"
)

var (
	ErrDuplicatePhrase = errors.New("trigger with this phrase already exists")
	ErrInvalidField    = errors.New("field is not editable")
	ErrNotFound        = errors.New("not found")
)

type Storage interface {
	TriggerStorage
	ConfirmationStorage
	Close() error
}

// TriggerStorage persists triggers. Phrases are normalized with
// models.NormalizePhrase before they are stored or compared.
type TriggerStorage interface {
	AddTrigger(ctx context.Context, phrase, commentReply, directMessage string) (*models.Trigger, error)
	// ListTriggers returns all triggers ordered by phrase.
	ListTriggers(ctx context.Context) ([]*models.Trigger, error)
	// GetTrigger returns nil, nil when the trigger does not exist.
	GetTrigger(ctx context.Context, id string) (*models.Trigger, error)
	// FindTriggerByPhrase returns nil, nil when nothing matches.
	FindTriggerByPhrase(ctx context.Context, phrase string) (*models.Trigger, error)
	DeleteTrigger(ctx context.Context, id string) error
	UpdateTriggerField(ctx context.Context, id string, field models.Field, value string) error
}

// ConfirmationStorage tracks the DM handshake per (user, trigger).
type ConfirmationStorage interface {
	// CreateOrGetConfirmation is idempotent for the same pair.
	CreateOrGetConfirmation(ctx context.Context, userID, triggerID string) (*models.Confirmation, error)
	// GetConfirmation returns nil, nil when the pair was never recorded.
	GetConfirmation(ctx context.Context, userID, triggerID string) (*models.Confirmation, error)
	MarkConfirmationSent(ctx context.Context, userID, triggerID string) error
	// MostRecentUnsent returns nil, nil when the user has nothing pending.
	MostRecentUnsent(ctx context.Context, userID string) (*models.Confirmation, error)
}

// SessionStore keeps admin dialog sessions keyed by chat id.
type SessionStore interface {
	Get(chatID int64) (models.Session, bool)
	Put(session models.Session)
	Delete(chatID int64)
}
