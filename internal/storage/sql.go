package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/commentbot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// dialect captures what differs between the SQL backends.
type dialect struct {
	name              string
	migrationFile     string
	tableExistsQuery  string
	numberedParams    bool
	isUniqueViolation func(error) bool
}

// SQLStorage implements Storage on top of database/sql.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
	now     func() time.Time
}

func newSQLStorage(ctx context.Context, db *sql.DB, d dialect, logger *zap.Logger) (*SQLStorage, error) {
	s := &SQLStorage{db: db, dialect: d, logger: logger, now: func() time.Time { return time.Now().UTC() }}

	existed, err := s.triggersTableExists(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.initializeSchema(ctx); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	// A store that has just been created gets the example trigger. An existing
	// store stays as the admin left it, even when it is empty.
	if !existed {
		if err := SeedExampleTrigger(ctx, s, logger); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *SQLStorage) triggersTableExists(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.dialect.tableExistsQuery).Scan(&count); err != nil {
		return false, fmt.Errorf("error checking schema: %w", err)
	}
	return count > 0, nil
}

func (s *SQLStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations/" + s.dialect.migrationFile)
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders into $N for dialects that need it.
func (s *SQLStorage) rebind(query string) string {
	if !s.dialect.numberedParams {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const triggerColumns = `id, trigger_phrase, comment_reply, direct_message`

func (s *SQLStorage) AddTrigger(ctx context.Context, phrase, commentReply, directMessage string) (*models.Trigger, error) {
	t := &models.Trigger{
		ID:            uuid.New().String(),
		Phrase:        models.NormalizePhrase(phrase),
		CommentReply:  commentReply,
		DirectMessage: directMessage,
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO triggers (`+triggerColumns+`)
		VALUES (?, ?, ?, ?)`),
		t.ID, t.Phrase, t.CommentReply, t.DirectMessage)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return nil, ErrDuplicatePhrase
		}
		return nil, fmt.Errorf("error creating trigger: %w", err)
	}

	return t, nil
}

func (s *SQLStorage) ListTriggers(ctx context.Context) ([]*models.Trigger, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+triggerColumns+`
		FROM triggers
		ORDER BY trigger_phrase`)
	if err != nil {
		return nil, fmt.Errorf("error querying triggers: %w", err)
	}
	defer rows.Close()

	triggers := []*models.Trigger{}
	for rows.Next() {
		t := &models.Trigger{}
		if err := rows.Scan(&t.ID, &t.Phrase, &t.CommentReply, &t.DirectMessage); err != nil {
			return nil, fmt.Errorf("error scanning trigger: %w", err)
		}
		triggers = append(triggers, t)
	}

	return triggers, rows.Err()
}

func (s *SQLStorage) GetTrigger(ctx context.Context, id string) (*models.Trigger, error) {
	return s.queryTrigger(ctx, `SELECT `+triggerColumns+` FROM triggers WHERE id = ?`, id)
}

func (s *SQLStorage) FindTriggerByPhrase(ctx context.Context, phrase string) (*models.Trigger, error) {
	return s.queryTrigger(ctx, `SELECT `+triggerColumns+` FROM triggers WHERE trigger_phrase = ?`, models.NormalizePhrase(phrase))
}

func (s *SQLStorage) queryTrigger(ctx context.Context, query string, arg string) (*models.Trigger, error) {
	t := &models.Trigger{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), arg).
		Scan(&t.ID, &t.Phrase, &t.CommentReply, &t.DirectMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying trigger: %w", err)
	}
	return t, nil
}

func (s *SQLStorage) DeleteTrigger(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM triggers WHERE id = ?`), id); err != nil {
		return fmt.Errorf("error deleting trigger: %w", err)
	}
	return nil
}

func (s *SQLStorage) UpdateTriggerField(ctx context.Context, id string, field models.Field, value string) error {
	if !field.Valid() {
		return ErrInvalidField
	}
	if field == models.FieldPhrase {
		value = models.NormalizePhrase(value)
	}

	// The column name comes from the closed Field set, never from input.
	query := `UPDATE triggers SET ` + field.Column() + ` = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, s.rebind(query), value, id)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return ErrDuplicatePhrase
		}
		return fmt.Errorf("error updating trigger: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

const confirmationColumns = `id, user_id, trigger_id, info_sent, created_at`

func (s *SQLStorage) CreateOrGetConfirmation(ctx context.Context, userID, triggerID string) (*models.Confirmation, error) {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO confirmations (user_id, trigger_id, info_sent, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, trigger_id) DO NOTHING`),
		userID, triggerID, false, s.now())
	if err != nil {
		return nil, fmt.Errorf("error creating confirmation: %w", err)
	}

	c, err := s.GetConfirmation(ctx, userID, triggerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("confirmation for user %s and trigger %s: %w", userID, triggerID, ErrNotFound)
	}
	return c, nil
}

func (s *SQLStorage) GetConfirmation(ctx context.Context, userID, triggerID string) (*models.Confirmation, error) {
	return s.queryConfirmation(ctx, `
		SELECT `+confirmationColumns+`
		FROM confirmations
		WHERE user_id = ? AND trigger_id = ?`, userID, triggerID)
}

func (s *SQLStorage) MarkConfirmationSent(ctx context.Context, userID, triggerID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE confirmations SET info_sent = ?
		WHERE user_id = ? AND trigger_id = ?`),
		true, userID, triggerID)
	if err != nil {
		return fmt.Errorf("error marking confirmation sent: %w", err)
	}
	return nil
}

func (s *SQLStorage) MostRecentUnsent(ctx context.Context, userID string) (*models.Confirmation, error) {
	return s.queryConfirmation(ctx, `
		SELECT `+confirmationColumns+`
		FROM confirmations
		WHERE user_id = ? AND info_sent = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID, false)
}

func (s *SQLStorage) queryConfirmation(ctx context.Context, query string, args ...any) (*models.Confirmation, error) {
	c := &models.Confirmation{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).
		Scan(&c.ID, &c.UserID, &c.TriggerID, &c.InfoSent, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying confirmation: %w", err)
	}
	return c, nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}
