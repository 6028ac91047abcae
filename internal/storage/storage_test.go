package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/commentbot/internal/models"
	"go.uber.org/zap"
)

type storeFactory func(t *testing.T) Storage

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Storage {
			return NewMemoryStorage()
		},
		"sqlite": func(t *testing.T) Storage {
			s, err := NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
			require.NoError(t, err)
			// Drop the example trigger so every backend starts empty.
			triggers, err := s.ListTriggers(context.Background())
			require.NoError(t, err)
			for _, tr := range triggers {
				require.NoError(t, s.DeleteTrigger(context.Background(), tr.ID))
			}
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Storage)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			fn(t, s)
		})
	}
}

func TestAddTrigger_PhraseUniqueIgnoringCase(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		first, err := s.AddTrigger(ctx, "Скидка", "Спасибо!", "Вот промокод: X")
		require.NoError(t, err)
		assert.Equal(t, "скидка", first.Phrase)
		assert.NotEmpty(t, first.ID)

		_, err = s.AddTrigger(ctx, "СКИДКА", "other", "other")
		assert.ErrorIs(t, err, ErrDuplicatePhrase)

		triggers, err := s.ListTriggers(ctx)
		require.NoError(t, err)
		assert.Len(t, triggers, 1)
	})
}

func TestListTriggers_OrderedByPhrase(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		for _, p := range []string{"charlie", "alpha", "bravo"} {
			_, err := s.AddTrigger(ctx, p, "r", "d")
			require.NoError(t, err)
		}

		triggers, err := s.ListTriggers(ctx)
		require.NoError(t, err)
		require.Len(t, triggers, 3)
		assert.Equal(t, "alpha", triggers[0].Phrase)
		assert.Equal(t, "bravo", triggers[1].Phrase)
		assert.Equal(t, "charlie", triggers[2].Phrase)
	})
}

func TestGetAndFindTrigger(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		created, err := s.AddTrigger(ctx, "promo", "reply", "dm")
		require.NoError(t, err)

		got, err := s.GetTrigger(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)

		found, err := s.FindTriggerByPhrase(ctx, "  PROMO ")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.ID, found.ID)

		missing, err := s.GetTrigger(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, missing)

		none, err := s.FindTriggerByPhrase(ctx, "promo code")
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}

func TestUpdateTriggerField(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		a, err := s.AddTrigger(ctx, "a", "reply", "dm")
		require.NoError(t, err)
		_, err = s.AddTrigger(ctx, "b", "reply", "dm")
		require.NoError(t, err)

		require.NoError(t, s.UpdateTriggerField(ctx, a.ID, models.FieldPhrase, "NEW"))
		require.NoError(t, s.UpdateTriggerField(ctx, a.ID, models.FieldCommentReply, "Reply 2"))
		require.NoError(t, s.UpdateTriggerField(ctx, a.ID, models.FieldDirectMessage, "DM 2"))

		got, err := s.GetTrigger(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Phrase)
		assert.Equal(t, "Reply 2", got.CommentReply)
		assert.Equal(t, "DM 2", got.DirectMessage)

		assert.ErrorIs(t, s.UpdateTriggerField(ctx, a.ID, models.FieldPhrase, "B"), ErrDuplicatePhrase)
		assert.ErrorIs(t, s.UpdateTriggerField(ctx, a.ID, models.Field(42), "x"), ErrInvalidField)
		assert.ErrorIs(t, s.UpdateTriggerField(ctx, "missing", models.FieldCommentReply, "x"), ErrNotFound)
	})
}

func TestDeleteTrigger(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		created, err := s.AddTrigger(ctx, "gone", "r", "d")
		require.NoError(t, err)

		require.NoError(t, s.DeleteTrigger(ctx, created.ID))

		got, err := s.GetTrigger(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestCreateOrGetConfirmation_Idempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		first, err := s.CreateOrGetConfirmation(ctx, "user-1", "trigger-1")
		require.NoError(t, err)
		assert.False(t, first.InfoSent)

		second, err := s.CreateOrGetConfirmation(ctx, "user-1", "trigger-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	})
}

func TestMostRecentUnsent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		none, err := s.MostRecentUnsent(ctx, "user-1")
		require.NoError(t, err)
		assert.Nil(t, none)

		_, err = s.CreateOrGetConfirmation(ctx, "user-1", "older")
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = s.CreateOrGetConfirmation(ctx, "user-1", "newer")
		require.NoError(t, err)
		_, err = s.CreateOrGetConfirmation(ctx, "user-2", "other")
		require.NoError(t, err)

		latest, err := s.MostRecentUnsent(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "newer", latest.TriggerID)

		require.NoError(t, s.MarkConfirmationSent(ctx, "user-1", "newer"))

		latest, err = s.MostRecentUnsent(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "older", latest.TriggerID)

		require.NoError(t, s.MarkConfirmationSent(ctx, "user-1", "older"))

		latest, err = s.MostRecentUnsent(ctx, "user-1")
		require.NoError(t, err)
		assert.Nil(t, latest)

		sent, err := s.GetConfirmation(ctx, "user-1", "newer")
		require.NoError(t, err)
		require.NotNil(t, sent)
		assert.True(t, sent.InfoSent)
	})
}

func TestMostRecentUnsent_TieBreaksOnID(t *testing.T) {
	s := NewMemoryStorage()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	_, err := s.CreateOrGetConfirmation(ctx, "user-1", "first")
	require.NoError(t, err)
	_, err = s.CreateOrGetConfirmation(ctx, "user-1", "second")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		latest, err := s.MostRecentUnsent(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "second", latest.TriggerID)
	}
}

func TestSQLiteSeedsOnlyNewStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.db")

	s, err := NewSQLiteStorage(ctx, path, zap.NewNop())
	require.NoError(t, err)

	triggers, err := s.ListTriggers(ctx)
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, ExampleTrigger.Phrase, triggers[0].Phrase)

	require.NoError(t, s.DeleteTrigger(ctx, triggers[0].ID))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStorage(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	triggers, err = reopened.ListTriggers(ctx)
	require.NoError(t, err)
	assert.Empty(t, triggers)
}

func TestOpen_MemorySeeds(t *testing.T) {
	s, err := Open(context.Background(), DatabaseConfig{Driver: "memory"}, zap.NewNop())
	require.NoError(t, err)

	found, err := s.FindTriggerByPhrase(context.Background(), ExampleTrigger.Phrase)
	require.NoError(t, err)
	assert.NotNil(t, found)

	_, err = Open(context.Background(), DatabaseConfig{Driver: "mongo"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &SQLStorage{dialect: postgresDialect}
	assert.Equal(t, "UPDATE x SET a = $1 WHERE id = $2", pg.rebind("UPDATE x SET a = ? WHERE id = ?"))

	lite := &SQLStorage{dialect: sqliteDialect}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()

	_, ok := store.Get(1)
	assert.False(t, ok)

	store.Put(models.Session{ChatID: 1, Stage: models.StageAwaitingDM})
	session, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, models.StageAwaitingDM, session.Stage)

	store.Delete(1)
	_, ok = store.Get(1)
	assert.False(t, ok)
}
