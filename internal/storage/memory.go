package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/commentbot/internal/models"
)

type confirmationKey struct {
	userID    string
	triggerID string
}

type MemoryStorage struct {
	mu            sync.RWMutex
	triggers      map[string]*models.Trigger
	confirmations map[confirmationKey]*models.Confirmation
	nextConfID    int64
	now           func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		triggers:      make(map[string]*models.Trigger),
		confirmations: make(map[confirmationKey]*models.Confirmation),
		now:           time.Now,
	}
}

// Trigger methods
func (s *MemoryStorage) AddTrigger(ctx context.Context, phrase, commentReply, directMessage string) (*models.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phrase = models.NormalizePhrase(phrase)
	if s.phraseTaken(phrase, "") {
		return nil, ErrDuplicatePhrase
	}

	t := &models.Trigger{
		ID:            uuid.New().String(),
		Phrase:        phrase,
		CommentReply:  commentReply,
		DirectMessage: directMessage,
	}
	s.triggers[t.ID] = t
	copied := *t
	return &copied, nil
}

func (s *MemoryStorage) ListTriggers(ctx context.Context) ([]*models.Trigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Trigger, 0, len(s.triggers))
	for _, t := range s.triggers {
		copied := *t
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Phrase < result[j].Phrase
	})
	return result, nil
}

func (s *MemoryStorage) GetTrigger(ctx context.Context, id string) (*models.Trigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, exists := s.triggers[id]; exists {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStorage) FindTriggerByPhrase(ctx context.Context, phrase string) (*models.Trigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	phrase = models.NormalizePhrase(phrase)
	for _, t := range s.triggers {
		if t.Phrase == phrase {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) DeleteTrigger(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.triggers, id)
	return nil
}

func (s *MemoryStorage) UpdateTriggerField(ctx context.Context, id string, field models.Field, value string) error {
	if !field.Valid() {
		return ErrInvalidField
	}
	if field == models.FieldPhrase {
		value = models.NormalizePhrase(value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.triggers[id]
	if !exists {
		return ErrNotFound
	}
	if field == models.FieldPhrase && s.phraseTaken(value, id) {
		return ErrDuplicatePhrase
	}
	field.Set(t, value)
	return nil
}

// phraseTaken must be called with s.mu held.
func (s *MemoryStorage) phraseTaken(phrase, exceptID string) bool {
	for id, t := range s.triggers {
		if id != exceptID && t.Phrase == phrase {
			return true
		}
	}
	return false
}

// Confirmation methods
func (s *MemoryStorage) CreateOrGetConfirmation(ctx context.Context, userID, triggerID string) (*models.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := confirmationKey{userID: userID, triggerID: triggerID}
	if c, exists := s.confirmations[key]; exists {
		copied := *c
		return &copied, nil
	}

	s.nextConfID++
	c := &models.Confirmation{
		ID:        s.nextConfID,
		UserID:    userID,
		TriggerID: triggerID,
		CreatedAt: s.now(),
	}
	s.confirmations[key] = c
	copied := *c
	return &copied, nil
}

func (s *MemoryStorage) GetConfirmation(ctx context.Context, userID, triggerID string) (*models.Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, exists := s.confirmations[confirmationKey{userID: userID, triggerID: triggerID}]; exists {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStorage) MarkConfirmationSent(ctx context.Context, userID, triggerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, exists := s.confirmations[confirmationKey{userID: userID, triggerID: triggerID}]; exists {
		c.InfoSent = true
	}
	return nil
}

func (s *MemoryStorage) MostRecentUnsent(ctx context.Context, userID string) (*models.Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Confirmation
	for key, c := range s.confirmations {
		if key.userID != userID || c.InfoSent {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) ||
			(c.CreatedAt.Equal(latest.CreatedAt) && c.ID > latest.ID) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
