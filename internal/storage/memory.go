package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitsum/internal/models"
)

// MemoryStore is an in-memory implementation of the user directory and
// the API key store with the same semantics as the Postgres repositories,
// including the conflated owner-scoped not-found and the atomic
// conditional usage increment. Useful for local development and tests.
type MemoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	keys  map[uuid.UUID]*models.APIKey
	seq   int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[uuid.UUID]*models.User),
		keys:  make(map[uuid.UUID]*models.APIKey),
	}
}

// --- user directory ---

// GetByEmail retrieves a user by email
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

// Upsert inserts or refreshes a user keyed on email
func (s *MemoryStore) Upsert(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, u := range s.users {
		if u.Email == user.Email {
			u.Name = user.Name
			u.AvatarURL = user.AvatarURL
			u.UpdatedAt = now
			user.ID = id
			user.CreatedAt = u.CreatedAt
			user.UpdatedAt = now
			return nil
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

// --- API key store ---

// ListByOwner returns the user's keys, newest first
func (s *MemoryStore) ListByOwner(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := []*models.APIKey{}
	for _, k := range s.keys {
		if k.UserID == userID {
			copied := *k
			list = append(list, &copied)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// GetByOwner retrieves a key scoped to its owner
func (s *MemoryStore) GetByOwner(ctx context.Context, userID, keyID uuid.UUID) (*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, found := s.keys[keyID]
	if !found || k.UserID != userID {
		return nil, ErrAPIKeyNotFound
	}
	copied := *k
	return &copied, nil
}

// Create inserts a new key, enforcing credential uniqueness
func (s *MemoryStore) Create(ctx context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.keys {
		if existing.Key == key.Key {
			return ErrDuplicateKey
		}
	}

	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	// Distinct timestamps keep newest-first ordering stable even when
	// keys are created within the same clock tick.
	s.seq++
	key.CreatedAt = time.Now().Add(time.Duration(s.seq) * time.Nanosecond)
	key.UpdatedAt = key.CreatedAt

	copied := *key
	s.keys[key.ID] = &copied
	return nil
}

// UpdateByOwner updates name, env and credential of an owned key
func (s *MemoryStore) UpdateByOwner(ctx context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.keys[key.ID]
	if !found || existing.UserID != key.UserID {
		return ErrAPIKeyNotFound
	}

	for id, other := range s.keys {
		if id != key.ID && other.Key == key.Key {
			return ErrDuplicateKey
		}
	}

	existing.Name = key.Name
	existing.Env = key.Env
	existing.Key = key.Key
	existing.UpdatedAt = time.Now()

	key.Usage = existing.Usage
	key.UsageLimit = existing.UsageLimit
	key.CreatedAt = existing.CreatedAt
	key.UpdatedAt = existing.UpdatedAt
	return nil
}

// DeleteByOwner removes an owned key
func (s *MemoryStore) DeleteByOwner(ctx context.Context, userID, keyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, found := s.keys[keyID]
	if !found || k.UserID != userID {
		return ErrAPIKeyNotFound
	}
	delete(s.keys, keyID)
	return nil
}

// GetByKey retrieves a key by credential, unscoped
func (s *MemoryStore) GetByKey(ctx context.Context, credential string) (*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.keys {
		if k.Key == credential {
			copied := *k
			return &copied, nil
		}
	}
	return nil, ErrAPIKeyNotFound
}

// ConsumeUsage atomically charges one call if the quota allows it
func (s *MemoryStore) ConsumeUsage(ctx context.Context, keyID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, found := s.keys[keyID]
	if !found {
		return 0, ErrAPIKeyNotFound
	}
	if k.UsageLimit != nil && k.Usage >= *k.UsageLimit {
		return 0, ErrLimitExceeded
	}
	k.Usage++
	k.UpdatedAt = time.Now()
	return k.Usage, nil
}
