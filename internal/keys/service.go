// Package keys implements the API key lifecycle: the business rules a
// signed-in user drives from the dashboard, layered over the store.
package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"gitsum/internal/auth"
	"gitsum/internal/models"
	"gitsum/internal/storage"
)

// Store is the slice of the storage layer the lifecycle manager needs.
type Store interface {
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	GetByOwner(ctx context.Context, userID, keyID uuid.UUID) (*models.APIKey, error)
	Create(ctx context.Context, key *models.APIKey) error
	UpdateByOwner(ctx context.Context, key *models.APIKey) error
	DeleteByOwner(ctx context.Context, userID, keyID uuid.UUID) error
}

// Service orchestrates create/edit/delete/list under ownership and
// validation rules.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a lifecycle manager over the given store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// CreateParams are the user-supplied fields for a new key.
type CreateParams struct {
	Name  string
	Env   models.Environment
	Limit *int // nil = unlimited
}

// CreateKey mints a credential and persists the key. On the
// astronomically unlikely credential collision it regenerates once; a
// second collision surfaces as ErrTransient.
func (s *Service) CreateKey(ctx context.Context, userID uuid.UUID, p CreateParams) (*models.APIKey, error) {
	if p.Name == "" {
		return nil, ErrInvalidName
	}
	if p.Env != models.EnvDevelopment && p.Env != models.EnvProduction {
		return nil, ErrInvalidEnvironment
	}
	if p.Limit != nil && *p.Limit < 0 {
		return nil, ErrInvalidLimit
	}

	for attempt := 0; attempt < 2; attempt++ {
		credential, err := auth.GenerateKey(p.Env)
		if err != nil {
			return nil, fmt.Errorf("failed to generate credential: %w", err)
		}

		key := &models.APIKey{
			ID:         uuid.New(),
			UserID:     userID,
			Name:       p.Name,
			Env:        p.Env,
			Key:        credential,
			Usage:      0,
			UsageLimit: p.Limit,
		}

		err = s.store.Create(ctx, key)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, err
		}
		s.logger.Warn("credential collision on create, regenerating", "user_id", userID)
	}

	return nil, ErrTransient
}

// UpdateParams are the user-supplied fields for an edit.
type UpdateParams struct {
	Name string
	Env  models.Environment
	Key  string
}

// UpdateKey edits name, environment class and credential of a key the
// user owns. When the class changes and the supplied credential still
// carries the old class's prefix, the prefix is rewritten to match — a
// display convenience, not a security boundary.
func (s *Service) UpdateKey(ctx context.Context, userID, keyID uuid.UUID, p UpdateParams) (*models.APIKey, error) {
	if p.Name == "" {
		return nil, ErrInvalidName
	}
	if p.Env != models.EnvDevelopment && p.Env != models.EnvProduction {
		return nil, ErrInvalidEnvironment
	}
	if p.Key == "" {
		return nil, ErrInvalidKey
	}

	current, err := s.store.GetByOwner(ctx, userID, keyID)
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	credential := p.Key
	if current.Env != p.Env {
		credential = auth.RewritePrefix(credential, current.Env, p.Env)
	}

	key := &models.APIKey{
		ID:     keyID,
		UserID: userID,
		Name:   p.Name,
		Env:    p.Env,
		Key:    credential,
	}

	if err := s.store.UpdateByOwner(ctx, key); err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return key, nil
}

// DeleteKey removes a key the user owns.
func (s *Service) DeleteKey(ctx context.Context, userID, keyID uuid.UUID) error {
	err := s.store.DeleteByOwner(ctx, userID, keyID)
	if errors.Is(err, storage.ErrAPIKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// ListKeys returns the user's keys, newest first. Credentials are
// returned as stored; masking for display is the UI's concern.
func (s *Service) ListKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	return s.store.ListByOwner(ctx, userID)
}
