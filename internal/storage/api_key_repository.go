package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gitsum/internal/models"
)

// APIKeyRepository handles API key database operations. Every mutation is
// scoped by owner except ConsumeUsage, which is reached via possession of
// the credential itself.
type APIKeyRepository struct {
	db    *DB
	cache *LRUCache
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{
		db:    db,
		cache: db.KeyCache(),
	}
}

const apiKeyColumns = `id, user_id, name, env, key, usage, usage_limit, created_at, updated_at`

// ListByOwner returns all keys owned by a user, newest first
func (r *APIKeyRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	keys := []*models.APIKey{}
	if err := r.db.conn.SelectContext(ctx, &keys, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	return keys, nil
}

// GetByOwner retrieves a single key scoped to its owner. Missing and
// not-owned rows are both ErrAPIKeyNotFound.
func (r *APIKeyRepository) GetByOwner(ctx context.Context, userID, keyID uuid.UUID) (*models.APIKey, error) {
	var key models.APIKey
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE id = $1 AND user_id = $2
	`

	err := r.db.conn.GetContext(ctx, &key, query, keyID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	return &key, nil
}

// Create inserts a new key. A credential collision surfaces as
// ErrDuplicateKey.
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, name, env, key, usage, usage_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}

	err := r.db.conn.QueryRowxContext(
		ctx, query,
		key.ID, key.UserID, key.Name, key.Env, key.Key, key.Usage, key.UsageLimit,
	).Scan(&key.CreatedAt, &key.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// UpdateByOwner updates name, env and credential of a key the user owns.
// Zero matched rows is ErrAPIKeyNotFound regardless of whether the row is
// missing or belongs to another user.
func (r *APIKeyRepository) UpdateByOwner(ctx context.Context, key *models.APIKey) error {
	// Invalidate the old cached credential before the write so a racing
	// lookup cannot re-populate it with a stale row.
	if old, err := r.GetByOwner(ctx, key.UserID, key.ID); err == nil {
		r.cache.Delete(old.Key)
	}

	query := `
		UPDATE api_keys
		SET name = $3, env = $4, key = $5, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING usage, usage_limit, created_at, updated_at
	`

	err := r.db.conn.QueryRowxContext(
		ctx, query,
		key.ID, key.UserID, key.Name, key.Env, key.Key,
	).Scan(&key.Usage, &key.UsageLimit, &key.CreatedAt, &key.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAPIKeyNotFound
		}
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to update API key: %w", err)
	}

	r.cache.Delete(key.Key)
	return nil
}

// DeleteByOwner removes a key the user owns, with the same conflated
// not-found semantics as UpdateByOwner.
func (r *APIKeyRepository) DeleteByOwner(ctx context.Context, userID, keyID uuid.UUID) error {
	var credential string
	query := `
		DELETE FROM api_keys
		WHERE id = $1 AND user_id = $2
		RETURNING key
	`

	err := r.db.conn.QueryRowxContext(ctx, query, keyID, userID).Scan(&credential)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	r.cache.Delete(credential)
	return nil
}

// GetByKey retrieves a key by its credential string, unscoped by owner.
// Results are cached; the cache is only a lookup accelerator, quota
// decisions never read from it.
func (r *APIKeyRepository) GetByKey(ctx context.Context, credential string) (*models.APIKey, error) {
	if cached, found := r.cache.Get(credential); found {
		return cached.(*models.APIKey), nil
	}

	var key models.APIKey
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE key = $1
	`

	err := r.db.conn.GetContext(ctx, &key, query, credential)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	r.cache.Set(credential, &key)
	return &key, nil
}

// ConsumeUsage charges one authorized call against the key. The limit
// check and the increment are a single conditional UPDATE, so concurrent
// callers can never lose an update or overrun the quota. Returns the new
// usage count, ErrLimitExceeded when the key exists but is exhausted, or
// ErrAPIKeyNotFound.
func (r *APIKeyRepository) ConsumeUsage(ctx context.Context, keyID uuid.UUID) (int, error) {
	var usage int
	query := `
		UPDATE api_keys
		SET usage = usage + 1, updated_at = now()
		WHERE id = $1 AND (usage_limit IS NULL OR usage < usage_limit)
		RETURNING usage
	`

	err := r.db.conn.QueryRowxContext(ctx, query, keyID).Scan(&usage)
	if err == nil {
		return usage, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to consume usage: %w", err)
	}

	// Zero rows: either the key is gone or the quota is spent.
	var exists bool
	if err := r.db.conn.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM api_keys WHERE id = $1)", keyID); err != nil {
		return 0, fmt.Errorf("failed to consume usage: %w", err)
	}
	if exists {
		return 0, ErrLimitExceeded
	}
	return 0, ErrAPIKeyNotFound
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
