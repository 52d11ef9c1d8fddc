package keys

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitsum/internal/models"
	"gitsum/internal/storage"
)

func TestCreateKey(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("creates a dev key with fresh credential", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore(), nil)

		key, err := svc.CreateKey(ctx, userID, CreateParams{Name: "test", Env: models.EnvDevelopment})
		require.NoError(t, err)

		assert.Equal(t, "test", key.Name)
		assert.Equal(t, userID, key.UserID)
		assert.True(t, strings.HasPrefix(key.Key, "gitsum-dev-"))
		assert.GreaterOrEqual(t, len(key.Key)-len("gitsum-dev-"), 24)
		assert.Equal(t, 0, key.Usage)
		assert.Nil(t, key.UsageLimit)
	})

	t.Run("creates a prod key with limit", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore(), nil)
		limit := 100

		key, err := svc.CreateKey(ctx, userID, CreateParams{Name: "live", Env: models.EnvProduction, Limit: &limit})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(key.Key, "gitsum-prod-"))
		require.NotNil(t, key.UsageLimit)
		assert.Equal(t, 100, *key.UsageLimit)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore(), nil)

		_, err := svc.CreateKey(ctx, userID, CreateParams{Env: models.EnvDevelopment})
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("rejects unknown environment", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore(), nil)

		_, err := svc.CreateKey(ctx, userID, CreateParams{Name: "x", Env: "staging"})
		assert.ErrorIs(t, err, ErrInvalidEnvironment)
	})

	t.Run("rejects negative limit", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore(), nil)
		limit := -1

		_, err := svc.CreateKey(ctx, userID, CreateParams{Name: "x", Env: models.EnvDevelopment, Limit: &limit})
		assert.ErrorIs(t, err, ErrInvalidLimit)
	})
}

// collidingStore forces Create to fail with ErrDuplicateKey a configured
// number of times before delegating to the real store.
type collidingStore struct {
	Store
	collisions int
}

func (s *collidingStore) Create(ctx context.Context, key *models.APIKey) error {
	if s.collisions > 0 {
		s.collisions--
		return storage.ErrDuplicateKey
	}
	return s.Store.Create(ctx, key)
}

func TestCreateKeyCollision(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("regenerates once on collision", func(t *testing.T) {
		svc := NewService(&collidingStore{Store: storage.NewMemoryStore(), collisions: 1}, nil)

		key, err := svc.CreateKey(ctx, userID, CreateParams{Name: "test", Env: models.EnvDevelopment})
		require.NoError(t, err)
		assert.NotEmpty(t, key.Key)
	})

	t.Run("two collisions surface as transient", func(t *testing.T) {
		svc := NewService(&collidingStore{Store: storage.NewMemoryStore(), collisions: 2}, nil)

		_, err := svc.CreateKey(ctx, userID, CreateParams{Name: "test", Env: models.EnvDevelopment})
		assert.ErrorIs(t, err, ErrTransient)
	})
}

func TestUpdateKey(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	setup := func(t *testing.T) (*Service, *models.APIKey) {
		t.Helper()
		store := storage.NewMemoryStore()
		svc := NewService(store, nil)
		key, err := svc.CreateKey(ctx, userID, CreateParams{Name: "before", Env: models.EnvDevelopment})
		require.NoError(t, err)
		return svc, key
	}

	t.Run("renames without touching credential", func(t *testing.T) {
		svc, key := setup(t)

		updated, err := svc.UpdateKey(ctx, userID, key.ID, UpdateParams{
			Name: "after", Env: models.EnvDevelopment, Key: key.Key,
		})
		require.NoError(t, err)
		assert.Equal(t, "after", updated.Name)
		assert.Equal(t, key.Key, updated.Key)
	})

	t.Run("rewrites prefix when environment changes", func(t *testing.T) {
		svc, key := setup(t)

		updated, err := svc.UpdateKey(ctx, userID, key.ID, UpdateParams{
			Name: "promoted", Env: models.EnvProduction, Key: key.Key,
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(updated.Key, "gitsum-prod-"))
		assert.Equal(t, strings.TrimPrefix(key.Key, "gitsum-dev-"),
			strings.TrimPrefix(updated.Key, "gitsum-prod-"))
	})

	t.Run("leaves foreign-prefix credentials alone on class change", func(t *testing.T) {
		svc, key := setup(t)

		updated, err := svc.UpdateKey(ctx, userID, key.ID, UpdateParams{
			Name: "promoted", Env: models.EnvProduction, Key: "custom-credential-value",
		})
		require.NoError(t, err)
		assert.Equal(t, "custom-credential-value", updated.Key)
	})

	t.Run("another user's key is not found", func(t *testing.T) {
		svc, key := setup(t)

		_, err := svc.UpdateKey(ctx, uuid.New(), key.ID, UpdateParams{
			Name: "hijack", Env: models.EnvDevelopment, Key: key.Key,
		})
		assert.ErrorIs(t, err, ErrNotFound)

		// The row is untouched.
		kept, err := svc.ListKeys(ctx, userID)
		require.NoError(t, err)
		require.Len(t, kept, 1)
		assert.Equal(t, "before", kept[0].Name)
	})

	t.Run("validates fields before touching the store", func(t *testing.T) {
		svc, key := setup(t)

		_, err := svc.UpdateKey(ctx, userID, key.ID, UpdateParams{Name: "", Env: models.EnvDevelopment, Key: key.Key})
		assert.ErrorIs(t, err, ErrInvalidName)

		_, err = svc.UpdateKey(ctx, userID, key.ID, UpdateParams{Name: "x", Env: "nope", Key: key.Key})
		assert.ErrorIs(t, err, ErrInvalidEnvironment)

		_, err = svc.UpdateKey(ctx, userID, key.ID, UpdateParams{Name: "x", Env: models.EnvDevelopment, Key: ""})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestDeleteKey(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	store := storage.NewMemoryStore()
	svc := NewService(store, nil)

	key, err := svc.CreateKey(ctx, userID, CreateParams{Name: "doomed", Env: models.EnvDevelopment})
	require.NoError(t, err)

	t.Run("another user cannot delete", func(t *testing.T) {
		err := svc.DeleteKey(ctx, uuid.New(), key.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("owner deletes", func(t *testing.T) {
		require.NoError(t, svc.DeleteKey(ctx, userID, key.ID))

		list, err := svc.ListKeys(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("second delete is not found", func(t *testing.T) {
		err := svc.DeleteKey(ctx, userID, key.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListKeys(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc := NewService(storage.NewMemoryStore(), nil)

	names := []string{"first", "second", "third"}
	for _, name := range names {
		_, err := svc.CreateKey(ctx, userID, CreateParams{Name: name, Env: models.EnvDevelopment})
		require.NoError(t, err)
	}

	t.Run("newest first", func(t *testing.T) {
		list, err := svc.ListKeys(ctx, userID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "third", list[0].Name)
		assert.Equal(t, "second", list[1].Name)
		assert.Equal(t, "first", list[2].Name)
	})

	t.Run("listing is idempotent", func(t *testing.T) {
		first, err := svc.ListKeys(ctx, userID)
		require.NoError(t, err)
		second, err := svc.ListKeys(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		list, err := svc.ListKeys(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
