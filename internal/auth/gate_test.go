package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitsum/internal/models"
	"gitsum/internal/storage"
)

func seededStore(t *testing.T, limit *int) (*storage.MemoryStore, *models.APIKey) {
	t.Helper()
	store := storage.NewMemoryStore()
	key := &models.APIKey{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Name:       "test",
		Env:        models.EnvDevelopment,
		Key:        "gitsum-dev-seededcredential0001",
		UsageLimit: limit,
	}
	require.NoError(t, store.Create(context.Background(), key))
	return store, key
}

func TestGateCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown credential is invalid, not an error", func(t *testing.T) {
		store := storage.NewMemoryStore()
		gate := NewGate(store)

		decision, err := gate.Check(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.False(t, decision.Authorized)
		assert.Equal(t, ReasonInvalid, decision.Reason)
	})

	t.Run("authorized call is metered", func(t *testing.T) {
		store, key := seededStore(t, nil)
		gate := NewGate(store)

		decision, err := gate.Check(ctx, key.Key)
		require.NoError(t, err)
		assert.True(t, decision.Authorized)
		assert.Equal(t, key.ID, decision.KeyID)
		assert.Equal(t, key.UserID, decision.OwnerID)
		assert.Equal(t, 1, decision.Usage)
		assert.Equal(t, -1, decision.Remaining)

		stored, err := store.GetByKey(ctx, key.Key)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Usage)
	})

	t.Run("quota enforcement", func(t *testing.T) {
		limit := 2
		store, key := seededStore(t, &limit)
		gate := NewGate(store)

		for i := 1; i <= 2; i++ {
			decision, err := gate.Check(ctx, key.Key)
			require.NoError(t, err)
			assert.True(t, decision.Authorized)
			assert.Equal(t, i, decision.Usage)
		}

		decision, err := gate.Check(ctx, key.Key)
		require.NoError(t, err)
		assert.False(t, decision.Authorized)
		assert.Equal(t, ReasonRateLimited, decision.Reason)

		// Rejected call must not have incremented usage.
		stored, err := store.GetByKey(ctx, key.Key)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Usage)
	})

	t.Run("concurrent checks never lose or overrun", func(t *testing.T) {
		const n = 50
		limit := 30
		store, key := seededStore(t, &limit)
		gate := NewGate(store)

		var wg sync.WaitGroup
		var mu sync.Mutex
		authorized := 0

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				decision, err := gate.Check(ctx, key.Key)
				if !assert.NoError(t, err) {
					return
				}
				if decision.Authorized {
					mu.Lock()
					authorized++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, limit, authorized)

		stored, err := store.GetByKey(ctx, key.Key)
		require.NoError(t, err)
		assert.Equal(t, limit, stored.Usage)
	})
}

func TestGatePeek(t *testing.T) {
	ctx := context.Background()

	t.Run("does not charge quota", func(t *testing.T) {
		limit := 5
		store, key := seededStore(t, &limit)
		gate := NewGate(store)

		for i := 0; i < 10; i++ {
			decision, err := gate.Peek(ctx, key.Key)
			require.NoError(t, err)
			assert.True(t, decision.Authorized)
			assert.Equal(t, 0, decision.Usage)
		}

		stored, err := store.GetByKey(ctx, key.Key)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Usage)
	})

	t.Run("reports exhausted keys", func(t *testing.T) {
		limit := 1
		store, key := seededStore(t, &limit)
		gate := NewGate(store)

		_, err := gate.Check(ctx, key.Key)
		require.NoError(t, err)

		decision, err := gate.Peek(ctx, key.Key)
		require.NoError(t, err)
		assert.False(t, decision.Authorized)
		assert.Equal(t, ReasonRateLimited, decision.Reason)
	})

	t.Run("unknown credential", func(t *testing.T) {
		gate := NewGate(storage.NewMemoryStore())

		decision, err := gate.Peek(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, decision.Authorized)
		assert.Equal(t, ReasonInvalid, decision.Reason)
	})
}
