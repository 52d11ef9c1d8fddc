package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		cache := NewLRUCache(10, time.Minute)
		cache.Set("a", 1)

		got, found := cache.Get("a")
		assert.True(t, found)
		assert.Equal(t, 1, got)
	})

	t.Run("miss", func(t *testing.T) {
		cache := NewLRUCache(10, time.Minute)
		_, found := cache.Get("missing")
		assert.False(t, found)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		cache := NewLRUCache(2, time.Minute)
		cache.Set("a", 1)
		cache.Set("b", 2)

		// Touch a so b becomes the eviction candidate.
		cache.Get("a")
		cache.Set("c", 3)

		_, found := cache.Get("b")
		assert.False(t, found)
		_, found = cache.Get("a")
		assert.True(t, found)
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("expired entries are misses", func(t *testing.T) {
		cache := NewLRUCache(10, time.Millisecond)
		cache.Set("a", 1)
		time.Sleep(5 * time.Millisecond)

		_, found := cache.Get("a")
		assert.False(t, found)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("update refreshes value", func(t *testing.T) {
		cache := NewLRUCache(10, time.Minute)
		cache.Set("a", 1)
		cache.Set("a", 2)

		got, _ := cache.Get("a")
		assert.Equal(t, 2, got)
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("delete and clear", func(t *testing.T) {
		cache := NewLRUCache(10, time.Minute)
		cache.Set("a", 1)
		cache.Set("b", 2)

		cache.Delete("a")
		_, found := cache.Get("a")
		assert.False(t, found)

		cache.Clear()
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("concurrent access", func(t *testing.T) {
		cache := NewLRUCache(100, time.Minute)
		var wg sync.WaitGroup

		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					key := fmt.Sprintf("key-%d-%d", n, j)
					cache.Set(key, j)
					cache.Get(key)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 100, cache.Len())
	})
}
