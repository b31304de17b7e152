package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_BasicOperations(t *testing.T) {
	cache := NewMemory(1024)

	key := "clip-key"
	value := []byte("clip-bytes")
	require.NoError(t, cache.Put(key, value))

	retrieved, ok := cache.Get(key)
	require.True(t, ok, "key not found")
	assert.Equal(t, value, retrieved)
	assert.True(t, cache.Contains(key))
	assert.Equal(t, int64(len(value)), cache.Size())

	cache.Delete(key)
	assert.False(t, cache.Contains(key))
	assert.Zero(t, cache.Size())
}

func TestMemory_LRUEviction(t *testing.T) {
	cache := NewMemory(100)

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Put(fmt.Sprintf("key-%d", i), make([]byte, 20)))
	}

	// Touch key-0 and key-1 so key-2 becomes the oldest.
	cache.Get("key-0")
	cache.Get("key-1")

	require.NoError(t, cache.Put("key-new", make([]byte, 30)))

	assert.False(t, cache.Contains("key-2"), "key-2 should have been evicted")
	assert.False(t, cache.Contains("key-3"), "key-3 should have been evicted")
	assert.True(t, cache.Contains("key-0"))
	assert.True(t, cache.Contains("key-1"))
	assert.Equal(t, int64(2), cache.Stats().Evictions)
}

func TestMemory_ItemTooLarge(t *testing.T) {
	cache := NewMemory(100)
	assert.ErrorIs(t, cache.Put("large-key", make([]byte, 200)), ErrItemTooLarge)
}

func TestMemory_UpdateExisting(t *testing.T) {
	cache := NewMemory(1024)

	_ = cache.Put("k", []byte("original"))
	_ = cache.Put("k", []byte("updated-value"))

	retrieved, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "updated-value", string(retrieved))
	assert.Equal(t, int64(len("updated-value")), cache.Size())
}

func TestMemory_Clear(t *testing.T) {
	cache := NewMemory(1024)

	for i := 0; i < 5; i++ {
		_ = cache.Put(fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("value-%d", i)))
	}
	cache.Clear()

	assert.Zero(t, cache.Size())
	assert.Zero(t, cache.Stats().Items)
}

func TestMemory_Stats(t *testing.T) {
	cache := NewMemory(1024)

	_ = cache.Put("key1", []byte("value1"))
	cache.Get("key1") // hit
	cache.Get("key2") // miss

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate())
	assert.Equal(t, int64(1024), stats.Capacity)
	assert.EqualValues(t, 1, stats.Items)
}

func TestMemory_Entries(t *testing.T) {
	cache := NewMemory(1024)

	for i := 0; i < 5; i++ {
		_ = cache.Put(fmt.Sprintf("key-%d", i), []byte("v"))
	}
	cache.Get("key-0")

	entries := cache.Entries(2)
	require.Len(t, entries, 2)
	assert.Equal(t, "key-1", entries[0].Key, "LRU order")
	assert.Equal(t, "key-2", entries[1].Key, "LRU order")
	assert.Equal(t, LevelMemory, entries[0].Level)
}

func TestMemory_Prune(t *testing.T) {
	cache := NewMemory(1024)

	_ = cache.Put("old-1", []byte("value1"))
	_ = cache.Put("old-2", []byte("value2"))
	time.Sleep(30 * time.Millisecond)
	_ = cache.Put("new-1", []byte("value3"))

	assert.Equal(t, 2, cache.Prune(20*time.Millisecond))
	assert.False(t, cache.Contains("old-1"))
	assert.False(t, cache.Contains("old-2"))
	assert.True(t, cache.Contains("new-1"))
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	cache := NewMemory(10240)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j%5)
				_ = cache.Put(key, []byte("value"))
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Size(), int64(10240))
}

func BenchmarkMemory_Put(b *testing.B) {
	cache := NewMemory(1 << 20)
	value := make([]byte, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.Put(fmt.Sprintf("key-%d", i%1000), value)
	}
}
