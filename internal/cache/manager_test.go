package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig(t.TempDir())
	cfg.MemoryCapacity = 1024
	cfg.DiskCapacity = 10240
	cfg.CleanupInterval = 0
	return cfg
}

func newManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	manager, err := New(cfg)
	require.NoError(t, err, "Failed to create cache manager")
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func TestManager_BasicOperations(t *testing.T) {
	manager := newManager(t, testConfig(t))

	key := ClipKey("https://example.com/a.mp3")
	value := []byte("clip-bytes")
	require.NoError(t, manager.Put(key, value))

	retrieved, ok := manager.Get(key)
	require.True(t, ok, "key not found")
	assert.Equal(t, value, retrieved)

	manager.Delete(key)
	_, ok = manager.Get(key)
	assert.False(t, ok, "key still exists after delete")
}

func TestManager_DiskFallbackAndPromotion(t *testing.T) {
	cfg := testConfig(t)
	cfg.MemoryCapacity = 100
	manager := newManager(t, cfg)

	_ = manager.Put("first", make([]byte, 60))
	_ = manager.Put("second", make([]byte, 60)) // evicts first from memory
	manager.Flush()
	require.False(t, manager.memory.Contains("first"))

	data, ok := manager.Get("first")
	require.True(t, ok, "disk fallback failed")
	assert.Len(t, data, 60)
	assert.True(t, manager.memory.Contains("first"), "disk hit should be promoted to memory")

	stats := manager.Stats()
	assert.EqualValues(t, 1, stats.Promotions)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 0, stats.Misses)
}

func TestManager_LargerThanMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.MemoryCapacity = 10
	manager := newManager(t, cfg)

	require.NoError(t, manager.Put("big", make([]byte, 100)),
		"Put should succeed when only the memory level is too small")
	manager.Flush()

	_, ok := manager.Get("big")
	assert.True(t, ok, "big clip should be served from disk")
}

func TestManager_ClearAndEntries(t *testing.T) {
	manager := newManager(t, testConfig(t))

	for i := 0; i < 3; i++ {
		_ = manager.Put(fmt.Sprintf("clip-%d", i), []byte("data"))
	}
	assert.Len(t, manager.Entries(), 3)

	require.NoError(t, manager.Clear())
	assert.Empty(t, manager.Entries())
	stats := manager.Stats()
	assert.Zero(t, stats.Memory.Size)
	assert.Zero(t, stats.Disk.Size)
}

func TestManager_Cleanup(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxAge = 20 * time.Millisecond
	manager := newManager(t, cfg)

	_ = manager.Put("old", []byte("1"))
	manager.Flush()
	time.Sleep(40 * time.Millisecond)
	_ = manager.Put("new", []byte("2"))
	manager.Flush()

	assert.Equal(t, 2, manager.Cleanup(), "old from memory and disk")
	_, ok := manager.Get("old")
	assert.False(t, ok, "old clip should have expired")
	_, ok = manager.Get("new")
	assert.True(t, ok)
	assert.EqualValues(t, 1, manager.Stats().Cleanups)
}

func TestManager_CleanupRoutine(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxAge = time.Millisecond
	cfg.CleanupInterval = 10 * time.Millisecond
	manager := newManager(t, cfg)

	assert.Eventually(t, func() bool { return manager.Stats().Cleanups > 0 },
		2*time.Second, 5*time.Millisecond, "cleanup routine never ran")
}

func TestManager_PutAfterClose(t *testing.T) {
	manager, err := New(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, manager.Close())
	assert.NoError(t, manager.Close(), "second Close should be a no-op")
	assert.ErrorIs(t, manager.Put("k", []byte("v")), ErrClosed)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	cfg := testConfig(t)
	cfg.MemoryCapacity = 10240
	cfg.DiskCapacity = 102400
	manager := newManager(t, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				key := fmt.Sprintf("writer-%d-key-%d", id, j)
				assert.NoError(t, manager.Put(key, []byte("value")), "writer %d", id)
				manager.Get(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestClipKey(t *testing.T) {
	a := ClipKey("https://example.com/a.mp3")
	b := ClipKey("https://example.com/b.mp3")

	assert.NotEqual(t, a, b, "different sources should have different keys")
	assert.Equal(t, a, ClipKey("https://example.com/a.mp3"), "keys should be stable")
	assert.Len(t, a, 32)
}
