package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager fronts the memory and disk caches. Reads fall through from
// memory to disk and promote disk hits; writes go to memory immediately and
// to disk in the background.
type Manager struct {
	memory *Memory
	disk   *Disk
	config Config

	writes sync.WaitGroup

	mu     sync.Mutex
	closed bool
	stats  struct {
		hits, misses, promotions int64
		cleanups                 int64
		lastCleanup              time.Time
	}

	stop chan struct{}
	wg   sync.WaitGroup
}

// ManagerStats aggregates both levels.
type ManagerStats struct {
	Memory Stats
	Disk   Stats

	Hits        int64
	Misses      int64
	Promotions  int64
	Cleanups    int64
	LastCleanup time.Time
}

// HitRate is hits / (hits + misses) across both levels.
func (s ManagerStats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// New opens a cache manager.
func New(cfg Config) (*Manager, error) {
	disk, err := NewDisk(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	m := &Manager{
		memory: NewMemory(cfg.MemoryCapacity),
		disk:   disk,
		config: cfg,
		stop:   make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 && cfg.MaxAge > 0 {
		m.wg.Add(1)
		go m.cleanupLoop()
	}
	return m, nil
}

// Get looks key up in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.count(func() { m.stats.hits++ })
		return data, true
	}

	if data, ok := m.disk.Get(key); ok {
		// Best effort: a clip larger than the memory cache stays on disk.
		_ = m.memory.Put(key, data)
		m.count(func() { m.stats.hits++; m.stats.promotions++ })
		return data, true
	}

	m.count(func() { m.stats.misses++ })
	return nil, false
}

// Put stores value in memory and schedules the disk write.
func (m *Manager) Put(key string, value []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.writes.Add(1)
	m.mu.Unlock()

	memErr := m.memory.Put(key, value)

	go func() {
		defer m.writes.Done()
		if err := m.disk.Put(key, value); err != nil {
			log.Debug("disk cache write failed", "key", key, "error", err)
		}
	}()

	if errors.Is(memErr, ErrItemTooLarge) {
		return nil
	}
	return memErr
}

// Flush waits for pending disk writes.
func (m *Manager) Flush() {
	m.writes.Wait()
}

// Delete removes key from both levels.
func (m *Manager) Delete(key string) {
	m.Flush()
	m.memory.Delete(key)
	m.disk.Delete(key)
}

// Clear empties both levels.
func (m *Manager) Clear() error {
	m.Flush()
	m.memory.Clear()
	if err := m.disk.Clear(); err != nil {
		return fmt.Errorf("failed to clear disk cache: %w", err)
	}
	return nil
}

// Entries lists the clips on disk, least recently used first.
func (m *Manager) Entries() []Entry {
	m.Flush()
	return m.disk.Entries()
}

// Stats returns a snapshot of both levels.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := ManagerStats{
		Hits:        m.stats.hits,
		Misses:      m.stats.misses,
		Promotions:  m.stats.promotions,
		Cleanups:    m.stats.cleanups,
		LastCleanup: m.stats.lastCleanup,
	}
	m.mu.Unlock()

	s.Memory = m.memory.Stats()
	s.Disk = m.disk.Stats()
	return s
}

// Cleanup removes entries older than the configured max age.
func (m *Manager) Cleanup() int {
	if m.config.MaxAge <= 0 {
		return 0
	}

	removed := m.memory.Prune(m.config.MaxAge)
	removed += m.disk.RemoveOlderThan(time.Now().Add(-m.config.MaxAge))

	m.count(func() {
		m.stats.cleanups++
		m.stats.lastCleanup = time.Now()
	})
	if removed > 0 {
		log.Debug("cache cleanup", "removed", removed)
	}
	return removed
}

// Close stops the cleanup goroutine, waits for pending writes and saves the
// disk index.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stop)
	m.wg.Wait()
	m.writes.Wait()

	if err := m.disk.Close(); err != nil {
		return fmt.Errorf("failed to close disk cache: %w", err)
	}
	return nil
}

func (m *Manager) count(fn func()) {
	m.mu.Lock()
	fn()
	m.mu.Unlock()
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.stop:
			return
		}
	}
}
