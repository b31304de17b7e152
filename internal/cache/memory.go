package cache

import (
	"container/list"
	"sync"
	"time"
)

// Memory is the L1 cache: an LRU bounded by total bytes.
type Memory struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	items    map[string]*list.Element
	order    *list.List // front is most recently used
	stats    Stats
}

type memoryEntry struct {
	key    string
	value  []byte
	stored time.Time
	hits   int64
}

// NewMemory creates a memory cache holding up to capacity bytes.
func NewMemory(capacity int64) *Memory {
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the value for key and marks it recently used.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}

	m.order.MoveToFront(elem)
	entry := elem.Value.(*memoryEntry)
	entry.hits++
	m.stats.Hits++
	m.stats.LastAccess = time.Now()
	return entry.value, true
}

// Put stores value under key, evicting least recently used entries to make
// room.
func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(value))
	if n > m.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}
	for m.size+n > m.capacity && m.order.Len() > 0 {
		m.remove(m.order.Back())
		m.stats.Evictions++
		m.stats.LastEvict = time.Now()
	}

	m.items[key] = m.order.PushFront(&memoryEntry{key: key, value: value, stored: time.Now()})
	m.size += n
	return nil
}

// Delete removes key.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}
}

// Clear removes every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*list.Element)
	m.order.Init()
	m.size = 0
}

// Contains reports whether key is cached without touching its recency.
func (m *Memory) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

// Size returns the cached bytes.
func (m *Memory) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Stats returns a snapshot of the counters.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Capacity = m.capacity
	s.Size = m.size
	s.Items = len(m.items)
	return s
}

// Entries lists up to n entries, least recently used first.
func (m *Memory) Entries(n int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, min(n, m.order.Len()))
	for elem := m.order.Back(); elem != nil && len(out) < n; elem = elem.Prev() {
		e := elem.Value.(*memoryEntry)
		out = append(out, Entry{
			Key:    e.key,
			Size:   int64(len(e.value)),
			Stored: e.stored,
			Hits:   e.hits,
			Level:  LevelMemory,
		})
	}
	return out
}

// Prune removes entries stored longer than maxAge ago and returns how many
// were removed.
func (m *Memory) Prune(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for elem := m.order.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).stored.Before(cutoff) {
			m.remove(elem)
			pruned++
		}
		elem = prev
	}
	return pruned
}

// remove drops elem. Callers hold m.mu.
func (m *Memory) remove(elem *list.Element) {
	entry := m.order.Remove(elem).(*memoryEntry)
	delete(m.items, entry.key)
	m.size -= int64(len(entry.value))
}
