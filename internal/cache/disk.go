package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	indexFile = "clips.index"
	clipExt   = ".clip"

	// Clips smaller than this are stored as is.
	compressThreshold = 1024
)

// Disk is the L2 cache: one file per clip plus a gob index, persisted
// across runs.
type Disk struct {
	mu       sync.Mutex
	dir      string
	capacity int64
	size     int64 // bytes on disk
	index    map[string]*diskEntry
	stats    Stats

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// diskEntry is persisted in the index, so its fields are exported.
type diskEntry struct {
	Key        string
	File       string // name inside dir
	DiskSize   int64
	Size       int64
	Stored     time.Time
	LastAccess time.Time
	Hits       int64
	Compressed bool
}

// NewDisk opens or creates a disk cache in dir. A level of zero disables
// compression.
func NewDisk(dir string, capacity int64, level int) (*Disk, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	d := &Disk{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	if level > 0 {
		var err error
		d.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// Entries written with compression stay readable after it is turned off.
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	d.decoder = dec

	if err := d.loadIndex(); err != nil {
		log.Warn("discarding unreadable cache index", "dir", dir, "error", err)
		d.index = make(map[string]*diskEntry)
	}
	for _, e := range d.index {
		d.size += e.DiskSize
	}

	return d, nil
}

// Get reads and decompresses the clip for key.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.index[key]
	if !ok {
		d.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(d.dir, entry.File))
	if err == nil && entry.Compressed {
		data, err = d.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		log.Debug("dropping unreadable cache entry", "key", key, "error", err)
		d.drop(key)
		d.stats.Misses++
		return nil, false
	}

	now := time.Now()
	entry.LastAccess = now
	entry.Hits++
	d.stats.Hits++
	d.stats.LastAccess = now
	return data, true
}

// Put writes value for key, evicting least recently used clips to stay
// within capacity.
func (d *Disk) Put(key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, compressed := value, false
	if d.encoder != nil && len(value) > compressThreshold {
		if c := d.encoder.EncodeAll(value, nil); len(c) < len(value) {
			data, compressed = c, true
		}
	}

	n := int64(len(data))
	if n > d.capacity {
		return ErrItemTooLarge
	}

	d.drop(key)
	for d.size+n > d.capacity && len(d.index) > 0 {
		d.evictOldest()
	}

	name := ClipKey(key) + clipExt
	if err := writeFileAtomic(filepath.Join(d.dir, name), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	d.index[key] = &diskEntry{
		Key:        key,
		File:       name,
		DiskSize:   n,
		Size:       int64(len(value)),
		Stored:     now,
		LastAccess: now,
		Compressed: compressed,
	}
	d.size += n
	return nil
}

// Delete removes key.
func (d *Disk) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drop(key)
}

// Clear removes every clip and rewrites an empty index.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key := range d.index {
		d.drop(key)
	}
	d.size = 0
	return d.saveIndex()
}

// Size returns the bytes used on disk.
func (d *Disk) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// Stats returns a snapshot of the counters.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.Capacity = d.capacity
	s.Size = d.size
	s.Items = len(d.index)
	return s
}

// Entries lists every cached clip, least recently used first.
func (d *Disk) Entries() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Entry, 0, len(d.index))
	for _, e := range d.index {
		out = append(out, Entry{
			Key:        e.Key,
			Size:       e.Size,
			Stored:     e.Stored,
			LastAccess: e.LastAccess,
			Hits:       e.Hits,
			Level:      LevelDisk,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccess.Before(out[j].LastAccess) })
	return out
}

// RemoveOlderThan drops clips stored before cutoff and returns how many
// were removed.
func (d *Disk) RemoveOlderThan(cutoff time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, e := range d.index {
		if e.Stored.Before(cutoff) {
			d.drop(key)
			removed++
		}
	}
	return removed
}

// Close persists the index.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder != nil {
		_ = d.encoder.Close()
	}
	d.decoder.Close()
	return d.saveIndex()
}

// drop removes key and its file. Callers hold d.mu.
func (d *Disk) drop(key string) {
	e, ok := d.index[key]
	if !ok {
		return
	}
	if err := os.Remove(filepath.Join(d.dir, e.File)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Debug("failed to remove cache file", "file", e.File, "error", err)
	}
	delete(d.index, key)
	d.size -= e.DiskSize
}

// evictOldest drops the least recently used clip. Callers hold d.mu.
func (d *Disk) evictOldest() {
	var (
		oldest string
		when   time.Time
	)
	for key, e := range d.index {
		if oldest == "" || e.LastAccess.Before(when) {
			oldest, when = key, e.LastAccess
		}
	}
	if oldest == "" {
		return
	}
	d.drop(oldest)
	d.stats.Evictions++
	d.stats.LastEvict = time.Now()
}

func (d *Disk) loadIndex() error {
	f, err := os.Open(filepath.Join(d.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	return gob.NewDecoder(f).Decode(&d.index)
}

func (d *Disk) saveIndex() error {
	f, err := os.CreateTemp(d.dir, indexFile+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	err = gob.NewEncoder(f).Encode(d.index)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filepath.Join(d.dir, indexFile))
}

// writeFileAtomic writes to a temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
