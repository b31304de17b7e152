package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrClosed is returned when a closed cache is used.
	ErrClosed = errors.New("cache is closed")
)

// Level is the cache tier an entry lives in.
type Level int

const (
	// LevelMemory is the in-memory cache (fastest).
	LevelMemory Level = iota

	// LevelDisk is the disk cache (persistent).
	LevelDisk
)

// String returns the string representation of the cache level.
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds counters for one cache level.
type Stats struct {
	Capacity  int64 // bytes
	Size      int64 // bytes
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64

	LastAccess time.Time
	LastEvict  time.Time
}

// HitRate is hits / (hits + misses).
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Entry describes a cached item.
type Entry struct {
	Key        string
	Size       int64 // uncompressed
	Stored     time.Time
	LastAccess time.Time
	Hits       int64
	Level      Level
}

// Config configures a Manager.
type Config struct {
	// MemoryCapacity bounds the L1 cache in bytes.
	MemoryCapacity int64

	// DiskCapacity bounds the L2 cache in bytes.
	DiskCapacity int64

	// Dir holds the L2 files. Required.
	Dir string

	// CompressionLevel is the zstd level (1-22). Zero disables compression.
	CompressionLevel int

	// MaxAge expires entries. Zero keeps them until evicted.
	MaxAge time.Duration

	// CleanupInterval is how often expired entries are removed. Zero
	// disables the background cleanup.
	CleanupInterval time.Duration
}

// DefaultConfig returns the default configuration for a cache in dir.
func DefaultConfig(dir string) Config {
	return Config{
		MemoryCapacity:   64 << 20,  // 64MB
		DiskCapacity:     512 << 20, // 512MB
		Dir:              dir,
		CompressionLevel: 3,
		MaxAge:           30 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// ClipKey returns the cache key of a clip source.
func ClipKey(src string) string {
	hash := sha256.Sum256([]byte(src))
	return hex.EncodeToString(hash[:16])
}
