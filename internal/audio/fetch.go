package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/time/rate"
)

// maxClipSize bounds a single fetched clip.
var maxClipSize int64 = 32 << 20

// ClipStore caches fetched clip bytes. *cache.Manager satisfies it.
type ClipStore interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// Base is the dataset location relative sources are resolved against:
	// a directory or an http(s) URL ending in '/'.
	Base string

	// RequestsPerMinute limits remote fetches. Zero means unlimited.
	RequestsPerMinute int

	// Timeout bounds a single remote fetch.
	Timeout time.Duration

	// Store, when set, caches remote clips.
	Store ClipStore

	// Key maps a source to a cache key. Defaults to the source itself.
	Key func(src string) string

	Client *http.Client
}

// Fetcher resolves clip sources to bytes.
type Fetcher struct {
	base    string
	limiter *rate.Limiter
	timeout time.Duration
	store   ClipStore
	key     func(string) string
	client  *http.Client
}

// NewFetcher creates a fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	f := &Fetcher{
		base:    cfg.Base,
		timeout: cfg.Timeout,
		store:   cfg.Store,
		key:     cfg.Key,
		client:  cfg.Client,
	}
	if cfg.RequestsPerMinute > 0 {
		f.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	if f.timeout <= 0 {
		f.timeout = 30 * time.Second
	}
	if f.key == nil {
		f.key = func(src string) string { return src }
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	return f
}

// Fetch returns the encoded bytes of the clip at src.
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	loc, remote := f.Resolve(src)
	if remote {
		return f.fetchRemote(ctx, loc)
	}
	return readFile(loc)
}

// Resolve returns where src lives and whether it is remote. Relative
// sources are resolved against the base. An absolute path that does not
// exist is retried under the base.
func (f *Fetcher) Resolve(src string) (string, bool) {
	src = strings.TrimSpace(src)
	if isRemote(src) {
		return src, true
	}

	if isRemote(f.base) {
		u, err := url.Parse(f.base)
		if err == nil {
			ref, err := url.Parse(strings.TrimPrefix(filepath.ToSlash(src), "/"))
			if err == nil {
				return u.ResolveReference(ref).String(), true
			}
		}
		return src, false
	}

	p, err := homedir.Expand(src)
	if err != nil {
		p = src
	}
	if filepath.IsAbs(p) {
		if _, err := os.Stat(p); err == nil || f.base == "" {
			return p, false
		}
		return filepath.Join(f.base, p), false
	}
	if f.base != "" {
		return filepath.Join(f.base, p), false
	}
	return p, false
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func readFile(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrClipNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read clip: %w", err)
	}
	return data, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, src string) ([]byte, error) {
	key := f.key(src)
	if f.store != nil {
		if data, ok := f.store.Get(key); ok {
			log.Debug("clip cache hit", "src", src)
			return data, nil
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to get clip: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrClipNotFound, src)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("HTTP error! Status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read clip: %w", err)
	}
	if int64(len(data)) > maxClipSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrClipTooLarge, src, maxClipSize)
	}

	if f.store != nil {
		if err := f.store.Put(key, data); err != nil {
			log.Debug("clip not cached", "src", src, "error", err)
		}
	}
	return data, nil
}
