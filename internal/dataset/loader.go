package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyDataset is returned when a source holds no sentences.
	ErrEmptyDataset = errors.New("no sentences found or data is not in expected format")

	// ErrUnsupportedFormat is returned for sources that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")

	// ErrDatasetTooLarge is returned for a remote source past the size limit.
	ErrDatasetTooLarge = errors.New("dataset too large")
)

// maxDatasetSize bounds how much we read from a remote source.
var maxDatasetSize int64 = 64 << 20

// Format identifies the encoding of a dataset.
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatYAML
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Extensions lists the file patterns recognised as datasets.
var Extensions = []string{"*.json", "*.yaml", "*.yml"}

// FormatFromPath guesses the format from a file name or URL path.
func FormatFromPath(p string) Format {
	if u, err := url.Parse(p); err == nil && u.Scheme != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// IsURL reports whether src is an http or https URL.
func IsURL(src string) bool {
	u, err := url.ParseRequestURI(src)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

// Load reads a dataset from a file path or an HTTP(S) URL.
func Load(ctx context.Context, src string) (*Dataset, error) {
	var (
		data []byte
		base string
		err  error
	)

	if IsURL(src) {
		data, err = fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		u, _ := url.Parse(src)
		u.Path = path.Dir(u.Path) + "/"
		base = u.String()
	} else {
		src = ExpandPath(src)
		data, err = os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("unable to read dataset: %w", err)
		}
		abs, err := filepath.Abs(src)
		if err == nil {
			src = abs
		}
		base = filepath.Dir(src)
	}

	sentences, err := Parse(data, FormatFromPath(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}

	log.Debug("dataset loaded", "source", src, "sentences", len(sentences))
	return &Dataset{Source: src, Base: base, Sentences: sentences}, nil
}

// Parse decodes a dataset. With FormatUnknown the content is sniffed: a
// leading '[' or '{' means JSON, anything else is tried as YAML.
func Parse(data []byte, format Format) ([]Sentence, error) {
	if format == FormatUnknown {
		format = sniff(data)
	}

	var sentences []Sentence
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &sentences); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmptyDataset, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &sentences); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmptyDataset, err)
		}
	default:
		return nil, ErrUnsupportedFormat
	}

	if len(sentences) == 0 {
		return nil, ErrEmptyDataset
	}

	for i := range sentences {
		normalize(&sentences[i])
	}
	return sentences, nil
}

func sniff(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormatUnknown
	}
	switch trimmed[0] {
	case '[', '{':
		return FormatJSON
	default:
		return FormatYAML
	}
}

func normalize(s *Sentence) {
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Target = strings.TrimSpace(s.Target)
	s.Translation = strings.TrimSpace(s.Translation)
	s.Native = strings.TrimSpace(s.Native)
	s.SourceAudio = strings.TrimSpace(s.SourceAudio)
	s.TranslationAudio = strings.TrimSpace(s.TranslationAudio)
}

func fetch(ctx context.Context, src string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to get url: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error! Status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read response: %w", err)
	}
	if int64(len(data)) > maxDatasetSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDatasetTooLarge, maxDatasetSize)
	}
	return data, nil
}
