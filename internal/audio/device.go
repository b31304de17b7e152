package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when a closed device is used.
	ErrClosed = errors.New("device is closed")

	// ErrNoClip is returned by Play when nothing is loaded.
	ErrNoClip = errors.New("no clip loaded")

	// ErrAbandoned is reported to a Play callback whose clip was replaced or
	// paused before it could start.
	ErrAbandoned = errors.New("clip abandoned")

	// ErrClipNotFound is returned when a clip source does not exist.
	ErrClipNotFound = errors.New("clip not found")

	// ErrClipTooLarge is returned for a remote clip past the size limit.
	ErrClipTooLarge = errors.New("clip too large")

	// ErrUnsupportedFormat is returned for audio that cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// ClipID identifies one Load on a device. Every Load yields a new id.
type ClipID uint64

// EventKind distinguishes device notifications.
type EventKind int

const (
	// EventEnded is sent once when a clip plays to its end.
	EventEnded EventKind = iota

	// EventError is sent when playback fails after it started.
	EventError
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is an asynchronous notification about a clip.
type Event struct {
	Kind EventKind
	Clip ClipID
	Err  error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s clip=%d: %v", e.Kind, e.Clip, e.Err)
	}
	return fmt.Sprintf("%s clip=%d", e.Kind, e.Clip)
}

// Device is a single shared playback resource.
//
// Load abandons whatever clip is current and makes src current; it does no
// I/O. Play starts (or resumes) the current clip and reports the outcome
// exactly once through done, possibly from another goroutine. Pause halts
// output and may be called at any time. SetRate applies to the current clip
// and to every later one. Events for a clip stop once it is abandoned.
type Device interface {
	Load(src string) (ClipID, error)
	Play(done func(error))
	Pause()
	SetRate(rate float64)
	SetNotifier(fn func(Event))
	Close() error
}
