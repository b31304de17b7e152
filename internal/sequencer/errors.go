package sequencer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRate is returned for playback rates outside Rates.
	ErrInvalidRate = errors.New("invalid playback rate")

	// ErrEmptyChunk is returned when continuous play is started on an
	// empty chunk.
	ErrEmptyChunk = errors.New("chunk has no sentences")

	// ErrLoopClosed is returned by Loop.Do after Close.
	ErrLoopClosed = errors.New("event loop is closed")
)

// PlaybackError describes a clip that failed to load or play.
type PlaybackError struct {
	Clip   ClipKind
	Source string
	Err    error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s clip %q: %v", e.Clip, e.Source, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
