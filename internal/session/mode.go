package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMode is returned by ParseMode for unknown names.
var ErrInvalidMode = errors.New("invalid study mode")

// Mode is how sentences are presented.
type Mode int

const (
	// ModeRead shows every sentence in full.
	ModeRead Mode = iota

	// ModeRecall hides the translation until it is revealed.
	ModeRecall
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	if m == ModeRecall {
		return "recall"
	}
	return "read"
}

// ParseMode parses "read" or "recall".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "read":
		return ModeRead, nil
	case "recall":
		return ModeRecall, nil
	default:
		return ModeRead, fmt.Errorf("%w: %q (want read or recall)", ErrInvalidMode, s)
	}
}
