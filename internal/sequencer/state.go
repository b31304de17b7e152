package sequencer

// State is the controller's position in a sentence's playback sequence.
type State int

const (
	Idle State = iota
	LoadingSource
	PlayingSource
	GapBeforeTranslation
	LoadingTranslation
	PlayingTranslation
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingSource:
		return "loading source"
	case PlayingSource:
		return "playing source"
	case GapBeforeTranslation:
		return "gap"
	case LoadingTranslation:
		return "loading translation"
	case PlayingTranslation:
		return "playing translation"
	default:
		return "unknown"
	}
}

// ClipKind says which of a sentence's clips is on the device.
type ClipKind int

const (
	ClipNone ClipKind = iota
	ClipSource
	ClipTranslation
)

// String returns the string representation of the clip kind.
func (k ClipKind) String() string {
	switch k {
	case ClipSource:
		return "source"
	case ClipTranslation:
		return "translation"
	default:
		return "none"
	}
}

func loadingState(k ClipKind) State {
	if k == ClipSource {
		return LoadingSource
	}
	return LoadingTranslation
}

func playingState(k ClipKind) State {
	if k == ClipSource {
		return PlayingSource
	}
	return PlayingTranslation
}

// Snapshot is a copy of the controller's playback state.
type Snapshot struct {
	State      State
	Clip       ClipKind
	Rate       float64
	Looping    bool
	Continuous bool
	Cursor     int // continuous play position, 0 when inactive
	Token      uint64
	SentenceID string
}

// Playing reports whether a sequence is in progress.
func (s Snapshot) Playing() bool {
	return s.State != Idle
}
