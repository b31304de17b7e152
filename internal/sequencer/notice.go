package sequencer

// Level is the severity of a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a short message for the user.
type Notice struct {
	Text  string
	Level Level
}

// Observer receives controller output. Its methods are called on the
// scheduler goroutine and must not block.
type Observer interface {
	// Changed is called after the playback state changes.
	Changed(Snapshot)

	// Notice reports something the user should see.
	Notice(Notice)

	// Reveal asks for the full sentence content to be shown.
	Reveal()
}

type nopObserver struct{}

func (nopObserver) Changed(Snapshot) {}
func (nopObserver) Notice(Notice)    {}
func (nopObserver) Reveal()          {}
