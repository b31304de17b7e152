package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	GlamourMaxWidth uint   `env:"PARROT_WIDTH"         envDefault:"80"`
	GlamourStyle    string `env:"PARROT_GLAMOUR_STYLE" envDefault:"auto"`
	EnableMouse     bool

	// Card contents
	ShowNative  bool `env:"PARROT_SHOW_NATIVE"  envDefault:"true"`
	ShowKeyword bool `env:"PARROT_SHOW_KEYWORD" envDefault:"true"`

	// PracticeMinutes is the length of the practice timer.
	PracticeMinutes int `env:"PARROT_PRACTICE_MINUTES" envDefault:"5"`

	// StatusTimeout is how long notices stay in the status bar.
	StatusTimeout time.Duration `env:"PARROT_STATUS_TIMEOUT" envDefault:"3s"`

	// Dataset path or URL, for display
	Source string

	// For debugging the UI
	GlamourEnabled bool `env:"PARROT_ENABLE_GLAMOUR" envDefault:"true"`
}
