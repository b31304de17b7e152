package sequencer

import (
	"time"

	"dario.cat/mergo"
)

// NoDelay asks for a step to follow immediately. A zero field in Timing is
// unset and takes its default.
const NoDelay time.Duration = -1

// Timing holds the delays between playback steps.
type Timing struct {
	// Gap separates the source clip from the translation clip.
	Gap time.Duration `mapstructure:"gap" yaml:"gap"`

	// Advance separates sentences when looping or in continuous play.
	Advance time.Duration `mapstructure:"advance" yaml:"advance"`

	// Skip is how long continuous play waits on a sentence with no audio.
	Skip time.Duration `mapstructure:"skip" yaml:"skip"`

	// Start delays the first sentence of continuous play.
	Start time.Duration `mapstructure:"start" yaml:"start"`
}

// DefaultTiming returns the default delays.
func DefaultTiming() Timing {
	return Timing{
		Gap:     500 * time.Millisecond,
		Advance: 200 * time.Millisecond,
		Skip:    50 * time.Millisecond,
		Start:   100 * time.Millisecond,
	}
}

// WithDefaults fills unset delays from DefaultTiming and turns NoDelay, or
// any negative delay, into zero.
func (t Timing) WithDefaults() Timing {
	out := t
	if err := mergo.Merge(&out, DefaultTiming()); err != nil {
		return DefaultTiming()
	}
	for _, d := range []*time.Duration{&out.Gap, &out.Advance, &out.Skip, &out.Start} {
		*d = max(*d, 0)
	}
	return out
}

// Exact marks every zero delay as NoDelay so WithDefaults keeps it. Use it
// for fully populated timings such as those read from configuration.
func (t Timing) Exact() Timing {
	for _, d := range []*time.Duration{&t.Gap, &t.Advance, &t.Skip, &t.Start} {
		if *d == 0 {
			*d = NoDelay
		}
	}
	return t
}
