package sequencer

import "fmt"

// Rates lists the supported playback rates in ascending order.
var Rates = []float64{0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// DefaultRate is normal speed.
const DefaultRate = 1.0

// ValidateRate returns ErrInvalidRate unless rate is one of Rates.
func ValidateRate(rate float64) error {
	for _, r := range Rates {
		if r == rate {
			return nil
		}
	}
	return fmt.Errorf("%w: %v (want one of %v)", ErrInvalidRate, rate, Rates)
}

// NextRate returns the next rate above current, or current at the maximum.
func NextRate(current float64) float64 {
	for _, r := range Rates {
		if r > current {
			return r
		}
	}
	return current
}

// PrevRate returns the next rate below current, or current at the minimum.
func PrevRate(current float64) float64 {
	for i := len(Rates) - 1; i >= 0; i-- {
		if Rates[i] < current {
			return Rates[i]
		}
	}
	return current
}

// FormatRate renders a rate for display, e.g. "1.25x".
func FormatRate(rate float64) string {
	return fmt.Sprintf("%gx", rate)
}
