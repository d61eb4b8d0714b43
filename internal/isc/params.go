package isc

import (
	"fmt"
	"math"

	"entrain/internal/quality"
	"entrain/internal/services"
)

// Params carries the validated analysis parameters for one run. Build it
// through NewParams and pass it by value; nothing mutates configuration
// after entry.
type Params struct {
	WindowSize       int
	OverlapPercent   float64
	QualityThreshold float64
}

// NewParams validates the raw parameter triple. Out-of-range percentages
// are clamped and reported as warnings; a non-positive window size is a
// validation error.
func NewParams(windowSize int, overlapPercent, qualityThreshold float64) (Params, []string, error) {
	if windowSize < 1 {
		return Params{}, nil, services.Wrap(services.ErrValidation, "parameters", "validate",
			fmt.Sprintf("window_size must be at least 1, got %d", windowSize), nil)
	}

	var warnings []string
	overlap, adjusted := quality.ClampPercent(overlapPercent)
	if adjusted {
		warnings = append(warnings, fmt.Sprintf("overlap percent %g out of range, using %g", overlapPercent, overlap))
	}
	threshold, adjusted := quality.ClampPercent(qualityThreshold)
	if adjusted {
		warnings = append(warnings, fmt.Sprintf("quality threshold %g out of range, using %g", qualityThreshold, threshold))
	}

	return Params{
		WindowSize:       windowSize,
		OverlapPercent:   overlap,
		QualityThreshold: threshold,
	}, warnings, nil
}

// SampleOverlap returns the step in samples between consecutive window
// starts. Zero percent overlap yields back-to-back windows (step equals
// the window size); the step never drops below one sample.
func (p Params) SampleOverlap() int {
	retained := int(math.Floor(p.OverlapPercent * float64(p.WindowSize) / 100))
	step := p.WindowSize - retained
	if step < 1 {
		return 1
	}
	return step
}

// WindowCount returns how many complete windows fit in an aligned series of
// the given length. Trailing partial windows are dropped, never padded.
func WindowCount(alignedLen, windowSize, step int) int {
	if windowSize < 1 || step < 1 || alignedLen < windowSize {
		return 0
	}
	return (alignedLen-windowSize)/step + 1
}
