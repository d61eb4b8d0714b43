package quality

// ClampPercent forces a percentage parameter into [0, 100]. The boolean
// reports whether the value had to be adjusted; callers surface that as a
// warning, never as an error.
func ClampPercent(v float64) (float64, bool) {
	switch {
	case v < 0:
		return 0, true
	case v > 100:
		return 100, true
	default:
		return v, false
	}
}
