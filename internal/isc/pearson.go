package isc

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"entrain/internal/biosignal"
)

// windowCorrelation returns the absolute Pearson correlation between two
// equal-length window slices, deleting case-wise every index where either
// side is not a present value. Fewer than two complete cases, or zero
// variance on either side, yields Missing rather than zero or an error.
func windowCorrelation(a, b []biosignal.Value) biosignal.Value {
	xs := make([]float64, 0, len(a))
	ys := make([]float64, 0, len(a))
	for i := range a {
		x, ok := a[i].Float()
		if !ok {
			continue
		}
		y, ok := b[i].Float()
		if !ok {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) < 2 {
		return biosignal.Missing()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return biosignal.Missing()
	}
	// Float error can push |r| a hair past 1.
	return biosignal.Present(math.Min(math.Abs(r), 1))
}

// effectiveLength is the column length without its trailing merge padding.
// NotApplicable cells exist only because of table alignment and never
// extend the windowable range of a series.
func effectiveLength(values []biosignal.Value) int {
	n := len(values)
	for n > 0 && values[n-1].IsNotApplicable() {
		n--
	}
	return n
}
