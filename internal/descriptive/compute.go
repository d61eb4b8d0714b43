package descriptive

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// computeByKind maps every statistic kind to its compute function. The
// mapping is fixed at compile time; columns are selected by kind, never by
// matching rendered names.
var computeByKind = map[Kind]func(s Statistic, xs []float64) float64{
	KindMean:       func(_ Statistic, xs []float64) float64 { return stat.Mean(xs, nil) },
	KindStdDev:     func(_ Statistic, xs []float64) float64 { return stat.StdDev(xs, nil) },
	KindVariance:   func(_ Statistic, xs []float64) float64 { return stat.Variance(xs, nil) },
	KindMax:        func(_ Statistic, xs []float64) float64 { return maxValue(xs) },
	KindPercentile: func(s Statistic, xs []float64) float64 { return percentile(s.Arg, xs) },
	KindIQR:        func(_ Statistic, xs []float64) float64 { return percentile(75, xs) - percentile(25, xs) },
	KindMoment:     func(s Statistic, xs []float64) float64 { return stat.Moment(s.Arg, xs, nil) },
	KindSkewness:   func(_ Statistic, xs []float64) float64 { return skewness(xs) },
	KindKurtosis:   func(_ Statistic, xs []float64) float64 { return kurtosis(xs) },
}

// Compute evaluates one statistic over the observed values. Degenerate
// inputs (too few samples for the statistic, zero spread) yield NaN, which
// the table assembly turns into an explicit missing cell.
func Compute(s Statistic, xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	fn, ok := computeByKind[s.Kind]
	if !ok {
		return math.NaN()
	}
	return fn(s, xs)
}

func maxValue(xs []float64) float64 {
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	return max
}

func percentile(rank float64, xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return stat.Quantile(rank/100, stat.Empirical, sorted, nil)
}

// skewness is the adjusted Fisher-Pearson standardized third moment,
// n/((n-1)(n-2)) · Σz³ with z standardized by the sample deviation.
// Undefined below three samples or at zero spread.
func skewness(xs []float64) float64 {
	n := float64(len(xs))
	if n < 3 {
		return math.NaN()
	}
	mean := stat.Mean(xs, nil)
	sd := stat.StdDev(xs, nil)
	if sd == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		z := (x - mean) / sd
		sum += z * z * z
	}
	return n / ((n - 1) * (n - 2)) * sum
}

// kurtosis is the sample excess kurtosis,
// n(n+1)/((n-1)(n-2)(n-3)) · Σz⁴ − 3(n-1)²/((n-2)(n-3)).
// Undefined below four samples or at zero spread.
func kurtosis(xs []float64) float64 {
	n := float64(len(xs))
	if n < 4 {
		return math.NaN()
	}
	mean := stat.Mean(xs, nil)
	sd := stat.StdDev(xs, nil)
	if sd == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		z := (x - mean) / sd
		sum += z * z * z * z
	}
	return n*(n+1)/((n-1)*(n-2)*(n-3))*sum - 3*(n-1)*(n-1)/((n-2)*(n-3))
}
