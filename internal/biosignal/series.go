package biosignal

import (
	"fmt"
	"sort"
)

// Band names a frequency band (or, for descriptive exports, any channel
// label). Band sets are always handled in canonical lexicographic order.
type Band string

// Respondent identifies a study participant.
type Respondent struct {
	ID     string
	Name   string
	Device string
}

// Series is one respondent's rectangular sample block: a shared time axis
// and one value column per band. Treat a built Series as immutable.
type Series struct {
	Respondent Respondent
	Times      []float64
	Bands      map[Band][]Value
}

// NewSeries validates the rectangular invariant: every band column matches
// the time axis length, and timestamps strictly increase.
func NewSeries(respondent Respondent, times []float64, bands map[Band][]Value) (Series, error) {
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return Series{}, fmt.Errorf("timestamps must strictly increase: t[%d]=%v, t[%d]=%v", i-1, times[i-1], i, times[i])
		}
	}
	for band, values := range bands {
		if len(values) != len(times) {
			return Series{}, fmt.Errorf("band %q has %d values for %d timestamps", band, len(values), len(times))
		}
	}
	return Series{Respondent: respondent, Times: times, Bands: bands}, nil
}

// Len returns the number of samples on the time axis.
func (s Series) Len() int { return len(s.Times) }

// Empty reports whether the series carries no samples.
func (s Series) Empty() bool { return len(s.Times) == 0 || len(s.Bands) == 0 }

// BandNames returns the series' bands in canonical order.
func (s Series) BandNames() []Band {
	names := make([]Band, 0, len(s.Bands))
	for band := range s.Bands {
		names = append(names, band)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// BandValues returns the value column for a band, or nil when the series
// does not carry it.
func (s Series) BandValues(band Band) []Value { return s.Bands[band] }

// SortBands returns a sorted copy of the given band set.
func SortBands(bands []Band) []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BandSet returns the canonical union of bands observed across all series.
func BandSet(series []Series) []Band {
	seen := make(map[Band]struct{})
	for _, s := range series {
		for band := range s.Bands {
			seen[band] = struct{}{}
		}
	}
	out := make([]Band, 0, len(seen))
	for band := range seen {
		out = append(out, band)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortByRespondent returns the series sorted by respondent ID so pair
// enumeration and result merging stay deterministic.
func SortByRespondent(series []Series) []Series {
	out := make([]Series, len(series))
	copy(out, series)
	sort.Slice(out, func(i, j int) bool { return out[i].Respondent.ID < out[j].Respondent.ID })
	return out
}

// MedianInterval returns the median of consecutive timestamp differences,
// or 0 when fewer than two timestamps exist.
func MedianInterval(times []float64) float64 {
	if len(times) < 2 {
		return 0
	}
	diffs := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		diffs = append(diffs, times[i]-times[i-1])
	}
	return median(diffs)
}

// PooledMedianInterval returns the median over the combined
// consecutive-difference population of all series. Series with fewer than
// two samples contribute nothing.
func PooledMedianInterval(series []Series) float64 {
	var diffs []float64
	for _, s := range series {
		for i := 1; i < len(s.Times); i++ {
			diffs = append(diffs, s.Times[i]-s.Times[i-1])
		}
	}
	if len(diffs) == 0 {
		return 0
	}
	return median(diffs)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
