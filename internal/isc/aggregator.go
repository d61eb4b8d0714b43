package isc

import (
	"fmt"
	"log/slog"

	"entrain/internal/biosignal"
	"entrain/internal/logging"
)

// Row is one output sample: a reconstructed timestamp plus one aggregated
// correlation per band, indexed by the Result's band order.
type Row struct {
	Timestamp float64
	Values    []biosignal.Value
}

// Result is the aggregated correlation table, one row per window index and
// one column per band in canonical order.
type Result struct {
	Bands []biosignal.Band
	Rows  []Row
}

type pair struct{ a, b int }

// Aggregate computes the windowed intersubject correlation over the
// filtered series. Respondents are sorted by ID and bands taken in
// canonical order, so identical input always yields an identical result.
// Degenerate inputs never fail: fewer than two respondents produce a single
// all-missing row at timestamp zero, and an input too short for even one
// window produces an empty table, each with a warning.
func Aggregate(series []biosignal.Series, p Params, logger *slog.Logger) (Result, []string) {
	log := logging.NewComponentLogger(logger, "aggregator")

	sorted := biosignal.SortByRespondent(series)
	bands := biosignal.BandSet(sorted)

	if len(sorted) < 2 {
		warning := fmt.Sprintf("at least two respondents are required for correlation, got %d", len(sorted))
		return degenerateResult(bands), []string{warning}
	}

	var pairs []pair
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	step := p.SampleOverlap()
	interval := biosignal.PooledMedianInterval(sorted)

	windows := 0
	for _, band := range bands {
		for _, pr := range pairs {
			if n := WindowCount(alignedLength(sorted[pr.a], sorted[pr.b], band), p.WindowSize, step); n > windows {
				windows = n
			}
		}
	}
	log.Debug("windows enumerated",
		logging.Int("window_count", windows),
		logging.Int("pair_count", len(pairs)),
		logging.Int("band_count", len(bands)),
		logging.Int("sample_overlap", step),
		logging.Float64("median_interval_s", interval))

	if windows == 0 {
		warning := fmt.Sprintf("no aligned series fits a window of %d samples, result is empty", p.WindowSize)
		return Result{Bands: bands}, []string{warning}
	}

	result := Result{Bands: bands, Rows: make([]Row, windows)}
	for k := range result.Rows {
		result.Rows[k] = Row{
			Timestamp: interval*float64(p.WindowSize)/2 + float64(k)*interval*float64(step),
			Values:    make([]biosignal.Value, len(bands)),
		}
	}

	for bi, band := range bands {
		for k := 0; k < windows; k++ {
			var sum float64
			var count int
			start := k * step
			for _, pr := range pairs {
				left := sorted[pr.a].BandValues(band)
				right := sorted[pr.b].BandValues(band)
				if start+p.WindowSize > alignedLength(sorted[pr.a], sorted[pr.b], band) {
					continue
				}
				if r, ok := windowCorrelation(left[start:start+p.WindowSize], right[start:start+p.WindowSize]).Float(); ok {
					sum += r
					count++
				}
			}
			if count == 0 {
				result.Rows[k].Values[bi] = biosignal.Missing()
			} else {
				result.Rows[k].Values[bi] = biosignal.Present(sum / float64(count))
			}
		}
	}
	return result, nil
}

// alignedLength is the windowable span of a pair's band columns: the
// shorter of the two effective lengths. The longer tail exists for one
// respondent only and is never windowed.
func alignedLength(a, b biosignal.Series, band biosignal.Band) int {
	la := effectiveLength(a.BandValues(band))
	lb := effectiveLength(b.BandValues(band))
	if la < lb {
		return la
	}
	return lb
}

func degenerateResult(bands []biosignal.Band) Result {
	row := Row{Timestamp: 0, Values: make([]biosignal.Value, len(bands))}
	for i := range row.Values {
		row.Values[i] = biosignal.Missing()
	}
	return Result{Bands: bands, Rows: []Row{row}}
}
