package descriptive

import (
	"fmt"
	"math"

	"entrain/internal/biosignal"
)

// TableRow is one respondent/channel line of the statistics table.
type TableRow struct {
	Respondent biosignal.Respondent
	Channel    biosignal.Band
	Cells      []biosignal.Value
}

// Table is the assembled statistics report: one row per respondent and
// channel, one cell per requested statistic.
type Table struct {
	Statistics []Statistic
	Rows       []TableRow
}

// Summarize computes the requested statistics for every respondent and
// channel, respondents in ID order and channels in canonical order.
// Missing and merge-padding cells are dropped before computation; a channel
// with no observed values yields a row of missing cells and a warning
// rather than an error.
func Summarize(series []biosignal.Series, stats []Statistic) (Table, []string) {
	var warnings []string
	table := Table{Statistics: stats}
	for _, s := range biosignal.SortByRespondent(series) {
		for _, channel := range s.BandNames() {
			row := TableRow{Respondent: s.Respondent, Channel: channel, Cells: make([]biosignal.Value, len(stats))}
			xs := observed(s.BandValues(channel))
			if len(xs) == 0 {
				for i := range row.Cells {
					row.Cells[i] = biosignal.Missing()
				}
				warnings = append(warnings, fmt.Sprintf("respondent %s has no usable samples on channel %s", respondentLabel(s.Respondent), channel))
			} else {
				for i, st := range stats {
					row.Cells[i] = cell(Compute(st, xs))
				}
			}
			table.Rows = append(table.Rows, row)
		}
	}
	return table, warnings
}

func observed(values []biosignal.Value) []float64 {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if x, ok := v.Float(); ok {
			xs = append(xs, x)
		}
	}
	return xs
}

func cell(x float64) biosignal.Value {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return biosignal.Missing()
	}
	return biosignal.Present(x)
}

func respondentLabel(r biosignal.Respondent) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
