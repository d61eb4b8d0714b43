package quality

import (
	"fmt"
	"strings"

	"entrain/internal/biosignal"
)

// Score holds one respondent's missing-data assessment.
type Score struct {
	Respondent     biosignal.Respondent
	MissingPercent float64
	Excluded       bool
}

// Report is the outcome of a quality assessment: the effective threshold,
// the band the scores were computed from, and one Score per respondent in
// respondent-ID order.
type Report struct {
	Threshold float64
	Band      biosignal.Band
	Scores    []Score

	survivors []biosignal.Series
}

// Survivors returns the series that passed the filter, sorted by
// respondent ID.
func (r Report) Survivors() []biosignal.Series { return r.survivors }

// ExcludedLabels returns display labels for the excluded respondents in
// score order.
func (r Report) ExcludedLabels() []string {
	var labels []string
	for _, s := range r.Scores {
		if s.Excluded {
			labels = append(labels, respondentLabel(s.Respondent))
		}
	}
	return labels
}

// MissingPercent returns the percentage of Missing values in one band
// column. NotApplicable cells count in neither the numerator nor the
// denominator, and a column with no countable cells scores 100.
func MissingPercent(s biosignal.Series, band biosignal.Band) float64 {
	var total, missing int
	for _, v := range s.BandValues(band) {
		switch v.State() {
		case biosignal.StatePresent:
			total++
		case biosignal.StateMissing:
			total++
			missing++
		}
	}
	if total == 0 {
		return 100
	}
	return float64(missing) / float64(total) * 100
}

// Assess scores every respondent against one representative band and drops
// those whose missing percentage exceeds the threshold. Missingness is
// assumed uniform across bands, so the first band in canonical order stands
// for all of them. An out-of-range threshold is clamped, and exclusions are
// reported as warnings; Assess never fails.
func Assess(series []biosignal.Series, threshold float64) (Report, []string) {
	var warnings []string

	effective, adjusted := ClampPercent(threshold)
	if adjusted {
		warnings = append(warnings, fmt.Sprintf("quality threshold %g out of range, using %g", threshold, effective))
	}

	sorted := biosignal.SortByRespondent(series)
	report := Report{Threshold: effective}
	if bands := biosignal.BandSet(sorted); len(bands) > 0 {
		report.Band = bands[0]
	}

	for _, s := range sorted {
		score := Score{Respondent: s.Respondent, MissingPercent: MissingPercent(s, report.Band)}
		if score.MissingPercent > effective {
			score.Excluded = true
		} else {
			report.survivors = append(report.survivors, s)
		}
		report.Scores = append(report.Scores, score)
	}

	if excluded := report.ExcludedLabels(); len(excluded) > 0 {
		if len(report.survivors) == 0 {
			warnings = append(warnings, fmt.Sprintf("all %d respondents exceed quality threshold %g%%, continuing without survivors", len(report.Scores), effective))
		} else {
			warnings = append(warnings, fmt.Sprintf("excluded %d of %d respondents above quality threshold %g%%: %s", len(excluded), len(report.Scores), effective, strings.Join(excluded, ", ")))
		}
	}
	return report, warnings
}

func respondentLabel(r biosignal.Respondent) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
