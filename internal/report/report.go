package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"entrain/internal/biosignal"
	"entrain/internal/descriptive"
	"entrain/internal/isc"
	"entrain/internal/pipeline"
	"entrain/internal/preflight"
	"entrain/internal/quality"
	"entrain/internal/runs"
)

// QualityTable renders per-respondent quality scores and the
// keep/exclude decision.
func QualityTable(rep quality.Report, style Style) string {
	rows := make([][]string, 0, len(rep.Scores))
	for _, score := range rep.Scores {
		status := "kept"
		if score.Excluded {
			status = "excluded"
		}
		rows = append(rows, []string{
			respondentLabel(score.Respondent),
			score.Respondent.Device,
			strconv.FormatFloat(score.MissingPercent, 'f', 1, 64),
			status,
		})
	}
	return renderTable(
		style,
		[]string{"Respondent", "Device", "Missing %", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

// ISCSummary renders one row per band: window and present counts, the
// mean correlation over present cells, and the covered time span.
func ISCSummary(res isc.Result, style Style) string {
	if len(res.Rows) == 0 {
		return "No correlation windows"
	}

	first := res.Rows[0].Timestamp
	last := res.Rows[len(res.Rows)-1].Timestamp

	rows := make([][]string, 0, len(res.Bands))
	for b, band := range res.Bands {
		present := 0
		sum := 0.0
		for _, row := range res.Rows {
			if f, ok := row.Values[b].Float(); ok {
				present++
				sum += f
			}
		}
		mean := "-"
		if present > 0 {
			mean = strconv.FormatFloat(sum/float64(present), 'f', 4, 64)
		}
		rows = append(rows, []string{
			titleCase(string(band)),
			strconv.Itoa(len(res.Rows)),
			strconv.Itoa(present),
			mean,
			strconv.FormatFloat(first, 'f', 3, 64),
			strconv.FormatFloat(last, 'f', 3, 64),
		})
	}
	return renderTable(
		style,
		[]string{"Band", "Windows", "Present", "Mean r", "First s", "Last s"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

// RunsTable renders run history, newest first as listed.
func RunsTable(items []*runs.Run, style Style) string {
	rows := make([][]string, 0, len(items))
	for _, run := range items {
		if run == nil {
			continue
		}
		rows = append(rows, []string{
			shortID(run.ID),
			string(run.Kind),
			run.Study,
			string(run.Status),
			strconv.Itoa(run.RowsProduced),
			run.CreatedAt.Format(time.RFC3339),
		})
	}
	return renderTable(
		style,
		[]string{"ID", "Kind", "Study", "Status", "Rows", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

// RunDetail renders a single run with its recorded warnings.
func RunDetail(run *runs.Run, warnings []runs.Warning, style Style) string {
	if run == nil {
		return ""
	}

	rows := [][]string{
		{"ID", run.ID},
		{"Kind", string(run.Kind)},
		{"Study", run.Study},
	}
	if run.Stimulus != "" {
		rows = append(rows, []string{"Stimulus", run.Stimulus})
	}
	if run.Segment != "" {
		rows = append(rows, []string{"Segment", run.Segment})
	}
	rows = append(rows,
		[]string{"Status", string(run.Status)},
		[]string{"Respondents", fmt.Sprintf("%d total, %d excluded", run.RespondentsTotal, run.RespondentsExcluded)},
		[]string{"Rows", strconv.Itoa(run.RowsProduced)},
	)
	if run.ResultPath != "" {
		rows = append(rows, []string{"Result", run.ResultPath})
	}
	rows = append(rows, []string{"Created", run.CreatedAt.Format(time.RFC3339)})
	if run.FinishedAt != nil {
		rows = append(rows, []string{"Finished", run.FinishedAt.Format(time.RFC3339)})
	}
	if run.ErrorMessage != "" {
		rows = append(rows, []string{"Error", run.ErrorMessage})
	}
	if run.ParamsJSON != "" {
		rows = append(rows, []string{"Parameters", run.ParamsJSON})
	}

	out := renderTable(style, []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
	if len(warnings) == 0 {
		return out
	}

	warnRows := make([][]string, 0, len(warnings))
	for _, warning := range warnings {
		warnRows = append(warnRows, []string{warning.Stage, warning.Message})
	}
	return out + "\n" + renderTable(style, []string{"Stage", "Warning"}, warnRows, []columnAlignment{alignLeft, alignLeft})
}

// Respondents renders the respondent roster of a study.
func Respondents(list []biosignal.Respondent, style Style) string {
	rows := make([][]string, 0, len(list))
	for _, r := range list {
		rows = append(rows, []string{r.ID, r.Name, r.Device})
	}
	return renderTable(
		style,
		[]string{"ID", "Name", "Device"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	)
}

// StatsTable renders a descriptive summary: one row per respondent and
// channel, one column per statistic. Cells without a defined value show a
// dash.
func StatsTable(tbl descriptive.Table, style Style) string {
	if len(tbl.Rows) == 0 {
		return "No statistics computed"
	}

	headers := make([]string, 0, len(tbl.Statistics)+2)
	headers = append(headers, "Respondent", "Channel")
	aligns := []columnAlignment{alignLeft, alignLeft}
	for _, st := range tbl.Statistics {
		headers = append(headers, st.Name())
		aligns = append(aligns, alignRight)
	}

	rows := make([][]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		record := make([]string, 0, len(headers))
		record = append(record, respondentLabel(row.Respondent), titleCase(string(row.Channel)))
		for _, cell := range row.Cells {
			if f, ok := cell.Float(); ok {
				record = append(record, strconv.FormatFloat(f, 'f', -1, 64))
			} else {
				record = append(record, "-")
			}
		}
		rows = append(rows, record)
	}
	return renderTable(style, headers, rows, aligns)
}

// Preflight renders environment check outcomes.
func Preflight(results []preflight.Result, style Style) string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		status := "pass"
		if !result.Passed {
			status = "fail"
		}
		rows = append(rows, []string{result.Name, status, result.Detail})
	}
	return renderTable(
		style,
		[]string{"Check", "Status", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	)
}

// Warnings renders the banner shown after a run with advisories.
func Warnings(list []pipeline.Warning) string {
	if len(list) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Warnings (%d):\n", len(list))
	for _, warning := range list {
		if warning.Stage != "" {
			fmt.Fprintf(&b, "  [%s] %s\n", warning.Stage, warning.Message)
		} else {
			fmt.Fprintf(&b, "  %s\n", warning.Message)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func respondentLabel(r biosignal.Respondent) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
