package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"entrain/internal/biosignal"
	"entrain/internal/descriptive"
	"entrain/internal/isc"
)

// WriteISCCSV renders a correlation result with one row per window.
// Timestamps carry millisecond precision; missing cells stay empty.
func WriteISCCSV(w io.Writer, res isc.Result) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(res.Bands)+1)
	header = append(header, "timestamp_s")
	for _, band := range res.Bands {
		header = append(header, string(band))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range res.Rows {
		record := make([]string, 0, len(header))
		record = append(record, strconv.FormatFloat(row.Timestamp, 'f', 3, 64))
		for _, v := range row.Values {
			record = append(record, formatCell(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteStatsCSV renders a descriptive summary with one row per
// respondent and channel.
func WriteStatsCSV(w io.Writer, table descriptive.Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(table.Statistics)+2)
	header = append(header, "respondent", "channel")
	for _, st := range table.Statistics {
		header = append(header, st.Name())
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range table.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Respondent.ID, string(row.Channel))
		for _, v := range row.Cells {
			record = append(record, formatCell(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(v biosignal.Value) string {
	f, ok := v.Float()
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
