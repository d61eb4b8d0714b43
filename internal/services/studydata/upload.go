package studydata

import (
	"entrain/internal/isc"
)

// MetricUpload is the payload persisted under a named metric series.
type MetricUpload struct {
	Study    string            `json:"-"`
	Name     string            `json:"name"`
	Segment  string            `json:"segment,omitempty"`
	Params   MetricParams      `json:"params"`
	Bands    []string          `json:"bands"`
	Rows     []MetricRow       `json:"rows"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MetricParams records the analysis parameters alongside the series so a
// run can be reproduced later.
type MetricParams struct {
	WindowSize       int     `json:"window_size"`
	OverlapPercent   float64 `json:"overlap_percent"`
	QualityThreshold float64 `json:"quality_threshold"`
}

// MetricRow is one output sample; a nil value marks a missing cell.
type MetricRow struct {
	Timestamp float64    `json:"t"`
	Values    []*float64 `json:"values"`
}

// NewMetricUpload shapes an aggregated result for upload.
func NewMetricUpload(study, name, segment string, p isc.Params, res isc.Result, metadata map[string]string) MetricUpload {
	bands := make([]string, len(res.Bands))
	for i, band := range res.Bands {
		bands[i] = string(band)
	}
	rows := make([]MetricRow, len(res.Rows))
	for i, row := range res.Rows {
		values := make([]*float64, len(row.Values))
		for j, v := range row.Values {
			values[j] = v.Ptr()
		}
		rows[i] = MetricRow{Timestamp: row.Timestamp, Values: values}
	}
	return MetricUpload{
		Study:   study,
		Name:    name,
		Segment: segment,
		Params: MetricParams{
			WindowSize:       p.WindowSize,
			OverlapPercent:   p.OverlapPercent,
			QualityThreshold: p.QualityThreshold,
		},
		Bands:    bands,
		Rows:     rows,
		Metadata: metadata,
	}
}
