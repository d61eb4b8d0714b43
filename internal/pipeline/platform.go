package pipeline

import (
	"context"

	"entrain/internal/biosignal"
	"entrain/internal/fetch"
	"entrain/internal/services/studydata"
)

// Platform is the study-data surface a run touches: respondent discovery,
// per-respondent retrieval, and metric upload.
type Platform interface {
	ListRespondents(ctx context.Context, study, stimulus, segment string) ([]biosignal.Respondent, error)
	fetch.Fetcher
	studydata.Sink
}

var _ Platform = (*studydata.Client)(nil)
