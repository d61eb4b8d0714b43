package pipeline_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"entrain/internal/biosignal"
	"entrain/internal/config"
	"entrain/internal/fetch"
	"entrain/internal/logging"
	"entrain/internal/pipeline"
	"entrain/internal/runs"
	"entrain/internal/services/studydata"
	"entrain/internal/testsupport"
)

type fakePlatform struct {
	mu         sync.Mutex
	listErr    error
	resp       []biosignal.Respondent
	series     map[string]biosignal.Series
	fetchErr   map[string]error
	uploadErr  error
	uploads    []studydata.MetricUpload
	fetchCalls int
}

func (f *fakePlatform) ListRespondents(_ context.Context, study, stimulus, segment string) ([]biosignal.Respondent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.resp, nil
}

func (f *fakePlatform) Fetch(_ context.Context, task fetch.Task) (biosignal.Series, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	if err := f.fetchErr[task.Respondent.ID]; err != nil {
		return biosignal.Series{}, err
	}
	s, ok := f.series[task.Respondent.ID]
	if !ok {
		return biosignal.Series{Respondent: task.Respondent}, nil
	}
	return s, nil
}

func (f *fakePlatform) UploadResult(_ context.Context, upload studydata.MetricUpload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, upload)
	return nil
}

func (f *fakePlatform) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

type completedCall struct {
	study    string
	rows     int
	warnings int
}

type failedCall struct {
	study string
	cause error
}

type fakeNotifier struct {
	completed []completedCall
	failed    []failedCall
}

func (f *fakeNotifier) NotifyRunCompleted(_ context.Context, study string, rows, warnings int, _ time.Duration) error {
	f.completed = append(f.completed, completedCall{study: study, rows: rows, warnings: warnings})
	return nil
}

func (f *fakeNotifier) NotifyRunFailed(_ context.Context, study string, cause error) error {
	f.failed = append(f.failed, failedCall{study: study, cause: cause})
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

func makeSeries(t testing.TB, id string, alpha []biosignal.Value) biosignal.Series {
	t.Helper()
	times := make([]float64, len(alpha))
	for i := range times {
		times[i] = float64(i)
	}
	s, err := biosignal.NewSeries(
		biosignal.Respondent{ID: id},
		times,
		map[biosignal.Band][]biosignal.Value{"alpha": alpha},
	)
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	return s
}

// ramp produces n present samples increasing by slope per step.
func ramp(n int, slope float64) []biosignal.Value {
	values := make([]biosignal.Value, n)
	for i := range values {
		values[i] = biosignal.Present(slope * float64(i+1))
	}
	return values
}

// mostlyMissing produces n samples of which only the first keep are present.
func mostlyMissing(n, keep int) []biosignal.Value {
	values := make([]biosignal.Value, n)
	for i := range values {
		if i < keep {
			values[i] = biosignal.Present(float64(i))
		} else {
			values[i] = biosignal.Missing()
		}
	}
	return values
}

func newISCJob(t *testing.T, platform *fakePlatform, notifier *fakeNotifier) (*pipeline.ISCJob, *runs.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return pipeline.NewISCJob(cfg, store, platform, notifier, logging.NewNop()), store, cfg
}

func newStatsJob(t *testing.T, platform *fakePlatform, notifier *fakeNotifier) (*pipeline.StatsJob, *runs.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return pipeline.NewStatsJob(cfg, store, platform, notifier, logging.NewNop()), store, cfg
}

func baseISCRequest() pipeline.ISCRequest {
	return pipeline.ISCRequest{
		Study:            "st-9",
		Segment:          "seg-1",
		WindowSize:       5,
		OverlapPercent:   0,
		QualityThreshold: 30,
		Bands:            []string{"alpha"},
		Parallelism:      2,
		Upload:           true,
	}
}

func warningMessages(list []pipeline.Warning) []string {
	messages := make([]string, len(list))
	for i, w := range list {
		messages[i] = w.Message
	}
	return messages
}

func hasWarning(list []pipeline.Warning, stage, fragment string) bool {
	for _, w := range list {
		if w.Stage == stage && strings.Contains(w.Message, fragment) {
			return true
		}
	}
	return false
}
