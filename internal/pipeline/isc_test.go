package pipeline_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"entrain/internal/biosignal"
	"entrain/internal/pipeline"
	"entrain/internal/runs"
	"entrain/internal/services"
	"entrain/internal/testsupport"
)

func TestISCJobRunEndToEnd(t *testing.T) {
	platform := &fakePlatform{
		resp: []biosignal.Respondent{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}},
		series: map[string]biosignal.Series{
			"r1": makeSeries(t, "r1", ramp(20, 1)),
			"r2": makeSeries(t, "r2", ramp(20, 2)),
			"r3": makeSeries(t, "r3", mostlyMissing(20, 4)),
		},
	}
	notifier := &fakeNotifier{}
	job, store, _ := newISCJob(t, platform, notifier)

	outcome, err := job.Run(context.Background(), baseISCRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.RunID == "" {
		t.Fatal("expected a run ID")
	}

	// 20 aligned samples, window 5, zero overlap: four windows, and the
	// linear ramps correlate perfectly in every one of them.
	if len(outcome.Result.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(outcome.Result.Rows))
	}
	for i, row := range outcome.Result.Rows {
		v, ok := row.Values[0].Float()
		if !ok {
			t.Fatalf("row %d is not present", i)
		}
		if math.Abs(v-1) > 1e-9 {
			t.Fatalf("row %d correlation = %v, want 1", i, v)
		}
	}
	if got := outcome.Result.Rows[0].Timestamp; math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("first timestamp = %v, want 2.5", got)
	}

	if len(outcome.Quality.Scores) != 3 {
		t.Fatalf("expected 3 quality scores, got %d", len(outcome.Quality.Scores))
	}
	if got := outcome.Quality.ExcludedLabels(); len(got) != 1 || got[0] != "r3" {
		t.Fatalf("expected r3 excluded, got %v", got)
	}
	if !hasWarning(outcome.Warnings, "quality", "excluded 1 of 3") {
		t.Fatalf("missing quality warning, got %v", warningMessages(outcome.Warnings))
	}

	data, err := os.ReadFile(outcome.CSVPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.HasPrefix(string(data), "timestamp_s,alpha\n") {
		t.Fatalf("unexpected csv header: %q", string(data[:min(len(data), 40)]))
	}

	run, err := store.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run == nil || run.Status != runs.StatusCompleted {
		t.Fatalf("expected completed run, got %+v", run)
	}
	if run.Kind != runs.KindISC {
		t.Fatalf("run kind = %s, want isc", run.Kind)
	}
	if run.RowsProduced != 4 || run.ResultPath != outcome.CSVPath {
		t.Fatalf("unexpected run outputs: rows=%d path=%s", run.RowsProduced, run.ResultPath)
	}
	if run.RespondentsTotal != 3 || run.RespondentsExcluded != 1 {
		t.Fatalf("unexpected respondent counts: %d/%d", run.RespondentsTotal, run.RespondentsExcluded)
	}
	if !strings.Contains(run.ParamsJSON, `"window_size":5`) {
		t.Fatalf("params json missing window size: %s", run.ParamsJSON)
	}

	persisted, err := store.Warnings(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("Warnings failed: %v", err)
	}
	if len(persisted) != len(outcome.Warnings) {
		t.Fatalf("persisted %d warnings, outcome has %d", len(persisted), len(outcome.Warnings))
	}

	if len(platform.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(platform.uploads))
	}
	upload := platform.uploads[0]
	if upload.Study != "st-9" || upload.Name != "isc" || upload.Segment != "seg-1" {
		t.Fatalf("unexpected upload envelope: %+v", upload)
	}
	if upload.Metadata["run_id"] != outcome.RunID {
		t.Fatalf("upload run_id = %q, want %q", upload.Metadata["run_id"], outcome.RunID)
	}
	if !outcome.Uploaded {
		t.Fatal("outcome should report the upload")
	}

	if len(notifier.completed) != 1 || len(notifier.failed) != 0 {
		t.Fatalf("unexpected notifications: %+v / %+v", notifier.completed, notifier.failed)
	}
	if notifier.completed[0].rows != 4 || notifier.completed[0].study != "st-9" {
		t.Fatalf("unexpected completion notification: %+v", notifier.completed[0])
	}
}

func TestISCJobDeterministicAcrossRuns(t *testing.T) {
	platform := &fakePlatform{
		resp: []biosignal.Respondent{{ID: "r1"}, {ID: "r2"}},
		series: map[string]biosignal.Series{
			"r1": makeSeries(t, "r1", ramp(20, 1)),
			"r2": makeSeries(t, "r2", ramp(20, 3)),
		},
	}
	job, _, _ := newISCJob(t, platform, &fakeNotifier{})
	req := baseISCRequest()
	req.OverlapPercent = 50

	first, err := job.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := job.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	a, err := os.ReadFile(first.CSVPath)
	if err != nil {
		t.Fatalf("read first csv: %v", err)
	}
	b, err := os.ReadFile(second.CSVPath)
	if err != nil {
		t.Fatalf("read second csv: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("runs diverged:\n%s\nvs\n%s", a, b)
	}
}

func TestISCJobEmptyStudyCompletesWithWarning(t *testing.T) {
	platform := &fakePlatform{}
	notifier := &fakeNotifier{}
	job, store, _ := newISCJob(t, platform, notifier)

	outcome, err := job.Run(context.Background(), baseISCRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !hasWarning(outcome.Warnings, "respondents", "no respondents found") {
		t.Fatalf("missing warning, got %v", warningMessages(outcome.Warnings))
	}
	if platform.fetchCount() != 0 {
		t.Fatalf("expected no fetches, got %d", platform.fetchCount())
	}

	run, err := store.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != runs.StatusCompleted || run.RowsProduced != 0 {
		t.Fatalf("expected completed empty run, got %+v", run)
	}
	if len(notifier.completed) != 1 || notifier.completed[0].rows != 0 {
		t.Fatalf("unexpected notifications: %+v", notifier.completed)
	}
}

func TestISCJobSkipsFailingAndSilentRespondents(t *testing.T) {
	platform := &fakePlatform{
		resp: []biosignal.Respondent{{ID: "r1"}, {ID: "r2"}},
		fetchErr: map[string]error{
			"r1": services.Wrap(services.ErrExternalService, "studydata", "psd", "returned 500", nil),
		},
	}
	job, store, _ := newISCJob(t, platform, &fakeNotifier{})

	outcome, err := job.Run(context.Background(), baseISCRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !hasWarning(outcome.Warnings, "fetch", "r1") {
		t.Fatalf("missing fetch failure warning, got %v", warningMessages(outcome.Warnings))
	}
	if !hasWarning(outcome.Warnings, "fetch", "r2 has no data") {
		t.Fatalf("missing empty-series warning, got %v", warningMessages(outcome.Warnings))
	}
	if !hasWarning(outcome.Warnings, "aggregate", "at least two respondents") {
		t.Fatalf("missing degradation warning, got %v", warningMessages(outcome.Warnings))
	}

	// The degenerate result still completes the run with one all-missing row.
	run, err := store.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != runs.StatusCompleted || run.RowsProduced != 1 {
		t.Fatalf("expected completed degenerate run, got %+v", run)
	}
}

func TestISCJobListFailureMarksRunFailed(t *testing.T) {
	cause := services.Wrap(services.ErrExternalService, "studydata", "respondents", "returned 503", nil)
	platform := &fakePlatform{listErr: cause}
	notifier := &fakeNotifier{}
	job, store, _ := newISCJob(t, platform, notifier)

	outcome, err := job.Run(context.Background(), baseISCRequest())
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if outcome.RunID == "" {
		t.Fatal("expected run ID on the failed outcome")
	}

	run, getErr := store.Get(context.Background(), outcome.RunID)
	if getErr != nil {
		t.Fatalf("Get failed: %v", getErr)
	}
	if run.Status != runs.StatusFailed {
		t.Fatalf("expected failed run, got %s", run.Status)
	}
	if strings.Contains(run.ErrorMessage, services.ErrExternalService.Error()) {
		t.Fatalf("marker should be stripped from persisted message: %q", run.ErrorMessage)
	}
	if !strings.Contains(run.ErrorMessage, "returned 503") {
		t.Fatalf("persisted message lost the detail: %q", run.ErrorMessage)
	}
	if len(notifier.failed) != 1 || notifier.failed[0].study != "st-9" {
		t.Fatalf("unexpected failure notifications: %+v", notifier.failed)
	}
}

func TestISCJobValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*pipeline.ISCRequest)
	}{
		{"empty study", func(r *pipeline.ISCRequest) { r.Study = "  " }},
		{"zero window", func(r *pipeline.ISCRequest) { r.WindowSize = 0 }},
		{"no bands", func(r *pipeline.ISCRequest) { r.Bands = []string{" ", ""} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			job, store, _ := newISCJob(t, &fakePlatform{}, notifier)
			req := baseISCRequest()
			tc.mutate(&req)

			if _, err := job.Run(context.Background(), req); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}

			history, err := store.List(context.Background(), 0)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(history) != 0 {
				t.Fatalf("no run should be recorded, got %d", len(history))
			}
			if len(notifier.failed) != 0 {
				t.Fatalf("no notification expected, got %+v", notifier.failed)
			}
		})
	}
}

func TestISCJobRefusesConcurrentRun(t *testing.T) {
	job, store, cfg := newISCJob(t, &fakePlatform{}, &fakeNotifier{})

	if err := os.MkdirAll(cfg.Paths.WorkspaceDir, 0o755); err != nil {
		t.Fatal(err)
	}
	holder := flock.New(cfg.LockPath())
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock failed: locked=%v err=%v", locked, err)
	}
	defer holder.Unlock()

	_, err = job.Run(context.Background(), baseISCRequest())
	if err == nil || !strings.Contains(err.Error(), "already in progress") {
		t.Fatalf("expected lock contention error, got %v", err)
	}

	history, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("no run should be recorded, got %d", len(history))
	}
}

func TestISCJobUploadFailureIsWarning(t *testing.T) {
	platform := &fakePlatform{
		resp: []biosignal.Respondent{{ID: "r1"}, {ID: "r2"}},
		series: map[string]biosignal.Series{
			"r1": makeSeries(t, "r1", ramp(20, 1)),
			"r2": makeSeries(t, "r2", ramp(20, 2)),
		},
		uploadErr: services.Wrap(services.ErrExternalService, "studydata", "metrics", "returned 502", nil),
	}
	job, store, _ := newISCJob(t, platform, &fakeNotifier{})

	outcome, err := job.Run(context.Background(), baseISCRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Uploaded {
		t.Fatal("upload should have failed")
	}
	if !hasWarning(outcome.Warnings, "upload", "metric upload failed") {
		t.Fatalf("missing upload warning, got %v", warningMessages(outcome.Warnings))
	}

	run, err := store.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != runs.StatusCompleted {
		t.Fatalf("upload trouble must not fail the run, got %s", run.Status)
	}
}

func TestISCJobUploadDisabled(t *testing.T) {
	platform := &fakePlatform{
		resp: []biosignal.Respondent{{ID: "r1"}, {ID: "r2"}},
		series: map[string]biosignal.Series{
			"r1": makeSeries(t, "r1", ramp(20, 1)),
			"r2": makeSeries(t, "r2", ramp(20, 2)),
		},
	}
	job, _, _ := newISCJob(t, platform, &fakeNotifier{})
	req := baseISCRequest()
	req.Upload = false

	outcome, err := job.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Uploaded || len(platform.uploads) != 0 {
		t.Fatalf("expected no upload, got %d", len(platform.uploads))
	}
	if hasWarning(outcome.Warnings, "upload", "") {
		t.Fatalf("a disabled upload is not a warning: %v", warningMessages(outcome.Warnings))
	}
}

func TestISCJobWritesEDFWhenRequested(t *testing.T) {
	t.Run("alongside csv", func(t *testing.T) {
		platform := &fakePlatform{
			resp: []biosignal.Respondent{{ID: "r1"}, {ID: "r2"}},
			series: map[string]biosignal.Series{
				"r1": makeSeries(t, "r1", ramp(20, 1)),
				"r2": makeSeries(t, "r2", ramp(20, 2)),
			},
		}
		job, _, _ := newISCJob(t, platform, &fakeNotifier{})
		req := baseISCRequest()
		req.WriteEDF = true

		outcome, err := job.Run(context.Background(), req)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if outcome.EDFPath == "" {
			t.Fatal("expected an EDF path")
		}
		if !strings.HasSuffix(outcome.EDFPath, ".edf") {
			t.Fatalf("unexpected EDF path: %s", outcome.EDFPath)
		}
		info, err := os.Stat(outcome.EDFPath)
		if err != nil || info.Size() == 0 {
			t.Fatalf("expected EDF archive on disk: %v", err)
		}
	})

	t.Run("degenerate result downgrades to warning", func(t *testing.T) {
		platform := &fakePlatform{
			resp: []biosignal.Respondent{{ID: "r1"}},
			series: map[string]biosignal.Series{
				"r1": makeSeries(t, "r1", ramp(20, 1)),
			},
		}
		job, store, _ := newISCJob(t, platform, &fakeNotifier{})
		req := baseISCRequest()
		req.WriteEDF = true

		outcome, err := job.Run(context.Background(), req)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if outcome.EDFPath != "" {
			t.Fatalf("degenerate result cannot be archived, got %s", outcome.EDFPath)
		}
		if !hasWarning(outcome.Warnings, "export", "edf archive skipped") {
			t.Fatalf("missing export warning, got %v", warningMessages(outcome.Warnings))
		}

		run, err := store.Get(context.Background(), outcome.RunID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if run.Status != runs.StatusCompleted {
			t.Fatalf("expected completed run, got %s", run.Status)
		}
	})
}

func TestISCJobWritesToOutputOverride(t *testing.T) {
	platform := &fakePlatform{
		resp: []biosignal.Respondent{{ID: "r1"}, {ID: "r2"}},
		series: map[string]biosignal.Series{
			"r1": makeSeries(t, "r1", ramp(20, 1)),
			"r2": makeSeries(t, "r2", ramp(20, 2)),
		},
	}
	job, _, cfg := newISCJob(t, platform, &fakeNotifier{})
	req := baseISCRequest()
	req.OutputPath = filepath.Join(testsupport.BaseDir(cfg), "custom", "result.csv")

	outcome, err := job.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.CSVPath != req.OutputPath {
		t.Fatalf("csv path = %s, want %s", outcome.CSVPath, req.OutputPath)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		t.Fatalf("expected csv at override path: %v", err)
	}
}
