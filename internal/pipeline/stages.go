package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"entrain/internal/biosignal"
	"entrain/internal/fetch"
	"entrain/internal/isc"
	"entrain/internal/logging"
	"entrain/internal/notifications"
	"entrain/internal/runs"
	"entrain/internal/services"
)

// stageStart enters a named stage. The returned context carries the stage
// name for downstream error wrapping and the logger tags every line with it.
func stageStart(ctx context.Context, base *slog.Logger, name string) (context.Context, *slog.Logger, time.Time) {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, base)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	return stageCtx, logger, time.Now()
}

func stageComplete(logger *slog.Logger, started time.Time, attrs ...logging.Attr) {
	attrs = append(attrs,
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(started)))
	logger.Info("stage completed", logging.Args(attrs...)...)
}

// requestBands canonicalizes the requested band labels: trimmed, lowercased,
// deduplicated, sorted.
func requestBands(raw []string) []biosignal.Band {
	seen := make(map[biosignal.Band]struct{}, len(raw))
	bands := make([]biosignal.Band, 0, len(raw))
	for _, label := range raw {
		band := biosignal.Band(strings.ToLower(strings.TrimSpace(label)))
		if band == "" {
			continue
		}
		if _, ok := seen[band]; ok {
			continue
		}
		seen[band] = struct{}{}
		bands = append(bands, band)
	}
	return biosignal.SortBands(bands)
}

func bandLabels(bands []biosignal.Band) []string {
	labels := make([]string, len(bands))
	for i, band := range bands {
		labels[i] = string(band)
	}
	return labels
}

// buildTasks prepares one fetch task per respondent. Respondent order is
// preserved; the pool reports results in the same order.
func buildTasks(study, stimulus, segment string, respondents []biosignal.Respondent, bands []biosignal.Band) []fetch.Task {
	tasks := make([]fetch.Task, len(respondents))
	for i, respondent := range respondents {
		tasks[i] = fetch.Task{
			Study:      study,
			Stimulus:   stimulus,
			Segment:    segment,
			Respondent: respondent,
			Bands:      bands,
		}
	}
	return tasks
}

// collectSeries splits fetch results into usable series and warnings. A
// failed or empty retrieval skips the respondent; the run continues with
// whoever answered.
func collectSeries(results []fetch.Result, warnings *collector) []biosignal.Series {
	series := make([]biosignal.Series, 0, len(results))
	for _, result := range results {
		label := respondentLabel(result.Task.Respondent)
		if result.Err != nil {
			warnings.add("fetch", fmt.Sprintf("respondent %s: %s", label, services.Details(result.Err).Message))
			continue
		}
		if result.Series.Empty() {
			warnings.add("fetch", fmt.Sprintf("respondent %s has no data, skipped", label))
			continue
		}
		series = append(series, result.Series)
	}
	return series
}

// rowInterval recovers the spacing between consecutive output rows. Windows
// advance by a fixed step, so any adjacent pair carries it; a single-row
// result has no spacing to recover and defaults to one second.
func rowInterval(res isc.Result) float64 {
	if len(res.Rows) >= 2 {
		if d := res.Rows[1].Timestamp - res.Rows[0].Timestamp; d > 0 {
			return d
		}
	}
	return 1
}

func respondentLabel(r biosignal.Respondent) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// siblingPath swaps the extension of an artifact path, keeping directory
// and stem.
func siblingPath(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// failureMessage extracts the persistable remainder of a run-fatal error.
func failureMessage(cause error) string {
	if cause == nil {
		return "run failed"
	}
	if detail := strings.TrimSpace(services.Details(cause).Message); detail != "" {
		return detail
	}
	return strings.TrimSpace(cause.Error())
}

// finishCompleted persists the warnings and terminal state of a successful
// run and notifies. Notification trouble is logged, never propagated.
func finishCompleted(ctx context.Context, logger *slog.Logger, store *runs.Store, notifier notifications.Service, runID, study string, warnings *collector, rows int, resultPath string, elapsed time.Duration) error {
	if err := store.AddWarnings(ctx, runID, warnings.recorded()); err != nil {
		logger.Error("failed to persist run warnings", logging.Error(err))
	}
	if err := store.MarkCompleted(ctx, runID, rows, resultPath); err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("rows_produced", rows),
		logging.Int("warning_count", len(warnings.list())),
		logging.Duration("run_duration", elapsed))
	if notifier != nil {
		if err := notifier.NotifyRunCompleted(ctx, study, rows, len(warnings.list()), elapsed); err != nil {
			logger.Debug("run completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// finishFailed persists the warnings and failure state of a run, notifies,
// and hands the causal error back for the caller to return.
func finishFailed(ctx context.Context, logger *slog.Logger, store *runs.Store, notifier notifications.Service, runID, study string, warnings *collector, cause error) error {
	if err := store.AddWarnings(ctx, runID, warnings.recorded()); err != nil {
		logger.Error("failed to persist run warnings", logging.Error(err))
	}
	if err := store.MarkFailed(ctx, runID, errors.New(failureMessage(cause))); err != nil {
		logger.Error("failed to persist run failure", logging.Error(err))
	}
	logging.ErrorWithContext(logger, "run failed", "run_failure", logging.Error(cause))
	if notifier != nil {
		if err := notifier.NotifyRunFailed(ctx, study, cause); err != nil {
			logger.Debug("run failure notification failed", logging.Error(err))
		}
	}
	return cause
}
