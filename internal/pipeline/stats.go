package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entrain/internal/biosignal"
	"entrain/internal/config"
	"entrain/internal/descriptive"
	"entrain/internal/export"
	"entrain/internal/fetch"
	"entrain/internal/logging"
	"entrain/internal/notifications"
	"entrain/internal/runs"
	"entrain/internal/services"
)

// StatsRequest carries the parameters of one descriptive-statistics run.
type StatsRequest struct {
	Study       string
	Stimulus    string
	Segment     string
	Statistics  []string
	Bands       []string
	Parallelism int
	OutputPath  string
}

// StatsOutcome reports what one statistics run produced.
type StatsOutcome struct {
	RunID    string
	Table    descriptive.Table
	CSVPath  string
	Warnings []Warning
	Elapsed  time.Duration
}

// StatsJob executes descriptive-statistics runs. It shares the correlation
// job's skeleton without the quality, aggregation, and upload stages.
type StatsJob struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *runs.Store
	platform Platform
	notifier notifications.Service
}

// NewStatsJob constructs a statistics job.
func NewStatsJob(cfg *config.Config, store *runs.Store, platform Platform, notifier notifications.Service, logger *slog.Logger) *StatsJob {
	return &StatsJob{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		store:    store,
		platform: platform,
		notifier: notifier,
	}
}

// Run executes one statistics run: list, fetch, summarize, export, record.
func (j *StatsJob) Run(ctx context.Context, req StatsRequest) (StatsOutcome, error) {
	started := time.Now()
	var outcome StatsOutcome

	study := strings.TrimSpace(req.Study)
	if study == "" {
		return outcome, services.Wrap(services.ErrValidation, "run", "validate", "study is required", nil)
	}
	stats, err := descriptive.ParseStatistics(req.Statistics)
	if err != nil {
		return outcome, err
	}
	if len(stats) == 0 {
		return outcome, services.Wrap(services.ErrValidation, "run", "validate", "at least one statistic is required", nil)
	}
	bands := requestBands(req.Bands)
	if len(bands) == 0 {
		return outcome, services.Wrap(services.ErrValidation, "run", "validate", "at least one frequency band is required", nil)
	}

	release, err := acquireRunLock(j.cfg.LockPath())
	if err != nil {
		return outcome, err
	}
	defer release()

	run := &runs.Run{
		Kind:       runs.KindStats,
		Study:      study,
		Stimulus:   strings.TrimSpace(req.Stimulus),
		Segment:    strings.TrimSpace(req.Segment),
		ParamsJSON: statsParamsJSON(stats, bands),
	}
	if err := j.store.Create(ctx, run); err != nil {
		return outcome, fmt.Errorf("record run: %w", err)
	}
	outcome.RunID = run.ID

	ctx = services.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, j.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String(logging.FieldStudy, study),
		logging.Int("statistic_count", len(stats)),
		logging.Int("band_count", len(bands)))

	warnings := newCollector(logger)

	abort := func(cause error) (StatsOutcome, error) {
		outcome.Warnings = warnings.list()
		outcome.Elapsed = time.Since(started)
		return outcome, finishFailed(ctx, logger, j.store, j.notifier, run.ID, study, warnings, cause)
	}

	stageCtx, stageLogger, begun := stageStart(ctx, j.logger, "respondents")
	respondents, err := j.platform.ListRespondents(stageCtx, study, run.Stimulus, run.Segment)
	if err != nil {
		return abort(err)
	}
	stageComplete(stageLogger, begun, logging.Int("respondent_count", len(respondents)))

	if len(respondents) == 0 {
		warnings.add("respondents", fmt.Sprintf("no respondents found for study %s, nothing to analyze", study))
		outcome.Warnings = warnings.list()
		outcome.Elapsed = time.Since(started)
		return outcome, finishCompleted(ctx, logger, j.store, j.notifier, run.ID, study, warnings, 0, "", outcome.Elapsed)
	}

	stageCtx, stageLogger, begun = stageStart(ctx, j.logger, "fetch")
	tasks := buildTasks(study, run.Stimulus, run.Segment, respondents, bands)
	results := fetch.All(stageCtx, j.platform, tasks, req.Parallelism, stageLogger)
	series := collectSeries(results, warnings)
	stageComplete(stageLogger, begun,
		logging.Int("task_count", len(tasks)),
		logging.Int("series_count", len(series)))

	if err := j.store.SetRespondentCounts(ctx, run.ID, len(respondents), len(respondents)-len(series)); err != nil {
		logger.Error("failed to persist respondent counts", logging.Error(err))
	}

	_, stageLogger, begun = stageStart(ctx, j.logger, "summarize")
	table, summaryWarnings := descriptive.Summarize(series, stats)
	warnings.addAll("summarize", summaryWarnings)
	outcome.Table = table
	stageComplete(stageLogger, begun, logging.Int("row_count", len(table.Rows)))

	_, stageLogger, begun = stageStart(ctx, j.logger, "export")
	var csvPath string
	if override := strings.TrimSpace(req.OutputPath); override != "" {
		csvPath = override
		err = export.StatsFileAt(csvPath, table)
	} else {
		csvPath, err = export.StatsFile(j.cfg.Paths.ExportDir, run.ID, table)
	}
	if err != nil {
		return abort(err)
	}
	outcome.CSVPath = csvPath
	stageComplete(stageLogger, begun, logging.String("csv_path", csvPath))

	outcome.Warnings = warnings.list()
	outcome.Elapsed = time.Since(started)
	return outcome, finishCompleted(ctx, logger, j.store, j.notifier, run.ID, study, warnings, len(table.Rows), csvPath, outcome.Elapsed)
}

func statsParamsJSON(stats []descriptive.Statistic, bands []biosignal.Band) string {
	names := make([]string, len(stats))
	for i, s := range stats {
		names[i] = s.Name()
	}
	blob, err := json.Marshal(struct {
		Statistics []string `json:"statistics"`
		Bands      []string `json:"bands"`
	}{names, bandLabels(bands)})
	if err != nil {
		return ""
	}
	return string(blob)
}
