package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entrain/internal/biosignal"
	"entrain/internal/config"
	"entrain/internal/export"
	"entrain/internal/fetch"
	"entrain/internal/isc"
	"entrain/internal/logging"
	"entrain/internal/notifications"
	"entrain/internal/quality"
	"entrain/internal/runs"
	"entrain/internal/services"
	"entrain/internal/services/studydata"
)

// ISCRequest carries the parameters of one correlation run. The CLI builds
// it from configuration defaults and flag overrides.
type ISCRequest struct {
	Study            string
	Stimulus         string
	Segment          string
	WindowSize       int
	OverlapPercent   float64
	QualityThreshold float64
	Bands            []string
	Parallelism      int
	Upload           bool
	WriteEDF         bool
	OutputPath       string
}

// ISCOutcome reports what one correlation run produced.
type ISCOutcome struct {
	RunID    string
	Params   isc.Params
	Quality  quality.Report
	Result   isc.Result
	CSVPath  string
	EDFPath  string
	Uploaded bool
	Warnings []Warning
	Elapsed  time.Duration
}

// ISCJob executes correlation runs against a fixed set of collaborators.
type ISCJob struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *runs.Store
	platform Platform
	notifier notifications.Service
}

// NewISCJob constructs a correlation job.
func NewISCJob(cfg *config.Config, store *runs.Store, platform Platform, notifier notifications.Service, logger *slog.Logger) *ISCJob {
	return &ISCJob{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		store:    store,
		platform: platform,
		notifier: notifier,
	}
}

// Run executes one correlation run end to end. The returned outcome is
// meaningful even on error: it carries the run ID and any warnings gathered
// before the failure.
func (j *ISCJob) Run(ctx context.Context, req ISCRequest) (ISCOutcome, error) {
	started := time.Now()
	var outcome ISCOutcome

	study := strings.TrimSpace(req.Study)
	if study == "" {
		return outcome, services.Wrap(services.ErrValidation, "run", "validate", "study is required", nil)
	}
	params, clamps, err := isc.NewParams(req.WindowSize, req.OverlapPercent, req.QualityThreshold)
	if err != nil {
		return outcome, err
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
		Kind:       runs.KindISC,
		Study:      study,
		Stimulus:   strings.TrimSpace(req.Stimulus),
		Segment:    strings.TrimSpace(req.Segment),
		ParamsJSON: iscParamsJSON(params, bands),
	}
	if err := j.store.Create(ctx, run); err != nil {
		return outcome, fmt.Errorf("record run: %w", err)
	}
	outcome.RunID = run.ID
	outcome.Params = params

	ctx = services.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, j.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String(logging.FieldStudy, study),
		logging.Int("window_size", params.WindowSize),
		logging.Float64("overlap_percent", params.OverlapPercent),
		logging.Float64("quality_threshold", params.QualityThreshold),
		logging.Int("band_count", len(bands)))

	warnings := newCollector(logger)
	warnings.addAll("parameters", clamps)

	abort := func(cause error) (ISCOutcome, error) {
		outcome.Warnings = warnings.list()
		outcome.Elapsed = time.Since(started)
		return outcome, finishFailed(ctx, logger, j.store, j.notifier, run.ID, study, warnings, cause)
	}

	respondents, err := j.listRespondents(ctx, study, req)
	if err != nil {
		return abort(err)
	}
	if len(respondents) == 0 {
		warnings.add("respondents", fmt.Sprintf("no respondents found for study %s, nothing to analyze", study))
		outcome.Warnings = warnings.list()
		outcome.Elapsed = time.Since(started)
		return outcome, finishCompleted(ctx, logger, j.store, j.notifier, run.ID, study, warnings, 0, "", outcome.Elapsed)
	}

	series := j.fetchSeries(ctx, study, req, respondents, bands, warnings)

	report := j.assessQuality(ctx, run.ID, series, params, len(respondents), warnings)
	outcome.Quality = report

	result := j.aggregate(ctx, report.Survivors(), params, warnings)
	outcome.Result = result

	csvPath, edfPath, err := j.export(ctx, run.ID, result, req, warnings)
	if err != nil {
		return abort(err)
	}
	outcome.CSVPath = csvPath
	outcome.EDFPath = edfPath

	outcome.Uploaded = j.upload(ctx, run, result, params, req, warnings)

	outcome.Warnings = warnings.list()
	outcome.Elapsed = time.Since(started)
	return outcome, finishCompleted(ctx, logger, j.store, j.notifier, run.ID, study, warnings, len(result.Rows), csvPath, outcome.Elapsed)
}

func (j *ISCJob) listRespondents(ctx context.Context, study string, req ISCRequest) ([]biosignal.Respondent, error) {
	stageCtx, logger, begun := stageStart(ctx, j.logger, "respondents")
	respondents, err := j.platform.ListRespondents(stageCtx, study, strings.TrimSpace(req.Stimulus), strings.TrimSpace(req.Segment))
	if err != nil {
		return nil, err
	}
	stageComplete(logger, begun, logging.Int("respondent_count", len(respondents)))
	return respondents, nil
}

func (j *ISCJob) fetchSeries(ctx context.Context, study string, req ISCRequest, respondents []biosignal.Respondent, bands []biosignal.Band, warnings *collector) []biosignal.Series {
	stageCtx, logger, begun := stageStart(ctx, j.logger, "fetch")
	tasks := buildTasks(study, strings.TrimSpace(req.Stimulus), strings.TrimSpace(req.Segment), respondents, bands)
	results := fetch.All(stageCtx, j.platform, tasks, req.Parallelism, logger)
	series := collectSeries(results, warnings)
	stageComplete(logger, begun,
		logging.Int("task_count", len(tasks)),
		logging.Int("series_count", len(series)))
	return series
}

func (j *ISCJob) assessQuality(ctx context.Context, runID string, series []biosignal.Series, params isc.Params, listed int, warnings *collector) quality.Report {
	stageCtx, logger, begun := stageStart(ctx, j.logger, "quality")
	report, qualityWarnings := quality.Assess(series, params.QualityThreshold)
	warnings.addAll("quality", qualityWarnings)

	survivors := len(report.Survivors())
	if err := j.store.SetRespondentCounts(stageCtx, runID, listed, listed-survivors); err != nil {
		logger.Error("failed to persist respondent counts", logging.Error(err))
	}
	stageComplete(logger, begun,
		logging.Int("respondents_assessed", len(report.Scores)),
		logging.Int("respondents_kept", survivors))
	return report
}

func (j *ISCJob) aggregate(ctx context.Context, survivors []biosignal.Series, params isc.Params, warnings *collector) isc.Result {
	_, logger, begun := stageStart(ctx, j.logger, "aggregate")
	result, aggregateWarnings := isc.Aggregate(survivors, params, logger)
	warnings.addAll("aggregate", aggregateWarnings)
	stageComplete(logger, begun,
		logging.Int("row_count", len(result.Rows)),
		logging.Int("band_count", len(result.Bands)))
	return result
}

// export writes the CSV artifact and, when requested, an EDF archive next
// to it. A degenerate result cannot be archived as EDF; that downgrade is a
// warning, while disk trouble stays fatal.
func (j *ISCJob) export(ctx context.Context, runID string, result isc.Result, req ISCRequest, warnings *collector) (csvPath, edfPath string, err error) {
	_, logger, begun := stageStart(ctx, j.logger, "export")

	if override := strings.TrimSpace(req.OutputPath); override != "" {
		csvPath = override
		err = export.ISCFileAt(csvPath, result)
	} else {
		csvPath, err = export.ISCFile(j.cfg.Paths.ExportDir, runID, result)
	}
	if err != nil {
		return "", "", err
	}

	if req.WriteEDF {
		candidate := siblingPath(csvPath, ".edf")
		if err := export.WriteEDF(candidate, result, rowInterval(result)); err != nil {
			if !errors.Is(err, services.ErrValidation) {
				return "", "", err
			}
			warnings.add("export", fmt.Sprintf("edf archive skipped: %s", services.Details(err).Message))
		} else {
			edfPath = candidate
		}
	}

	stageComplete(logger, begun,
		logging.String("csv_path", csvPath),
		logging.String("edf_path", edfPath))
	return csvPath, edfPath, nil
}

// upload pushes the aggregated metric back to the platform. Upload trouble
// never fails a run that already produced its artifacts.
func (j *ISCJob) upload(ctx context.Context, run *runs.Run, result isc.Result, params isc.Params, req ISCRequest, warnings *collector) bool {
	if !req.Upload {
		logging.WithContext(ctx, j.logger).Info("metric upload disabled, skipping",
			logging.String(logging.FieldEventType, "upload_skipped"))
		return false
	}

	stageCtx, logger, begun := stageStart(ctx, j.logger, "upload")
	metadata := map[string]string{"run_id": run.ID}
	if run.Stimulus != "" {
		metadata["stimulus"] = run.Stimulus
	}
	payload := studydata.NewMetricUpload(run.Study, "isc", run.Segment, params, result, metadata)
	if err := j.platform.UploadResult(stageCtx, payload); err != nil {
		warnings.add("upload", fmt.Sprintf("metric upload failed: %s", services.Details(err).Message))
		return false
	}
	stageComplete(logger, begun, logging.Int("row_count", len(result.Rows)))
	return true
}

func iscParamsJSON(p isc.Params, bands []biosignal.Band) string {
	blob, err := json.Marshal(struct {
		WindowSize       int      `json:"window_size"`
		OverlapPercent   float64  `json:"overlap_percent"`
		QualityThreshold float64  `json:"quality_threshold"`
		Bands            []string `json:"bands"`
	}{p.WindowSize, p.OverlapPercent, p.QualityThreshold, bandLabels(bands)})
	if err != nil {
		return ""
	}
	return string(blob)
}
