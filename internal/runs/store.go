package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the runs database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("runs database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Create inserts a new run in the running state. An empty ID is assigned.
func (s *Store) Create(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	run.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, kind, study, stimulus, segment, params_json, status,
            respondents_total, respondents_excluded, rows_produced, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Kind),
		run.Study,
		nullableString(run.Stimulus),
		nullableString(run.Segment),
		nullableString(run.ParamsJSON),
		string(run.Status),
		run.RespondentsTotal,
		run.RespondentsExcluded,
		run.RowsProduced,
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// SetRespondentCounts records how many respondents a run saw and excluded.
func (s *Store) SetRespondentCounts(ctx context.Context, id string, total, excluded int) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET respondents_total = ?, respondents_excluded = ? WHERE id = ?`,
		total,
		excluded,
		id,
	)
	if err != nil {
		return fmt.Errorf("set respondent counts: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a run once its outputs are in place.
func (s *Store) MarkCompleted(ctx context.Context, id string, rowsProduced int, resultPath string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
         SET status = ?, rows_produced = ?, result_path = ?, error_message = NULL, finished_at = ?
         WHERE id = ?`,
		string(StatusCompleted),
		rowsProduced,
		nullableString(resultPath),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}
	return nil
}

// MarkFailed finalizes a run with its terminal error.
func (s *Store) MarkFailed(ctx context.Context, id string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(StatusFailed),
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}
	return nil
}

// AddWarnings appends advisories to a run in the order given.
func (s *Store) AddWarnings(ctx context.Context, runID string, warnings []Warning) error {
	if len(warnings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin warnings tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, warning := range warnings {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO run_warnings (run_id, stage, message, created_at) VALUES (?, ?, ?, ?)`,
			runID,
			warning.Stage,
			warning.Message,
			timestamp,
		); err != nil {
			return fmt.Errorf("insert warning: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit warnings: %w", err)
	}
	return nil
}

// Get fetches a run by identifier, returning nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns runs newest first, up to limit when limit is positive.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	// rowid preserves exact insertion order; RFC3339Nano strings trim
	// trailing zeros and do not always sort chronologically.
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var items []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, run)
	}
	return items, rows.Err()
}

// Warnings returns the advisories recorded for a run in insertion order.
func (s *Store) Warnings(ctx context.Context, runID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, stage, message FROM run_warnings WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run warnings: %w", err)
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		var warning Warning
		if err := rows.Scan(&warning.RunID, &warning.Stage, &warning.Message); err != nil {
			return nil, err
		}
		warnings = append(warnings, warning)
	}
	return warnings, rows.Err()
}

// Health aggregates run counts for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()

	health := HealthSummary{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		health.Total += count
		switch status {
		case StatusRunning:
			health.Running += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, rows.Err()
}

const runColumns = "id, kind, study, stimulus, segment, params_json, status, error_message, respondents_total, respondents_excluded, rows_produced, result_path, created_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		kind        string
		study       string
		stimulus    sql.NullString
		segment     sql.NullString
		paramsJSON  sql.NullString
		statusStr   string
		errMessage  sql.NullString
		total       int
		excluded    int
		rowCount    int
		resultPath  sql.NullString
		createdRaw  sql.NullString
		finishedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&study,
		&stimulus,
		&segment,
		&paramsJSON,
		&statusStr,
		&errMessage,
		&total,
		&excluded,
		&rowCount,
		&resultPath,
		&createdRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:                  id,
		Kind:                Kind(kind),
		Study:               study,
		Stimulus:            stimulus.String,
		Segment:             segment.String,
		ParamsJSON:          paramsJSON.String,
		Status:              Status(statusStr),
		ErrorMessage:        errMessage.String,
		RespondentsTotal:    total,
		RespondentsExcluded: excluded,
		RowsProduced:        rowCount,
		ResultPath:          resultPath.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
