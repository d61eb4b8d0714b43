package preflight

import (
	"context"

	"entrain/internal/config"
	"entrain/internal/runs"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Pinger reports study platform reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Run executes every preflight check for the given config.
func Run(ctx context.Context, cfg *config.Config, client Pinger, store *runs.Store) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir),
		CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckStudyAPI(ctx, cfg.Study.APIKey, client),
		CheckRunsDatabase(ctx, store),
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
