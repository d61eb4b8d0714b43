package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"entrain/internal/runs"
)

// CheckDirectoryAccess verifies that the directory exists (creating it
// when absent) and is writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}

	created := false
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
		}
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create: %v)", path, mkErr)}
		}
		created = true
	default:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}

	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}

	detail := fmt.Sprintf("%s (write ok)", path)
	if created {
		detail = fmt.Sprintf("%s (created, write ok)", path)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckStudyAPI verifies that the study platform is reachable and the
// key is valid. It uses a 5-second timeout and a single attempt.
func CheckStudyAPI(ctx context.Context, apiKey string, client Pinger) Result {
	const name = "Study API"

	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	if client == nil {
		return Result{Name: name, Detail: "client unavailable"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizePingError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckRunsDatabase verifies the run history database opens and answers
// a trivial query.
func CheckRunsDatabase(ctx context.Context, store *runs.Store) Result {
	const name = "Runs database"

	if store == nil {
		return Result{Name: name, Detail: "not opened"}
	}

	health, err := store.Health(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("query failed: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d runs recorded)", store.Path(), health.Total)}
}

func summarizePingError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (study API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (study API unreachable)"
	}
	return err.Error()
}
