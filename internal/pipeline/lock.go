package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// acquireRunLock takes the exclusive run lock without blocking. Concurrent
// invocations must not interleave writes to the run history or the export
// directory, so the loser reports immediately instead of queueing.
func acquireRunLock(path string) (func(), error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another entrain run is already in progress")
	}
	return func() { _ = lock.Unlock() }, nil
}
