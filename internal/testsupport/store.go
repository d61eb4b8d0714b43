package testsupport

import (
	"testing"

	"entrain/internal/config"
	"entrain/internal/runs"
)

// MustOpenStore opens the run history store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runs.Store {
	t.Helper()

	store, err := runs.Open(cfg.RunsDatabasePath())
	if err != nil {
		t.Fatalf("runs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
