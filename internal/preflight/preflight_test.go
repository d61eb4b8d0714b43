package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"entrain/internal/config"
	"entrain/internal/runs"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_CreatesMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workspace", "nested")
	result := CheckDirectoryAccess("test", path)
	if !result.Passed {
		t.Fatalf("expected missing dir to be created, got: %s", result.Detail)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s, err=%v", path, err)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_NotConfigured(t *testing.T) {
	result := CheckDirectoryAccess("test", "")
	if result.Passed {
		t.Fatal("expected failure for empty path")
	}
	if result.Detail != "not configured" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckStudyAPI_OK(t *testing.T) {
	result := CheckStudyAPI(context.Background(), "key-123", pingFunc(func(context.Context) error {
		return nil
	}))
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckStudyAPI_Unreachable(t *testing.T) {
	result := CheckStudyAPI(context.Background(), "key-123", pingFunc(func(context.Context) error {
		return errors.New("connection refused")
	}))
	if result.Passed {
		t.Fatal("expected failure for unreachable API")
	}
	if result.Detail != "connection refused" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckStudyAPI_MissingKey(t *testing.T) {
	result := CheckStudyAPI(context.Background(), "", pingFunc(func(context.Context) error {
		t.Error("ping should not run without a key")
		return nil
	}))
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckRunsDatabase(t *testing.T) {
	store, err := runs.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	result := CheckRunsDatabase(context.Background(), store)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	if result := CheckRunsDatabase(context.Background(), nil); result.Passed {
		t.Fatal("expected failure for missing store")
	}
}

func TestRun_NilConfig(t *testing.T) {
	results := Run(context.Background(), nil, nil, nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRun_AllChecks(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = t.TempDir()
	cfg.Paths.ExportDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Study.APIKey = "key-123"

	store, err := runs.Open(filepath.Join(cfg.Paths.WorkspaceDir, "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	results := Run(context.Background(), &cfg, pingFunc(func(context.Context) error { return nil }), store)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, result := range results {
		if !result.Passed {
			t.Errorf("check %q failed: %s", result.Name, result.Detail)
		}
	}
	if !Passed(results) {
		t.Fatal("Passed should report true when every check passes")
	}

	results[2].Passed = false
	if Passed(results) {
		t.Fatal("Passed should report false when any check fails")
	}
}
