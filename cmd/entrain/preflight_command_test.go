package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPreflightCommandPasses(t *testing.T) {
	server := newStudyServer(t)
	base := t.TempDir()
	configPath := writeTestConfig(t, base, server.URL, "st-9")

	stdout, _, err := runCLI(t, configPath, "preflight")
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	for _, want := range []string{"Workspace directory", "Export directory", "Log directory", "Study API", "Runs database", "API reachable"} {
		requireContains(t, stdout, want)
	}
	if strings.Contains(stdout, "fail") {
		t.Errorf("no check should fail:\n%s", stdout)
	}
}

func TestPreflightCommandReportsBrokenConfig(t *testing.T) {
	t.Setenv("ENTRAIN_STUDY_API_KEY", "")

	server := newStudyServer(t)
	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[study]
base_url = %q
api_key = ""

[paths]
workspace_dir = %q
export_dir = %q
log_dir = %q
`,
		server.URL,
		filepath.Join(base, "workspace"),
		filepath.Join(base, "exports"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	stdout, _, err := runCLI(t, configPath, "preflight")
	if err == nil || !strings.Contains(err.Error(), "preflight checks failed") {
		t.Fatalf("error = %v, want preflight failure", err)
	}
	requireContains(t, stdout, "Configuration")
	requireContains(t, stdout, "api_key")
	requireContains(t, stdout, "fail")
}

func TestPreflightCommandReportsUnreachableAPI(t *testing.T) {
	server := newStudyServer(t)
	base := t.TempDir()
	configPath := writeTestConfig(t, base, server.URL, "st-9")
	server.Close()

	stdout, _, err := runCLI(t, configPath, "preflight")
	if err == nil || !strings.Contains(err.Error(), "preflight checks failed") {
		t.Fatalf("error = %v, want preflight failure", err)
	}
	requireContains(t, stdout, "Study API")
	requireContains(t, stdout, "fail")
}
