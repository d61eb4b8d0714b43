package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type wireSample struct {
	T     float64  `json:"t"`
	Value *float64 `json:"value"`
}

type wireChannel struct {
	Channel string       `json:"channel"`
	Samples []wireSample `json:"samples"`
}

type wireBand struct {
	Band     string        `json:"band"`
	Channels []wireChannel `json:"channels"`
}

type wireRespondent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Device string `json:"device"`
}

// studyServer fakes the study-data platform for end-to-end CLI tests.
type studyServer struct {
	*httptest.Server

	mu      sync.Mutex
	roster  []wireRespondent
	series  map[string][]wireBand
	uploads int
}

func newStudyServer(t *testing.T) *studyServer {
	t.Helper()
	s := &studyServer{series: make(map[string][]wireBand)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *studyServer) addRespondent(r wireRespondent, bands ...wireBand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = append(s.roster, r)
	s.series[r.ID] = bands
}

func (s *studyServer) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

func (s *studyServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/v2/health":
		fmt.Fprint(w, "{}")
	case strings.HasSuffix(path, "/respondents"):
		_ = json.NewEncoder(w).Encode(map[string]any{"respondents": s.roster})
	case strings.HasSuffix(path, "/psd"):
		parts := strings.Split(path, "/")
		id := parts[len(parts)-2]
		bands, ok := s.series[id]
		if !ok {
			http.Error(w, "no data", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"bands": bands})
	case strings.HasSuffix(path, "/metrics") && r.Method == http.MethodPost:
		s.uploads++
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected path "+path, http.StatusNotFound)
	}
}

// rampBand returns n samples climbing by slope on a one second axis.
func rampBand(name string, n int, slope float64) wireBand {
	samples := make([]wireSample, n)
	for i := range samples {
		v := slope * float64(i+1)
		samples[i] = wireSample{T: float64(i), Value: &v}
	}
	return wireBand{Band: name, Channels: []wireChannel{{Channel: "F3", Samples: samples}}}
}

// writeTestConfig writes a configuration rooted in base and returns its path.
func writeTestConfig(t *testing.T, base, serverURL, studyID string) string {
	t.Helper()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[study]
base_url = %q
api_key = "key-123"
study_id = %q

[analysis]
window_size = 4
overlap_percent = 0.0
quality_threshold = 30.0
bands = ["alpha"]
parallelism = 2

[stats]
statistics = ["mean", "max"]

[paths]
workspace_dir = %q
export_dir = %q
log_dir = %q

[logging]
level = "error"
`,
		serverURL,
		studyID,
		filepath.Join(base, "workspace"),
		filepath.Join(base, "exports"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

// exportedFiles lists the export directory entries matching pattern.
func exportedFiles(t *testing.T, base, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(base, "exports", pattern))
	if err != nil {
		t.Fatalf("glob exports: %v", err)
	}
	return matches
}
