package testsupport

import (
	"path/filepath"
	"testing"

	"entrain/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Study.BaseURL = "http://127.0.0.1:0"
	cfgVal.Study.APIKey = "test"
	cfgVal.Study.StudyID = "study-test"
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStudy sets the default study identifier on the test config.
func WithStudy(id string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Study.StudyID = id
	}
}

// WithSegment sets the default segment on the test config.
func WithSegment(segment string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Study.Segment = segment
	}
}

// WithBands overrides the analysis bands on the test config.
func WithBands(bands ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.Bands = bands
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkspaceDir)
}
