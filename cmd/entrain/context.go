package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"entrain/internal/config"
	"entrain/internal/logging"
	"entrain/internal/notifications"
	"entrain/internal/report"
	"entrain/internal/runs"
	"entrain/internal/services/studydata"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runEnv bundles the collaborators of commands that execute pipeline work.
type runEnv struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *runs.Store
	platform *studydata.Client
	notifier notifications.Service
}

func (c *commandContext) withRunEnv(fn func(*runEnv) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, logPath, err := newRunLogger(cfg)
	if err != nil {
		return err
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "entrain-*.log", Exclude: []string{logPath}},
	)
	store, err := runs.Open(cfg.RunsDatabasePath())
	if err != nil {
		return fmt.Errorf("open runs database: %w", err)
	}
	defer store.Close()

	return fn(&runEnv{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		platform: newStudyClient(cfg, logger),
		notifier: notifications.NewService(cfg),
	})
}

func (c *commandContext) withStore(fn func(*config.Config, *runs.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := runs.Open(cfg.RunsDatabasePath())
	if err != nil {
		return fmt.Errorf("open runs database: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

// newRunLogger opens a per-invocation log file under the configured log
// directory. Stdout stays reserved for tables and result paths.
func newRunLogger(cfg *config.Config) (*slog.Logger, string, error) {
	if cfg == nil || cfg.Paths.LogDir == "" {
		return logging.NewNop(), "", nil
	}
	logPath := filepath.Join(cfg.Paths.LogDir,
		fmt.Sprintf("entrain-%s.log", time.Now().UTC().Format("20060102T150405.000Z")))
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	return logger, logPath, nil
}

func newStudyClient(cfg *config.Config, logger *slog.Logger) *studydata.Client {
	opts := []studydata.Option{studydata.WithLogger(logger)}
	if cfg.Study.RequestTimeout > 0 {
		opts = append(opts, studydata.WithTimeout(time.Duration(cfg.Study.RequestTimeout)*time.Second))
	}
	return studydata.New(cfg.Study.BaseURL, cfg.Study.APIKey, opts...)
}

func styleFor(out io.Writer) report.Style {
	if f, ok := out.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return report.StyleRounded
		}
	}
	return report.StylePlain
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
