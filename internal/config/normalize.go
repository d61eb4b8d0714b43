package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeStudy(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeStats()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeStudy() error {
	if c.Study.APIKey == "" {
		if value, ok := os.LookupEnv("ENTRAIN_STUDY_API_KEY"); ok {
			c.Study.APIKey = strings.TrimSpace(value)
		}
	}
	c.Study.APIKey = strings.TrimSpace(c.Study.APIKey)
	c.Study.BaseURL = strings.TrimRight(strings.TrimSpace(c.Study.BaseURL), "/")
	c.Study.StudyID = strings.TrimSpace(c.Study.StudyID)
	c.Study.Segment = strings.TrimSpace(c.Study.Segment)
	if c.Study.RequestTimeout <= 0 {
		c.Study.RequestTimeout = defaultRequestTimeout
	}
	return nil
}

// Out-of-range overlap and quality percentages are deliberately left alone:
// they are clamped at run time with a user-visible warning.
func (c *Config) normalizeAnalysis() {
	bands := make([]string, 0, len(c.Analysis.Bands))
	seen := make(map[string]struct{}, len(c.Analysis.Bands))
	for _, band := range c.Analysis.Bands {
		name := strings.ToLower(strings.TrimSpace(band))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		bands = append(bands, name)
	}
	if len(bands) == 0 {
		bands = defaultBands()
	}
	c.Analysis.Bands = bands
	if c.Analysis.Parallelism < 0 {
		c.Analysis.Parallelism = 0
	}
}

func (c *Config) normalizeStats() {
	stats := make([]string, 0, len(c.Stats.Statistics))
	for _, token := range c.Stats.Statistics {
		if trimmed := strings.ToLower(strings.TrimSpace(token)); trimmed != "" {
			stats = append(stats, trimmed)
		}
	}
	if len(stats) == 0 {
		stats = defaultStatistics()
	}
	c.Stats.Statistics = stats
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
