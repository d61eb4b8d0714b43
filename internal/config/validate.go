package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStudy(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateStats(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStudy() error {
	if c.Study.BaseURL == "" {
		return errors.New("study.base_url must be set (create a config with 'entrain config init')")
	}
	if !strings.HasPrefix(c.Study.BaseURL, "http://") && !strings.HasPrefix(c.Study.BaseURL, "https://") {
		return fmt.Errorf("study.base_url must be an http(s) URL, got %q", c.Study.BaseURL)
	}
	if c.Study.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/entrain/config.toml"
		}
		return fmt.Errorf("study.api_key is required. Set ENTRAIN_STUDY_API_KEY env var or edit %s (create with 'entrain config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.WindowSize < 1 {
		return errors.New("analysis.window_size must be a positive integer (samples)")
	}
	if len(c.Analysis.Bands) == 0 {
		return errors.New("analysis.bands must include at least one band label")
	}
	return nil
}

func (c *Config) validateStats() error {
	if len(c.Stats.Statistics) == 0 {
		return errors.New("stats.statistics must include at least one statistic token")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if err := ensureNonEmptyMap(map[string]string{
		"paths.workspace_dir": c.Paths.WorkspaceDir,
		"paths.export_dir":    c.Paths.ExportDir,
		"paths.log_dir":       c.Paths.LogDir,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"study.request_timeout":         c.Study.RequestTimeout,
	}); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" {
		if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
			return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive (seconds)", key)
		}
	}
	return nil
}

func ensureNonEmptyMap(values map[string]string) error {
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}
