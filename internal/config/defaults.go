package config

const (
	defaultRequestTimeout   = 30
	defaultWindowSize       = 25
	defaultOverlapPercent   = 50
	defaultQualityThreshold = 30
	defaultWorkspaceDir     = "~/.local/share/entrain"
	defaultExportDir        = "~/entrain-exports"
	defaultLogDir           = "~/.local/share/entrain/logs"
	defaultNotifyTimeout    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

func defaultBands() []string {
	return []string{"alpha", "beta", "delta", "gamma", "theta"}
}

func defaultStatistics() []string {
	return []string{"mean", "std", "variance", "max", "p25", "p75", "iqr", "skewness", "kurtosis"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Study: Study{
			RequestTimeout: defaultRequestTimeout,
		},
		Analysis: Analysis{
			WindowSize:       defaultWindowSize,
			OverlapPercent:   defaultOverlapPercent,
			QualityThreshold: defaultQualityThreshold,
			Bands:            defaultBands(),
			Parallelism:      0,
			Upload:           true,
		},
		Stats: Stats{
			Statistics: defaultStatistics(),
		},
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			ExportDir:    defaultExportDir,
			LogDir:       defaultLogDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunComplete:    true,
			RunFailed:      true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
