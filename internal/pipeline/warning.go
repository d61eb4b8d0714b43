package pipeline

import (
	"log/slog"

	"entrain/internal/logging"
	"entrain/internal/runs"
)

// Warning is one recoverable problem observed during a run. Warnings keep
// their occurrence order from lock acquisition to notification.
type Warning struct {
	Stage   string
	Message string
}

// collector accumulates run warnings and logs each one as it arrives.
type collector struct {
	logger   *slog.Logger
	warnings []Warning
}

func newCollector(logger *slog.Logger) *collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &collector{logger: logger}
}

func (c *collector) add(stage, message string) {
	c.warnings = append(c.warnings, Warning{Stage: stage, Message: message})
	logging.WarnWithContext(c.logger, message, "run_warning",
		logging.String(logging.FieldStage, stage))
}

func (c *collector) addAll(stage string, messages []string) {
	for _, message := range messages {
		c.add(stage, message)
	}
}

func (c *collector) list() []Warning { return c.warnings }

// recorded converts the collected warnings for persistence.
func (c *collector) recorded() []runs.Warning {
	if len(c.warnings) == 0 {
		return nil
	}
	out := make([]runs.Warning, len(c.warnings))
	for i, w := range c.warnings {
		out[i] = runs.Warning{Stage: w.Stage, Message: w.Message}
	}
	return out
}
