package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"entrain/internal/config"
)

const userAgent = "entrain"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyRunCompleted(ctx context.Context, study string, rows, warnings int, elapsed time.Duration) error
	NotifyRunFailed(ctx context.Context, study string, cause error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		runComplete: cfg.Notifications.RunComplete,
		runFailed:   cfg.Notifications.RunFailed,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	runComplete bool
	runFailed   bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, study string, rows, warnings int, elapsed time.Duration) error {
	if !n.runComplete {
		return nil
	}
	study = strings.TrimSpace(study)

	elapsed = elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	elapsedText := elapsed.String()
	if elapsed == 0 {
		elapsedText = "0s"
	}

	data := payload{
		title:   "Entrain - Run Complete",
		message: fmt.Sprintf("✅ Analysis of %s complete: %d rows in %s", study, rows, elapsedText),
		tags:    []string{"entrain", "run", "completed"},
	}
	if warnings > 0 {
		data.title = "Entrain - Run Complete (with warnings)"
		data.message = fmt.Sprintf("⚠️ Analysis of %s complete with %d warnings: %d rows in %s", study, warnings, rows, elapsedText)
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, study string, cause error) error {
	if !n.runFailed {
		return nil
	}
	study = strings.TrimSpace(study)

	reason := "unknown"
	if cause != nil {
		reason = strings.TrimSpace(cause.Error())
	}

	data := payload{
		title:    "Entrain - Run Failed",
		message:  fmt.Sprintf("❌ Analysis of %s failed: %s", study, reason),
		tags:     []string{"entrain", "run", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Entrain - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"entrain", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyRunFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
