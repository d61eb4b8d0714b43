package studydata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"entrain/internal/biosignal"
	"entrain/internal/fetch"
	"entrain/internal/logging"
	"entrain/internal/services"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "entrain"
	maxErrorBody     = 4096
)

// Client is the HTTP client for the study data platform.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Sink persists an aggregated result back into the platform under a named
// metric series.
type Sink interface {
	UploadResult(ctx context.Context, upload MetricUpload) error
}

var (
	_ fetch.Fetcher = (*Client)(nil)
	_ Sink          = (*Client)(nil)
)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		agent = strings.TrimSpace(agent)
		if agent != "" {
			c.userAgent = agent
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "studydata")
		}
	}
}

// New constructs a platform client. The API key travels in the X-Api-Key
// header on every request.
func New(baseURL, apiKey string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.logger == nil {
		client.logger = logging.NewNop()
	}
	return client
}

// ListRespondents returns the study's respondents for one stimulus, sorted
// by respondent ID.
func (c *Client) ListRespondents(ctx context.Context, study, stimulus, segment string) ([]biosignal.Respondent, error) {
	if strings.TrimSpace(study) == "" {
		return nil, services.Wrap(services.ErrValidation, "respondents", "list", "study id required", nil)
	}
	query := url.Values{}
	if stimulus != "" {
		query.Set("stimulus", stimulus)
	}
	if segment != "" {
		query.Set("segment", segment)
	}

	var payload respondentsResponse
	path := fmt.Sprintf("/v2/studies/%s/respondents", url.PathEscape(study))
	if err := c.getJSON(ctx, path, query, &payload); err != nil {
		if isNotFound(err) {
			return nil, services.Wrap(services.ErrNotFound, "respondents", "list", fmt.Sprintf("study %s not found", study), nil)
		}
		return nil, services.Wrap(services.ErrExternalService, "respondents", "list", "request failed", err)
	}

	out := make([]biosignal.Respondent, 0, len(payload.Respondents))
	for _, r := range payload.Respondents {
		out = append(out, biosignal.Respondent{ID: r.ID, Name: r.Name, Device: r.Device})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Fetch retrieves one respondent's per-band PSD series. Absent sensor data
// is not an error: both an HTTP 404 and an empty sample set yield an empty
// series carrying the respondent's identity. Only transport-level failures
// return an error.
func (c *Client) Fetch(ctx context.Context, task fetch.Task) (biosignal.Series, error) {
	query := url.Values{}
	if task.Stimulus != "" {
		query.Set("stimulus", task.Stimulus)
	}
	if task.Segment != "" {
		query.Set("segment", task.Segment)
	}
	if len(task.Bands) > 0 {
		query.Set("bands", joinBands(task.Bands))
	}

	var payload psdResponse
	path := fmt.Sprintf("/v2/studies/%s/respondents/%s/psd", url.PathEscape(task.Study), url.PathEscape(task.Respondent.ID))
	if err := c.getJSON(ctx, path, query, &payload); err != nil {
		if isNotFound(err) {
			c.logger.Debug("no sensor data for respondent",
				logging.String(logging.FieldRespondent, task.Respondent.ID),
				logging.String(logging.FieldStimulus, task.Stimulus))
			return biosignal.Series{Respondent: task.Respondent}, nil
		}
		return biosignal.Series{}, services.Wrap(services.ErrExternalService, "fetch", "psd",
			fmt.Sprintf("respondent %s", task.Respondent.ID), err)
	}

	series, err := payload.series(task.Respondent)
	if err != nil {
		return biosignal.Series{}, services.Wrap(services.ErrExternalService, "fetch", "psd",
			fmt.Sprintf("malformed response for respondent %s", task.Respondent.ID), err)
	}
	return series, nil
}

// UploadResult persists an aggregated metric series.
func (c *Client) UploadResult(ctx context.Context, upload MetricUpload) error {
	if strings.TrimSpace(upload.Study) == "" {
		return services.Wrap(services.ErrValidation, "upload", "metrics", "study id required", nil)
	}
	if strings.TrimSpace(upload.Name) == "" {
		return services.Wrap(services.ErrValidation, "upload", "metrics", "metric name required", nil)
	}
	path := fmt.Sprintf("/v2/studies/%s/metrics", url.PathEscape(upload.Study))
	if err := c.postJSON(ctx, path, upload); err != nil {
		return services.Wrap(services.ErrExternalService, "upload", "metrics",
			fmt.Sprintf("metric %s", upload.Name), err)
	}
	c.logger.Debug("metric uploaded",
		logging.String(logging.FieldStudy, upload.Study),
		logging.String("metric", upload.Name),
		logging.Int("row_count", len(upload.Rows)))
	return nil
}

// Ping verifies the platform is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.getJSON(ctx, "/v2/health", nil, nil); err != nil {
		return services.Wrap(services.ErrExternalService, "health", "ping", "platform unreachable", err)
	}
	return nil
}

type statusError struct {
	Method  string
	Path    string
	Status  int
	Body    string
	Elapsed time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s returned %d after %s: %s",
		e.Method, e.Path, e.Status, e.Elapsed.Round(time.Millisecond), e.Body)
}

func isNotFound(err error) bool {
	var status *statusError
	return errors.As(err, &status) && status.Status == http.StatusNotFound
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, path, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, nil)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error (timeout=%s): %w", c.timeout(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &statusError{
			Method:  req.Method,
			Path:    path,
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(body)),
			Elapsed: time.Since(started),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) timeout() time.Duration {
	if c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultTimeout
	}
	return c.httpClient.Timeout
}

func joinBands(bands []biosignal.Band) string {
	names := make([]string, len(bands))
	for i, band := range bands {
		names[i] = string(band)
	}
	return strings.Join(names, ",")
}
