package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/storage"
)

// HTTPClient implements DataSource by calling the PoseTrack REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// bucketToAgg maps MCP bucket values to REST API agg parameter values.
func bucketToAgg(bucket string) string {
	switch bucket {
	case "1 day":
		return "daily"
	case "1 month":
		return "monthly"
	default:
		return "weekly"
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) QuerySessions(ctx context.Context, start, end time.Time, _ int, exerciseType string) ([]models.SessionRow, error) {
	params := timeParams(start, end)
	if exerciseType != "" {
		params.Set("type", exerciseType)
	}

	body, err := c.get(ctx, "/api/v1/sessions", params)
	if err != nil {
		return nil, err
	}

	var sessions []models.SessionRow
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return sessions, nil
}

func (c *HTTPClient) GetRangeSummary(ctx context.Context, start, end time.Time, _ int) (*storage.RangeSummary, error) {
	params := timeParams(start, end)

	body, err := c.get(ctx, "/api/v1/sessions/summary", params)
	if err != nil {
		return nil, err
	}

	var summary storage.RangeSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("httpclient: decode range summary: %w", err)
	}
	return &summary, nil
}

func (c *HTTPClient) GetExerciseTrend(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.TrendPeriod, error) {
	params := timeParams(start, end)
	params.Set("agg", bucketToAgg(bucket))

	body, err := c.get(ctx, "/api/v1/sessions/trend", params)
	if err != nil {
		return nil, err
	}

	var periods []storage.TrendPeriod
	if err := json.Unmarshal(body, &periods); err != nil {
		return nil, fmt.Errorf("httpclient: decode trend: %w", err)
	}
	return periods, nil
}

func (c *HTTPClient) GetScheduleSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.SchedulePeriod, error) {
	params := timeParams(start, end)
	params.Set("agg", bucketToAgg(bucket))

	body, err := c.get(ctx, "/api/v1/sessions/schedule", params)
	if err != nil {
		return nil, err
	}

	var periods []storage.SchedulePeriod
	if err := json.Unmarshal(body, &periods); err != nil {
		return nil, fmt.Errorf("httpclient: decode schedule: %w", err)
	}
	return periods, nil
}

func (c *HTTPClient) GetFormBreakdown(ctx context.Context, start, end time.Time, _ int, exerciseFilter string) (*storage.FormBreakdownResult, error) {
	params := timeParams(start, end)
	if exerciseFilter != "" {
		params.Set("type", exerciseFilter)
	}

	body, err := c.get(ctx, "/api/v1/sessions/breakdown", params)
	if err != nil {
		return nil, err
	}

	var result storage.FormBreakdownResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("httpclient: decode form breakdown: %w", err)
	}
	return &result, nil
}

func (c *HTTPClient) GetExerciseCatalog(ctx context.Context) ([]storage.CatalogExercise, error) {
	body, err := c.get(ctx, "/api/v1/exercises", nil)
	if err != nil {
		return nil, err
	}

	var catalog []storage.CatalogExercise
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("httpclient: decode exercise catalog: %w", err)
	}
	return catalog, nil
}
