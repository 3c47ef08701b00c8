package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/session"
)

// HTTPClient implements DataSource by calling the LiftCoach REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource and SessionSource.
var (
	_ DataSource    = (*HTTPClient)(nil)
	_ SessionSource = (*HTTPClient)(nil)
)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
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

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("httpclient: %s: %w", path, apperr.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// getJSON fetches path and decodes the body into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, what string, v any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", what, err)
	}
	return nil
}

func limitParams(limit int) url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(limit))
	return v
}

func (c *HTTPClient) ListExercises(ctx context.Context, f models.ExerciseFilter) ([]models.ExerciseDescriptor, error) {
	params := url.Values{}
	if f.Type != "" {
		params.Set("type", string(f.Type))
	}
	if f.Pattern != "" {
		params.Set("pattern", string(f.Pattern))
	}
	if f.MuscleGroup != "" {
		params.Set("muscle_group", string(f.MuscleGroup))
	}
	var out []models.ExerciseDescriptor
	err := c.getJSON(ctx, "/api/v1/exercises", params, "exercises", &out)
	return out, err
}

func (c *HTTPClient) GetExercise(ctx context.Context, id string) (*models.ExerciseDescriptor, error) {
	var ex models.ExerciseDescriptor
	if err := c.getJSON(ctx, "/api/v1/exercises/"+url.PathEscape(id), nil, "exercise", &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

// GetRecord returns nil when the user has no record for the exercise.
func (c *HTTPClient) GetRecord(ctx context.Context, _ int, exerciseID string) (*models.PersonalRecord, error) {
	var rec models.PersonalRecord
	err := c.getJSON(ctx, "/api/v1/records/"+url.PathEscape(exerciseID), nil, "record", &rec)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) ListRecords(ctx context.Context, _ int) ([]models.PersonalRecord, error) {
	var out []models.PersonalRecord
	err := c.getJSON(ctx, "/api/v1/records", nil, "records", &out)
	return out, err
}

func (c *HTTPClient) RecentSessions(ctx context.Context, _ int, limit int) ([]models.HistorySession, error) {
	var out []models.HistorySession
	err := c.getJSON(ctx, "/api/v1/history/recent", limitParams(limit), "recent sessions", &out)
	return out, err
}

func (c *HTTPClient) ListSessions(ctx context.Context, _ int, limit int) ([]models.SessionRecord, error) {
	var out []models.SessionRecord
	err := c.getJSON(ctx, "/api/v1/history", limitParams(limit), "history", &out)
	return out, err
}

func (c *HTTPClient) CurrentSession(ctx context.Context, _ int) (any, error) {
	var v session.View
	err := c.getJSON(ctx, "/api/v1/sessions/current", nil, "session", &v)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, session.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
