package aiplan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPGenerator posts the context as JSON to a planning endpoint and
// decodes a Plan from the response.
type HTTPGenerator struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ Generator = (*HTTPGenerator)(nil)

// NewHTTPGenerator creates a generator for endpoint. A zero timeout means 60s.
func NewHTTPGenerator(endpoint, apiKey string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPGenerator{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, c Context) (Plan, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return Plan{}, fmt.Errorf("aiplan: encode context: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Plan{}, fmt.Errorf("aiplan: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Plan{}, fmt.Errorf("aiplan: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Plan{}, fmt.Errorf("aiplan: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Plan{}, fmt.Errorf("aiplan: endpoint returned %d: %s", resp.StatusCode, body)
	}

	var p Plan
	if err := json.Unmarshal(body, &p); err != nil {
		return Plan{}, fmt.Errorf("aiplan: decode plan: %w", err)
	}
	return p, nil
}
