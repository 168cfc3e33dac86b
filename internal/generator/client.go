// Package generator talks to the external quiz generation collaborator.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"notes-quiz-service/internal/domain"
)

const maxResponseBytes = 4 << 20

// ErrNotConfigured is returned when no collaborator URL was given.
var ErrNotConfigured = errors.New("generator url not configured")

type request struct {
	Query string        `json:"query"`
	Notes []domain.Note `json:"notes"`
}

// Client POSTs staged notes to the collaborator and returns its raw response body.
// The body is not interpreted here; callers normalize it.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Generate sends one request. There is no retry.
func (c *Client) Generate(ctx context.Context, query string, notes []domain.Note) ([]byte, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(request{Query: query, Notes: notes})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("generator responded with status %d: %s", resp.StatusCode, truncate(raw, 200))
	}
	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
