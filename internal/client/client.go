// Package client talks to the targets REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client is a JSON client for the targets API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a new Client. timeout bounds every request.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ListTargets lists targets. A non-empty filter is passed through as the
// q search parameter.
func (c *Client) ListTargets(ctx context.Context, filter string) ([]*domain.Target, error) {
	path := "/api/targets"
	if filter = strings.TrimSpace(filter); filter != "" {
		path += "?" + url.Values{"q": {filter}}.Encode()
	}
	var targets []*domain.Target
	if err := c.do(ctx, "list targets", http.MethodGet, path, nil, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// GetTarget gets a single target.
func (c *Client) GetTarget(ctx context.Context, id int64) (*domain.Target, error) {
	var target domain.Target
	if err := c.do(ctx, "get target", http.MethodGet, fmt.Sprintf("/api/targets/%d", id), nil, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// ListProbes lists every probe.
func (c *Client) ListProbes(ctx context.Context) ([]*domain.Probe, error) {
	var probes []*domain.Probe
	if err := c.do(ctx, "list probes", http.MethodGet, "/api/probes", nil, &probes); err != nil {
		return nil, err
	}
	return probes, nil
}

// CreateTarget creates a target and returns it with its assigned id.
func (c *Client) CreateTarget(ctx context.Context, fields domain.TargetFields) (*domain.Target, error) {
	var target domain.Target
	if err := c.do(ctx, "create target", http.MethodPost, "/api/targets", fields, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// UpdateTarget replaces the editable fields of target id. Every field is
// sent, so empty values clear what is stored.
func (c *Client) UpdateTarget(ctx context.Context, id int64, fields domain.TargetFields) (*domain.Target, error) {
	var target domain.Target
	if err := c.do(ctx, "update target", http.MethodPut, fmt.Sprintf("/api/targets/%d", id), fields.Patch(), &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// DeleteTarget deletes target id.
func (c *Client) DeleteTarget(ctx context.Context, id int64) error {
	return c.do(ctx, "delete target", http.MethodDelete, fmt.Sprintf("/api/targets/%d", id), nil, nil)
}

// Batch applies one operation to several targets in a single request.
func (c *Client) Batch(ctx context.Context, req domain.BatchRequest) (*domain.BatchResult, error) {
	var result domain.BatchResult
	if err := c.do(ctx, "batch "+string(req.Operation), http.MethodPost, "/api/targets/batch", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Statistics fetches inventory counts.
func (c *Client) Statistics(ctx context.Context) (*domain.Statistics, error) {
	var stats domain.Statistics
	if err := c.do(ctx, "statistics", http.MethodGet, "/api/statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend_request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServerError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed response body: %v", err),
		}
	}
	return nil
}

// errorMessage extracts the {"error": ...} payload, falling back to the
// raw body and then to the status text.
func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr domain.APIError
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
