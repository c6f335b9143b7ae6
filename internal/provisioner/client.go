// Package provisioner is the HTTP client for the external deployment
// pipeline. The control plane only hands provisioning requests over; the
// pipeline reports outcomes back asynchronously through the completion
// callback endpoints.
package provisioner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cellmesh.io/cellmesh/internal/config"
	"cellmesh.io/cellmesh/internal/domain"
	"cellmesh.io/cellmesh/internal/pkg/logger"
)

// ErrPermanent marks a pipeline rejection that retrying cannot fix
// (the pipeline answered 4xx). Callers cancel instead of retrying.
var ErrPermanent = errors.New("permanent provisioning error")

// Client delivers provisioning requests to the deployment pipeline.
type Client struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewClient creates a pipeline client from configuration.
func NewClient(cfg config.ProvisionerConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		baseDelay:  baseDelay,
	}
}

// Envelope is the wire format the pipeline consumes: the event kind plus
// its payload as the detail.
type Envelope struct {
	EventType domain.EventType `json:"event_type"`
	Detail    json.RawMessage  `json:"detail"`
}

// RequestCellProvision asks the pipeline to provision a new cell.
func (c *Client) RequestCellProvision(ctx context.Context, payload domain.CellCreatePayload) error {
	detail, err := payload.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal cell provision payload: %w", err)
	}
	return c.post(ctx, "/provision/cells", Envelope{
		EventType: domain.EventCellCreateRequested, Detail: detail,
	})
}

// RequestTenantProvision asks the pipeline to provision a tenant stack.
func (c *Client) RequestTenantProvision(ctx context.Context, payload domain.TenantCreatePayload) error {
	detail, err := payload.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal tenant provision payload: %w", err)
	}
	return c.post(ctx, "/provision/tenants", Envelope{
		EventType: domain.EventTenantCreateRequested, Detail: detail,
	})
}

// post delivers one request, retrying transient failures (network errors
// and 5xx answers) with exponential backoff. A 4xx answer is permanent.
func (c *Client) post(ctx context.Context, path string, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal provisioning envelope: %w", err)
	}

	url := c.endpoint + path
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			logger.Debug("retrying pipeline delivery",
				zap.String("url", url),
				zap.Int("attempt", attempt))
		}

		lastErr = c.once(ctx, url, body)
		if lastErr == nil || errors.Is(lastErr, ErrPermanent) {
			return lastErr
		}
	}
	return fmt.Errorf("deliver to pipeline after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) once(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build pipeline request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call pipeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("pipeline rejected request (%d): %s: %w",
			resp.StatusCode, bytes.TrimSpace(detail), ErrPermanent)
	}
	return fmt.Errorf("pipeline answered %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
}
