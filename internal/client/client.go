// Package client talks to a framesink server: pushing payloads, fetching
// the latest record, and tailing the event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/framewell/framesink/internal/payload"
)

// Ack is the server's acknowledgment for one accepted payload.
type Ack struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// Latest is the server's /latest view.
type Latest struct {
	Generation uint64         `json:"generation"`
	Record     payload.Record `json:"record"`
}

// Client is a rate-limited, retrying HTTP client for the ingestion server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	logger     *zap.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Push posts one payload to /ingest. Connection failures and 5xx responses
// retry with exponential backoff; 4xx responses return immediately wrapped
// in ErrRejected.
func (c *Client) Push(ctx context.Context, contentType string, body []byte) (*Ack, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := c.baseURL + "/ingest"
	c.logger.Debug("pushing payload",
		zap.String("url", url),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(body)),
	)

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying push", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrServerNotRunning, err)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, string(respBody))
		}

		var ack Ack
		if err := json.Unmarshal(respBody, &ack); err != nil {
			return nil, fmt.Errorf("decoding acknowledgment: %w", err)
		}
		return &ack, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetLatest fetches the current record from /latest.
func (c *Client) GetLatest(ctx context.Context) (*Latest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServerNotRunning, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var latest Latest
	if err := json.Unmarshal(body, &latest); err != nil {
		return nil, fmt.Errorf("decoding latest: %w", err)
	}
	return &latest, nil
}
