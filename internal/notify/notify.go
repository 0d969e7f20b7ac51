// Package notify reports replay batch outcomes to an ntfy topic, so long
// replays can run unattended.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/replay"
)

// Notifier delivers replay outcomes somewhere a human will see them.
type Notifier interface {
	SendSuccess(ctx context.Context, result *replay.BatchResult, source string, duration time.Duration) error
	SendFailure(ctx context.Context, result *replay.BatchResult, source string, duration time.Duration, err error) error
}

// notification is one message ready to publish.
type notification struct {
	title    string
	body     string
	tags     string
	priority string
}

// Client publishes to a single ntfy topic over plain HTTP.
type Client struct {
	httpClient *http.Client
	publishURL string
	token      string
	tags       string
	priority   string
	logger     *zap.Logger
}

// NewClient creates a client bound to the configured server and topic.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		publishURL: strings.TrimSuffix(cfg.Server, "/") + "/" + cfg.Topic,
		token:      cfg.Token,
		tags:       cfg.Tags,
		priority:   cfg.Priority,
		logger:     logger,
	}
}

// SendSuccess reports a replay that pushed everything it tried to.
func (c *Client) SendSuccess(ctx context.Context, result *replay.BatchResult, source string, duration time.Duration) error {
	return c.publish(ctx, notification{
		title:    fmt.Sprintf("Replay Complete: %s", source),
		body:     FormatSuccessMessage(result, duration),
		tags:     c.tags + ",white_check_mark",
		priority: c.priority,
	})
}

// SendFailure reports a replay with failed pushes. Failures always go out
// at high priority regardless of the configured one.
func (c *Client) SendFailure(ctx context.Context, result *replay.BatchResult, source string, duration time.Duration, err error) error {
	return c.publish(ctx, notification{
		title:    fmt.Sprintf("Replay Failed: %s", source),
		body:     FormatFailureMessage(result, duration, err),
		tags:     c.tags + ",x",
		priority: "high",
	})
}

// publish posts one message. ntfy takes the body as the message text and
// everything else as headers.
func (c *Client) publish(ctx context.Context, n notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.publishURL, strings.NewReader(n.body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Title", n.title)
	req.Header.Set("Priority", n.priority)
	req.Header.Set("Tags", n.tags)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("notification not delivered", zap.Error(err))
		return fmt.Errorf("publishing notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body) // keep the connection reusable

	if resp.StatusCode/100 != 2 {
		c.logger.Warn("ntfy rejected notification",
			zap.Int("status", resp.StatusCode),
			zap.String("title", n.title),
		)
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	c.logger.Debug("notification published", zap.String("title", n.title))
	return nil
}

// NoopNotifier is used when notifications are turned off.
type NoopNotifier struct{}

func (NoopNotifier) SendSuccess(context.Context, *replay.BatchResult, string, time.Duration) error {
	return nil
}

func (NoopNotifier) SendFailure(context.Context, *replay.BatchResult, string, time.Duration, error) error {
	return nil
}

// New picks the notifier matching the config.
func New(cfg *Config, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return NoopNotifier{}
	}
	return NewClient(cfg, logger)
}
