package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EventStream is one live /events connection. Heartbeat comments are
// consumed internally; Next returns only data frames. The stream does not
// reconnect: when the server goes away, Next returns the underlying error
// and the caller decides what to do.
type EventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Events opens the server's SSE stream. The stream stays open until Close
// is called, ctx is cancelled, or the server drops the connection.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client has a request timeout that would kill a standing
	// stream; use the transport directly.
	resp, err := c.httpClient.Transport.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServerNotRunning, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 64<<20) // frames carry base64 images

	return &EventStream{body: resp.Body, scanner: scanner}, nil
}

// Next blocks until the next data frame arrives and returns its JSON
// document. io.EOF means the server closed the stream.
func (s *EventStream) Next() (json.RawMessage, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case strings.HasPrefix(line, "data: "):
			return json.RawMessage(strings.TrimPrefix(line, "data: ")), nil
		case strings.HasPrefix(line, ":"):
			// Heartbeat comment.
		case line == "":
			// Frame separator.
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close tears down the connection.
func (s *EventStream) Close() error {
	return s.body.Close()
}
