package broadcast

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SSEHandler relays broadcast messages to one Server-Sent Events client per
// request. Each message is framed as a single "data: <json>" block; a
// ":heartbeat" comment goes out once per heartbeat interval so idle
// connections and intermediaries keep the stream open.
type SSEHandler struct {
	broadcaster *Broadcaster
	heartbeat   time.Duration
	logger      *zap.Logger
}

// NewSSEHandler creates the SSE streaming endpoint.
func NewSSEHandler(b *Broadcaster, heartbeat time.Duration, logger *zap.Logger) *SSEHandler {
	return &SSEHandler{
		broadcaster: b,
		heartbeat:   heartbeat,
		logger:      logger,
	}
}

var _ http.Handler = (*SSEHandler)(nil)

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub.ID())

	h.logger.Info("sse client connected",
		zap.String("id", sub.ID()),
		zap.String("remote_addr", r.RemoteAddr),
	)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("sse client disconnected", zap.String("id", sub.ID()))
			return

		case <-sub.Done():
			// Removed by the broadcaster (buffer overflow or shutdown).
			return

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ":heartbeat\n\n"); err != nil {
				h.logger.Debug("sse heartbeat write failed",
					zap.String("id", sub.ID()),
					zap.Error(err),
				)
				return
			}
			flusher.Flush()

		case data := <-sub.C():
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				h.logger.Debug("sse write failed",
					zap.String("id", sub.ID()),
					zap.Error(err),
				)
				return
			}
			flusher.Flush()
		}
	}
}
