package broadcast

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer. Clients only send control
	// chatter; payloads flow the other way.
	maxMessageSize = 4 * 1024

	// Subprotocols: plain JSON text frames, or zstd-compressed JSON binary
	// frames for clients that asked for them.
	protocolJSON = "framesink.json.v1"
	protocolZstd = "framesink.zstd.v1"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // companion apps connect cross-origin
	Subprotocols:    []string{protocolJSON, protocolZstd},
}

// WSHandler relays broadcast messages over a WebSocket connection. Message
// framing and failure handling match the SSE path: one JSON document per
// frame, buffer-overflow or write failure removes the subscriber.
type WSHandler struct {
	broadcaster *Broadcaster
	heartbeat   time.Duration
	compressor  *zstd.Encoder
	logger      *zap.Logger
}

// NewWSHandler creates the WebSocket streaming endpoint.
func NewWSHandler(b *Broadcaster, heartbeat time.Duration, logger *zap.Logger) (*WSHandler, error) {
	// EncodeAll on a shared encoder is safe for concurrent use.
	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	return &WSHandler{
		broadcaster: b,
		heartbeat:   heartbeat,
		compressor:  compressor,
		logger:      logger,
	}, nil
}

var _ http.Handler = (*WSHandler)(nil)

type wsClient struct {
	handler  *WSHandler
	conn     *websocket.Conn
	sub      *Subscription
	protocol string
	logger   *zap.Logger
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	protocol := conn.Subprotocol()
	if protocol == "" {
		protocol = protocolJSON
	}

	sub := h.broadcaster.Subscribe()
	client := &wsClient{
		handler:  h,
		conn:     conn,
		sub:      sub,
		protocol: protocol,
		logger:   h.logger,
	}

	h.logger.Info("ws client connected",
		zap.String("id", sub.ID()),
		zap.String("protocol", protocol),
		zap.String("remote_addr", r.RemoteAddr),
	)

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound frames; its job is pong handling and noticing
// the disconnect that ends the subscription.
func (c *wsClient) readPump() {
	defer func() {
		c.handler.broadcaster.Unsubscribe(c.sub.ID())
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("id", c.sub.ID()),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// writePump relays subscription messages and pings on the heartbeat interval.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.handler.heartbeat)
	defer func() {
		ticker.Stop()
		c.handler.broadcaster.Unsubscribe(c.sub.ID())
		c.conn.Close()
	}()

	for {
		select {
		case <-c.sub.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return

		case data := <-c.sub.C():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			msgType := websocket.TextMessage
			if c.protocol == protocolZstd {
				msgType = websocket.BinaryMessage
				data = c.handler.compressor.EncodeAll(data, nil)
			}
			if err := c.conn.WriteMessage(msgType, data); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("id", c.sub.ID()),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
