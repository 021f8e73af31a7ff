package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	// sendBuffer bounds the per-connection outbound queue. A slow reader
	// drops events instead of blocking the mutation path.
	sendBuffer = 64
)

// Client wraps one websocket connection with a bounded outbound queue.
// Delivery is best-effort: a full queue drops the event for this client only.
// Broadcast legs on other goroutines may race the disconnect path, so Send
// and close share a mutex instead of relying on channel state.
type Client struct {
	connID string
	conn   *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logger,
	}
}

// Send implements registry.Sender. It never blocks and never returns an
// error; an unreachable or saturated client just misses the event.
func (that *Client) Send(event string, payload any) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		that.logger.Error("failed to marshal payload", "event", event, "error", err)
		return
	}

	messageBytes, err := json.Marshal(Message{
		Action:  event,
		Payload: payloadBytes,
	})
	if err != nil {
		that.logger.Error("failed to marshal message", "event", event, "error", err)
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	select {
	case that.send <- messageBytes:
	default:
		that.logger.Warn("dropping event for slow client", "conn_id", that.connID, "event", event)
	}
}

// writePump drains the outbound queue to the socket and keeps the connection
// alive with pings. One writePump per connection; gorilla allows a single
// concurrent writer.
func (that *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case messageBytes, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, messageBytes); err != nil {
				that.logger.Debug("write failed, closing connection", "conn_id", that.connID, "error", err)
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close marks the client unreachable and releases writePump. Safe against
// concurrent Send calls and safe to call more than once.
func (that *Client) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	close(that.send)
}
