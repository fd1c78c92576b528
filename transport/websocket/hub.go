package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/chessbroker/game/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client pumps one session.Conn over a WebSocket
type Client struct {
	ws     *websocket.Conn
	conn   *session.Conn
	logger *zap.Logger

	mu      sync.Mutex
	pending []session.Frame // probes waiting for a pong
}

// Serve upgrades the request and streams conn's events as text messages
// until either side goes away. Broker probes are sent as ping frames and
// acknowledged when the matching pong arrives. The session connection is
// closed on return.
func Serve(w http.ResponseWriter, r *http.Request, conn *session.Conn, logger *zap.Logger) error {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		conn.Close()
		return err
	}

	c := &Client{ws: ws, conn: conn, logger: logger.With(zap.String("player_id", conn.PlayerID()))}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.readPump()
	}()
	c.writePump()
	<-done
	return nil
}

// readPump keeps the read side alive and resolves pongs. Incoming data
// messages are ignored.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.ackPending()
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump drains the session connection to the socket
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.conn.Frames():
			if err := c.writeFrame(frame); err != nil {
				return
			}

		case <-c.conn.Done():
			for {
				select {
				case frame := <-c.conn.Frames():
					if err := c.writeFrame(frame); err != nil {
						return
					}
				default:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					c.ws.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeFrame(frame session.Frame) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))

	if frame.IsProbe() {
		c.mu.Lock()
		c.pending = append(c.pending, frame)
		c.mu.Unlock()
		return c.ws.WriteMessage(websocket.PingMessage, nil)
	}

	data, err := session.MarshalEvent(frame.Event())
	if err != nil {
		c.logger.Error("failed to encode event", zap.Error(err))
		return nil
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) ackPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, frame := range pending {
		frame.Ack()
	}
}
