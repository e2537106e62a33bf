package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulse-social/pulse/internal/config"
	"github.com/pulse-social/pulse/pkg/log"
)

const outboxSize = 256

// Client is one open websocket. A user may hold several, one per tab or
// device, and each gets every event addressed to the user.
type Client struct {
	ID     string
	UserID int64

	hub  *Hub
	ws   *websocket.Conn
	opts config.WebSocketConfig

	mu     sync.Mutex
	outbox chan []byte // closed by the hub to end writeLoop
	shut   bool
}

func newClient(id string, userID int64, hub *Hub, ws *websocket.Conn, opts config.WebSocketConfig) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		hub:    hub,
		ws:     ws,
		opts:   opts,
		outbox: make(chan []byte, outboxSize),
	}
}

// frame is the only message shape a browser sends; {"type":"ping"} is
// answered with {"type":"pong"} and everything else is ignored.
type frame struct {
	Type string `json:"type"`
}

func (c *Client) extendReadDeadline() error {
	return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
}

// readLoop owns the read side. It unregisters the client when the browser
// goes away or stops answering pings.
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error { return c.extendReadDeadline() })

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Debug().Err(err).Str("client_id", c.ID).Int64(log.FieldUserID, c.UserID).Msg("websocket closed unexpectedly")
			}
			return
		}

		var f frame
		if json.Unmarshal(data, &f) == nil && f.Type == "ping" {
			c.push(frame{Type: "pong"})
		}
	}
}

// writeLoop owns the write side: queued events, then a close frame once the
// outbox is closed, with a protocol ping every PingInterval in between.
func (c *Client) writeLoop() {
	ping := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ping.Stop()
		c.ws.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.outbox:
			if !ok {
				kind = websocket.CloseMessage
			} else {
				kind, data = websocket.TextMessage, msg
			}
		case <-ping.C:
			kind = websocket.PingMessage
		}

		c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
		if err := c.ws.WriteMessage(kind, data); err != nil || kind == websocket.CloseMessage {
			return
		}
	}
}

// push encodes v and queues it. A full outbox drops it.
func (c *Client) push(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.enqueue(data)
	return nil
}

// enqueue reports false when the outbox is full or already closed.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shut {
		return false
	}
	select {
	case c.outbox <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shut {
		c.shut = true
		close(c.outbox)
	}
}
