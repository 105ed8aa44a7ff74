package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-engine/internal/models"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Client owns one websocket connection. A dedicated write pump drains the
// send channel so that fan-out never blocks on a slow browser; the read side
// feeds frames to the dispatcher. Separating the two avoids head-of-line
// blocking.
type Client struct {
	connID   string
	identity models.Identity
	conn     *websocket.Conn
	send     chan models.OutboundEvent
	done     chan struct{}
	once     sync.Once
}

// NewClient wraps an upgraded connection.
func NewClient(identity models.Identity, conn *websocket.Conn) *Client {
	return &Client{
		connID:   uuid.NewString(),
		identity: identity,
		conn:     conn,
		send:     make(chan models.OutboundEvent, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// ConnID returns the connection's unique id.
func (c *Client) ConnID() string {
	return c.connID
}

// Identity returns the authenticated identity bound to this connection.
func (c *Client) Identity() models.Identity {
	return c.identity
}

// Send enqueues an event for the write pump. Never blocks: a full buffer
// means the consumer is too slow and the event is dropped with an error.
func (c *Client) Send(event models.OutboundEvent) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- event:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close tears the connection down, sending a close frame with the reason.
// Safe to call from any goroutine, repeatedly.
func (c *Client) Close(reason string) {
	c.once.Do(func() {
		close(c.done)
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Printf("websocket close frame failed conn_id=%s: %v", c.connID, err)
		}
		c.conn.Close()
	})
}

// WritePump serializes all data writes to the connection. Run as a goroutine;
// returns when the client is closed.
func (c *Client) WritePump() {
	for {
		select {
		case event := <-c.send:
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("event marshal failed conn_id=%s event=%s: %v", c.connID, event.Event, err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error conn_id=%s: %v", c.connID, err)
				c.Close("write error")
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadLoop pumps inbound frames into handle until the connection drops.
// Returns the close reason.
func (c *Client) ReadLoop(handle func(identity models.Identity, raw []byte)) string {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "closed"
			}
			return err.Error()
		}
		handle(c.identity, raw)
	}
}
