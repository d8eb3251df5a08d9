package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"streamgate-go/internal/platform/logging"
)

// sendBuffer is the per-client queue depth. A client that cannot drain this
// many events is considered stalled and gets disconnected.
const sendBuffer = 16

// Client is one subscriber on the event feed.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// ID returns the client identifier assigned at upgrade time.
func (c *Client) ID() string {
	return c.id
}

// enqueue offers a message without blocking. It reports false when the
// client's buffer is full. A closed client swallows the message.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// Hub tracks the active event feed subscribers.
type Hub struct {
	logger  *logging.Logger
	clients sync.Map // map[string]*Client
}

// NewHub builds a fresh subscriber hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{logger: logger}
}

// Register adds a new client to the hub.
func (h *Hub) Register(client *Client) {
	if client == nil {
		return
	}
	h.clients.Store(client.id, client)
}

// Unregister removes and closes the client.
func (h *Hub) Unregister(id string) {
	if value, ok := h.clients.LoadAndDelete(id); ok {
		value.(*Client).close()
	}
}

// Broadcast fans the message out to every client. Slow consumers are
// dropped rather than allowed to stall the feed.
func (h *Hub) Broadcast(msg []byte) {
	h.clients.Range(func(key, value any) bool {
		client := value.(*Client)
		if !client.enqueue(msg) {
			if h.logger != nil {
				h.logger.WarnTag("EVENTS", "dropping slow subscriber %s", client.id)
			}
			h.Unregister(client.id)
		}
		return true
	})
}

// Count exposes the number of connected subscribers.
func (h *Hub) Count() int {
	n := 0
	h.clients.Range(func(key, value any) bool {
		n++
		return true
	})
	return n
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.clients.Range(func(key, value any) bool {
		value.(*Client).close()
		h.clients.Delete(key)
		return true
	})
}
