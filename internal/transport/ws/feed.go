package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"streamgate-go/internal/domain/eventbus"
	"streamgate-go/internal/platform/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Event is the wire form of a token lifecycle notification.
type Event struct {
	Type      string `json:"type"`
	JTI       string `json:"jti,omitempty"`
	Subject   string `json:"subject,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
	At        int64  `json:"at"`
}

// Feed bridges the in-process event bus onto websocket subscribers so
// operators can watch issuance, renewal and revocation live.
type Feed struct {
	hub      *Hub
	bus      eventbus.Bus
	logger   *logging.Logger
	upgrader websocket.Upgrader

	handlers map[string]func(eventbus.TokenEvent)
}

// NewFeed subscribes to the token lifecycle topics and returns a feed ready
// to accept websocket clients.
func NewFeed(bus eventbus.Bus, logger *logging.Logger) (*Feed, error) {
	f := &Feed{
		hub:    NewHub(logger),
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		handlers: make(map[string]func(eventbus.TokenEvent)),
	}

	for _, topic := range []string{
		eventbus.TopicTokenIssued,
		eventbus.TopicTokenRenewed,
		eventbus.TopicTokenRevoked,
	} {
		handler := f.forward(topic)
		if err := bus.Subscribe(topic, handler); err != nil {
			return nil, err
		}
		f.handlers[topic] = handler
	}
	return f, nil
}

// Hub exposes the subscriber hub, for stats and shutdown.
func (f *Feed) Hub() *Hub {
	return f.hub
}

func (f *Feed) forward(topic string) func(eventbus.TokenEvent) {
	return func(e eventbus.TokenEvent) {
		msg, err := sonic.Marshal(Event{
			Type:      topic,
			JTI:       e.JTI,
			Subject:   e.Subject,
			ExpiresAt: e.ExpiresAt,
			At:        e.At.Unix(),
		})
		if err != nil {
			if f.logger != nil {
				f.logger.ErrorTag("EVENTS", "encode event: %v", err)
			}
			return
		}
		f.hub.Broadcast(msg)
	}
}

// Handle upgrades the request and streams lifecycle events until the client
// goes away.
func (f *Feed) Handle(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if f.logger != nil {
			f.logger.WarnTag("EVENTS", "upgrade failed: %v", err)
		}
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	f.hub.Register(client)
	if f.logger != nil {
		f.logger.DebugTag("EVENTS", "subscriber %s connected", client.id)
	}

	go f.writePump(client)
	go f.readPump(client)
}

func (f *Feed) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				f.hub.Unregister(client.id)
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.hub.Unregister(client.id)
				return
			}
		}
	}
}

func (f *Feed) readPump(client *Client) {
	defer f.hub.Unregister(client.id)

	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Inbound frames are ignored; the feed is one-way.
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close unsubscribes from the bus and disconnects every client.
func (f *Feed) Close() {
	for topic, handler := range f.handlers {
		_ = f.bus.Unsubscribe(topic, handler)
	}
	f.hub.CloseAll()
}
