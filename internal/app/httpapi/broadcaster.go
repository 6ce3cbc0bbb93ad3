package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	svc "github.com/meridianhq/scenario-engine/internal/app/services/scenario"
	"github.com/meridianhq/scenario-engine/pkg/logger"
)

// Broadcaster fans the scenario engine's event stream out to websocket
// clients, one goroutine and outbound queue per connection so a slow
// reader never stalls the engine's event delivery.
type Broadcaster struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

const clientSendBuffer = 32

// NewBroadcaster builds a Broadcaster and subscribes it to engine's event
// stream. The returned unsubscribe func is not exposed; the broadcaster
// lives for the process lifetime.
func NewBroadcaster(engine *svc.Engine, log *logger.Logger) *Broadcaster {
	if log == nil {
		log = logger.NewDefault("scenario-ws")
	}
	b := &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[*client]struct{}),
	}
	engine.Subscribe(b.onEvent)
	return b
}

func (b *Broadcaster) onEvent(ev svc.Event) {
	payload, err := json.Marshal(struct {
		Topic     svc.Topic `json:"topic"`
		Execution any       `json:"execution"`
	}{Topic: ev.Topic, Execution: ev.Execution})
	if err != nil {
		b.log.WithError(err).Warn("failed to marshal event for broadcast")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- payload:
		default:
			b.log.Warn("dropping slow websocket client")
			b.removeLocked(c)
		}
	}
}

// ServeHTTP upgrades the request to a websocket connection and registers
// it to receive every subsequent execution event until the client
// disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	go b.writeLoop(c)
	b.readLoop(c)
}

// readLoop discards inbound messages and exists only to detect when the
// client goes away (the websocket protocol requires a reader even for a
// server-to-client-only feed).
func (b *Broadcaster) readLoop(c *client) {
	defer b.disconnect(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writeLoop(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *Broadcaster) disconnect(c *client) {
	b.mu.Lock()
	b.removeLocked(c)
	b.mu.Unlock()
	c.conn.Close()
}

func (b *Broadcaster) removeLocked(c *client) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	delete(b.clients, c)
	close(c.send)
}
