// Package feed pushes live snapshots to browser screens over websockets.
package feed

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	TopicKitchen = "kitchen"
	TopicSeller  = "seller"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Message is the envelope every subscriber receives.
type Message struct {
	Topic   string    `json:"topic"`
	SentAt  time.Time `json:"sent_at"`
	Payload any       `json:"payload"`
}

type client struct {
	conn  *websocket.Conn
	topic string
	send  chan []byte
}

// Hub tracks subscribers per topic and fans snapshots out to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	latest   map[string][]byte
}

// NewHub accepts upgrades from allowedOrigin only, or from any origin when
// it is "*" or empty.
func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		latest:  make(map[string][]byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Broadcast sends payload to every subscriber of topic and remembers it for
// late joiners. Subscribers that cannot keep up are dropped. It returns the
// number of subscribers reached.
func (h *Hub) Broadcast(topic string, payload any) int {
	data, err := json.Marshal(Message{Topic: topic, SentAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		log.Printf("[feed] WARN: failed to encode %s snapshot: %v", topic, err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[topic] = data

	sent := 0
	for c := range h.clients {
		if c.topic != topic {
			continue
		}
		select {
		case c.send <- data:
			sent++
		default:
			log.Printf("[feed] WARN: dropping slow %s subscriber", topic)
			delete(h.clients, c)
			close(c.send)
		}
	}
	return sent
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.topic == topic {
			n++
		}
	}
	return n
}

// Serve upgrades the request and streams topic until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[feed] WARN: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, topic: topic, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if last, ok := h.latest[topic]; ok {
		c.send <- last
	}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump only services control frames; screens never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[feed] WARN: %s subscriber error: %v", c.topic, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
