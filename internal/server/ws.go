package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/handplay/internal/dispatch"
	"github.com/ayusman/handplay/internal/gesture"
	"github.com/ayusman/handplay/internal/playback"
)

const (
	writeWait      = 2 * time.Second
	clientSendSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is one push to websocket clients.
type Message struct {
	Type    string          `json:"type"`
	State   *playback.State `json:"state,omitempty"`
	Gesture string          `json:"gesture,omitempty"`
	Command string          `json:"command,omitempty"`
	Source  string          `json:"source,omitempty"`
	Outcome string          `json:"outcome,omitempty"`
	At      time.Time       `json:"at"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes playback state, accepted gestures and dispatch outcomes to
// websocket clients. A client that falls behind loses messages rather than
// slowing the publisher.
type Hub struct {
	snapshot func() playback.State
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewHub creates a hub. snapshot, if set, supplies the state sent to each
// client on connect.
func NewHub(snapshot func() playback.State, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		snapshot: snapshot,
		logger:   logger,
		clients:  make(map[*wsClient]struct{}),
	}
}

// PublishState broadcasts a playback state change.
func (h *Hub) PublishState(s playback.State) {
	h.publish(Message{Type: "state", State: &s, At: time.Now()})
}

// PublishGesture broadcasts an accepted gesture.
func (h *Hub) PublishGesture(g gesture.Gesture, at time.Time) {
	h.publish(Message{Type: "gesture", Gesture: g.String(), At: at})
}

// PublishEvent broadcasts a dispatch outcome.
func (h *Hub) PublishEvent(ev dispatch.Event) {
	msg := Message{
		Type:    "command",
		Command: ev.Command.Token(),
		Source:  string(ev.Source),
		Outcome: string(ev.Outcome),
		At:      ev.At,
	}
	if ev.Gesture != gesture.None {
		msg.Gesture = ev.Gesture.String()
	}
	h.publish(msg)
}

func (h *Hub) publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("failed to encode websocket message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientSendSize)}
	if h.snapshot != nil {
		s := h.snapshot()
		if data, err := json.Marshal(Message{Type: "state", State: &s, At: time.Now()}); err == nil {
			c.send <- data
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go h.writeLoop(c, done)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	<-done
	conn.Close()
}

func (h *Hub) writeLoop(c *wsClient, done chan<- struct{}) {
	defer close(done)
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}
