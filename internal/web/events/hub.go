// Package events streams build progress to websocket subscribers. A
// subscriber first receives every event of the current build, then live
// events until the build finishes or the hub closes.
package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Subscribers never send payloads, only control frames
	maxMessageSize = 512

	sendBuffer = 64

	// maxHistory bounds the replay kept for late subscribers
	maxHistory = 1024
)

// Type names an event
type Type string

const (
	TypeWave      Type = "wave"
	TypePublished Type = "published"
	TypeFailed    Type = "failed"
)

// Event is one build progress message
type Event struct {
	Type     Type      `json:"type"`
	Wave     int       `json:"wave,omitempty"`
	Size     int       `json:"size,omitempty"`
	BuildID  string    `json:"build_id,omitempty"`
	Types    int       `json:"types,omitempty"`
	Failures []string  `json:"failures,omitempty"`
	Time     time.Time `json:"time"`
}

// Hub fans events out to subscribers
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
	history []Event
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHub creates an open hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
}

// Publish records ev and sends it to every subscriber. A subscriber whose
// buffer is full is disconnected rather than allowed to stall the build.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	if len(h.history) < maxHistory {
		h.history = append(h.history, ev)
	}
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.logger.Warn("dropping slow event subscriber", zap.String("client", c.id))
			delete(h.clients, c)
			c.close()
		}
	}
}

// ObserveWave publishes a wave event; it has the loader.WaveObserver shape
func (h *Hub) ObserveWave(wave, size int) {
	h.Publish(Event{Type: TypeWave, Wave: wave, Size: size})
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and subscribes the connection
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	backlog := make([]Event, len(h.history))
	copy(backlog, h.history)
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("event subscriber connected", zap.String("client", c.id))

	go h.writePump(c, backlog)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// readPump discards client frames and notices disconnects
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("event subscriber read failed", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer of the connection
func (h *Hub) writePump(c *client, backlog []Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(c)
		c.conn.Close()
	}()

	for _, ev := range backlog {
		if err := h.write(c, ev); err != nil {
			return
		}
	}

	for {
		select {
		case ev := <-c.send:
			if err := h.write(c, ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (h *Hub) write(c *client, ev Event) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(ev); err != nil {
		h.logger.Debug("event write failed", zap.String("client", c.id), zap.Error(err))
		return err
	}
	return nil
}

// Close disconnects every subscriber and refuses new ones
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
	return nil
}
