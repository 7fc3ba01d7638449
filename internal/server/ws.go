package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/akshara/internal/tracker"
)

const (
	writeWait  = 2 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is one frame on the cursor socket.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Message types.
const (
	MessageCursor    = "cursor"
	MessageSelection = "selection"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// CursorHub pushes tracker snapshots to WebSocket clients at a fixed rate
// and forwards selection events as they happen. A client that falls behind
// loses messages rather than slowing the others.
type CursorHub struct {
	source   func() tracker.Snapshot
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewCursorHub creates a hub polling source every interval.
func NewCursorHub(source func() tracker.Snapshot, interval time.Duration) *CursorHub {
	h := &CursorHub{
		source:   source,
		interval: interval,
		clients:  make(map[*client]struct{}),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *CursorHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}
	go h.write(c)

	// Greet with the current state so the UI does not wait a tick.
	if msg, err := encode(MessageCursor, h.source()); err == nil {
		h.offer(c, msg)
	}

	// Reads only detect the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

func (h *CursorHub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	logger.Debugf("cursor client connected (%d)", len(h.clients))
	return true
}

func (h *CursorHub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// write drains the client's queue; it owns the connection's write side and
// closes the connection when the queue is closed or a write fails.
func (h *CursorHub) write(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Debugf("cursor client write: %v", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// offer queues msg for c without blocking. The caller must not hold h.mu
// for writing.
func (h *CursorHub) offer(c *client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *CursorHub) publish(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			logger.Debugf("cursor client behind, message dropped")
		}
	}
}

// Selection forwards a judged selection to every client. It never blocks,
// so it can be registered as a tracker listener.
func (h *CursorHub) Selection(sel tracker.Selection) {
	msg, err := encode(MessageSelection, sel)
	if err != nil {
		logger.Warnf("encode selection: %v", err)
		return
	}
	h.publish(msg)
}

// broadcast sends snapshot data to all connected clients.
func (h *CursorHub) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}
		msg, err := encode(MessageCursor, h.source())
		if err != nil {
			logger.Warnf("encode snapshot: %v", err)
			continue
		}
		h.publish(msg)
	}
}

// Clients returns the number of connected clients.
func (h *CursorHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops broadcasting and disconnects every client. New connections
// are refused afterwards.
func (h *CursorHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
	})
}

func encode(kind string, data any) ([]byte, error) {
	return json.Marshal(Message{Type: kind, Data: data})
}
