package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"SignalPull/internal/domain/models"
	xhttp "SignalPull/pkg/http"
	"SignalPull/pkg/logger"
)

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
)

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	strategy models.Strategy // empty means every strategy
}

func newClient(conn *websocket.Conn, strategy models.Strategy) *client {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), strategy: strategy}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
}

func (c *client) wants(s models.Strategy) bool { return c.strategy == "" || c.strategy == s }

// Hub pushes snapshots to WebSocket clients. It is registered as a snapshot
// sink on every engine and keeps the latest snapshot per strategy so a new
// client gets the current state right away.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	latest     map[models.Strategy]models.Snapshot
	maxClients int
	pending    int // upgrades holding a slot
	closed     bool
	upgrader   websocket.Upgrader
	log        *logger.Logger
}

func NewHub(maxClients int, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		latest:     make(map[models.Strategy]models.Snapshot),
		maxClients: maxClients,
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:        log,
	}
}

func (h *Hub) Name() string { return "ws_hub" }

// Publish records s and fans it out. Slow clients are disconnected.
func (h *Hub) Publish(_ context.Context, s models.Snapshot) error {
	h.mu.Lock()
	h.latest[s.Strategy] = s
	h.mu.Unlock()

	h.broadcast(s.Strategy, WSMessage{Type: MsgSnapshot, Payload: SnapshotPayload{Snapshot: s}})
	if s.Transition.Changed() {
		h.broadcast(s.Strategy, WSMessage{Type: MsgSignal, Payload: SignalPayload{Event: models.EventFromSnapshot(s)}})
	}
	return nil
}

// Serve upgrades the request and streams snapshots until the client leaves.
// The optional "strategy" query parameter narrows the stream.
func (h *Hub) Serve(c echo.Context) error {
	strategy := models.Strategy(c.QueryParam("strategy"))

	if !h.reserve() {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("too many stream clients"))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.release()
		h.log.Warn("ws upgrade failed", logger.Error(err))
		return nil
	}

	// Clear the deadline inherited from the HTTP server's read timeout.
	_ = conn.SetReadDeadline(time.Time{})

	cl := h.add(conn, strategy)
	if cl == nil {
		return nil
	}
	h.log.Debug("ws client connected", logger.String("remote", c.RealIP()), logger.String("strategy", string(strategy)))

	go func() {
		defer h.remove(cl)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

// reserve claims a client slot for an upgrade in progress.
func (h *Hub) reserve() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || (h.maxClients > 0 && len(h.clients)+h.pending >= h.maxClients) {
		return false
	}
	h.pending++
	return true
}

func (h *Hub) release() {
	h.mu.Lock()
	h.pending--
	h.mu.Unlock()
}

// add turns a reserved slot into a registered client.
func (h *Hub) add(conn *websocket.Conn, filter models.Strategy) *client {
	c := newClient(conn, filter)

	h.mu.Lock()
	h.pending--
	if h.closed {
		h.mu.Unlock()
		close(c.send)
		return nil
	}
	h.clients[c] = struct{}{}
	for strategy, snap := range h.latest {
		if !c.wants(strategy) {
			continue
		}
		data, err := json.Marshal(WSMessage{Type: MsgSnapshot, Payload: SnapshotPayload{Snapshot: snap}})
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
	h.mu.Unlock()
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(strategy models.Strategy, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("ws marshal failed", logger.Error(err))
		return
	}

	// Sends are non-blocking, so they happen under the read lock and never
	// race with remove closing a channel.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		if !c.wants(strategy) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("ws client too slow, disconnecting")
		h.remove(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
