package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/console"
)

const writeWait = 10 * time.Second

// Hub pushes the re-rendered target list to every connected browser
// whenever the store changes.
type Hub struct {
	renderer *Renderer
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// mu guards clients and current, and serialises writes to the conns.
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	current func() TableView

	broadcast chan []byte
}

// NewHub creates a Hub. Run must be started for broadcasts to be sent.
// Handshakes from another origin are refused.
func NewHub(renderer *Renderer, logger *zap.Logger) *Hub {
	return &Hub{
		renderer:  renderer,
		logger:    logger,
		upgrader:  websocket.Upgrader{},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 16),
	}
}

// Attach subscribes the hub to store changes. filter supplies the
// active search shown above the table.
func (h *Hub) Attach(store *console.Store, filter func() string) (cancel func()) {
	h.mu.Lock()
	h.current = func() TableView { return BuildTable(store.Snapshot(), filter()) }
	h.mu.Unlock()
	return store.Subscribe(func(snap console.Snapshot) {
		h.Publish(BuildTable(snap, filter()))
	})
}

// Publish renders view and queues it for broadcast. When the queue is
// full the oldest pending update is dropped; only the latest matters.
func (h *Hub) Publish(view TableView) {
	data, err := h.renderer.Fragment(tmplListSurface, view)
	if err != nil {
		h.logger.Error("ws_render_failed", zap.Error(err))
		return
	}
	for {
		select {
		case h.broadcast <- data:
			return
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

// Run sends queued updates until ctx is done, then closes all clients.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

func (h *Hub) send(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("ws_client_dropped", zap.Error(err))
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the connection, sends the current list and keeps the
// client registered until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws_upgrade_failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if h.current != nil {
		data, err := h.renderer.Fragment(tmplListSurface, h.current())
		if err == nil {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.TextMessage, data)
		}
		if err != nil {
			h.mu.Unlock()
			h.logger.Warn("ws_initial_send_failed", zap.Error(err))
			conn.Close()
			return
		}
	}
	h.clients[conn] = true
	h.mu.Unlock()
	h.logger.Debug("ws_client_connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
	h.logger.Debug("ws_client_disconnected")
}
