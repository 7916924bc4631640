// Package wshub broadcasts event bus activity to connected WebSocket
// clients, for live dashboards watching a running simulator.
package wshub

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"plcsim/internal/eventbus"
)

// Hub upgrades incoming HTTP requests to WebSocket connections and
// fans out every event bus message to all of them as JSON.
type Hub struct {
	logger   *zap.Logger
	bus      *eventbus.Bus
	upgrader websocket.Upgrader
	clients  sync.Map // map[*websocket.Conn]struct{}
	sub      chan eventbus.Event
}

// New returns a Hub that has not yet started consuming the bus.
func New(logger *zap.Logger, bus *eventbus.Bus) *Hub {
	return &Hub{
		logger: logger,
		bus:    bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start subscribes to the event bus and begins broadcasting.
func (h *Hub) Start() {
	h.sub = h.bus.Subscribe(64)
	go h.loop()
}

// Stop unsubscribes from the event bus and closes all client connections.
func (h *Hub) Stop() {
	if h.sub != nil {
		h.bus.Unsubscribe(h.sub)
	}
	h.clients.Range(func(key, _ interface{}) bool {
		key.(*websocket.Conn).Close()
		return true
	})
}

func (h *Hub) loop() {
	for ev := range h.sub {
		h.broadcast(ev)
	}
}

func (h *Hub) broadcast(ev eventbus.Event) {
	message := map[string]string{
		"task":   ev.Task,
		"kind":   ev.Kind,
		"detail": ev.Detail,
	}

	h.clients.Range(func(key, _ interface{}) bool {
		conn := key.(*websocket.Conn)
		if err := conn.WriteJSON(message); err != nil {
			h.clients.Delete(conn)
			conn.Close()
		}
		return true
	})
}

// ServeHTTP upgrades the request and registers the client for broadcasts.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	h.clients.Store(conn, struct{}{})
	h.logger.Info("telemetry websocket client connected")

	defer func() {
		h.clients.Delete(conn)
		conn.Close()
		h.logger.Info("telemetry websocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
