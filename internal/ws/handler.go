package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/viewhub/viewhub/internal/infrastructure/logging"
	"github.com/viewhub/viewhub/internal/infrastructure/monitoring"
	"github.com/viewhub/viewhub/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

const clientBuffer = 32

// Handler broadcasts session store events to WebSocket clients. Store
// events arrive synchronously from mutating calls, so Publish only
// enqueues; slow clients are disconnected rather than allowed to block.
type Handler struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	clients map[string]chan interface{}
}

// NewHandler creates a new WebSocket broadcast handler
func NewHandler(logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		logger:  logger,
		metrics: metrics,
		clients: make(map[string]chan interface{}),
	}
}

// Publish fans a store event out to all connected clients. Safe to call
// from store subscribers; it never blocks.
func (h *Handler) Publish(event types.Event) {
	payload := envelope(event)
	if payload == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			// Client can't keep up; closing the channel ends its writer.
			close(ch)
			delete(h.clients, id)
		}
	}
}

// HandleConnection upgrades the request and streams events until the
// client disconnects
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	events := h.register(clientID)
	defer h.unregister(clientID)

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}
	h.logger.Debug("websocket client connected", zap.String("client_id", clientID))

	_ = conn.WriteJSON(map[string]interface{}{
		"type":      "system",
		"message":   "Connected to ViewHub event stream",
		"client_id": clientID,
	})

	// Reader goroutine: only pings and the close handshake are expected.
	// Pongs are routed through the main loop so a single goroutine writes.
	done := make(chan struct{})
	pings := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			var msg struct {
				Type string `json:"type"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-pings:
			if err := conn.WriteJSON(map[string]interface{}{"type": "pong"}); err != nil {
				return
			}
		case payload, ok := <-events:
			if !ok {
				h.logger.Warn("dropping slow websocket client", zap.String("client_id", clientID))
				return
			}
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		}
	}
}

func (h *Handler) register(clientID string) chan interface{} {
	ch := make(chan interface{}, clientBuffer)
	h.mu.Lock()
	h.clients[clientID] = ch
	h.mu.Unlock()
	return ch
}

func (h *Handler) unregister(clientID string) {
	h.mu.Lock()
	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
	h.mu.Unlock()
}

// envelope flattens a store event into the wire shape clients consume.
func envelope(event types.Event) interface{} {
	if event == nil {
		return nil
	}

	msg := map[string]interface{}{
		"type":      event.EventType(),
		"timestamp": time.Now().Unix(),
	}

	switch e := event.(type) {
	case types.SessionCreated:
		msg["session"] = e.Session.View()
	case types.SessionRemoved:
		msg["session"] = e.Session.View()
		msg["evicted"] = e.Evicted
	case types.SessionStateChanged:
		msg["session"] = e.Session.View()
		msg["old_state"] = e.Old.String()
		msg["new_state"] = e.New.String()
	case types.ActiveSessionChanged:
		if e.Session != nil {
			msg["session"] = e.Session.View()
		} else {
			msg["session"] = nil
		}
	}
	return msg
}
