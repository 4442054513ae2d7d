package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/event"
	"github.com/HerbHall/fleetpulse/internal/monitor"
)

// Handler provides the WebSocket endpoint for real-time monitor updates.
type Handler struct {
	hub    *Hub
	bus    *event.Bus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to monitor events.
func NewHandler(bus *event.Bus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/status", h.handleStatusStream)
}

// handleStatusStream upgrades the connection and streams monitor events
// until the client disconnects.
func (h *Handler) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until the client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards monitor bus events to connected clients.
func (h *Handler) subscribeToEvents() {
	h.bus.Subscribe(monitor.TopicStatusUpdated, func(_ context.Context, e event.Event) {
		snaps, ok := e.Payload.([]monitor.Snapshot)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageStatusUpdate,
			Timestamp: e.Timestamp,
			Data:      StatusUpdateData{Devices: snaps},
		})
	})

	h.bus.Subscribe(monitor.TopicDeviceOnline, func(_ context.Context, e event.Event) {
		snap, ok := e.Payload.(monitor.Snapshot)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageDeviceOnline,
			Timestamp: e.Timestamp,
			Data:      TransitionData{Device: snap},
		})
	})

	h.bus.Subscribe(monitor.TopicDeviceOffline, func(_ context.Context, e event.Event) {
		snap, ok := e.Payload.(monitor.Snapshot)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageDeviceOffline,
			Timestamp: e.Timestamp,
			Data:      TransitionData{Device: snap},
		})
	})

	h.logger.Info("subscribed to monitor events for WebSocket broadcasting")
}
