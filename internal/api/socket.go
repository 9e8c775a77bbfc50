package api

import (
	"net/http"
	"sync/atomic"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/rs/zerolog"

	"signal-controller-go/internal/models"
	"signal-controller-go/internal/services/simulation"
)

const (
	socketNamespace = "/"

	EventSnapshot         = "snapshot"
	EventEmergency        = "emergency"
	EventError            = "controllerError"
	EventTriggerEmergency = "triggerEmergency"
	EventRequestSnapshot  = "requestSnapshot"
)

// SocketController is what socket clients may ask of the simulation
type SocketController interface {
	Snapshot() (models.Snapshot, error)
	TriggerEmergency(laneID models.LaneID, source string) (models.EmergencyEvent, error)
}

// SocketHub pushes snapshots and emergency events to dashboard clients over
// socket.io and accepts emergency triggers from them.
type SocketHub struct {
	server  *socketio.Server
	ctrl    SocketController
	logger  zerolog.Logger
	clients atomic.Int64
}

func allowAnyOrigin(*http.Request) bool { return true }

// NewSocketHub creates the socket.io server and registers its handlers
func NewSocketHub(ctrl SocketController, logger zerolog.Logger) *SocketHub {
	server := socketio.NewServer(&engineio.Options{
		PingTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		Transports: []transport.Transport{
			&websocket.Transport{CheckOrigin: allowAnyOrigin},
			&polling.Transport{CheckOrigin: allowAnyOrigin},
		},
	})

	h := &SocketHub{server: server, ctrl: ctrl, logger: logger}

	server.OnConnect(socketNamespace, func(s socketio.Conn) error {
		s.SetContext("")
		n := h.clients.Add(1)
		h.logger.Debug().Str("socket_id", s.ID()).Stringer("remote", s.RemoteAddr()).Int64("clients", n).Msg("Socket connected")
		h.sendSnapshot(s)
		return nil
	})

	server.OnEvent(socketNamespace, EventRequestSnapshot, func(s socketio.Conn) {
		h.sendSnapshot(s)
	})

	server.OnEvent(socketNamespace, EventTriggerEmergency, func(s socketio.Conn, lane string) {
		if _, err := h.triggerFromClient(lane); err != nil {
			s.Emit(EventError, map[string]string{"message": err.Error()})
		}
	})

	server.OnError(socketNamespace, func(s socketio.Conn, err error) {
		h.logger.Warn().Err(err).Msg("Socket error")
	})

	server.OnDisconnect(socketNamespace, func(s socketio.Conn, reason string) {
		n := h.clients.Add(-1)
		h.logger.Debug().Str("socket_id", s.ID()).Str("reason", reason).Int64("clients", n).Msg("Socket disconnected")
	})

	return h
}

func (h *SocketHub) sendSnapshot(s socketio.Conn) {
	snap, err := h.ctrl.Snapshot()
	if err != nil {
		return
	}
	s.Emit(EventSnapshot, snap)
}

// triggerFromClient applies an emergency requested by a dashboard. The
// resulting event reaches every client through PublishEmergency.
func (h *SocketHub) triggerFromClient(lane string) (models.EmergencyEvent, error) {
	id, err := models.ParseLaneID(lane)
	if err != nil {
		return models.EmergencyEvent{}, err
	}
	event, err := h.ctrl.TriggerEmergency(id, simulation.SourceManual)
	if err != nil {
		h.logger.Debug().Err(err).Str("lane", lane).Msg("Socket emergency trigger rejected")
		return models.EmergencyEvent{}, err
	}
	h.logger.Warn().Str("lane_id", id.String()).Msg("Emergency override triggered via socket")
	return event, nil
}

// PublishSnapshot broadcasts a committed snapshot to all clients
func (h *SocketHub) PublishSnapshot(snap models.Snapshot) {
	if h.clients.Load() <= 0 {
		return
	}
	h.server.BroadcastToNamespace(socketNamespace, EventSnapshot, snap)
}

// PublishEmergency broadcasts an override start or clear to all clients
func (h *SocketHub) PublishEmergency(event models.EmergencyEvent) {
	if h.clients.Load() <= 0 {
		return
	}
	h.server.BroadcastToNamespace(socketNamespace, EventEmergency, event)
}

// Clients returns the number of connected clients
func (h *SocketHub) Clients() int64 {
	return h.clients.Load()
}

// Handler returns the HTTP handler serving /socket.io/
func (h *SocketHub) Handler() http.Handler {
	return h.server
}

// Serve runs the socket.io event loop until Close
func (h *SocketHub) Serve() {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Interface("panic", r).Msg("Socket server panicked")
		}
	}()
	if err := h.server.Serve(); err != nil {
		h.logger.Error().Err(err).Msg("Socket server stopped")
	}
}

// Close shuts the socket.io server down
func (h *SocketHub) Close() error {
	return h.server.Close()
}
