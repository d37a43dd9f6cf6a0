// Package gateway accepts realtime connections, joins them to their room in
// the session registry (which ensures the room's playback loop), and relays
// every broadcast bus message for the room out to the socket. The gateway is
// a thin relay: clients mutate state through the HTTP control surface, not
// through the socket.
package gateway

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/illusionlabs/classync/internal/bus"
	"github.com/illusionlabs/classync/internal/models"
	"github.com/illusionlabs/classync/internal/playback"
	"github.com/illusionlabs/classync/internal/service"
	"github.com/illusionlabs/classync/internal/utils"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsReadBufferSize,
	WriteBufferSize: wsWriteBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced upstream by the CORS layer
		return true
	},
}

// Handler upgrades meeting sync connections
type Handler struct {
	registry *playback.Registry
	service  *service.MeetingService
	bus      bus.Bus
}

// NewHandler creates a gateway handler
func NewHandler(registry *playback.Registry, svc *service.MeetingService, b bus.Bus) *Handler {
	return &Handler{
		registry: registry,
		service:  svc,
		bus:      b,
	}
}

// ServeHTTP handles GET /ws/meetings/{orgID}/{roomName}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	room, ok := roomFromPath(r.URL.Path)
	if !ok {
		http.Error(w, "Invalid room path", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Printf("WebSocket upgrade failed for room %s: %v", room, err)
		return
	}

	connID := xid.New().String()
	log.Printf("Client %s connected to room %s from %s", connID, utils.SanitizeLogString(room.String()), conn.RemoteAddr())

	// Join first: this seeds default state and ensures the playback loop,
	// then subscribe so the relay sees everything published from now on
	h.registry.Join(r.Context(), room, connID)

	sub, err := h.bus.Subscribe(room.Channel())
	if err != nil {
		log.Printf("Failed to subscribe client %s to room %s: %v", connID, room, err)
		h.registry.Leave(room, connID)
		conn.Close()
		return
	}

	c := newClient(connID, room, conn, sub, h.registry)

	// Push the combined snapshot so the client can render immediately
	if initial, err := h.service.GetInitialState(r.Context(), room); err == nil {
		if update, err := models.NewUpdate(models.UpdateKindInitial, initial); err == nil {
			c.sendUpdate(update)
		}
	} else {
		log.Printf("Failed to load initial state for room %s: %v", room, err)
	}

	go c.writePump()
	go c.readPump()
}

// roomFromPath extracts the room key from /ws/meetings/{orgID}/{roomName}.
// Room names may contain slashes-free arbitrary text; both parts must be
// non-empty.
func roomFromPath(path string) (models.RoomID, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "ws" || parts[1] != "meetings" {
		return models.RoomID{}, false
	}

	room := models.NewRoomID(parts[2], parts[3])
	if !room.IsValid() {
		return models.RoomID{}, false
	}
	return room, true
}
