package api

import (
	"net/http"

	"github.com/illusionlabs/classync/internal/service"
)

// SetupRoutes configures the HTTP routes for the control API. The realtime
// surfaces (websocket gateway, SSE stream) are passed in as handlers so the
// mux stays the single routing table for the whole server.
func SetupRoutes(meetingService *service.MeetingService, wsHandler, eventsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints for Kubernetes
	mux.HandleFunc("/health/live", HealthLiveHandler)
	mux.HandleFunc("/health/ready", HealthReadyHandler)

	// Room state and playback control endpoints
	roomHandler := NewRoomHandler(meetingService)
	mux.Handle("/api/rooms/", roomHandler)

	// Realtime meeting sync connections
	if wsHandler != nil {
		mux.Handle("/ws/meetings/", wsHandler)
	}

	// Organization-wide update stream
	if eventsHandler != nil {
		mux.Handle("/events/orgs/", eventsHandler)
	}

	return mux
}
