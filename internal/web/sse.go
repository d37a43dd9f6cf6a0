// Package web serves the organization-wide event stream over server-sent
// events. Finder views subscribe here to learn about meeting creation and
// deletion without holding a websocket per room.
package web

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/rs/xid"

	"github.com/illusionlabs/classync/internal/bus"
	"github.com/illusionlabs/classync/internal/models"
	"github.com/illusionlabs/classync/internal/utils"
)

// defaultHeartbeat keeps intermediary proxies from timing out idle streams
const defaultHeartbeat = 15 * time.Second

// SSEManager streams organization updates to connected clients
type SSEManager struct {
	bus       bus.Bus
	heartbeat time.Duration
}

// NewSSEManager creates a new server-sent events manager
func NewSSEManager(b bus.Bus) *SSEManager {
	return &SSEManager{
		bus:       b,
		heartbeat: defaultHeartbeat,
	}
}

// ServeHTTP handles GET /events/orgs/{orgID} as a long-lived event stream
func (sm *SSEManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS headers so browser EventSource clients work cross-origin
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	orgID, ok := orgFromPath(r.URL.Path)
	if !ok {
		http.Error(w, "Invalid organization path", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sub, err := sm.bus.Subscribe(models.OrgChannel(orgID))
	if err != nil {
		log.Printf("Failed to subscribe SSE client to org %s: %v", utils.SanitizeLogString(orgID), err)
		http.Error(w, "Error subscribing to updates", http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	clientID := xid.New().String()
	log.Printf("SSE client %s connected to org %s from %s", clientID, utils.SanitizeLogString(orgID), r.RemoteAddr)
	defer log.Printf("SSE client %s disconnected from org %s", clientID, utils.SanitizeLogString(orgID))

	fmt.Fprintf(w, "retry: 5000\n")
	sse.Encode(w, sse.Event{
		Event: "connected",
		Data:  map[string]string{"id": clientID},
	})
	flusher.Flush()

	heartbeat := time.NewTicker(sm.heartbeat)
	defer heartbeat.Stop()

	done := r.Context().Done()

	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().Format(time.RFC3339)); err != nil {
				return
			}
			flusher.Flush()
		case update, open := <-sub.Updates():
			if !open {
				return
			}
			if err := sse.Encode(w, sse.Event{
				Id:    xid.New().String(),
				Event: string(update.Kind),
				Data:  update.State,
			}); err != nil {
				log.Printf("Error sending SSE event to client %s: %v", clientID, err)
				return
			}
			flusher.Flush()
		}
	}
}

// orgFromPath extracts the organization ID from /events/orgs/{orgID}
func orgFromPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "events" || parts[1] != "orgs" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
