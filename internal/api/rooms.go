package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/illusionlabs/classync/internal/models"
	"github.com/illusionlabs/classync/internal/service"
	"github.com/illusionlabs/classync/internal/utils"
)

// RoomHandler handles the HTTP control surface for room synchronization
// state. These are the out-of-band mutations that coexist with each room's
// playback loop; every mutation is broadcast to the room's subscribers.
type RoomHandler struct {
	meetingService *service.MeetingService
}

// NewRoomHandler creates a new room handler backed by the meeting service
func NewRoomHandler(meetingService *service.MeetingService) *RoomHandler {
	return &RoomHandler{meetingService: meetingService}
}

// ServeHTTP routes requests of the form /api/rooms/{orgID}/{roomName}[/...]
func (h *RoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Path format: /api/rooms/{orgID}/{roomName}/{resource...}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "rooms" {
		http.NotFound(w, r)
		return
	}

	room := models.NewRoomID(parts[2], parts[3])
	if !room.IsValid() {
		http.Error(w, "Invalid room identifier", http.StatusBadRequest)
		return
	}
	action := strings.Join(parts[4:], "/")

	switch {
	case r.Method == http.MethodGet && action == "playback":
		h.getPlayback(w, r, room)
	case r.Method == http.MethodPost && action == "playback":
		h.updatePlayback(w, r, room)
	case r.Method == http.MethodPost && action == "playback/start":
		h.startPlayback(w, r, room)
	case r.Method == http.MethodPost && action == "playback/pause":
		h.pausePlayback(w, r, room)
	case r.Method == http.MethodPost && action == "playback/reset":
		h.resetPlayback(w, r, room)
	case r.Method == http.MethodGet && action == "state":
		h.getMeetingState(w, r, room)
	case r.Method == http.MethodPost && action == "state":
		h.updateMeetingState(w, r, room)
	case r.Method == http.MethodPost && action == "end":
		h.endMeeting(w, r, room)
	case r.Method == http.MethodPost && action == "restart":
		h.restartMeeting(w, r, room)
	case r.Method == http.MethodDelete && action == "":
		h.deleteMeeting(w, r, room)
	default:
		http.NotFound(w, r)
	}
}

// getPlayback handles GET .../playback
func (h *RoomHandler) getPlayback(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	state, err := h.meetingService.GetPlaybackState(r.Context(), room)
	if err != nil {
		log.Printf("Error getting playback state for %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error retrieving playback state", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(state)
}

// updatePlayback handles POST .../playback with a partial update body
func (h *RoomHandler) updatePlayback(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	var update models.PlaybackUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	state, err := h.meetingService.UpdatePlaybackState(r.Context(), room, update)
	if err != nil {
		log.Printf("Error updating playback state for %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error updating playback state", http.StatusBadRequest)
		return
	}

	json.NewEncoder(w).Encode(state)
}

// startPlayback handles POST .../playback/start
func (h *RoomHandler) startPlayback(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	state, err := h.meetingService.StartVideo(r.Context(), room)
	if err != nil {
		log.Printf("Error starting playback for %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error starting playback", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(state)
}

// pausePlayback handles POST .../playback/pause
func (h *RoomHandler) pausePlayback(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	state, err := h.meetingService.PauseVideo(r.Context(), room)
	if err != nil {
		log.Printf("Error pausing playback for %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error pausing playback", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(state)
}

// resetPlayback handles POST .../playback/reset
func (h *RoomHandler) resetPlayback(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	state, err := h.meetingService.ResetVideo(r.Context(), room)
	if err != nil {
		log.Printf("Error resetting playback for %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error resetting playback", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(state)
}

// getMeetingState handles GET .../state
func (h *RoomHandler) getMeetingState(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	state, err := h.meetingService.GetMeetingState(r.Context(), room)
	if err != nil {
		log.Printf("Error getting meeting state for %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error retrieving meeting state", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(state)
}

// updateMeetingState handles POST .../state with a partial update body
func (h *RoomHandler) updateMeetingState(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	var update models.MeetingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	state, err := h.meetingService.UpdateMeetingState(r.Context(), room, update)
	if err != nil {
		log.Printf("Error updating meeting state for %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error updating meeting state", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(state)
}

// endMeeting handles POST .../end
func (h *RoomHandler) endMeeting(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	state, err := h.meetingService.EndMeeting(r.Context(), room)
	if err != nil {
		log.Printf("Error ending meeting %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error ending meeting", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(state)
}

// restartMeeting handles POST .../restart
func (h *RoomHandler) restartMeeting(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	state, err := h.meetingService.RestartMeeting(r.Context(), room)
	if err != nil {
		log.Printf("Error restarting meeting %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error restarting meeting", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(state)
}

// deleteMeeting handles DELETE /api/rooms/{orgID}/{roomName}. This is the
// administrative trigger that tears down the room's playback loop.
func (h *RoomHandler) deleteMeeting(w http.ResponseWriter, r *http.Request, room models.RoomID) {
	if err := h.meetingService.DeleteMeeting(r.Context(), room); err != nil {
		log.Printf("Error deleting meeting %s: %v", utils.SanitizeLogString(room.String()), err)
		http.Error(w, "Error deleting meeting", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"message": "Meeting deleted successfully",
	})
}
