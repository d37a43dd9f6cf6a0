package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRoomID is returned when a room identifier cannot be parsed
var ErrInvalidRoomID = errors.New("invalid room identifier")

// RoomID identifies one meeting's synchronization domain. It is composed of
// the owning organization's ID and the meeting's room name, and is stable for
// the lifetime of the meeting.
type RoomID struct {
	OrgID    string `json:"org_id"`
	RoomName string `json:"room_name"`
}

// NewRoomID creates a RoomID from an organization ID and a room name
func NewRoomID(orgID, roomName string) RoomID {
	return RoomID{OrgID: orgID, RoomName: roomName}
}

// ParseRoomID parses a "<org-id>:<room-name>" key back into a RoomID
func ParseRoomID(key string) (RoomID, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RoomID{}, fmt.Errorf("%w: %q", ErrInvalidRoomID, key)
	}
	return RoomID{OrgID: parts[0], RoomName: parts[1]}, nil
}

// String returns the canonical "<org-id>:<room-name>" form of the room key
func (r RoomID) String() string {
	return r.OrgID + ":" + r.RoomName
}

// IsValid reports whether both components of the room key are present
func (r RoomID) IsValid() bool {
	return r.OrgID != "" && r.RoomName != ""
}

// Channel returns the broadcast bus channel name for this room
func (r RoomID) Channel() string {
	return "meeting:" + r.String()
}

// OrgChannel returns the broadcast bus channel for organization-wide updates
func OrgChannel(orgID string) string {
	return "org:" + orgID
}
