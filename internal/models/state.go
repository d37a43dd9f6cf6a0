package models

import (
	"errors"
	"time"
)

// ErrStateNotFound is returned by state stores when a room has no stored
// value for the requested key. Absent state is an expected condition: rooms
// are created lazily on first access.
var ErrStateNotFound = errors.New("state not found")

// PlaybackState is the shared, authoritative video-position data for a room.
// It is owned by the state store; the tick loop and the control handlers both
// operate on it via read-modify-write cycles, last writer wins.
type PlaybackState struct {
	Stopped     bool      `json:"stopped"`
	CurrentTime float64   `json:"current_time"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// DefaultPlaybackState returns the state a room starts in: stopped at 0s.
func DefaultPlaybackState() *PlaybackState {
	return &PlaybackState{
		Stopped:     true,
		CurrentTime: 0.0,
	}
}

// MeetingState holds the shared metadata about what is currently active in a
// room: the simulated participant bots, the video being played back, and the
// survey being shown.
type MeetingState struct {
	OrgID          string    `json:"org_id"`
	RoomName       string    `json:"room_name"`
	ActiveBotIDs   []string  `json:"active_bot_ids"`
	ActiveVideoID  *string   `json:"active_video_id"`
	ActiveSurveyID *string   `json:"active_survey_id"`
	Ended          bool      `json:"ended"`
	LastUpdated    time.Time `json:"last_updated,omitempty"`
}

// DefaultMeetingState returns the meeting metadata a room starts with. A
// room begins ended; an explicit restart marks the meeting live.
func DefaultMeetingState(room RoomID) *MeetingState {
	return &MeetingState{
		OrgID:        room.OrgID,
		RoomName:     room.RoomName,
		ActiveBotIDs: []string{},
		Ended:        true,
	}
}

// PlaybackUpdate carries a partial out-of-band mutation of the playback
// state. Nil fields are left untouched.
type PlaybackUpdate struct {
	CurrentTime *float64 `json:"current_time,omitempty"`
	Stopped     *bool    `json:"stopped,omitempty"`
}

// MeetingUpdate carries a partial mutation of the meeting metadata. Nil
// fields are left untouched; a non-nil empty bot list clears the bots.
type MeetingUpdate struct {
	ActiveBotIDs   *[]string `json:"active_bot_ids,omitempty"`
	ActiveVideoID  *string   `json:"active_video_id,omitempty"`
	ActiveSurveyID *string   `json:"active_survey_id,omitempty"`
}
