package models

import (
	"encoding/json"
	"fmt"
)

// UpdateKind discriminates the messages fanned out to room subscribers
type UpdateKind string

const (
	// UpdateKindSync carries the playback state published by the tick loop
	// and by the playback control handlers
	UpdateKindSync UpdateKind = "sync_update"
	// UpdateKindMeeting carries the meeting metadata after an out-of-band
	// change (bots, video, survey, ended flag)
	UpdateKindMeeting UpdateKind = "meeting_state_changed"
	// UpdateKindInitial is sent once to a freshly connected client with the
	// combined meeting and playback snapshot
	UpdateKindInitial UpdateKind = "initial_meeting_state"
	// UpdateKindOrg carries organization-wide resource changes
	UpdateKindOrg UpdateKind = "org_update"
)

// Update is the envelope published on a room's broadcast channel. Every
// message carries a full state snapshot, never a delta; consumers replace
// their local copy wholesale.
type Update struct {
	Kind  UpdateKind      `json:"type"`
	State json.RawMessage `json:"state"`
}

// NewUpdate wraps a state snapshot into an Update envelope
func NewUpdate(kind UpdateKind, state any) (*Update, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s state: %w", kind, err)
	}
	return &Update{Kind: kind, State: data}, nil
}

// Encode serializes the envelope for the wire
func (u *Update) Encode() ([]byte, error) {
	return json.Marshal(u)
}

// DecodeUpdate parses a wire message back into an Update envelope
func DecodeUpdate(data []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode update: %w", err)
	}
	return &u, nil
}

// OrgUpdate describes a change to an organization-scoped resource, fanned
// out to every client watching the organization's finder view.
type OrgUpdate struct {
	Category string `json:"category"`
	Action   string `json:"action"`
	Payload  any    `json:"payload,omitempty"`
}

// InitialState is the combined snapshot pushed to a client on connect
type InitialState struct {
	Meeting  *MeetingState  `json:"meeting"`
	Playback *PlaybackState `json:"playback"`
}
