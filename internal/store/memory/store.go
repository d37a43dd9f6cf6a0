// Package memory provides an in-memory implementation of the state store
package memory

import (
	"context"
	"sync"

	"github.com/illusionlabs/classync/internal/models"
)

// ErrNotFound is returned when a room has no stored state for the requested key
var ErrNotFound = models.ErrStateNotFound

// Store implements the state store contract with in-process maps. State is
// lost on restart; rooms are reseeded with defaults on next access.
type Store struct {
	playback map[string]models.PlaybackState
	meetings map[string]models.MeetingState
	mu       sync.RWMutex
}

// NewStore creates a new in-memory state store
func NewStore() *Store {
	return &Store{
		playback: make(map[string]models.PlaybackState),
		meetings: make(map[string]models.MeetingState),
	}
}

// GetPlaybackState retrieves a room's playback state
func (s *Store) GetPlaybackState(ctx context.Context, room models.RoomID) (*models.PlaybackState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.playback[room.String()]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy so callers never share the stored value
	return &state, nil
}

// SavePlaybackState writes a room's playback state, last writer wins
func (s *Store) SavePlaybackState(ctx context.Context, room models.RoomID, state *models.PlaybackState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback[room.String()] = *state
	return nil
}

// GetMeetingState retrieves a room's meeting metadata
func (s *Store) GetMeetingState(ctx context.Context, room models.RoomID) (*models.MeetingState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.meetings[room.String()]
	if !ok {
		return nil, ErrNotFound
	}

	copied := state
	copied.ActiveBotIDs = append([]string(nil), state.ActiveBotIDs...)
	return &copied, nil
}

// SaveMeetingState writes a room's meeting metadata, last writer wins
func (s *Store) SaveMeetingState(ctx context.Context, room models.RoomID, state *models.MeetingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *state
	copied.ActiveBotIDs = append([]string(nil), state.ActiveBotIDs...)
	s.meetings[room.String()] = copied
	return nil
}

// DeleteRoomState removes both state keys for a room
func (s *Store) DeleteRoomState(ctx context.Context, room models.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.playback, room.String())
	delete(s.meetings, room.String())
	return nil
}
