// Package store defines the state store contract for per-room meeting and
// playback state
package store

import (
	"context"

	"github.com/illusionlabs/classync/internal/models"
)

// ErrNotFound is returned when a room has no stored state for the requested key
var ErrNotFound = models.ErrStateNotFound

// Store is the single source of truth for per-room state. Each key is
// updated independently via read-modify-write cycles with last-writer-wins
// semantics; no cross-key transactionality is offered or required.
type Store interface {
	// Playback state, keyed by room
	GetPlaybackState(ctx context.Context, room models.RoomID) (*models.PlaybackState, error)
	SavePlaybackState(ctx context.Context, room models.RoomID, state *models.PlaybackState) error

	// Meeting metadata, keyed by room
	GetMeetingState(ctx context.Context, room models.RoomID) (*models.MeetingState, error)
	SaveMeetingState(ctx context.Context, room models.RoomID, state *models.MeetingState) error

	// DeleteRoomState removes both keys for a room. Callers are responsible
	// for stopping the room's tick loop separately.
	DeleteRoomState(ctx context.Context, room models.RoomID) error
}
