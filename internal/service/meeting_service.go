// Package service provides the out-of-band control operations that coexist
// with the per-room playback loop: pause, resume, seek, reset, meeting
// lifecycle, and active bot/video/survey changes. Every mutation follows the
// same discipline as the loop itself: read the shared state, modify, write
// back, publish the full snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/illusionlabs/classync/internal/bus"
	"github.com/illusionlabs/classync/internal/models"
	"github.com/illusionlabs/classync/internal/playback"
	"github.com/illusionlabs/classync/internal/store"
)

// MeetingService mediates all out-of-band access to room state
type MeetingService struct {
	store    store.Store
	bus      bus.Bus
	registry *playback.Registry
}

// NewMeetingService creates a new MeetingService
func NewMeetingService(st store.Store, b bus.Bus, registry *playback.Registry) *MeetingService {
	return &MeetingService{
		store:    st,
		bus:      b,
		registry: registry,
	}
}

// GetPlaybackState returns the room's playback state, falling back to the
// default (stopped at 0s) for rooms that were never written
func (s *MeetingService) GetPlaybackState(ctx context.Context, room models.RoomID) (*models.PlaybackState, error) {
	state, err := s.store.GetPlaybackState(ctx, room)
	if err != nil {
		if errors.Is(err, models.ErrStateNotFound) {
			return models.DefaultPlaybackState(), nil
		}
		return nil, err
	}
	return state, nil
}

// GetMeetingState returns the room's meeting metadata, falling back to the
// default for rooms that were never written
func (s *MeetingService) GetMeetingState(ctx context.Context, room models.RoomID) (*models.MeetingState, error) {
	state, err := s.store.GetMeetingState(ctx, room)
	if err != nil {
		if errors.Is(err, models.ErrStateNotFound) {
			return models.DefaultMeetingState(room), nil
		}
		return nil, err
	}
	return state, nil
}

// GetInitialState returns the combined snapshot pushed to a freshly
// connected client
func (s *MeetingService) GetInitialState(ctx context.Context, room models.RoomID) (*models.InitialState, error) {
	meeting, err := s.GetMeetingState(ctx, room)
	if err != nil {
		return nil, err
	}
	playbackState, err := s.GetPlaybackState(ctx, room)
	if err != nil {
		return nil, err
	}
	return &models.InitialState{Meeting: meeting, Playback: playbackState}, nil
}

// UpdatePlaybackState applies a partial out-of-band mutation (seek and/or
// pause flag), writes it back and broadcasts the new snapshot. Fields left
// nil in the update are untouched.
func (s *MeetingService) UpdatePlaybackState(ctx context.Context, room models.RoomID, update models.PlaybackUpdate) (*models.PlaybackState, error) {
	state, err := s.GetPlaybackState(ctx, room)
	if err != nil {
		return nil, err
	}

	if update.CurrentTime != nil {
		if *update.CurrentTime < 0 {
			return nil, fmt.Errorf("current_time must be non-negative, got %v", *update.CurrentTime)
		}
		state.CurrentTime = *update.CurrentTime
	}
	if update.Stopped != nil {
		state.Stopped = *update.Stopped
	}

	return s.savePlayback(ctx, room, state)
}

// StartVideo resumes playback, keeping the current position
func (s *MeetingService) StartVideo(ctx context.Context, room models.RoomID) (*models.PlaybackState, error) {
	state, err := s.GetPlaybackState(ctx, room)
	if err != nil {
		return nil, err
	}

	state.Stopped = false
	return s.savePlayback(ctx, room, state)
}

// PauseVideo stops playback, keeping the current position
func (s *MeetingService) PauseVideo(ctx context.Context, room models.RoomID) (*models.PlaybackState, error) {
	state, err := s.GetPlaybackState(ctx, room)
	if err != nil {
		return nil, err
	}

	state.Stopped = true
	return s.savePlayback(ctx, room, state)
}

// ResetVideo rewinds the room to a stopped clock at 0s
func (s *MeetingService) ResetVideo(ctx context.Context, room models.RoomID) (*models.PlaybackState, error) {
	return s.savePlayback(ctx, room, models.DefaultPlaybackState())
}

// savePlayback timestamps, persists and broadcasts a playback snapshot
func (s *MeetingService) savePlayback(ctx context.Context, room models.RoomID, state *models.PlaybackState) (*models.PlaybackState, error) {
	state.LastUpdated = time.Now().UTC()

	if err := s.store.SavePlaybackState(ctx, room, state); err != nil {
		return nil, err
	}

	s.publish(ctx, room.Channel(), models.UpdateKindSync, state)
	return state, nil
}

// UpdateMeetingState applies a partial mutation of the active bots, video
// and survey references, writes it back and broadcasts the new snapshot
func (s *MeetingService) UpdateMeetingState(ctx context.Context, room models.RoomID, update models.MeetingUpdate) (*models.MeetingState, error) {
	state, err := s.GetMeetingState(ctx, room)
	if err != nil {
		return nil, err
	}

	if update.ActiveBotIDs != nil {
		state.ActiveBotIDs = *update.ActiveBotIDs
		if state.ActiveBotIDs == nil {
			state.ActiveBotIDs = []string{}
		}
	}
	if update.ActiveVideoID != nil {
		state.ActiveVideoID = update.ActiveVideoID
	}
	if update.ActiveSurveyID != nil {
		state.ActiveSurveyID = update.ActiveSurveyID
	}

	return s.saveMeeting(ctx, room, state)
}

// EndMeeting marks the meeting as ended, retaining bots, video and survey
// references for the post-meeting survey flow
func (s *MeetingService) EndMeeting(ctx context.Context, room models.RoomID) (*models.MeetingState, error) {
	state, err := s.GetMeetingState(ctx, room)
	if err != nil {
		return nil, err
	}

	state.Ended = true
	return s.saveMeeting(ctx, room, state)
}

// RestartMeeting marks the meeting as live again
func (s *MeetingService) RestartMeeting(ctx context.Context, room models.RoomID) (*models.MeetingState, error) {
	state, err := s.GetMeetingState(ctx, room)
	if err != nil {
		return nil, err
	}

	state.Ended = false
	return s.saveMeeting(ctx, room, state)
}

// saveMeeting timestamps, persists and broadcasts a meeting snapshot
func (s *MeetingService) saveMeeting(ctx context.Context, room models.RoomID, state *models.MeetingState) (*models.MeetingState, error) {
	state.LastUpdated = time.Now().UTC()

	if err := s.store.SaveMeetingState(ctx, room, state); err != nil {
		return nil, err
	}

	s.publish(ctx, room.Channel(), models.UpdateKindMeeting, state)
	return state, nil
}

// DeleteMeeting is the administrative teardown path: it stops the room's
// playback loop, removes the room's state, and notifies the organization's
// watchers. The loop stop comes first so no tick can resurrect state.
func (s *MeetingService) DeleteMeeting(ctx context.Context, room models.RoomID) error {
	s.registry.StopScheduler(room)

	if err := s.store.DeleteRoomState(ctx, room); err != nil {
		return err
	}

	s.NotifyOrgUpdate(ctx, room.OrgID, "meetings", "deleted", map[string]string{
		"room_name": room.RoomName,
	})
	return nil
}

// NotifyOrgUpdate broadcasts an organization-wide resource change to every
// client watching the org channel
func (s *MeetingService) NotifyOrgUpdate(ctx context.Context, orgID, category, action string, payload any) {
	s.publish(ctx, models.OrgChannel(orgID), models.UpdateKindOrg, models.OrgUpdate{
		Category: category,
		Action:   action,
		Payload:  payload,
	})
}

// publish broadcasts a snapshot, logging and swallowing failures: broadcast
// is best-effort and the stored state remains the source of truth
func (s *MeetingService) publish(ctx context.Context, channel string, kind models.UpdateKind, state any) {
	update, err := models.NewUpdate(kind, state)
	if err != nil {
		log.Printf("Failed to encode %s update: %v", kind, err)
		return
	}
	if err := s.bus.Publish(ctx, channel, update); err != nil {
		log.Printf("Failed to publish %s update on %s: %v", kind, channel, err)
	}
}
