// Package redis provides a Redis/Valkey implementation of the state store
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/illusionlabs/classync/internal/config"
	"github.com/illusionlabs/classync/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a room has no stored state for the requested key
var ErrNotFound = models.ErrStateNotFound

// Store implements the state store contract with Redis storage
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewStore creates a new Redis-backed state store
func NewStore(cfg config.RedisConfig) (*Store, error) {
	var client *redis.Client

	// Use URI if provided, otherwise build connection from individual parameters
	if cfg.URI != "" {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}

		if opt.DB == 0 {
			opt.DB = cfg.DB
		}
		if opt.Password == "" && cfg.Password != "" {
			opt.Password = cfg.Password
		}

		client = redis.NewClient(opt)
	} else {
		address := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

		client = redis.NewClient(&redis.Options{
			Addr:     address,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.StateTTL,
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// playbackKey returns the Redis key for a room's playback state
func (s *Store) playbackKey(room models.RoomID) string {
	return fmt.Sprintf("%svideo_state:%s", s.keyPrefix, room.String())
}

// meetingKey returns the Redis key for a room's meeting metadata
func (s *Store) meetingKey(room models.RoomID) string {
	return fmt.Sprintf("%sactive_meeting:%s", s.keyPrefix, room.String())
}

// GetPlaybackState retrieves a room's playback state
func (s *Store) GetPlaybackState(ctx context.Context, room models.RoomID) (*models.PlaybackState, error) {
	data, err := s.client.Get(ctx, s.playbackKey(room)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get playback state: %w", err)
	}

	var state models.PlaybackState
	if err := json.Unmarshal(data, &state); err != nil {
		// Malformed state is treated the same as absent state
		return nil, ErrNotFound
	}

	return &state, nil
}

// SavePlaybackState writes a room's playback state, last writer wins
func (s *Store) SavePlaybackState(ctx context.Context, room models.RoomID, state *models.PlaybackState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal playback state: %w", err)
	}

	if err := s.client.Set(ctx, s.playbackKey(room), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save playback state: %w", err)
	}

	return nil
}

// GetMeetingState retrieves a room's meeting metadata
func (s *Store) GetMeetingState(ctx context.Context, room models.RoomID) (*models.MeetingState, error) {
	data, err := s.client.Get(ctx, s.meetingKey(room)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting state: %w", err)
	}

	var state models.MeetingState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, ErrNotFound
	}

	return &state, nil
}

// SaveMeetingState writes a room's meeting metadata, last writer wins
func (s *Store) SaveMeetingState(ctx context.Context, room models.RoomID, state *models.MeetingState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal meeting state: %w", err)
	}

	if err := s.client.Set(ctx, s.meetingKey(room), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save meeting state: %w", err)
	}

	return nil
}

// DeleteRoomState removes both state keys for a room
func (s *Store) DeleteRoomState(ctx context.Context, room models.RoomID) error {
	// Use a pipeline to delete both keys in one roundtrip
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.playbackKey(room))
	pipe.Del(ctx, s.meetingKey(room))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete room state: %w", err)
	}

	return nil
}
