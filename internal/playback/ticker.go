// Package playback owns the real-time meeting synchronization core: a
// per-room ticking clock that advances shared video-playback state once per
// second and fans the update out to every subscriber of the room's channel.
package playback

import (
	"context"
	"log"
	"time"

	"github.com/illusionlabs/classync/internal/bus"
	"github.com/illusionlabs/classync/internal/models"
	"github.com/illusionlabs/classync/internal/store"
)

// Ticker advances one room's playback clock. It holds no state of its own:
// every tick fetches the current playback state from the store, mutates it,
// and writes it back, so out-of-band handlers and the ticker always observe a
// single source of truth.
type Ticker struct {
	room      models.RoomID
	store     store.Store
	bus       bus.Bus
	interval  time.Duration
	opTimeout time.Duration
}

// NewTicker creates a ticker for the given room. The interval is the tick
// cadence; opTimeout bounds each store/bus call so a slow backend degrades to
// a skipped tick instead of a stalled loop.
func NewTicker(room models.RoomID, st store.Store, b bus.Bus, interval, opTimeout time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &Ticker{
		room:      room,
		store:     st,
		bus:       b,
		interval:  interval,
		opTimeout: opTimeout,
	}
}

// Run loops until the context is cancelled. Cancellation is the only path to
// termination; every store or bus failure degrades to "try again next tick".
func (t *Ticker) Run(ctx context.Context) {
	log.Printf("Starting playback loop for room %s", t.room)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Playback loop cancelled for room %s", t.room)
			return
		case <-ticker.C:
		}

		// Cancellation may have raced the tick; never touch state after it
		if ctx.Err() != nil {
			log.Printf("Playback loop cancelled for room %s", t.room)
			return
		}

		t.tick(ctx)
	}
}

// tick performs one read-modify-write-publish cycle. Time advances in fixed
// whole-second increments rather than being derived from elapsed wall time;
// under scheduler contention the clock drifts instead of jumping.
func (t *Ticker) tick(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, t.opTimeout)
	defer cancel()

	state, err := t.store.GetPlaybackState(opCtx, t.room)
	if err != nil {
		// Absent, malformed or unreachable state: skip this tick
		return
	}

	if state.Stopped {
		return
	}

	state.CurrentTime += 1.0
	state.LastUpdated = time.Now().UTC()

	if err := t.store.SavePlaybackState(opCtx, t.room, state); err != nil {
		log.Printf("Failed to save playback state for room %s: %v", t.room, err)
		return
	}

	update, err := models.NewUpdate(models.UpdateKindSync, state)
	if err != nil {
		log.Printf("Failed to encode playback update for room %s: %v", t.room, err)
		return
	}

	if err := t.bus.Publish(opCtx, t.room.Channel(), update); err != nil {
		log.Printf("Failed to publish playback update for room %s: %v", t.room, err)
	}
}
