package playback

import (
	"context"
	"log"
	"sync"

	"github.com/illusionlabs/classync/internal/bus"
	"github.com/illusionlabs/classync/internal/config"
	"github.com/illusionlabs/classync/internal/models"
	"github.com/illusionlabs/classync/internal/store"
)

// Registry tracks, per room, the live connection membership and the handle
// of the room's playback loop. It guarantees that at most one loop runs per
// room in this process, however many clients join concurrently.
type Registry struct {
	store store.Store
	bus   bus.Bus
	cfg   config.SyncConfig

	mu    sync.Mutex
	rooms map[string]*session
}

// session is the per-room record. The loop handle (cancel/done) is nil when
// no loop is running; the connection set survives loop teardown.
type session struct {
	conns  map[string]struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry creates a room session registry
func NewRegistry(st store.Store, b bus.Bus, cfg config.SyncConfig) *Registry {
	return &Registry{
		store: st,
		bus:   b,
		cfg:   cfg,
		rooms: make(map[string]*session),
	}
}

// Join adds a connection to the room's subscriber set, seeding default state
// on the room's first access, and ensures the room's playback loop is
// running. Repeated joins for the same connection are idempotent.
func (r *Registry) Join(ctx context.Context, room models.RoomID, connID string) {
	r.seedDefaults(ctx, room)

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.rooms[room.String()]
	if s == nil {
		s = &session{conns: make(map[string]struct{})}
		r.rooms[room.String()] = s
	}
	s.conns[connID] = struct{}{}

	r.ensureLoopLocked(room, s)
}

// Leave removes a connection from the room's subscriber set. The playback
// loop keeps running even with zero connected clients: the loop is
// meeting-scoped, and state must stay fresh for late joiners.
func (r *Registry) Leave(room models.RoomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.rooms[room.String()]
	if s == nil {
		return
	}
	delete(s.conns, connID)
}

// EnsureScheduler starts the room's playback loop if it is not already
// running. Safe under concurrent invocation: exactly one loop is created.
func (r *Registry) EnsureScheduler(room models.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.rooms[room.String()]
	if s == nil {
		s = &session{conns: make(map[string]struct{})}
		r.rooms[room.String()] = s
	}

	r.ensureLoopLocked(room, s)
}

// ensureLoopLocked starts the loop when no handle exists. Callers hold r.mu.
func (r *Registry) ensureLoopLocked(room models.RoomID, s *session) {
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	ticker := NewTicker(room, r.store, r.bus, r.cfg.TickInterval, r.cfg.OpTimeout)
	go func() {
		defer close(done)
		ticker.Run(ctx)
	}()
}

// StopScheduler cancels the room's playback loop and removes its handle.
// This is the only externally-initiated teardown path, triggered on meeting
// deletion. Calling it on a room with no running loop is a no-op.
func (r *Registry) StopScheduler(room models.RoomID) {
	r.mu.Lock()
	s := r.rooms[room.String()]
	var cancel context.CancelFunc
	if s != nil && s.cancel != nil {
		cancel = s.cancel
		s.cancel = nil
		if len(s.conns) == 0 {
			delete(r.rooms, room.String())
		}
	}
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		log.Printf("Stopped playback loop for room %s", room)
	}
}

// SchedulerRunning reports whether the room currently has a live loop handle
func (r *Registry) SchedulerRunning(room models.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.rooms[room.String()]
	return s != nil && s.cancel != nil
}

// ConnectionCount returns the number of connections joined to the room
func (r *Registry) ConnectionCount(room models.RoomID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.rooms[room.String()]
	if s == nil {
		return 0
	}
	return len(s.conns)
}

// Done returns a channel closed when the room's loop has fully exited. With
// no loop running it returns an already-closed channel.
func (r *Registry) Done(room models.RoomID) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.rooms[room.String()]
	if s == nil || s.done == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.done
}

// StopAll cancels every running loop, used on process shutdown
func (r *Registry) StopAll() {
	r.mu.Lock()
	var cancels []context.CancelFunc
	for key, s := range r.rooms {
		if s.cancel != nil {
			cancels = append(cancels, s.cancel)
			s.cancel = nil
		}
		if len(s.conns) == 0 {
			delete(r.rooms, key)
		}
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if len(cancels) > 0 {
		log.Printf("Stopped %d playback loops", len(cancels))
	}
}

// seedDefaults creates the default meeting and playback entries on a room's
// first access. Failures are logged and tolerated: the loop and the control
// handlers reseed lazily on their next access.
func (r *Registry) seedDefaults(ctx context.Context, room models.RoomID) {
	opCtx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	if _, err := r.store.GetMeetingState(opCtx, room); err != nil {
		if err := r.store.SaveMeetingState(opCtx, room, models.DefaultMeetingState(room)); err != nil {
			log.Printf("Failed to seed meeting state for room %s: %v", room, err)
		}
	}

	if _, err := r.store.GetPlaybackState(opCtx, room); err != nil {
		if err := r.store.SavePlaybackState(opCtx, room, models.DefaultPlaybackState()); err != nil {
			log.Printf("Failed to seed playback state for room %s: %v", room, err)
		}
	}
}
