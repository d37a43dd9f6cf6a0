package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illusionlabs/classync/internal/api"
	busmemory "github.com/illusionlabs/classync/internal/bus/memory"
	"github.com/illusionlabs/classync/internal/config"
	"github.com/illusionlabs/classync/internal/gateway"
	"github.com/illusionlabs/classync/internal/models"
	"github.com/illusionlabs/classync/internal/playback"
	"github.com/illusionlabs/classync/internal/service"
	storememory "github.com/illusionlabs/classync/internal/store/memory"
	"github.com/illusionlabs/classync/internal/web"
)

// tickInterval is short so the playback loop advances within test time
const tickInterval = 30 * time.Millisecond

type stack struct {
	server   *httptest.Server
	registry *playback.Registry
	bus      *busmemory.Bus
}

// newStack assembles the whole service over in-memory infrastructure, routed
// exactly as the production entrypoint routes it.
func newStack(t *testing.T) *stack {
	t.Helper()

	st := storememory.NewStore()
	b := busmemory.NewBus()
	registry := playback.NewRegistry(st, b, config.SyncConfig{
		TickInterval: tickInterval,
		OpTimeout:    time.Second,
	})
	svc := service.NewMeetingService(st, b, registry)

	mux := api.SetupRoutes(svc, gateway.NewHandler(registry, svc, b), web.NewSSEManager(b))
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		registry.StopAll()
		b.Close()
	})

	return &stack{server: server, registry: registry, bus: b}
}

func (s *stack) dialRoom(t *testing.T, orgID, roomName string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.server.URL, "http") +
		fmt.Sprintf("/ws/meetings/%s/%s", orgID, roomName)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *stack) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(t, err)
	}

	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// nextUpdate reads envelopes until one of the wanted kind arrives
func nextUpdate(t *testing.T, conn *websocket.Conn, kind models.UpdateKind) *models.Update {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		update, err := models.DecodeUpdate(data)
		require.NoError(t, err)
		if update.Kind == kind {
			return update
		}
	}

	t.Fatalf("no %s update before deadline", kind)
	return nil
}

// assertChannelSilent subscribes fresh and verifies nothing is published on
// the channel for a few tick intervals
func assertChannelSilent(t *testing.T, b *busmemory.Bus, channel string) {
	t.Helper()

	sub, err := b.Subscribe(channel)
	require.NoError(t, err)
	defer sub.Close()

	select {
	case update := <-sub.Updates():
		t.Fatalf("unexpected %s update on %s", update.Kind, channel)
	case <-time.After(5 * tickInterval):
	}
}

func decodePlayback(t *testing.T, update *models.Update) models.PlaybackState {
	t.Helper()

	var state models.PlaybackState
	require.NoError(t, json.Unmarshal(update.State, &state))
	return state
}

// TestMeetingSyncFlow drives the full lifecycle a classroom session goes
// through: connect, start the video, watch the clock advance, pause, restart
// the meeting, and finally delete the room.
func TestMeetingSyncFlow(t *testing.T) {
	s := newStack(t)
	room := models.NewRoomID("42", "mathlab")

	conn := s.dialRoom(t, "42", "mathlab")

	// Connecting seeds defaults and pushes the combined snapshot
	initial := nextUpdate(t, conn, models.UpdateKindInitial)
	var snapshot models.InitialState
	require.NoError(t, json.Unmarshal(initial.State, &snapshot))
	assert.True(t, snapshot.Playback.Stopped)
	assert.True(t, snapshot.Meeting.Ended)
	require.True(t, s.registry.SchedulerRunning(room))

	// While stopped, the loop publishes nothing
	assertChannelSilent(t, s.bus, room.Channel())

	// Starting playback broadcasts immediately and unfreezes the clock
	resp := s.post(t, "/api/rooms/42/mathlab/playback/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	started := decodePlayback(t, nextUpdate(t, conn, models.UpdateKindSync))
	assert.False(t, started.Stopped)

	// Each tick advances the clock by one second of video time
	first := decodePlayback(t, nextUpdate(t, conn, models.UpdateKindSync))
	second := decodePlayback(t, nextUpdate(t, conn, models.UpdateKindSync))
	assert.Equal(t, first.CurrentTime+1.0, second.CurrentTime)
	assert.False(t, second.Stopped)

	// Pausing freezes the clock at its current position
	resp = s.post(t, "/api/rooms/42/mathlab/playback/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var paused models.PlaybackState
	for {
		paused = decodePlayback(t, nextUpdate(t, conn, models.UpdateKindSync))
		if paused.Stopped {
			break
		}
	}
	frozenAt := paused.CurrentTime

	// No tick updates arrive while paused
	assertChannelSilent(t, s.bus, room.Channel())

	// The stored position survives the pause
	getResp, err := http.Get(s.server.URL + "/api/rooms/42/mathlab/playback")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var stored models.PlaybackState
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&stored))
	assert.Equal(t, frozenAt, stored.CurrentTime)

	// Restarting the meeting broadcasts the metadata change
	resp = s.post(t, "/api/rooms/42/mathlab/restart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	meetingUpdate := nextUpdate(t, conn, models.UpdateKindMeeting)
	var meeting models.MeetingState
	require.NoError(t, json.Unmarshal(meetingUpdate.State, &meeting))
	assert.False(t, meeting.Ended)
}

// TestDeleteMeetingTeardown verifies the administrative teardown path end to
// end: the loop stops, the state is gone, and org watchers are notified.
func TestDeleteMeetingTeardown(t *testing.T) {
	s := newStack(t)
	room := models.NewRoomID("42", "mathlab")

	conn := s.dialRoom(t, "42", "mathlab")
	nextUpdate(t, conn, models.UpdateKindInitial)
	require.True(t, s.registry.SchedulerRunning(room))

	orgSub, err := s.bus.Subscribe(models.OrgChannel("42"))
	require.NoError(t, err)
	defer orgSub.Close()

	req, err := http.NewRequest(http.MethodDelete, s.server.URL+"/api/rooms/42/mathlab", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.False(t, s.registry.SchedulerRunning(room))

	select {
	case <-s.registry.Done(room):
	case <-time.After(2 * time.Second):
		t.Fatal("playback loop did not exit after deletion")
	}

	select {
	case update := <-orgSub.Updates():
		require.Equal(t, models.UpdateKindOrg, update.Kind)

		var orgUpdate models.OrgUpdate
		require.NoError(t, json.Unmarshal(update.State, &orgUpdate))
		assert.Equal(t, "meetings", orgUpdate.Category)
		assert.Equal(t, "deleted", orgUpdate.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an org update after deletion")
	}

	// A fresh GET reseeds nothing; it just serves defaults
	getResp, err := http.Get(s.server.URL + "/api/rooms/42/mathlab/playback")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var state models.PlaybackState
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&state))
	assert.True(t, state.Stopped)
	assert.Equal(t, 0.0, state.CurrentTime)
}

// TestTwoRoomsAreIndependent runs two rooms side by side and checks that
// starting one never moves the other's clock.
func TestTwoRoomsAreIndependent(t *testing.T) {
	s := newStack(t)

	connA := s.dialRoom(t, "42", "mathlab")
	connB := s.dialRoom(t, "42", "biology")
	nextUpdate(t, connA, models.UpdateKindInitial)
	nextUpdate(t, connB, models.UpdateKindInitial)

	resp := s.post(t, "/api/rooms/42/mathlab/playback/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Room A ticks
	update := decodePlayback(t, nextUpdate(t, connA, models.UpdateKindSync))
	assert.False(t, update.Stopped)

	// Room B stays silent
	connB.SetReadDeadline(time.Now().Add(5 * tickInterval))
	_, _, err := connB.ReadMessage()
	require.Error(t, err)

	getResp, err := http.Get(s.server.URL + "/api/rooms/42/biology/playback")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var stateB models.PlaybackState
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&stateB))
	assert.True(t, stateB.Stopped)
	assert.Equal(t, 0.0, stateB.CurrentTime)
}
