package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/illusionlabs/classync/internal/models"
	"github.com/illusionlabs/classync/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	room := models.NewRoomID("42", "roomA")

	t.Run("AbsentReturnsNotFound", func(t *testing.T) {
		_, err := st.GetPlaybackState(ctx, room)
		assert.ErrorIs(t, err, memory.ErrNotFound)

		_, err = st.GetMeetingState(ctx, room)
		assert.ErrorIs(t, err, memory.ErrNotFound)
	})

	t.Run("SaveAndGetPlayback", func(t *testing.T) {
		require.NoError(t, st.SavePlaybackState(ctx, room, &models.PlaybackState{Stopped: false, CurrentTime: 7.0}))

		state, err := st.GetPlaybackState(ctx, room)
		require.NoError(t, err)
		assert.Equal(t, 7.0, state.CurrentTime)
	})

	t.Run("ReturnedStateIsACopy", func(t *testing.T) {
		state, err := st.GetPlaybackState(ctx, room)
		require.NoError(t, err)

		state.CurrentTime = 999.0

		again, err := st.GetPlaybackState(ctx, room)
		require.NoError(t, err)
		assert.Equal(t, 7.0, again.CurrentTime)
	})

	t.Run("MeetingBotListIsACopy", func(t *testing.T) {
		saved := models.DefaultMeetingState(room)
		saved.ActiveBotIDs = []string{"bot-1"}
		require.NoError(t, st.SaveMeetingState(ctx, room, saved))

		state, err := st.GetMeetingState(ctx, room)
		require.NoError(t, err)
		state.ActiveBotIDs[0] = "mutated"

		again, err := st.GetMeetingState(ctx, room)
		require.NoError(t, err)
		assert.Equal(t, []string{"bot-1"}, again.ActiveBotIDs)
	})

	t.Run("DeleteRoomState", func(t *testing.T) {
		require.NoError(t, st.DeleteRoomState(ctx, room))

		_, err := st.GetPlaybackState(ctx, room)
		assert.ErrorIs(t, err, memory.ErrNotFound)
		_, err = st.GetMeetingState(ctx, room)
		assert.ErrorIs(t, err, memory.ErrNotFound)
	})
}

func TestConcurrentAccess(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	room := models.NewRoomID("42", "busy")

	require.NoError(t, st.SavePlaybackState(ctx, room, models.DefaultPlaybackState()))

	// Writers and readers race on the same key; the store must stay
	// internally consistent (run with -race)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = st.SavePlaybackState(ctx, room, &models.PlaybackState{CurrentTime: float64(n)})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = st.GetPlaybackState(ctx, room)
		}()
	}
	wg.Wait()

	state, err := st.GetPlaybackState(ctx, room)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, state.CurrentTime, 0.0)
}
