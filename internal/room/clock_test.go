package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/shogiplay/internal/shogi"
)

func TestMoveCommitsTime(t *testing.T) {
	r, _ := startPlaying(t, testSettings())

	time.Sleep(1100 * time.Millisecond)
	r.HandleMove(shogi.NewBoardMove(shogi.Square{X: 2, Y: 6}, shogi.Square{X: 2, Y: 5}, false), nil)

	require.Len(t, r.History, 1)
	spent := r.History[0].Time
	assert.Equal(t, 1, spent.Now, "floor seconds spent on the move")
	assert.Equal(t, 599, r.Times.Sente)
	assert.GreaterOrEqual(t, r.TotalConsumedMs.Sente, int64(1100))
	assert.Equal(t, 600, r.Times.Gote, "opponent clock untouched")
}

func TestTotalConsumedMonotone(t *testing.T) {
	r, _ := startPlaying(t, testSettings())

	moves := []shogi.Move{
		shogi.NewBoardMove(shogi.Square{X: 2, Y: 6}, shogi.Square{X: 2, Y: 5}, false),
		shogi.NewBoardMove(shogi.Square{X: 2, Y: 2}, shogi.Square{X: 2, Y: 3}, false),
		shogi.NewBoardMove(shogi.Square{X: 6, Y: 6}, shogi.Square{X: 6, Y: 5}, false),
		shogi.NewBoardMove(shogi.Square{X: 6, Y: 2}, shogi.Square{X: 6, Y: 3}, false),
	}
	var lastSente, lastGote int64
	for _, m := range moves {
		r.HandleMove(m, nil)
		assert.GreaterOrEqual(t, r.TotalConsumedMs.Sente, lastSente)
		assert.GreaterOrEqual(t, r.TotalConsumedMs.Gote, lastGote)
		lastSente = r.TotalConsumedMs.Sente
		lastGote = r.TotalConsumedMs.Gote
	}
}

func TestTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time timeout test")
	}
	r, rec := startPlaying(t, Settings{InitialSeconds: 1, ByoyomiSeconds: 2})

	deadline := time.After(6 * time.Second)
	for {
		r.mu.Lock()
		st := r.Status
		r.mu.Unlock()
		if st == StatusFinished {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout never fired")
		case <-time.After(100 * time.Millisecond):
		}
	}

	assert.Equal(t, StatusFinished, r.Status)
	assert.Equal(t, WinnerGote, r.Winner)
	finished := rec.named("game_finished")
	require.Len(t, finished, 1)
	data := finished[0].Data.(map[string]any)
	assert.Equal(t, ReasonTimeout, data["reason"])
	assert.NotEmpty(t, rec.named("time_update"), "ticks broadcast time updates before the flag falls")
}

func TestDisconnectPausesAndRejoinResumes(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time clock test")
	}
	r, rec := startPlaying(t, testSettings())

	time.Sleep(1200 * time.Millisecond)
	r.Disconnect("s1")

	committed := r.Times.Sente
	assert.Equal(t, 599, committed, "elapsed time committed on pause")

	r.mu.Lock()
	paused := !r.clockRunning
	r.mu.Unlock()
	require.True(t, paused, "clock pauses while a seat is empty")

	rec.clear()
	time.Sleep(1100 * time.Millisecond)
	assert.Empty(t, rec.named("time_update"), "no ticks while paused")
	assert.Equal(t, committed, r.Times.Sente, "no time charged while paused")

	require.Equal(t, RoleSente, r.Join("s9", "u1", "Alice"))
	r.mu.Lock()
	resumed := r.clockRunning
	r.mu.Unlock()
	assert.True(t, resumed, "clock resumes once both seats are online")
	assert.InDelta(t, committed, r.Times.Sente, 1, "resume starts from the committed time")
}
