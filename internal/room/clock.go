package room

import (
	"time"

	"go.uber.org/zap"
)

// tickInterval is the clock granularity. The authoritative remaining
// time is always derived from now - LastMoveTime, so tick jitter and
// missed ticks do not drift the clock.
const tickInterval = time.Second

// startClockLocked arms the countdown for the side to move. The ticker
// goroutine re-enters the room through tick under the room mutex; a
// generation counter invalidates stale goroutines after stop.
func (r *Room) startClockLocked() {
	r.clockGen++
	r.clockRunning = true
	r.LastMoveTime = time.Now()
	gen := r.clockGen

	go func() {
		t := time.NewTicker(tickInterval)
		defer t.Stop()
		for range t.C {
			if !r.tick(gen) {
				return
			}
		}
	}()
}

// stopClockLocked cancels the pending ticks. With commit, the elapsed
// wall time since the last commit point is charged to the side to move:
// main time first, then the current byoyomi. Returns the whole seconds
// committed.
func (r *Room) stopClockLocked(commit bool) int {
	if !r.clockRunning {
		return 0
	}
	r.clockRunning = false
	r.clockGen++

	if !commit {
		return 0
	}

	now := time.Now()
	elapsedMs := now.Sub(r.LastMoveTime).Milliseconds()
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	elapsed := int(elapsedMs / 1000)
	side := r.SideToMove()

	if main := r.Times.Get(side); main >= elapsed {
		r.Times.Set(side, main-elapsed)
	} else {
		over := elapsed - main
		r.Times.Set(side, 0)
		if left := r.CurrentByoyomi.Get(side) - over; left > 0 {
			r.CurrentByoyomi.Set(side, left)
		} else {
			r.CurrentByoyomi.Set(side, 0)
		}
	}
	r.TotalConsumedMs.Set(side, r.TotalConsumedMs.Get(side)+elapsedMs)
	r.LastMoveTime = now
	return elapsed
}

// tick recomputes the active side's displayed time and broadcasts it;
// exhausted byoyomi ends the game. Returns false when the goroutine
// should exit.
func (r *Room) tick(gen int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.clockGen || !r.clockRunning || r.Status != StatusPlaying {
		return false
	}

	side := r.SideToMove()
	elapsed := int(time.Since(r.LastMoveTime) / time.Second)

	times := r.Times
	byoyomi := r.CurrentByoyomi

	main := r.Times.Get(side) - elapsed
	if main >= 0 {
		times.Set(side, main)
	} else {
		times.Set(side, 0)
		left := r.CurrentByoyomi.Get(side) + main // main is negative overflow
		if left < 0 {
			r.log.Info("flag fell", zap.String("side", side.String()))
			r.finishLocked(ReasonTimeout, winnerOf(side.Other()))
			return false
		}
		byoyomi.Set(side, left)
	}

	r.broadcast("time_update", map[string]any{
		"times":          times,
		"currentByoyomi": byoyomi,
	})
	return true
}
