package room

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/shogiplay/internal/shogi"
)

// snapshot is the persisted form of a Room: everything except the
// runtime-only timer state and session wiring. Seat sessions are not
// persisted either; after a restart nobody is connected.
type snapshot struct {
	ID              string          `json:"id"`
	Status          Status          `json:"status"`
	Board           *shogi.Board    `json:"board"`
	Hands           *shogi.Hands    `json:"hands"`
	History         []RecordedMove  `json:"history"`
	SfenHistory     map[string]int  `json:"sfenHistory"`
	UserIDs         PerSide[string] `json:"userIds"`
	PlayerNames     PerSide[string] `json:"playerNames"`
	Ready           PerSide[bool]   `json:"ready"`
	RematchRequests PerSide[bool]   `json:"rematchRequests"`
	Settings        Settings        `json:"settings"`
	Times           PerSide[int]    `json:"times"`
	CurrentByoyomi  PerSide[int]    `json:"currentByoyomi"`
	TotalConsumedMs PerSide[int64]  `json:"totalConsumedTimes"`
	LastMoveTime    time.Time       `json:"lastMoveTimestamp"`
	GameStartTime   time.Time       `json:"gameStartTime"`
	GameCount       int             `json:"gameCount"`
	Winner          Winner          `json:"winner"`
}

// marshalSnapshotLocked serializes the room for persistence.
func (r *Room) marshalSnapshotLocked() ([]byte, error) {
	return json.Marshal(snapshot{
		ID:              r.ID,
		Status:          r.Status,
		Board:           r.Board,
		Hands:           r.Hands,
		History:         r.History,
		SfenHistory:     r.SfenHistory,
		UserIDs:         r.UserIDs,
		PlayerNames:     r.PlayerNames,
		Ready:           r.Ready,
		RematchRequests: r.RematchRequests,
		Settings:        r.Settings,
		Times:           r.Times,
		CurrentByoyomi:  r.CurrentByoyomi,
		TotalConsumedMs: r.TotalConsumedMs,
		LastMoveTime:    r.LastMoveTime,
		GameStartTime:   r.GameStartTime,
		GameCount:       r.GameCount,
		Winner:          r.Winner,
	})
}

// Snapshot returns the room's persisted form. Exported for callers that
// persist outside a mutation (such as shutdown flushes).
func (r *Room) Snapshot() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.marshalSnapshotLocked()
}

// Restore rebuilds a room from a snapshot blob. Defaults are applied to
// fields absent from older snapshots; the clock stays unarmed until a
// mutating event with both seats online starts it again.
func Restore(blob []byte, deps Deps) (*Room, error) {
	var s snapshot
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decode room snapshot: %w", err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("room snapshot without id")
	}

	r := &Room{
		ID:              s.ID,
		Status:          s.Status,
		Board:           s.Board,
		Hands:           s.Hands,
		History:         s.History,
		SfenHistory:     s.SfenHistory,
		UserIDs:         s.UserIDs,
		PlayerNames:     s.PlayerNames,
		Ready:           s.Ready,
		RematchRequests: s.RematchRequests,
		Settings:        s.Settings,
		Times:           s.Times,
		CurrentByoyomi:  s.CurrentByoyomi,
		TotalConsumedMs: s.TotalConsumedMs,
		LastMoveTime:    s.LastMoveTime,
		GameStartTime:   s.GameStartTime,
		GameCount:       s.GameCount,
		Winner:          s.Winner,
		deps:            deps,
	}
	r.log = deps.Logger.With(zap.String("room", r.ID))

	if r.Status == "" {
		r.Status = StatusWaiting
	}
	if r.Winner == "" {
		r.Winner = WinnerNone
	}
	if r.Board == nil {
		r.Board = shogi.InitialBoard()
	}
	if r.Hands == nil {
		r.Hands = &shogi.Hands{}
	}
	if r.SfenHistory == nil {
		r.SfenHistory = make(map[string]int)
		r.SfenHistory[shogi.Fingerprint(shogi.InitialBoard(), shogi.Sente, &shogi.Hands{})] = 1
	}
	return r, nil
}
