// Package room implements the authoritative per-room game state: the
// lifecycle state machine, the move pipeline, the clock and the terminal
// detector. All mutations of one room are serialized behind its mutex;
// different rooms run independently.
package room

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/shogiplay/internal/shogi"
)

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusAnalysis Status = "analysis"
)

// Winner identifies the winning seat of a finished game.
type Winner string

const (
	WinnerSente Winner = "sente"
	WinnerGote  Winner = "gote"
	WinnerNone  Winner = "none"
)

func winnerOf(s shogi.Side) Winner {
	if s == shogi.Sente {
		return WinnerSente
	}
	return WinnerGote
}

// Reason classifies how a game ended.
type Reason string

const (
	ReasonResign            Reason = "resign"
	ReasonTimeout           Reason = "timeout"
	ReasonCheckmate         Reason = "checkmate"
	ReasonSennichite        Reason = "sennichite"
	ReasonIllegalSennichite Reason = "illegal_sennichite"
)

// Settings are the per-room game options, adjustable while waiting.
type Settings struct {
	InitialSeconds int  `json:"initialSeconds"`
	ByoyomiSeconds int  `json:"byoyomiSeconds"`
	RandomTurn     bool `json:"randomTurn"`
	FixTurn        bool `json:"fixTurn"`
}

// TimeSpent annotates a recorded move with the seconds spent on it and
// the mover's cumulative total.
type TimeSpent struct {
	Now   int `json:"now"`
	Total int `json:"total"`
}

// RecordedMove is a history entry: the move plus its annotations.
type RecordedMove struct {
	Move    shogi.Move
	IsCheck bool
	Time    TimeSpent
}

// MarshalJSON flattens the move fields and the annotations into one
// object, the shape clients receive in `move` events and sync history.
func (rm RecordedMove) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(rm.Move)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if obj["isCheck"], err = json.Marshal(rm.IsCheck); err != nil {
		return nil, err
	}
	if obj["time"], err = json.Marshal(rm.Time); err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (rm *RecordedMove) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &rm.Move); err != nil {
		return err
	}
	var ann struct {
		IsCheck bool      `json:"isCheck"`
		Time    TimeSpent `json:"time"`
	}
	if err := json.Unmarshal(data, &ann); err != nil {
		return err
	}
	rm.IsCheck = ann.IsCheck
	rm.Time = ann.Time
	return nil
}

// Event is an outbound message produced by a room mutation. SessionID
// empty means fan-out to every session in the room.
type Event struct {
	SessionID string
	Name      string
	Data      any
}

// Deps are the room's external collaborators: event delivery and
// snapshot persistence. Both are invoked inside the room's serialized
// section and must not block or call back into the room.
type Deps struct {
	Logger  *zap.Logger
	Emit    func(roomID string, ev Event)
	Persist func(roomID string, blob []byte, updatedAt time.Time)
}

// Room is the authoritative state of one match.
type Room struct {
	mu sync.Mutex

	ID              string
	Status          Status
	Board           *shogi.Board
	Hands           *shogi.Hands
	History         []RecordedMove
	SfenHistory     map[string]int
	Players         PerSide[string] // seat -> live session id, "" when offline
	UserIDs         PerSide[string] // seat -> sticky user id
	PlayerNames     PerSide[string]
	Ready           PerSide[bool]
	RematchRequests PerSide[bool]
	Settings        Settings
	Times           PerSide[int]   // remaining main time, seconds
	CurrentByoyomi  PerSide[int]   // seconds
	TotalConsumedMs PerSide[int64] // monotone within a game
	LastMoveTime    time.Time
	GameStartTime   time.Time
	GameCount       int
	Winner          Winner

	// runtime only
	clockGen     int
	clockRunning bool
	deps         Deps
	log          *zap.Logger
}

// New creates a room in its initial state. mode "analysis" opens the
// room as a free-move analysis board.
func New(id, mode string, settings Settings, deps Deps) *Room {
	r := &Room{
		ID:          id,
		Status:      StatusWaiting,
		Board:       shogi.InitialBoard(),
		Hands:       &shogi.Hands{},
		SfenHistory: make(map[string]int),
		Settings:    settings,
		Winner:      WinnerNone,
		deps:        deps,
		log:         deps.Logger.With(zap.String("room", id)),
	}
	if mode == "analysis" {
		r.Status = StatusAnalysis
	}
	r.Times = PerSide[int]{Sente: settings.InitialSeconds, Gote: settings.InitialSeconds}
	r.CurrentByoyomi = PerSide[int]{Sente: settings.ByoyomiSeconds, Gote: settings.ByoyomiSeconds}
	r.SfenHistory[shogi.Fingerprint(r.Board, shogi.Sente, r.Hands)] = 1
	return r
}

// SideToMove derives the side to move from the history length.
func (r *Room) SideToMove() shogi.Side {
	if len(r.History)%2 == 0 {
		return shogi.Sente
	}
	return shogi.Gote
}

func (r *Room) emit(ev Event) {
	if r.deps.Emit != nil {
		r.deps.Emit(r.ID, ev)
	}
}

func (r *Room) broadcast(name string, data any) {
	r.emit(Event{Name: name, Data: data})
}

func (r *Room) persist() {
	if r.deps.Persist == nil {
		return
	}
	blob, err := r.marshalSnapshotLocked()
	if err != nil {
		r.log.Error("snapshot failed", zap.Error(err))
		return
	}
	r.deps.Persist(r.ID, blob, time.Now())
}

// Role describes a session's relation to the room.
type Role string

const (
	RoleSente     Role = "sente"
	RoleGote      Role = "gote"
	RoleSpectator Role = "spectator"
)

// Join seats or re-seats a user and returns the assigned role. The
// joiner receives a full sync; everyone gets presence and name updates.
func (r *Room) Join(sessionID, userID, userName string) Role {
	r.mu.Lock()
	defer r.mu.Unlock()

	role := RoleSpectator
	switch {
	case userID != "" && r.UserIDs.Sente == userID:
		role = RoleSente
	case userID != "" && r.UserIDs.Gote == userID:
		role = RoleGote
	case r.UserIDs.Sente == "":
		role = RoleSente
	case r.UserIDs.Gote == "":
		role = RoleGote
	}

	if role == RoleSente || role == RoleGote {
		side := shogi.Sente
		if role == RoleGote {
			side = shogi.Gote
		}
		r.Players.Set(side, sessionID)
		r.UserIDs.Set(side, userID)
		if userName != "" {
			r.PlayerNames.Set(side, userName)
		}
	}

	r.log.Info("join", zap.String("user", userID), zap.String("role", string(role)))
	r.persist()

	r.emit(Event{SessionID: sessionID, Name: "sync", Data: r.syncPayloadLocked(role)})
	r.broadcast("player_names_updated", r.PlayerNames)
	r.broadcast("connection_status_update", r.onlineStatusLocked())

	// Both seats back online mid-game resumes the clock.
	if r.Status == StatusPlaying && !r.clockRunning &&
		r.Players.Sente != "" && r.Players.Gote != "" {
		r.startClockLocked()
	}
	return role
}

// Disconnect clears the session's seat presence. A seated player leaving
// mid-game pauses the clock with its elapsed time committed.
func (r *Room) Disconnect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var seated bool
	if r.Players.Sente == sessionID {
		r.Players.Sente = ""
		seated = true
	}
	if r.Players.Gote == sessionID {
		r.Players.Gote = ""
		seated = true
	}
	if !seated {
		return
	}
	if r.Status == StatusPlaying {
		r.stopClockLocked(true)
	}
	r.persist()
	r.broadcast("connection_status_update", r.onlineStatusLocked())
}

// HasLiveSessions reports whether any seat has a live session. Used by
// the storage GC to spare occupied rooms.
func (r *Room) HasLiveSessions() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Players.Sente != "" || r.Players.Gote != ""
}

func (r *Room) onlineStatusLocked() PerSide[bool] {
	return PerSide[bool]{Sente: r.Players.Sente != "", Gote: r.Players.Gote != ""}
}

// syncPayloadLocked builds the full authoritative snapshot sent on join
// and after bulk state changes. An empty role (broadcast syncs) omits
// the yourRole field.
func (r *Room) syncPayloadLocked(role Role) map[string]any {
	history := r.History
	if history == nil {
		history = []RecordedMove{}
	}
	payload := map[string]any{
		"history":         history,
		"status":          r.Status,
		"winner":          r.Winner,
		"ready":           r.Ready,
		"settings":        r.Settings,
		"times":           r.Times,
		"rematchRequests": r.RematchRequests,
		"playerNames":     r.PlayerNames,
	}
	if role != "" {
		payload["yourRole"] = role
	}
	return payload
}

// UpdateSettings replaces the settings. Only legal while waiting.
func (r *Room) UpdateSettings(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != StatusWaiting {
		r.log.Debug("update_settings ignored", zap.String("status", string(r.Status)))
		return
	}
	r.Settings = s
	r.persist()
	r.broadcast("settings_updated", r.Settings)
}

// ToggleReady flips a seat's ready flag; when both seats are ready the
// game starts.
func (r *Room) ToggleReady(side shogi.Side) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != StatusWaiting {
		return
	}
	r.Ready.Set(side, !r.Ready.Get(side))
	r.persist()
	r.broadcast("ready_status", r.Ready)
	if r.Ready.Sente && r.Ready.Gote {
		r.startGameLocked()
	}
}

// startGameLocked performs the waiting -> playing transition.
func (r *Room) startGameLocked() {
	swapped := false
	if r.Settings.RandomTurn && !(r.GameCount > 0 && r.Settings.FixTurn) {
		if rand.Intn(2) == 1 {
			r.UserIDs.Swap()
			r.Players.Swap()
			r.PlayerNames.Swap()
			swapped = true
		}
	}

	r.resetPositionLocked()
	r.Times = PerSide[int]{Sente: r.Settings.InitialSeconds, Gote: r.Settings.InitialSeconds}
	r.CurrentByoyomi = PerSide[int]{Sente: r.Settings.ByoyomiSeconds, Gote: r.Settings.ByoyomiSeconds}
	r.TotalConsumedMs = PerSide[int64]{}
	r.Ready = PerSide[bool]{}
	r.RematchRequests = PerSide[bool]{}
	r.Winner = WinnerNone
	r.Status = StatusPlaying
	r.GameCount++
	r.GameStartTime = time.Now()

	r.log.Info("game started", zap.Int("game", r.GameCount), zap.Bool("swapped", swapped))
	r.persist()
	r.broadcast("game_started", map[string]any{"gameCount": r.GameCount})
	if swapped {
		// seated users learn their new role
		if sid := r.Players.Sente; sid != "" {
			r.emit(Event{SessionID: sid, Name: "sync", Data: r.syncPayloadLocked(RoleSente)})
		}
		if sid := r.Players.Gote; sid != "" {
			r.emit(Event{SessionID: sid, Name: "sync", Data: r.syncPayloadLocked(RoleGote)})
		}
		r.broadcast("player_names_updated", r.PlayerNames)
	}
	r.startClockLocked()
}

// resetPositionLocked returns board, hands, history and the repetition
// counters to the initial position.
func (r *Room) resetPositionLocked() {
	r.Board = shogi.InitialBoard()
	r.Hands = &shogi.Hands{}
	r.History = nil
	r.SfenHistory = make(map[string]int)
	r.SfenHistory[shogi.Fingerprint(r.Board, shogi.Sente, r.Hands)] = 1
}

// HandleMove dispatches a client move according to the room status.
// Anything else is silently ignored.
func (r *Room) HandleMove(m shogi.Move, branchIndex *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.Status {
	case StatusPlaying:
		r.handleGameMoveLocked(m)
	case StatusAnalysis:
		r.handleAnalysisMoveLocked(m, branchIndex)
	default:
		r.log.Debug("move ignored", zap.String("status", string(r.Status)))
	}
}

func (r *Room) handleGameMoveLocked(m shogi.Move) {
	side := r.SideToMove()
	if !shogi.IsLegal(r.Board, r.Hands, side, m, true) {
		r.log.Debug("illegal move rejected", zap.String("move", m.String()))
		return
	}

	moveSec := r.stopClockLocked(true)
	r.Board, r.Hands = shogi.Apply(r.Board, r.Hands, side, m)
	opponent := side.Other()
	isCheck := shogi.InCheck(r.Board, opponent)

	rec := RecordedMove{
		Move:    m,
		IsCheck: isCheck,
		Time: TimeSpent{
			Now:   moveSec,
			Total: int(r.TotalConsumedMs.Get(side) / 1000),
		},
	}
	r.History = append(r.History, rec)
	r.CurrentByoyomi.Set(side, r.Settings.ByoyomiSeconds)

	fp := shogi.Fingerprint(r.Board, opponent, r.Hands)
	r.SfenHistory[fp]++

	r.persist()
	r.broadcast("move", rec)

	if isCheck && shogi.IsCheckmate(r.Board, r.Hands, opponent) {
		r.finishLocked(ReasonCheckmate, winnerOf(side))
		return
	}
	if r.SfenHistory[fp] >= repetitionLimit {
		reason, winner := r.classifyRepetitionLocked(fp)
		r.finishLocked(reason, winner)
		return
	}
	r.startClockLocked()
}

// handleAnalysisMoveLocked applies a free move on the analysis board,
// optionally branching from a history prefix, then resyncs everyone.
// The move is validated against the branch position on scratch state,
// so a rejected move leaves the room untouched.
func (r *Room) handleAnalysisMoveLocked(m shogi.Move, branchIndex *int) {
	board, hands, side := r.Board, r.Hands, r.SideToMove()
	branching := branchIndex != nil && *branchIndex >= 0 && *branchIndex < len(r.History)
	if branching {
		board, hands = replayPrefix(r.History[:*branchIndex])
		side = sideAt(*branchIndex)
	}
	if !shogi.IsLegal(board, hands, side, m, true) {
		r.log.Debug("illegal analysis move rejected", zap.String("move", m.String()))
		return
	}
	if branching {
		r.truncateHistoryLocked(*branchIndex)
	}
	r.Board, r.Hands = shogi.Apply(r.Board, r.Hands, side, m)
	opponent := side.Other()
	r.History = append(r.History, RecordedMove{Move: m, IsCheck: shogi.InCheck(r.Board, opponent)})
	r.SfenHistory[shogi.Fingerprint(r.Board, opponent, r.Hands)]++

	r.persist()
	r.broadcast("sync", r.syncPayloadLocked(""))
}

// sideAt returns the side to move after n recorded moves.
func sideAt(n int) shogi.Side {
	if n%2 == 0 {
		return shogi.Sente
	}
	return shogi.Gote
}

// replayPrefix rebuilds the position after the given moves on scratch
// state.
func replayPrefix(prefix []RecordedMove) (*shogi.Board, *shogi.Hands) {
	b := shogi.InitialBoard()
	hands := &shogi.Hands{}
	for i, rec := range prefix {
		b, hands = shogi.Apply(b, hands, sideAt(i), rec.Move)
	}
	return b, hands
}

// truncateHistoryLocked keeps the first n moves and rebuilds the board,
// hands and repetition counters by replay.
func (r *Room) truncateHistoryLocked(n int) {
	prefix := r.History[:n:n]
	r.resetPositionLocked()
	for _, rec := range prefix {
		side := r.SideToMove()
		r.Board, r.Hands = shogi.Apply(r.Board, r.Hands, side, rec.Move)
		r.History = append(r.History, rec)
		r.SfenHistory[shogi.Fingerprint(r.Board, side.Other(), r.Hands)]++
	}
}

// Resign ends the game with the opposite seat as winner.
func (r *Room) Resign(loser shogi.Side) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != StatusPlaying {
		return
	}
	r.stopClockLocked(true)
	r.finishLocked(ReasonResign, winnerOf(loser.Other()))
}

// finishLocked transitions to finished and emits game_finished. The move
// broadcast that caused a terminal state always precedes this event.
func (r *Room) finishLocked(reason Reason, winner Winner) {
	r.stopClockLocked(false)
	r.Status = StatusFinished
	r.Winner = winner
	r.log.Info("game finished", zap.String("reason", string(reason)), zap.String("winner", string(winner)))
	r.persist()
	r.broadcast("game_finished", map[string]any{"winner": winner, "reason": reason})
}

// Undo pops the last move and rebuilds the position. Gated off while a
// game is in progress.
func (r *Room) Undo() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status == StatusPlaying || len(r.History) == 0 {
		return
	}
	r.truncateHistoryLocked(len(r.History) - 1)
	r.persist()
	r.broadcast("sync", r.syncPayloadLocked(""))
}

// Reset clears the history and returns to the starting position. Like
// undo it is not available during play.
func (r *Room) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status == StatusPlaying {
		return
	}
	r.resetPositionLocked()
	r.Winner = WinnerNone
	r.persist()
	r.broadcast("sync", r.syncPayloadLocked(""))
}

// RequestRematch marks a seat's rematch request; when both seats have
// requested, the room resets and returns to waiting for new ready flags.
func (r *Room) RequestRematch(side shogi.Side) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != StatusFinished {
		return
	}
	r.RematchRequests.Set(side, true)
	r.persist()
	r.broadcast("rematch_status", r.RematchRequests)
	if !(r.RematchRequests.Sente && r.RematchRequests.Gote) {
		return
	}

	r.resetPositionLocked()
	r.Times = PerSide[int]{Sente: r.Settings.InitialSeconds, Gote: r.Settings.InitialSeconds}
	r.CurrentByoyomi = PerSide[int]{Sente: r.Settings.ByoyomiSeconds, Gote: r.Settings.ByoyomiSeconds}
	r.TotalConsumedMs = PerSide[int64]{}
	r.Ready = PerSide[bool]{}
	r.RematchRequests = PerSide[bool]{}
	r.Winner = WinnerNone
	r.Status = StatusWaiting

	r.persist()
	r.broadcast("sync", r.syncPayloadLocked(""))
}

// SeatOf returns the seat held by the session, if any.
func (r *Room) SeatOf(sessionID string) (shogi.Side, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Players.Sente == sessionID {
		return shogi.Sente, true
	}
	if r.Players.Gote == sessionID {
		return shogi.Gote, true
	}
	return shogi.Sente, false
}
