// Package server is the session router: it maps websocket events onto
// room operations and fans authoritative updates back out.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/shogiplay/internal/config"
	"github.com/hailam/shogiplay/internal/room"
	"github.com/hailam/shogiplay/internal/storage"
)

// Hub owns the in-memory room map and the session registry. The hub
// lock guards only the maps; it is never held across a room mutation.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]*room.Room
	members  map[string]map[string]*Session // roomID -> sessionID -> session
	sessions map[string]*Session

	cfg   config.Config
	store *storage.Storage
	log   *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(cfg config.Config, store *storage.Storage, log *zap.Logger) *Hub {
	return &Hub{
		rooms:    make(map[string]*room.Room),
		members:  make(map[string]map[string]*Session),
		sessions: make(map[string]*Session),
		cfg:      cfg,
		store:    store,
		log:      log,
	}
}

// deps builds the collaborator callbacks handed to every room.
func (h *Hub) deps() room.Deps {
	return room.Deps{
		Logger: h.log,
		Emit:   h.deliver,
		Persist: func(roomID string, blob []byte, updatedAt time.Time) {
			if err := h.store.SaveRoom(roomID, blob, updatedAt); err != nil {
				// in-memory state stays authoritative; divergence is
				// accepted until the next successful save
				h.log.Error("room snapshot write failed",
					zap.String("room", roomID), zap.Error(err))
			}
		},
	}
}

// LoadFromStore repopulates the room map from persisted snapshots.
// Clocks stay unarmed until players return.
func (h *Hub) LoadFromStore() error {
	envs, err := h.store.LoadRooms()
	if err != nil {
		return err
	}
	deps := h.deps()

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, env := range envs {
		r, err := room.Restore(env.Data, deps)
		if err != nil {
			h.log.Warn("dropping unreadable room snapshot",
				zap.String("room", id), zap.Error(err))
			continue
		}
		h.rooms[id] = r
	}
	h.log.Info("rooms restored", zap.Int("count", len(h.rooms)))
	return nil
}

// getOrCreate returns the room, creating it on first join.
func (h *Hub) getOrCreate(id, mode string) *room.Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[id]; ok {
		return r
	}
	settings := room.Settings{
		InitialSeconds: h.cfg.InitialSeconds,
		ByoyomiSeconds: h.cfg.ByoyomiSeconds,
	}
	r := room.New(id, mode, settings, h.deps())
	h.rooms[id] = r
	return r
}

// Room returns the room by id, if it exists.
func (h *Hub) Room(id string) (*room.Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	return r, ok
}

// deliver routes a room event to one session or to every member.
// Invoked inside the room's serialized section; session sends are
// non-blocking so a slow client cannot stall the room.
func (h *Hub) deliver(roomID string, ev room.Event) {
	h.mu.Lock()
	var targets []*Session
	if ev.SessionID != "" {
		if s, ok := h.sessions[ev.SessionID]; ok {
			targets = append(targets, s)
		}
	} else {
		for _, s := range h.members[roomID] {
			targets = append(targets, s)
		}
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.enqueue(outboundFrame{Event: ev.Name, Data: ev.Data})
	}
}

// register adds a session to the registry on connect.
func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.broadcastCounts("")
}

// joinRoom moves the session into a room and seats it.
func (h *Hub) joinRoom(s *Session, p joinPayload) {
	if p.RoomID == "" {
		return
	}
	// leaving a previous room first keeps membership single-homed
	if prev := s.currentRoom(); prev != "" && prev != p.RoomID {
		h.leaveRoom(s, prev)
	}

	r := h.getOrCreate(p.RoomID, p.Mode)

	h.mu.Lock()
	if h.members[p.RoomID] == nil {
		h.members[p.RoomID] = make(map[string]*Session)
	}
	h.members[p.RoomID][s.id] = s
	h.mu.Unlock()
	s.setRoom(p.RoomID)

	role := r.Join(s.id, p.UserID, p.UserName)
	s.setIdentity(p.UserID, p.UserName, role)
	h.broadcastCounts(p.RoomID)
}

// leaveRoom detaches the session from a room and pauses the game clock
// if a seated player vanished.
func (h *Hub) leaveRoom(s *Session, roomID string) {
	h.mu.Lock()
	if m, ok := h.members[roomID]; ok {
		delete(m, s.id)
		if len(m) == 0 {
			delete(h.members, roomID)
		}
	}
	r := h.rooms[roomID]
	h.mu.Unlock()

	if r != nil {
		r.Disconnect(s.id)
	}
	h.broadcastCounts(roomID)
}

// unregister removes a disconnected session entirely.
func (h *Hub) unregister(s *Session) {
	if roomID := s.currentRoom(); roomID != "" {
		h.leaveRoom(s, roomID)
	}
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	h.broadcastCounts("")
}

// broadcastCounts emits the global connection count to everyone and,
// when roomID is set, that room's member count to its members.
func (h *Hub) broadcastCounts(roomID string) {
	h.mu.Lock()
	global := len(h.sessions)
	all := make([]*Session, 0, global)
	for _, s := range h.sessions {
		all = append(all, s)
	}
	var members []*Session
	if roomID != "" {
		for _, s := range h.members[roomID] {
			members = append(members, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.enqueue(outboundFrame{Event: "update_global_count", Data: global})
	}
	for _, s := range members {
		s.enqueue(outboundFrame{Event: "update_room_count", Data: len(members)})
	}
}

// RunGC deletes rooms that are both stale on disk and empty in memory,
// hourly by default. Badger's value log is compacted on the same cadence.
func (h *Hub) RunGC(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.GCInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.collect(time.Now())
			h.store.RunValueLogGC()
		}
	}
}

func (h *Hub) collect(now time.Time) {
	stale, err := h.store.StaleRooms(h.cfg.RoomTTL.Duration, now)
	if err != nil {
		h.log.Error("room gc scan failed", zap.Error(err))
		return
	}
	for _, id := range stale {
		h.mu.Lock()
		r := h.rooms[id]
		occupied := len(h.members[id]) > 0
		h.mu.Unlock()

		if occupied || (r != nil && r.HasLiveSessions()) {
			continue
		}
		if err := h.store.DeleteRoom(id); err != nil {
			h.log.Error("room gc delete failed", zap.String("room", id), zap.Error(err))
			continue
		}
		h.mu.Lock()
		delete(h.rooms, id)
		h.mu.Unlock()
		h.log.Info("stale room collected", zap.String("room", id))
	}
}
