package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hailam/shogiplay/internal/config"
	"github.com/hailam/shogiplay/internal/room"
	"github.com/hailam/shogiplay/internal/storage"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	store, err := storage.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewHub(config.Default(), store, zap.NewNop())
}

// testSession builds a session with no websocket behind it; frames pile
// up in the send channel where tests can inspect them.
func testSession(h *Hub, id string) *Session {
	return &Session{
		id:   id,
		send: make(chan outboundFrame, sendBuffer),
		hub:  h,
		log:  zap.NewNop(),
	}
}

func drain(s *Session) []outboundFrame {
	var frames []outboundFrame
	for {
		select {
		case f := <-s.send:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func eventNames(frames []outboundFrame) []string {
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = f.Event
	}
	return names
}

func TestJoinRoomSeatsPlayers(t *testing.T) {
	h := newTestHub(t)

	s1 := testSession(h, "s1")
	s2 := testSession(h, "s2")
	s3 := testSession(h, "s3")
	for _, s := range []*Session{s1, s2, s3} {
		h.register(s)
	}

	h.joinRoom(s1, joinPayload{RoomID: "r1", UserID: "u1", UserName: "alice"})
	h.joinRoom(s2, joinPayload{RoomID: "r1", UserID: "u2", UserName: "bob"})
	h.joinRoom(s3, joinPayload{RoomID: "r1", UserID: "u3", UserName: "carol"})

	_, _, role1 := s1.identity()
	_, _, role2 := s2.identity()
	_, _, role3 := s3.identity()
	assert.Equal(t, room.RoleSente, role1)
	assert.Equal(t, room.RoleGote, role2)
	assert.Equal(t, room.RoleSpectator, role3)

	r, ok := h.Room("r1")
	require.True(t, ok)
	assert.Equal(t, room.StatusWaiting, r.Status)
}

func TestJoinRoomCreatesWithConfiguredClock(t *testing.T) {
	h := newTestHub(t)
	s := testSession(h, "s1")
	h.register(s)
	h.joinRoom(s, joinPayload{RoomID: "r1", UserID: "u1", UserName: "alice"})

	r, ok := h.Room("r1")
	require.True(t, ok)
	assert.Equal(t, 600, r.Settings.InitialSeconds)
	assert.Equal(t, 30, r.Settings.ByoyomiSeconds)
}

func TestJoinSecondRoomLeavesFirst(t *testing.T) {
	h := newTestHub(t)
	s := testSession(h, "s1")
	h.register(s)

	h.joinRoom(s, joinPayload{RoomID: "r1", UserID: "u1", UserName: "alice"})
	h.joinRoom(s, joinPayload{RoomID: "r2", UserID: "u1", UserName: "alice"})

	assert.Equal(t, "r2", s.currentRoom())
	h.mu.Lock()
	_, inR1 := h.members["r1"]
	r2Members := len(h.members["r2"])
	h.mu.Unlock()
	assert.False(t, inR1, "r1 membership should be gone")
	assert.Equal(t, 1, r2Members)
}

func TestDeliverRoutesToSessionOrRoom(t *testing.T) {
	h := newTestHub(t)
	s1 := testSession(h, "s1")
	s2 := testSession(h, "s2")
	h.register(s1)
	h.register(s2)
	h.joinRoom(s1, joinPayload{RoomID: "r1", UserID: "u1", UserName: "alice"})
	h.joinRoom(s2, joinPayload{RoomID: "r1", UserID: "u2", UserName: "bob"})
	drain(s1)
	drain(s2)

	t.Run("targeted", func(t *testing.T) {
		h.deliver("r1", room.Event{SessionID: "s1", Name: "sync", Data: "x"})
		assert.Equal(t, []string{"sync"}, eventNames(drain(s1)))
		assert.Empty(t, drain(s2))
	})

	t.Run("broadcast", func(t *testing.T) {
		h.deliver("r1", room.Event{Name: "move", Data: "y"})
		assert.Equal(t, []string{"move"}, eventNames(drain(s1)))
		assert.Equal(t, []string{"move"}, eventNames(drain(s2)))
	})
}

func TestCountsOnRegisterAndUnregister(t *testing.T) {
	h := newTestHub(t)
	s1 := testSession(h, "s1")
	s2 := testSession(h, "s2")

	h.register(s1)
	frames := drain(s1)
	require.NotEmpty(t, frames)
	assert.Equal(t, "update_global_count", frames[len(frames)-1].Event)
	assert.Equal(t, 1, frames[len(frames)-1].Data)

	h.register(s2)
	drain(s1)
	drain(s2)

	h.unregister(s2)
	frames = drain(s1)
	require.NotEmpty(t, frames)
	assert.Equal(t, 1, frames[len(frames)-1].Data)
}

func TestCollectSkipsOccupiedRooms(t *testing.T) {
	h := newTestHub(t)
	old := time.Now().Add(-25 * time.Hour)

	// two stale snapshots; only one has a live member
	require.NoError(t, h.store.SaveRoom("busy", []byte(`{"id":"busy"}`), old))
	require.NoError(t, h.store.SaveRoom("empty", []byte(`{"id":"empty"}`), old))

	s := testSession(h, "s1")
	h.register(s)
	h.joinRoom(s, joinPayload{RoomID: "busy", UserID: "u1", UserName: "alice"})

	h.collect(time.Now())

	_, found, err := h.store.LoadRoom("busy")
	require.NoError(t, err)
	assert.True(t, found, "occupied room must survive gc")

	_, found, err = h.store.LoadRoom("empty")
	require.NoError(t, err)
	assert.False(t, found, "stale empty room should be deleted")
}

func TestLoadFromStoreRestoresRooms(t *testing.T) {
	h := newTestHub(t)
	require.NoError(t, h.store.SaveRoom("r1", []byte(`{"id":"r1","status":"finished","winner":"sente"}`), time.Now()))
	require.NoError(t, h.store.SaveRoom("bad", []byte(`not json`), time.Now()))

	require.NoError(t, h.LoadFromStore())

	r, ok := h.Room("r1")
	require.True(t, ok)
	assert.Equal(t, room.StatusFinished, r.Status)
	assert.Equal(t, room.WinnerSente, r.Winner)

	_, ok = h.Room("bad")
	assert.False(t, ok, "unreadable snapshot is dropped")
}
