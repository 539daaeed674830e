package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/shogiplay/internal/room"
)

func frame(t *testing.T, event string, payload any) inboundFrame {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return inboundFrame{Event: event, Data: data}
}

func TestHandleJoinRoom(t *testing.T) {
	h := newTestHub(t)
	s := testSession(h, "s1")
	h.register(s)

	s.handle(frame(t, "join_room", joinPayload{RoomID: "r1", UserID: "u1", UserName: "alice"}))

	assert.Equal(t, "r1", s.currentRoom())
	_, ok := h.Room("r1")
	assert.True(t, ok)
}

func TestHandlePingLatency(t *testing.T) {
	h := newTestHub(t)
	s := testSession(h, "s1")

	s.handle(inboundFrame{Event: "ping_latency", Data: json.RawMessage(`{"t":123}`)})

	frames := drain(s)
	require.Len(t, frames, 1)
	assert.Equal(t, "pong_latency", frames[0].Event)
	assert.JSONEq(t, `{"t":123}`, string(frames[0].Data.(json.RawMessage)))
}

func TestHandleMalformedPayloadIsIgnored(t *testing.T) {
	h := newTestHub(t)
	s := testSession(h, "s1")
	h.register(s)
	drain(s)

	s.handle(inboundFrame{Event: "join_room", Data: json.RawMessage(`"not an object"`)})
	s.handle(inboundFrame{Event: "move", Data: json.RawMessage(`{`)})
	s.handle(inboundFrame{Event: "does_not_exist", Data: nil})

	assert.Equal(t, "", s.currentRoom())
	assert.Empty(t, drain(s))
}

func TestHandleUnknownRoomIsIgnored(t *testing.T) {
	h := newTestHub(t)
	s := testSession(h, "s1")

	// room operations against rooms that were never joined are dropped
	s.handle(frame(t, "toggle_ready", seatPayload{RoomID: "ghost"}))
	s.handle(frame(t, "undo", roomPayload{RoomID: "ghost"}))

	_, ok := h.Room("ghost")
	assert.False(t, ok)
	assert.Empty(t, drain(s))
}

func TestSendChatFansOutToRoom(t *testing.T) {
	h := newTestHub(t)
	s1 := testSession(h, "s1")
	s2 := testSession(h, "s2")
	h.register(s1)
	h.register(s2)
	h.joinRoom(s1, joinPayload{RoomID: "r1", UserID: "u1", UserName: "alice"})
	h.joinRoom(s2, joinPayload{RoomID: "r1", UserID: "u2", UserName: "bob"})
	drain(s1)
	drain(s2)

	s1.handle(frame(t, "send_message", messagePayload{RoomID: "r1", Text: "hi", Role: "sente"}))

	for _, s := range []*Session{s1, s2} {
		frames := drain(s)
		require.Len(t, frames, 1)
		assert.Equal(t, "receive_message", frames[0].Event)
		msg, ok := frames[0].Data.(chatMessage)
		require.True(t, ok)
		assert.Equal(t, "hi", msg.Text)
		assert.Equal(t, "alice", msg.UserName)
		assert.Equal(t, "u1", msg.UserID)
		assert.NotEmpty(t, msg.ID)
	}
}

func TestToggleReadyThroughDispatch(t *testing.T) {
	h := newTestHub(t)
	s1 := testSession(h, "s1")
	s2 := testSession(h, "s2")
	h.register(s1)
	h.register(s2)
	h.joinRoom(s1, joinPayload{RoomID: "r1", UserID: "u1", UserName: "alice"})
	h.joinRoom(s2, joinPayload{RoomID: "r1", UserID: "u2", UserName: "bob"})

	r, ok := h.Room("r1")
	require.True(t, ok)

	_, _, role1 := s1.identity()
	_, _, role2 := s2.identity()
	require.Equal(t, room.RoleSente, role1)
	require.Equal(t, room.RoleGote, role2)

	s1.handle(frame(t, "toggle_ready", seatPayload{RoomID: "r1", Seat: 0}))
	assert.Equal(t, room.StatusWaiting, r.Status)

	s2.handle(frame(t, "toggle_ready", seatPayload{RoomID: "r1", Seat: 1}))
	t.Cleanup(func() { r.Resign(r.SideToMove()) })
	assert.Equal(t, room.StatusPlaying, r.Status)
}
