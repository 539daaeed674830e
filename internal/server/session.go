package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hailam/shogiplay/internal/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Session is one websocket connection. A session belongs to at most one
// room at a time.
type Session struct {
	id   string
	conn *websocket.Conn
	send chan outboundFrame
	hub  *Hub
	log  *zap.Logger

	mu       sync.Mutex
	roomID   string
	userID   string
	userName string
	role     room.Role
}

func newSession(conn *websocket.Conn, hub *Hub, log *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:   id,
		conn: conn,
		send: make(chan outboundFrame, sendBuffer),
		hub:  hub,
		log:  log.With(zap.String("session", id)),
	}
}

func (s *Session) currentRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

func (s *Session) setRoom(roomID string) {
	s.mu.Lock()
	s.roomID = roomID
	s.mu.Unlock()
}

func (s *Session) setIdentity(userID, userName string, role room.Role) {
	s.mu.Lock()
	s.userID = userID
	s.userName = userName
	s.role = role
	s.mu.Unlock()
}

func (s *Session) identity() (string, string, room.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.userName, s.role
}

// enqueue hands a frame to the write pump without blocking; a session
// that cannot keep up loses frames rather than stalling a room.
func (s *Session) enqueue(frame outboundFrame) {
	select {
	case s.send <- frame:
	default:
		s.log.Warn("send buffer full, dropping frame", zap.String("event", frame.Event))
	}
}

// readPump consumes inbound frames until the connection dies. Panics in
// handlers are logged and the connection survives.
func (s *Session) readPump() {
	// the send channel is never closed; the write pump exits on the
	// first failed write after the connection goes away
	defer func() {
		s.hub.unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame inboundFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		s.handle(frame)
	}
}

// writePump serializes all writes to the connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle dispatches one inbound event. Malformed payloads, unknown
// rooms and wrong-state actions are all silently dropped: the server is
// authoritative and never argues with clients.
func (s *Session) handle(frame inboundFrame) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in event handler",
				zap.String("event", frame.Event), zap.Any("panic", r))
		}
	}()

	switch frame.Event {
	case "join_room":
		var p joinPayload
		if s.decode(frame, &p) {
			s.hub.joinRoom(s, p)
		}

	case "send_message":
		var p messagePayload
		if s.decode(frame, &p) {
			s.sendChat(p)
		}

	case "update_settings":
		var p settingsPayload
		if s.decode(frame, &p) {
			if r, ok := s.hub.Room(p.RoomID); ok {
				r.UpdateSettings(p.Settings)
			}
		}

	case "toggle_ready":
		var p seatPayload
		if s.decode(frame, &p) {
			if r, ok := s.hub.Room(p.RoomID); ok {
				r.ToggleReady(p.Seat)
			}
		}

	case "move":
		var p movePayload
		if s.decode(frame, &p) {
			if r, ok := s.hub.Room(p.RoomID); ok {
				r.HandleMove(p.Move, p.BranchIndex)
			}
		}

	case "game_resign":
		var p resignPayload
		if s.decode(frame, &p) {
			if r, ok := s.hub.Room(p.RoomID); ok {
				r.Resign(p.Loser)
			}
		}

	case "undo":
		var p roomPayload
		if s.decode(frame, &p) {
			if r, ok := s.hub.Room(p.RoomID); ok {
				r.Undo()
			}
		}

	case "reset":
		var p roomPayload
		if s.decode(frame, &p) {
			if r, ok := s.hub.Room(p.RoomID); ok {
				r.Reset()
			}
		}

	case "rematch":
		var p seatPayload
		if s.decode(frame, &p) {
			if r, ok := s.hub.Room(p.RoomID); ok {
				r.RequestRematch(p.Seat)
			}
		}

	case "ping_latency":
		// client latency probe; echo the payload back
		s.enqueue(outboundFrame{Event: "pong_latency", Data: frame.Data})

	default:
		s.log.Debug("unknown event", zap.String("event", frame.Event))
	}
}

func (s *Session) decode(frame inboundFrame, v any) bool {
	if err := json.Unmarshal(frame.Data, v); err != nil {
		s.log.Debug("malformed payload",
			zap.String("event", frame.Event), zap.Error(err))
		return false
	}
	return true
}

// sendChat fans a chat message out to the sender's room.
func (s *Session) sendChat(p messagePayload) {
	if p.RoomID == "" || p.Text == "" {
		return
	}
	userID, userName, _ := s.identity()
	msg := chatMessage{
		ID:        uuid.NewString(),
		Text:      p.Text,
		Role:      p.Role,
		UserName:  userName,
		UserID:    userID,
		Timestamp: time.Now().UnixMilli(),
	}
	s.hub.deliver(p.RoomID, room.Event{Name: "receive_message", Data: msg})
}
