package server

import (
	"encoding/json"

	"github.com/hailam/shogiplay/internal/room"
	"github.com/hailam/shogiplay/internal/shogi"
)

// inboundFrame is the envelope of every client message.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outboundFrame is the envelope of every server message.
type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type joinPayload struct {
	RoomID   string `json:"roomId"`
	Mode     string `json:"mode"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type messagePayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
	Role   string `json:"role"`
}

// chatMessage is the receive_message payload fanned out to the room.
type chatMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Role      string `json:"role"`
	UserName  string `json:"userName"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"` // ms epoch
}

type settingsPayload struct {
	RoomID   string        `json:"roomId"`
	Settings room.Settings `json:"settings"`
}

type seatPayload struct {
	RoomID string     `json:"roomId"`
	Seat   shogi.Side `json:"seat"`
}

type movePayload struct {
	RoomID      string     `json:"roomId"`
	Move        shogi.Move `json:"move"`
	BranchIndex *int       `json:"branchIndex,omitempty"`
}

type resignPayload struct {
	RoomID string     `json:"roomId"`
	Loser  shogi.Side `json:"loser"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}
