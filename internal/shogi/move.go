package shogi

import (
	"encoding/json"
	"fmt"
)

// Move is either a board move (From -> To with optional promotion) or a
// drop of a hand piece onto To. Drop discriminates the two.
type Move struct {
	Drop    bool
	From    Square
	To      Square
	Promote bool
	Piece   Kind // dropped kind, Drop only
}

// NewBoardMove creates a board move.
func NewBoardMove(from, to Square, promote bool) Move {
	return Move{From: from, To: to, Promote: promote}
}

// NewDrop creates a drop of kind onto to.
func NewDrop(kind Kind, to Square) Move {
	return Move{Drop: true, To: to, Piece: kind}
}

// String returns a short human-readable form for logs.
func (m Move) String() string {
	if m.Drop {
		return fmt.Sprintf("%s*%d,%d", m.Piece, m.To.X, m.To.Y)
	}
	s := fmt.Sprintf("%d,%d-%d,%d", m.From.X, m.From.Y, m.To.X, m.To.Y)
	if m.Promote {
		s += "+"
	}
	return s
}

// moveJSON is the wire shape of a move. Board moves carry from/to/promote,
// drops carry to/piece.
type moveJSON struct {
	Type    string  `json:"type"`
	From    *Square `json:"from,omitempty"`
	To      Square  `json:"to"`
	Promote bool    `json:"promote,omitempty"`
	Piece   Kind    `json:"piece,omitempty"`
}

// MarshalJSON encodes the move in its wire shape.
func (m Move) MarshalJSON() ([]byte, error) {
	if m.Drop {
		return json.Marshal(moveJSON{Type: "drop", To: m.To, Piece: m.Piece})
	}
	from := m.From
	return json.Marshal(moveJSON{Type: "move", From: &from, To: m.To, Promote: m.Promote})
}

// UnmarshalJSON decodes a move from its wire shape.
func (m *Move) UnmarshalJSON(data []byte) error {
	var w moveJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case "drop":
		if w.Piece == NoKind {
			return fmt.Errorf("drop without piece kind")
		}
		*m = NewDrop(w.Piece, w.To)
	case "move":
		if w.From == nil {
			return fmt.Errorf("board move without from square")
		}
		*m = NewBoardMove(*w.From, w.To, w.Promote)
	default:
		return fmt.Errorf("invalid move type: %q", w.Type)
	}
	return nil
}
