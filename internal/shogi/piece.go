// Package shogi implements the board, pieces and rules of shogi as pure
// functions. Nothing in this package knows about rooms, clocks or sessions.
package shogi

import (
	"encoding/json"
	"fmt"
)

// Side represents the owner of a piece or the player to move.
type Side uint8

const (
	Sente Side = iota // first player, moves toward y=0
	Gote              // second player, moves toward y=8
)

// Other returns the opposite side.
func (s Side) Other() Side {
	return s ^ 1
}

// Forward returns the y direction this side's pawns advance in.
func (s Side) Forward() int {
	if s == Sente {
		return -1
	}
	return 1
}

// String returns the side name used on the wire ("sente" or "gote").
func (s Side) String() string {
	if s == Sente {
		return "sente"
	}
	return "gote"
}

// MarshalJSON encodes the side as its wire name.
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a side from its wire name.
func (s *Side) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	side, err := ParseSide(name)
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// ParseSide converts a wire name to a Side.
func ParseSide(name string) (Side, error) {
	switch name {
	case "sente":
		return Sente, nil
	case "gote":
		return Gote, nil
	default:
		return Sente, fmt.Errorf("invalid side: %q", name)
	}
}

// Kind represents the type of a shogi piece.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	PromotedPawn
	PromotedLance
	PromotedKnight
	PromotedSilver
	Horse  // promoted bishop
	Dragon // promoted rook
)

var kindNames = map[Kind]string{
	Pawn:           "pawn",
	Lance:          "lance",
	Knight:         "knight",
	Silver:         "silver",
	Gold:           "gold",
	Bishop:         "bishop",
	Rook:           "rook",
	King:           "king",
	PromotedPawn:   "promotedPawn",
	PromotedLance:  "promotedLance",
	PromotedKnight: "promotedKnight",
	PromotedSilver: "promotedSilver",
	Horse:          "horse",
	Dragon:         "dragon",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// String returns the wire name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "none"
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its wire name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	kind, ok := kindByName[name]
	if !ok {
		return fmt.Errorf("invalid piece kind: %q", name)
	}
	*k = kind
	return nil
}

// IsPromoted returns true for the six promoted kinds.
func (k Kind) IsPromoted() bool {
	return k >= PromotedPawn
}

// CanPromote returns true if the kind has a promoted counterpart.
func (k Kind) CanPromote() bool {
	switch k {
	case Pawn, Lance, Knight, Silver, Bishop, Rook:
		return true
	}
	return false
}

// Promote returns the promoted counterpart of the kind.
// The bool is false if the kind cannot promote.
func (k Kind) Promote() (Kind, bool) {
	switch k {
	case Pawn:
		return PromotedPawn, true
	case Lance:
		return PromotedLance, true
	case Knight:
		return PromotedKnight, true
	case Silver:
		return PromotedSilver, true
	case Bishop:
		return Horse, true
	case Rook:
		return Dragon, true
	}
	return k, false
}

// Demote returns the unpromoted counterpart of the kind.
// Unpromoted kinds demote to themselves.
func (k Kind) Demote() Kind {
	switch k {
	case PromotedPawn:
		return Pawn
	case PromotedLance:
		return Lance
	case PromotedKnight:
		return Knight
	case PromotedSilver:
		return Silver
	case Horse:
		return Bishop
	case Dragon:
		return Rook
	}
	return k
}

// sfenChar returns the lowercase SFEN letter for the kind's base piece
// and whether the kind carries a '+' prefix.
func (k Kind) sfenChar() (byte, bool) {
	switch k {
	case Pawn:
		return 'p', false
	case Lance:
		return 'l', false
	case Knight:
		return 'n', false
	case Silver:
		return 's', false
	case Gold:
		return 'g', false
	case Bishop:
		return 'b', false
	case Rook:
		return 'r', false
	case King:
		return 'k', false
	case PromotedPawn:
		return 'p', true
	case PromotedLance:
		return 'l', true
	case PromotedKnight:
		return 'n', true
	case PromotedSilver:
		return 's', true
	case Horse:
		return 'b', true
	case Dragon:
		return 'r', true
	}
	return '?', false
}

// Piece combines a kind with its owner. The Promoted flag is redundant
// with the kind and kept in sync by NewPiece.
type Piece struct {
	Kind     Kind `json:"kind"`
	Side     Side `json:"side"`
	Promoted bool `json:"promoted"`
}

// NewPiece creates a piece, deriving the promoted flag from the kind.
func NewPiece(kind Kind, side Side) Piece {
	return Piece{Kind: kind, Side: side, Promoted: kind.IsPromoted()}
}

// IsEmpty returns true for the zero Piece (an empty square).
func (p Piece) IsEmpty() bool {
	return p.Kind == NoKind
}
