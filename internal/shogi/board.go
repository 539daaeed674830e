package shogi

import "strings"

// BoardSize is the number of ranks and files.
const BoardSize = 9

// TotalPieces is the piece count of a full set, board plus both hands.
const TotalPieces = 40

// Square addresses a board cell. x is the file (0..8 left to right from
// Gote's view), y the rank (0 = Gote's back rank, 8 = Sente's back rank).
type Square struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InBounds returns true if the square lies on the board.
func (sq Square) InBounds() bool {
	return sq.X >= 0 && sq.X < BoardSize && sq.Y >= 0 && sq.Y < BoardSize
}

// Board is the 9x9 grid, indexed [y][x]. The zero Piece is an empty square.
type Board [BoardSize][BoardSize]Piece

// At returns the piece on the square.
func (b *Board) At(sq Square) Piece {
	return b[sq.Y][sq.X]
}

// IsEmpty returns true if the square holds no piece.
func (b *Board) IsEmpty(sq Square) bool {
	return b[sq.Y][sq.X].IsEmpty()
}

// set places a piece (or the empty piece) on a square.
func (b *Board) set(sq Square, p Piece) {
	b[sq.Y][sq.X] = p
}

// Clone returns a copy of the board.
func (b *Board) Clone() *Board {
	nb := *b
	return &nb
}

// FindKing returns the square of side's king. The bool is false if the
// king is not on the board.
func (b *Board) FindKing(side Side) (Square, bool) {
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			p := b[y][x]
			if p.Kind == King && p.Side == side {
				return Square{X: x, Y: y}, true
			}
		}
	}
	return Square{}, false
}

// String returns a visual dump of the board for logs and tests.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			p := b[y][x]
			if p.IsEmpty() {
				sb.WriteString(" . ")
				continue
			}
			c, promoted := p.Kind.sfenChar()
			if p.Side == Sente {
				c -= 'a' - 'A'
			}
			if promoted {
				sb.WriteByte('+')
			} else {
				sb.WriteByte(' ')
			}
			sb.WriteByte(c)
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// InitialBoard returns the standard starting position. Gote occupies
// ranks 0..2, Sente ranks 6..8.
func InitialBoard() *Board {
	var b Board

	backRank := [BoardSize]Kind{Lance, Knight, Silver, Gold, King, Gold, Silver, Knight, Lance}
	for x, k := range backRank {
		b.set(Square{X: x, Y: 0}, NewPiece(k, Gote))
		b.set(Square{X: x, Y: 8}, NewPiece(k, Sente))
	}
	for x := 0; x < BoardSize; x++ {
		b.set(Square{X: x, Y: 2}, NewPiece(Pawn, Gote))
		b.set(Square{X: x, Y: 6}, NewPiece(Pawn, Sente))
	}
	b.set(Square{X: 1, Y: 1}, NewPiece(Rook, Gote))
	b.set(Square{X: 7, Y: 1}, NewPiece(Bishop, Gote))
	b.set(Square{X: 7, Y: 7}, NewPiece(Rook, Sente))
	b.set(Square{X: 1, Y: 7}, NewPiece(Bishop, Sente))

	return &b
}

// HandKinds lists the droppable kinds in the fixed order used for hand
// serialization and the position fingerprint.
var HandKinds = [7]Kind{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

// Hand is the multiset of captured pieces held by one side, counted per
// unpromoted kind. Indexed by handIndex.
type Hand [7]int

func handIndex(k Kind) int {
	for i, hk := range HandKinds {
		if hk == k {
			return i
		}
	}
	return -1
}

// Count returns how many pieces of the kind the hand holds.
func (h *Hand) Count(k Kind) int {
	i := handIndex(k)
	if i < 0 {
		return 0
	}
	return h[i]
}

// Add puts a piece of the kind into the hand. King and promoted kinds
// are rejected by the callers; Add demotes defensively.
func (h *Hand) Add(k Kind) {
	if i := handIndex(k.Demote()); i >= 0 {
		h[i]++
	}
}

// Remove takes one piece of the kind out of the hand. Returns false if
// the hand holds none.
func (h *Hand) Remove(k Kind) bool {
	i := handIndex(k)
	if i < 0 || h[i] == 0 {
		return false
	}
	h[i]--
	return true
}

// Total returns the number of pieces in the hand.
func (h *Hand) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Hands holds both sides' hands, indexed by Side.
type Hands [2]Hand

// Clone returns a copy of both hands.
func (h *Hands) Clone() *Hands {
	nh := *h
	return &nh
}
