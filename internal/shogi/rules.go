package shogi

// abs for small ints.
func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// pathClear reports whether every square strictly between from and to is
// empty. from and to themselves do not count as blockers.
func pathClear(b *Board, from, to Square) bool {
	dx := sign(to.X - from.X)
	dy := sign(to.Y - from.Y)
	x, y := from.X+dx, from.Y+dy
	for x != to.X || y != to.Y {
		if !b[y][x].IsEmpty() {
			return false
		}
		x += dx
		y += dy
	}
	return true
}

// goldReach is the step pattern shared by gold and the four promoted
// minor pieces: any orthogonal step, or a forward diagonal step.
func goldReach(dx, dy, forward int) bool {
	return (abs(dx) == 1 && dy == 0) ||
		(dx == 0 && abs(dy) == 1) ||
		(abs(dx) == 1 && dy == forward)
}

// CanReach reports whether the piece standing on from could move to to by
// its movement pattern, including slider blocker checks. Ownership of the
// destination is not examined here.
func CanReach(b *Board, from, to Square, p Piece) bool {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 && dy == 0 {
		return false
	}
	forward := p.Side.Forward()

	switch p.Kind {
	case King:
		return abs(dx) <= 1 && abs(dy) <= 1
	case Gold, PromotedPawn, PromotedLance, PromotedKnight, PromotedSilver:
		return goldReach(dx, dy, forward)
	case Silver:
		return (abs(dx) == 1 && abs(dy) == 1) || (dx == 0 && dy == forward)
	case Knight:
		// jumps, no blocker check
		return abs(dx) == 1 && dy == 2*forward
	case Pawn:
		return dx == 0 && dy == forward
	case Lance:
		return dx == 0 && sign(dy) == forward && pathClear(b, from, to)
	case Bishop:
		return abs(dx) == abs(dy) && pathClear(b, from, to)
	case Horse:
		if abs(dx) <= 1 && abs(dy) <= 1 {
			return true
		}
		return abs(dx) == abs(dy) && pathClear(b, from, to)
	case Rook:
		return (dx == 0 || dy == 0) && pathClear(b, from, to)
	case Dragon:
		if abs(dx) <= 1 && abs(dy) <= 1 {
			return true
		}
		return (dx == 0 || dy == 0) && pathClear(b, from, to)
	}
	return false
}

// isDeadSquare reports whether a piece of the kind could never move again
// from the square: pawns and lances on the last rank, knights on the last
// two ranks, as seen from side.
func isDeadSquare(kind Kind, side Side, sq Square) bool {
	last := 0
	if side == Gote {
		last = BoardSize - 1
	}
	switch kind {
	case Pawn, Lance:
		return sq.Y == last
	case Knight:
		return abs(sq.Y-last) <= 1
	}
	return false
}

// inPromotionZone reports whether the square lies in side's promotion
// zone (the opponent's three back ranks).
func inPromotionZone(side Side, sq Square) bool {
	if side == Sente {
		return sq.Y <= 2
	}
	return sq.Y >= BoardSize-3
}

// hasUnpromotedPawnOnFile reports whether side already has an unpromoted
// pawn on file x. Used for the two-pawns rule.
func hasUnpromotedPawnOnFile(b *Board, side Side, x int) bool {
	for y := 0; y < BoardSize; y++ {
		p := b[y][x]
		if p.Kind == Pawn && p.Side == side {
			return true
		}
	}
	return false
}

// InCheck reports whether side's king is attacked. A missing king is
// treated as not in check.
func InCheck(b *Board, side Side) bool {
	ksq, ok := b.FindKing(side)
	if !ok {
		return false
	}
	enemy := side.Other()
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			p := b[y][x]
			if p.IsEmpty() || p.Side != enemy {
				continue
			}
			if CanReach(b, Square{X: x, Y: y}, ksq, p) {
				return true
			}
		}
	}
	return false
}

// Apply executes a move for side and returns the resulting board and
// hands. The move is assumed validated; captures enter the mover's hand
// demoted. The inputs are not modified.
func Apply(b *Board, hands *Hands, side Side, m Move) (*Board, *Hands) {
	nb := b.Clone()
	nh := hands.Clone()

	if m.Drop {
		nh[side].Remove(m.Piece)
		nb.set(m.To, NewPiece(m.Piece, side))
		return nb, nh
	}

	mover := nb.At(m.From)
	nb.set(m.From, Piece{})
	if target := nb.At(m.To); !target.IsEmpty() {
		nh[side].Add(target.Kind.Demote())
	}
	kind := mover.Kind
	if m.Promote {
		if pk, ok := kind.Promote(); ok {
			kind = pk
		}
	}
	nb.set(m.To, NewPiece(kind, side))
	return nb, nh
}

// IsLegal validates a move for side against the full rule set: bounds,
// destination ownership, dead squares, drop restrictions (including the
// two-pawns rule), piece reachability, self-check, and (when
// checkDropPawnMate is true) the drop-pawn-mate prohibition. The
// recursion through candidate replies runs with the flag off.
func IsLegal(b *Board, hands *Hands, side Side, m Move, checkDropPawnMate bool) bool {
	if !m.To.InBounds() {
		return false
	}
	target := b.At(m.To)
	if !target.IsEmpty() && target.Side == side {
		return false
	}

	if m.Drop {
		if !target.IsEmpty() {
			return false
		}
		if m.Piece.IsPromoted() || m.Piece == King {
			return false
		}
		if hands[side].Count(m.Piece) == 0 {
			return false
		}
		if isDeadSquare(m.Piece, side, m.To) {
			return false
		}
		if m.Piece == Pawn && hasUnpromotedPawnOnFile(b, side, m.To.X) {
			return false
		}
	} else {
		if !m.From.InBounds() {
			return false
		}
		mover := b.At(m.From)
		if mover.IsEmpty() || mover.Side != side {
			return false
		}
		if m.Promote {
			if !mover.Kind.CanPromote() {
				return false
			}
			if !inPromotionZone(side, m.From) && !inPromotionZone(side, m.To) {
				return false
			}
		} else if isDeadSquare(mover.Kind, side, m.To) {
			return false
		}
		if !CanReach(b, m.From, m.To, mover) {
			return false
		}
	}

	nb, nh := Apply(b, hands, side, m)
	if InCheck(nb, side) {
		return false
	}

	if checkDropPawnMate && m.Drop && m.Piece == Pawn {
		enemy := side.Other()
		if InCheck(nb, enemy) && !HasAnyLegalMove(nb, nh, enemy) {
			return false
		}
	}

	return true
}
