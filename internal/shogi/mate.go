package shogi

// HasAnyLegalMove reports whether side has at least one legal move or
// drop. Candidates are tested with the drop-pawn-mate check disabled,
// which both avoids infinite regress and matches the rule: a reply that
// would itself be an illegal pawn-drop-mate still refutes a mate claim
// only if some other reply exists, and a position with no replies at all
// is mate regardless.
func HasAnyLegalMove(b *Board, hands *Hands, side Side) bool {
	// board moves
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			p := b[y][x]
			if p.IsEmpty() || p.Side != side {
				continue
			}
			from := Square{X: x, Y: y}
			for ty := 0; ty < BoardSize; ty++ {
				for tx := 0; tx < BoardSize; tx++ {
					to := Square{X: tx, Y: ty}
					if IsLegal(b, hands, side, NewBoardMove(from, to, false), false) {
						return true
					}
					if p.Kind.CanPromote() &&
						(inPromotionZone(side, from) || inPromotionZone(side, to)) &&
						IsLegal(b, hands, side, NewBoardMove(from, to, true), false) {
						return true
					}
				}
			}
		}
	}

	// drops
	for _, kind := range HandKinds {
		if hands[side].Count(kind) == 0 {
			continue
		}
		for ty := 0; ty < BoardSize; ty++ {
			for tx := 0; tx < BoardSize; tx++ {
				to := Square{X: tx, Y: ty}
				if !b.IsEmpty(to) {
					continue
				}
				if IsLegal(b, hands, side, NewDrop(kind, to), false) {
					return true
				}
			}
		}
	}

	return false
}

// IsCheckmate reports whether side is in check with no legal reply.
func IsCheckmate(b *Board, hands *Hands, side Side) bool {
	return InCheck(b, side) && !HasAnyLegalMove(b, hands, side)
}
