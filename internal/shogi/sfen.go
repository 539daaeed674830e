package shogi

import (
	"strconv"
	"strings"
)

// Fingerprint returns the canonical SFEN-like encoding of a position:
// board, side to move and both hands. Two positions are game-equivalent
// iff their fingerprints are byte-equal. Used for repetition counting.
func Fingerprint(b *Board, side Side, hands *Hands) string {
	var sb strings.Builder

	for y := 0; y < BoardSize; y++ {
		if y > 0 {
			sb.WriteByte('/')
		}
		empties := 0
		for x := 0; x < BoardSize; x++ {
			p := b[y][x]
			if p.IsEmpty() {
				empties++
				continue
			}
			if empties > 0 {
				sb.WriteString(strconv.Itoa(empties))
				empties = 0
			}
			c, promoted := p.Kind.sfenChar()
			if promoted {
				sb.WriteByte('+')
			}
			if p.Side == Sente {
				c -= 'a' - 'A'
			}
			sb.WriteByte(c)
		}
		if empties > 0 {
			sb.WriteString(strconv.Itoa(empties))
		}
	}

	sb.WriteByte(' ')
	if side == Sente {
		sb.WriteByte('b')
	} else {
		sb.WriteByte('w')
	}
	sb.WriteByte(' ')

	sb.WriteString(handString(&hands[Sente], true))
	sb.WriteByte('/')
	sb.WriteString(handString(&hands[Gote], false))

	return sb.String()
}

// handString encodes one hand in the fixed HandKinds order as
// letter:count entries, zero counts omitted, "-" when empty.
func handString(h *Hand, upper bool) string {
	var sb strings.Builder
	for _, kind := range HandKinds {
		n := h.Count(kind)
		if n == 0 {
			continue
		}
		c, _ := kind.sfenChar()
		if upper {
			c -= 'a' - 'A'
		}
		sb.WriteByte(c)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(n))
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}
