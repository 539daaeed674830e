package room

import "github.com/hailam/shogiplay/internal/shogi"

// repetitionLimit is the fourfold-repetition threshold (sennichite).
const repetitionLimit = 4

// classifyRepetitionLocked decides the outcome of a fourfold repetition
// of fp, which must be the fingerprint of the current position. The
// moves between the two most recent occurrences are examined: if one
// side checked on every one of its moves in that block (and moved at
// least once), its perpetual check is illegal and the opponent wins;
// otherwise the repetition is an ordinary sennichite draw.
//
// The position before any move counts as an occurrence at index -1.
func (r *Room) classifyRepetitionLocked(fp string) (Reason, Winner) {
	indices := r.occurrenceIndicesLocked(fp)
	if len(indices) < 2 {
		return ReasonSennichite, WinnerNone
	}
	prev := indices[len(indices)-2]
	last := indices[len(indices)-1]
	return classifyBlock(r.History, prev, last)
}

// classifyBlock judges the moves (prev, last] of the history. prev may
// be -1 for the initial position. A side with no move in the block
// cannot be judged to have checked perpetually.
func classifyBlock(history []RecordedMove, prev, last int) (Reason, Winner) {
	hasSente, hasGote := false, false
	allSenteChecks, allGoteChecks := true, true
	for i := prev + 1; i <= last && i < len(history); i++ {
		rec := history[i]
		if i%2 == 0 { // sente moves on even indices
			hasSente = true
			allSenteChecks = allSenteChecks && rec.IsCheck
		} else {
			hasGote = true
			allGoteChecks = allGoteChecks && rec.IsCheck
		}
	}

	switch {
	case hasSente && allSenteChecks:
		return ReasonIllegalSennichite, WinnerGote
	case hasGote && allGoteChecks:
		return ReasonIllegalSennichite, WinnerSente
	default:
		return ReasonSennichite, WinnerNone
	}
}

// occurrenceIndicesLocked replays the history and returns the indices
// after which the position fingerprint equals fp, with -1 standing for
// the initial position.
func (r *Room) occurrenceIndicesLocked(fp string) []int {
	var indices []int

	b := shogi.InitialBoard()
	hands := &shogi.Hands{}
	if shogi.Fingerprint(b, shogi.Sente, hands) == fp {
		indices = append(indices, -1)
	}

	side := shogi.Sente
	for i, rec := range r.History {
		b, hands = shogi.Apply(b, hands, side, rec.Move)
		side = side.Other()
		if shogi.Fingerprint(b, side, hands) == fp {
			indices = append(indices, i)
		}
	}
	return indices
}
