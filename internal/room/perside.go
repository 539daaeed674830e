package room

import "github.com/hailam/shogiplay/internal/shogi"

// PerSide holds one value per seat, serialized as {"sente":..,"gote":..}.
type PerSide[T any] struct {
	Sente T `json:"sente"`
	Gote  T `json:"gote"`
}

// Get returns the value for the given side.
func (p *PerSide[T]) Get(s shogi.Side) T {
	if s == shogi.Sente {
		return p.Sente
	}
	return p.Gote
}

// Set stores the value for the given side.
func (p *PerSide[T]) Set(s shogi.Side, v T) {
	if s == shogi.Sente {
		p.Sente = v
	} else {
		p.Gote = v
	}
}

// Swap exchanges the two seats' values.
func (p *PerSide[T]) Swap() {
	p.Sente, p.Gote = p.Gote, p.Sente
}
