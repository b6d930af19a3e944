package board

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	Light Color = iota
	Dark
)

// Forward is the rank direction pawns of this colour advance in.
func (c Color) Forward() int {
	if c == Dark {
		return -1
	}
	return 1
}

// HomeRank is the back rank pieces of this colour start on.
func (c Color) HomeRank() int {
	if c == Dark {
		return Size - 1
	}
	return 0
}

// PawnRank is the rank pawns of this colour start on.
func (c Color) PawnRank() int { return c.HomeRank() + c.Forward() }

func (c Color) Opponent() Color {
	if c == Dark {
		return Light
	}
	return Dark
}

func (c Color) String() string {
	if c == Dark {
		return "dark"
	}
	return "light"
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "light", "white", "w":
		*c = Light
	case "dark", "black", "b":
		*c = Dark
	default:
		return fmt.Errorf("unknown color %q", string(b))
	}
	return nil
}

// PieceKind is the type of a chess piece.
type PieceKind uint8

const (
	Pawn PieceKind = iota
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindNames = [...]string{"pawn", "rook", "knight", "bishop", "queen", "king"}

// Valid reports whether k is one of the six piece kinds.
func (k PieceKind) Valid() bool { return int(k) < len(kindNames) }

func (k PieceKind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Letter is the upper-case English piece letter (P, R, N, B, Q, K), or '?'
// for an unknown kind.
func (k PieceKind) Letter() byte {
	if !k.Valid() {
		return '?'
	}
	return "PRNBQK"[k]
}

func (k PieceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PieceKind) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range kindNames {
		if n == name {
			*k = PieceKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown piece kind %q", string(b))
}

// Piece is the occupant of a cell.
type Piece struct {
	Kind     PieceKind `json:"kind"`
	Color    Color     `json:"color"`
	HasMoved bool      `json:"has_moved,omitempty"`
}

// Symbol is the FEN-style letter: upper case for Light, lower case for Dark.
func (p Piece) Symbol() byte {
	l := p.Kind.Letter()
	if p.Color == Dark && p.Kind.Valid() {
		return l + ('a' - 'A')
	}
	return l
}

func (p Piece) String() string { return p.Color.String() + " " + p.Kind.String() }
