// Package board holds the in-memory chessboard: an 8x8 grid of optional
// pieces that is mutated only through MovePiece and Setup.
package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// backRank lists the piece kinds of a back rank from file a to file h.
var backRank = [Size]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Board is the grid of cells. The zero value is an empty board.
// A Board is not safe for concurrent use.
type Board struct {
	grid [Size][Size]*Piece // [file][rank]
}

// New returns an empty board.
func New() *Board { return &Board{} }

// NewStandard returns a board in the standard starting position.
func NewStandard() *Board {
	b := &Board{}
	b.Setup()
	return b
}

// Setup resets the grid to the starting position: Light on ranks 0-1,
// Dark mirrored on ranks 7-6. Calling it again yields the same layout.
func (b *Board) Setup() {
	b.grid = [Size][Size]*Piece{}
	for _, c := range []Color{Light, Dark} {
		for f := 0; f < Size; f++ {
			b.grid[f][c.HomeRank()] = &Piece{Kind: backRank[f], Color: c}
			b.grid[f][c.PawnRank()] = &Piece{Kind: Pawn, Color: c}
		}
	}
}

// HomeKind reports which piece kind starts on cell for colour c, if any.
func HomeKind(c Color, cell Cell) (PieceKind, bool) {
	if !cell.Valid() {
		return 0, false
	}
	switch cell.Rank {
	case c.HomeRank():
		return backRank[cell.File], true
	case c.PawnRank():
		return Pawn, true
	}
	return 0, false
}

// PieceAt returns the occupant of cell. Off-board cells are always empty.
func (b *Board) PieceAt(cell Cell) (Piece, bool) {
	if !cell.Valid() {
		return Piece{}, false
	}
	p := b.grid[cell.File][cell.Rank]
	if p == nil {
		return Piece{}, false
	}
	return *p, true
}

func (b *Board) IsOccupied(cell Cell) bool {
	_, ok := b.PieceAt(cell)
	return ok
}

// IsOccupiedByColor reports whether cell holds a piece of colour c.
func (b *Board) IsOccupiedByColor(cell Cell, c Color) bool {
	p, ok := b.PieceAt(cell)
	return ok && p.Color == c
}

// MovePiece relocates the occupant of from to to, discarding anything on to,
// and marks the piece as moved. The captured piece, if any, is returned.
// The board is left untouched when from is empty, from equals to, or either
// cell is off-board.
func (b *Board) MovePiece(from, to Cell) (captured *Piece, err error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("move %s-%s: %w: %w", from, to, ErrInvalidMove, ErrOffBoard)
	}
	p := b.grid[from.File][from.Rank]
	if p == nil {
		return nil, fmt.Errorf("move %s-%s: %w: %w", from, to, ErrInvalidMove, ErrEmptyCell)
	}
	if from == to {
		return nil, fmt.Errorf("move %s-%s: %w: same cell", from, to, ErrInvalidMove)
	}
	captured = b.grid[to.File][to.Rank]
	b.grid[from.File][from.Rank] = nil
	p.HasMoved = true
	b.grid[to.File][to.Rank] = p
	return captured, nil
}

// Place puts p on cell, replacing any occupant.
func (b *Board) Place(cell Cell, p Piece) error {
	if !cell.Valid() {
		return fmt.Errorf("place %s: %w", cell, ErrOffBoard)
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("place %s: unknown piece %s", cell, p.Kind)
	}
	b.grid[cell.File][cell.Rank] = &p
	return nil
}

// Clear empties cell.
func (b *Board) Clear(cell Cell) {
	if cell.Valid() {
		b.grid[cell.File][cell.Rank] = nil
	}
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	out := &Board{}
	for f := range b.grid {
		for r, p := range b.grid[f] {
			if p != nil {
				cp := *p
				out.grid[f][r] = &cp
			}
		}
	}
	return out
}

// Placement is one occupied cell.
type Placement struct {
	Cell  Cell  `json:"cell"`
	Piece Piece `json:"piece"`
}

// Pieces lists occupied cells ordered by rank, then file.
func (b *Board) Pieces() []Placement {
	out := make([]Placement, 0, 32)
	for r := 0; r < Size; r++ {
		for f := 0; f < Size; f++ {
			if p := b.grid[f][r]; p != nil {
				out = append(out, Placement{Cell: At(f, r), Piece: *p})
			}
		}
	}
	return out
}

// Count returns how many pieces of colour c are on the board.
func (b *Board) Count(c Color) int {
	n := 0
	for _, pl := range b.Pieces() {
		if pl.Piece.Color == c {
			n++
		}
	}
	return n
}

// Equal compares occupants cell by cell, including the moved flag.
func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	for f := 0; f < Size; f++ {
		for r := 0; r < Size; r++ {
			p, q := b.grid[f][r], o.grid[f][r]
			if (p == nil) != (q == nil) {
				return false
			}
			if p != nil && *p != *q {
				return false
			}
		}
	}
	return true
}

// String draws the board with rank 8 on top, '.' for empty cells.
func (b *Board) String() string {
	var sb strings.Builder
	for r := Size - 1; r >= 0; r-- {
		for f := 0; f < Size; f++ {
			if p := b.grid[f][r]; p != nil {
				sb.WriteByte(p.Symbol())
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Pieces())
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var list []Placement
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	var grid [Size][Size]*Piece
	for _, pl := range list {
		if !pl.Cell.Valid() {
			return fmt.Errorf("decode board: %s: %w", pl.Cell, ErrOffBoard)
		}
		if grid[pl.Cell.File][pl.Cell.Rank] != nil {
			return fmt.Errorf("decode board: %s occupied twice", pl.Cell)
		}
		p := pl.Piece
		grid[pl.Cell.File][pl.Cell.Rank] = &p
	}
	b.grid = grid
	return nil
}
