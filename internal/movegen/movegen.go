// Package movegen computes candidate destination cells for a piece: raw
// geometric moves per piece kind, then a bounds filter and a friendly-fire
// filter. Candidates are not checked for full chess legality.
package movegen

import (
	"fmt"

	"github.com/park285/chessboard-core/internal/board"
)

// Options tweak pawn generation. The zero value is the default rule set.
type Options struct {
	// LegacyDoubleStep offers the two-square pawn advance only after the
	// pawn has moved, instead of only on its first move.
	LegacyDoubleStep bool
	// PawnCaptures adds the forward diagonals when they hold an opponent.
	PawnCaptures bool
}

// Generator produces candidate moves. It never mutates the board.
type Generator struct {
	opts Options
}

func New(opts Options) *Generator { return &Generator{opts: opts} }

var defaultGenerator = New(Options{})

// CandidateMoves runs the default generator.
func CandidateMoves(b *board.Board, at board.Cell) ([]board.Cell, error) {
	return defaultGenerator.CandidateMoves(b, at)
}

// CandidateMoves returns the filtered destinations for the piece on at.
// The order is deterministic for a given board. It fails with
// board.ErrEmptyCell when at has no occupant.
func (g *Generator) CandidateMoves(b *board.Board, at board.Cell) ([]board.Cell, error) {
	p, ok := b.PieceAt(at)
	if !ok {
		return nil, fmt.Errorf("candidates for %s: %w", at, board.ErrEmptyCell)
	}
	raw := g.raw(b, at, p)
	raw = inBounds(raw)
	return withoutColor(b, raw, p.Color), nil
}

// Contains reports whether to is among the candidates of the piece on from.
func (g *Generator) Contains(b *board.Board, from, to board.Cell) (bool, error) {
	list, err := g.CandidateMoves(b, from)
	if err != nil {
		return false, err
	}
	for _, c := range list {
		if c == to {
			return true, nil
		}
	}
	return false, nil
}

func (g *Generator) raw(b *board.Board, at board.Cell, p board.Piece) []board.Cell {
	switch p.Kind {
	case board.Pawn:
		return g.pawn(b, at, p)
	case board.Rook:
		return rook(at)
	case board.Knight:
		return knight(at)
	case board.Bishop:
		return bishop(at)
	default:
		// Queen and king have no move rules yet.
		return nil
	}
}

// pawn: forward step, optional double step, optional diagonal captures.
func (g *Generator) pawn(b *board.Board, at board.Cell, p board.Piece) []board.Cell {
	dir := p.Color.Forward()
	out := []board.Cell{at.Offset(0, dir)}
	double := !p.HasMoved
	if g.opts.LegacyDoubleStep {
		double = p.HasMoved
	}
	if double {
		out = append(out, at.Offset(0, 2*dir))
	}
	if g.opts.PawnCaptures {
		for _, df := range []int{-1, 1} {
			c := at.Offset(df, dir)
			if b.IsOccupiedByColor(c, p.Color.Opponent()) {
				out = append(out, c)
			}
		}
	}
	return out
}

// rook: every cell on the same file, then the same rank, ascending. Intervening
// pieces do not block.
func rook(at board.Cell) []board.Cell {
	out := make([]board.Cell, 0, 2*(board.Size-1))
	for r := 0; r < board.Size; r++ {
		if r != at.Rank {
			out = append(out, board.At(at.File, r))
		}
	}
	for f := 0; f < board.Size; f++ {
		if f != at.File {
			out = append(out, board.At(f, at.Rank))
		}
	}
	return out
}

var knightOffsets = [8][2]int{
	{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2},
	{1, -2}, {1, 2}, {2, -1}, {2, 1},
}

func knight(at board.Cell) []board.Cell {
	out := make([]board.Cell, 0, len(knightOffsets))
	for _, o := range knightOffsets {
		out = append(out, at.Offset(o[0], o[1]))
	}
	return out
}

var diagonals = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

// bishop walks each diagonal ray to the edge without stopping at pieces.
// Rays run off-board and are trimmed by the bounds filter.
func bishop(at board.Cell) []board.Cell {
	out := make([]board.Cell, 0, 4*(board.Size-1))
	for _, d := range diagonals {
		for i := 1; i < board.Size; i++ {
			out = append(out, at.Offset(d[0]*i, d[1]*i))
		}
	}
	return out
}
