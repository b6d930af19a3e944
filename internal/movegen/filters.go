package movegen

import "github.com/park285/chessboard-core/internal/board"

// inBounds keeps cells whose file and rank both lie in [0,7].
func inBounds(cells []board.Cell) []board.Cell {
	out := cells[:0]
	for _, c := range cells {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}

// withoutColor drops cells held by colour c. Opponent-held cells stay in as
// capture targets.
func withoutColor(b *board.Board, cells []board.Cell, c board.Color) []board.Cell {
	out := cells[:0]
	for _, cell := range cells {
		if !b.IsOccupiedByColor(cell, c) {
			out = append(out, cell)
		}
	}
	return out
}
