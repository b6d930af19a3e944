package render

import (
	"image"

	"github.com/park285/chessboard-core/internal/board"
)

// Layout maps board cells to pixel rectangles and back. The zero Flip draws
// rank 8 at the top (light viewpoint); Flip rotates the board 180 degrees.
type Layout struct {
	SquareSize int
	Margin     int
	Flip       bool
}

// NewLayout returns the layout used by PNGRenderer for the given square size.
func NewLayout(squareSize int, flip bool) Layout {
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	return Layout{SquareSize: squareSize, Margin: squareSize / 2, Flip: flip}
}

// Size is the full image size including the coordinate margins.
func (l Layout) Size() image.Point {
	side := l.SquareSize*board.Size + l.Margin*2
	return image.Point{X: side, Y: side}
}

func (l Layout) origin() image.Point {
	return image.Point{X: l.Margin, Y: l.Margin}
}

// BoardRect is the rectangle covered by the 64 squares.
func (l Layout) BoardRect() image.Rectangle {
	o := l.origin()
	side := l.SquareSize * board.Size
	return image.Rect(o.X, o.Y, o.X+side, o.Y+side)
}

func (l Layout) colRow(c board.Cell) (col, row int) {
	if l.Flip {
		return board.Size - 1 - c.File, c.Rank
	}
	return c.File, board.Size - 1 - c.Rank
}

func (l Layout) cellFor(col, row int) board.Cell {
	if l.Flip {
		return board.At(board.Size-1-col, row)
	}
	return board.At(col, board.Size-1-row)
}

// Rect returns the pixel rectangle of a cell.
func (l Layout) Rect(c board.Cell) image.Rectangle {
	col, row := l.colRow(c)
	o := l.origin()
	x := o.X + col*l.SquareSize
	y := o.Y + row*l.SquareSize
	return image.Rect(x, y, x+l.SquareSize, y+l.SquareSize)
}

// Center returns the centre pixel of a cell.
func (l Layout) Center(c board.Cell) image.Point {
	r := l.Rect(c)
	return image.Point{X: r.Min.X + l.SquareSize/2, Y: r.Min.Y + l.SquareSize/2}
}

// CellAt translates a pixel pick into the board cell under it. Picks on the
// margins or outside the image report false.
func (l Layout) CellAt(x, y int) (board.Cell, bool) {
	if l.SquareSize <= 0 {
		return board.NoCell, false
	}
	if !(image.Point{X: x, Y: y}).In(l.BoardRect()) {
		return board.NoCell, false
	}
	o := l.origin()
	col := (x - o.X) / l.SquareSize
	row := (y - o.Y) / l.SquareSize
	return l.cellFor(col, row), true
}
