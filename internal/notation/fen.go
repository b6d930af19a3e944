// Package notation converts boards to and from standard chess notation using
// github.com/corentings/chess/v2.
package notation

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/chessboard-core/internal/board"
)

var kindToType = map[board.PieceKind]nchess.PieceType{
	board.Pawn:   nchess.Pawn,
	board.Rook:   nchess.Rook,
	board.Knight: nchess.Knight,
	board.Bishop: nchess.Bishop,
	board.Queen:  nchess.Queen,
	board.King:   nchess.King,
}

var typeToKind = map[nchess.PieceType]board.PieceKind{
	nchess.Pawn:   board.Pawn,
	nchess.Rook:   board.Rook,
	nchess.Knight: board.Knight,
	nchess.Bishop: board.Bishop,
	nchess.Queen:  board.Queen,
	nchess.King:   board.King,
}

// Square maps a cell onto the library's square index.
func Square(c board.Cell) nchess.Square {
	return nchess.NewSquare(nchess.File(c.File), nchess.Rank(c.Rank))
}

// CellOf is the inverse of Square.
func CellOf(sq nchess.Square) board.Cell {
	return board.At(int(sq.File()), int(sq.Rank()))
}

func colorOf(c board.Color) nchess.Color {
	if c == board.Dark {
		return nchess.Black
	}
	return nchess.White
}

// Piece converts a piece to the library representation.
func Piece(p board.Piece) nchess.Piece {
	return nchess.NewPiece(kindToType[p.Kind], colorOf(p.Color))
}

// ToChess copies the grid into a library board. Moved flags are dropped.
func ToChess(b *board.Board) *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece, 32)
	for _, pl := range b.Pieces() {
		m[Square(pl.Cell)] = Piece(pl.Piece)
	}
	return nchess.NewBoard(m)
}

// FEN returns the piece-placement field of the board.
func FEN(b *board.Board) string {
	return ToChess(b).String()
}

// FromFEN builds a board from a placement field or a full FEN record; only
// the first field is read. A piece that is not on a square its kind starts
// on for its colour is marked as moved.
func FromFEN(s string) (*board.Board, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("parse fen: empty input")
	}
	var nb nchess.Board
	if err := nb.UnmarshalText([]byte(fields[0])); err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fields[0], err)
	}
	out := board.New()
	for sq, np := range nb.SquareMap() {
		if np == nchess.NoPiece {
			continue
		}
		kind, ok := typeToKind[np.Type()]
		if !ok {
			return nil, fmt.Errorf("parse fen: unknown piece on %s", sq)
		}
		color := board.Light
		if np.Color() == nchess.Black {
			color = board.Dark
		}
		cell := CellOf(sq)
		home, isHome := board.HomeKind(color, cell)
		p := board.Piece{Kind: kind, Color: color, HasMoved: !isHome || home != kind}
		if err := out.Place(cell, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}
