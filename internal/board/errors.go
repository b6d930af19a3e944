package board

import "errors"

var (
	// ErrEmptyCell is returned when an operation needs an occupant and the cell has none.
	ErrEmptyCell = errors.New("cell is empty")
	// ErrInvalidMove is returned by MovePiece when the source cell holds no piece.
	ErrInvalidMove = errors.New("invalid move")
	ErrOffBoard    = errors.New("cell is off the board")
)
