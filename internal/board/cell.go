package board

import (
	"fmt"
	"strings"
)

// Size is the number of files (and ranks) on the board.
const Size = 8

// Cell addresses a square by zero-based file and rank. File 0 is the a-file,
// rank 0 is Light's back rank.
type Cell struct {
	File int `json:"file"`
	Rank int `json:"rank"`
}

// NoCell is returned where a lookup has no answer.
var NoCell = Cell{File: -1, Rank: -1}

func At(file, rank int) Cell { return Cell{File: file, Rank: rank} }

// Valid reports whether both coordinates fall inside [0,7].
func (c Cell) Valid() bool {
	return c.File >= 0 && c.File < Size && c.Rank >= 0 && c.Rank < Size
}

// Offset returns the cell shifted by (df, dr). The result may be off-board.
func (c Cell) Offset(df, dr int) Cell {
	return Cell{File: c.File + df, Rank: c.Rank + dr}
}

// String renders the algebraic name (e.g. "e2"), or "(f,r)" for off-board cells.
func (c Cell) String() string {
	if !c.Valid() {
		return fmt.Sprintf("(%d,%d)", c.File, c.Rank)
	}
	return string([]byte{byte('a' + c.File), byte('1' + c.Rank)})
}

// ParseCell parses an algebraic square name such as "e2" or "H8".
func ParseCell(s string) (Cell, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return NoCell, fmt.Errorf("parse cell %q: %w", s, ErrOffBoard)
	}
	c := Cell{File: int(s[0]) - 'a', Rank: int(s[1]) - '1'}
	if !c.Valid() {
		return NoCell, fmt.Errorf("parse cell %q: %w", s, ErrOffBoard)
	}
	return c, nil
}

// MustCell is ParseCell for literals; it panics on malformed input.
func MustCell(s string) Cell {
	c, err := ParseCell(s)
	if err != nil {
		panic(err)
	}
	return c
}
