package session

import (
	"errors"
	"strings"
	"time"

	"github.com/park285/chessboard-core/internal/board"
)

var (
	ErrSessionNotFound    = errors.New("board session not found")
	ErrSessionExists      = errors.New("board session already exists")
	ErrSessionEnded       = errors.New("board session has ended")
	ErrIllegalDestination = errors.New("destination is not a candidate move")
	ErrConflict           = errors.New("concurrent update on board session")
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusEnded  Status = "ENDED"
)

// MoveRecord is one applied move.
type MoveRecord struct {
	From     board.Cell   `json:"from"`
	To       board.Cell   `json:"to"`
	Piece    board.Piece  `json:"piece"`
	Captured *board.Piece `json:"captured,omitempty"`
	At       time.Time    `json:"at"`
}

// Notation renders the move in long algebraic form: "Nb1-c3", "Ra1xa7".
func (m MoveRecord) Notation() string {
	var b strings.Builder
	b.WriteByte(m.Piece.Kind.Letter())
	b.WriteString(m.From.String())
	if m.Captured != nil {
		b.WriteByte('x')
	} else {
		b.WriteByte('-')
	}
	b.WriteString(m.To.String())
	return b.String()
}

// Session owns the one live board of a game.
type Session struct {
	ID        string       `json:"id"`
	Board     *board.Board `json:"board"`
	Moves     []MoveRecord `json:"moves"`
	Selected  *board.Cell  `json:"selected,omitempty"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Mover is the colour of the piece that moved last, or Dark before any move
// so that Light is reported to move first.
func (s *Session) Mover() board.Color {
	if n := len(s.Moves); n > 0 {
		return s.Moves[n-1].Piece.Color
	}
	return board.Dark
}

// Selection is the result of picking a cell.
type Selection struct {
	Cell       board.Cell
	Piece      board.Piece
	Candidates []board.Cell
}
