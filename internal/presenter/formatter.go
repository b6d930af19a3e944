package presenter

import (
	"errors"
	"strings"

	"github.com/park285/chessboard-core/internal/board"
	"github.com/park285/chessboard-core/internal/msgcat"
	"github.com/park285/chessboard-core/internal/session"
)

// Formatter renders session events as user-facing text from the message catalog.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) text(key string, data map[string]any) string {
	if f == nil || f.cat == nil {
		return key
	}
	return f.cat.Text(key, data)
}

func (f *Formatter) Help() string {
	return strings.TrimRight(f.text("help", nil), "\n")
}

func (f *Formatter) Started(s *session.Session) string {
	if s == nil {
		return ""
	}
	return f.text("session.started", map[string]any{"ID": s.ID})
}

func (f *Formatter) Ended(s *session.Session) string {
	if s == nil {
		return ""
	}
	return f.text("session.ended", map[string]any{"ID": s.ID, "Moves": len(s.Moves)})
}

func (f *Formatter) Selection(sel *session.Selection) string {
	if sel == nil {
		return ""
	}
	data := map[string]any{"Piece": sel.Piece.String(), "Cell": sel.Cell.String()}
	if len(sel.Candidates) == 0 {
		return f.text("select.none", data)
	}
	data["Targets"] = strings.Join(CellNames(sel.Candidates), " ")
	return f.text("select.candidates", data)
}

func (f *Formatter) Cleared() string {
	return f.text("select.cleared", nil)
}

func (f *Formatter) Move(rec *session.MoveRecord) string {
	if rec == nil {
		return ""
	}
	data := map[string]any{
		"Piece": rec.Piece.String(),
		"From":  rec.From.String(),
		"To":    rec.To.String(),
	}
	if rec.Captured != nil {
		data["Captured"] = rec.Captured.String()
		return f.text("move.capture", data)
	}
	return f.text("move.done", data)
}

// BadCell reports input that does not parse as a cell.
func (f *Formatter) BadCell(input string) string {
	return f.text("error.bad_cell", map[string]any{"Input": input})
}

// Failure explains err for the operation on session id from from to to.
// Operations on a single cell pass it as from.
func (f *Formatter) Failure(err error, id string, from, to board.Cell) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrSessionNotFound):
		return f.text("session.not_found", map[string]any{"ID": id})
	case errors.Is(err, session.ErrIllegalDestination):
		return f.text("error.illegal_destination", map[string]any{"From": from.String(), "To": to.String()})
	case errors.Is(err, board.ErrInvalidMove) && !errors.Is(err, board.ErrOffBoard):
		return f.text("error.invalid_move", map[string]any{"Cell": from.String()})
	case errors.Is(err, board.ErrEmptyCell):
		return f.text("error.empty_cell", map[string]any{"Cell": from.String()})
	default:
		return err.Error()
	}
}
