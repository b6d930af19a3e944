package presenter

import (
	"errors"

	"github.com/park285/chessboard-core/internal/archive"
	"github.com/park285/chessboard-core/internal/board"
	"github.com/park285/chessboard-core/internal/notation"
	"github.com/park285/chessboard-core/internal/session"
	"github.com/park285/chessboard-core/pkg/boarddto"
)

func ToDTOState(s *session.Session) *boarddto.SessionState {
	if s == nil {
		return nil
	}
	out := &boarddto.SessionState{
		SessionID: s.ID,
		Status:    string(s.Status),
		Pieces:    []boarddto.PieceDTO{},
		Moves:     make([]boarddto.MoveDTO, 0, len(s.Moves)),
		MoveCount: len(s.Moves),
		ToMove:    s.Mover().Opponent().String(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Board != nil {
		out.FEN = notation.FEN(s.Board)
		for _, pl := range s.Board.Pieces() {
			out.Pieces = append(out.Pieces, ToDTOPiece(pl))
		}
	}
	for _, m := range s.Moves {
		out.Moves = append(out.Moves, ToDTOMove(m))
	}
	if s.Selected != nil {
		out.Selected = s.Selected.String()
	}
	return out
}

func ToDTOPiece(pl board.Placement) boarddto.PieceDTO {
	return boarddto.PieceDTO{
		Cell:     pl.Cell.String(),
		Kind:     pl.Piece.Kind.String(),
		Color:    pl.Piece.Color.String(),
		HasMoved: pl.Piece.HasMoved,
	}
}

func ToDTOMove(m session.MoveRecord) boarddto.MoveDTO {
	out := boarddto.MoveDTO{
		From:     m.From.String(),
		To:       m.To.String(),
		Piece:    m.Piece.String(),
		Notation: m.Notation(),
	}
	if m.Captured != nil {
		out.Captured = m.Captured.String()
	}
	return out
}

func ToDTOSelection(sel *session.Selection) *boarddto.SelectionDTO {
	if sel == nil {
		return nil
	}
	return &boarddto.SelectionDTO{
		Cell:    sel.Cell.String(),
		Piece:   sel.Piece.String(),
		Targets: CellNames(sel.Candidates),
	}
}

// CellNames converts cells to algebraic names, keeping order. The result is
// never nil.
func CellNames(cells []board.Cell) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		out = append(out, c.String())
	}
	return out
}

// ToDomainError maps core and session errors onto transport error codes.
func ToDomainError(err error) boarddto.DomainError {
	if err == nil {
		return boarddto.DomainError{}
	}
	var de boarddto.DomainError
	if errors.As(err, &de) {
		return de
	}
	code := boarddto.CodeInternal
	retryable := false
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		code = boarddto.CodeSessionNotFound
	case errors.Is(err, session.ErrSessionEnded):
		code = boarddto.CodeSessionEnded
	case errors.Is(err, session.ErrIllegalDestination):
		code = boarddto.CodeIllegalDestination
	case errors.Is(err, session.ErrConflict):
		code = boarddto.CodeConflict
		retryable = true
	case errors.Is(err, board.ErrInvalidMove):
		code = boarddto.CodeInvalidMove
	case errors.Is(err, board.ErrEmptyCell):
		code = boarddto.CodeEmptyCell
	case errors.Is(err, board.ErrOffBoard):
		code = boarddto.CodeBadRequest
	}
	return boarddto.DomainError{Code: code, Message: err.Error(), Retryable: retryable}
}

func ToDTOArchived(list []*archive.Record) []boarddto.ArchivedGame {
	out := make([]boarddto.ArchivedGame, 0, len(list))
	for _, r := range list {
		if r == nil {
			continue
		}
		out = append(out, boarddto.ArchivedGame{
			SessionID:  r.SessionID,
			Status:     r.Status,
			MoveText:   r.MoveText,
			FinalFEN:   r.FinalFEN,
			MoveCount:  r.MoveCount,
			Captures:   r.Captures,
			StartedAt:  r.StartedAt,
			EndedAt:    r.EndedAt,
			DurationMS: r.Duration.Milliseconds(),
		})
	}
	return out
}
