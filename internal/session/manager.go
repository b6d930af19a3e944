// Package session runs board sessions: it owns the live board of each game,
// answers candidate queries and applies confirmed moves.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chessboard-core/internal/board"
	"github.com/park285/chessboard-core/internal/movegen"
	"github.com/park285/chessboard-core/internal/obslog"
	"go.uber.org/zap"
)

// Archiver receives a session once it has ended.
type Archiver interface {
	Archive(ctx context.Context, s *Session) error
}

type Manager struct {
	store    Store
	gen      *movegen.Generator
	archiver Archiver
	now      func() time.Time
	newID    func() string
}

type Option func(*Manager)

func WithArchiver(a Archiver) Option { return func(m *Manager) { m.archiver = a } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithIDSource(f func() string) Option { return func(m *Manager) { m.newID = f } }

func NewManager(store Store, gen *movegen.Generator, opts ...Option) *Manager {
	if gen == nil {
		gen = movegen.New(movegen.Options{})
	}
	m := &Manager{
		store: store,
		gen:   gen,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Generator exposes the move generator the manager validates against.
func (m *Manager) Generator() *movegen.Generator { return m.gen }

// Start creates a session with a freshly set-up board.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:        m.newID(),
		Board:     board.NewStandard(),
		Moves:     []MoveRecord{},
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	obslog.L().Info("session_start", zap.String("session_id", s.ID))
	return s, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Load(ctx, strings.TrimSpace(id))
}

// Candidates lists the candidate moves of the piece on cell without
// touching the session.
func (m *Manager) Candidates(ctx context.Context, id string, cell board.Cell) ([]board.Cell, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.gen.CandidateMoves(s.Board, cell)
}

// Select records cell as the session's selection and returns its candidates.
// Selecting an empty cell fails with board.ErrEmptyCell and keeps the old selection.
func (m *Manager) Select(ctx context.Context, id string, cell board.Cell) (*Selection, error) {
	var sel *Selection
	_, err := m.store.Update(ctx, id, func(s *Session) error {
		if s.Status != StatusActive {
			return ErrSessionEnded
		}
		p, ok := s.Board.PieceAt(cell)
		if !ok {
			return fmt.Errorf("select %s: %w", cell, board.ErrEmptyCell)
		}
		list, err := m.gen.CandidateMoves(s.Board, cell)
		if err != nil {
			return err
		}
		c := cell
		s.Selected = &c
		s.UpdatedAt = m.now()
		sel = &Selection{Cell: cell, Piece: p, Candidates: list}
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Debug("session_select",
		zap.String("session_id", id),
		zap.String("cell", cell.String()),
		zap.Int("candidates", len(sel.Candidates)),
	)
	return sel, nil
}

// Deselect clears the selection.
func (m *Manager) Deselect(ctx context.Context, id string) error {
	_, err := m.store.Update(ctx, id, func(s *Session) error {
		s.Selected = nil
		s.UpdatedAt = m.now()
		return nil
	})
	return err
}

// Move applies from->to after checking that to is a candidate of the piece on
// from. An empty from fails with board.ErrInvalidMove; a destination outside
// the candidate set fails with ErrIllegalDestination. Failed moves leave the
// session unchanged.
func (m *Manager) Move(ctx context.Context, id string, from, to board.Cell) (*MoveRecord, *Session, error) {
	var rec MoveRecord
	s, err := m.store.Update(ctx, id, func(s *Session) error {
		if s.Status != StatusActive {
			return ErrSessionEnded
		}
		p, ok := s.Board.PieceAt(from)
		if !ok {
			return fmt.Errorf("move %s-%s: %w", from, to, board.ErrInvalidMove)
		}
		legal, err := m.gen.Contains(s.Board, from, to)
		if err != nil {
			return err
		}
		if !legal {
			return fmt.Errorf("move %s-%s: %w", from, to, ErrIllegalDestination)
		}
		captured, err := s.Board.MovePiece(from, to)
		if err != nil {
			return err
		}
		p.HasMoved = true
		rec = MoveRecord{From: from, To: to, Piece: p, Captured: captured, At: m.now()}
		s.Moves = append(s.Moves, rec)
		s.Selected = nil
		s.UpdatedAt = rec.At
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			obslog.L().Info("session_move_rejected",
				zap.String("session_id", id),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
				zap.Error(err),
			)
		}
		return nil, nil, err
	}
	fields := []zap.Field{
		zap.String("session_id", s.ID),
		zap.String("piece", rec.Piece.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("move_count", len(s.Moves)),
	}
	if rec.Captured != nil {
		fields = append(fields, zap.String("captured", rec.Captured.String()))
	}
	obslog.L().Info("session_move", fields...)
	return &rec, s, nil
}

// End finishes the session, hands it to the archiver when one is attached and
// removes it from the store. Archive failures are logged, not returned.
func (m *Manager) End(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Update(ctx, id, func(s *Session) error {
		if s.Status == StatusEnded {
			return ErrSessionEnded
		}
		s.Status = StatusEnded
		s.Selected = nil
		s.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m.archiver != nil {
		if aerr := m.archiver.Archive(ctx, s); aerr != nil {
			obslog.L().Error("session_archive_error", zap.String("session_id", s.ID), zap.Error(aerr))
		} else {
			obslog.L().Info("session_archive", zap.String("session_id", s.ID), zap.Int("move_count", len(s.Moves)))
		}
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return s, fmt.Errorf("delete session: %w", err)
	}
	obslog.L().Info("session_end", zap.String("session_id", s.ID), zap.Int("move_count", len(s.Moves)))
	return s, nil
}
