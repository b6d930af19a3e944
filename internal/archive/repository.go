// Package archive stores finished board sessions in Postgres.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/chessboard-core/internal/notation"
	"github.com/park285/chessboard-core/internal/session"
)

// Schema creates the archive table when missing.
const Schema = `
CREATE TABLE IF NOT EXISTS board_sessions (
	session_id   TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	moves        JSONB NOT NULL,
	move_text    TEXT NOT NULL,
	final_fen    TEXT NOT NULL,
	move_count   INTEGER NOT NULL,
	captures     INTEGER NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT NOT NULL
)`

type Repository struct {
	db *sql.DB
}

// NewRepository opens DATABASE_URL, pings it and ensures the schema exists.
func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record is the archived form of a session.
type Record struct {
	SessionID string
	Status    string
	MovesJSON []byte
	MoveText  string
	FinalFEN  string
	MoveCount int
	Captures  int
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// NewRecord derives the archive row from a session.
func NewRecord(s *session.Session) (*Record, error) {
	if s == nil || s.Board == nil {
		return nil, fmt.Errorf("nil session")
	}
	moves := s.Moves
	if moves == nil {
		moves = []session.MoveRecord{}
	}
	raw, err := json.Marshal(moves)
	if err != nil {
		return nil, fmt.Errorf("marshal moves: %w", err)
	}
	captures := 0
	for _, m := range s.Moves {
		if m.Captured != nil {
			captures++
		}
	}
	d := s.UpdatedAt.Sub(s.CreatedAt)
	if d < 0 {
		d = 0
	}
	return &Record{
		SessionID: s.ID,
		Status:    string(s.Status),
		MovesJSON: raw,
		MoveText:  MoveText(s.Moves),
		FinalFEN:  notation.FEN(s.Board),
		MoveCount: len(s.Moves),
		Captures:  captures,
		StartedAt: s.CreatedAt,
		EndedAt:   s.UpdatedAt,
		Duration:  d,
	}, nil
}

// MoveText numbers the moves in pairs: "1. Nb1-c3 Pe7-e5 2. ...".
// Light and Dark are not required to alternate, so each pair is simply two
// consecutive records.
func MoveText(moves []session.MoveRecord) string {
	var b strings.Builder
	for i, m := range moves {
		if i%2 == 0 {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d. ", i/2+1)
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(m.Notation())
	}
	return b.String()
}

// Archive upserts the finished session. It satisfies session.Archiver.
func (r *Repository) Archive(ctx context.Context, s *session.Session) error {
	if r == nil || r.db == nil {
		return nil
	}
	rec, err := NewRecord(s)
	if err != nil {
		return err
	}
	const q = `INSERT INTO board_sessions (
		session_id, status, moves, move_text, final_fen,
		move_count, captures, started_at, ended_at, duration_ms
	) VALUES ($1,$2,$3::jsonb,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (session_id) DO UPDATE SET
		status=EXCLUDED.status,
		moves=EXCLUDED.moves,
		move_text=EXCLUDED.move_text,
		final_fen=EXCLUDED.final_fen,
		move_count=EXCLUDED.move_count,
		captures=EXCLUDED.captures,
		started_at=EXCLUDED.started_at,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`
	_, err = r.db.ExecContext(ctx, q,
		rec.SessionID, rec.Status, string(rec.MovesJSON), rec.MoveText, rec.FinalFEN,
		rec.MoveCount, rec.Captures, rec.StartedAt, rec.EndedAt, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert board session: %w", err)
	}
	return nil
}

// Recent returns the latest archived sessions, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT session_id, status, moves, move_text, final_fen,
		move_count, captures, started_at, ended_at, duration_ms
		FROM board_sessions ORDER BY ended_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("select board sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*Record, 0, limit)
	for rows.Next() {
		var (
			rec Record
			ms  int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.Status, &rec.MovesJSON, &rec.MoveText, &rec.FinalFEN,
			&rec.MoveCount, &rec.Captures, &rec.StartedAt, &rec.EndedAt, &ms); err != nil {
			return nil, fmt.Errorf("scan board session: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, &rec)
	}
	return out, rows.Err()
}
