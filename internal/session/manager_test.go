package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/chessboard-core/internal/board"
	"github.com/park285/chessboard-core/internal/movegen"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb, err := DialRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, 10*time.Minute), mr
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, m *Manager)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewManager(NewMemoryStore(), nil))
	})
	t.Run("redis", func(t *testing.T) {
		st, _ := newRedisStore(t)
		fn(t, NewManager(st, nil))
	})
	t.Run("badger", func(t *testing.T) {
		fn(t, NewManager(newBadgerStore(t), nil))
	})
}

func TestStartAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Manager) {
		ctx := context.Background()
		s, err := m.Start(ctx)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if s.ID == "" || s.Status != StatusActive {
			t.Fatalf("unexpected session %+v", s)
		}
		got, err := m.Get(ctx, s.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !got.Board.Equal(board.NewStandard()) {
			t.Fatalf("stored board differs:\n%s", got.Board)
		}
		if got.Mover() != board.Dark {
			t.Fatalf("Light should be first to move")
		}
	})
}

func TestGetUnknown(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Manager) {
		if _, err := m.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestSelectAndMove(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Manager) {
		ctx := context.Background()
		s, _ := m.Start(ctx)

		sel, err := m.Select(ctx, s.ID, board.MustCell("b1"))
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if sel.Piece.Kind != board.Knight || len(sel.Candidates) != 2 {
			t.Fatalf("selection = %+v", sel)
		}
		cur, _ := m.Get(ctx, s.ID)
		if cur.Selected == nil || *cur.Selected != board.MustCell("b1") {
			t.Fatalf("selection not stored: %v", cur.Selected)
		}

		rec, after, err := m.Move(ctx, s.ID, board.MustCell("b1"), board.MustCell("c3"))
		if err != nil {
			t.Fatalf("Move: %v", err)
		}
		if rec.Captured != nil || !rec.Piece.HasMoved || rec.Piece.Kind != board.Knight {
			t.Fatalf("record = %+v", rec)
		}
		if after.Selected != nil || len(after.Moves) != 1 {
			t.Fatalf("after move: selected=%v moves=%d", after.Selected, len(after.Moves))
		}
		got, _ := m.Get(ctx, s.ID)
		p, ok := got.Board.PieceAt(board.MustCell("c3"))
		if !ok || !p.HasMoved || got.Board.IsOccupied(board.MustCell("b1")) {
			t.Fatalf("board not updated:\n%s", got.Board)
		}
		if got.Mover() != board.Light {
			t.Fatalf("mover = %v", got.Mover())
		}
	})
}

func TestMoveRejectsNonCandidate(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Manager) {
		ctx := context.Background()
		s, _ := m.Start(ctx)
		_, _, err := m.Move(ctx, s.ID, board.MustCell("e2"), board.MustCell("e5"))
		if !errors.Is(err, ErrIllegalDestination) {
			t.Fatalf("err = %v", err)
		}
		// queens have no candidates at all
		_, _, err = m.Move(ctx, s.ID, board.MustCell("d1"), board.MustCell("d3"))
		if !errors.Is(err, ErrIllegalDestination) {
			t.Fatalf("queen err = %v", err)
		}
		got, _ := m.Get(ctx, s.ID)
		if len(got.Moves) != 0 || !got.Board.Equal(board.NewStandard()) {
			t.Fatalf("session changed by rejected moves")
		}
	})
}

func TestMoveFromEmptyCell(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Manager) {
		ctx := context.Background()
		s, _ := m.Start(ctx)
		_, _, err := m.Move(ctx, s.ID, board.MustCell("e4"), board.MustCell("e5"))
		if !errors.Is(err, board.ErrInvalidMove) {
			t.Fatalf("err = %v, want ErrInvalidMove", err)
		}
		if _, err := m.Select(ctx, s.ID, board.MustCell("e4")); !errors.Is(err, board.ErrEmptyCell) {
			t.Fatalf("select err = %v", err)
		}
		if _, err := m.Candidates(ctx, s.ID, board.MustCell("e4")); !errors.Is(err, board.ErrEmptyCell) {
			t.Fatalf("candidates err = %v", err)
		}
	})
}

func TestCaptureIsRecorded(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Manager) {
		ctx := context.Background()
		s, _ := m.Start(ctx)
		// rook lifts along the a-file; obstruction is not checked
		rec, _, err := m.Move(ctx, s.ID, board.MustCell("a1"), board.MustCell("a7"))
		if err != nil {
			t.Fatalf("Move: %v", err)
		}
		if rec.Captured == nil || rec.Captured.Kind != board.Pawn || rec.Captured.Color != board.Dark {
			t.Fatalf("captured = %v", rec.Captured)
		}
		got, _ := m.Get(ctx, s.ID)
		if got.Board.Count(board.Dark) != 15 {
			t.Fatalf("dark count = %d", got.Board.Count(board.Dark))
		}
	})
}

type recordingArchiver struct {
	got []*Session
	err error
}

func (r *recordingArchiver) Archive(ctx context.Context, s *Session) error {
	r.got = append(r.got, s)
	return r.err
}

func TestEndArchivesAndDeletes(t *testing.T) {
	arch := &recordingArchiver{}
	m := NewManager(NewMemoryStore(), nil, WithArchiver(arch))
	ctx := context.Background()
	s, _ := m.Start(ctx)
	if _, _, err := m.Move(ctx, s.ID, board.MustCell("e2"), board.MustCell("e4")); err != nil {
		t.Fatalf("Move: %v", err)
	}
	ended, err := m.End(ctx, s.ID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Status != StatusEnded || len(arch.got) != 1 || len(arch.got[0].Moves) != 1 {
		t.Fatalf("archive not called correctly: %+v", arch.got)
	}
	if _, err := m.Get(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session still present: %v", err)
	}
}

func TestEndSurvivesArchiveFailure(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil, WithArchiver(&recordingArchiver{err: errors.New("db down")}))
	ctx := context.Background()
	s, _ := m.Start(ctx)
	if _, err := m.End(ctx, s.ID); err != nil {
		t.Fatalf("End: %v", err)
	}
}

func TestLegacyGeneratorIsUsed(t *testing.T) {
	m := NewManager(NewMemoryStore(), movegen.New(movegen.Options{LegacyDoubleStep: true}))
	ctx := context.Background()
	s, _ := m.Start(ctx)
	if _, _, err := m.Move(ctx, s.ID, board.MustCell("e2"), board.MustCell("e4")); !errors.Is(err, ErrIllegalDestination) {
		t.Fatalf("legacy rule should refuse e2-e4 for an unmoved pawn, err = %v", err)
	}
}

func TestDeterministicIDsAndClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(NewMemoryStore(), nil,
		WithClock(func() time.Time { return fixed }),
		WithIDSource(func() string { return "game-1" }),
	)
	s, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.ID != "game-1" || !s.CreatedAt.Equal(fixed) {
		t.Fatalf("session = %+v", s)
	}
	if _, err := m.Start(context.Background()); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("duplicate id err = %v", err)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	st, mr := newRedisStore(t)
	m := NewManager(st, nil)
	ctx := context.Background()
	s, _ := m.Start(ctx)
	if ttl := mr.TTL(sessionKey(s.ID)); ttl <= 0 || ttl > 10*time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}
	mr.FastForward(11 * time.Minute)
	if _, err := m.Get(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expiry, err = %v", err)
	}
}

func TestRedisStoreUpdateRetriesOnConflict(t *testing.T) {
	st, mr := newRedisStore(t)
	ctx := context.Background()
	s := &Session{ID: "s1", Board: board.NewStandard(), Status: StatusActive}
	if err := st.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer other.Close()

	calls := 0
	_, err := st.Update(ctx, "s1", func(cur *Session) error {
		calls++
		if calls == 1 {
			// a competing writer touches the key inside the WATCH window
			if err := other.Set(ctx, sessionKey("s1"), mustEncode(t, cur), 0).Err(); err != nil {
				t.Fatalf("competing set: %v", err)
			}
		}
		cur.Status = StatusEnded
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if calls != 2 {
		t.Fatalf("fn called %d times, want 2", calls)
	}
	got, _ := st.Load(ctx, "s1")
	if got.Status != StatusEnded {
		t.Fatalf("status = %s", got.Status)
	}
}

func mustEncode(t *testing.T, s *Session) []byte {
	t.Helper()
	raw, err := encode(s)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@cache:6380/3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 3 {
		t.Fatalf("opts = %+v", opts)
	}
	if _, err := parseRedisURL("http://cache"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
