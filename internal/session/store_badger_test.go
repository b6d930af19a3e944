package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/park285/chessboard-core/internal/board"
)

func newBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	st, err := OpenBadgerStore("", 10*time.Minute)
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	st := newBadgerStore(t)
	ctx := context.Background()
	s := &Session{ID: "b1", Board: board.NewStandard(), Status: StatusActive}
	if err := st.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.Create(ctx, s); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("duplicate create err = %v", err)
	}
	got, err := st.Load(ctx, "b1")
	if err != nil || !got.Board.Equal(s.Board) {
		t.Fatalf("Load = %v, %v", got, err)
	}
	if err := st.Delete(ctx, "b1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Load(ctx, "b1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("after delete err = %v", err)
	}
	if _, err := st.Update(ctx, "b1", func(*Session) error { return nil }); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("update missing err = %v", err)
	}
}

func TestBadgerStoreUpdateRetriesOnConflict(t *testing.T) {
	st := newBadgerStore(t)
	ctx := context.Background()
	if err := st.Create(ctx, &Session{ID: "b2", Board: board.NewStandard(), Status: StatusActive}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	calls := 0
	_, err := st.Update(ctx, "b2", func(cur *Session) error {
		calls++
		if calls == 1 {
			raw := mustEncode(t, cur)
			if err := st.db.Update(func(txn *badger.Txn) error {
				return txn.Set([]byte(sessionKey("b2")), raw)
			}); err != nil {
				t.Fatalf("competing write: %v", err)
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
	got, _ := st.Load(ctx, "b2")
	if got.Status != StatusEnded {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestBadgerStoreFailedUpdateKeepsValue(t *testing.T) {
	st := newBadgerStore(t)
	ctx := context.Background()
	if err := st.Create(ctx, &Session{ID: "b3", Board: board.NewStandard(), Status: StatusActive}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	boom := errors.New("boom")
	if _, err := st.Update(ctx, "b3", func(s *Session) error {
		s.Status = StatusEnded
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	got, _ := st.Load(ctx, "b3")
	if got.Status != StatusActive {
		t.Fatalf("status = %s", got.Status)
	}
}
