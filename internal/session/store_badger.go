package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps sessions in an embedded Badger database so a single
// process survives restarts without Redis. Keys match RedisStore.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadgerStore opens (or creates) the database under dir. An empty dir
// runs Badger in memory.
func OpenBadgerStore(dir string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(strings.TrimSpace(dir))
	if opts.Dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func (b *BadgerStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *BadgerStore) entry(id string, val []byte) *badger.Entry {
	return badger.NewEntry([]byte(sessionKey(id)), val).WithTTL(b.ttl)
}

func (b *BadgerStore) Create(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encode(s)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(sessionKey(s.ID)))
		if err == nil {
			return ErrSessionExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(b.entry(s.ID, raw))
	})
}

func (b *BadgerStore) Load(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *Session
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKey(id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			s, err := decode(val)
			if err != nil {
				return err
			}
			out = s
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update runs fn inside a read-write transaction. Badger aborts the commit
// with ErrConflict when another transaction wrote the key first; those are
// retried.
func (b *BadgerStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	for i := 0; i < maxUpdateRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var out *Session
		err := b.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(sessionKey(id)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSessionNotFound
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			s, err := decode(raw)
			if err != nil {
				return err
			}
			if err := fn(s); err != nil {
				return err
			}
			next, err := encode(s)
			if err != nil {
				return err
			}
			out = s
			return txn.SetEntry(b.entry(id, next))
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrConflict
}

func (b *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKey(id)))
	})
}
