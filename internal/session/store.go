package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Store persists sessions. Update performs an atomic read-modify-write: fn
// sees the current session and its changes are saved only if fn returns nil.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}

func encode(s *Session) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// MemoryStore keeps encoded sessions in process. Callers always receive copies.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Create(ctx context.Context, s *Session) error {
	raw, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[s.ID]; ok {
		return ErrSessionExists
	}
	m.data[s.ID] = raw
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	raw, ok := m.data[strings.TrimSpace(id)]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decode(raw)
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	id = strings.TrimSpace(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	next, err := encode(s)
	if err != nil {
		return nil, err
	}
	m.data[id] = next
	return s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, strings.TrimSpace(id))
	return nil
}
