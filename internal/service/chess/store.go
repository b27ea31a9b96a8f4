package chess

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore keeps live sessions plus a per-session busy lock.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	FindByPlayer(ctx context.Context, playerID string) (*Session, error)
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, sess *Session) error
	// TryLock returns an empty token when the session is already locked.
	TryLock(ctx context.Context, id string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, id, token string) error
	Locked(ctx context.Context, id string) (bool, error)
}

type memEntry struct {
	sess    Session
	expires time.Time
}

type memLock struct {
	token   string
	expires time.Time
}

// memstore is a development-only SessionStore used when no Redis is configured.
type memstore struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]memEntry
	players  map[string]string // playerID -> session id
	locks    map[string]memLock
}

func NewMemoryStore() SessionStore {
	return &memstore{
		now:      time.Now,
		sessions: make(map[string]memEntry),
		players:  make(map[string]string),
		locks:    make(map[string]memLock),
	}
}

func (m *memstore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(strings.TrimSpace(id)), nil
}

func (m *memstore) loadLocked(id string) *Session {
	e, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.sessions, id)
		return nil
	}
	out := e.sess.clone()
	return &out
}

func (m *memstore) FindByPlayer(ctx context.Context, playerID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.TrimSpace(playerID)
	id, ok := m.players[key]
	if !ok {
		return nil, nil
	}
	sess := m.loadLocked(id)
	if sess == nil {
		delete(m.players, key)
	}
	return sess, nil
}

func (m *memstore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil {
		return errNilSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memEntry{sess: sess.clone()}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.sessions[sess.ID] = e
	if sess.PlayerID != "" {
		m.players[sess.PlayerID] = sess.ID
	}
	return nil
}

func (m *memstore) Delete(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sess.ID)
	if m.players[sess.PlayerID] == sess.ID {
		delete(m.players, sess.PlayerID)
	}
	return nil
}

func (m *memstore) TryLock(ctx context.Context, id string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[id]; ok && m.now().Before(l.expires) {
		return "", nil
	}
	token := uuid.NewString()
	m.locks[id] = memLock{token: token, expires: m.now().Add(ttl)}
	return token, nil
}

func (m *memstore) Unlock(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[id]; ok && l.token == token {
		delete(m.locks, id)
	}
	return nil
}

func (m *memstore) Locked(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	return ok && m.now().Before(l.expires), nil
}
