// Package store keeps the authoritative in-memory state of the chat system:
// the message log, connected sessions, and rooms with their membership.
//
// All access goes through transactions. Update runs its function under the
// store's exclusive lock and View under the shared lock, so a multi-step
// read-modify-write performed inside one Update is atomic with respect to
// every other caller. The store enforces single-entity invariants only
// (unique ids, unique membership, no empty rooms); cross-entity rules live
// in the rooms package.
package store

import (
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
)

type room struct {
	createdAt time.Time
	members   map[string]struct{}
}

// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	maxMessages int

	lastID   int64
	messages []chat.Message
	sessions map[string]chat.Session
	rooms    map[string]*room
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHistoryLimit bounds the message log to the n most recent messages.
// Zero or a negative n keeps every message.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxMessages = n
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		sessions: make(map[string]chat.Session),
		rooms:    make(map[string]*room),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update runs fn with exclusive access to the store.
func (s *Store) Update(fn func(tx *Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Txn{s: s, writable: true})
}

// View runs fn with shared, read-only access to the store.
func (s *Store) View(fn func(tx *Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&Txn{s: s})
}
