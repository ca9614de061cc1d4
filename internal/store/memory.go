// internal/store/memory.go
//
// In-memory implementation of the session Store interface.
// Live sessions are ephemeral by design: finished results go to SQLite,
// and an abandoned session is simply never looked up again.
//
// Characteristics:
//   - Stores *game.Session objects keyed by ID, with a secondary index
//     keyed by owner|game|date so a reload reattaches to today's session.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/guessdle/go-server/internal/game"
)

// ErrNotFound is returned by Get/FindDaily when no session matches.
var ErrNotFound = errors.New("store: session not found")

// Store defines the persistence interface for live sessions.
// Implementations may be backed by memory (this package), Redis, SQL, etc.
type Store interface {
	// Save persists or updates a session.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*game.Session, error)

	// FindDaily retrieves an owner's daily session for a game and date.
	FindDaily(ctx context.Context, owner, gameNS, date string) (*game.Session, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex
	byID  map[string]*game.Session
	daily map[string]string // owner|game|date → session ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{byID: make(map[string]*game.Session), daily: make(map[string]string)}
}

func dailyKey(owner, gameNS, date string) string {
	return owner + "|" + gameNS + "|" + date
}

// Save adds or updates the session and its daily index entry.
func (m *memory) Save(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = s
	if s.Mode == game.ModeDaily {
		m.daily[dailyKey(s.Owner, s.Game, s.Date)] = s.ID
	}
	return nil
}

// Get looks up a session by ID.
func (m *memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// FindDaily looks up an owner's session for one game and date.
func (m *memory) FindDaily(ctx context.Context, owner, gameNS, date string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.daily[dailyKey(owner, gameNS, date)]; ok {
		if s, ok := m.byID[id]; ok {
			return s, nil
		}
	}
	return nil, ErrNotFound
}
