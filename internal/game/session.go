// internal/game/session.go
//
// Session lifecycle for a single game against one secret.
// Responsibilities:
//   - Create sessions with a compact random ID.
//   - Gate operations by phase: NotStarted → InProgress → Solved|GaveUp.
//   - Resolve, validate, and evaluate submitted guesses (duplicate and
//     unknown-entity rejection happens before any comparison runs).
//   - Reveal the secret on give-up.
//
// Session state is an explicit value owned by its caller; nothing here is
// package-global. History is strictly append-ordered by submission.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/guessdle/go-server/internal/catalog"
)

// Mode distinguishes the shared daily secret from a private random replay.
type Mode string

const (
	ModeDaily  Mode = "daily"
	ModeRandom Mode = "random"
)

// Session holds the state of one run at one secret.
type Session struct {
	ID           string        // unique session identifier (random hex)
	Owner        string        // user or anonymous ID
	Game         string        // catalog namespace, e.g. "f1"
	Mode         Mode          // daily or random
	Date         string        // YYYY-MM-DD for daily sessions
	Secret       catalog.Entity
	History      []GuessRecord // oldest-first, append-only
	Phase        Phase
	StartedAt    time.Time
	FirstGuessAt time.Time // zero until the first guess lands

	cat *catalog.Catalog // resolves guesses; never mutated
}

// NewSession creates a session in NotStarted holding the chosen secret.
func NewSession(owner string, cat *catalog.Catalog, secret catalog.Entity, mode Mode, date string) *Session {
	return &Session{
		ID:      randomID(),
		Owner:   owner,
		Game:    cat.Game,
		Mode:    mode,
		Date:    date,
		Secret:  secret,
		History: []GuessRecord{},
		Phase:   PhaseNotStarted,
		cat:     cat,
	}
}

// Start transitions NotStarted → InProgress and records the start time.
func (s *Session) Start(now time.Time) error {
	if s.Phase != PhaseNotStarted {
		return ErrIllegalState
	}
	s.Phase = PhaseInProgress
	s.StartedAt = now
	return nil
}

// Schema returns the catalog schema the session evaluates against.
func (s *Session) Schema() []catalog.FieldSpec { return s.cat.Schema }

// GuessedNames returns the identifiers guessed so far, for search exclusion.
func (s *Session) GuessedNames() map[string]struct{} {
	out := make(map[string]struct{}, len(s.History))
	for _, g := range s.History {
		out[g.Name] = struct{}{}
	}
	return out
}

// Submit resolves a guess by name, evaluates it against the secret, and
// appends it to history. Transitions to Solved on an exact match.
// Errors: ErrIllegalState outside InProgress, ErrUnknownEntity if the name
// does not resolve, ErrDuplicateGuess if already in history.
func (s *Session) Submit(name string, now time.Time) (GuessRecord, error) {
	if s.Phase != PhaseInProgress {
		return GuessRecord{}, ErrIllegalState
	}
	guess, err := s.cat.FindByName(name)
	if err != nil {
		return GuessRecord{}, ErrUnknownEntity
	}
	for _, prev := range s.History {
		if prev.Name == guess.Name {
			return GuessRecord{}, ErrDuplicateGuess
		}
	}

	res, err := Evaluate(s.Secret, guess, s.cat.Schema, now)
	if err != nil {
		return GuessRecord{}, err
	}
	rec := GuessRecord{Name: guess.Name, Result: res}
	s.History = append(s.History, rec)
	if s.FirstGuessAt.IsZero() {
		s.FirstGuessAt = now
	}
	if IsExactMatch(s.Secret, guess) {
		s.Phase = PhaseSolved
	}
	return rec, nil
}

// GiveUp transitions InProgress → GaveUp and reveals the secret.
func (s *Session) GiveUp() (catalog.Entity, error) {
	if s.Phase != PhaseInProgress {
		return catalog.Entity{}, ErrIllegalState
	}
	s.Phase = PhaseGaveUp
	return s.Secret, nil
}

// Finished reports whether the session reached a terminal phase.
func (s *Session) Finished() bool {
	return s.Phase == PhaseSolved || s.Phase == PhaseGaveUp
}

// randomID returns a compact 16-hex-char identifier.
// Collisions are extremely unlikely given crypto/rand entropy.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
