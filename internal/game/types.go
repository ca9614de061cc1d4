// internal/game/types.go
//
// Core type definitions for the guessing engine.
// Defines:
//   - FieldResult: per-field outcome of comparing one guess to the secret.
//   - Result: field name → FieldResult for one whole guess.
//   - GuessRecord: one submitted guess plus its Result, immutable once made.
//   - Phase: session lifecycle states.

package game

import (
	"errors"

	"github.com/guessdle/go-server/internal/catalog"
	"github.com/guessdle/go-server/internal/compare"
)

// FieldResult is the verdict for one field of one guess. The guessed value
// is echoed back (text, number, or set) so a renderer can paint the row
// without a second catalog lookup. SecretSetSize carries the cardinality of
// the secret's set — the count only, never the unrevealed values.
type FieldResult struct {
	Kind          catalog.Kind        `json:"kind"`
	Verdict       compare.Verdict     `json:"verdict,omitempty"` // categorical, ordered, age
	GuessText     string              `json:"guessText,omitempty"`
	GuessNumber   float64             `json:"guessNumber,omitempty"`
	Set           *compare.SetVerdict `json:"set,omitempty"`
	SecretSetSize int                 `json:"secretSetSize,omitempty"`
}

// Result maps field names to their verdicts for a single guess.
type Result map[string]FieldResult

// GuessRecord is one entry of a session's ordered guess history.
type GuessRecord struct {
	Name   string `json:"name"` // guessed entity's unique identifier
	Result Result `json:"result"`
}

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseSolved     Phase = "solved"
	PhaseGaveUp     Phase = "gave_up"
)

// Errors raised by the engine. Unknown-entity and duplicate-guess are
// recoverable user-input errors; the other two indicate a bug.
var (
	ErrUnknownEntity    = errors.New("game: entity not in catalog")
	ErrDuplicateGuess   = errors.New("game: entity already guessed")
	ErrIllegalState     = errors.New("game: operation not legal in this phase")
	ErrUnknownFieldKind = errors.New("game: unknown field kind in schema")
)
