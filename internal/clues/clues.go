// internal/clues/clues.go
//
// Accumulated clues: the running, narrowing knowledge about the secret
// derived from every guess so far.
//
// The state is a pure left-fold over the session's guess history, in
// submission order, and is always re-derivable from an empty seed by
// replaying that history (which is how restored sessions rebuild their
// summary panel). It reads only the verdicts the evaluator already
// produced — never the secret itself — so it cannot reveal more than the
// per-guess feedback already has. Folding out of order could widen bounds
// that a later guess had tightened; callers must keep submission order.

package clues

import (
	"github.com/guessdle/go-server/internal/catalog"
	"github.com/guessdle/go-server/internal/compare"
	"github.com/guessdle/go-server/internal/game"
)

// OrderedClue narrows a numeric field: a confirmed value, or exclusive
// bounds tightened by every directional verdict.
type OrderedClue struct {
	Confirmed *float64 `json:"confirmed,omitempty"`
	Min       *float64 `json:"min,omitempty"` // secret is strictly greater
	Max       *float64 `json:"max,omitempty"` // secret is strictly less
}

// CategoricalClue is a confirmed value or an accumulating exclusion set.
type CategoricalClue struct {
	Confirmed *string  `json:"confirmed,omitempty"`
	Excluded  []string `json:"excluded"`
}

// SetClue tracks discovered members of a set field. Total is the secret
// set's cardinality, letting the UI render "2 of 5 discovered" without
// naming the undiscovered remainder.
type SetClue struct {
	Matched  []string `json:"matched"`  // union of matched values, discovery order
	Excluded []string `json:"excluded"` // values known not to be in the secret
	Total    int      `json:"total"`
}

// State carries one clue per schema field, keyed by field name.
type State struct {
	Ordered     map[string]*OrderedClue     `json:"ordered"`
	Categorical map[string]*CategoricalClue `json:"categorical"`
	Sets        map[string]*SetClue         `json:"sets"`
}

// New returns an empty seed state.
func New() *State {
	return &State{
		Ordered:     map[string]*OrderedClue{},
		Categorical: map[string]*CategoricalClue{},
		Sets:        map[string]*SetClue{},
	}
}

// Replay folds a whole history from an empty seed, in submission order.
func Replay(history []game.GuessRecord) *State {
	s := New()
	for _, rec := range history {
		s.Fold(rec)
	}
	return s
}

// Fold merges one guess's verdicts into the state. Confirmed values never
// change and bounds only ever tighten.
func (s *State) Fold(rec game.GuessRecord) {
	for field, fr := range rec.Result {
		switch fr.Kind {
		case catalog.KindCategorical:
			s.foldCategorical(field, fr)
		case catalog.KindOrdered, catalog.KindAge:
			s.foldOrdered(field, fr)
		case catalog.KindSet:
			s.foldSet(field, fr)
		}
	}
}

func (s *State) foldOrdered(field string, fr game.FieldResult) {
	c, ok := s.Ordered[field]
	if !ok {
		c = &OrderedClue{}
		s.Ordered[field] = c
	}
	if c.Confirmed != nil {
		return
	}
	v := fr.GuessNumber
	switch fr.Verdict {
	case compare.Match:
		c.Confirmed = &v
		c.Min, c.Max = nil, nil
	case compare.GuessTooHigh: // secret is strictly below the guess
		if c.Max == nil || v < *c.Max {
			c.Max = &v
		}
	case compare.GuessTooLow: // secret is strictly above the guess
		if c.Min == nil || v > *c.Min {
			c.Min = &v
		}
	}
}

func (s *State) foldCategorical(field string, fr game.FieldResult) {
	c, ok := s.Categorical[field]
	if !ok {
		c = &CategoricalClue{Excluded: []string{}}
		s.Categorical[field] = c
	}
	if c.Confirmed != nil {
		return
	}
	if fr.Verdict == compare.Match {
		v := fr.GuessText
		c.Confirmed = &v
		return
	}
	c.Excluded = appendUnique(c.Excluded, fr.GuessText)
}

func (s *State) foldSet(field string, fr game.FieldResult) {
	c, ok := s.Sets[field]
	if !ok {
		c = &SetClue{Matched: []string{}, Excluded: []string{}, Total: fr.SecretSetSize}
		s.Sets[field] = c
	}
	for _, m := range fr.Set.Matched {
		c.Matched = appendUnique(c.Matched, m)
	}
	for _, u := range fr.Set.UnmatchedGuess {
		c.Excluded = appendUnique(c.Excluded, u)
	}
}

// appendUnique appends v unless already present, preserving order.
func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
