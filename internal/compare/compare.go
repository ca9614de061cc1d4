// internal/compare/compare.go
//
// Per-field-kind comparison strategies for the guessing engine.
// Responsibilities:
//   - Categorical: strict equality → Match/Different.
//   - Ordered: numeric comparison → Match/GuessTooHigh/GuessTooLow.
//   - Set: overlap between guessed and secret sets → SetVerdict.
//   - Age: calendar-accurate age derived from birth (and optional death) dates.
//
// Notes:
//   - All functions are pure; the evaluator in the game package dispatches
//     to them based on the field kind declared by a catalog schema.
//   - GuessTooHigh means the secret is LOWER than the guess (tell the user
//     to guess lower); GuessTooLow means the secret is higher.

package compare

import "time"

// Verdict categorizes the outcome of comparing one field.
type Verdict string

const (
	// Match: guessed value equals the secret's value.
	Match Verdict = "match"
	// Different: categorical values differ.
	Different Verdict = "different"
	// GuessTooHigh: the guessed number is above the secret (secret is lower).
	GuessTooHigh Verdict = "too_high"
	// GuessTooLow: the guessed number is below the secret (secret is higher).
	GuessTooLow Verdict = "too_low"
)

// Categorical compares two discrete values by strict equality.
func Categorical(secret, guess string) Verdict {
	if secret == guess {
		return Match
	}
	return Different
}

// Ordered compares two numeric values: equality first, then direction.
func Ordered(secret, guess float64) Verdict {
	switch {
	case guess == secret:
		return Match
	case guess > secret:
		return GuessTooHigh
	default:
		return GuessTooLow
	}
}

// SetVerdict describes the overlap between a guessed set and the secret's set.
type SetVerdict struct {
	Matched        []string `json:"matched"`        // guess ∩ secret, in guess order
	UnmatchedGuess []string `json:"unmatchedGuess"` // guess values not in the secret
	HasAnyMatch    bool     `json:"hasAnyMatch"`    // at least one shared value
	IsFullMatch    bool     `json:"isFullMatch"`    // the two sets are identical
}

// Set compares two collections as sets (duplicates ignored).
// IsFullMatch holds iff guess and secret contain exactly the same values.
// Scalar-valued fields are normalized to one-element slices by the caller
// before reaching this function, so a single shape handles both cases.
func Set(secret, guess []string) SetVerdict {
	secretSet := toSet(secret)
	seen := make(map[string]struct{}, len(guess))

	v := SetVerdict{Matched: []string{}, UnmatchedGuess: []string{}}
	for _, g := range guess {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		if _, ok := secretSet[g]; ok {
			v.Matched = append(v.Matched, g)
		} else {
			v.UnmatchedGuess = append(v.UnmatchedGuess, g)
		}
	}
	v.HasAnyMatch = len(v.Matched) > 0
	v.IsFullMatch = len(v.Matched) == len(seen) && len(v.Matched) == len(secretSet)
	return v
}

// toSet converts a slice into a lookup set.
func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, s := range list {
		m[s] = struct{}{}
	}
	return m
}

// Age computes a calendar-accurate age in whole years at the given end date.
// The end date is "now" for living entities, or the death date otherwise;
// the year difference is decremented when end's month/day falls before the
// birthday within the year. Not a days/365.25 approximation.
func Age(birth, end time.Time) int {
	years := end.Year() - birth.Year()
	if end.Month() < birth.Month() ||
		(end.Month() == birth.Month() && end.Day() < birth.Day()) {
		years--
	}
	return years
}
