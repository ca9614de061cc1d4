// internal/game/evaluate.go
//
// Guess evaluation: one schema-driven pass over every declared field,
// dispatching to the comparator for that field's kind.
//
// Notes:
//   - Evaluation is referentially transparent: same secret, guess, schema
//     and reference time always produce the same Result, so a persisted
//     history can be replayed to reconstruct a past session.
//   - The six original games each hand-wrote this comparison; the schema
//     dispatch here replaces all of those copies.

package game

import (
	"fmt"
	"time"

	"github.com/guessdle/go-server/internal/catalog"
	"github.com/guessdle/go-server/internal/compare"
)

// Evaluate compares a guess against the secret across every schema field.
// now anchors age-kind fields; deceased entities use their death date
// instead. Fails only on a malformed schema.
func Evaluate(secret, guess catalog.Entity, schema []catalog.FieldSpec, now time.Time) (Result, error) {
	res := make(Result, len(schema))
	for _, f := range schema {
		switch f.Kind {
		case catalog.KindCategorical:
			g := guess.Strings[f.Name]
			res[f.Name] = FieldResult{
				Kind:      f.Kind,
				Verdict:   compare.Categorical(secret.Strings[f.Name], g),
				GuessText: g,
			}
		case catalog.KindOrdered:
			g := guess.Numbers[f.Name]
			res[f.Name] = FieldResult{
				Kind:        f.Kind,
				Verdict:     compare.Ordered(secret.Numbers[f.Name], g),
				GuessNumber: g,
			}
		case catalog.KindAge:
			g := float64(entityAge(guess, now))
			res[f.Name] = FieldResult{
				Kind:        f.Kind,
				Verdict:     compare.Ordered(float64(entityAge(secret, now)), g),
				GuessNumber: g,
			}
		case catalog.KindSet:
			v := compare.Set(secret.Lists[f.Name], guess.Lists[f.Name])
			res[f.Name] = FieldResult{
				Kind:          f.Kind,
				Set:           &v,
				SecretSetSize: setSize(secret.Lists[f.Name]),
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFieldKind, f.Kind)
		}
	}
	return res, nil
}

// IsExactMatch reports whether the guess IS the secret, by unique name.
func IsExactMatch(secret, guess catalog.Entity) bool {
	return secret.Name == guess.Name
}

// entityAge derives the comparable age scalar: whole years between birth
// and death-or-now.
func entityAge(e catalog.Entity, now time.Time) int {
	end := now
	if e.Death != nil {
		end = *e.Death
	}
	return compare.Age(e.Birth, end)
}

// setSize counts distinct values.
func setSize(list []string) int {
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		seen[s] = struct{}{}
	}
	return len(seen)
}
