package compare

import (
	"testing"
	"time"
)

func TestCategorical(t *testing.T) {
	if got := Categorical("British", "British"); got != Match {
		t.Fatalf("expected match, got %s", got)
	}
	if got := Categorical("British", "French"); got != Different {
		t.Fatalf("expected different, got %s", got)
	}
}

func TestOrderedDirections(t *testing.T) {
	// secret=20: guessing 25 means the guess is too high (secret is lower).
	if got := Ordered(20, 25); got != GuessTooHigh {
		t.Fatalf("expected too_high, got %s", got)
	}
	if got := Ordered(20, 15); got != GuessTooLow {
		t.Fatalf("expected too_low, got %s", got)
	}
	if got := Ordered(20, 20); got != Match {
		t.Fatalf("expected match, got %s", got)
	}
}

func TestOrderedReflexiveAndExclusive(t *testing.T) {
	// Exactly one verdict per pair; equal values always match.
	for _, v := range []float64{-3, 0, 0.5, 20, 1e9} {
		if got := Ordered(v, v); got != Match {
			t.Fatalf("Ordered(%v,%v) = %s, want match", v, v, got)
		}
	}
	pairs := [][2]float64{{1, 2}, {2, 1}, {0, -1}, {100, 99.5}}
	for _, p := range pairs {
		got := Ordered(p[0], p[1])
		if got != GuessTooHigh && got != GuessTooLow {
			t.Fatalf("Ordered(%v,%v) = %s, want a directional verdict", p[0], p[1], got)
		}
	}
}

func TestSetPartialOverlap(t *testing.T) {
	v := Set([]string{"A", "B"}, []string{"B", "C"})
	if len(v.Matched) != 1 || v.Matched[0] != "B" {
		t.Fatalf("matched = %v, want [B]", v.Matched)
	}
	if len(v.UnmatchedGuess) != 1 || v.UnmatchedGuess[0] != "C" {
		t.Fatalf("unmatchedGuess = %v, want [C]", v.UnmatchedGuess)
	}
	if !v.HasAnyMatch || v.IsFullMatch {
		t.Fatalf("hasAnyMatch=%v isFullMatch=%v, want true/false", v.HasAnyMatch, v.IsFullMatch)
	}
}

func TestSetFullMatchBothDirections(t *testing.T) {
	// Identical as sets regardless of order and duplicates.
	if v := Set([]string{"A", "B"}, []string{"B", "A", "A"}); !v.IsFullMatch {
		t.Fatalf("expected full match, got %+v", v)
	}
	// Guess is a strict subset: not a full match.
	if v := Set([]string{"A", "B"}, []string{"A"}); v.IsFullMatch {
		t.Fatalf("subset should not be a full match: %+v", v)
	}
	// Guess is a strict superset: not a full match either.
	if v := Set([]string{"A"}, []string{"A", "B"}); v.IsFullMatch {
		t.Fatalf("superset should not be a full match: %+v", v)
	}
}

func TestSetDisjoint(t *testing.T) {
	v := Set([]string{"A"}, []string{"B", "C"})
	if v.HasAnyMatch || v.IsFullMatch || len(v.Matched) != 0 {
		t.Fatalf("disjoint sets: %+v", v)
	}
}

func TestSetScalarShape(t *testing.T) {
	// Scalar fields arrive as one-element sets; the same function handles them.
	if v := Set([]string{"Argentine"}, []string{"Argentine"}); !v.IsFullMatch {
		t.Fatalf("expected full match for equal scalars: %+v", v)
	}
}

func TestAgeCalendarAccurate(t *testing.T) {
	birth := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)

	// Day before the birthday: still 29.
	if got := Age(birth, time.Date(2020, 6, 14, 0, 0, 0, 0, time.UTC)); got != 29 {
		t.Fatalf("day before birthday: got %d, want 29", got)
	}
	// On the birthday: 30.
	if got := Age(birth, time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)); got != 30 {
		t.Fatalf("on birthday: got %d, want 30", got)
	}
	// Earlier month: whole year not yet completed.
	if got := Age(birth, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)); got != 29 {
		t.Fatalf("earlier month: got %d, want 29", got)
	}
}

func TestAgeAtDeath(t *testing.T) {
	// Deceased entities freeze at the death date, not "now".
	birth := time.Date(1960, 3, 21, 0, 0, 0, 0, time.UTC)
	death := time.Date(1994, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := Age(birth, death); got != 34 {
		t.Fatalf("age at death: got %d, want 34", got)
	}
}
