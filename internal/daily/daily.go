// internal/daily/daily.go
//
// Deterministic daily secret selection.
//
// The canonical algorithm is day-of-year mod pool length, computed from the
// player-local date the caller passes in. The same date against the same
// pool always yields the same secret; there is no hidden randomness. Note
// the index is NOT stable across pool-length changes — adding or removing
// eligible entities reshuffles every future day's secret. That matches the
// behavior the games have always had, so it is kept rather than fixed.

package daily

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"time"

	"github.com/guessdle/go-server/internal/catalog"
)

// DateKey returns YYYY-MM-DD for t in its own location.
// The caller supplies a clock in the player's timezone; daily selection and
// already-played checks must use the same clock or they drift apart.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DayIndex returns the zero-based day-of-year of t mod poolLen.
// Jan 1 is day 0, so 2025-01-03 against a pool of 5 selects index 2.
func DayIndex(t time.Time, poolLen int) int {
	if poolLen <= 0 {
		return 0
	}
	return (t.YearDay() - 1) % poolLen
}

// PickDaily returns the secret for the given date. Pure: calling it any
// number of times per render is safe.
func PickDaily(pool []catalog.Entity, t time.Time) catalog.Entity {
	return pool[DayIndex(t, len(pool))]
}

// SeededIndex is a seeded variant: HMAC(seed, YYYY-MM-DD) % poolLen, with a
// per-game namespace seed. The per-game selectors use DayIndex; this exists
// so a game could opt into a draw order that differs between namespaces
// without every game flipping secrets on the same calendar day.
func SeededIndex(t time.Time, seed string, poolLen int) int {
	if poolLen <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(seed))
	h.Write([]byte(DateKey(t)))
	sum := h.Sum(nil)
	// take first 8 bytes to uint64 for modulus distribution
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n % uint64(poolLen))
}

// PickRandom returns a uniformly random entity from the pool, excluding the
// named entity when possible. If exclusion would empty the pool (a pool of
// one), the full pool is used instead.
func PickRandom(pool []catalog.Entity, excludeName string) catalog.Entity {
	candidates := make([]catalog.Entity, 0, len(pool))
	for _, e := range pool {
		if e.Name != excludeName {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		candidates = pool
	}
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(candidates))))
	return candidates[nBig.Int64()]
}
