// internal/daily/store.go
//
// SQLite-backed storage for finished daily attempts.
// One row per (user, game, date); UNIQUE constraint enforced by the schema.
// Feeds the per-day leaderboard and the "already played today" check.

package daily

import (
	"context"
	"database/sql"
)

// Result is one user's finished daily attempt.
type Result struct {
	UserID    string `json:"userId"`
	Game      string `json:"game"`
	Date      string `json:"date"`
	SecretID  string `json:"secretId"`
	Solved    bool   `json:"solved"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int    `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether the user has a finished attempt recorded
// for this game and date.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, game, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND game=? AND date=?",
		userID, game, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a finished attempt. A second insert for the same
// (user, game, date) is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, game, date, secret_id, solved, guesses, elapsed_ms)
		 VALUES(?,?,?,?,?,?,?)`,
		r.UserID, r.Game, r.Date, r.SecretID, r.Solved, r.Guesses, r.ElapsedMs,
	)
	return err
}

// LBRow is one leaderboard entry: fewest guesses first, ties by time.
type LBRow struct {
	UserID    string `json:"userId"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Leaderboard returns the top solvers for a game and date.
func (s *Store) Leaderboard(ctx context.Context, game, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, guesses, elapsed_ms
		 FROM daily_results
		 WHERE game=? AND date=? AND solved=1
		 ORDER BY guesses ASC, elapsed_ms ASC, created_at ASC
		 LIMIT ?`, game, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Guesses, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
