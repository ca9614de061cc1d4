// internal/httpserver/routes_game.go
//
// HTTP routes for playing one game namespace.
// Mounted under /game/{ns} (ns = catalog namespace, e.g. "f1"):
//   - POST /new     → start (or reattach to) a session, daily or random mode
//   - POST /guess   → submit a guess; returns per-field verdicts + clues
//   - POST /giveup  → abandon the session; reveals the secret
//   - GET  /state   → history + replayed clues (reload support)
//   - GET  /search  → autocomplete suggestions, already-guessed excluded
// Plus GET /daily/leaderboard?ns=&date= at the top level.
//
// Each owner (user or anon cookie) gets one daily session per game per
// date; daily results persist to SQLite on finish. Random-mode sessions
// are private replays and only land in the sessions table.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/guessdle/go-server/internal/catalog"
	"github.com/guessdle/go-server/internal/clues"
	"github.com/guessdle/go-server/internal/daily"
	"github.com/guessdle/go-server/internal/game"
	"github.com/guessdle/go-server/internal/store"
)

// entityView is the wire shape of a revealed entity.
type entityView struct {
	Name    string              `json:"name"`
	Strings map[string]string   `json:"strings,omitempty"`
	Numbers map[string]float64  `json:"numbers,omitempty"`
	Lists   map[string][]string `json:"lists,omitempty"`
}

func viewOf(e catalog.Entity) entityView {
	return entityView{Name: e.Name, Strings: e.Strings, Numbers: e.Numbers, Lists: e.Lists}
}

// ns resolves the {ns} URL parameter to a catalog, or writes a 404.
func (s *Server) ns(w http.ResponseWriter, r *http.Request) (*catalog.Catalog, bool) {
	c, ok := s.catalogs.Get(chi.URLParam(r, "ns"))
	if !ok {
		http.Error(w, `{"error":"unknown_game"}`, http.StatusNotFound)
		return nil, false
	}
	return c, true
}

// -----------------------------------------------------------------------------
// POST /game/{ns}/new

type newReq struct {
	Mode string `json:"mode"` // "daily" (default) | "random"
}

type newRes struct {
	SessionID string `json:"sessionId,omitempty"`
	Game      string `json:"game"`
	Mode      string `json:"mode"`
	Date      string `json:"date,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Guesses   int    `json:"guesses"`
	Played    bool   `json:"played"` // daily already finished for this date
}

// handleNew creates or reattaches a session.
// Daily mode: one session per owner per date; if today's result is already
// persisted, Played=true and no new session is created (the client shows
// the share view via /state of the original session if it still has it).
// Random mode: fresh secret each call, excluding today's daily answer.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.ns(w, r)
	if !ok {
		return
	}
	var req newReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	mode := game.ModeDaily
	if strings.EqualFold(req.Mode, string(game.ModeRandom)) {
		mode = game.ModeRandom
	}

	owner := s.ownerID(w, r)
	now := s.now()
	pool, err := cat.SecretPool()
	if err != nil {
		// Guarded at startup; reaching this is a bug.
		http.Error(w, `{"error":"empty_pool"}`, http.StatusInternalServerError)
		return
	}

	if mode == game.ModeRandom {
		secret := daily.PickRandom(pool, daily.PickDaily(pool, now).Name)
		sess := game.NewSession(owner, cat, secret, game.ModeRandom, "")
		_ = sess.Start(now)
		if err := s.store.Save(r.Context(), sess); err != nil {
			http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(newRes{
			SessionID: sess.ID, Game: cat.Game, Mode: string(sess.Mode), Phase: string(sess.Phase),
		})
		return
	}

	date := daily.DateKey(now)

	// Reattach to today's live session if one exists.
	if sess, err := s.store.FindDaily(r.Context(), owner, cat.Game, date); err == nil {
		_ = json.NewEncoder(w).Encode(newRes{
			SessionID: sess.ID, Game: cat.Game, Mode: string(sess.Mode), Date: date,
			Phase: string(sess.Phase), Guesses: len(sess.History), Played: sess.Finished(),
		})
		return
	}

	// Already finished today (persisted) → no replay.
	if played, err := s.results.AlreadyPlayed(r.Context(), owner, cat.Game, date); err == nil && played {
		_ = json.NewEncoder(w).Encode(newRes{Game: cat.Game, Mode: string(mode), Date: date, Played: true})
		return
	}

	sess := game.NewSession(owner, cat, daily.PickDaily(pool, now), game.ModeDaily, date)
	_ = sess.Start(now)
	if err := s.store.Save(r.Context(), sess); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(newRes{
		SessionID: sess.ID, Game: cat.Game, Mode: string(sess.Mode), Date: date, Phase: string(sess.Phase),
	})
}

// -----------------------------------------------------------------------------
// POST /game/{ns}/guess

type guessReq struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type guessRes struct {
	Record  game.GuessRecord `json:"record"`
	Phase   string           `json:"phase"`
	Guesses int              `json:"guesses"`
	Solved  bool             `json:"solved"`
	Clues   *clues.State     `json:"clues"`
}

// handleGuess submits one guess to an in-progress session.
// Unknown entities and duplicates are rejected before evaluation; a
// submission either fully evaluates or changes nothing.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.ns(w, r)
	if !ok {
		return
	}
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, ok := s.ownedSession(w, r, cat, req.SessionID)
	if !ok {
		return
	}

	rec, err := sess.Submit(req.Name, s.now())
	switch {
	case err == nil:
	case errors.Is(err, game.ErrUnknownEntity):
		http.Error(w, `{"error":"unknown_entity"}`, http.StatusUnprocessableEntity)
		return
	case errors.Is(err, game.ErrDuplicateGuess):
		http.Error(w, `{"error":"duplicate_guess"}`, http.StatusConflict)
		return
	case errors.Is(err, game.ErrIllegalState):
		http.Error(w, `{"error":"session_finished"}`, http.StatusConflict)
		return
	default:
		http.Error(w, `{"error":"evaluate_failed"}`, http.StatusInternalServerError)
		return
	}

	if err := s.store.Save(r.Context(), sess); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	if sess.Finished() {
		s.persistFinished(r, sess)
	}

	_ = json.NewEncoder(w).Encode(guessRes{
		Record:  rec,
		Phase:   string(sess.Phase),
		Guesses: len(sess.History),
		Solved:  sess.Phase == game.PhaseSolved,
		Clues:   clues.Replay(sess.History),
	})
}

// -----------------------------------------------------------------------------
// POST /game/{ns}/giveup

type giveUpReq struct {
	SessionID string `json:"sessionId"`
}

type giveUpRes struct {
	Secret  entityView `json:"secret"`
	Phase   string     `json:"phase"`
	Guesses int        `json:"guesses"`
}

// handleGiveUp ends the session and reveals the secret.
func (s *Server) handleGiveUp(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.ns(w, r)
	if !ok {
		return
	}
	var req giveUpReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, ok := s.ownedSession(w, r, cat, req.SessionID)
	if !ok {
		return
	}

	secret, err := sess.GiveUp()
	if errors.Is(err, game.ErrIllegalState) {
		http.Error(w, `{"error":"session_finished"}`, http.StatusConflict)
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	s.persistFinished(r, sess)

	_ = json.NewEncoder(w).Encode(giveUpRes{
		Secret: viewOf(secret), Phase: string(sess.Phase), Guesses: len(sess.History),
	})
}

// -----------------------------------------------------------------------------
// GET /game/{ns}/state

type stateRes struct {
	SessionID string             `json:"sessionId"`
	Game      string             `json:"game"`
	Mode      string             `json:"mode"`
	Date      string             `json:"date,omitempty"`
	Phase     string             `json:"phase"`
	History   []game.GuessRecord `json:"history"`
	Clues     *clues.State       `json:"clues"`
}

// handleState returns the full session view: history in submission order
// plus the clues state replayed from it. The clues are always rebuilt from
// the history, never cached, so a restored session cannot drift.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.ns(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, cat, r.URL.Query().Get("sessionId"))
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(stateRes{
		SessionID: sess.ID,
		Game:      sess.Game,
		Mode:      string(sess.Mode),
		Date:      sess.Date,
		Phase:     string(sess.Phase),
		History:   sess.History,
		Clues:     clues.Replay(sess.History),
	})
}

// -----------------------------------------------------------------------------
// GET /game/{ns}/search

// handleSearch serves autocomplete: accent/case-insensitive substring over
// catalog order, capped at 10, minus names already guessed in the session
// named by ?sessionId (optional).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.ns(w, r)
	if !ok {
		return
	}
	exclude := map[string]struct{}{}
	if id := r.URL.Query().Get("sessionId"); id != "" {
		if sess, err := s.store.Get(r.Context(), id); err == nil && sess.Game == cat.Game {
			exclude = sess.GuessedNames()
		}
	}
	names := []string{}
	for _, e := range cat.Search(r.URL.Query().Get("q"), exclude) {
		names = append(names, e.Name)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"matches": names})
}

// -----------------------------------------------------------------------------
// GET /daily/leaderboard

type lbRes struct {
	Game string        `json:"game"`
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the top daily solvers for ?ns= and ?date=
// (default: today).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ns := r.URL.Query().Get("ns")
	if _, ok := s.catalogs.Get(ns); !ok {
		http.Error(w, `{"error":"unknown_game"}`, http.StatusNotFound)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	}
	rows, err := s.results.Leaderboard(r.Context(), ns, date, 20)
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Game: ns, Date: date, Top: rows})
}

// ----------------------------- shared helpers -------------------------------

// ownedSession loads a session by ID and checks game + ownership.
func (s *Server) ownedSession(w http.ResponseWriter, r *http.Request, cat *catalog.Catalog, id string) (*game.Session, bool) {
	if id == "" {
		http.Error(w, `{"error":"missing_session"}`, http.StatusBadRequest)
		return nil, false
	}
	sess, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sess.Game != cat.Game) {
		http.Error(w, `{"error":"no_session"}`, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return nil, false
	}
	if sess.Owner != s.ownerID(w, r) {
		http.Error(w, `{"error":"no_session"}`, http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// persistFinished writes the finished session and, for daily mode, the
// daily result + user stats. Best effort: gameplay already succeeded, so
// persistence failures are logged, not surfaced.
func (s *Server) persistFinished(r *http.Request, sess *game.Session) {
	now := s.now()
	solved := sess.Phase == game.PhaseSolved
	historyJSON, _ := json.Marshal(sess.History)

	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	userID, anonID := any(nil), any(sess.Owner)
	if me != nil && me.ID == sess.Owner {
		userID, anonID = any(sess.Owner), any(nil)
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Warn().Err(err).Msg("begin persist tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO sessions
	        (id, user_id, anonymous_id, game, mode, date, secret_id, phase, guesses, history, started_at, finished_at)
	        VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		sess.ID, userID, anonID, sess.Game, string(sess.Mode), sess.Date, sess.Secret.Name,
		string(sess.Phase), len(sess.History), string(historyJSON),
		sess.StartedAt.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339)); err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("insert session row")
	}

	if me != nil {
		if err := s.bumpStats(tx, me.ID, solved); err != nil {
			log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
		}
	}
	_ = tx.Commit()

	if sess.Mode == game.ModeDaily {
		elapsedFrom := sess.FirstGuessAt
		if elapsedFrom.IsZero() {
			elapsedFrom = sess.StartedAt
		}
		err := s.results.InsertResult(r.Context(), daily.Result{
			UserID:    sess.Owner,
			Game:      sess.Game,
			Date:      sess.Date,
			SecretID:  sess.Secret.Name,
			Solved:    solved,
			Guesses:   len(sess.History),
			ElapsedMs: int(now.Sub(elapsedFrom).Milliseconds()),
		})
		if err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("insert daily result")
		}
	}
}
