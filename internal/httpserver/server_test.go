package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guessdle/go-server/internal/catalog"
	"github.com/guessdle/go-server/internal/clues"
	"github.com/guessdle/go-server/internal/config"
	"github.com/guessdle/go-server/internal/database"
	"github.com/guessdle/go-server/internal/game"
	"github.com/guessdle/go-server/internal/store"
)

// fixedNow pins daily selection: 2025-01-03 is zero-based day 2, and the
// f1 secret pool (embedded dataset minus hard entries) has Fernando Alonso
// at index 2.
var fixedNow = time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	reg := catalog.NewRegistry("")
	if err := reg.Init(); err != nil {
		t.Fatalf("init catalogs: %v", err)
	}

	cfg := &config.Config{
		Port:           "0",
		LogLevel:       "error",
		ClientOrigin:   "http://localhost:5173",
		JWTSecret:      "test_secret",
		JWTExpiresDays: 14,
		CookieName:     "guessdle_token",
	}
	s := New(store.NewMemoryStore(), db, reg, cfg)
	s.SetClock(func() time.Time { return fixedNow })
	return s
}

// browser replays cookies between requests so the anonymous identity is
// stable across a session, like a real client.
type browser struct {
	srv     *Server
	cookies []*http.Cookie
}

func (b *browser) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.srv.Router().ServeHTTP(w, req)
	b.cookies = append(b.cookies, w.Result().Cookies()...)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	b := &browser{srv: newTestServer(t)}
	w := b.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
}

func TestGamesList(t *testing.T) {
	b := &browser{srv: newTestServer(t)}
	w := b.do(t, http.MethodGet, "/games", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("games: %d", w.Code)
	}
	games := decode[[]map[string]string](t, w)
	if len(games) != 2 {
		t.Fatalf("expected 2 embedded games, got %d", len(games))
	}
}

func TestDailyFlow(t *testing.T) {
	b := &browser{srv: newTestServer(t)}

	w := b.do(t, http.MethodPost, "/game/f1/new", map[string]string{"mode": "daily"})
	if w.Code != http.StatusOK {
		t.Fatalf("new: %d %s", w.Code, w.Body.String())
	}
	created := decode[newRes](t, w)
	if created.SessionID == "" || created.Played {
		t.Fatalf("new: %+v", created)
	}
	if created.Date != "2025-01-03" {
		t.Fatalf("date: %q", created.Date)
	}

	// Wrong guess: evaluated, session stays in progress.
	w = b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "Lewis Hamilton"})
	if w.Code != http.StatusOK {
		t.Fatalf("guess: %d %s", w.Code, w.Body.String())
	}
	g1 := decode[guessRes](t, w)
	if g1.Solved || g1.Phase != string(game.PhaseInProgress) || g1.Guesses != 1 {
		t.Fatalf("wrong guess: %+v", g1)
	}
	if g1.Record.Result["nationality"].Verdict != "different" {
		t.Fatalf("nationality verdict: %+v", g1.Record.Result["nationality"])
	}

	// Duplicate of the same entity is rejected and history is unchanged.
	w = b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "lewis hamilton"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d %s", w.Code, w.Body.String())
	}

	// Unresolvable guess text.
	w = b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "Not A Driver"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown entity: %d", w.Code)
	}

	// Correct guess solves the session.
	w = b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "Fernando Alonso"})
	if w.Code != http.StatusOK {
		t.Fatalf("solve: %d %s", w.Code, w.Body.String())
	}
	g2 := decode[guessRes](t, w)
	if !g2.Solved || g2.Phase != string(game.PhaseSolved) || g2.Guesses != 2 {
		t.Fatalf("solve: %+v", g2)
	}

	// Guessing after a terminal phase is rejected.
	w = b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "Max Verstappen"})
	if w.Code != http.StatusConflict {
		t.Fatalf("guess after solved: %d", w.Code)
	}

	// Reattaching to the same date reports the finished session.
	w = b.do(t, http.MethodPost, "/game/f1/new", map[string]string{"mode": "daily"})
	again := decode[newRes](t, w)
	if !again.Played || again.SessionID != created.SessionID {
		t.Fatalf("reattach: %+v", again)
	}

	// The solve landed on the leaderboard.
	w = b.do(t, http.MethodGet, "/daily/leaderboard?ns=f1", nil)
	lb := decode[lbRes](t, w)
	if lb.Date != "2025-01-03" || len(lb.Top) != 1 || lb.Top[0].Guesses != 2 {
		t.Fatalf("leaderboard: %+v", lb)
	}
}

func TestStateReplaysClues(t *testing.T) {
	b := &browser{srv: newTestServer(t)}

	created := decode[newRes](t, b.do(t, http.MethodPost, "/game/f1/new", map[string]string{"mode": "daily"}))
	_ = b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "Lewis Hamilton"})
	_ = b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "Max Verstappen"})

	w := b.do(t, http.MethodGet, "/game/f1/state?sessionId="+created.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state: %d %s", w.Code, w.Body.String())
	}
	st := decode[stateRes](t, w)
	if len(st.History) != 2 || st.Phase != string(game.PhaseInProgress) {
		t.Fatalf("state: %+v", st)
	}
	// Secret is Alonso (32 wins): Hamilton 105 and Verstappen 65 both
	// land "too high", so the exclusive max narrowed to 65.
	wins := st.Clues.Ordered["wins"]
	if wins == nil || wins.Max == nil || *wins.Max != 65 {
		t.Fatalf("wins clue: %+v", wins)
	}
	// The replayed clues match folding the returned history from scratch.
	replayed := clues.Replay(st.History)
	rj, _ := json.Marshal(replayed)
	sj, _ := json.Marshal(st.Clues)
	if !bytes.Equal(rj, sj) {
		t.Fatalf("clues mismatch:\nstate:  %s\nreplay: %s", sj, rj)
	}
}

func TestGiveUpRevealsSecret(t *testing.T) {
	b := &browser{srv: newTestServer(t)}
	created := decode[newRes](t, b.do(t, http.MethodPost, "/game/f1/new", map[string]string{"mode": "daily"}))

	w := b.do(t, http.MethodPost, "/game/f1/giveup", giveUpReq{SessionID: created.SessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("giveup: %d %s", w.Code, w.Body.String())
	}
	res := decode[giveUpRes](t, w)
	if res.Secret.Name != "Fernando Alonso" || res.Phase != string(game.PhaseGaveUp) {
		t.Fatalf("giveup: %+v", res)
	}

	// Terminal: a second give-up is rejected.
	w = b.do(t, http.MethodPost, "/game/f1/giveup", giveUpReq{SessionID: created.SessionID})
	if w.Code != http.StatusConflict {
		t.Fatalf("second giveup: %d", w.Code)
	}
}

func TestRandomModeSkipsDailySecret(t *testing.T) {
	b := &browser{srv: newTestServer(t)}
	created := decode[newRes](t, b.do(t, http.MethodPost, "/game/f1/new", map[string]string{"mode": "random"}))
	if created.SessionID == "" || created.Mode != string(game.ModeRandom) {
		t.Fatalf("random new: %+v", created)
	}
	// Today's daily answer is excluded from random replays.
	w := b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "Fernando Alonso"})
	g := decode[guessRes](t, w)
	if g.Solved {
		t.Fatal("random secret equals the daily secret")
	}
}

func TestSearchExcludesGuessed(t *testing.T) {
	b := &browser{srv: newTestServer(t)}
	created := decode[newRes](t, b.do(t, http.MethodPost, "/game/f1/new", map[string]string{"mode": "daily"}))
	_ = b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "Sergio Pérez"})

	// Accent-insensitive query; the guessed name is excluded.
	w := b.do(t, http.MethodGet, "/game/f1/search?q=perez&sessionId="+created.SessionID, nil)
	res := decode[map[string][]string](t, w)
	for _, name := range res["matches"] {
		if name == "Sergio Pérez" {
			t.Fatal("guessed entity still suggested")
		}
	}

	w = b.do(t, http.MethodGet, "/game/f1/search?q=raikkonen", nil)
	res = decode[map[string][]string](t, w)
	if len(res["matches"]) != 1 || res["matches"][0] != "Kimi Räikkönen" {
		t.Fatalf("accent search: %v", res["matches"])
	}
}

func TestUnknownGame(t *testing.T) {
	b := &browser{srv: newTestServer(t)}
	w := b.do(t, http.MethodPost, "/game/chess/new", map[string]string{"mode": "daily"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown game: %d", w.Code)
	}
}

func TestAuthAndStats(t *testing.T) {
	b := &browser{srv: newTestServer(t)}

	w := b.do(t, http.MethodPost, "/auth/signup", map[string]string{"Username": "player_one", "Password": "hunter2hunter2"})
	if w.Code != http.StatusOK {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}

	// Solve today's daily while logged in; stats should record the win.
	created := decode[newRes](t, b.do(t, http.MethodPost, "/game/f1/new", map[string]string{"mode": "daily"}))
	w = b.do(t, http.MethodPost, "/game/f1/guess", guessReq{SessionID: created.SessionID, Name: "Fernando Alonso"})
	if w.Code != http.StatusOK {
		t.Fatalf("solve: %d %s", w.Code, w.Body.String())
	}

	w = b.do(t, http.MethodGet, "/stats/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d %s", w.Code, w.Body.String())
	}
	stats := decode[map[string]any](t, w)
	if stats["gamesPlayed"].(float64) != 1 || stats["wins"].(float64) != 1 || stats["streak"].(float64) != 1 {
		t.Fatalf("stats: %+v", stats)
	}

	w = b.do(t, http.MethodGet, "/sessions/mine", nil)
	sessions := decode[[]map[string]any](t, w)
	if len(sessions) != 1 || sessions[0]["phase"] != string(game.PhaseSolved) {
		t.Fatalf("sessions/mine: %+v", sessions)
	}
}
