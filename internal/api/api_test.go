package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dropfour/internal/bot"
	"dropfour/internal/database"
	"dropfour/internal/game"
	"dropfour/internal/session"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubLeaderboard struct {
	stats []database.PlayerStats
	err   error
}

func (s stubLeaderboard) GetLeaderboard(context.Context, int) ([]database.PlayerStats, error) {
	return s.stats, s.err
}

func newTestServer(lb Leaderboard) *Server {
	return &Server{
		Registry:      session.NewRegistry(time.Minute, nil),
		Leaderboard:   lb,
		DefaultBudget: 500 * time.Millisecond,
		MaxBudget:     time.Second,
		EngineOptions: []bot.Option{bot.WithClock(fixedClock{t: time.Unix(0, 0)}), bot.WithMaxDepth(3)},
	}
}

func postMove(t *testing.T, srv *Server, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/move", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestMoveEndpointFindsWin(t *testing.T) {
	srv := newTestServer(nil)
	rec := postMove(t, srv, MoveRequest{
		Board: "......./......./......./......1/......1/22...21",
		Side:  1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp MoveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Column != 6 || resp.Depth != 3 || resp.Score != bot.WinScore {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestMoveEndpointRejectsBadInput(t *testing.T) {
	srv := newTestServer(nil)
	full := "1122112/2211221/1122112/2211221/1122112/2211221"

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed json", "not an object", http.StatusBadRequest},
		{"bad board", MoveRequest{Board: "...", Side: 1}, http.StatusBadRequest},
		{"bad side", MoveRequest{Board: "......./......./......./......./......./.......", Side: 3}, http.StatusBadRequest},
		{"no legal moves", MoveRequest{Board: full, Side: 2}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postMove(t, srv, tt.body); rec.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	srv := newTestServer(stubLeaderboard{stats: []database.PlayerStats{{Username: "alice", Wins: 4}}})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var stats []database.PlayerStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Username != "alice" {
		t.Fatalf("unexpected leaderboard %+v", stats)
	}

	failing := newTestServer(stubLeaderboard{err: errors.New("db down")})
	rec = httptest.NewRecorder()
	failing.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGameEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	g, err := srv.Registry.Create("alice", true)
	if err != nil {
		t.Fatal(err)
	}
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/"+g.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
}

func TestEngineOptionsKeepLevelBudget(t *testing.T) {
	srv := &Server{
		DefaultBudget: 950 * time.Millisecond,
		MaxBudget:     time.Second,
		EngineOptions: bot.LevelEasy.Options(950 * time.Millisecond),
	}

	tests := []struct {
		name     string
		budgetMs int
		want     time.Duration
	}{
		{"level cap without request budget", 0, 200 * time.Millisecond},
		{"request budget overrides level", 700, 700 * time.Millisecond},
		{"request budget is clamped", 20000, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := bot.New(game.Player1, srv.engineOptions(MoveRequest{BudgetMs: tt.budgetMs})...)
			if err != nil {
				t.Fatal(err)
			}
			if e.TimeBudget() != tt.want {
				t.Fatalf("budget %s, want %s", e.TimeBudget(), tt.want)
			}
		})
	}

	plain := &Server{DefaultBudget: 300 * time.Millisecond}
	e, err := bot.New(game.Player1, plain.engineOptions(MoveRequest{})...)
	if err != nil {
		t.Fatal(err)
	}
	if e.TimeBudget() != 300*time.Millisecond {
		t.Fatalf("default budget not applied: %s", e.TimeBudget())
	}
}
