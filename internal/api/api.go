package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dropfour/internal/bot"
	"dropfour/internal/database"
	"dropfour/internal/game"
	"dropfour/internal/logx"
	"dropfour/internal/session"
	"dropfour/internal/websocket"

	"github.com/gorilla/mux"
	ws "github.com/gorilla/websocket"
)

const leaderboardSize = 10

type Leaderboard interface {
	GetLeaderboard(ctx context.Context, limit int) ([]database.PlayerStats, error)
}

type Server struct {
	Hub           *websocket.Hub
	Registry      *session.Registry
	Leaderboard   Leaderboard
	DefaultBudget time.Duration
	MaxBudget     time.Duration
	// EngineOptions apply to every /api/move engine; request settings override them.
	EngineOptions []bot.Option
	Logger        logx.Logger

	upgrader ws.Upgrader
}

type MoveRequest struct {
	Board    string `json:"board"`
	Side     int    `json:"side"`
	BudgetMs int    `json:"budgetMs"`
	MaxDepth int    `json:"maxDepth"`
}

type MoveResponse struct {
	Column    int   `json:"column"`
	Depth     int   `json:"depth"`
	Score     int   `json:"score"`
	Nodes     int64 `json:"nodes"`
	CacheHits int64 `json:"cacheHits"`
	ElapsedMs int64 `json:"elapsedMs"`
}

func (s *Server) Router() *mux.Router {
	if s.Logger == nil {
		s.Logger = logx.Nop()
	}
	s.upgrader = ws.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/move", s.handleMove).Methods(http.MethodPost)
	router.HandleFunc("/api/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	router.HandleFunc("/api/games/{id}", s.handleGame).Methods(http.MethodGet)
	if s.Hub != nil {
		router.HandleFunc("/ws", s.handleWS)
	}
	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	board, err := game.ParseBoard(req.Board)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine, err := bot.New(game.Player(req.Side), s.engineOptions(req)...)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := engine.Search(r.Context(), board)
	if errors.Is(err, bot.ErrNoLegalMoves) {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.Logger.Errorf("search failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	s.Logger.Infof("api move: side=%d column=%d depth=%d nodes=%d elapsed=%s",
		req.Side, res.Column, res.Depth, res.Nodes, res.Elapsed)
	s.writeJSON(w, http.StatusOK, MoveResponse{
		Column:    res.Column,
		Depth:     res.Depth,
		Score:     res.Score,
		Nodes:     res.Nodes,
		CacheHits: res.CacheHits,
		ElapsedMs: res.Elapsed.Milliseconds(),
	})
}

// engineOptions layers DefaultBudget, then EngineOptions, then the request.
// A level in EngineOptions keeps its own budget cap unless the request names
// a budget.
func (s *Server) engineOptions(req MoveRequest) []bot.Option {
	var opts []bot.Option
	if s.DefaultBudget > 0 {
		opts = append(opts, bot.WithTimeBudget(s.clampBudget(s.DefaultBudget)))
	}
	opts = append(opts, s.EngineOptions...)
	if req.BudgetMs > 0 {
		opts = append(opts, bot.WithTimeBudget(s.clampBudget(time.Duration(req.BudgetMs)*time.Millisecond)))
	}
	if req.MaxDepth > 0 {
		opts = append(opts, bot.WithMaxDepth(req.MaxDepth))
	}
	return opts
}

func (s *Server) clampBudget(d time.Duration) time.Duration {
	if s.MaxBudget > 0 && d > s.MaxBudget {
		return s.MaxBudget
	}
	return d
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.Leaderboard == nil {
		s.writeJSON(w, http.StatusOK, []database.PlayerStats{})
		return
	}
	stats, err := s.Leaderboard.GetLeaderboard(r.Context(), leaderboardSize)
	if err != nil {
		s.Logger.Errorf("leaderboard: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch leaderboard")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.Registry == nil {
		s.writeError(w, http.StatusNotFound, "game not found")
		return
	}
	g, ok := s.Registry.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "game not found")
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warnf("websocket upgrade error: %v", err)
		return
	}
	websocket.ServeWS(s.Hub, conn)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
