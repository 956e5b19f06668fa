package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"dropfour/internal/bot"
	"dropfour/internal/game"
	"dropfour/internal/logx"

	"github.com/google/uuid"
)

var (
	ErrAlreadyPlaying = errors.New("player already has an active game")
	ErrGameNotFound   = errors.New("game not found")
	ErrReservedName   = errors.New("username is reserved for the engine")
)

// Registry tracks human-vs-engine games by id and by username. It owns the
// game states: readers get copies and moves go through Play, so every
// mutation happens under mu.
type Registry struct {
	mu           sync.RWMutex
	games        map[string]*game.GameState
	playerToGame map[string]string
	idleTimeout  time.Duration
	logger       logx.Logger
	now          func() time.Time
}

func NewRegistry(idleTimeout time.Duration, logger logx.Logger) *Registry {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Registry{
		games:        make(map[string]*game.GameState),
		playerToGame: make(map[string]string),
		idleTimeout:  idleTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Create starts a game between username and the engine. humanFirst decides
// whether the human plays Player1. A finished game held by the same user is
// replaced.
func (r *Registry) Create(username string, humanFirst bool) (*game.GameState, error) {
	if strings.EqualFold(strings.TrimSpace(username), bot.BotUsername) {
		return nil, ErrReservedName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.playerToGame[username]; ok {
		if g, exists := r.games[id]; exists && !g.IsFinished {
			return nil, ErrAlreadyPlaying
		}
		delete(r.games, id)
	}

	p1, p2 := username, bot.BotUsername
	if !humanFirst {
		p1, p2 = bot.BotUsername, username
	}
	g := game.NewGameState(uuid.New().String(), p1, p2)
	g.StartedAt = r.now()
	g.UpdatedAt = g.StartedAt
	r.games[g.ID] = g
	r.playerToGame[username] = g.ID

	r.logger.Infof("game %s created: %s vs %s", g.ID, p1, p2)
	return g.Clone(), nil
}

func (r *Registry) Get(id string) (*game.GameState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

func (r *Registry) GetByPlayer(username string) (*game.GameState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.playerToGame[username]
	if !ok {
		return nil, false
	}
	g, ok := r.games[id]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// Play applies a move to the stored game and returns the move together with
// a copy of the game after it.
func (r *Registry) Play(id string, column int, player game.Player) (*game.Move, *game.GameState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return nil, nil, ErrGameNotFound
	}
	move, err := g.MakeMove(column, player)
	if err != nil {
		return nil, nil, err
	}
	g.UpdatedAt = r.now()
	return move, g.Clone(), nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) {
	g, ok := r.games[id]
	if !ok {
		return
	}
	for _, name := range []string{g.Player1, g.Player2} {
		if r.playerToGame[name] == id {
			delete(r.playerToGame, name)
		}
	}
	delete(r.games, id)
	r.logger.Debugf("game %s removed", id)
}

func (r *Registry) All() []*game.GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	games := make([]*game.GameState, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g.Clone())
	}
	return games
}

// Reap removes games that have not changed for longer than the idle timeout
// and returns how many were dropped.
func (r *Registry) Reap() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, g := range r.games {
		if g.UpdatedAt.Before(cutoff) {
			r.removeLocked(id)
			n++
		}
	}
	return n
}

// RunReaper calls Reap every interval until stop is closed.
func (r *Registry) RunReaper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.Reap(); n > 0 {
				r.logger.Infof("reaped %d idle games", n)
			}
		case <-stop:
			return
		}
	}
}
