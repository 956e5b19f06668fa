package bot

import (
	"context"
	"errors"
	"time"

	"dropfour/internal/game"
	"dropfour/internal/logx"
)

const DefaultTimeBudget = 950 * time.Millisecond

var (
	ErrNoLegalMoves = errors.New("bot: no legal moves")
	ErrInvalidSide  = errors.New("bot: side must be Player1 or Player2")
)

// Engine picks moves for one fixed side. It holds configuration only, so a
// single Engine can serve concurrent SelectMove calls.
type Engine struct {
	self      game.Player
	budget    time.Duration
	maxDepth  int
	weights   Weights
	clock     Clock
	evalCache bool
	cacheSize int
	logger    logx.Logger
}

type Option func(*Engine)

func WithTimeBudget(d time.Duration) Option {
	return func(e *Engine) {
		if d < 0 {
			d = 0
		}
		e.budget = d
	}
}

// WithMaxDepth caps iterative deepening. Zero means no cap: the search
// deepens until the clock runs out.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth < 0 {
			depth = 0
		}
		e.maxDepth = depth
	}
}

func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithEvalCache(enabled bool) Option {
	return func(e *Engine) { e.evalCache = enabled }
}

func WithEvalCacheSize(entries int) Option {
	return func(e *Engine) { e.cacheSize = entries }
}

func WithLogger(l logx.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(side game.Player, opts ...Option) (*Engine, error) {
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	e := &Engine{
		self:      side,
		budget:    DefaultTimeBudget,
		weights:   DefaultWeights,
		clock:     systemClock{},
		evalCache: true,
		logger:    logx.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Side() game.Player { return e.self }

func (e *Engine) TimeBudget() time.Duration { return e.budget }

// EvalCacheSize is the entry limit of the per-search cache, zero when the
// cache is off.
func (e *Engine) EvalCacheSize() int {
	if !e.evalCache {
		return 0
	}
	if e.cacheSize <= 0 {
		return defaultEvalCacheSize
	}
	return e.cacheSize
}

// Result describes one move selection. Depth is the deepest search that
// finished before the deadline; zero means the fallback column was returned.
type Result struct {
	Column    int
	Depth     int
	Score     int
	Nodes     int64
	CacheHits int64
	Elapsed   time.Duration
}

func (e *Engine) SelectMove(ctx context.Context, board game.Board) (int, error) {
	res, err := e.Search(ctx, board)
	if err != nil {
		return -1, err
	}
	return res.Column, nil
}

// Search runs iterative deepening on board until the time budget, the
// context or the optional depth cap stops it. Running out of time is not an
// error: the move of the deepest completed depth is returned, or the lowest
// legal column if no depth completed.
func (e *Engine) Search(ctx context.Context, board game.Board) (Result, error) {
	valid := game.GetValidColumns(&board)
	if len(valid) == 0 {
		return Result{Column: -1}, ErrNoLegalMoves
	}

	start := e.clock.Now()
	s := &searchState{
		ev:       evaluator{self: e.self, opponent: e.self.Opponent(), w: e.weights},
		clock:    e.clock,
		ctx:      ctx,
		start:    start,
		deadline: deadline(ctx, start, e.budget),
	}
	if e.evalCache {
		s.cache = newEvalCache(e.cacheSize)
	}

	res := Result{Column: valid[0]}
	// A search as deep as the number of empty cells already reaches every
	// terminal position, so deeper iterations cannot change the result.
	exhaustive := board.Count(game.Empty)
	for depth := 1; e.maxDepth == 0 || depth <= e.maxDepth; depth++ {
		if depth > exhaustive || s.expired() {
			break
		}
		move, score := s.searchRoot(&board, depth)
		if s.expired() {
			e.logger.Debugf("depth %d abandoned at deadline after %d nodes", depth, s.nodes)
			break
		}
		if move >= 0 {
			res.Column, res.Score, res.Depth = move, score, depth
		}
		e.logger.Debugf("depth %d complete: column=%d score=%d nodes=%d", depth, move, score, s.nodes)
	}

	res.Nodes = s.nodes
	if s.cache != nil {
		res.CacheHits = s.cache.hits
	}
	res.Elapsed = e.clock.Now().Sub(start)
	e.logger.Infof("selected column %d for player %d: depth=%d score=%d nodes=%d elapsed=%s",
		res.Column, e.self, res.Depth, res.Score, res.Nodes, res.Elapsed)
	return res, nil
}
