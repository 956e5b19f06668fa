package bot

import (
	"context"
	"math"
	"time"

	"dropfour/internal/game"
)

const (
	negInf = math.MinInt
	posInf = math.MaxInt
)

// searchState is the scratch state of one move selection. It is created by
// Search and discarded when Search returns.
type searchState struct {
	ev       evaluator
	clock    Clock
	ctx      context.Context
	start    time.Time
	deadline time.Time
	timedOut bool
	nodes    int64
	cache    *evalCache
}

// expired is sticky: once the deadline or the context has been observed
// expired, it stays expired for the rest of the call.
func (s *searchState) expired() bool {
	if s.timedOut {
		return true
	}
	if s.ctx.Err() != nil || !s.clock.Now().Before(s.deadline) {
		s.timedOut = true
	}
	return s.timedOut
}

func (s *searchState) evaluate(b *game.Board) int {
	if s.cache == nil {
		return s.ev.evaluateState(b)
	}
	k := keyOf(b)
	if v, ok := s.cache.get(k); ok {
		return v
	}
	v := s.ev.evaluateState(b)
	s.cache.put(k, v)
	return v
}

// searchRoot is the MAX layer that produces the decision. The first
// strictly better score wins; ties keep the earlier column in MoveOrder.
// It returns -1 when b has no legal column.
func (s *searchState) searchRoot(b *game.Board, depth int) (int, int) {
	s.nodes++
	alpha, beta := negInf, posInf
	bestScore, bestMove := negInf, -1

	var buf [game.Cols]int
	for _, col := range appendOrdered(buf[:0], b) {
		child, _, _ := b.Drop(col, s.ev.self)
		score := s.minValue(&child, depth-1, alpha, beta)
		if score > bestScore {
			bestScore = score
			bestMove = col
		}
		alpha = max(alpha, bestScore)
		if alpha >= beta {
			break
		}
		if s.expired() {
			break
		}
	}
	return bestMove, bestScore
}

func (s *searchState) maxValue(b *game.Board, depth, alpha, beta int) int {
	s.nodes++
	if depth == 0 || game.IsTerminal(b) || s.expired() {
		return s.evaluate(b)
	}

	value := negInf
	var buf [game.Cols]int
	for _, col := range appendOrdered(buf[:0], b) {
		child, _, _ := b.Drop(col, s.ev.self)
		value = max(value, s.minValue(&child, depth-1, alpha, beta))
		if value >= beta {
			return value
		}
		alpha = max(alpha, value)
	}
	return value
}

func (s *searchState) minValue(b *game.Board, depth, alpha, beta int) int {
	s.nodes++
	if depth == 0 || game.IsTerminal(b) || s.expired() {
		return s.evaluate(b)
	}

	value := posInf
	var buf [game.Cols]int
	for _, col := range appendOrdered(buf[:0], b) {
		child, _, _ := b.Drop(col, s.ev.opponent)
		value = min(value, s.maxValue(&child, depth-1, alpha, beta))
		if value <= alpha {
			return value
		}
		beta = min(beta, value)
	}
	return value
}
