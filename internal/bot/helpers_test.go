package bot

import (
	"testing"
	"time"

	"dropfour/internal/game"
)

// stepClock advances by step on every reading, which makes deadline expiry
// depend on the amount of work done rather than on the machine.
type stepClock struct {
	now  time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: step}
}

func (c *stepClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func mustBoard(t *testing.T, s string) game.Board {
	t.Helper()
	b, err := game.ParseBoard(s)
	if err != nil {
		t.Fatalf("parse board %q: %v", s, err)
	}
	return b
}

func mustEngine(t *testing.T, side game.Player, opts ...Option) *Engine {
	t.Helper()
	e, err := New(side, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}
