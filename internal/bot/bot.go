package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dropfour/internal/game"
)

const BotUsername = "AI Bot"

type Level int

const (
	LevelEasy Level = iota
	LevelMedium
	LevelHard
)

func (l Level) String() string {
	switch l {
	case LevelEasy:
		return "easy"
	case LevelMedium:
		return "medium"
	case LevelHard:
		return "hard"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return LevelEasy, nil
	case "medium", "":
		return LevelMedium, nil
	case "hard":
		return LevelHard, nil
	}
	return LevelMedium, fmt.Errorf("unknown bot level %q", s)
}

// Options maps a level to a depth cap. Hard is bounded only by budget.
func (l Level) Options(budget time.Duration) []Option {
	switch l {
	case LevelEasy:
		return []Option{WithTimeBudget(min(budget, 200*time.Millisecond)), WithMaxDepth(2)}
	case LevelMedium:
		return []Option{WithTimeBudget(min(budget, 500*time.Millisecond)), WithMaxDepth(5)}
	}
	return []Option{WithTimeBudget(budget)}
}

// ForLevel builds an engine for side at the given level. Extra options are
// applied after the level defaults.
func ForLevel(side game.Player, level Level, budget time.Duration, opts ...Option) (*Engine, error) {
	return New(side, append(level.Options(budget), opts...)...)
}

// SelectBotMove picks a column for botPlayer with the default budget. It
// returns -1 when the board has no legal column or the side is invalid.
func SelectBotMove(board *game.Board, botPlayer game.Player) int {
	engine, err := New(botPlayer)
	if err != nil {
		return -1
	}
	col, err := engine.SelectMove(context.Background(), *board)
	if err != nil {
		return -1
	}
	return col
}
