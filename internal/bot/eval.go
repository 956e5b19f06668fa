package bot

import "dropfour/internal/game"

const WinScore = 1_000_000

// Weights are the pattern scores of the window heuristic.
type Weights struct {
	Four          int `json:"four"`
	Three         int `json:"three"`
	Two           int `json:"two"`
	OpponentThree int `json:"opponentThree"`
	Center        int `json:"center"`
}

var DefaultWeights = Weights{
	Four:          100,
	Three:         5,
	Two:           2,
	OpponentThree: 4,
	Center:        3,
}

type evaluator struct {
	self     game.Player
	opponent game.Player
	w        Weights
}

func (ev evaluator) window(cells [game.WinLength]game.Player) int {
	own, opp, empty := 0, 0, 0
	for _, c := range cells {
		switch c {
		case ev.self:
			own++
		case ev.opponent:
			opp++
		default:
			empty++
		}
	}

	score := 0
	switch {
	case own == 4:
		score += ev.w.Four
	case own == 3 && empty == 1:
		score += ev.w.Three
	case own == 2 && empty == 2:
		score += ev.w.Two
	}
	if opp == 3 && empty == 1 {
		score -= ev.w.OpponentThree
	}
	return score
}

// heuristic scores a position from the engine's side. Whose turn it is does
// not matter here.
func (ev evaluator) heuristic(b *game.Board) int {
	score := 0

	center := game.Cols / 2
	for row := 0; row < game.Rows; row++ {
		if b[row][center] == ev.self {
			score += ev.w.Center
		}
	}

	var w [game.WinLength]game.Player
	for row := 0; row < game.Rows; row++ {
		for col := 0; col < game.Cols; col++ {
			if col+3 < game.Cols {
				for i := range w {
					w[i] = b[row][col+i]
				}
				score += ev.window(w)
			}
			if row+3 < game.Rows {
				for i := range w {
					w[i] = b[row+i][col]
				}
				score += ev.window(w)
			}
			if row+3 < game.Rows && col+3 < game.Cols {
				for i := range w {
					w[i] = b[row+i][col+i]
				}
				score += ev.window(w)
			}
			if row+3 < game.Rows && col-3 >= 0 {
				for i := range w {
					w[i] = b[row+i][col-i]
				}
				score += ev.window(w)
			}
		}
	}
	return score
}

func (ev evaluator) evaluateState(b *game.Board) int {
	if game.HasWon(b, ev.self) {
		return WinScore
	}
	if game.HasWon(b, ev.opponent) {
		return -WinScore
	}
	return ev.heuristic(b)
}
