package bot

import "dropfour/internal/game"

// MoveOrder lists columns from the center outwards.
var MoveOrder = [game.Cols]int{3, 2, 4, 1, 5, 0, 6}

// OrderMoves returns the legal columns of b in MoveOrder.
func OrderMoves(b *game.Board) []int {
	return appendOrdered(make([]int, 0, game.Cols), b)
}

func appendOrdered(dst []int, b *game.Board) []int {
	for _, col := range MoveOrder {
		if b[0][col] == game.Empty {
			dst = append(dst, col)
		}
	}
	return dst
}
