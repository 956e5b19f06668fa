package game

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Rows      = 6
	Cols      = 7
	WinLength = 4
)

var (
	ErrInvalidColumn = errors.New("invalid column")
	ErrColumnFull    = errors.New("column is full")
	ErrBadBoard      = errors.New("malformed board")
)

type Player int

const (
	Empty   Player = 0
	Player1 Player = 1
	Player2 Player = 2
)

// Opponent returns the other side. Empty has no opponent and maps to itself.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return Empty
}

func (p Player) Valid() bool {
	return p == Player1 || p == Player2
}

// Board is indexed [row][col] with row 0 at the top.
type Board [Rows][Cols]Player

func CreateBoard() Board {
	return Board{}
}

// Drop returns a copy of b with p's piece in the lowest empty cell of col.
// The receiver is never modified.
func (b Board) Drop(col int, p Player) (Board, int, error) {
	if col < 0 || col >= Cols {
		return b, -1, ErrInvalidColumn
	}
	for row := Rows - 1; row >= 0; row-- {
		if b[row][col] == Empty {
			b[row][col] = p
			return b, row, nil
		}
	}
	return b, -1, ErrColumnFull
}

func IsValidMove(board *Board, column int) bool {
	if column < 0 || column >= Cols {
		return false
	}
	return board[0][column] == Empty
}

func GetValidColumns(board *Board) []int {
	valid := make([]int, 0, Cols)
	for col := 0; col < Cols; col++ {
		if board[0][col] == Empty {
			valid = append(valid, col)
		}
	}
	return valid
}

func IsFull(board *Board) bool {
	for col := 0; col < Cols; col++ {
		if board[0][col] == Empty {
			return false
		}
	}
	return true
}

// HasWon reports whether p owns four consecutive cells in any direction.
func HasWon(board *Board, p Player) bool {
	for row := 0; row < Rows; row++ {
		for col := 0; col <= Cols-WinLength; col++ {
			if board[row][col] == p && board[row][col+1] == p &&
				board[row][col+2] == p && board[row][col+3] == p {
				return true
			}
		}
	}
	for col := 0; col < Cols; col++ {
		for row := 0; row <= Rows-WinLength; row++ {
			if board[row][col] == p && board[row+1][col] == p &&
				board[row+2][col] == p && board[row+3][col] == p {
				return true
			}
		}
	}
	for row := 0; row <= Rows-WinLength; row++ {
		for col := 0; col <= Cols-WinLength; col++ {
			if board[row][col] == p && board[row+1][col+1] == p &&
				board[row+2][col+2] == p && board[row+3][col+3] == p {
				return true
			}
		}
	}
	for row := 0; row <= Rows-WinLength; row++ {
		for col := WinLength - 1; col < Cols; col++ {
			if board[row][col] == p && board[row+1][col-1] == p &&
				board[row+2][col-2] == p && board[row+3][col-3] == p {
				return true
			}
		}
	}
	return false
}

func IsTerminal(board *Board) bool {
	return HasWon(board, Player1) || HasWon(board, Player2) || IsFull(board)
}

// CheckWinner returns the winning player, or Empty with isDraw set when the
// board filled up without a winner.
func CheckWinner(board *Board) (winner Player, isDraw bool) {
	if HasWon(board, Player1) {
		return Player1, false
	}
	if HasWon(board, Player2) {
		return Player2, false
	}
	return Empty, IsFull(board)
}

func (b Board) Count(p Player) int {
	n := 0
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			if b[row][col] == p {
				n++
			}
		}
	}
	return n
}

// ParseBoard reads the text form produced by String: six rows of seven cells,
// top row first, separated by '/' or newlines. '.' or '0' is empty, '1' or
// 'X' is Player1, '2' or 'O' is Player2.
func ParseBoard(s string) (Board, error) {
	var b Board
	s = strings.TrimSpace(s)
	rows := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '\n' || r == '\r'
	})
	if len(rows) != Rows {
		return b, fmt.Errorf("%w: want %d rows, got %d", ErrBadBoard, Rows, len(rows))
	}
	for r, line := range rows {
		line = strings.TrimSpace(line)
		if len(line) != Cols {
			return b, fmt.Errorf("%w: row %d has %d cells", ErrBadBoard, r, len(line))
		}
		for c := 0; c < Cols; c++ {
			switch line[c] {
			case '.', '0':
				b[r][c] = Empty
			case '1', 'X', 'x':
				b[r][c] = Player1
			case '2', 'O', 'o':
				b[r][c] = Player2
			default:
				return b, fmt.Errorf("%w: unexpected cell %q at row %d col %d", ErrBadBoard, line[c], r, c)
			}
		}
	}
	if err := b.checkGravity(); err != nil {
		return b, err
	}
	return b, nil
}

func (b Board) checkGravity() error {
	for col := 0; col < Cols; col++ {
		for row := 0; row < Rows-1; row++ {
			if b[row][col] != Empty && b[row+1][col] == Empty {
				return fmt.Errorf("%w: floating piece at row %d col %d", ErrBadBoard, row, col)
			}
		}
	}
	return nil
}

func (b Board) String() string {
	var sb strings.Builder
	sb.Grow(Rows*(Cols+1) - 1)
	for row := 0; row < Rows; row++ {
		if row > 0 {
			sb.WriteByte('/')
		}
		for col := 0; col < Cols; col++ {
			switch b[row][col] {
			case Player1:
				sb.WriteByte('1')
			case Player2:
				sb.WriteByte('2')
			default:
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}
