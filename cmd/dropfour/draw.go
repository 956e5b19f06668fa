package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"dropfour/internal/game"

	"golang.org/x/term"
)

const (
	reset   = "\033[0m"
	boardBg = "\033[44m"
	redF    = "\033[91m"
	yellowF = "\033[93m"
	dimF    = "\033[90m"
)

// colorEnabled reports whether f is a terminal that can take ANSI colours.
func colorEnabled(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// drawBoard prints b top row first with a column ruler underneath. last
// marks the most recent move and may be -1.
func drawBoard(w io.Writer, b game.Board, last int, color bool) {
	for row := 0; row < game.Rows; row++ {
		var sb strings.Builder
		for col := 0; col < game.Cols; col++ {
			sb.WriteString(cell(b[row][col], color))
		}
		fmt.Fprintln(w, sb.String())
	}

	var ruler strings.Builder
	for col := 0; col < game.Cols; col++ {
		if col == last {
			fmt.Fprintf(&ruler, "[%d]", col)
		} else {
			fmt.Fprintf(&ruler, " %d ", col)
		}
	}
	fmt.Fprintln(w, ruler.String())
}

func cell(p game.Player, color bool) string {
	glyph := map[game.Player]string{game.Empty: ".", game.Player1: "X", game.Player2: "O"}[p]
	if !color {
		return " " + glyph + " "
	}
	fg := dimF
	switch p {
	case game.Player1:
		fg = redF
	case game.Player2:
		fg = yellowF
	}
	return boardBg + fg + " " + glyph + " " + reset
}
