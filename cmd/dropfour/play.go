package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dropfour/internal/bot"
	"dropfour/internal/game"
)

var errQuit = errors.New("quit")

// selfPlay lets two engines play from the empty board until the game ends.
func selfPlay(ctx context.Context, out io.Writer, first, second *bot.Engine, color bool) (*game.GameState, error) {
	g := game.NewGameState("selfplay", "engine-1", "engine-2")
	engines := map[game.Player]*bot.Engine{game.Player1: first, game.Player2: second}

	drawBoard(out, g.Board, -1, color)
	for !g.IsFinished {
		side := g.CurrentTurn
		res, err := engines[side].Search(ctx, g.Board)
		if err != nil {
			return g, err
		}
		if _, err := g.MakeMove(res.Column, side); err != nil {
			return g, fmt.Errorf("engine %d chose column %d: %w", side, res.Column, err)
		}
		fmt.Fprintf(out, "\nply %d: player %d plays %d (depth %d, score %d, %d nodes, %s)\n",
			len(g.Moves), side, res.Column, res.Depth, res.Score, res.Nodes, res.Elapsed)
		drawBoard(out, g.Board, res.Column, color)
	}
	fmt.Fprintf(out, "\nresult: %s\n", g.Winner)
	return g, nil
}

// playLines runs a human-vs-engine game reading one column per line from in.
// "q" ends the game early.
func playLines(ctx context.Context, in io.Reader, out io.Writer, engine *bot.Engine, color bool) (*game.GameState, error) {
	human := engine.Side().Opponent()
	p1, p2 := "you", bot.BotUsername
	if human == game.Player2 {
		p1, p2 = p2, p1
	}
	g := game.NewGameState("local", p1, p2)
	scanner := bufio.NewScanner(in)

	drawBoard(out, g.Board, -1, color)
	for !g.IsFinished {
		if g.CurrentTurn == human {
			col, err := readColumn(scanner, out)
			if errors.Is(err, errQuit) {
				g.Forfeit(human)
				break
			}
			if err != nil {
				return g, err
			}
			if _, err := g.MakeMove(col, human); err != nil {
				fmt.Fprintf(out, "illegal move: %v\n", err)
				continue
			}
			drawBoard(out, g.Board, col, color)
			continue
		}

		res, err := engine.Search(ctx, g.Board)
		if err != nil {
			return g, err
		}
		if _, err := g.MakeMove(res.Column, engine.Side()); err != nil {
			return g, fmt.Errorf("engine chose column %d: %w", res.Column, err)
		}
		fmt.Fprintf(out, "\nengine plays %d (depth %d)\n", res.Column, res.Depth)
		drawBoard(out, g.Board, res.Column, color)
	}
	fmt.Fprintf(out, "\nresult: %s\n", g.Winner)
	return g, nil
}

func readColumn(scanner *bufio.Scanner, out io.Writer) (int, error) {
	for {
		fmt.Fprintf(out, "column (0-%d, q to quit): ", game.Cols-1)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return -1, err
			}
			return -1, errQuit
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "q" || line == "quit" {
			return -1, errQuit
		}
		col, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(out, "not a column: %q\n", line)
			continue
		}
		return col, nil
	}
}
