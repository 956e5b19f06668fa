package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"dropfour/internal/bot"
	"dropfour/internal/game"
)

func shallow(t *testing.T, side game.Player) *bot.Engine {
	t.Helper()
	e, err := bot.New(side, bot.WithMaxDepth(2))
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestDrawBoardPlain(t *testing.T) {
	b := game.CreateBoard()
	b, _, _ = b.Drop(3, game.Player1)
	b, _, _ = b.Drop(3, game.Player2)

	var out bytes.Buffer
	drawBoard(&out, b, 3, false)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != game.Rows+1 {
		t.Fatalf("got %d lines, want %d", len(lines), game.Rows+1)
	}
	if lines[game.Rows-1] != " .  .  .  X  .  .  . " {
		t.Fatalf("bottom row %q", lines[game.Rows-1])
	}
	if lines[game.Rows-2] != " .  .  .  O  .  .  . " {
		t.Fatalf("second row %q", lines[game.Rows-2])
	}
	if !strings.Contains(lines[game.Rows], "[3]") {
		t.Fatalf("ruler should mark the last move: %q", lines[game.Rows])
	}
	if strings.Contains(out.String(), "\033[") {
		t.Fatal("plain rendering must not emit ANSI codes")
	}
}

func TestSelfPlayFinishes(t *testing.T) {
	var out bytes.Buffer
	g, err := selfPlay(context.Background(), &out, shallow(t, game.Player1), shallow(t, game.Player2), false)
	if err != nil {
		t.Fatal(err)
	}
	if !g.IsFinished || g.Winner == "" {
		t.Fatalf("game not finished: %+v", g)
	}
	if len(g.Moves) < 7 {
		t.Fatalf("a game needs at least 7 plies, got %d", len(g.Moves))
	}
	if g.Moves[0].Column != 3 {
		t.Fatalf("engine should open in the center, got %d", g.Moves[0].Column)
	}
	if !strings.Contains(out.String(), "result: "+g.Winner) {
		t.Fatal("result line missing")
	}
}

func TestPlayLinesHumanAndEngineAlternate(t *testing.T) {
	in := strings.NewReader("x\n9\n3\nq\n")
	var out bytes.Buffer
	g, err := playLines(context.Background(), in, &out, shallow(t, game.Player2), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Moves) != 2 {
		t.Fatalf("want human and engine move, got %d moves", len(g.Moves))
	}
	if g.Moves[0].Column != 3 || g.Moves[0].Player != game.Player1 || g.Moves[1].Player != game.Player2 {
		t.Fatalf("unexpected moves %+v", g.Moves)
	}
	if g.Winner != bot.BotUsername {
		t.Fatalf("quitting should forfeit to the engine, winner %q", g.Winner)
	}
	text := out.String()
	if !strings.Contains(text, `not a column: "x"`) || !strings.Contains(text, "illegal move") {
		t.Fatalf("input errors not reported:\n%s", text)
	}
}
