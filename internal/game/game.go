package game

import (
	"errors"
	"time"
)

var ErrGameFinished = errors.New("game is already finished")
var ErrNotYourTurn = errors.New("not your turn")

const DrawResult = "Draw"

type Move struct {
	Column int    `json:"column"`
	Row    int    `json:"row"`
	Player Player `json:"player"`
}

type GameState struct {
	ID          string    `json:"id"`
	Player1     string    `json:"player1"`
	Player2     string    `json:"player2"`
	Board       Board     `json:"board"`
	CurrentTurn Player    `json:"currentTurn"`
	Moves       []Move    `json:"moves"`
	Winner      string    `json:"winner,omitempty"`
	IsFinished  bool      `json:"isFinished"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewGameState(id, player1, player2 string) *GameState {
	now := time.Now()
	return &GameState{
		ID:          id,
		Player1:     player1,
		Player2:     player2,
		Board:       CreateBoard(),
		CurrentTurn: Player1,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a copy that shares no memory with g.
func (g *GameState) Clone() *GameState {
	c := *g
	c.Moves = append([]Move(nil), g.Moves...)
	return &c
}

// MakeMove drops the piece for player into column and records the result.
// The turn passes to the opponent unless the move ends the game.
func (g *GameState) MakeMove(column int, player Player) (*Move, error) {
	if g.IsFinished {
		return nil, ErrGameFinished
	}
	if g.CurrentTurn != player {
		return nil, ErrNotYourTurn
	}

	next, row, err := g.Board.Drop(column, player)
	if err != nil {
		return nil, err
	}
	g.Board = next
	move := Move{Column: column, Row: row, Player: player}
	g.Moves = append(g.Moves, move)
	g.UpdatedAt = time.Now()

	winner, isDraw := CheckWinner(&g.Board)
	switch {
	case isDraw:
		g.IsFinished = true
		g.Winner = DrawResult
	case winner != Empty:
		g.IsFinished = true
		g.Winner = g.NameOf(winner)
	default:
		g.CurrentTurn = player.Opponent()
	}
	return &move, nil
}

func (g *GameState) NameOf(p Player) string {
	if p == Player1 {
		return g.Player1
	}
	return g.Player2
}

// PlayerOf returns which side username plays, or Empty if they are not in the game.
func (g *GameState) PlayerOf(username string) Player {
	switch username {
	case g.Player1:
		return Player1
	case g.Player2:
		return Player2
	}
	return Empty
}

func (g *GameState) Forfeit(loser Player) {
	g.IsFinished = true
	g.Winner = g.NameOf(loser.Opponent())
	g.UpdatedAt = time.Now()
}
