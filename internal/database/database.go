package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dropfour/internal/bot"
	"dropfour/internal/game"
	"dropfour/internal/logx"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type DB struct {
	conn   *sql.DB
	logger logx.Logger
}

type PlayerStats struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}

// NewDB opens a connection to dsn. An empty dsn yields a disabled DB whose
// methods are no-ops.
func NewDB(ctx context.Context, dsn string, logger logx.Logger) (*DB, error) {
	if logger == nil {
		logger = logx.Nop()
	}
	if dsn == "" {
		logger.Warnf("DATABASE_URL not set, database features disabled")
		return &DB{logger: logger}, nil
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Infof("database connection established")
	return &DB{conn: conn, logger: logger}, nil
}

func (db *DB) Enabled() bool { return db.conn != nil }

func (db *DB) Initialize(ctx context.Context) error {
	if db.conn == nil {
		return nil
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
			username VARCHAR(255) PRIMARY KEY,
			wins INTEGER DEFAULT 0,
			losses INTEGER DEFAULT 0,
			draws INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			id SERIAL PRIMARY KEY,
			game_id VARCHAR(255) UNIQUE,
			player1 VARCHAR(255),
			player2 VARCHAR(255),
			winner VARCHAR(255),
			final_board VARCHAR(64),
			moves_data TEXT,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS bot_moves (
			id SERIAL PRIMARY KEY,
			game_id VARCHAR(255),
			ply INTEGER,
			board VARCHAR(64),
			column_played INTEGER,
			depth INTEGER,
			score INTEGER,
			nodes BIGINT,
			elapsed_ms BIGINT,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
	}

	db.logger.Infof("database tables initialized")
	return nil
}

// SaveGame stores a finished game and updates the human player's record.
// Saving the same game twice is not an error.
func (db *DB) SaveGame(ctx context.Context, g *game.GameState) error {
	if db.conn == nil {
		return nil
	}

	moves, err := json.Marshal(g.Moves)
	if err != nil {
		return fmt.Errorf("encode moves: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO games (game_id, player1, player2, winner, final_board, moves_data)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.Player1, g.Player2, g.Winner, g.Board.String(), string(moves),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			db.logger.Debugf("game %s already saved", g.ID)
			return nil
		}
		return fmt.Errorf("insert game %s: %w", g.ID, err)
	}

	for _, name := range []string{g.Player1, g.Player2} {
		if name == bot.BotUsername {
			continue
		}
		wins, losses, draws := 0, 0, 0
		switch g.Winner {
		case game.DrawResult:
			draws = 1
		case name:
			wins = 1
		default:
			losses = 1
		}
		if err := db.updatePlayerStats(ctx, name, wins, losses, draws); err != nil {
			db.logger.Errorf("failed to update player stats for %s: %v", name, err)
		}
	}
	return nil
}

func (db *DB) updatePlayerStats(ctx context.Context, username string, wins, losses, draws int) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO players (username, wins, losses, draws)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username)
		 DO UPDATE SET
		   wins = players.wins + $2,
		   losses = players.losses + $3,
		   draws = players.draws + $4`,
		username, wins, losses, draws,
	)
	return err
}

// SaveBotMove records the search statistics of one engine move.
func (db *DB) SaveBotMove(ctx context.Context, gameID string, ply int, board game.Board, res bot.Result) error {
	if db.conn == nil {
		return nil
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO bot_moves (game_id, ply, board, column_played, depth, score, nodes, elapsed_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		gameID, ply, board.String(), res.Column, res.Depth, res.Score, res.Nodes, res.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert bot move for %s: %w", gameID, err)
	}
	return nil
}

func (db *DB) GetLeaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	if db.conn == nil {
		return []PlayerStats{}, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT username, wins, losses, draws
		 FROM players
		 ORDER BY wins DESC, losses ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	stats := []PlayerStats{}
	for rows.Next() {
		var s PlayerStats
		if err := rows.Scan(&s.Username, &s.Wins, &s.Losses, &s.Draws); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}
