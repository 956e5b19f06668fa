package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dropfour/internal/bot"
	"dropfour/internal/game"
	"dropfour/internal/logx"

	"github.com/urfave/cli/v3"
)

func newLogger(c *cli.Command) *logx.Logx {
	lvl := c.String("log-level")
	if c.Bool("debug") {
		lvl = "debug"
	}
	return logx.New(lvl, true, os.Stderr)
}

// engineFor builds an engine for side from the shared search flags.
func engineFor(c *cli.Command, side game.Player, logger logx.Logger) (*bot.Engine, error) {
	level, err := bot.ParseLevel(c.String("level"))
	if err != nil {
		return nil, err
	}
	opts := []bot.Option{bot.WithLogger(logger)}
	if d := int(c.Int("max-depth")); d > 0 {
		opts = append(opts, bot.WithMaxDepth(d))
	}
	if c.Bool("no-cache") {
		opts = append(opts, bot.WithEvalCache(false))
	}
	return bot.ForLevel(side, level, c.Duration("budget"), opts...)
}

func main() {
	searchFlags := []cli.Flag{
		&cli.DurationFlag{
			Name:    "budget",
			Aliases: []string{"b"},
			Usage:   "time budget per move",
			Value:   bot.DefaultTimeBudget,
		},
		&cli.IntFlag{
			Name:  "max-depth",
			Usage: "depth cap for iterative deepening, 0 for none",
		},
		&cli.StringFlag{
			Name:  "level",
			Usage: "engine level: easy, medium or hard",
			Value: "hard",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "disable the leaf evaluation cache",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "log every completed depth",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level",
			Value: "warn",
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "dropfour",
		Usage: "time-bounded four-in-a-row engine",
		Commands: []*cli.Command{
			{
				Name:  "move",
				Usage: "pick a column for a position",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "board",
						Usage:    "six rows top first, '/' separated, '.' empty, '1' and '2' pieces",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "side",
						Usage: "player to move, 1 or 2",
						Value: 1,
					},
				}, searchFlags...),
				Action: func(ctx context.Context, c *cli.Command) error {
					logger := newLogger(c)
					defer logger.Sync()

					board, err := game.ParseBoard(c.String("board"))
					if err != nil {
						return err
					}
					engine, err := engineFor(c, game.Player(int(c.Int("side"))), logger)
					if err != nil {
						return err
					}
					res, err := engine.Search(ctx, board)
					if err != nil {
						return err
					}
					fmt.Printf("column %d\n", res.Column)
					fmt.Printf("depth %d score %d nodes %d cache_hits %d elapsed %s\n",
						res.Depth, res.Score, res.Nodes, res.CacheHits, res.Elapsed)
					return nil
				},
			},
			{
				Name:  "selfplay",
				Usage: "let the engine play both sides",
				Flags: searchFlags,
				Action: func(ctx context.Context, c *cli.Command) error {
					logger := newLogger(c)
					defer logger.Sync()

					first, err := engineFor(c, game.Player1, logger.With("side", 1))
					if err != nil {
						return err
					}
					second, err := engineFor(c, game.Player2, logger.With("side", 2))
					if err != nil {
						return err
					}
					_, err = selfPlay(ctx, os.Stdout, first, second, colorEnabled(os.Stdout))
					return err
				},
			},
			{
				Name:  "play",
				Usage: "play against the engine on the terminal",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "second",
						Usage: "let the engine open the game",
					},
				}, searchFlags...),
				Action: func(ctx context.Context, c *cli.Command) error {
					logger := newLogger(c)
					defer logger.Sync()

					side := game.Player2
					if c.Bool("second") {
						side = game.Player1
					}
					engine, err := engineFor(c, side, logger)
					if err != nil {
						return err
					}
					_, err = playLines(ctx, os.Stdin, os.Stdout, engine, colorEnabled(os.Stdout))
					return err
				},
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "dropfour: %v\n", err)
		os.Exit(1)
	}
}
