package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dropfour/internal/api"
	"dropfour/internal/bot"
	"dropfour/internal/config"
	"dropfour/internal/database"
	"dropfour/internal/game"
	"dropfour/internal/kafka"
	"dropfour/internal/logx"
	"dropfour/internal/session"
	"dropfour/internal/websocket"
)

const (
	shutdownTimeout = 10 * time.Second
	reapInterval    = time.Minute
	eventTimeout    = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.New("error", true, nil).Errorf("invalid configuration: %v", err)
		os.Exit(1)
	}

	logger := logx.New(cfg.LogLevel, cfg.LogConsole, nil)
	defer logger.Sync()
	logger.Infof("starting dropfour server: level=%s budget=%s max_depth=%d",
		cfg.BotLevel, cfg.BotTimeBudget, cfg.BotMaxDepth)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, cfg.DatabaseURL, logger.With("component", "database"))
	if err != nil {
		logger.Errorf("failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Initialize(ctx); err != nil {
		logger.Errorf("failed to initialize database: %v", err)
		os.Exit(1)
	}

	producer := kafka.NewProducer(cfg.KafkaEnabled, cfg.KafkaBroker, cfg.KafkaTopic, logger.With("component", "kafka"))
	defer producer.Close()

	registry := session.NewRegistry(cfg.MatchIdleTimeout, logger.With("component", "session"))
	reaperStop := make(chan struct{})
	defer close(reaperStop)
	go registry.RunReaper(reapInterval, reaperStop)

	engineLogger := logger.With("component", "bot")
	newEngine := func(side game.Player, level bot.Level) (*bot.Engine, error) {
		opts := append(cfg.SearchOptions(), bot.WithLogger(engineLogger))
		return bot.ForLevel(side, level, cfg.BotTimeBudget, opts...)
	}

	hub := websocket.NewHub(registry, newEngine, logger.With("component", "websocket"))
	hub.SetGameEventCallback(func(eventType string, data interface{}) {
		evCtx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()

		switch ev := data.(type) {
		case *websocket.BotMove:
			if err := producer.ProduceEvent(evCtx, eventType, kafka.NewBotMoveEvent(ev.GameID, ev.Ply, ev.Board, ev.Result)); err != nil {
				logger.Warnf("failed to produce %s event: %v", eventType, err)
			}
			if err := db.SaveBotMove(evCtx, ev.GameID, ev.Ply, ev.Board, ev.Result); err != nil {
				logger.Warnf("failed to save bot move for game %s: %v", ev.GameID, err)
			}
			return
		case *game.GameState:
			if eventType == kafka.EventGameEnded {
				if err := db.SaveGame(evCtx, ev); err != nil {
					logger.Warnf("failed to save game %s: %v", ev.ID, err)
				}
			}
		}
		if err := producer.ProduceEvent(evCtx, eventType, data); err != nil {
			logger.Warnf("failed to produce %s event: %v", eventType, err)
		}
	})
	go hub.Run(ctx)

	apiServer := &api.Server{
		Hub:           hub,
		Registry:      registry,
		Leaderboard:   db,
		DefaultBudget: cfg.BotTimeBudget,
		MaxBudget:     config.MaxRequestBudget,
		EngineOptions: append(cfg.EngineOptions(), bot.WithLogger(engineLogger)),
		Logger:        logger.With("component", "api"),
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("server listening on http://0.0.0.0:%s (websocket at /ws)", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
