package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dropfour/internal/bot"
)

const (
	MaxRequestBudget = 10 * time.Second

	// DefaultEvalCacheSize bounds the per-search cache of server engines,
	// which may run once per live game at the same time.
	DefaultEvalCacheSize = 1 << 16
)

type Config struct {
	Port             string
	DatabaseURL      string
	KafkaEnabled     bool
	KafkaBroker      string
	KafkaTopic       string
	BotTimeBudget    time.Duration
	BotMaxDepth      int
	BotLevel         bot.Level
	BotEvalCacheSize int
	LogLevel         string
	LogConsole       bool
	MatchIdleTimeout time.Duration
}

func Default() Config {
	return Config{
		Port:             "8080",
		KafkaBroker:      "localhost:9092",
		KafkaTopic:       "game-events",
		BotTimeBudget:    bot.DefaultTimeBudget,
		BotLevel:         bot.LevelHard,
		BotEvalCacheSize: DefaultEvalCacheSize,
		LogLevel:         "info",
		MatchIdleTimeout: 30 * time.Minute,
	}
}

// Load reads the environment on top of Default. Unset variables keep their
// defaults; malformed values are reported.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup("PORT"); ok && v != "" {
		cfg.Port = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookup("KAFKA_ENABLED"); ok {
		cfg.KafkaEnabled = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v, ok := lookup("KAFKA_BROKER"); ok && v != "" {
		cfg.KafkaBroker = v
	}
	if v, ok := lookup("KAFKA_TOPIC"); ok && v != "" {
		cfg.KafkaTopic = v
	}
	if v, ok := lookup("BOT_TIME_BUDGET"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("BOT_TIME_BUDGET: %w", err)
		}
		if d <= 0 || d > MaxRequestBudget {
			return cfg, fmt.Errorf("BOT_TIME_BUDGET must be in (0, %s], got %s", MaxRequestBudget, d)
		}
		cfg.BotTimeBudget = d
	}
	if v, ok := lookup("BOT_MAX_DEPTH"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("BOT_MAX_DEPTH must be a non-negative integer, got %q", v)
		}
		cfg.BotMaxDepth = n
	}
	if v, ok := lookup("BOT_LEVEL"); ok && v != "" {
		lvl, err := bot.ParseLevel(v)
		if err != nil {
			return cfg, fmt.Errorf("BOT_LEVEL: %w", err)
		}
		cfg.BotLevel = lvl
	}
	if v, ok := lookup("BOT_EVAL_CACHE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("BOT_EVAL_CACHE_SIZE must be a non-negative integer, got %q", v)
		}
		cfg.BotEvalCacheSize = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_CONSOLE"); ok {
		cfg.LogConsole = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v, ok := lookup("MATCH_IDLE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("MATCH_IDLE_TIMEOUT: %w", err)
		}
		cfg.MatchIdleTimeout = d
	}
	return cfg, nil
}

// EngineOptions turns the bot settings into engine options.
func (c Config) EngineOptions() []bot.Option {
	return append(c.BotLevel.Options(c.BotTimeBudget), c.SearchOptions()...)
}

// SearchOptions are the level independent settings: depth cap and cache
// size. A zero cache size disables the cache.
func (c Config) SearchOptions() []bot.Option {
	var opts []bot.Option
	if c.BotMaxDepth > 0 {
		opts = append(opts, bot.WithMaxDepth(c.BotMaxDepth))
	}
	if c.BotEvalCacheSize > 0 {
		opts = append(opts, bot.WithEvalCacheSize(c.BotEvalCacheSize))
	} else {
		opts = append(opts, bot.WithEvalCache(false))
	}
	return opts
}
