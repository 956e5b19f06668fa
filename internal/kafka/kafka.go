package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dropfour/internal/bot"
	"dropfour/internal/game"
	"dropfour/internal/logx"

	"github.com/segmentio/kafka-go"
)

const (
	EventGameStarted = "game_started"
	EventMoveMade    = "move_made"
	EventBotMove     = "bot_move"
	EventGameEnded   = "game_ended"
)

type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// BotMoveEvent carries the search statistics of one engine decision.
type BotMoveEvent struct {
	GameID    string `json:"gameId"`
	Ply       int    `json:"ply"`
	Board     string `json:"board"`
	Column    int    `json:"column"`
	Depth     int    `json:"depth"`
	Score     int    `json:"score"`
	Nodes     int64  `json:"nodes"`
	ElapsedMs int64  `json:"elapsedMs"`
}

func NewBotMoveEvent(gameID string, ply int, board game.Board, res bot.Result) BotMoveEvent {
	return BotMoveEvent{
		GameID:    gameID,
		Ply:       ply,
		Board:     board.String(),
		Column:    res.Column,
		Depth:     res.Depth,
		Score:     res.Score,
		Nodes:     res.Nodes,
		ElapsedMs: res.Elapsed.Milliseconds(),
	}
}

type Producer struct {
	writer *kafka.Writer
	logger logx.Logger
}

// NewProducer returns a disabled producer when enabled is false; its
// ProduceEvent drops events silently.
func NewProducer(enabled bool, broker, topic string, logger logx.Logger) *Producer {
	if logger == nil {
		logger = logx.Nop()
	}
	if !enabled {
		logger.Warnf("kafka disabled or not configured")
		return &Producer{logger: logger}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}

	logger.Infof("kafka producer initialized for %s topic %s", broker, topic)
	return &Producer{writer: writer, logger: logger}
}

func encodeEvent(eventType string, data interface{}, at time.Time) (kafka.Message, error) {
	value, err := json.Marshal(Event{Type: eventType, Timestamp: at.UTC(), Data: data})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return kafka.Message{
		Key:   []byte(eventType),
		Value: value,
		Time:  at,
	}, nil
}

func (p *Producer) ProduceEvent(ctx context.Context, eventType string, data interface{}) error {
	if p.writer == nil {
		return nil
	}

	msg, err := encodeEvent(eventType, data, time.Now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Errorf("error producing kafka event %s: %v", eventType, err)
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
