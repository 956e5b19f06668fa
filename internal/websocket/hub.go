package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"dropfour/internal/bot"
	"dropfour/internal/game"
	"dropfour/internal/kafka"
	"dropfour/internal/logx"
	"dropfour/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// EngineFactory builds the engine that plays side in a new game.
type EngineFactory func(side game.Player, level bot.Level) (*bot.Engine, error)

// BotMove is published after every engine move.
type BotMove struct {
	GameID string
	Ply    int
	Board  game.Board
	Result bot.Result
}

type Client struct {
	ID       string
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Username string
	GameID   string
	Side     game.Player

	engine *bot.Engine
}

type Hub struct {
	clients     map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	mu          sync.RWMutex
	registry    *session.Registry
	newEngine   EngineFactory
	onGameEvent func(string, interface{})
	logger      logx.Logger
}

type Message struct {
	Type     string      `json:"type"`
	Data     interface{} `json:"data,omitempty"`
	Username string      `json:"username,omitempty"`
	Column   *int        `json:"column,omitempty"`
	First    *bool       `json:"first,omitempty"`
	Level    string      `json:"level,omitempty"`
	Error    string      `json:"error,omitempty"`
}

func NewHub(registry *session.Registry, newEngine EngineFactory, logger logx.Logger) *Hub {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		registry:   registry,
		newEngine:  newEngine,
		logger:     logger,
	}
}

func (h *Hub) SetGameEventCallback(callback func(string, interface{})) {
	h.onGameEvent = callback
}

func (h *Hub) emit(eventType string, data interface{}) {
	if h.onGameEvent != nil {
		h.onGameEvent(eventType, data)
	}
}

// Run owns client registration. Games outlive their connection so a player
// can resume after reconnecting; idle games are reaped by the registry.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debugf("client registered: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Debugf("client unregistered: %s (username: %s)", client.ID, client.Username)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			return
		}
	}
}

// leave unregisters c, or does nothing once Run has returned.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) HandleStart(client *Client, username string, humanFirst bool, levelName string) {
	if username == "" {
		h.sendError(client, "username is required")
		return
	}
	level, err := bot.ParseLevel(levelName)
	if err != nil {
		h.sendError(client, err.Error())
		return
	}

	gameState, err := h.registry.Create(username, humanFirst)
	resumed := false
	switch {
	case errors.Is(err, session.ErrReservedName):
		h.sendError(client, err.Error())
		return
	case errors.Is(err, session.ErrAlreadyPlaying):
		gameState, _ = h.registry.GetByPlayer(username)
		resumed = gameState != nil
	}
	if gameState == nil {
		h.sendError(client, "could not start game")
		return
	}

	side := gameState.PlayerOf(username)
	engine, err := h.newEngine(side.Opponent(), level)
	if err != nil {
		h.logger.Errorf("engine for game %s: %v", gameState.ID, err)
		h.sendError(client, "engine unavailable")
		return
	}

	client.Username = username
	client.GameID = gameState.ID
	client.Side = side
	client.engine = engine

	h.send(client, Message{
		Type: "game_start",
		Data: map[string]interface{}{
			"gameId":   gameState.ID,
			"player1":  gameState.Player1,
			"player2":  gameState.Player2,
			"side":     side,
			"board":    gameState.Board.String(),
			"yourTurn": gameState.CurrentTurn == side,
			"resumed":  resumed,
		},
	})
	if !resumed {
		h.emit(kafka.EventGameStarted, gameState)
	}

	if gameState.CurrentTurn != side && !gameState.IsFinished {
		h.playBot(client, gameState)
	}
}

func (h *Hub) HandleMove(client *Client, column int) {
	if client.GameID == "" || client.engine == nil {
		h.sendError(client, "No active game found")
		return
	}

	move, gameState, err := h.registry.Play(client.GameID, column, client.Side)
	if err != nil {
		h.sendError(client, err.Error())
		return
	}
	h.announceMove(client, gameState, move, client.Username)

	if gameState.IsFinished {
		h.handleGameEnd(client, gameState)
		return
	}
	h.playBot(client, gameState)
}

// playBot searches on gameState, a private copy, and commits the reply
// through the registry.
func (h *Hub) playBot(client *Client, gameState *game.GameState) {
	before := gameState.Board
	res, err := client.engine.Search(context.Background(), before)
	if err != nil {
		h.logger.Errorf("engine failed in game %s: %v", gameState.ID, err)
		h.sendError(client, "engine failed to move")
		return
	}

	move, after, err := h.registry.Play(gameState.ID, res.Column, client.engine.Side())
	if err != nil {
		h.logger.Errorf("engine move %d rejected in game %s: %v", res.Column, gameState.ID, err)
		h.sendError(client, "engine failed to move")
		return
	}

	h.logger.Infof("game %s: engine played column %d (depth=%d score=%d nodes=%d elapsed=%s)",
		after.ID, res.Column, res.Depth, res.Score, res.Nodes, res.Elapsed)
	h.emit(kafka.EventBotMove, &BotMove{
		GameID: after.ID,
		Ply:    len(after.Moves),
		Board:  before,
		Result: res,
	})
	h.announceMove(client, after, move, bot.BotUsername)

	if after.IsFinished {
		h.handleGameEnd(client, after)
	}
}

func (h *Hub) announceMove(client *Client, gameState *game.GameState, move *game.Move, by string) {
	h.emit(kafka.EventMoveMade, map[string]interface{}{
		"gameId": gameState.ID,
		"player": by,
		"move":   move,
	})
	h.send(client, Message{
		Type: "move",
		Data: map[string]interface{}{
			"row":    move.Row,
			"column": move.Column,
			"player": move.Player,
			"board":  gameState.Board.String(),
		},
	})
}

func (h *Hub) handleGameEnd(client *Client, gameState *game.GameState) {
	h.send(client, Message{
		Type: "game_over",
		Data: map[string]interface{}{
			"winner": gameState.Winner,
			"board":  gameState.Board.String(),
		},
	})
	h.logger.Infof("game %s finished, winner: %s", gameState.ID, gameState.Winner)
	h.emit(kafka.EventGameEnded, gameState)
}

func (h *Hub) send(client *Client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("encode %s message: %v", msg.Type, err)
		return
	}
	select {
	case client.Send <- payload:
	default:
		h.logger.Warnf("send buffer full for client %s, dropping %s", client.ID, msg.Type)
	}
}

func (h *Hub) sendError(client *Client, message string) {
	h.send(client, Message{Type: "error", Error: message})
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.logger.Warnf("client %s read error: %v", c.ID, err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			c.Hub.logger.Debugf("error unmarshaling message from %s: %v", c.ID, err)
			c.Hub.sendError(c, "malformed message")
			continue
		}

		switch msg.Type {
		case "start":
			humanFirst := msg.First == nil || *msg.First
			c.Hub.HandleStart(c, msg.Username, humanFirst, msg.Level)
		case "move":
			if msg.Column == nil {
				c.Hub.sendError(c, "column is required")
				continue
			}
			c.Hub.HandleMove(c, *msg.Column)
		default:
			c.Hub.sendError(c, "unknown message type "+msg.Type)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := &Client{
		ID:   uuid.New().String(),
		Hub:  hub,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
