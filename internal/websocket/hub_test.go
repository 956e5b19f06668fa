package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dropfour/internal/bot"
	"dropfour/internal/game"
	"dropfour/internal/kafka"
	"dropfour/internal/session"

	"github.com/gorilla/websocket"
)

type recordedEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordedEvents) add(eventType string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, eventType)
}

func (r *recordedEvents) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == eventType {
			n++
		}
	}
	return n
}

func shallowEngines(side game.Player, _ bot.Level) (*bot.Engine, error) {
	return bot.New(side, bot.WithMaxDepth(2))
}

func startServer(t *testing.T) (*websocket.Conn, *recordedEvents) {
	conn, events, _ := startServerWithRegistry(t)
	return conn, events
}

func startServerWithRegistry(t *testing.T) (*websocket.Conn, *recordedEvents, *session.Registry) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := session.NewRegistry(time.Minute, nil)
	hub := NewHub(registry, shallowEngines, nil)
	events := &recordedEvents{}
	hub.SetGameEventCallback(events.add)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		ServeWS(hub, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, events, registry
}

type reply struct {
	Type  string                 `json:"type"`
	Data  map[string]interface{} `json:"data"`
	Error string                 `json:"error"`
}

func readReply(t *testing.T, conn *websocket.Conn) reply {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var r reply
	if err := conn.ReadJSON(&r); err != nil {
		t.Fatalf("read: %v", err)
	}
	return r
}

func TestHumanMoveGetsEngineReply(t *testing.T) {
	conn, events := startServer(t)

	if err := conn.WriteJSON(map[string]interface{}{"type": "start", "username": "alice"}); err != nil {
		t.Fatal(err)
	}
	start := readReply(t, conn)
	if start.Type != "game_start" || start.Data["yourTurn"] != true {
		t.Fatalf("unexpected start reply: %+v", start)
	}

	if err := conn.WriteJSON(map[string]interface{}{"type": "move", "column": 3}); err != nil {
		t.Fatal(err)
	}
	human := readReply(t, conn)
	if human.Type != "move" || human.Data["column"] != float64(3) || human.Data["player"] != float64(game.Player1) {
		t.Fatalf("unexpected human move reply: %+v", human)
	}
	engine := readReply(t, conn)
	if engine.Type != "move" || engine.Data["player"] != float64(game.Player2) {
		t.Fatalf("unexpected engine move reply: %+v", engine)
	}

	if events.count(kafka.EventGameStarted) != 1 || events.count(kafka.EventBotMove) != 1 || events.count(kafka.EventMoveMade) != 2 {
		t.Fatalf("unexpected events: %v", events.types)
	}
}

func TestEngineMovesFirstWhenRequested(t *testing.T) {
	conn, _ := startServer(t)

	if err := conn.WriteJSON(map[string]interface{}{"type": "start", "username": "bob", "first": false}); err != nil {
		t.Fatal(err)
	}
	start := readReply(t, conn)
	if start.Type != "game_start" || start.Data["yourTurn"] != false {
		t.Fatalf("unexpected start reply: %+v", start)
	}
	engine := readReply(t, conn)
	if engine.Type != "move" || engine.Data["player"] != float64(game.Player1) || engine.Data["column"] != float64(3) {
		t.Fatalf("engine should open in the center: %+v", engine)
	}
}

func TestMoveWithoutGameIsRejected(t *testing.T) {
	conn, _ := startServer(t)

	if err := conn.WriteJSON(map[string]interface{}{"type": "move", "column": 2}); err != nil {
		t.Fatal(err)
	}
	r := readReply(t, conn)
	if r.Type != "error" || r.Error == "" {
		t.Fatalf("expected error reply, got %+v", r)
	}

	raw, _ := json.Marshal(map[string]string{"type": "dance"})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Type != "error" {
		t.Fatalf("expected error for unknown type, got %+v", r)
	}
}

func TestMoveWithoutColumnIsRejected(t *testing.T) {
	conn, _, registry := startServerWithRegistry(t)

	if err := conn.WriteJSON(map[string]interface{}{"type": "start", "username": "erin"}); err != nil {
		t.Fatal(err)
	}
	start := readReply(t, conn)
	gameID, _ := start.Data["gameId"].(string)

	if err := conn.WriteJSON(map[string]interface{}{"type": "move"}); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Type != "error" {
		t.Fatalf("expected error for a move without column, got %+v", r)
	}
	g, ok := registry.Get(gameID)
	if !ok || len(g.Moves) != 0 {
		t.Fatalf("a move without column must not be played: %+v", g)
	}

	if err := conn.WriteJSON(map[string]interface{}{"type": "move", "column": 0}); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Type != "move" || r.Data["column"] != float64(0) {
		t.Fatalf("column 0 should be playable: %+v", r)
	}
}

func TestEngineNameCannotBeUsedByHumans(t *testing.T) {
	conn, events := startServer(t)

	if err := conn.WriteJSON(map[string]interface{}{"type": "start", "username": bot.BotUsername}); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Type != "error" {
		t.Fatalf("expected error, got %+v", r)
	}
	if events.count(kafka.EventGameStarted) != 0 {
		t.Fatalf("no game should have started")
	}
}

func TestGamesCanBeReadWhileMovesArePlayed(t *testing.T) {
	conn, _, registry := startServerWithRegistry(t)

	if err := conn.WriteJSON(map[string]interface{}{"type": "start", "username": "frank"}); err != nil {
		t.Fatal(err)
	}
	readReply(t, conn)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			registry.Reap()
			for _, g := range registry.All() {
				if _, err := json.Marshal(g); err != nil {
					t.Error(err)
					return
				}
			}
		}
	}()

	for _, col := range []int{0, 6, 0} {
		if err := conn.WriteJSON(map[string]interface{}{"type": "move", "column": col}); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 2; i++ {
			if r := readReply(t, conn); r.Type != "move" {
				t.Fatalf("unexpected reply %+v", r)
			}
		}
	}
	close(stop)
	<-done
}

func TestLeaveAfterHubStopsDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(session.NewRegistry(time.Minute, nil), shallowEngines, nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	left := make(chan struct{})
	go func() {
		hub.leave(&Client{ID: "late"})
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(5 * time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}
}
