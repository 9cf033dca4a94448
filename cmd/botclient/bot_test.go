package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/lang"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/game/session"
	"github.com/wricardo/typing-arena/logger"
	wshub "github.com/wricardo/typing-arena/transport/websocket"
)

func createTestConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:          "Bot Test",
		Description:   "Two humans on a 7x7 torus",
		CoordSystem:   grid.Euclid2,
		Dimensions:    grid.Dimensions{Height: 7, Width: 7},
		Lang:          engine.LangConfig{ID: lang.EnglishLower, WeightExaggeration: 1},
		Balancing:     string(lang.PolicyWeight),
		StartHealth:   3,
		HealthOnFloor: 0,
		BoostCost:     1,
		Teams: []engine.TeamConfig{
			{Name: "Red", Humans: 1},
			{Name: "Blue", Humans: 1},
		},
	}
}

// wanderer never chases or flees, so every move is a plain step
var wanderer = engine.ChaserParams{MovesPerSecond: 50, HealthReserve: 3}

// newMirrorBot builds a connectionless bot that mirrors a fresh manager
func newMirrorBot(t *testing.T) (*Bot, *engine.Manager) {
	t.Helper()
	m, err := engine.NewManager(createTestConfig(),
		engine.WithSeed(3),
		engine.WithScheduler(engine.NewManualScheduler()),
		engine.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	mirror, err := engine.NewMirror(m.Setup("mirror"))
	if err != nil {
		t.Fatalf("Failed to build mirror: %v", err)
	}
	mirror.SetLogger(logger.Discard())
	mirror.ApplyReset(m.Snapshot())

	b := &Bot{name: "test", params: wanderer, boostCost: 1, log: logger.Discard(), game: mirror, me: 0}
	return b, m
}

func frame(t *testing.T, event string, payload any) protocol.Frame {
	t.Helper()
	data, err := protocol.Encode(event, payload)
	if err != nil {
		t.Fatalf("Failed to encode %s: %v", event, err)
	}
	f, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("Failed to decode %s: %v", event, err)
	}
	return f
}

// stepUntilMove retries while the wanderer happens to pick its own tile
func stepUntilMove(b *Bot) *protocol.Req {
	for i := 0; i < 50; i++ {
		if req := b.step(); req != nil {
			return req
		}
	}
	return nil
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		name      string
		serverURL string
		want      string
		wantErr   bool
	}{
		{"http", "http://localhost:8080", "ws://localhost:8080/ws?game=abc", false},
		{"https with trailing slash", "https://arena.example.com/", "wss://arena.example.com/ws?game=abc", false},
		{"path prefix", "http://host/arena", "ws://host/arena/ws?game=abc", false},
		{"unsupported scheme", "ftp://host", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wsURL(tt.serverURL, "abc")
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestBot_HandleFrames(t *testing.T) {
	b, m := newMirrorBot(t)

	done, err := b.handle(frame(t, protocol.EventStatus, protocol.StatusChange{Status: protocol.StatusPlaying}))
	if err != nil || done {
		t.Fatalf("Expected status frame to apply, got done=%v err=%v", done, err)
	}
	if b.game.Status != protocol.StatusPlaying {
		t.Errorf("Expected mirror status playing, got %s", b.game.Status)
	}

	snap := m.Snapshot()
	if _, err := b.handle(frame(t, protocol.EventReset, snap)); err != nil {
		t.Fatalf("Reset frame failed: %v", err)
	}
	if b.game.Players[0].Coord != snap.PlayerCoords[0] {
		t.Errorf("Expected player at %d after reset, got %d", snap.PlayerCoords[0], b.game.Players[0].Coord)
	}

	if _, err := b.handle(frame(t, "mystery", nil)); err != nil {
		t.Errorf("Expected unknown frames to be ignored, got %v", err)
	}

	standings := []protocol.Standing{
		{TeamID: 0, Name: "Red", ElimOrder: 0, Rank: 1},
		{TeamID: 1, Name: "Blue", ElimOrder: 1, Rank: 2},
	}
	done, err = b.handle(frame(t, protocol.EventOver, protocol.Over{Standings: standings}))
	if err != nil {
		t.Fatalf("Over frame failed: %v", err)
	}
	if !done {
		t.Error("Expected over frame to finish the bot")
	}
	if got := b.Standings(); len(got) != 2 || got[0].Name != "Red" {
		t.Errorf("Expected Red first, got %+v", got)
	}
}

func TestBot_StepWaitsForAck(t *testing.T) {
	b, _ := newMirrorBot(t)

	if req := b.step(); req != nil {
		t.Fatalf("Expected no move while paused, got %+v", req)
	}

	b.game.Status = protocol.StatusPlaying
	req := stepUntilMove(b)
	if req == nil {
		t.Fatal("Expected a move while playing")
	}
	if req.PlayerID != 0 || req.PlayerNow != 0 {
		t.Errorf("Expected request for player 0 at counter 0, got %+v", req)
	}
	if again := b.step(); again != nil {
		t.Errorf("Expected no second request in flight, got %+v", again)
	}

	rejection := protocol.Res{PlayerID: 0, PlayerNow: 0, RejectID: 1}
	if _, err := b.handle(frame(t, protocol.EventMove, rejection)); err != nil {
		t.Fatalf("Move frame failed: %v", err)
	}
	if next := stepUntilMove(b); next == nil {
		t.Error("Expected a new request once the rejection arrived")
	}
}

func TestBot_StepSkipsEliminated(t *testing.T) {
	b, _ := newMirrorBot(t)
	b.game.Status = protocol.StatusPlaying
	b.game.Players[0].Eliminated = true

	if req := b.step(); req != nil {
		t.Errorf("Expected no move for an eliminated player, got %+v", req)
	}
}

func TestBot_PlaysOverWebsocket(t *testing.T) {
	sessions := session.NewManager(
		engine.WithSeed(11),
		engine.WithScheduler(engine.NewManualScheduler()),
		engine.WithLogger(logger.Discard()))
	t.Cleanup(sessions.StopAll)

	sess, err := sessions.Create("botgame", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	hub := wshub.NewHub(sessions)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("game"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, server.URL, sess.ID)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	b := NewBot(conn, "robo", wanderer, 1)
	b.log = logger.Discard()
	if err := b.Join(); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if b.me != 0 {
		t.Errorf("Expected the first slot, got %d", b.me)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- b.Run(ctx) }()

	if err := sess.Game.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		var score int
		sess.Game.View(func(g *engine.Game) {
			if p, ok := g.Player(0); ok {
				score = p.Score
			}
		})
		if score > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the bot to score")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Run to stop after cancel")
	}
}

func TestBot_JoinRefusedWhenFull(t *testing.T) {
	sessions := session.NewManager(
		engine.WithScheduler(engine.NewManualScheduler()),
		engine.WithLogger(logger.Discard()))
	t.Cleanup(sessions.StopAll)

	sess, err := sessions.Create("fullgame", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	for _, name := range []string{"a", "b"} {
		if _, err := sess.Game.Claim(name); err != nil {
			t.Fatalf("Claim %s failed: %v", name, err)
		}
	}

	hub := wshub.NewHub(sessions)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("game"))
	}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	conn, err := Dial(context.Background(), server.URL, sess.ID)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	b := NewBot(conn, "late", wanderer, 1)
	b.log = logger.Discard()
	if err := b.Join(); err == nil {
		t.Error("Expected join to be refused in a full game")
	}
}
