// Command botclient joins an arena game over its websocket and plays a human
// slot with the chaser brain. It keeps a local mirror of the game, applies
// every broadcast to it and sends one movement request at a time, waiting
// for the acknowledgment before the next.
//
// Usage:
//
//	botclient -game 1a2b3c4d
//	botclient -config classic -resume -mps 3
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/logger"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// postJSON sends body to the REST API and decodes the reply into result
func postJSON(serverURL, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resp, err := httpClient.Post(strings.TrimRight(serverURL, "/")+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("post %s: %s: %s", path, resp.Status, errResp["error"])
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// createGame starts a new game from a preset and returns its id
func createGame(serverURL, configID string) (string, error) {
	var game struct {
		ID string `json:"id"`
	}
	if err := postJSON(serverURL, "/api/games", map[string]string{"config_id": configID}, &game); err != nil {
		return "", err
	}
	return game.ID, nil
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	gameID := flag.String("game", "", "Game to join")
	configID := flag.String("config", "", "Create a new game from this preset when -game is empty")
	name := flag.String("name", "", "Player name (default bot-<random>)")
	resume := flag.Bool("resume", false, "Resume the game after joining")
	mps := flag.Float64("mps", 2, "Moves per second")
	fear := flag.Int("fear", 1, "Flee from healthier opponents this close")
	thirst := flag.Int("thirst", 6, "Chase opponents this close")
	reserve := flag.Int("reserve", 1, "Health kept back when boosting")
	boostCost := flag.Int("boost-cost", 1, "Health a boost costs in this game")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.Init(*logLevel, false)

	if *name == "" {
		*name = "bot-" + uuid.NewString()[:8]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *gameID == "" {
		if *configID == "" {
			log.Error("either -game or -config is required")
			os.Exit(2)
		}
		id, err := createGame(*serverURL, *configID)
		if err != nil {
			logger.Fatal("failed to create game", "error", err)
		}
		*gameID = id
		log.Info("created game", "game", id, "config", *configID)
	}

	conn, err := Dial(ctx, *serverURL, *gameID)
	if err != nil {
		logger.Fatal("failed to connect", "error", err)
	}

	params := engine.ChaserParams{
		FearDistance:        *fear,
		BloodThirstDistance: *thirst,
		MovesPerSecond:      *mps,
		HealthReserve:       *reserve,
	}
	bot := NewBot(conn, *name, params, *boostCost)
	if err := bot.Join(); err != nil {
		conn.Close()
		logger.Fatal("failed to join", "game", *gameID, "error", err)
	}

	if *resume {
		if err := postJSON(*serverURL, "/api/games/"+*gameID+"/resume", nil, nil); err != nil {
			log.Warn("resume failed", "error", err)
		}
	}

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped", "error", err)
	}
	log.Info("bot finished", "score", bot.Score())
}
