package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/game/service"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL + "/")

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	expectedResponse := map[string]interface{}{
		"id":     "ab12",
		"status": "paused",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expectedResponse)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall("GET", "/api/games/ab12", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}

	if response["id"] != expectedResponse["id"] {
		t.Errorf("Expected id %v, got %v", expectedResponse["id"], response["id"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall("GET", "/api/games", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "plain body", body: "Internal Server Error", wantMsg: "API error"},
		{name: "json error", body: `{"error":"no free slot"}`, wantMsg: "no free slot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL).apiCall("GET", "/api/games", nil, nil)
			if err == nil {
				t.Fatal("Expected error for HTTP 409 response")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected %q in error message, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestClient_createGame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/games" {
			t.Errorf("Expected POST /api/games, got %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["config_id"] != "hive" {
			t.Errorf("Expected config_id hive, got %q", body["config_id"])
		}

		resp := service.GameInfo{
			ID:         "game-123",
			ConfigName: "hive",
			Status:     protocol.StatusPaused,
			FreeSlots:  4,
			Setup: protocol.Setup{
				CoordSystem: grid.Beehive,
				Dimensions:  grid.Dimensions{Dash: 6, Bash: 6, Bosh: 6},
				Lang:        "hiragana",
				Teams:       []protocol.TeamInfo{{ID: 0, Name: "Amber"}, {ID: 2, Name: "Drones", Immortal: true}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateGame(context.Background(), callRequest("create_game", map[string]interface{}{"config_id": "hive"}))
	if err != nil {
		t.Fatalf("createGame failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"game-123", "beehive 6/6/6", "hiragana", "Free slots: 4", "Drones (immortal)"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_typeKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/games/ab12/type" {
			t.Errorf("Expected /api/games/ab12/type, got %s", r.URL.Path)
		}
		var body struct {
			PlayerID int    `json:"player_id"`
			Keys     string `json:"keys"`
			Boost    bool   `json:"boost"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.PlayerID != 1 || body.Keys != "ab" {
			t.Errorf("Unexpected body %+v", body)
		}

		report := engine.TypeReport{
			Moves: []protocol.Res{
				{PlayerID: 1, PlayerNow: 1, Players: map[int]protocol.PlayerMod{1: {Health: 3, Score: 1}}},
				{PlayerID: 1, PlayerNow: 2, RejectID: 1},
			},
			Bells:    1,
			Position: "(2,3)",
		}
		json.NewEncoder(w).Encode(report)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	args := map[string]interface{}{"game_id": "ab12", "player_id": float64(1), "keys": "ab"}
	result, err := client.handleTypeKeys(context.Background(), callRequest("type_keys", args))
	if err != nil {
		t.Fatalf("typeKeys failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"1 move(s) accepted", "1 move(s) rejected", "🔔 1", "Health: 3 Score: 1", "Position: (2,3)"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_typeKeys_MissingPlayer(t *testing.T) {
	client := NewClient("http://localhost:8080")
	result, err := client.handleTypeKeys(context.Background(), callRequest("type_keys", map[string]interface{}{"game_id": "ab12"}))
	if err != nil {
		t.Fatalf("typeKeys failed: %v", err)
	}
	if !result.IsError {
		t.Error("Expected an error result without player_id")
	}
}

func TestClient_transitions(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"message": "ok", "status": "playing"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	for _, verb := range []string{"resume", "pause"} {
		result, err := client.handleTransition(context.Background(), callRequest(verb+"_game", map[string]interface{}{"game_id": "g1"}), verb)
		if err != nil {
			t.Fatalf("%s failed: %v", verb, err)
		}
		if text := resultText(t, result); !strings.Contains(text, "Status: playing") {
			t.Errorf("Expected status in result, got: %s", text)
		}
	}
	if len(paths) != 2 || paths[0] != "/api/games/g1/resume" || paths[1] != "/api/games/g1/pause" {
		t.Errorf("Unexpected paths %v", paths)
	}
}

func TestFormatGameState(t *testing.T) {
	state := &service.GameState{
		ID:     "ab12",
		Status: protocol.StatusPlaying,
		Board:  "a b\nc d",
		Players: []engine.Player{
			{ID: 0, Name: "alice", TeamID: 0, Family: engine.Human, Health: 3, Score: 7},
			{ID: 1, Name: "chaser-1", TeamID: 1, Family: engine.Chaser, Eliminated: true},
		},
		Teams: []engine.Team{{ID: 0, Name: "Typists"}, {ID: 1, Name: "Chasers"}},
	}

	result := formatGameState(state)

	expectedFields := []string{
		"Game ab12",
		"▶ PLAYING",
		"a b\nc d",
		"[0] alice (Typists, human) Health: 3 Score: 7",
		"✗ eliminated",
	}
	for _, field := range expectedFields {
		if !strings.Contains(result, field) {
			t.Errorf("Expected field '%s' in formatted output, got: %s", field, result)
		}
	}
}

func TestFormatGameState_Over(t *testing.T) {
	state := &service.GameState{
		Status:    protocol.StatusOver,
		Standings: []protocol.Standing{{TeamID: 1, Name: "Blue", Rank: 1}, {TeamID: 0, Name: "Red", Rank: 2}},
	}

	result := formatGameState(state)

	if !strings.Contains(result, "🏁 GAME OVER") {
		t.Errorf("Expected '🏁 GAME OVER' in result, got: %s", result)
	}
	if !strings.Contains(result, "1. Blue") || !strings.Contains(result, "2. Red") {
		t.Errorf("Expected standings in result, got: %s", result)
	}
}

func TestFormatTypeReport_NoMove(t *testing.T) {
	result := formatTypeReport(0, &engine.TypeReport{Buffer: "a", Ignored: 2})

	for _, want := range []string{"No move completed", "2 keystroke(s) ignored", `Buffer: "a"`} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in result, got: %s", want, result)
		}
	}
}

func TestFormatConfigInfo(t *testing.T) {
	result := formatConfigInfo(service.ConfigInfo{
		ConfigID:    "blink",
		Name:        "Blink",
		CoordSystem: grid.Beehive,
		Dimensions:  grid.Dimensions{Dash: 3, Bash: 3, Bosh: 3},
		Lang:        "morse",
		Players:     2,
		Area:        19,
		Capacity:    2,
		Threshold:   18,
		Problems:    []string{"config validation: lang morse on beehive: ambiguity threshold"},
	})

	for _, want := range []string{"config_id: blink", "19 tiles", "morse, incompatible (capacity 2, threshold 18)", "❌ config validation"} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in result, got: %s", want, result)
		}
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callRequest("game_instructions", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	expectedContent := []string{
		"Typing Arena - Complete Instructions",
		"GAME OBJECTIVE:",
		"HOW MOVEMENT WORKS:",
		"GRIDS:",
		"HEALTH AND SCORE:",
		"GAME STATUS:",
		"TOOL WORKFLOW:",
		"Good luck in the arena!",
	}
	for _, content := range expectedContent {
		if !strings.Contains(text, content) {
			t.Errorf("Expected '%s' in instructions", content)
		}
	}
}

func TestArguments_NilSafe(t *testing.T) {
	args := arguments(mcp.CallToolRequest{})
	if args == nil {
		t.Fatal("Expected an empty map")
	}
	if _, ok := intArg(map[string]interface{}{"n": "x"}, "n"); ok {
		t.Error("Expected a string argument to be rejected")
	}
	if n, ok := intArg(map[string]interface{}{"n": float64(4)}, "n"); !ok || n != 4 {
		t.Errorf("Expected 4, got %d", n)
	}
}
