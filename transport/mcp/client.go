package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/lang"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Typing Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Typing Arena - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Move across a grid by typing the label shown on a neighboring tile. Stay alive
while chasers hunt you and outlast the other teams.

AVAILABLE TOOLS:
- create_game: Create a game from a preset
- list_games: List running games
- join_game: Claim a free human slot and get your player id
- leave_game: Forfeit your slot
- game_state: Board, players, teams and standings
- type_keys: Type keystrokes for your player (each completed label is a move)
- pause_game / resume_game / reset_game: Status transitions
- list_configs: Available presets
- list_languages: Built-in label languages
- game_instructions: Full rules`),
	)

	// Register all tools
	c.registerTools()
}

func gameIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Game ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Game management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_game",
		Description: "Create a new game from a preset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Preset to use, for example classic, hive or duel (optional)",
				},
			},
		},
	}, c.handleCreateGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List running games",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"paused", "playing", "over"},
					"description": "Only list games in this status (optional)",
				},
			},
		},
	}, c.handleListGames)

	// Players
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Claim a free human slot in a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Display name for your player",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleJoinGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_game",
		Description: "Forfeit a claimed slot. The player is eliminated.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
				"player_id": map[string]interface{}{
					"type":        "integer",
					"description": "Your player id from join_game",
				},
			},
			Required: []string{"game_id", "player_id"},
		},
	}, c.handleLeaveGame)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board, players, teams and standings of a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
			},
			Required: []string{"game_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "type_keys",
		Description: "Type keystrokes for a player. Typing a neighbor's full label moves onto it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
				"player_id": map[string]interface{}{
					"type":        "integer",
					"description": "Your player id from join_game",
				},
				"keys": map[string]interface{}{
					"type":        "string",
					"description": "Keystrokes to type, in order",
				},
				"boost": map[string]interface{}{
					"type":        "boolean",
					"description": "Boost: jump two tiles in a straight line, costs health",
				},
			},
			Required: []string{"game_id", "player_id", "keys"},
		},
	}, c.handleTypeKeys)

	for _, t := range []struct {
		name, description, path string
	}{
		{"pause_game", "Pause a playing game", "pause"},
		{"resume_game", "Start or resume a paused game", "resume"},
	} {
		path := t.path
		c.mcpServer.AddTool(mcp.Tool{
			Name:        t.name,
			Description: t.description,
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"game_id": gameIDProperty(),
				},
				Required: []string{"game_id"},
			},
		}, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return c.handleTransition(ctx, request, path)
		})
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start a new round with fresh labels and spawns. The game is paused afterwards.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
			},
			Required: []string{"game_id"},
		},
	}, c.handleReset)

	// Reference
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_languages",
		Description: "List the built-in label languages",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLanguages)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	endpoint := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, endpoint, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool call arguments as a map
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func gamePath(gameID string, parts ...string) string {
	p := "/api/games/" + url.PathEscape(gameID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Tool handlers

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var game service.GameInfo
	if err := c.apiCall("POST", "/api/games", body, &game); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created game: %s\nConfig: %s\n\n%s", game.ID, game.ConfigName, formatGameInfo(&game))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path := "/api/games"
	if status, _ := args["status"].(string); status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var response struct {
		Count int                `json:"count"`
		Games []service.GameInfo `json:"games"`
	}
	if err := c.apiCall("GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Games (%d):\n\n", response.Count)
	for _, g := range response.Games {
		result += fmt.Sprintf("- %s (Config: %s, Status: %s, Free slots: %d, Created: %s)\n",
			g.ID, g.ConfigName, g.Status, g.FreeSlots, g.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleJoinGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	name, _ := args["name"].(string)

	var joined service.JoinResult
	if err := c.apiCall("POST", gamePath(gameID, "join"), map[string]string{"name": name}, &joined); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	team := fmt.Sprintf("%d", joined.TeamID)
	for _, t := range joined.Setup.Teams {
		if t.ID == joined.TeamID {
			team = t.Name
		}
	}
	result := fmt.Sprintf("Joined game %s as player %d (team %s)\n", gameID, joined.PlayerID, team)
	result += fmt.Sprintf("Grid: %s %s, language %s\n", joined.Setup.CoordSystem, joined.Setup.Dimensions, joined.Setup.Lang)
	result += fmt.Sprintf("Status: %s\n", joined.Snapshot.Status)
	result += "\nUse type_keys with this player_id to move. Call resume_game to start play."
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleLeaveGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	playerID, ok := intArg(args, "player_id")
	if !ok {
		return mcp.NewToolResultError("player_id is required"), nil
	}

	var response map[string]string
	if err := c.apiCall("POST", gamePath(gameID, "leave"), map[string]int{"player_id": playerID}, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response["message"]), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)

	var state service.GameState
	if err := c.apiCall("GET", gamePath(gameID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleTypeKeys(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	keys, _ := args["keys"].(string)
	boost, _ := args["boost"].(bool)
	playerID, ok := intArg(args, "player_id")
	if !ok {
		return mcp.NewToolResultError("player_id is required"), nil
	}

	body := map[string]interface{}{
		"player_id": playerID,
		"keys":      keys,
		"boost":     boost,
	}

	var report engine.TypeReport
	if err := c.apiCall("POST", gamePath(gameID, "type"), body, &report); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTypeReport(playerID, &report)), nil
}

func (c *Client) handleTransition(ctx context.Context, request mcp.CallToolRequest, verb string) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)

	var response struct {
		Message string          `json:"message"`
		Status  protocol.Status `json:"status"`
	}
	if err := c.apiCall("POST", gamePath(gameID, verb), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\nStatus: %s", response.Message, response.Status)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)

	var response struct {
		Message  string                 `json:"message"`
		Snapshot protocol.ResetSnapshot `json:"snapshot"`
	}
	if err := c.apiCall("POST", gamePath(gameID, "reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\nStatus: %s\nPlayers placed: %d\n", response.Message,
		response.Snapshot.Status, len(response.Snapshot.PlayerCoords))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall("GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, config := range configs {
		result += formatConfigInfo(config)
	}

	return mcp.NewToolResultText(result), nil
}

// formatConfigInfo renders one preset listing entry
func formatConfigInfo(config service.ConfigInfo) string {
	compat := "compatible"
	if !config.Compatible {
		compat = "incompatible"
	}
	out := fmt.Sprintf("• %s (config_id: %s)\n  %s\n  Grid: %s %s, %d tiles, Players: %d\n  Language: %s, %s (capacity %d, threshold %d)\n",
		config.Name, config.ConfigID, config.Description, config.CoordSystem, config.Dimensions,
		config.Area, config.Players, config.Lang, compat, config.Capacity, config.Threshold)
	for _, p := range config.Problems {
		out += "  ❌ " + p + "\n"
	}
	return out + "\n"
}

func (c *Client) handleListLanguages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var langs []lang.Info
	if err := c.apiCall("GET", "/api/languages", nil, &langs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Languages:\n\n"
	for _, l := range langs {
		result += fmt.Sprintf("• %s (%s): %d characters\n", l.DisplayName, l.ID, l.Characters)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Typing Arena - Complete Instructions

GAME OBJECTIVE:
Every team tries to be the last one standing. Chaser bots hunt human players;
a team is out once all of its members are eliminated. Immortal teams never
fall but also never win.

HOW MOVEMENT WORKS:
• Every tile shows a character and hides a key sequence (its label)
• Type the full label of a neighboring tile to move onto it
• Labels around you never share a prefix, so each keystroke narrows the choice
• A keystroke that matches no neighbor rings the bell and clears your buffer
• Boost: with boost enabled the move jumps two tiles in a straight line and costs health

GRIDS:
• euclid2 - a square grid that wraps around at the edges, 8 neighbors per tile
• beehive - a hexagonal board, 6 neighbors per tile, no wrapping

HEALTH AND SCORE:
• Each accepted move scores one point
• Some tiles carry health pickups; stepping on one grants health
• Chasers move on their own timers and take health when they catch you

GAME STATUS:
• paused - the initial state and the state after reset; no moves are accepted
• playing - moves are accepted and chasers are active
• over - the standings are final; the game can no longer be reset

TOOL WORKFLOW:
1. list_configs, then create_game with a config_id
2. join_game to claim a slot and note your player_id
3. resume_game to start play
4. game_state to read the board and the labels around you
5. type_keys with the label of the tile you want to enter

TIPS:
• Read the board every few moves; labels change as tiles are relabeled
• A rejected move means someone else got there first, read the state and retry
• Typing several labels in one type_keys call chains moves

Good luck in the arena!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatGameInfo(game *service.GameInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status: %s\n", game.Status))
	sb.WriteString(fmt.Sprintf("Grid: %s %s\n", game.Setup.CoordSystem, game.Setup.Dimensions))
	sb.WriteString(fmt.Sprintf("Language: %s\n", game.Setup.Lang))
	sb.WriteString(fmt.Sprintf("Free slots: %d\n", game.FreeSlots))
	if len(game.Setup.Teams) > 0 {
		sb.WriteString("Teams:\n")
		for _, t := range game.Setup.Teams {
			line := fmt.Sprintf("  - %s", t.Name)
			if t.Immortal {
				line += " (immortal)"
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

func formatGameState(state *service.GameState) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Game %s\n", state.ID))
	switch state.Status {
	case protocol.StatusOver:
		sb.WriteString("🏁 GAME OVER\n")
	case protocol.StatusPaused:
		sb.WriteString("⏸ PAUSED\n")
	default:
		sb.WriteString("▶ PLAYING\n")
	}

	if state.Board != "" {
		sb.WriteString("\nBoard:\n")
		sb.WriteString(state.Board)
		if !strings.HasSuffix(state.Board, "\n") {
			sb.WriteString("\n")
		}
	}

	teams := make(map[int]string, len(state.Teams))
	for _, t := range state.Teams {
		teams[t.ID] = t.Name
	}

	sb.WriteString("\nPlayers:\n")
	for _, p := range state.Players {
		line := fmt.Sprintf("  [%d] %s (%s, %s) Health: %d Score: %d",
			p.ID, p.Name, teams[p.TeamID], p.Family, p.Health, p.Score)
		if p.Eliminated {
			line += " ✗ eliminated"
		}
		sb.WriteString(line + "\n")
	}

	if len(state.Standings) > 0 {
		sb.WriteString("\nStandings:\n")
		for _, s := range state.Standings {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", s.Rank, s.Name))
		}
	}

	return sb.String()
}

func formatTypeReport(playerID int, report *engine.TypeReport) string {
	var sb strings.Builder

	accepted, rejected := 0, 0
	for _, m := range report.Moves {
		if m.IsRejection() {
			rejected++
		} else {
			accepted++
		}
	}

	if accepted > 0 {
		sb.WriteString(fmt.Sprintf("✓ %d move(s) accepted\n", accepted))
	}
	if rejected > 0 {
		sb.WriteString(fmt.Sprintf("✗ %d move(s) rejected, the tile changed under you\n", rejected))
	}
	if accepted == 0 && rejected == 0 {
		sb.WriteString("No move completed\n")
	}
	if report.Bells > 0 {
		sb.WriteString(fmt.Sprintf("🔔 %d keystroke(s) matched no neighbor\n", report.Bells))
	}
	if report.Ignored > 0 {
		sb.WriteString(fmt.Sprintf("%d keystroke(s) ignored\n", report.Ignored))
	}

	var last *protocol.PlayerMod
	for _, m := range report.Moves {
		if mod, ok := m.Players[playerID]; ok {
			last = &mod
		}
	}
	if last != nil {
		sb.WriteString(fmt.Sprintf("Health: %d Score: %d\n", last.Health, last.Score))
	}
	if report.Position != "" {
		sb.WriteString(fmt.Sprintf("Position: %s\n", report.Position))
	}
	if report.Buffer != "" {
		sb.WriteString(fmt.Sprintf("Buffer: %q\n", report.Buffer))
	}
	return sb.String()
}
