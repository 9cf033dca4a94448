// Package mcp exposes the typing arena to AI agents over the Model Context
// Protocol.
//
// The Client registers MCP tools and proxies every call to the REST API, so
// an agent plays exactly the way an HTTP client would:
//   - create_game, list_games: game management
//   - join_game, leave_game: claim and forfeit human slots
//   - game_state: text board, players, teams and standings
//   - type_keys: keystrokes fed to the player's server-side operator
//   - pause_game, resume_game, reset_game: status transitions
//   - list_configs, list_languages, game_instructions: reference
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp, answered with GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
