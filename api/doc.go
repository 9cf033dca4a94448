// Package api provides the HTTP REST API of the typing arena server.
//
// Endpoints:
//
// Games:
//   - POST /api/games - Create a game from a preset ({"config_id": "hive"})
//   - GET /api/games - List games (?sort=created|accessed, ?order=asc|desc, ?limit=N, ?status=playing)
//   - GET /api/games/{id} - Game info, setup and free slots
//   - DELETE /api/games/{id} - Stop a game and drop its websocket clients
//   - GET /api/games/{id}/state - Players, teams, standings and a text board
//
// Players:
//   - POST /api/games/{id}/join - Claim a human slot ({"name": "alice"})
//   - POST /api/games/{id}/leave - Forfeit a slot ({"player_id": 0})
//
// Play:
//   - POST /api/games/{id}/type - Feed keystrokes to a player's operator
//   - POST /api/games/{id}/move - Submit a raw movement request
//   - POST /api/games/{id}/pause, /resume, /reset - Status transitions
//
// Presets and languages:
//   - GET /api/configs, GET /api/configs/{name}, POST /api/configs
//   - GET /api/languages - Builtin sequence languages
//
// Operations:
//   - GET /ws?game={id} - Websocket mirror connection
//   - GET /metrics - Prometheus exposition
//   - GET /healthz - Liveness and game count
//
// Errors are returned as {"error": "..."}. Unknown games, presets and
// players map to 404, illegal transitions and protocol violations to 409,
// invalid presets to 400.
//
// Usage:
//
//	server := api.NewServer(gameService, websocket.NewHub(sessions))
//	http.ListenAndServe(":8080", server)
package api
