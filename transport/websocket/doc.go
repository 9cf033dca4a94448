// Package websocket carries the arena sync protocol to remote mirrors.
//
// Architecture:
//
// The Hub keeps one room per game. A room subscribes to its engine.Manager
// when the first client arrives and unsubscribes when the last one leaves.
// Every event the engine emits (move, reset, status, over) is encoded once
// and queued to each client of the room. A client whose buffer is full is
// dropped rather than allowed to stall the game.
//
// Message Protocol:
//
// Every websocket text message is one JSON array [event, payload]:
//   - Incoming: ["join", {"name": "alice"}], ["reset-req", {}], ["move", Req]
//   - Outgoing: ["joined", Joined], ["reset", ResetSnapshot], ["move", Res],
//     ["status", {"status": "playing"}], ["over", {"standings": [...]}],
//     ["error", {"message": "..."}]
//
// Moves are answered through the room broadcast, so the requester and every
// other mirror see the same Res in the same order. Malformed frames, moves
// for another player and stale request counters are protocol violations:
// the client gets an error frame and the connection is closed with 1008.
//
// Usage:
//
//	hub := websocket.NewHub(sessions)
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("game"))
//	})
//
// Connection Lifecycle:
//
// 1. Client connects with ?game=<id>
// 2. Connection registered with the game's room
// 3. Client joins (claims a human slot) or asks for a reset snapshot
// 4. Client sends moves, receives every Res of the game
// 5. Disconnection forfeits the claimed slot
package websocket
