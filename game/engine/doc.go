// Package engine provides the game logic of the typing arena.
//
// The engine package implements:
//   - Player and team records with elimination ordering
//   - The mirror (Game) that applies authoritative results
//   - The authoritative Manager that admits requests one at a time
//   - Keyboard operators that turn typed sequences into move requests
//   - Chaser bots driven by a cancelable scheduler
//   - Preset loading and validation
//
// Core Types:
//
// Game is a mirror of one arena. Every participant keeps one, and the
// Manager keeps its own, so a result is applied the same way everywhere
// through Commit. Manager wraps the authoritative mirror with a request
// inbox, the sequence balancer and the status state machine
// (PAUSED, PLAYING, OVER). Operator buffers keystrokes for one player and
// emits a protocol.Req when the buffer names exactly one neighboring tile.
//
// Usage:
//
//	m, err := engine.NewManager(engine.DefaultGameConfig(), engine.WithSeed(1))
//	if err != nil {
//		log.Fatal(err)
//	}
//	go m.Run(ctx)
//
//	unsubscribe := m.Subscribe(func(event string, payload any) {
//		hub.Broadcast(event, payload)
//	})
//	defer unsubscribe()
//
//	_ = m.Resume()
//	report, err := m.Type(ctx, 0, "e", false)
//
// Game Rules:
//
// A player moves by typing the sequence shown on a neighboring tile. The
// server relabels the destination so that no two tiles reachable from a
// common tile share a prefix, which keeps every typed sequence
// unambiguous. Moving onto health picks it up; a boost skips one tile at a
// health cost. A team is eliminated when all of its members are, and the
// game ends once at most one team is left standing.
package engine
