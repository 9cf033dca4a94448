// Package service provides the business logic layer of the typing arena.
//
// The service package implements:
//   - Multi-game management
//   - Configuration listing, loading and saving
//   - Slot claiming and forfeits
//   - Keystroke and raw request submission
//   - Status control (pause, resume, reset)
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles game creation, retrieval, and lifecycle.
// ConfigManager manages preset loading and validation.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the engine. Each game is an engine.Manager with its own request loop,
// created and stopped by the session manager.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateGame(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	joined, err := gameService.Join(ctx, info.ID, "alice")
//	_ = gameService.Resume(ctx, info.ID)
//	report, err := gameService.Type(ctx, info.ID, joined.PlayerID, "e", false)
package service
