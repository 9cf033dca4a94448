package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/typing-arena/game/config"
	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/game/service"
	"github.com/wricardo/typing-arena/game/session"
	"github.com/wricardo/typing-arena/logger"
	"github.com/wricardo/typing-arena/metrics"
	"github.com/wricardo/typing-arena/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	log     *slog.Logger
	started time.Time
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logger.Get().With("component", "api"),
		started: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Game management
	api.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleDeleteGame).Methods("DELETE")

	// Players
	api.HandleFunc("/games/{id}/join", s.handleJoin).Methods("POST")
	api.HandleFunc("/games/{id}/leave", s.handleLeave).Methods("POST")

	// Game operations
	api.HandleFunc("/games/{id}/type", s.handleType).Methods("POST")
	api.HandleFunc("/games/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/games/{id}/pause", s.handlePause).Methods("POST")
	api.HandleFunc("/games/{id}/resume", s.handleResume).Methods("POST")
	api.HandleFunc("/games/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/games/{id}/state", s.handleGetGameState).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/languages", s.handleListLanguages).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Operations
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, engine.ErrUnknownPlayer):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrBadTransition),
		errors.Is(err, engine.ErrGameOver),
		errors.Is(err, engine.ErrNoFreeSlot),
		errors.Is(err, engine.ErrProtocolViolation),
		errors.Is(err, engine.ErrInboxFull),
		errors.Is(err, engine.ErrStopped):
		return http.StatusConflict
	case errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

// decodeBody decodes an optional JSON body into v
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// Game Handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Support both parameter names, but prefer config_id
	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	game, err := s.service.CreateGame(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.log.Info("game created", "game", game.ID, "config", game.ConfigName)
	respondJSON(w, http.StatusCreated, game)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of games to return
	status := query.Get("status")  // only games in this status

	// Set defaults
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	total := len(games)
	if status != "" {
		filtered := games[:0]
		for _, g := range games {
			if string(g.Status) == status {
				filtered = append(filtered, g)
			}
		}
		games = filtered
	}

	sort.Slice(games, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = games[i].CreatedAt, games[j].CreatedAt
		} else { // "accessed"
			ti, tj = games[i].LastAccessedAt, games[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj) // desc
	})

	// Apply limit if specified
	limit := len(games)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(games) {
			limit = l
		}
	}
	games = games[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"total": total,
		"games": games,
		"sort":  sortBy,
		"order": order,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	game, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	if err := s.service.DeleteGame(r.Context(), gameID); err != nil {
		respondServiceError(w, err)
		return
	}
	if s.hub != nil {
		s.hub.DropGame(gameID)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Game %s deleted", gameID),
	})
}

// Player Handlers

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	joined, err := s.service.Join(r.Context(), gameID, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.log.Info("player joined", "game", gameID, "player", joined.PlayerID, "name", req.Name)
	respondJSON(w, http.StatusCreated, joined)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req struct {
		PlayerID *int `json:"player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == nil {
		respondError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	if err := s.service.Leave(r.Context(), gameID, *req.PlayerID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Player %d left game %s", *req.PlayerID, gameID),
	})
}

// Game Operation Handlers

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req struct {
		PlayerID *int   `json:"player_id"`
		Keys     string `json:"keys"`
		Boost    bool   `json:"boost,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == nil {
		respondError(w, http.StatusBadRequest, "player_id and keys are required")
		return
	}

	report, err := s.service.Type(r.Context(), gameID, *req.PlayerID, req.Keys, req.Boost)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.log.Debug("keys typed", "game", gameID, "player", *req.PlayerID,
		"keys", len(req.Keys), "moves", len(report.Moves), "bells", report.Bells)
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req protocol.Req
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MoveType == "" {
		req.MoveType = protocol.MoveNormal
	}

	res, err := s.service.Move(r.Context(), gameID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "paused", s.service.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "resumed", s.service.Resume)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, verb string, fn func(ctx context.Context, gameID string) error) {
	gameID := mux.Vars(r)["id"]

	if err := fn(r.Context(), gameID); err != nil {
		respondServiceError(w, err)
		return
	}

	game, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Game %s %s", gameID, verb),
		"status":  game.Status,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	snap, err := s.service.Reset(r.Context(), gameID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Game reset successfully",
		"snapshot": snap,
	})
}

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), gameID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	// Remove .json extension if present
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	cfg, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var gameConfig engine.GameConfig
	if err := json.NewDecoder(r.Body).Decode(&gameConfig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if gameConfig.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	// ?id= names the file; otherwise it is derived from the display name
	configID := r.URL.Query().Get("id")
	if configID == "" {
		configID = configIDFor(gameConfig.Name)
	}

	if err := s.service.SaveConfig(r.Context(), configID, &gameConfig); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// configIDFor turns a display name into a file-friendly id
func configIDFor(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}

func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.ListLanguages(r.Context()))
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	if gameID == "" {
		http.Error(w, "game parameter required", http.StatusBadRequest)
		return
	}

	// Verify game exists
	if _, err := s.service.GetGame(r.Context(), gameID); err != nil {
		http.Error(w, "Invalid game", http.StatusNotFound)
		return
	}
	if s.hub == nil {
		http.Error(w, "websocket transport disabled", http.StatusServiceUnavailable)
		return
	}

	s.hub.ServeWS(w, r, gameID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"games":  len(games),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}
