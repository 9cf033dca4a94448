package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/lang"
	"github.com/wricardo/typing-arena/game/protocol"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) session(gameID string) (*Session, error) {
	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("game not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(gameID)
	return sess, nil
}

func (s *gameServiceImpl) info(sess *Session, configID string) *GameInfo {
	free := 0
	sess.Game.View(func(g *engine.Game) {
		for _, p := range g.Players {
			if p.Family == engine.Human && !p.Claimed && !p.Eliminated {
				free++
			}
		}
	})
	return &GameInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Status:         sess.Game.Status(),
		Setup:          sess.Game.Setup(sess.ID),
		FreeSlots:      free,
		GameConfig:     sess.Config,
	}
}

// CreateGame starts a new game from a preset
func (s *gameServiceImpl) CreateGame(ctx context.Context, configName string) (*GameInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						if cfg.Playable() {
							configIDs = append(configIDs, cfg.ConfigID)
						}
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}
	return s.info(sess, configID), nil
}

// GetGame retrieves game information
func (s *gameServiceImpl) GetGame(ctx context.Context, gameID string) (*GameInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	return s.info(sess, s.getConfigID(sess.Config.Name)), nil
}

// ListGames returns all running games
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*GameInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess, s.getConfigID(sess.Config.Name)))
	}
	return result, nil
}

// DeleteGame stops and removes a game
func (s *gameServiceImpl) DeleteGame(ctx context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(gameID)
}

// Join claims a free human slot
func (s *gameServiceImpl) Join(ctx context.Context, gameID, name string) (*JoinResult, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	p, err := sess.Game.Claim(name)
	if err != nil {
		return nil, err
	}
	return &JoinResult{
		PlayerID: p.ID,
		TeamID:   p.TeamID,
		Setup:    sess.Game.Setup(sess.ID),
		Snapshot: sess.Game.Snapshot(),
	}, nil
}

// Leave releases a slot and takes its player off the board
func (s *gameServiceImpl) Leave(ctx context.Context, gameID string, playerID int) error {
	sess, err := s.session(gameID)
	if err != nil {
		return err
	}
	return sess.Game.Forfeit(playerID)
}

// Type feeds keystrokes to a player's server-side operator
func (s *gameServiceImpl) Type(ctx context.Context, gameID string, playerID int, keys string, boost bool) (*engine.TypeReport, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	report, err := sess.Game.Type(ctx, playerID, keys, boost)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Move submits a raw request and waits for its result
func (s *gameServiceImpl) Move(ctx context.Context, gameID string, req protocol.Req) (*protocol.Res, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	res, err := sess.Game.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Pause stops play
func (s *gameServiceImpl) Pause(ctx context.Context, gameID string) error {
	sess, err := s.session(gameID)
	if err != nil {
		return err
	}
	return sess.Game.Pause()
}

// Resume starts or continues play
func (s *gameServiceImpl) Resume(ctx context.Context, gameID string) error {
	sess, err := s.session(gameID)
	if err != nil {
		return err
	}
	return sess.Game.Resume()
}

// Reset starts a new round
func (s *gameServiceImpl) Reset(ctx context.Context, gameID string) (*protocol.ResetSnapshot, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}
	snap, err := sess.Game.Reset()
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetGameState returns a readable view of the game
func (s *gameServiceImpl) GetGameState(ctx context.Context, gameID string) (*GameState, error) {
	sess, err := s.session(gameID)
	if err != nil {
		return nil, err
	}

	state := &GameState{ID: sess.ID}
	sess.Game.View(func(g *engine.Game) {
		state.Status = g.Status
		for _, p := range g.Players {
			state.Players = append(state.Players, *p)
		}
		for _, t := range g.Teams {
			state.Teams = append(state.Teams, *t)
		}
		state.Standings = g.Standings()
		state.Board = g.Grid.Format()
		state.Snapshot = g.Snapshot()
	})
	return state, nil
}

// ListConfigs returns all available presets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a preset by name
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig stores a preset
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if config == nil {
		return errors.New("config is required")
	}
	return s.configs.SaveConfig(configName, config)
}

// ListLanguages describes the built-in languages
func (s *gameServiceImpl) ListLanguages(ctx context.Context) []lang.Info {
	return lang.BuiltinInfos()
}
