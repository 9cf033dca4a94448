package service

import (
	"context"

	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/lang"
	"github.com/wricardo/typing-arena/game/protocol"
)

// ErrNoFreeSlot is returned by Join when every human slot is taken
var ErrNoFreeSlot = engine.ErrNoFreeSlot

// GameService defines all game-related operations
type GameService interface {
	// Game Management
	CreateGame(ctx context.Context, configName string) (*GameInfo, error)
	GetGame(ctx context.Context, gameID string) (*GameInfo, error)
	ListGames(ctx context.Context) ([]*GameInfo, error)
	DeleteGame(ctx context.Context, gameID string) error

	// Players
	Join(ctx context.Context, gameID, name string) (*JoinResult, error)
	Leave(ctx context.Context, gameID string, playerID int) error

	// Game Operations
	Type(ctx context.Context, gameID string, playerID int, keys string, boost bool) (*engine.TypeReport, error)
	Move(ctx context.Context, gameID string, req protocol.Req) (*protocol.Res, error)
	Pause(ctx context.Context, gameID string) error
	Resume(ctx context.Context, gameID string) error
	Reset(ctx context.Context, gameID string) (*protocol.ResetSnapshot, error)

	// Game State
	GetGameState(ctx context.Context, gameID string) (*GameState, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
	ListLanguages(ctx context.Context) []lang.Info
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}
