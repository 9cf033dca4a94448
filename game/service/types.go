package service

import (
	"context"
	"time"

	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/protocol"
)

// GameInfo provides information about a running game
type GameInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Status         protocol.Status    `json:"status"`
	Setup          protocol.Setup     `json:"setup"`
	FreeSlots      int                `json:"free_slots"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// GameState is a readable view of one game
type GameState struct {
	ID        string                 `json:"id"`
	Status    protocol.Status        `json:"status"`
	Players   []engine.Player        `json:"players"`
	Teams     []engine.Team          `json:"teams"`
	Standings []protocol.Standing    `json:"standings"`
	Board     string                 `json:"board"`
	Snapshot  protocol.ResetSnapshot `json:"snapshot"`
}

// JoinResult is returned when a human slot is claimed
type JoinResult struct {
	PlayerID int                    `json:"player_id"`
	TeamID   int                    `json:"team_id"`
	Setup    protocol.Setup         `json:"setup"`
	Snapshot protocol.ResetSnapshot `json:"snapshot"`
}

// ConfigInfo provides information about a game configuration. Compatible
// holds when the language offers more independent sequences (Capacity) than
// the topology's ambiguity threshold.
type ConfigInfo struct {
	Filename    string          `json:"filename"`
	ConfigID    string          `json:"config_id"` // The identifier to use for game creation
	Name        string          `json:"name"`      // Display name
	Description string          `json:"description"`
	CoordSystem grid.TopologyID `json:"coord_system"`
	Dimensions  grid.Dimensions `json:"dimensions"`
	Lang        string          `json:"lang"`
	Players     int             `json:"players"`
	Area        int             `json:"area"`
	Capacity    int             `json:"capacity"`
	Threshold   int             `json:"threshold"`
	Compatible  bool            `json:"compatible"`
	Problems    []string        `json:"problems,omitempty"` // One entry per failed precondition
}

// Playable reports whether a game can be started from the preset
func (c *ConfigInfo) Playable() bool { return len(c.Problems) == 0 }

// Session is a running game and its bookkeeping
type Session struct {
	ID             string
	Game           *engine.Manager
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	// Stop ends the game's request loop
	Stop context.CancelFunc
}
