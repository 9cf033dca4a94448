package engine

import (
	"errors"

	"github.com/wricardo/typing-arena/game/grid"
)

// Family tells who drives a player
type Family string

const (
	Human  Family = "human"
	Chaser Family = "chaser"
)

const (
	// ElimStanding is the ElimOrder of a team still in the game
	ElimStanding = 0
	// ElimImmortal is the ElimOrder of a team that can never be eliminated
	ElimImmortal = -1

	// Validation constants
	DefaultStartHealth = 3
	MaxTeams           = 8
	MaxPlayersPerTeam  = 16
	MaxMovesPerSecond  = 20
	InboxSize          = 256
)

var (
	// ErrProtocolViolation is returned for a request an honest requester cannot send
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrRequestInFlight is returned when a player already has a request pending
	ErrRequestInFlight = errors.New("request already in flight")
	// ErrAllImmortal is returned for a roster in which no team can be eliminated
	ErrAllImmortal = errors.New("all teams are immortal")
	// ErrBadTransition is returned for a status change the state machine forbids
	ErrBadTransition = errors.New("invalid status transition")
	// ErrUnknownPlayer is returned for a player id outside the roster
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrNoFreeSlot is returned when every human slot is claimed
	ErrNoFreeSlot = errors.New("no free human slot")
	// ErrGameOver is returned for requests against a finished game
	ErrGameOver = errors.New("game is over")
	// ErrInboxFull is returned when the request queue cannot take more work
	ErrInboxFull = errors.New("request inbox full")
	// ErrStopped is returned once the request loop has exited
	ErrStopped = errors.New("game stopped")
)

// ChaserParams tunes a chaser bot
type ChaserParams struct {
	// FearDistance is how close a healthier opponent may come before the bot runs
	FearDistance int `json:"fear_distance"`
	// BloodThirstDistance is how far the bot looks for prey
	BloodThirstDistance int     `json:"blood_thirst_distance"`
	MovesPerSecond      float64 `json:"moves_per_second"`
	// HealthReserve is the health the bot keeps back instead of boosting
	HealthReserve int `json:"health_reserve"`
}

// Player is one arena participant. ID indexes the game's player arena.
type Player struct {
	ID     int        `json:"id"`
	Name   string     `json:"name"`
	TeamID int        `json:"team_id"`
	Family Family     `json:"family"`
	Coord  grid.Coord `json:"coord"`

	// ReqNow is the last acknowledged request counter
	ReqNow          int  `json:"req_now"`
	RequestInFlight bool `json:"request_in_flight"`
	LastRejectID    int  `json:"last_reject_id"`

	Health     int  `json:"health"`
	Score      int  `json:"score"`
	Eliminated bool `json:"eliminated"`
	// Claimed marks a human slot bound to a connection
	Claimed bool `json:"claimed"`

	Bot *ChaserParams `json:"bot,omitempty"`
}

// IsBot reports whether the server drives the player
func (p *Player) IsBot() bool { return p.Bot != nil }

// Team is a set of players sharing elimination fate
type Team struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Members   []int  `json:"members"`
	ElimOrder int    `json:"elim_order"`
}

// Standing reports whether the team is still in the game
func (t *Team) Standing() bool {
	return t.ElimOrder == ElimStanding || t.ElimOrder == ElimImmortal
}

// Immortal reports whether the team can never be eliminated
func (t *Team) Immortal() bool { return t.ElimOrder == ElimImmortal }
