package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/lang"
)

// LangConfig selects the language and how strongly its weights apply
type LangConfig struct {
	ID                 string  `json:"id"`
	WeightExaggeration float64 `json:"weight_exaggeration"`
}

// TeamConfig describes one team of a preset
type TeamConfig struct {
	Name     string         `json:"name"`
	Immortal bool           `json:"immortal,omitempty"`
	Humans   int            `json:"humans"`
	Bots     []ChaserParams `json:"bots,omitempty"`
}

// Size returns the number of players on the team
func (t TeamConfig) Size() int { return t.Humans + len(t.Bots) }

// GameConfig is a game preset loaded from JSON
type GameConfig struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	CoordSystem   grid.TopologyID `json:"coord_system"`
	Dimensions    grid.Dimensions `json:"dimensions"`
	Lang          LangConfig      `json:"lang"`
	Balancing     string          `json:"balancing"`
	StartHealth   int             `json:"start_health"`
	HealthOnFloor int             `json:"health_on_floor"`
	BoostCost     int             `json:"boost_cost"`
	Teams         []TeamConfig    `json:"teams"`
}

// PlayerCount returns the roster size
func (c *GameConfig) PlayerCount() int {
	n := 0
	for _, t := range c.Teams {
		n += t.Size()
	}
	return n
}

// ValidateGameConfig checks a preset and reports every failed precondition
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config validation: "+format, args...))
	}

	if config.Name == "" {
		fail("name is required")
	}
	if config.Description == "" {
		fail("description is required")
	}

	topo, err := grid.ImplementationFor(config.CoordSystem)
	if err != nil {
		fail("coord_system: %w", err)
	} else if err := topo.Validate(config.Dimensions); err != nil {
		fail("dimensions: %w", err)
	}

	policy, err := lang.ParsePolicy(config.Balancing)
	if err != nil {
		fail("balancing: %w", err)
	}
	if config.Lang.WeightExaggeration < 0 {
		fail("lang.weight_exaggeration must be >= 0, got %v", config.Lang.WeightExaggeration)
	}
	if _, ok := lang.Builtin(config.Lang.ID); !ok {
		fail("lang.id: %w: %q", lang.ErrUnknownLanguage, config.Lang.ID)
	} else if topo != nil && err == nil && config.Lang.WeightExaggeration >= 0 {
		b, berr := lang.NewBuiltin(config.Lang.ID, config.Lang.WeightExaggeration, policy, nil)
		if berr != nil {
			fail("lang: %w", berr)
		} else if cerr := lang.CheckCompatible(b, topo.AmbiguityThreshold()); cerr != nil {
			fail("lang %s on %s: %w", config.Lang.ID, config.CoordSystem, cerr)
		}
	}

	if config.StartHealth < 0 {
		fail("start_health must be >= 0, got %d", config.StartHealth)
	}
	if config.HealthOnFloor < 0 {
		fail("health_on_floor must be >= 0, got %d", config.HealthOnFloor)
	}
	if config.BoostCost < 0 {
		fail("boost_cost must be >= 0, got %d", config.BoostCost)
	}

	if len(config.Teams) == 0 {
		fail("at least one team is required")
	}
	if len(config.Teams) > MaxTeams {
		fail("at most %d teams are allowed, got %d", MaxTeams, len(config.Teams))
	}
	allImmortal := len(config.Teams) > 0
	for i, team := range config.Teams {
		if team.Name == "" {
			fail("teams[%d].name is required", i)
		}
		if team.Humans < 0 {
			fail("teams[%d].humans must be >= 0, got %d", i, team.Humans)
		}
		if team.Size() == 0 {
			fail("teams[%d] has no players", i)
		}
		if team.Size() > MaxPlayersPerTeam {
			fail("teams[%d] has %d players, at most %d allowed", i, team.Size(), MaxPlayersPerTeam)
		}
		if !team.Immortal {
			allImmortal = false
		}
		for j, bot := range team.Bots {
			if bot.MovesPerSecond <= 0 || bot.MovesPerSecond > MaxMovesPerSecond {
				fail("teams[%d].bots[%d].moves_per_second must be in (0, %d], got %v", i, j, MaxMovesPerSecond, bot.MovesPerSecond)
			}
			if bot.FearDistance < 0 || bot.BloodThirstDistance < 0 || bot.HealthReserve < 0 {
				fail("teams[%d].bots[%d] distances and reserve must be >= 0", i, j)
			}
		}
	}
	if allImmortal {
		fail("%w", ErrAllImmortal)
	}

	if topo != nil && topo.Validate(config.Dimensions) == nil {
		if area := topo.Area(config.Dimensions); config.PlayerCount() > area {
			fail("%d players do not fit on %d tiles", config.PlayerCount(), area)
		}
	}

	return errors.Join(errs...)
}

// LoadGameConfig reads and validates a preset file
func LoadGameConfig(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultGameConfig is the built-in preset used when no files are available
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:          "Classic",
		Description:   "One human against two chasers on an 11x11 torus",
		CoordSystem:   grid.Euclid2,
		Dimensions:    grid.Dimensions{Height: 11, Width: 11},
		Lang:          LangConfig{ID: lang.EnglishLower, WeightExaggeration: 1},
		Balancing:     string(lang.PolicyWeight),
		StartHealth:   DefaultStartHealth,
		HealthOnFloor: 4,
		BoostCost:     1,
		Teams: []TeamConfig{
			{Name: "Typists", Humans: 1},
			{Name: "Chasers", Immortal: true, Bots: []ChaserParams{
				{FearDistance: 2, BloodThirstDistance: 6, MovesPerSecond: 1.5, HealthReserve: 2},
				{FearDistance: 1, BloodThirstDistance: 4, MovesPerSecond: 1, HealthReserve: 1},
			}},
		},
	}
}
