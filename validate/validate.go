// Command validate provides a small CLI that validates arena preset JSON
// files in the ../configs directory. It checks:
//   - JSON structure, with unknown fields rejected
//   - Every rule of the engine's preset validator (topology, dimensions,
//     language compatibility, teams, bot parameters)
//   - Labeling: a few seeded rounds are dealt and every neighborhood is
//     checked for ambiguous labels and double occupancy
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/logger"
)

// labelRounds is how many rounds validateLabeling deals per preset
const labelRounds = 5

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single preset file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var config engine.GameConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := engine.ValidateGameConfig(&config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, splitErrors(err)...)
		return result
	}

	labeling := validateLabeling(&config, labelRounds)
	if !labeling.Valid {
		result.Valid = false
		result.Errors = append(result.Errors, labeling.Errors...)
		return result
	}

	humans := 0
	for _, t := range config.Teams {
		humans += t.Humans
	}
	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ Grid: %s %s", config.CoordSystem, config.Dimensions),
		fmt.Sprintf("✓ Language: %s", config.Lang.ID),
		fmt.Sprintf("✓ Players: %d (%d human) on %d teams", config.PlayerCount(), humans, len(config.Teams)),
	)
	result.Errors = append(result.Errors, labeling.Errors...)
	return result
}

// splitErrors flattens a joined validation error into one message per rule
func splitErrors(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// validateLabeling deals rounds with seeds 1..rounds and checks that no tile
// can be confused with another reachable from the same source, and that no
// tile holds two players.
func validateLabeling(config *engine.GameConfig, rounds int) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []string{}}

	for seed := 1; seed <= rounds; seed++ {
		m, err := engine.NewManager(config,
			engine.WithSeed(int64(seed)),
			engine.WithScheduler(engine.NewManualScheduler()),
			engine.WithLogger(logger.Discard()))
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Seed %d: failed to deal round: %v", seed, err))
			continue
		}

		var checkErr error
		m.View(func(g *engine.Game) {
			checkErr = errors.Join(g.CheckLabels(), g.CheckOccupancy())
		})
		if checkErr != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Seed %d: %v", seed, checkErr))
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Labels unambiguous over %d seeded rounds", rounds))
	}
	return result
}

// main scans a configs directory (../configs by default) for *.json files
// and validates each one, printing a concise report and exiting with
// non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
