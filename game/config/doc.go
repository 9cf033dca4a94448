// Package config loads the game presets offered by the arena.
//
// The config package handles:
//   - Loading presets from JSON files
//   - Preset validation against the topology and language rules
//   - Default preset management
//   - Reloading a preset once its file changes
//   - Preset discovery, listing and saving
//
// Preset Format:
//
// Presets are stored as JSON files in the configs directory. Each preset
// defines:
//   - The board topology (euclid2 torus or beehive hexagon) and its dimensions
//   - The typing language and how strongly its character weights apply
//   - The balancing policy used to pick tile labels
//   - Health parameters: start health, pickups on the floor, boost cost
//   - Teams with their human slots and chaser bots
//
// Bundled Presets:
//   - classic: one typist against two immortal chasers on an 11x11 torus
//   - hive: three teams on a hexagonal board labelled with romaji
//   - duel: two typists on a small mixed-case board
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific preset
//	preset, err := manager.LoadConfig("hive")
//
//	// Get default preset (the SetDefault choice, else classic, else the
//	// first playable file, else built-in)
//	preset = manager.GetDefault()
//
//	// List presets with their area, player count and compatibility
//	presets, err := manager.ListConfigs()
//
// Validation:
//
// Preset files are decoded with unknown fields rejected, then go through
// engine.ValidateGameConfig, which reports all failed preconditions at once.
// LoadConfig returns ErrInvalidConfig wrapping that joined list, so each rule
// stays reachable with errors.Is. ListConfigs keeps invalid files in the
// listing with one problem per failed rule.
//
// A language is compatible with a topology when its capacity, the number of
// independent sequences at the root of its tree, exceeds the topology's
// ambiguity threshold.
package config
