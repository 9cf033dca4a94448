package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/lang"
)

func createValidConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:          "Test Config",
		Description:   "Test configuration",
		CoordSystem:   grid.Euclid2,
		Dimensions:    grid.Dimensions{Height: 7, Width: 7},
		Lang:          engine.LangConfig{ID: lang.EnglishLower, WeightExaggeration: 1},
		Balancing:     string(lang.PolicyWeight),
		StartHealth:   3,
		HealthOnFloor: 2,
		BoostCost:     1,
		Teams: []engine.TeamConfig{
			{Name: "Red", Humans: 1},
			{Name: "Blue", Humans: 1},
		},
	}
}

// createHiveConfig is a beehive board with a bot team
func createHiveConfig() *engine.GameConfig {
	cfg := createValidConfig()
	cfg.Name = "Hex"
	cfg.CoordSystem = grid.Beehive
	cfg.Dimensions = grid.Dimensions{Dash: 4, Bash: 4, Bosh: 4}
	cfg.Lang = engine.LangConfig{ID: lang.Hiragana, WeightExaggeration: 0.5}
	cfg.Teams = append(cfg.Teams, engine.TeamConfig{
		Name:     "Bots",
		Immortal: true,
		Bots:     []engine.ChaserParams{{MovesPerSecond: 1}},
	})
	return cfg
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	writeRaw(t, dir, name+".json", string(data))
}

func writeRaw(t *testing.T, dir, filename, data string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", filename, err)
	}
}

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return manager
}

func TestNewManager(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewManager(dir); err != nil {
		t.Errorf("Expected an empty directory to be accepted, got %v", err)
	}
	if _, err := NewManager(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for non-existent directory")
	}

	writeRaw(t, dir, "file.json", "{}")
	if _, err := NewManager(filepath.Join(dir, "file.json")); err == nil {
		t.Error("Expected error when the path is a file")
	}
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	easy := createValidConfig()
	easy.Name = "Easy"
	easy.BoostCost = 2
	writeConfigFile(t, dir, "easy", easy)
	manager := newTestManager(t, dir)

	for _, name := range []string{"easy", "easy.json"} {
		cfg, err := manager.LoadConfig(name)
		if err != nil {
			t.Fatalf("Failed to load %s: %v", name, err)
		}
		if cfg.Name != "Easy" || cfg.BoostCost != 2 {
			t.Errorf("Expected Easy with boost cost 2, got %s with %d", cfg.Name, cfg.BoostCost)
		}
	}

	for _, name := range []string{"missing", "", "../easy", `sub\easy`, ".easy"} {
		if _, err := manager.LoadConfig(name); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound for %q, got %v", name, err)
		}
	}
}

func TestManager_LoadConfigReportsEveryRule(t *testing.T) {
	dir := t.TempDir()
	broken := createValidConfig()
	broken.Name = ""
	broken.Lang.ID = lang.Morse
	for i := range broken.Teams {
		broken.Teams[i].Immortal = true
	}
	writeConfigFile(t, dir, "broken", broken)
	manager := newTestManager(t, dir)

	_, err := manager.LoadConfig("broken")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if !errors.Is(err, lang.ErrAmbiguityThreshold) {
		t.Errorf("Expected the ambiguity rule to be reachable, got %v", err)
	}
	if !errors.Is(err, engine.ErrAllImmortal) {
		t.Errorf("Expected the immortal rule to be reachable, got %v", err)
	}
	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("Expected the name rule in %q", err)
	}
}

func TestManager_LoadConfigRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, "extra.json", `{"name": "Extra", "description": "d", "coord_system": "euclid2", "speed": 3}`)
	writeRaw(t, dir, "malformed.json", `{"name": "Malformed", invalid json}`)
	manager := newTestManager(t, dir)

	for _, name := range []string{"extra", "malformed"} {
		if _, err := manager.LoadConfig(name); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig for %s, got %v", name, err)
		}
	}
	if _, err := manager.LoadConfig("extra"); !strings.Contains(err.Error(), "speed") {
		t.Errorf("Expected the unknown field to be named, got %v", err)
	}
}

func TestManager_LoadConfigPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	cfg := createValidConfig()
	writeConfigFile(t, dir, "edited", cfg)
	manager := newTestManager(t, dir)

	first, err := manager.LoadConfig("edited")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	again, _ := manager.LoadConfig("edited")
	if first != again {
		t.Error("Expected an unchanged file to be served from cache")
	}

	cfg.HealthOnFloor = 5
	writeConfigFile(t, dir, "edited", cfg)
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(filepath.Join(dir, "edited.json"), later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	reloaded, err := manager.LoadConfig("edited")
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if reloaded.HealthOnFloor != 5 {
		t.Errorf("Expected health on floor 5 after the edit, got %d", reloaded.HealthOnFloor)
	}
}

func TestManager_ListConfigsCompatibility(t *testing.T) {
	dir := t.TempDir()

	writeConfigFile(t, dir, "a-torus", createValidConfig())
	writeConfigFile(t, dir, "b-hive", createHiveConfig())

	morse := createHiveConfig()
	morse.Name = "Blink"
	morse.Lang.ID = lang.Morse
	writeConfigFile(t, dir, "c-morse", morse)

	numpad := createValidConfig()
	numpad.Name = "Keypad"
	numpad.Lang.ID = lang.Numpad
	writeConfigFile(t, dir, "d-numpad", numpad)

	writeRaw(t, dir, "e-garbled.json", `{"name": `)
	writeRaw(t, dir, "readme.txt", "not a preset")

	configs, err := newTestManager(t, dir).ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 5 {
		t.Fatalf("Expected 5 presets, got %d", len(configs))
	}

	tests := []struct {
		id         string
		players    int
		area       int
		capacity   int
		threshold  int
		compatible bool
		playable   bool
	}{
		{"a-torus", 2, 49, 26, 24, true, true},
		{"b-hive", 3, 37, 64, 18, true, true},
		{"c-morse", 3, 37, 2, 18, false, false},
		{"d-numpad", 2, 49, 10, 24, false, false},
	}
	for i, tt := range tests {
		info := configs[i]
		if info.ConfigID != tt.id || info.Filename != tt.id+".json" {
			t.Errorf("Expected %s at %d, got %s (%s)", tt.id, i, info.ConfigID, info.Filename)
			continue
		}
		if info.Players != tt.players || info.Area != tt.area {
			t.Errorf("%s: expected %d players on %d tiles, got %d on %d", tt.id, tt.players, tt.area, info.Players, info.Area)
		}
		if info.Capacity != tt.capacity || info.Threshold != tt.threshold {
			t.Errorf("%s: expected capacity %d and threshold %d, got %d and %d", tt.id, tt.capacity, tt.threshold, info.Capacity, info.Threshold)
		}
		if info.Compatible != tt.compatible {
			t.Errorf("%s: expected compatible=%v, got %v", tt.id, tt.compatible, info.Compatible)
		}
		if info.Playable() != tt.playable {
			t.Errorf("%s: expected playable=%v, got problems %v", tt.id, tt.playable, info.Problems)
		}
	}

	if p := configs[2].Problems; len(p) != 1 || !strings.Contains(p[0], "morse on beehive") {
		t.Errorf("Expected one compatibility problem for morse, got %v", p)
	}
	garbled := configs[4]
	if garbled.ConfigID != "e-garbled" || len(garbled.Problems) != 1 || garbled.Compatible {
		t.Errorf("Expected the unparsable preset listed with one problem, got %+v", garbled)
	}
}

func TestManager_GetDefault(t *testing.T) {
	t.Run("built-in when empty", func(t *testing.T) {
		cfg := newTestManager(t, t.TempDir()).GetDefault()
		if err := engine.ValidateGameConfig(cfg); err != nil {
			t.Errorf("Expected built-in default to be valid, got %v", err)
		}
	})

	t.Run("first playable preset", func(t *testing.T) {
		dir := t.TempDir()
		bad := createValidConfig()
		bad.Lang.ID = lang.Morse
		writeConfigFile(t, dir, "a-bad", bad)
		writeConfigFile(t, dir, "b-hive", createHiveConfig())

		if got := newTestManager(t, dir).GetDefault().Name; got != "Hex" {
			t.Errorf("Expected Hex as default, got %s", got)
		}
	})

	t.Run("classic and SetDefault", func(t *testing.T) {
		dir := t.TempDir()
		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)
		writeConfigFile(t, dir, "hive", createHiveConfig())
		bad := createValidConfig()
		bad.Teams = nil
		writeConfigFile(t, dir, "bad", bad)
		manager := newTestManager(t, dir)

		if got := manager.GetDefault().Name; got != "Classic" {
			t.Errorf("Expected Classic as default, got %s", got)
		}
		if err := manager.SetDefault("hive.json"); err != nil {
			t.Fatalf("SetDefault failed: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Hex" {
			t.Errorf("Expected Hex after SetDefault, got %s", got)
		}
		if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
		if err := manager.SetDefault("bad"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}

		// the chosen preset falls back to classic once its file is gone
		os.Remove(filepath.Join(dir, "hive.json"))
		if got := manager.GetDefault().Name; got != "Classic" {
			t.Errorf("Expected Classic after removal, got %s", got)
		}
	})
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager := newTestManager(t, dir)

	hive := createHiveConfig()
	if err := manager.SaveConfig("saved.json", hive); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "saved.json" {
		t.Errorf("Expected only saved.json on disk, got %v", entries)
	}

	loaded, err := newTestManager(t, dir).LoadConfig("saved")
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.CoordSystem != grid.Beehive || loaded.Dimensions.Bosh != 4 || loaded.PlayerCount() != 3 {
		t.Errorf("Unexpected saved config %+v", loaded)
	}

	invalid := createValidConfig()
	invalid.Lang.ID = lang.Numpad
	err = manager.SaveConfig("invalid", invalid)
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, lang.ErrAmbiguityThreshold) {
		t.Errorf("Expected ErrInvalidConfig wrapping the ambiguity rule, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "invalid.json")); !os.IsNotExist(err) {
		t.Error("Expected no file for an invalid preset")
	}

	for _, name := range []string{"", "../escape", ".hidden", `a\b`} {
		if err := manager.SaveConfig(name, hive); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig for name %q, got %v", name, err)
		}
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one", "two", "three"} {
		cfg := createValidConfig()
		cfg.Name = name
		writeConfigFile(t, dir, name, cfg)
	}
	manager := newTestManager(t, dir)

	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadConfig("two"); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := manager.ListConfigs(); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			manager.GetDefault()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
}

func TestBundledPresets(t *testing.T) {
	manager := newTestManager(t, filepath.Join("..", "..", "configs"))

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list bundled presets: %v", err)
	}
	for _, info := range configs {
		if !info.Playable() || !info.Compatible {
			t.Errorf("Preset %s is not playable: %v", info.ConfigID, info.Problems)
		}
		if info.Players > info.Area {
			t.Errorf("Preset %s seats %d players on %d tiles", info.ConfigID, info.Players, info.Area)
		}
	}
	for _, name := range []string{"classic", "hive", "duel"} {
		if _, err := manager.LoadConfig(name); err != nil {
			t.Errorf("Preset %s failed to load: %v", name, err)
		}
	}
	if manager.GetDefault().Name != "Classic" {
		t.Errorf("Expected Classic as default, got %s", manager.GetDefault().Name)
	}
}
