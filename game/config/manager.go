package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/grid"
	"github.com/wricardo/typing-arena/game/lang"
	"github.com/wricardo/typing-arena/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// classicPreset is the default unless SetDefault chose another
const classicPreset = "classic"

// entry is a validated preset and the modification time of the file it
// was read from
type entry struct {
	config  *engine.GameConfig
	modTime time.Time
}

// Manager serves the arena presets stored in one directory. A cached preset
// is read again once its file changes on disk.
type Manager struct {
	dir string

	mu        sync.RWMutex
	presets   map[string]entry
	defaultID string
}

// NewManager creates a manager over dir, which must exist
func NewManager(dir string) (*Manager, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("config directory %s: %w", dir, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("config directory %s is not a directory", dir)
	}
	return &Manager{
		dir:     dir,
		presets: make(map[string]entry),
	}, nil
}

// presetID strips the .json suffix and rejects names that would leave the
// directory or hide the file
func presetID(name string) (string, bool) {
	id := strings.TrimSuffix(name, ".json")
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) {
		return "", false
	}
	return id, true
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}

// decodePreset parses preset JSON, rejecting fields the arena does not know
func decodePreset(data []byte) (*engine.GameConfig, error) {
	var cfg engine.GameConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// read decodes the preset file of id without validating it
func (m *Manager) read(id string) (*engine.GameConfig, time.Time, error) {
	path := m.path(id)
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, ErrConfigNotFound
		}
		return nil, time.Time{}, fmt.Errorf("failed to stat preset %s: %w", id, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read preset %s: %w", id, err)
	}
	cfg, err := decodePreset(data)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("preset %s: %w", id, err)
	}
	return cfg, st.ModTime(), nil
}

// LoadConfig returns the validated preset named name, with or without the
// .json suffix. A preset failing validation yields ErrInvalidConfig wrapping
// the joined list of every failed rule.
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	id, ok := presetID(name)
	if !ok {
		return nil, ErrConfigNotFound
	}

	st, err := os.Stat(m.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to stat preset %s: %w", id, err)
	}
	m.mu.RLock()
	cached, ok := m.presets[id]
	m.mu.RUnlock()
	if ok && cached.modTime.Equal(st.ModTime()) {
		return cached.config, nil
	}

	cfg, modTime, err := m.read(id)
	if err != nil {
		return nil, err
	}
	if err := engine.ValidateGameConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: preset %s: %w", ErrInvalidConfig, id, err)
	}

	m.mu.Lock()
	m.presets[id] = entry{config: cfg, modTime: modTime}
	m.mu.Unlock()
	return cfg, nil
}

// ListConfigs describes every preset file in the directory. Presets that
// fail to parse or validate are listed too, with their problems.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id, ok := presetID(e.Name())
		if !ok {
			continue
		}
		info := &service.ConfigInfo{Filename: e.Name(), ConfigID: id}

		cfg, err := m.LoadConfig(id)
		if err != nil {
			raw, _, readErr := m.read(id)
			if readErr != nil {
				info.Problems = []string{readErr.Error()}
				configs = append(configs, info)
				continue
			}
			cfg = raw
			info.Problems = rules(engine.ValidateGameConfig(raw))
			if len(info.Problems) == 0 {
				info.Problems = []string{err.Error()}
			}
		}
		describe(info, cfg)
		configs = append(configs, info)
	}
	return configs, nil
}

// describe fills the arena summary of cfg: player count, board area and
// whether its language can be labeled unambiguously on its topology
func describe(info *service.ConfigInfo, cfg *engine.GameConfig) {
	info.Name = cfg.Name
	info.Description = cfg.Description
	info.CoordSystem = cfg.CoordSystem
	info.Dimensions = cfg.Dimensions
	info.Lang = cfg.Lang.ID
	info.Players = cfg.PlayerCount()

	topo, err := grid.ImplementationFor(cfg.CoordSystem)
	if err != nil {
		return
	}
	info.Threshold = topo.AmbiguityThreshold()
	if topo.Validate(cfg.Dimensions) == nil {
		info.Area = topo.Area(cfg.Dimensions)
	}

	// capacity depends on the tree only, not on the policy or weights
	b, err := lang.NewBuiltin(cfg.Lang.ID, 1, lang.PolicyWeight, nil)
	if err != nil {
		return
	}
	info.Capacity = b.Capacity()
	info.Compatible = lang.CheckCompatible(b, info.Threshold) == nil
}

// rules flattens a joined validation error into one message per rule
func rules(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// GetDefault returns the preset picked with SetDefault, else classic, else
// the first playable preset in the directory, else the built-in one
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	chosen := m.defaultID
	m.mu.RUnlock()

	for _, id := range []string{chosen, classicPreset} {
		if id == "" {
			continue
		}
		if cfg, err := m.LoadConfig(id); err == nil {
			return cfg
		}
	}
	if list, err := m.ListConfigs(); err == nil {
		for _, info := range list {
			if !info.Playable() {
				continue
			}
			if cfg, err := m.LoadConfig(info.ConfigID); err == nil {
				return cfg
			}
		}
	}
	return engine.DefaultGameConfig()
}

// SetDefault makes name the preset GetDefault prefers
func (m *Manager) SetDefault(name string) error {
	if _, err := m.LoadConfig(name); err != nil {
		return err
	}
	id, _ := presetID(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = id
	return nil
}

// SaveConfig validates cfg and writes it as name.json. The file is replaced
// atomically so a concurrent LoadConfig never sees half a preset.
func (m *Manager) SaveConfig(name string, cfg *engine.GameConfig) error {
	id, ok := presetID(name)
	if !ok {
		return fmt.Errorf("%w: bad preset name %q", ErrInvalidConfig, name)
	}
	if err := engine.ValidateGameConfig(cfg); err != nil {
		return fmt.Errorf("%w: preset %s: %w", ErrInvalidConfig, id, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(m.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create preset file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write preset file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path(id)); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	st, err := os.Stat(m.path(id))
	if err != nil {
		return fmt.Errorf("failed to stat preset %s: %w", id, err)
	}
	m.mu.Lock()
	m.presets[id] = entry{config: cfg, modTime: st.ModTime()}
	m.mu.Unlock()
	return nil
}
