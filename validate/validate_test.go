package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/typing-arena/game/engine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "test_config_*.json")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpfile.Close()
	return tmpfile.Name()
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

const validConfig = `{
	"name": "Test Config",
	"description": "Test configuration",
	"coord_system": "euclid2",
	"dimensions": {"height": 7, "width": 7},
	"lang": {"id": "engl-low", "weight_exaggeration": 1},
	"balancing": "weight",
	"start_health": 3,
	"health_on_floor": 2,
	"boost_cost": 1,
	"teams": [
		{"name": "Red", "humans": 1},
		{"name": "Blue", "humans": 0, "bots": [
			{"fear_distance": 1, "blood_thirst_distance": 4, "moves_per_second": 1, "health_reserve": 1}
		]}
	]
}`

func TestValidateConfig_ValidConfig(t *testing.T) {
	result := validateConfig(writeConfig(t, validConfig))
	if !result.Valid {
		t.Fatalf("Expected valid config, but got errors: %v", result.Errors)
	}

	for _, info := range []string{"✓ Grid: euclid2 7x7", "✓ Players: 2 (1 human) on 2 teams", "✓ Labels unambiguous"} {
		if !containsError(result.Errors, info) {
			t.Errorf("Expected info %q, got %v", info, result.Errors)
		}
	}
}

func TestValidateConfig_InvalidJSON(t *testing.T) {
	result := validateConfig(writeConfig(t, `{"name": "Broken"`))
	if result.Valid {
		t.Error("Expected invalid config for malformed JSON")
	}
	if !containsError(result.Errors, "Invalid JSON") {
		t.Errorf("Expected 'Invalid JSON' error, got %v", result.Errors)
	}
}

func TestValidateConfig_UnknownField(t *testing.T) {
	content := strings.Replace(validConfig, `"boost_cost": 1,`, `"boost_cost": 1, "max_speed": 10,`, 1)
	result := validateConfig(writeConfig(t, content))
	if result.Valid {
		t.Error("Expected unknown fields to be rejected")
	}
	if !containsError(result.Errors, "max_speed") {
		t.Errorf("Expected the unknown field to be named, got %v", result.Errors)
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(filepath.Join(t.TempDir(), "nope.json"))
	if result.Valid {
		t.Error("Expected invalid result for a missing file")
	}
	if !containsError(result.Errors, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestValidateConfig_RuleViolations(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		wantErr string
	}{
		{
			name:    "dimensions out of bounds",
			old:     `{"height": 7, "width": 7}`,
			new:     `{"height": 3, "width": 7}`,
			wantErr: "dimensions",
		},
		{
			name:    "unknown topology",
			old:     `"euclid2"`,
			new:     `"torus3"`,
			wantErr: "coord_system",
		},
		{
			name:    "incompatible language",
			old:     `"engl-low"`,
			new:     `"morse"`,
			wantErr: "morse",
		},
		{
			name:    "unknown policy",
			old:     `"balancing": "weight"`,
			new:     `"balancing": "random"`,
			wantErr: "balancing",
		},
		{
			name:    "bot too slow",
			old:     `"moves_per_second": 1`,
			new:     `"moves_per_second": 0`,
			wantErr: "moves_per_second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Replace(validConfig, tt.old, tt.new, 1)
			if content == validConfig {
				t.Fatalf("Replacement %q not found", tt.old)
			}
			result := validateConfig(writeConfig(t, content))
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			if !containsError(result.Errors, tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tt.wantErr, result.Errors)
			}
		})
	}
}

func TestValidateConfig_ReportsEveryRule(t *testing.T) {
	content := `{"coord_system": "euclid2", "dimensions": {"height": 7, "width": 7}, "lang": {"id": "engl-low"}, "teams": []}`
	result := validateConfig(writeConfig(t, content))
	if result.Valid {
		t.Fatal("Expected invalid config")
	}
	for _, want := range []string{"name is required", "description is required", "at least one team"} {
		if !containsError(result.Errors, want) {
			t.Errorf("Expected %q among %v", want, result.Errors)
		}
	}
	if len(result.Errors) < 3 {
		t.Errorf("Expected one message per failed rule, got %d", len(result.Errors))
	}
}

func TestValidateLabeling(t *testing.T) {
	result := validateLabeling(engine.DefaultGameConfig(), 3)
	if !result.Valid {
		t.Errorf("Expected the default preset to label cleanly, got %v", result.Errors)
	}
	if !containsError(result.Errors, "3 seeded rounds") {
		t.Errorf("Expected round count in info, got %v", result.Errors)
	}
}

func TestBundledConfigsAreValid(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "configs", "*.json"))
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("Expected bundled presets")
	}
	for _, file := range files {
		if result := validateConfig(file); !result.Valid {
			t.Errorf("%s: %v", result.File, result.Errors)
		}
	}
}
