package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadApplianceCatalog_MissingFileUsesDefaults(t *testing.T) {
	catalog, err := LoadApplianceCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadApplianceCatalog failed: %v", err)
	}
	if catalog["washing_machine"] != 500 {
		t.Errorf("Expected built-in washing_machine 500 W, got %f", catalog["washing_machine"])
	}
	if catalog["ev_fast_charge"] != 50000 {
		t.Errorf("Expected built-in ev_fast_charge 50000 W, got %f", catalog["ev_fast_charge"])
	}
}

func TestLoadApplianceCatalog_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appliances.yaml")
	content := `appliances:
  - type: washing_machine
    watts: 600
  - type: heat_pump
    watts: 3000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	catalog, err := LoadApplianceCatalog(path)
	if err != nil {
		t.Fatalf("LoadApplianceCatalog failed: %v", err)
	}
	if len(catalog) != 2 {
		t.Errorf("Expected catalog from file only, got %d entries", len(catalog))
	}
	if catalog["washing_machine"] != 600 {
		t.Errorf("Expected washing_machine 600 W, got %f", catalog["washing_machine"])
	}
}

func TestLoadApplianceCatalog_RejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing type", "appliances:\n  - watts: 100\n"},
		{"non-positive watts", "appliances:\n  - type: tv\n    watts: 0\n"},
		{"duplicate type", "appliances:\n  - type: tv\n    watts: 100\n  - type: tv\n    watts: 200\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "appliances.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("Failed to write test file: %v", err)
			}
			if _, err := LoadApplianceCatalog(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
