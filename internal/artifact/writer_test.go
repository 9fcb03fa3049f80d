package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"greenmoment-go/internal/models"
)

func TestPublishAndLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "carbon_intensity.json")
	writer := NewWriter(path)

	doc := &models.Artifact{
		LastUpdated: "2026-08-01T12:09:00Z",
		Status:      "complete",
		Current: &models.CurrentConditions{
			Timestamp:      "2026-08-01T12:00:00Z",
			IntensityGrams: 512,
			Level:          models.LevelMedium,
		},
		Forecast: models.ForecastArtifact{
			Available: true,
			Points: []models.ArtifactForecastEntry{
				{Timestamp: "2026-08-01T12:10:00Z", IntensityGrams: 500, Level: models.LevelMedium},
			},
		},
	}

	if err := writer.Publish(doc); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	loaded, err := writer.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Status != "complete" || loaded.Current.IntensityGrams != 512 {
		t.Errorf("Roundtrip mismatch: %+v", loaded)
	}
	if !loaded.Forecast.Available || len(loaded.Forecast.Points) != 1 {
		t.Errorf("Forecast lost in roundtrip: %+v", loaded.Forecast)
	}
}

func TestPublish_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carbon_intensity.json")
	writer := NewWriter(path)

	first := &models.Artifact{LastUpdated: "first", Status: "building_cache"}
	second := &models.Artifact{LastUpdated: "second", Status: "complete"}

	if err := writer.Publish(first); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := writer.Publish(second); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	loaded, err := writer.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LastUpdated != "second" {
		t.Errorf("Expected latest publish to win, got %q", loaded.LastUpdated)
	}

	// No temp files may linger after a successful swap.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("Leftover temp file: %s", entry.Name())
		}
	}
}

func TestLoad_NoArtifactYet(t *testing.T) {
	writer := NewWriter(filepath.Join(t.TempDir(), "missing.json"))
	loaded, err := writer.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != nil {
		t.Errorf("Expected nil for missing artifact, got %+v", loaded)
	}
}
