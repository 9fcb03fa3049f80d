package intensity

import (
	"errors"
	"math"
	"testing"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"
)

func TestCompute_StorageExcluded(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	samples := []models.Sample{
		{
			Region:    models.RegionNorth,
			Timestamp: ts,
			FuelMix: map[models.FuelType]float64{
				models.FuelCoal:    1000,
				models.FuelStorage: 500,
			},
		},
	}

	record, err := Compute(ts, samples)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// Storage is reported but never enters the intensity denominator, so a
	// pure-coal mix keeps coal's exact factor.
	if record.TotalGenerationMW != 1000 {
		t.Errorf("Expected total 1000 MW excluding storage, got %f", record.TotalGenerationMW)
	}
	if record.StorageMW != 500 {
		t.Errorf("Expected storage 500 MW, got %f", record.StorageMW)
	}
	if math.Abs(record.CarbonIntensity-0.912) > 1e-9 {
		t.Errorf("Expected intensity 0.912, got %f", record.CarbonIntensity)
	}
	if _, present := record.GenerationMW[models.FuelStorage]; present {
		t.Error("Storage must not appear in the generation breakdown")
	}
}

func TestCompute_AggregatesAcrossRegions(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	samples := []models.Sample{
		{Region: models.RegionNorth, Timestamp: ts,
			FuelMix: map[models.FuelType]float64{models.FuelCoal: 1000}},
		{Region: models.RegionSouth, Timestamp: ts,
			FuelMix: map[models.FuelType]float64{models.FuelCoal: 500, models.FuelSolar: 500}},
	}

	record, err := Compute(ts, samples)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if record.GenerationMW[models.FuelCoal] != 1500 {
		t.Errorf("Expected coal summed to 1500 MW, got %f", record.GenerationMW[models.FuelCoal])
	}
	// 1500 MW coal at 0.912 over 2000 MW total.
	expected := 1500 * 0.912 / 2000
	if math.Abs(record.CarbonIntensity-expected) > 1e-9 {
		t.Errorf("Expected intensity %f, got %f", expected, record.CarbonIntensity)
	}

	var mixSum float64
	for _, percent := range record.MixPercent {
		mixSum += percent
	}
	if math.Abs(mixSum-100) > 1e-9 {
		t.Errorf("Expected mix percentages to sum to 100, got %f", mixSum)
	}
}

func TestCompute_ZeroEmissionMix(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	samples := []models.Sample{
		{Region: models.RegionEast, Timestamp: ts,
			FuelMix: map[models.FuelType]float64{
				models.FuelHydro: 300,
				models.FuelWind:  200,
				models.FuelSolar: 500,
			}},
	}

	record, err := Compute(ts, samples)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if record.CarbonIntensity != 0 {
		t.Errorf("Expected zero intensity for all-renewable mix, got %f", record.CarbonIntensity)
	}
}

func TestCompute_ZeroGeneration(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Only storage reporting: nothing to account.
	samples := []models.Sample{
		{Region: models.RegionNorth, Timestamp: ts,
			FuelMix: map[models.FuelType]float64{models.FuelStorage: 400}},
	}
	_, err := Compute(ts, samples)
	if !errors.Is(err, store.ErrZeroGeneration) {
		t.Fatalf("Expected ErrZeroGeneration, got %v", err)
	}
}

func TestEmissionFactor(t *testing.T) {
	if factor, ok := EmissionFactor(models.FuelLNG); !ok || factor != 0.389 {
		t.Errorf("Expected LNG factor 0.389, got %f (ok=%v)", factor, ok)
	}
	if factor, ok := EmissionFactor(models.FuelNuclear); !ok || factor != 0 {
		t.Errorf("Expected nuclear factor 0, got %f (ok=%v)", factor, ok)
	}
	if _, ok := EmissionFactor(models.FuelStorage); ok {
		t.Error("Storage must have no emission factor")
	}
}
