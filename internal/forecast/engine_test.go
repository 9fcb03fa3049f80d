package forecast

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestModel writes a minimal valid model: zero weights, so the output
// is exactly the bias, standardization is identity, and per-step output is
// controlled through biasFor.
func writeTestModel(t *testing.T, dir string, region models.Region, biasFor map[models.FuelType]float64) {
	t.Helper()

	featureOrder := make([]string, 0, len(models.GenerationFuels))
	for _, fuel := range models.GenerationFuels {
		featureOrder = append(featureOrder, string(fuel))
	}

	inputWidth := models.CacheWindowSize * len(featureOrder)
	outputWidth := models.ForecastSteps * len(models.GenerationFuels)

	ones := func(n int) []float64 {
		values := make([]float64, n)
		for i := range values {
			values[i] = 1
		}
		return values
	}

	weights := make([][]float64, inputWidth)
	for i := range weights {
		weights[i] = make([]float64, outputWidth)
	}

	bias := make([]float64, outputWidth)
	for step := 0; step < models.ForecastSteps; step++ {
		for f, fuel := range models.GenerationFuels {
			bias[step*len(models.GenerationFuels)+f] = biasFor[fuel]
		}
	}

	model := Model{
		Region:       region,
		FeatureOrder: featureOrder,
		InputSteps:   models.CacheWindowSize,
		OutputSteps:  models.ForecastSteps,
		XMean:        make([]float64, len(featureOrder)),
		XStd:         ones(len(featureOrder)),
		YMean:        make([]float64, len(models.GenerationFuels)),
		YStd:         ones(len(models.GenerationFuels)),
		Weights:      weights,
		Bias:         bias,
	}

	data, err := json.Marshal(model)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(region)+".json"), data, 0o644))
}

func fullWindow(region models.Region, anchor time.Time) models.CacheWindow {
	window := models.CacheWindow{Region: region}
	for i := models.CacheWindowSize - 1; i >= 0; i-- {
		window.Samples = append(window.Samples, models.Sample{
			Region:    region,
			Timestamp: anchor.Add(-time.Duration(i) * models.ReportingInterval),
			FuelMix:   map[models.FuelType]float64{models.FuelCoal: 1000},
		})
	}
	return window
}

func newTestEngine(t *testing.T, biasFor map[models.FuelType]float64) *Engine {
	t.Helper()
	dir := t.TempDir()
	for _, region := range models.Regions {
		writeTestModel(t, dir, region, biasFor)
	}
	engine, err := NewEngine(dir, "UTC")
	require.NoError(t, err)
	return engine
}

func TestLoadModels_MissingRegion(t *testing.T) {
	dir := t.TempDir()
	writeTestModel(t, dir, models.RegionNorth, nil)

	_, err := LoadModels(dir)
	require.Error(t, err)
}

func TestLoadModel_RejectsShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	writeTestModel(t, dir, models.RegionNorth, nil)
	path := filepath.Join(dir, string(models.RegionNorth)+".json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var model Model
	require.NoError(t, json.Unmarshal(data, &model))

	model.Bias = model.Bias[:10]
	broken, err := json.Marshal(model)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, broken, 0o644))

	_, err = LoadModel(path)
	assert.ErrorContains(t, err, "bias length")
}

func TestForecastNational_ShapeAndTimestamps(t *testing.T) {
	engine := newTestEngine(t, map[models.FuelType]float64{models.FuelCoal: 100})
	anchor := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	windows := make(map[models.Region]models.CacheWindow)
	for _, region := range models.Regions {
		windows[region] = fullWindow(region, anchor)
	}

	series, err := engine.ForecastNational(context.Background(), anchor, windows)
	require.NoError(t, err)

	require.Len(t, series.Points, models.ForecastSteps)
	assert.Equal(t, anchor, series.Anchor)
	assert.Equal(t, anchor.Add(models.ReportingInterval), series.Points[0].Timestamp)
	assert.Equal(t, anchor.Add(24*time.Hour), series.Points[len(series.Points)-1].Timestamp)

	// Five regions each predicting 100 MW of coal: pure coal intensity.
	for _, point := range series.Points {
		assert.InDelta(t, 0.912, point.Intensity, 1e-9)
		assert.Equal(t, models.LevelHigh, point.Level)
	}
}

func TestForecastNational_NotReadyWhileBuilding(t *testing.T) {
	engine := newTestEngine(t, map[models.FuelType]float64{models.FuelCoal: 100})
	anchor := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	windows := make(map[models.Region]models.CacheWindow)
	for _, region := range models.Regions {
		windows[region] = fullWindow(region, anchor)
	}
	// Truncate one region below the required size.
	short := windows[models.RegionEast]
	short.Samples = short.Samples[:2]
	windows[models.RegionEast] = short

	_, err := engine.ForecastNational(context.Background(), anchor, windows)
	require.ErrorIs(t, err, store.ErrForecastNotReady)
	assert.ErrorContains(t, err, "East: 2/6")
}

func TestPredict_ClampsNegativeOutput(t *testing.T) {
	dir := t.TempDir()
	writeTestModel(t, dir, models.RegionNorth, map[models.FuelType]float64{
		models.FuelCoal:  50,
		models.FuelSolar: -80,
	})
	model, err := LoadModel(filepath.Join(dir, "North.json"))
	require.NoError(t, err)

	anchor := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	steps, err := model.Predict(fullWindow(models.RegionNorth, anchor))
	require.NoError(t, err)
	require.Len(t, steps, models.ForecastSteps)

	for f, fuel := range models.GenerationFuels {
		switch fuel {
		case models.FuelCoal:
			assert.Equal(t, 50.0, steps[0][f])
		case models.FuelSolar:
			assert.Equal(t, 0.0, steps[0][f], "negative prediction must clamp to zero")
		default:
			assert.Equal(t, 0.0, steps[0][f])
		}
	}
}

func TestPredict_RejectsPartialWindow(t *testing.T) {
	engine := newTestEngine(t, map[models.FuelType]float64{models.FuelCoal: 100})
	anchor := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	window := fullWindow(models.RegionNorth, anchor)
	window.Samples = window.Samples[:3]

	_, err := engine.models[models.RegionNorth].Predict(window)
	require.Error(t, err)
}

func TestReadiness(t *testing.T) {
	counts := map[models.Region]int{
		models.RegionNorth:   6,
		models.RegionCentral: 6,
		models.RegionSouth:   4,
		models.RegionEast:    6,
		models.RegionOther:   0,
	}

	readiness := Readiness(counts)
	require.Len(t, readiness, len(models.Regions))

	reason := NotReadyReason(readiness)
	assert.Contains(t, reason, "South: 4/6")
	assert.Contains(t, reason, "Other: 0/6")
	assert.NotContains(t, reason, "North")

	for region := range counts {
		counts[region] = 6
	}
	assert.Empty(t, NotReadyReason(Readiness(counts)))
}
