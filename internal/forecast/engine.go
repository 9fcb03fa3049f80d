/**
 * Copyright 2025-present Green Moment
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package forecast runs the pretrained per-region generation models and
// aggregates their output into the national 24-hour intensity forecast.
package forecast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"greenmoment-go/internal/intensity"
	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine holds the loaded regional models and the grid's local timezone.
type Engine struct {
	models   map[models.Region]*Model
	location *time.Location
}

func NewEngine(modelsDir, timezone string) (*Engine, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}

	loaded, err := LoadModels(modelsDir)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Forecast models loaded",
		zap.Int("regions", len(loaded)),
		zap.String("timezone", timezone))
	return &Engine{models: loaded, location: location}, nil
}

// Location exposes the grid timezone for downstream formatting.
func (e *Engine) Location() *time.Location {
	return e.location
}

// Readiness turns per-region window counts into the readiness report.
func Readiness(counts map[models.Region]int) []models.RegionReadiness {
	readiness := make([]models.RegionReadiness, 0, len(models.Regions))
	for _, region := range models.Regions {
		count := counts[region]
		readiness = append(readiness, models.RegionReadiness{
			Region: region,
			Count:  count,
			Ready:  count >= models.CacheWindowSize,
		})
	}
	return readiness
}

// NotReadyReason formats the building-cache message listing each region's
// progress, or returns "" when every region is ready.
func NotReadyReason(readiness []models.RegionReadiness) string {
	reason := ""
	for _, r := range readiness {
		if r.Ready {
			continue
		}
		if reason == "" {
			reason = "building cache: " + r.String()
		} else {
			reason += ", " + r.String()
		}
	}
	return reason
}

// ForecastNational predicts every region's per-fuel generation for the full
// horizon, sums them per step, and derives each step's national intensity.
// Every region's window must be full; otherwise ErrForecastNotReady carries
// the per-region progress.
func (e *Engine) ForecastNational(ctx context.Context, anchor time.Time, windows map[models.Region]models.CacheWindow) (*models.ForecastSeries, error) {
	counts := make(map[models.Region]int, len(windows))
	for region, window := range windows {
		counts[region] = window.Len()
	}
	readiness := Readiness(counts)
	if reason := NotReadyReason(readiness); reason != "" {
		return nil, fmt.Errorf("%w: %s", store.ErrForecastNotReady, reason)
	}

	var mu sync.Mutex
	regional := make(map[models.Region][][]float64, len(models.Regions))

	group, _ := errgroup.WithContext(ctx)
	for _, region := range models.Regions {
		region := region
		group.Go(func() error {
			steps, err := e.models[region].Predict(windows[region])
			if err != nil {
				return fmt.Errorf("region %s: %w", region, err)
			}
			mu.Lock()
			regional[region] = steps
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	series := &models.ForecastSeries{
		Anchor: anchor,
		Points: make([]models.ForecastPoint, 0, models.ForecastSteps),
	}

	for step := 0; step < models.ForecastSteps; step++ {
		generationMW := make(map[models.FuelType]float64, len(models.GenerationFuels))
		for _, region := range models.Regions {
			values := regional[region][step]
			for f, fuel := range models.GenerationFuels {
				generationMW[fuel] += values[f]
			}
		}

		stepTime := anchor.Add(time.Duration(step+1) * models.ReportingInterval)
		record, err := intensity.FromGeneration(stepTime, generationMW)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}

		series.Points = append(series.Points, models.ForecastPoint{
			Timestamp: stepTime,
			Intensity: record.CarbonIntensity,
			Level:     Classify(record.CarbonIntensity),
		})
	}
	return series, nil
}
