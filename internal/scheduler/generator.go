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

// Package scheduler drives the periodic work: the 10-minute generator tick
// and the daily/monthly closes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"greenmoment-go/internal/artifact"
	"greenmoment-go/internal/forecast"
	"greenmoment-go/internal/ingest"
	"greenmoment-go/internal/intensity"
	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"go.uber.org/zap"
)

// GeneratorConfig contains configuration for Generator
type GeneratorConfig struct {
	GridStore store.GridStore
	Ingestor  *ingest.Ingestor
	Engine    *forecast.Engine
	Writer    *artifact.Writer
	// TickOffset shifts each tick past its reporting slot so the upstream
	// has published by the time we fetch.
	TickOffset time.Duration
}

// Generator runs the ingest -> intensity -> forecast -> publish pipeline on
// every reporting slot.
type Generator struct {
	gridStore  store.GridStore
	ingestor   *ingest.Ingestor
	engine     *forecast.Engine
	writer     *artifact.Writer
	tickOffset time.Duration

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{
		gridStore:  cfg.GridStore,
		ingestor:   cfg.Ingestor,
		engine:     cfg.Engine,
		writer:     cfg.Writer,
		tickOffset: cfg.TickOffset,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start begins the tick loop.
func (g *Generator) Start(ctx context.Context) {
	zap.L().Info("Starting generator",
		zap.Duration("interval", models.ReportingInterval),
		zap.Duration("tick_offset", g.tickOffset))
	go g.tickLoop(ctx)
}

// Stop gracefully stops the generator.
func (g *Generator) Stop() {
	zap.L().Info("Stopping generator")
	close(g.stopChan)
	<-g.doneChan
	zap.L().Info("Generator stopped")
}

func (g *Generator) tickLoop(ctx context.Context) {
	defer close(g.doneChan)

	for {
		next := g.nextTick(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			slot := models.AlignToSlot(next)
			if err := g.RunOnce(ctx, slot); err != nil {
				zap.L().Error("Tick failed",
					zap.Time("slot", slot),
					zap.Error(err))
			}
		case <-g.stopChan:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// nextTick returns the next wall-clock instant at the configured offset past
// a reporting slot, strictly after now.
func (g *Generator) nextTick(now time.Time) time.Time {
	tick := models.AlignToSlot(now).Add(g.tickOffset)
	if !tick.After(now) {
		tick = tick.Add(models.ReportingInterval)
	}
	return tick
}

// RunOnce executes the full pipeline for one reporting slot: collect
// samples, roll the cache, append intensity, forecast, and publish. An
// upstream failure skips the tick entirely, leaving cache, log, and the
// published artifact untouched.
func (g *Generator) RunOnce(ctx context.Context, slot time.Time) error {
	samples, err := g.ingestor.Collect(ctx, slot)
	if err != nil {
		return err
	}

	latest := g.rollCache(ctx, samples)
	if len(latest) == 0 {
		return fmt.Errorf("no sample accepted for slot %s", slot.Format(time.RFC3339))
	}

	record, err := intensity.Compute(slot, latest)
	if err != nil {
		return err
	}

	if err := g.gridStore.AppendIntensity(ctx, record); err != nil {
		if !errors.Is(err, store.ErrDuplicateTick) {
			return err
		}
		zap.L().Warn("Slot already recorded, keeping existing record", zap.Time("slot", slot))
	}

	return g.publish(ctx, slot, record, latest)
}

// rollCache pushes each sample into its region's window, recording roster
// fluctuations against the previous head first. Stale samples are skipped
// without failing the tick.
func (g *Generator) rollCache(ctx context.Context, samples []models.Sample) []models.Sample {
	var accepted []models.Sample
	for _, sample := range samples {
		previous, err := g.gridStore.SnapshotWindow(ctx, sample.Region)
		if err != nil {
			zap.L().Error("Failed to snapshot window",
				zap.String("region", string(sample.Region)), zap.Error(err))
			continue
		}
		if head := previous.Latest(); head != nil {
			added, removed := ingest.DiffRoster(head.FuelMix, sample.FuelMix)
			if len(added) > 0 || len(removed) > 0 {
				note := store.FluctuationNote{
					Timestamp: sample.Timestamp,
					Region:    sample.Region,
					Added:     added,
					Removed:   removed,
				}
				if err := g.gridStore.RecordFluctuation(ctx, note); err != nil {
					zap.L().Error("Failed to record fluctuation", zap.Error(err))
				}
			}
		}

		if _, err := g.gridStore.PushSample(ctx, sample); err != nil {
			if errors.Is(err, store.ErrStaleSample) {
				zap.L().Warn("Skipping stale sample",
					zap.String("region", string(sample.Region)),
					zap.Time("timestamp", sample.Timestamp))
				continue
			}
			zap.L().Error("Failed to push sample",
				zap.String("region", string(sample.Region)), zap.Error(err))
			continue
		}
		accepted = append(accepted, sample)
	}
	return accepted
}

// publish assembles and writes the combined artifact for the slot. Forecast
// failures degrade: the previous forecast is re-emitted marked stale, or the
// artifact ships with a structured unavailability reason.
func (g *Generator) publish(ctx context.Context, slot time.Time, record *models.IntensityRecord, samples []models.Sample) error {
	counts, err := g.gridStore.WindowCounts(ctx)
	if err != nil {
		return err
	}
	readiness := forecast.Readiness(counts)
	notReadyReason := forecast.NotReadyReason(readiness)

	doc := &models.Artifact{
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Status:      "complete",
		Current:     g.currentConditions(record, samples),
	}
	if notReadyReason != "" {
		doc.Status = "building_cache"
	}

	series, forecastErr := g.forecastIfReady(ctx, slot, notReadyReason)
	switch {
	case forecastErr == nil:
		location := g.engine.Location()
		doc.Forecast = forecastArtifact(series)
		recommendation := forecast.BestWindow(series, location)
		doc.Recommendation = models.RecommendationArtifact{
			Message:         recommendation.Message,
			BestWindowStart: recommendation.BestWindowStart.In(location).Format(time.RFC3339),
			BestWindowEnd:   recommendation.BestWindowEnd.In(location).Format(time.RFC3339),
		}
	case errors.Is(forecastErr, store.ErrForecastNotReady):
		doc.Forecast = models.ForecastArtifact{Available: false, Reason: forecastErr.Error()}
	default:
		zap.L().Error("Forecast failed, attempting to re-emit previous forecast", zap.Error(forecastErr))
		doc.Forecast = g.previousForecast(forecastErr)
	}

	return g.writer.Publish(doc)
}

func (g *Generator) forecastIfReady(ctx context.Context, slot time.Time, notReadyReason string) (*models.ForecastSeries, error) {
	if notReadyReason != "" {
		return nil, fmt.Errorf("%w: %s", store.ErrForecastNotReady, notReadyReason)
	}

	windows := make(map[models.Region]models.CacheWindow, len(models.Regions))
	for _, region := range models.Regions {
		window, err := g.gridStore.SnapshotWindow(ctx, region)
		if err != nil {
			return nil, err
		}
		windows[region] = window
	}
	return g.engine.ForecastNational(ctx, slot, windows)
}

// previousForecast recovers the last published forecast and marks it stale.
// With nothing to recover, the artifact carries the failure reason instead.
func (g *Generator) previousForecast(cause error) models.ForecastArtifact {
	previous, err := g.writer.Load()
	if err != nil || previous == nil || !previous.Forecast.Available {
		return models.ForecastArtifact{
			Available: false,
			Reason:    fmt.Sprintf("forecast failed: %v", cause),
		}
	}
	stale := previous.Forecast
	stale.Stale = true
	return stale
}

func (g *Generator) currentConditions(record *models.IntensityRecord, samples []models.Sample) *models.CurrentConditions {
	weather := make(map[models.Region]*models.Weather)
	for _, sample := range samples {
		if sample.Weather != nil {
			weather[sample.Region] = sample.Weather
		}
	}
	if len(weather) == 0 {
		weather = nil
	}

	return &models.CurrentConditions{
		Timestamp:         record.Timestamp.UTC().Format(time.RFC3339),
		IntensityGrams:    int(record.GramsPerKWh() + 0.5),
		Level:             forecast.Classify(record.CarbonIntensity),
		TotalGenerationMW: record.TotalGenerationMW,
		GenerationMix:     record.MixPercent,
		GenerationMW:      record.GenerationMW,
		Weather:           weather,
	}
}

func forecastArtifact(series *models.ForecastSeries) models.ForecastArtifact {
	entries := make([]models.ArtifactForecastEntry, 0, len(series.Points))
	for _, point := range series.Points {
		entries = append(entries, models.ArtifactForecastEntry{
			Timestamp:      point.Timestamp.UTC().Format(time.RFC3339),
			IntensityGrams: int(point.Intensity*1000 + 0.5),
			Level:          point.Level,
		})
	}
	return models.ForecastArtifact{Available: true, Points: entries}
}
