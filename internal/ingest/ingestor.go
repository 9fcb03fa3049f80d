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

// Package ingest pulls the generation and weather feeds and turns them into
// validated per-region samples.
package ingest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ingestor coordinates the two upstream feeds for one reporting slot.
type Ingestor struct {
	generation   *GenerationClient
	weather      *WeatherClient
	sumTolerance float64
}

func NewIngestor(cfg models.GeneratorConfig) *Ingestor {
	return &Ingestor{
		generation:   NewGenerationClient(cfg.GenerationFeedURL, cfg.FetchTimeout),
		weather:      NewWeatherClient(cfg.WeatherFeedURL, cfg.WeatherAPIKey, cfg.FetchTimeout),
		sumTolerance: cfg.SumTolerance,
	}
}

// Collect fetches both feeds in parallel and builds one validated sample per
// region for the expected slot. A generation failure fails the tick; a
// weather failure degrades to samples without weather. Regions that fail
// validation are dropped from the result.
func (ing *Ingestor) Collect(ctx context.Context, expectedSlot time.Time) ([]models.Sample, error) {
	var reading *GenerationReading
	var weatherByRegion map[models.Region]*models.Weather

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		reading, err = ing.generation.Fetch(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		weatherByRegion, err = ing.weather.Fetch(groupCtx)
		if err != nil {
			// Weather is an enrichment, not a dependency.
			zap.L().Warn("Weather feed unavailable, continuing without weather", zap.Error(err))
			weatherByRegion = nil
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	misaligned := !reading.Timestamp.Equal(expectedSlot)
	if misaligned {
		zap.L().Warn("Feed timestamp does not match expected slot",
			zap.Time("expected", expectedSlot),
			zap.Time("reported", reading.Timestamp))
	}

	var samples []models.Sample
	for _, region := range models.Regions {
		regionGen, ok := reading.Regions[region]
		if !ok {
			zap.L().Warn("Region missing from generation feed", zap.String("region", string(region)))
			continue
		}
		if err := validateRegion(region, regionGen, ing.sumTolerance); err != nil {
			zap.L().Warn("Rejecting region sample", zap.String("region", string(region)), zap.Error(err))
			continue
		}

		sample := models.Sample{
			Region:     region,
			Timestamp:  reading.Timestamp,
			FuelMix:    regionGen.FuelMixMW,
			Misaligned: misaligned,
		}
		if region.HasWeather() {
			sample.Weather = weatherByRegion[region]
		}
		samples = append(samples, sample)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no region passed validation", store.ErrUpstreamUnavailable)
	}
	return samples, nil
}

// validateRegion enforces the per-region data-quality rules: no negative
// megawatt values, and the summed mix must agree with the feed's own total
// within the configured relative tolerance.
func validateRegion(region models.Region, gen RegionGeneration, tolerance float64) error {
	var sum float64
	for fuel, mw := range gen.FuelMixMW {
		if mw < 0 {
			return fmt.Errorf("negative generation for %s: %.2f MW", fuel, mw)
		}
		sum += mw
	}

	if gen.ReportedTotalMW > 0 {
		relativeDiff := math.Abs(sum-gen.ReportedTotalMW) / gen.ReportedTotalMW
		if relativeDiff > tolerance {
			return fmt.Errorf("mix sum %.2f MW disagrees with reported total %.2f MW (%.2f%%)",
				sum, gen.ReportedTotalMW, relativeDiff*100)
		}
	}
	return nil
}

// DiffRoster compares the observed fuel rosters of two consecutive samples
// and returns the fuels that appeared and disappeared, sorted.
func DiffRoster(previous, current map[models.FuelType]float64) (added, removed []models.FuelType) {
	for fuel := range current {
		if _, ok := previous[fuel]; !ok {
			added = append(added, fuel)
		}
	}
	for fuel := range previous {
		if _, ok := current[fuel]; !ok {
			removed = append(removed, fuel)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}
