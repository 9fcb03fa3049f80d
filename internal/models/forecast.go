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

package models

import (
	"fmt"
	"time"
)

// ForecastSteps is the fixed forecast horizon: 24 hours at 10-minute steps.
const ForecastSteps = 144

// CacheWindowSize is the number of samples a region needs before its
// forecast model can run.
const CacheWindowSize = 6

// Level is the user-facing simplification of a carbon intensity value.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ForecastPoint is one 10-minute-ahead step of the national forecast.
type ForecastPoint struct {
	Timestamp time.Time `json:"timestamp"`
	// Intensity is in kg CO2e/kWh.
	Intensity float64 `json:"intensity"`
	Level     Level   `json:"level"`
}

// ForecastSeries is the 24-hour national forecast anchored at the reporting
// slot that produced it. Points[0] is 10 minutes after Anchor.
type ForecastSeries struct {
	Anchor time.Time       `json:"anchor_timestamp"`
	Points []ForecastPoint `json:"points"`
}

// RegionReadiness reports how far a region's cache window has built toward
// forecast readiness.
type RegionReadiness struct {
	Region Region `json:"region"`
	Count  int    `json:"count"`
	Ready  bool   `json:"ready"`
}

func (r RegionReadiness) String() string {
	return fmt.Sprintf("%s: %d/%d", r.Region, r.Count, CacheWindowSize)
}

// Recommendation is the derived best-usage window over the forecast horizon.
type Recommendation struct {
	Message         string    `json:"message"`
	BestWindowStart time.Time `json:"best_window_start"`
	BestWindowEnd   time.Time `json:"best_window_end"`
}
