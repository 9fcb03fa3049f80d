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

// Artifact is the combined current+forecast output published after every
// tick. Read-facing consumers only ever read the latest published artifact.
type Artifact struct {
	LastUpdated string `json:"last_updated"`
	// Status is "complete" once every region's window is full, otherwise
	// "building_cache".
	Status         string                 `json:"status"`
	Current        *CurrentConditions     `json:"current"`
	Forecast       ForecastArtifact       `json:"forecast"`
	Recommendation RecommendationArtifact `json:"recommendation"`
}

// CurrentConditions reports the latest computed intensity record.
type CurrentConditions struct {
	Timestamp string `json:"timestamp"`
	// IntensityGrams is in g CO2e/kWh.
	IntensityGrams    int                  `json:"gCO2e_kWh"`
	Level             Level                `json:"level"`
	TotalGenerationMW float64              `json:"total_generation_mw"`
	GenerationMix     map[FuelType]float64 `json:"generation_mix"`
	GenerationMW      map[FuelType]float64 `json:"generation_mw"`
	Weather           map[Region]*Weather  `json:"weather,omitempty"`
}

// ForecastArtifact carries either the 144-step forecast or the structured
// reason it is unavailable.
type ForecastArtifact struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	// Stale marks a re-emitted earlier forecast kept after a failed
	// forecast step, so consumers see the best available series plus an
	// explicit staleness flag.
	Stale  bool                    `json:"stale,omitempty"`
	Points []ArtifactForecastEntry `json:"points,omitempty"`
}

// ArtifactForecastEntry is one forecast step in the published artifact.
type ArtifactForecastEntry struct {
	Timestamp      string `json:"timestamp"`
	IntensityGrams int    `json:"gCO2e_kWh"`
	Level          Level  `json:"level"`
}

// RecommendationArtifact is the published best-usage window.
type RecommendationArtifact struct {
	Message         string `json:"message"`
	BestWindowStart string `json:"best_window_start"`
	BestWindowEnd   string `json:"best_window_end"`
}
