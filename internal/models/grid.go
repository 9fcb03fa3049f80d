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

import "time"

// Region identifies one of the grid's reporting regions.
type Region string

const (
	RegionNorth   Region = "North"
	RegionCentral Region = "Central"
	RegionSouth   Region = "South"
	RegionEast    Region = "East"
	// RegionOther aggregates co-generation and small purchased plants that
	// cannot be attributed to a geographic region. It carries no weather.
	RegionOther Region = "Other"
)

// Regions lists every tracked region in reporting order.
var Regions = []Region{RegionNorth, RegionCentral, RegionSouth, RegionEast, RegionOther}

// HasWeather reports whether weather observations exist for the region.
func (r Region) HasWeather() bool {
	return r != RegionOther
}

// FuelType identifies a generation source in the grid's fuel mix.
type FuelType string

const (
	FuelNuclear        FuelType = "Nuclear"
	FuelCoal           FuelType = "Coal"
	FuelCoGen          FuelType = "Co-Gen"
	FuelIPPCoal        FuelType = "IPP-Coal"
	FuelLNG            FuelType = "LNG"
	FuelIPPLNG         FuelType = "IPP-LNG"
	FuelOil            FuelType = "Oil"
	FuelDiesel         FuelType = "Diesel"
	FuelHydro          FuelType = "Hydro"
	FuelWind           FuelType = "Wind"
	FuelSolar          FuelType = "Solar"
	FuelOtherRenewable FuelType = "Other_Renewable"
	// FuelStorage discharges previously generated electricity. It is metered
	// and reported for transparency but excluded from intensity accounting.
	FuelStorage FuelType = "Storage"
)

// GenerationFuels lists the fuels that count toward carbon intensity, in the
// fixed ordering the forecast models were trained with. Storage is not here.
var GenerationFuels = []FuelType{
	FuelNuclear, FuelCoal, FuelCoGen, FuelIPPCoal, FuelLNG, FuelIPPLNG,
	FuelOil, FuelDiesel, FuelHydro, FuelWind, FuelSolar, FuelOtherRenewable,
}

// ReportingInterval is the grid's sample cadence.
const ReportingInterval = 10 * time.Minute

// AlignToSlot rounds t down to the nearest 10-minute reporting slot.
func AlignToSlot(t time.Time) time.Time {
	return t.Truncate(ReportingInterval)
}

// Weather holds regional weather observations averaged over the region's
// stations. Individual fields are nil when the upstream reported nothing
// usable for that metric.
type Weather struct {
	AirTemperature   *float64 `json:"air_temperature"`
	WindSpeed        *float64 `json:"wind_speed"`
	SunshineDuration *float64 `json:"sunshine_duration"`
	Precipitation    *float64 `json:"precipitation"`
}

// Sample is one validated generation-mix + weather observation for a region
// at a single reporting slot.
type Sample struct {
	Region    Region               `json:"region"`
	Timestamp time.Time            `json:"timestamp"`
	FuelMix   map[FuelType]float64 `json:"fuel_mix"`
	Weather   *Weather             `json:"weather,omitempty"`
	// Misaligned marks a sample whose upstream timestamp did not match the
	// expected reporting slot. It is cached anyway.
	Misaligned bool `json:"misaligned,omitempty"`
}

// CacheWindow is the rolling per-region buffer of the most recent samples,
// ordered oldest first.
type CacheWindow struct {
	Region  Region
	Samples []Sample
}

func (w CacheWindow) Len() int {
	return len(w.Samples)
}

// Latest returns the most recent sample, or nil for an empty window.
func (w CacheWindow) Latest() *Sample {
	if len(w.Samples) == 0 {
		return nil
	}
	return &w.Samples[len(w.Samples)-1]
}

// IntensityRecord is the derived national carbon intensity for one reporting
// slot. Records are immutable once appended to the historical log.
type IntensityRecord struct {
	Timestamp time.Time `json:"timestamp"`
	// CarbonIntensity is in kg CO2e per kWh.
	CarbonIntensity float64 `json:"carbon_intensity_kg_per_kwh"`
	// TotalGenerationMW excludes storage.
	TotalGenerationMW float64 `json:"total_generation_mw"`
	// StorageMW is reported for transparency only.
	StorageMW float64 `json:"storage_mw"`
	// GenerationMW is the per-fuel breakdown over the included fuels.
	GenerationMW map[FuelType]float64 `json:"generation_mw"`
	// MixPercent is computed over the included-fuel denominator.
	MixPercent map[FuelType]float64 `json:"generation_mix"`
	// EmissionsKg is the per-fuel emissions breakdown for the slot.
	EmissionsKg map[FuelType]float64 `json:"emissions_kg"`
}

// GramsPerKWh converts the record's intensity to g CO2e/kWh.
func (r IntensityRecord) GramsPerKWh() float64 {
	return r.CarbonIntensity * 1000
}
