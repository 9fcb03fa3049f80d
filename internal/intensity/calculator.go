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

// Package intensity derives national carbon intensity from regional fuel-mix
// samples using fixed lifecycle emission factors.
package intensity

import (
	"fmt"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"
)

// emissionFactors holds lifecycle emission factors in kg CO2e per kWh.
// Zero-emission fuels are listed explicitly so an unknown fuel is
// distinguishable from a clean one.
var emissionFactors = map[models.FuelType]float64{
	models.FuelNuclear:        0,
	models.FuelCoal:           0.912,
	models.FuelCoGen:          1.111,
	models.FuelIPPCoal:        0.919,
	models.FuelLNG:            0.389,
	models.FuelIPPLNG:         0.378,
	models.FuelOil:            0.818,
	models.FuelDiesel:         0.811,
	models.FuelHydro:          0,
	models.FuelWind:           0,
	models.FuelSolar:          0,
	models.FuelOtherRenewable: 1.002,
}

// EmissionFactor returns the lifecycle factor for a fuel, and false for fuels
// outside the accounting roster (including Storage).
func EmissionFactor(fuel models.FuelType) (float64, bool) {
	factor, ok := emissionFactors[fuel]
	return factor, ok
}

// Compute derives the national intensity record for one reporting slot from
// the latest sample of every region. Storage discharge is pulled out of the
// denominator and reported separately; a slot whose included fuels sum to
// zero yields ErrZeroGeneration.
func Compute(timestamp time.Time, samples []models.Sample) (*models.IntensityRecord, error) {
	generationMW := make(map[models.FuelType]float64)
	var storageMW float64

	for _, sample := range samples {
		for fuel, mw := range sample.FuelMix {
			if fuel == models.FuelStorage {
				storageMW += mw
				continue
			}
			if _, known := emissionFactors[fuel]; !known {
				// Unknown fuels are excluded from intensity, same as storage.
				continue
			}
			generationMW[fuel] += mw
		}
	}

	record, err := FromGeneration(timestamp, generationMW)
	if err != nil {
		return nil, err
	}
	record.StorageMW = storageMW
	return record, nil
}

// FromGeneration derives an intensity record from an aggregated per-fuel
// generation map over the included fuels. The forecast path reuses it for
// each predicted step.
func FromGeneration(timestamp time.Time, generationMW map[models.FuelType]float64) (*models.IntensityRecord, error) {
	var totalMW, totalEmissionsKg float64
	emissionsKg := make(map[models.FuelType]float64, len(generationMW))

	for fuel, mw := range generationMW {
		factor, known := emissionFactors[fuel]
		if !known {
			continue
		}
		totalMW += mw
		// MW over a slot is proportional to MWh; the factor is per kWh, so
		// the 1000x cancels between numerator and denominator.
		fuelEmissions := mw * 1000 * factor
		emissionsKg[fuel] = fuelEmissions
		totalEmissionsKg += fuelEmissions
	}

	if totalMW <= 0 {
		return nil, fmt.Errorf("%w at %s", store.ErrZeroGeneration, timestamp.Format(time.RFC3339))
	}

	mixPercent := make(map[models.FuelType]float64, len(generationMW))
	for fuel, mw := range generationMW {
		mixPercent[fuel] = mw / totalMW * 100
	}

	return &models.IntensityRecord{
		Timestamp:         timestamp,
		CarbonIntensity:   totalEmissionsKg / (totalMW * 1000),
		TotalGenerationMW: totalMW,
		GenerationMW:      generationMW,
		MixPercent:        mixPercent,
		EmissionsKg:       emissionsKg,
	}, nil
}
