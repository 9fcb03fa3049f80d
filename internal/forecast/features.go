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

package forecast

import (
	"fmt"

	"greenmoment-go/internal/models"
)

// Weather and calendar feature names as the training pipeline froze them.
const (
	featureAirTemperature   = "AirTemperature"
	featureWindSpeed        = "WindSpeed"
	featureSunshineDuration = "SunshineDuration"
	featurePrecipitation    = "Precipitation"
	featureYear             = "Year"
	featureMonth            = "Month"
	featureDay              = "Day"
	featureDayOfWeek        = "DayOfWeek"
	featureHour             = "Hour"
	featureMinute           = "Minute"
)

// buildInput flattens a window into the model's input vector, one sample
// after another, each sample laid out in the model's frozen feature order.
// Weather gaps contribute zero; standardization centers them afterwards.
func buildInput(window models.CacheWindow, featureOrder []string) ([]float64, error) {
	input := make([]float64, 0, window.Len()*len(featureOrder))
	for _, sample := range window.Samples {
		for _, feature := range featureOrder {
			value, err := featureValue(sample, feature)
			if err != nil {
				return nil, err
			}
			input = append(input, value)
		}
	}
	return input, nil
}

func featureValue(sample models.Sample, feature string) (float64, error) {
	switch feature {
	case featureAirTemperature:
		return weatherValue(sample.Weather, func(w *models.Weather) *float64 { return w.AirTemperature }), nil
	case featureWindSpeed:
		return weatherValue(sample.Weather, func(w *models.Weather) *float64 { return w.WindSpeed }), nil
	case featureSunshineDuration:
		return weatherValue(sample.Weather, func(w *models.Weather) *float64 { return w.SunshineDuration }), nil
	case featurePrecipitation:
		return weatherValue(sample.Weather, func(w *models.Weather) *float64 { return w.Precipitation }), nil
	case featureYear:
		return float64(sample.Timestamp.Year()), nil
	case featureMonth:
		return float64(sample.Timestamp.Month()), nil
	case featureDay:
		return float64(sample.Timestamp.Day()), nil
	case featureDayOfWeek:
		return float64(sample.Timestamp.Weekday()), nil
	case featureHour:
		return float64(sample.Timestamp.Hour()), nil
	case featureMinute:
		return float64(sample.Timestamp.Minute()), nil
	}

	fuel := models.FuelType(feature)
	for _, known := range models.GenerationFuels {
		if fuel == known {
			return sample.FuelMix[fuel], nil
		}
	}
	return 0, fmt.Errorf("unknown feature %q in model for %s", feature, sample.Region)
}

func weatherValue(weather *models.Weather, pick func(*models.Weather) *float64) float64 {
	if weather == nil {
		return 0
	}
	if value := pick(weather); value != nil {
		return *value
	}
	return 0
}
