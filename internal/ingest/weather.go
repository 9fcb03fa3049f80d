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

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"
)

// weatherObservation mirrors one station observation in the weather feed.
// The feed reports -99 family values for broken sensors; those are dropped
// during averaging.
type weatherObservation struct {
	Region           string   `json:"region"`
	AirTemperature   *float64 `json:"air_temperature"`
	WindSpeed        *float64 `json:"wind_speed"`
	SunshineDuration *float64 `json:"sunshine_duration"`
	Precipitation    *float64 `json:"precipitation"`
}

type weatherFeedResponse struct {
	Observations []weatherObservation `json:"observations"`
}

// sentinelFloor marks the bottom of the feed's invalid-value range. Anything
// at or below it is a broken sensor, not a reading.
const sentinelFloor = -90

// WeatherClient fetches station observations and averages them per region.
type WeatherClient struct {
	feedURL    string
	apiKey     string
	httpClient *http.Client
}

func NewWeatherClient(feedURL, apiKey string, timeout time.Duration) *WeatherClient {
	return &WeatherClient{
		feedURL:    feedURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns per-region weather averaged over each region's stations.
// Regions with no usable observations are absent from the result.
func (c *WeatherClient) Fetch(ctx context.Context) (map[models.Region]*models.Weather, error) {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = c.apiKey
	}

	body, err := fetchWithRetry(ctx, c.httpClient, c.feedURL, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: weather feed: %v", store.ErrUpstreamUnavailable, err)
	}

	var response weatherFeedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: malformed weather feed: %v", store.ErrUpstreamUnavailable, err)
	}

	type accumulator struct {
		sums   [4]float64
		counts [4]int
	}
	byRegion := make(map[models.Region]*accumulator)

	for _, observation := range response.Observations {
		region := models.Region(observation.Region)
		if !region.HasWeather() {
			continue
		}
		acc := byRegion[region]
		if acc == nil {
			acc = &accumulator{}
			byRegion[region] = acc
		}
		for i, value := range []*float64{
			observation.AirTemperature, observation.WindSpeed,
			observation.SunshineDuration, observation.Precipitation,
		} {
			if value == nil || *value <= sentinelFloor {
				continue
			}
			acc.sums[i] += *value
			acc.counts[i]++
		}
	}

	result := make(map[models.Region]*models.Weather, len(byRegion))
	for region, acc := range byRegion {
		weather := &models.Weather{}
		fields := []**float64{
			&weather.AirTemperature, &weather.WindSpeed,
			&weather.SunshineDuration, &weather.Precipitation,
		}
		usable := false
		for i, field := range fields {
			if acc.counts[i] == 0 {
				continue
			}
			mean := acc.sums[i] / float64(acc.counts[i])
			*field = &mean
			usable = true
		}
		if usable {
			result[region] = weather
		}
	}
	return result, nil
}
