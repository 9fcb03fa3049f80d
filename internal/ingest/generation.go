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
	"io"
	"net/http"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"github.com/cenkalti/backoff/v4"
)

// RegionGeneration is one region's reported fuel mix for a slot.
type RegionGeneration struct {
	FuelMixMW       map[models.FuelType]float64
	ReportedTotalMW float64
}

// GenerationReading is the parsed national generation feed for one slot.
type GenerationReading struct {
	Timestamp time.Time
	Regions   map[models.Region]RegionGeneration
}

type generationFeedRegion struct {
	FuelsMW         map[string]float64 `json:"fuels_mw"`
	ReportedTotalMW float64            `json:"reported_total_mw"`
}

type generationFeedResponse struct {
	Timestamp string                          `json:"timestamp"`
	Regions   map[string]generationFeedRegion `json:"regions"`
}

// GenerationClient fetches the grid operator's live fuel-mix feed.
type GenerationClient struct {
	feedURL    string
	httpClient *http.Client
}

func NewGenerationClient(feedURL string, timeout time.Duration) *GenerationClient {
	return &GenerationClient{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves and parses the current generation reading, retrying
// transient failures with exponential backoff.
func (c *GenerationClient) Fetch(ctx context.Context) (*GenerationReading, error) {
	body, err := fetchWithRetry(ctx, c.httpClient, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generation feed: %v", store.ErrUpstreamUnavailable, err)
	}

	var response generationFeedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: malformed generation feed: %v", store.ErrUpstreamUnavailable, err)
	}

	timestamp, err := time.Parse(time.RFC3339, response.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: bad generation feed timestamp %q: %v",
			store.ErrUpstreamUnavailable, response.Timestamp, err)
	}

	reading := &GenerationReading{
		Timestamp: timestamp,
		Regions:   make(map[models.Region]RegionGeneration, len(response.Regions)),
	}
	for name, region := range response.Regions {
		fuelMix := make(map[models.FuelType]float64, len(region.FuelsMW))
		for fuel, mw := range region.FuelsMW {
			fuelMix[models.FuelType(fuel)] = mw
		}
		reading.Regions[models.Region(name)] = RegionGeneration{
			FuelMixMW:       fuelMix,
			ReportedTotalMW: region.ReportedTotalMW,
		}
	}
	return reading, nil
}

// fetchWithRetry issues a GET and retries network errors and 5xx responses.
// 4xx responses fail immediately.
func fetchWithRetry(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	var body []byte

	operation := func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for key, value := range headers {
			request.Header.Set(key, value)
		}

		response, err := client.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		if response.StatusCode >= 500 {
			return fmt.Errorf("status %d", response.StatusCode)
		}
		if response.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("status %d", response.StatusCode))
		}

		body, err = io.ReadAll(response.Body)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}
