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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"go.uber.org/zap"
)

// cachePayload is the persisted portion of a sample. Region, timestamp and
// alignment live in their own columns.
type cachePayload struct {
	FuelMix map[models.FuelType]float64 `json:"fuel_mix"`
	Weather *models.Weather             `json:"weather,omitempty"`
}

// PushSample appends one sample to the region's rolling window and prunes the
// window back to size in the same transaction. Samples at or before the
// window head are rejected with ErrStaleSample.
func (s *Service) PushSample(ctx context.Context, sample models.Sample) (models.CacheWindow, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.CacheWindow{}, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to rollback transaction", zap.Error(err))
		}
	}()

	var headStr string
	err = tx.QueryRowContext(ctx, queryLatestCacheTimestamp, string(sample.Region)).Scan(&headStr)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.CacheWindow{}, fmt.Errorf("unable to read window head: %w", err)
	}
	if err == nil {
		head, parseErr := time.Parse(timeFormat, headStr)
		if parseErr != nil {
			return models.CacheWindow{}, fmt.Errorf("corrupt window head timestamp %q: %w", headStr, parseErr)
		}
		if !sample.Timestamp.After(head) {
			return models.CacheWindow{}, fmt.Errorf("%w: %s has head %s, got %s",
				store.ErrStaleSample, sample.Region, head.Format(timeFormat), sample.Timestamp.Format(timeFormat))
		}
	}

	payload, err := json.Marshal(cachePayload{FuelMix: sample.FuelMix, Weather: sample.Weather})
	if err != nil {
		return models.CacheWindow{}, fmt.Errorf("unable to marshal sample payload: %w", err)
	}

	_, err = tx.ExecContext(ctx, queryInsertCacheSample,
		string(sample.Region), sample.Timestamp.UTC().Format(timeFormat), sample.Misaligned, string(payload))
	if err != nil {
		return models.CacheWindow{}, fmt.Errorf("unable to insert sample: %w", err)
	}

	_, err = tx.ExecContext(ctx, queryPruneCacheWindow,
		string(sample.Region), string(sample.Region), models.CacheWindowSize)
	if err != nil {
		return models.CacheWindow{}, fmt.Errorf("unable to prune window: %w", err)
	}

	window, err := selectWindow(ctx, tx, sample.Region)
	if err != nil {
		return models.CacheWindow{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.CacheWindow{}, fmt.Errorf("unable to commit transaction: %w", err)
	}
	return window, nil
}

// SnapshotWindow reads a region's current window, oldest first.
func (s *Service) SnapshotWindow(ctx context.Context, region models.Region) (models.CacheWindow, error) {
	return selectWindow(ctx, s.db, region)
}

// WindowCounts reports the current sample count per region. Regions with no
// cached samples are reported with a zero count.
func (s *Service) WindowCounts(ctx context.Context) (map[models.Region]int, error) {
	counts := make(map[models.Region]int, len(models.Regions))
	for _, region := range models.Regions {
		counts[region] = 0
	}

	rows, err := s.db.QueryContext(ctx, queryCountCacheSamples)
	if err != nil {
		return nil, fmt.Errorf("unable to count cache samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var region string
		var count int
		if err := rows.Scan(&region, &count); err != nil {
			return nil, fmt.Errorf("unable to scan count row: %w", err)
		}
		counts[models.Region(region)] = count
	}
	return counts, rows.Err()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func selectWindow(ctx context.Context, q queryer, region models.Region) (models.CacheWindow, error) {
	rows, err := q.QueryContext(ctx, querySelectCacheWindow, string(region))
	if err != nil {
		return models.CacheWindow{}, fmt.Errorf("unable to select window: %w", err)
	}
	defer rows.Close()

	window := models.CacheWindow{Region: region}
	for rows.Next() {
		var tsStr, payloadStr string
		var misaligned bool
		if err := rows.Scan(&tsStr, &misaligned, &payloadStr); err != nil {
			return models.CacheWindow{}, fmt.Errorf("unable to scan sample row: %w", err)
		}

		ts, err := time.Parse(timeFormat, tsStr)
		if err != nil {
			return models.CacheWindow{}, fmt.Errorf("corrupt sample timestamp %q: %w", tsStr, err)
		}
		var payload cachePayload
		if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
			return models.CacheWindow{}, fmt.Errorf("corrupt sample payload at %s: %w", tsStr, err)
		}

		window.Samples = append(window.Samples, models.Sample{
			Region:     region,
			Timestamp:  ts,
			FuelMix:    payload.FuelMix,
			Weather:    payload.Weather,
			Misaligned: misaligned,
		})
	}
	return window, rows.Err()
}
