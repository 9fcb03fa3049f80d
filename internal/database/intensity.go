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
	"strings"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// intensityDetail carries the per-fuel breakdowns in a single JSON column.
type intensityDetail struct {
	GenerationMW map[models.FuelType]float64 `json:"generation_mw"`
	MixPercent   map[models.FuelType]float64 `json:"generation_mix"`
	EmissionsKg  map[models.FuelType]float64 `json:"emissions_kg"`
}

// AppendIntensity adds one record to the historical log. A record already
// present for the timestamp yields ErrDuplicateTick; the log is never
// overwritten.
func (s *Service) AppendIntensity(ctx context.Context, record *models.IntensityRecord) error {
	tsStr := record.Timestamp.UTC().Format(timeFormat)

	var count int
	if err := s.db.QueryRowContext(ctx, queryIntensityExists, tsStr).Scan(&count); err != nil {
		return fmt.Errorf("unable to check for existing tick: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", store.ErrDuplicateTick, tsStr)
	}

	detail, err := json.Marshal(intensityDetail{
		GenerationMW: record.GenerationMW,
		MixPercent:   record.MixPercent,
		EmissionsKg:  record.EmissionsKg,
	})
	if err != nil {
		return fmt.Errorf("unable to marshal intensity detail: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryInsertIntensity,
		tsStr, record.CarbonIntensity, record.TotalGenerationMW, record.StorageMW, string(detail))
	if err != nil {
		// Backstop for concurrent appenders racing past the pre-check.
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %s", store.ErrDuplicateTick, tsStr)
		}
		return fmt.Errorf("unable to insert intensity record: %w", err)
	}
	return nil
}

// LatestIntensity returns the most recent record, or nil for an empty log.
func (s *Service) LatestIntensity(ctx context.Context) (*models.IntensityRecord, error) {
	record, err := scanIntensity(s.db.QueryRowContext(ctx, querySelectLatestIntensity))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// IntensityNear returns the record closest in time to at, or nil when the
// closest record falls outside the within tolerance.
func (s *Service) IntensityNear(ctx context.Context, at time.Time, within time.Duration) (*models.IntensityRecord, error) {
	atStr := at.UTC().Format(timeFormat)
	record, err := scanIntensity(s.db.QueryRowContext(ctx, querySelectNearestIntensity, atStr))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	distance := record.Timestamp.Sub(at)
	if distance < 0 {
		distance = -distance
	}
	if distance > within {
		return nil, nil
	}
	return record, nil
}

// RecordFluctuation persists a fuel-roster change note.
func (s *Service) RecordFluctuation(ctx context.Context, note store.FluctuationNote) error {
	_, err := s.db.ExecContext(ctx, queryInsertFluctuation,
		uuid.New().String(),
		note.Timestamp.UTC().Format(timeFormat),
		string(note.Region),
		joinFuels(note.Added),
		joinFuels(note.Removed))
	if err != nil {
		return fmt.Errorf("unable to record fluctuation: %w", err)
	}
	return nil
}

func joinFuels(fuels []models.FuelType) string {
	names := make([]string, len(fuels))
	for i, fuel := range fuels {
		names[i] = string(fuel)
	}
	return strings.Join(names, ",")
}

func scanIntensity(row *sql.Row) (*models.IntensityRecord, error) {
	var tsStr, detailStr string
	var record models.IntensityRecord
	err := row.Scan(&tsStr, &record.CarbonIntensity, &record.TotalGenerationMW, &record.StorageMW, &detailStr)
	if err != nil {
		return nil, err
	}

	record.Timestamp, err = time.Parse(timeFormat, tsStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt intensity timestamp %q: %w", tsStr, err)
	}

	var detail intensityDetail
	if err := json.Unmarshal([]byte(detailStr), &detail); err != nil {
		return nil, fmt.Errorf("corrupt intensity detail at %s: %w", tsStr, err)
	}
	record.GenerationMW = detail.GenerationMW
	record.MixPercent = detail.MixPercent
	record.EmissionsKg = detail.EmissionsKg
	return &record, nil
}
