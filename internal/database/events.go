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
	"fmt"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordUsageEvent persists one appliance run. A missing id is generated.
func (s *Service) RecordUsageEvent(ctx context.Context, event models.UsageEvent) error {
	if event.UserId == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	if event.ApplianceType == "" {
		return fmt.Errorf("appliance type cannot be empty")
	}
	if event.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be positive, got %d", event.DurationMinutes)
	}

	if _, err := s.GetUserLedger(ctx, event.UserId); err != nil {
		return err
	}

	id := event.Id
	if id == "" {
		id = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, queryInsertUsageEvent,
		id, event.UserId, event.ApplianceType,
		event.StartTime.UTC().Format(timeFormat), event.DurationMinutes)
	if err != nil {
		return fmt.Errorf("unable to insert usage event: %w", err)
	}
	return nil
}

// EventsForDate returns a user's events starting on the given civil date,
// ordered by start time.
func (s *Service) EventsForDate(ctx context.Context, userId string, date time.Time) ([]models.UsageEvent, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return s.eventsInRange(ctx, userId, dayStart, dayStart.AddDate(0, 0, 1))
}

// MonthEventStats summarizes a user's events over a calendar month.
func (s *Service) MonthEventStats(ctx context.Context, userId string, year int, month time.Month) (store.MonthEventStats, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	events, err := s.eventsInRange(ctx, userId, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return store.MonthEventStats{}, err
	}

	stats := store.MonthEventStats{EventsLogged: len(events)}
	hoursByAppliance := make(map[string]decimal.Decimal)
	for _, event := range events {
		hours := decimal.NewFromInt(int64(event.DurationMinutes)).Div(decimal.NewFromInt(60))
		stats.HoursShifted = stats.HoursShifted.Add(hours)
		hoursByAppliance[event.ApplianceType] = hoursByAppliance[event.ApplianceType].Add(hours)
	}
	for appliance, hours := range hoursByAppliance {
		if hours.GreaterThan(stats.TopApplianceHours) ||
			(hours.Equal(stats.TopApplianceHours) && stats.TopAppliance == "") {
			stats.TopAppliance = appliance
			stats.TopApplianceHours = hours
		}
	}
	return stats, nil
}

func (s *Service) eventsInRange(ctx context.Context, userId string, from, to time.Time) ([]models.UsageEvent, error) {
	rows, err := s.db.QueryContext(ctx, querySelectEventsInRange,
		userId, from.UTC().Format(timeFormat), to.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("unable to select usage events: %w", err)
	}
	defer rows.Close()

	var events []models.UsageEvent
	for rows.Next() {
		var event models.UsageEvent
		var startStr string
		var createdAt time.Time
		if err := rows.Scan(&event.Id, &event.UserId, &event.ApplianceType,
			&startStr, &event.DurationMinutes, &createdAt); err != nil {
			return nil, fmt.Errorf("unable to scan usage event: %w", err)
		}
		event.StartTime, err = time.Parse(timeFormat, startStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt event start time %q: %w", startStr, err)
		}
		event.CreatedAt = createdAt
		events = append(events, event)
	}
	return events, rows.Err()
}
