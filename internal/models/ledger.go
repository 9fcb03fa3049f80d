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
	"time"

	"github.com/shopspring/decimal"
)

// UsageEvent is one logged appliance run. Immutable once recorded.
type UsageEvent struct {
	Id              string    `db:"id"`
	UserId          string    `db:"user_id"`
	ApplianceType   string    `db:"appliance_type"`
	StartTime       time.Time `db:"start_time"`
	DurationMinutes int       `db:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at"`
}

// EndTime derives the event's end from its start and duration.
func (e UsageEvent) EndTime() time.Time {
	return e.StartTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// DailyCarbonProgress is one user's savings for a single date. Amounts are
// grams CO2e; negative daily values are possible when usage fell in
// higher-than-baseline periods.
type DailyCarbonProgress struct {
	UserId string    `db:"user_id"`
	Date   time.Time `db:"date"`
	// DailySavedGrams is the day's own total.
	DailySavedGrams decimal.Decimal `db:"daily_carbon_saved_g"`
	// CumulativeSavedGrams is month-to-date through this date.
	CumulativeSavedGrams decimal.Decimal `db:"cumulative_carbon_saved_g"`
}

// UserLedger is the hot per-user accounting state. Mutated only by the
// daily and monthly close operations.
type UserLedger struct {
	UserId                 string          `db:"id"`
	Name                   string          `db:"name"`
	CurrentLeague          League          `db:"current_league"`
	CurrentMonthSavedGrams decimal.Decimal `db:"current_month_carbon_saved_g"`
	TotalSavedGrams        decimal.Decimal `db:"total_carbon_saved_g"`
	LastCalculationDate    *time.Time      `db:"last_calculation_date"`
	CreatedAt              time.Time       `db:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at"`
}

// MonthlySummary is the immutable closing record written once per user per
// month.
type MonthlySummary struct {
	Id              string          `db:"id"`
	UserId          string          `db:"user_id"`
	Year            int             `db:"year"`
	Month           time.Month      `db:"month"`
	TotalSavedGrams decimal.Decimal `db:"total_carbon_saved_g"`
	LeagueAtStart   League          `db:"league_at_month_start"`
	LeagueAtEnd     League          `db:"league_at_month_end"`
	Promoted        bool            `db:"promoted"`
	// Supplemental usage stats for the month.
	EventsLogged      int             `db:"events_logged"`
	HoursShifted      decimal.Decimal `db:"hours_shifted"`
	TopAppliance      string          `db:"top_appliance"`
	TopApplianceHours decimal.Decimal `db:"top_appliance_hours"`
	CreatedAt         time.Time       `db:"created_at"`
}
