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

package store

import (
	"context"
	"errors"
	"time"

	"greenmoment-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	// ErrDuplicateTick is returned when a second intensity record is
	// appended for a timestamp already in the historical log. Overlapping
	// generator instances must be rejected, never overwritten.
	ErrDuplicateTick = errors.New("duplicate intensity tick")

	// ErrStaleSample is returned when a pushed sample is not strictly newer
	// than the region's cached window head.
	ErrStaleSample = errors.New("sample not newer than cached window")

	// ErrZeroGeneration marks a data-quality failure: a tick whose included
	// fuels sum to zero produces no intensity record.
	ErrZeroGeneration = errors.New("zero included generation")

	// ErrForecastNotReady is surfaced while at least one region's window is
	// still building toward the full size.
	ErrForecastNotReady = errors.New("forecast not ready")

	// ErrOrderingViolation is returned when a monthly close is attempted
	// before the daily close for the month's last day has completed.
	ErrOrderingViolation = errors.New("monthly close before final daily close")

	// ErrUpstreamUnavailable wraps failures of an upstream feed.
	ErrUpstreamUnavailable = errors.New("upstream source unavailable")

	ErrUserNotFound = errors.New("user not found")
)

// FluctuationNote records a change in the observed fuel-type roster between
// consecutive ticks, for operational visibility.
type FluctuationNote struct {
	Timestamp time.Time
	Region    models.Region
	Added     []models.FuelType
	Removed   []models.FuelType
}

// DailyCloseParams applies one user's daily close atomically: the daily
// progress row and the user ledger must move together.
type DailyCloseParams struct {
	UserId          string
	Date            time.Time
	DailyGrams      decimal.Decimal
	CumulativeGrams decimal.Decimal
}

// MonthlyCloseParams applies one user's monthly close atomically: the
// immutable summary, the league advance, and the month-counter reset.
type MonthlyCloseParams struct {
	UserId            string
	Year              int
	Month             time.Month
	TotalGrams        decimal.Decimal
	LeagueAtStart     models.League
	LeagueAtEnd       models.League
	Promoted          bool
	EventsLogged      int
	HoursShifted      decimal.Decimal
	TopAppliance      string
	TopApplianceHours decimal.Decimal
}

// MonthEventStats summarizes a user's appliance usage over a month.
type MonthEventStats struct {
	EventsLogged      int
	HoursShifted      decimal.Decimal
	TopAppliance      string
	TopApplianceHours decimal.Decimal
}

// GridStore is the persistence contract for the ingestion/forecast pipeline:
// rolling cache windows, the append-only intensity log, and fluctuation notes.
type GridStore interface {
	// --- Rolling cache ---
	PushSample(ctx context.Context, sample models.Sample) (models.CacheWindow, error)
	SnapshotWindow(ctx context.Context, region models.Region) (models.CacheWindow, error)
	WindowCounts(ctx context.Context) (map[models.Region]int, error)

	// --- Historical intensity log ---
	AppendIntensity(ctx context.Context, record *models.IntensityRecord) error
	LatestIntensity(ctx context.Context) (*models.IntensityRecord, error)
	IntensityNear(ctx context.Context, at time.Time, within time.Duration) (*models.IntensityRecord, error)

	// --- Operational notes ---
	RecordFluctuation(ctx context.Context, note FluctuationNote) error
}

// LedgerStore is the persistence contract for the accounting side: users,
// usage events, daily progress, and monthly summaries.
type LedgerStore interface {
	// --- Users ---
	CreateUser(ctx context.Context, userId, name string) (*models.UserLedger, error)
	GetUsers(ctx context.Context) ([]models.UserLedger, error)
	GetUserLedger(ctx context.Context, userId string) (*models.UserLedger, error)

	// --- Usage events ---
	RecordUsageEvent(ctx context.Context, event models.UsageEvent) error
	EventsForDate(ctx context.Context, userId string, date time.Time) ([]models.UsageEvent, error)
	MonthEventStats(ctx context.Context, userId string, year int, month time.Month) (MonthEventStats, error)

	// --- Daily close ---
	GetDailyProgress(ctx context.Context, userId string, date time.Time) (*models.DailyCarbonProgress, error)
	MonthTotalBefore(ctx context.Context, userId string, date time.Time) (decimal.Decimal, error)
	ApplyDailyClose(ctx context.Context, params DailyCloseParams) error
	MarkDayClosed(ctx context.Context, date time.Time) error
	IsDayClosed(ctx context.Context, date time.Time) (bool, error)

	// --- Monthly close ---
	MonthTotal(ctx context.Context, userId string, year int, month time.Month) (decimal.Decimal, error)
	SummariesForMonth(ctx context.Context, year int, month time.Month) ([]models.MonthlySummary, error)
	ApplyMonthlyClose(ctx context.Context, params MonthlyCloseParams) (*models.MonthlySummary, error)

	// --- Lifecycle ---
	Close()
}
