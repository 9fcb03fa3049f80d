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

// Package accounting runs the daily and monthly closes over the user ledger.
package accounting

import (
	"context"
	"fmt"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// intensityLookupTolerance bounds how far from an event slot a historical
// intensity record may sit and still be used for it.
const intensityLookupTolerance = time.Hour

// Calculator computes per-user carbon savings against the fixed baseline.
type Calculator struct {
	ledger        store.LedgerStore
	grid          store.GridStore
	catalog       map[string]float64
	baselineGrams decimal.Decimal
}

func NewCalculator(ledger store.LedgerStore, grid store.GridStore, catalog map[string]float64, baselineGrams float64) *Calculator {
	return &Calculator{
		ledger:        ledger,
		grid:          grid,
		catalog:       catalog,
		baselineGrams: decimal.NewFromFloat(baselineGrams),
	}
}

// CloseDay runs the daily close for every user: recompute the date's savings
// from logged events, roll them into month-to-date, and record the
// completion marker. Replays recompute and settle on the same state.
func (c *Calculator) CloseDay(ctx context.Context, date time.Time) error {
	users, err := c.ledger.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("unable to list users: %w", err)
	}

	for _, user := range users {
		daily, err := c.dailySavings(ctx, user.UserId, date)
		if err != nil {
			return fmt.Errorf("user %s: %w", user.UserId, err)
		}

		monthBefore, err := c.ledger.MonthTotalBefore(ctx, user.UserId, date)
		if err != nil {
			return fmt.Errorf("user %s: %w", user.UserId, err)
		}

		params := store.DailyCloseParams{
			UserId:          user.UserId,
			Date:            date,
			DailyGrams:      daily,
			CumulativeGrams: monthBefore.Add(daily),
		}
		if err := c.ledger.ApplyDailyClose(ctx, params); err != nil {
			return fmt.Errorf("user %s: %w", user.UserId, err)
		}

		zap.L().Info("Daily close applied",
			zap.String("user_id", user.UserId),
			zap.String("date", date.Format("2006-01-02")),
			zap.String("daily_g", daily.String()),
			zap.String("month_to_date_g", params.CumulativeGrams.String()))
	}

	if err := c.ledger.MarkDayClosed(ctx, date); err != nil {
		return err
	}
	zap.L().Info("Daily close complete", zap.String("date", date.Format("2006-01-02")))
	return nil
}

// dailySavings sums the savings of every event the user logged on the date.
// Negative totals are kept: shifting usage into dirtier-than-baseline
// periods costs the user grams.
func (c *Calculator) dailySavings(ctx context.Context, userId string, date time.Time) (decimal.Decimal, error) {
	events, err := c.ledger.EventsForDate(ctx, userId, date)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, event := range events {
		saving, err := c.eventSavings(ctx, event)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(saving)
	}
	return total, nil
}

// eventSavings is kW x hours x (baseline - actual) in grams CO2e. The actual
// intensity is the mean over the event's 10-minute slots from the historical
// log; slots with no usable record fall back to the baseline and contribute
// zero savings.
func (c *Calculator) eventSavings(ctx context.Context, event models.UsageEvent) (decimal.Decimal, error) {
	watts, known := c.catalog[event.ApplianceType]
	if !known {
		zap.L().Warn("Unknown appliance type, skipping event",
			zap.String("event_id", event.Id),
			zap.String("appliance", event.ApplianceType))
		return decimal.Zero, nil
	}

	actual, err := c.meanActualIntensity(ctx, event.StartTime, event.EndTime())
	if err != nil {
		return decimal.Zero, err
	}

	kw := decimal.NewFromFloat(watts).Div(decimal.NewFromInt(1000))
	hours := decimal.NewFromInt(int64(event.DurationMinutes)).Div(decimal.NewFromInt(60))
	return kw.Mul(hours).Mul(c.baselineGrams.Sub(actual)), nil
}

func (c *Calculator) meanActualIntensity(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	slots := 0
	for slot := models.AlignToSlot(start); slot.Before(end); slot = slot.Add(models.ReportingInterval) {
		record, err := c.grid.IntensityNear(ctx, slot, intensityLookupTolerance)
		if err != nil {
			return decimal.Zero, err
		}
		if record == nil {
			sum = sum.Add(c.baselineGrams)
		} else {
			sum = sum.Add(decimal.NewFromFloat(record.GramsPerKWh()))
		}
		slots++
	}
	if slots == 0 {
		return c.baselineGrams, nil
	}
	return sum.Div(decimal.NewFromInt(int64(slots))), nil
}
