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

// Closer runs the monthly close: summaries, promotions, and the
// month-counter reset.
type Closer struct {
	ledger store.LedgerStore
}

func NewCloser(ledger store.LedgerStore) *Closer {
	return &Closer{ledger: ledger}
}

// CloseMonth finalizes a calendar month for every user. It refuses to run
// until the month's final daily close has completed, and it skips users who
// already hold a summary for the month, so replays are no-ops.
func (c *Closer) CloseMonth(ctx context.Context, year int, month time.Month) ([]models.MonthlySummary, error) {
	lastDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	closed, err := c.ledger.IsDayClosed(ctx, lastDay)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, fmt.Errorf("%w: %s not closed", store.ErrOrderingViolation, lastDay.Format("2006-01-02"))
	}

	existing, err := c.ledger.SummariesForMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	alreadyClosed := make(map[string]bool, len(existing))
	for _, summary := range existing {
		alreadyClosed[summary.UserId] = true
	}

	users, err := c.ledger.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list users: %w", err)
	}

	var summaries []models.MonthlySummary
	for _, user := range users {
		if alreadyClosed[user.UserId] {
			zap.L().Info("Monthly summary already on file, skipping",
				zap.String("user_id", user.UserId),
				zap.Int("year", year), zap.Int("month", int(month)))
			continue
		}

		total, err := c.ledger.MonthTotal(ctx, user.UserId, year, month)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", user.UserId, err)
		}

		stats, err := c.ledger.MonthEventStats(ctx, user.UserId, year, month)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", user.UserId, err)
		}

		leagueAtEnd, promoted := evaluatePromotion(user.CurrentLeague, total)

		summary, err := c.ledger.ApplyMonthlyClose(ctx, store.MonthlyCloseParams{
			UserId:            user.UserId,
			Year:              year,
			Month:             month,
			TotalGrams:        total,
			LeagueAtStart:     user.CurrentLeague,
			LeagueAtEnd:       leagueAtEnd,
			Promoted:          promoted,
			EventsLogged:      stats.EventsLogged,
			HoursShifted:      stats.HoursShifted,
			TopAppliance:      stats.TopAppliance,
			TopApplianceHours: stats.TopApplianceHours,
		})
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", user.UserId, err)
		}
		summaries = append(summaries, *summary)

		zap.L().Info("Monthly close applied",
			zap.String("user_id", user.UserId),
			zap.String("total_g", total.String()),
			zap.String("league", leagueAtEnd.String()),
			zap.Bool("promoted", promoted))
	}
	return summaries, nil
}

// evaluatePromotion applies the league rules: one tier at most per month,
// using only the current league's exit threshold. A month that would clear
// several thresholds still advances a single tier.
func evaluatePromotion(current models.League, totalGrams decimal.Decimal) (models.League, bool) {
	threshold, hasExit := current.PromotionThreshold()
	if !hasExit {
		return current, false
	}
	if totalGrams.LessThan(threshold) {
		return current, false
	}
	next, ok := current.Next()
	if !ok {
		return current, false
	}
	return next, true
}
