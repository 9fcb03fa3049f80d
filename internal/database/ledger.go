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
	"errors"
	"fmt"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateUser inserts a new user starting in the bronze league with zero
// savings.
func (s *Service) CreateUser(ctx context.Context, userId, name string) (*models.UserLedger, error) {
	if userId == "" {
		userId = uuid.New().String()
	}
	if name == "" {
		return nil, fmt.Errorf("user name cannot be empty")
	}

	if _, err := s.db.ExecContext(ctx, queryInsertUser, userId, name); err != nil {
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}
	return s.GetUserLedger(ctx, userId)
}

// GetUsers returns all users, oldest first.
func (s *Service) GetUsers(ctx context.Context) ([]models.UserLedger, error) {
	rows, err := s.db.QueryContext(ctx, querySelectUsers)
	if err != nil {
		return nil, fmt.Errorf("unable to select users: %w", err)
	}
	defer rows.Close()

	var users []models.UserLedger
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// GetUserLedger returns one user's ledger state, or ErrUserNotFound.
func (s *Service) GetUserLedger(ctx context.Context, userId string) (*models.UserLedger, error) {
	rows, err := s.db.QueryContext(ctx, querySelectUserById, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to select user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	return scanUser(rows)
}

// GetDailyProgress returns a user's progress row for a date, or nil when no
// close has run for that date.
func (s *Service) GetDailyProgress(ctx context.Context, userId string, date time.Time) (*models.DailyCarbonProgress, error) {
	var progress models.DailyCarbonProgress
	var dateStr, dailyStr, cumulativeStr string
	err := s.db.QueryRowContext(ctx, querySelectDailyProgress, userId, date.Format(dateFormat)).
		Scan(&progress.UserId, &dateStr, &dailyStr, &cumulativeStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to select daily progress: %w", err)
	}

	progress.Date, err = time.Parse(dateFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt progress date %q: %w", dateStr, err)
	}
	progress.DailySavedGrams, err = decimal.NewFromString(dailyStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt daily amount %q: %w", dailyStr, err)
	}
	progress.CumulativeSavedGrams, err = decimal.NewFromString(cumulativeStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt cumulative amount %q: %w", cumulativeStr, err)
	}
	return &progress, nil
}

// MonthTotalBefore sums a user's closed daily amounts in date's month, up to
// but not including date itself.
func (s *Service) MonthTotalBefore(ctx context.Context, userId string, date time.Time) (decimal.Decimal, error) {
	monthStart := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	return s.sumDailyRange(ctx, userId, monthStart, date.AddDate(0, 0, -1))
}

// MonthTotal sums a user's closed daily amounts over an entire calendar
// month.
func (s *Service) MonthTotal(ctx context.Context, userId string, year int, month time.Month) (decimal.Decimal, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	return s.sumDailyRange(ctx, userId, monthStart, monthEnd)
}

// sumDailyRange sums stored decimal strings in Go rather than SQL so no
// precision is lost to REAL arithmetic.
func (s *Service) sumDailyRange(ctx context.Context, userId string, from, to time.Time) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, querySumDailyProgressInRange,
		userId, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to select daily amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("unable to scan daily amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt daily amount %q: %w", amountStr, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

// ApplyDailyClose writes one user's daily progress row and moves the user
// ledger in the same transaction. Replays for an already-closed date settle
// on the same final state: the lifetime total absorbs only the difference
// against what the earlier run recorded.
func (s *Service) ApplyDailyClose(ctx context.Context, params store.DailyCloseParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to rollback transaction", zap.Error(err))
		}
	}()

	dateStr := params.Date.Format(dateFormat)

	previousDaily := decimal.Zero
	var previousStr string
	err = tx.QueryRowContext(ctx, querySelectDailyAmount, params.UserId, dateStr).Scan(&previousStr)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("unable to read previous daily amount: %w", err)
	}
	if err == nil {
		previousDaily, err = decimal.NewFromString(previousStr)
		if err != nil {
			return fmt.Errorf("corrupt daily amount %q: %w", previousStr, err)
		}
	}

	var totalStr string
	err = tx.QueryRowContext(ctx, querySelectUserTotal, params.UserId).Scan(&totalStr)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, params.UserId)
	}
	if err != nil {
		return fmt.Errorf("unable to read user total: %w", err)
	}
	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return fmt.Errorf("corrupt user total %q: %w", totalStr, err)
	}

	_, err = tx.ExecContext(ctx, queryUpsertDailyProgress,
		params.UserId, dateStr, params.DailyGrams.String(), params.CumulativeGrams.String())
	if err != nil {
		return fmt.Errorf("unable to upsert daily progress: %w", err)
	}

	newTotal := total.Add(params.DailyGrams.Sub(previousDaily))
	_, err = tx.ExecContext(ctx, queryUpdateUserAfterDailyClose,
		params.CumulativeGrams.String(), newTotal.String(), dateStr, params.UserId)
	if err != nil {
		return fmt.Errorf("unable to update user ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit transaction: %w", err)
	}
	return nil
}

// MarkDayClosed records the completion marker for a date. Re-marking an
// already closed date is a no-op.
func (s *Service) MarkDayClosed(ctx context.Context, date time.Time) error {
	if _, err := s.db.ExecContext(ctx, queryInsertDayClosed, date.Format(dateFormat)); err != nil {
		return fmt.Errorf("unable to mark day closed: %w", err)
	}
	return nil
}

// IsDayClosed reports whether a date's daily close has completed.
func (s *Service) IsDayClosed(ctx context.Context, date time.Time) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryDayClosedExists, date.Format(dateFormat)).Scan(&count); err != nil {
		return false, fmt.Errorf("unable to check day close marker: %w", err)
	}
	return count > 0, nil
}

// SummariesForMonth returns every monthly summary already written for the
// given month.
func (s *Service) SummariesForMonth(ctx context.Context, year int, month time.Month) ([]models.MonthlySummary, error) {
	rows, err := s.db.QueryContext(ctx, querySelectSummariesForMonth, year, int(month))
	if err != nil {
		return nil, fmt.Errorf("unable to select monthly summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.MonthlySummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, rows.Err()
}

// ApplyMonthlyClose writes the immutable summary, advances the league, and
// resets the month counter in a single transaction. A summary already on
// file makes the call a no-op returning the stored record.
func (s *Service) ApplyMonthlyClose(ctx context.Context, params store.MonthlyCloseParams) (*models.MonthlySummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to rollback transaction", zap.Error(err))
		}
	}()

	var count int
	err = tx.QueryRowContext(ctx, querySummaryExists, params.UserId, params.Year, int(params.Month)).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("unable to check for existing summary: %w", err)
	}
	if count > 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("unable to commit transaction: %w", err)
		}
		return s.summaryFor(ctx, params.UserId, params.Year, params.Month)
	}

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx, queryInsertMonthlySummary,
		id, params.UserId, params.Year, int(params.Month), params.TotalGrams.String(),
		params.LeagueAtStart.String(), params.LeagueAtEnd.String(), params.Promoted,
		params.EventsLogged, params.HoursShifted.String(),
		params.TopAppliance, params.TopApplianceHours.String())
	if err != nil {
		return nil, fmt.Errorf("unable to insert monthly summary: %w", err)
	}

	_, err = tx.ExecContext(ctx, queryUpdateUserAfterMonthlyClose,
		params.LeagueAtEnd.String(), params.UserId)
	if err != nil {
		return nil, fmt.Errorf("unable to update user after monthly close: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("unable to commit transaction: %w", err)
	}
	return s.summaryFor(ctx, params.UserId, params.Year, params.Month)
}

func (s *Service) summaryFor(ctx context.Context, userId string, year int, month time.Month) (*models.MonthlySummary, error) {
	summaries, err := s.SummariesForMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		if summaries[i].UserId == userId {
			return &summaries[i], nil
		}
	}
	return nil, fmt.Errorf("monthly summary missing after close for user %s", userId)
}

func scanUser(rows *sql.Rows) (*models.UserLedger, error) {
	var user models.UserLedger
	var leagueStr, monthStr, totalStr string
	var lastCalc sql.NullString
	err := rows.Scan(&user.UserId, &user.Name, &leagueStr, &monthStr, &totalStr,
		&lastCalc, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("unable to scan user row: %w", err)
	}

	user.CurrentLeague, err = models.ParseLeague(leagueStr)
	if err != nil {
		return nil, err
	}
	user.CurrentMonthSavedGrams, err = decimal.NewFromString(monthStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt month amount %q: %w", monthStr, err)
	}
	user.TotalSavedGrams, err = decimal.NewFromString(totalStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt total amount %q: %w", totalStr, err)
	}
	if lastCalc.Valid && lastCalc.String != "" {
		t, err := time.Parse(dateFormat, lastCalc.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt last calculation date %q: %w", lastCalc.String, err)
		}
		user.LastCalculationDate = &t
	}
	return &user, nil
}

func scanSummary(rows *sql.Rows) (*models.MonthlySummary, error) {
	var summary models.MonthlySummary
	var month int
	var totalStr, startStr, endStr, hoursStr, topHoursStr string
	var topAppliance sql.NullString
	err := rows.Scan(&summary.Id, &summary.UserId, &summary.Year, &month, &totalStr,
		&startStr, &endStr, &summary.Promoted,
		&summary.EventsLogged, &hoursStr, &topAppliance, &topHoursStr, &summary.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("unable to scan summary row: %w", err)
	}

	summary.Month = time.Month(month)
	summary.TotalSavedGrams, err = decimal.NewFromString(totalStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt summary total %q: %w", totalStr, err)
	}
	summary.LeagueAtStart, err = models.ParseLeague(startStr)
	if err != nil {
		return nil, err
	}
	summary.LeagueAtEnd, err = models.ParseLeague(endStr)
	if err != nil {
		return nil, err
	}
	summary.HoursShifted, err = decimal.NewFromString(hoursStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt hours shifted %q: %w", hoursStr, err)
	}
	summary.TopApplianceHours, err = decimal.NewFromString(topHoursStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt top appliance hours %q: %w", topHoursStr, err)
	}
	if topAppliance.Valid {
		summary.TopAppliance = topAppliance.String
	}
	return &summary, nil
}
