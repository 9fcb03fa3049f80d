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

// SQL queries as constants
const (
	// Cache sample queries
	queryLatestCacheTimestamp = `
		SELECT ts FROM cache_samples
		WHERE region = ?
		ORDER BY ts DESC
		LIMIT 1`

	queryInsertCacheSample = `
		INSERT INTO cache_samples (region, ts, misaligned, payload)
		VALUES (?, ?, ?, ?)`

	queryPruneCacheWindow = `
		DELETE FROM cache_samples
		WHERE region = ? AND ts NOT IN (
			SELECT ts FROM cache_samples
			WHERE region = ?
			ORDER BY ts DESC
			LIMIT ?
		)`

	querySelectCacheWindow = `
		SELECT ts, misaligned, payload FROM cache_samples
		WHERE region = ?
		ORDER BY ts ASC`

	queryCountCacheSamples = `
		SELECT region, COUNT(*) FROM cache_samples
		GROUP BY region`

	// Intensity log queries
	queryIntensityExists = `
		SELECT COUNT(*) FROM intensity_log WHERE ts = ?`

	queryInsertIntensity = `
		INSERT INTO intensity_log (ts, intensity_kg_kwh, total_generation_mw, storage_mw, detail)
		VALUES (?, ?, ?, ?, ?)`

	querySelectLatestIntensity = `
		SELECT ts, intensity_kg_kwh, total_generation_mw, storage_mw, detail
		FROM intensity_log
		ORDER BY ts DESC
		LIMIT 1`

	querySelectNearestIntensity = `
		SELECT ts, intensity_kg_kwh, total_generation_mw, storage_mw, detail
		FROM intensity_log
		ORDER BY ABS(strftime('%s', ts) - strftime('%s', ?))
		LIMIT 1`

	queryInsertFluctuation = `
		INSERT INTO fluctuation_notes (id, ts, region, added, removed)
		VALUES (?, ?, ?, ?, ?)`

	// User queries
	queryInsertUser = `
		INSERT INTO users (id, name)
		VALUES (?, ?)`

	querySelectUsers = `
		SELECT id, name, current_league, current_month_carbon_saved_g,
		       total_carbon_saved_g, last_calculation_date, created_at, updated_at
		FROM users
		ORDER BY created_at ASC`

	querySelectUserById = `
		SELECT id, name, current_league, current_month_carbon_saved_g,
		       total_carbon_saved_g, last_calculation_date, created_at, updated_at
		FROM users
		WHERE id = ?`

	// Usage event queries
	queryInsertUsageEvent = `
		INSERT INTO usage_events (id, user_id, appliance_type, start_time, duration_minutes)
		VALUES (?, ?, ?, ?, ?)`

	querySelectEventsInRange = `
		SELECT id, user_id, appliance_type, start_time, duration_minutes, created_at
		FROM usage_events
		WHERE user_id = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time ASC`

	// Daily close queries
	querySelectDailyProgress = `
		SELECT user_id, date, daily_carbon_saved_g, cumulative_carbon_saved_g
		FROM daily_progress
		WHERE user_id = ? AND date = ?`

	querySelectDailyAmount = `
		SELECT daily_carbon_saved_g FROM daily_progress
		WHERE user_id = ? AND date = ?`

	querySelectUserTotal = `
		SELECT total_carbon_saved_g FROM users WHERE id = ?`

	queryUpsertDailyProgress = `
		INSERT INTO daily_progress (user_id, date, daily_carbon_saved_g, cumulative_carbon_saved_g)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET
			daily_carbon_saved_g = excluded.daily_carbon_saved_g,
			cumulative_carbon_saved_g = excluded.cumulative_carbon_saved_g,
			updated_at = CURRENT_TIMESTAMP`

	queryUpdateUserAfterDailyClose = `
		UPDATE users
		SET current_month_carbon_saved_g = ?,
		    total_carbon_saved_g = ?,
		    last_calculation_date = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	querySumDailyProgressInRange = `
		SELECT daily_carbon_saved_g FROM daily_progress
		WHERE user_id = ? AND date >= ? AND date <= ?`

	queryInsertDayClosed = `
		INSERT INTO daily_closes (date)
		VALUES (?)
		ON CONFLICT (date) DO NOTHING`

	queryDayClosedExists = `
		SELECT COUNT(*) FROM daily_closes WHERE date = ?`

	// Monthly close queries
	querySelectSummariesForMonth = `
		SELECT id, user_id, year, month, total_carbon_saved_g,
		       league_at_month_start, league_at_month_end, promoted,
		       events_logged, hours_shifted, top_appliance, top_appliance_hours, created_at
		FROM monthly_summaries
		WHERE year = ? AND month = ?
		ORDER BY created_at ASC`

	querySummaryExists = `
		SELECT COUNT(*) FROM monthly_summaries
		WHERE user_id = ? AND year = ? AND month = ?`

	queryInsertMonthlySummary = `
		INSERT INTO monthly_summaries (
			id, user_id, year, month, total_carbon_saved_g,
			league_at_month_start, league_at_month_end, promoted,
			events_logged, hours_shifted, top_appliance, top_appliance_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateUserAfterMonthlyClose = `
		UPDATE users
		SET current_league = ?,
		    current_month_carbon_saved_g = '0',
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
)
