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
	"fmt"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: *Service must satisfy both store contracts.
var (
	_ store.GridStore   = (*Service)(nil)
	_ store.LedgerStore = (*Service)(nil)
)

const (
	timeFormat = time.RFC3339
	dateFormat = "2006-01-02"
)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(cfg.SeedDemoUsers); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(seedDemoUsers bool) error {
	schema := `
	-- Rolling per-region cache windows (restart-durable forecast substrate)
	CREATE TABLE IF NOT EXISTS cache_samples (
		region TEXT NOT NULL,
		ts TEXT NOT NULL,
		misaligned BOOLEAN NOT NULL DEFAULT 0,
		payload TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (region, ts)
	);

	-- Append-only historical intensity log, one row per reporting slot.
	-- The uniqueness constraint rejects overlapping generator instances.
	CREATE TABLE IF NOT EXISTS intensity_log (
		ts TEXT PRIMARY KEY,
		intensity_kg_kwh REAL NOT NULL,
		total_generation_mw REAL NOT NULL,
		storage_mw REAL NOT NULL DEFAULT 0,
		detail TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_intensity_log_ts ON intensity_log(ts);

	-- Fuel-roster fluctuation notes for operational visibility
	CREATE TABLE IF NOT EXISTS fluctuation_notes (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		region TEXT NOT NULL,
		added TEXT,
		removed TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_fluctuation_notes_ts ON fluctuation_notes(ts);

	-- Users ledger (hot accounting state)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		current_league TEXT NOT NULL DEFAULT 'bronze',
		current_month_carbon_saved_g TEXT NOT NULL DEFAULT '0',
		total_carbon_saved_g TEXT NOT NULL DEFAULT '0',
		last_calculation_date TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Appliance usage events (append-only)
	CREATE TABLE IF NOT EXISTS usage_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		appliance_type TEXT NOT NULL,
		start_time TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_usage_events_user_start ON usage_events(user_id, start_time);

	-- Daily carbon progress, one row per user per date (idempotent upsert)
	CREATE TABLE IF NOT EXISTS daily_progress (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		daily_carbon_saved_g TEXT NOT NULL,
		cumulative_carbon_saved_g TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_daily_progress_date ON daily_progress(date);

	-- Completion markers gating the monthly close behind the daily closes
	CREATE TABLE IF NOT EXISTS daily_closes (
		date TEXT PRIMARY KEY,
		closed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Immutable monthly closing records
	CREATE TABLE IF NOT EXISTS monthly_summaries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		total_carbon_saved_g TEXT NOT NULL,
		league_at_month_start TEXT NOT NULL,
		league_at_month_end TEXT NOT NULL,
		promoted BOOLEAN NOT NULL DEFAULT 0,
		events_logged INTEGER NOT NULL DEFAULT 0,
		hours_shifted TEXT NOT NULL DEFAULT '0',
		top_appliance TEXT,
		top_appliance_hours TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, year, month)
	);

	CREATE INDEX IF NOT EXISTS idx_monthly_summaries_month ON monthly_summaries(year, month);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if seedDemoUsers {
		// Seed only a fresh database; restarts must not mint new users.
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		users := []struct {
			id   string
			name string
		}{
			{uuid.New().String(), "Alice Johnson"},
			{uuid.New().String(), "Bob Smith"},
			{uuid.New().String(), "Carol Williams"},
		}

		for _, user := range users {
			_, err := s.db.Exec(queryInsertUser, user.id, user.name)
			if err != nil {
				zap.L().Error("Failed to insert demo user", zap.String("name", user.name), zap.Error(err))
			} else {
				zap.L().Info("Demo user created", zap.String("id", user.id), zap.String("name", user.name))
			}
		}
	}

	return nil
}
