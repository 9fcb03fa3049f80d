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

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"greenmoment-go/internal/common"
	"greenmoment-go/internal/config"
	"greenmoment-go/internal/database"
	"greenmoment-go/internal/forecast"
	"greenmoment-go/internal/models"

	"go.uber.org/zap"
)

func printCurrent(ctx context.Context, dbService *database.Service) error {
	record, err := dbService.LatestIntensity(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest intensity: %w", err)
	}
	if record == nil {
		fmt.Println("No intensity records yet")
		return nil
	}

	fmt.Printf("\n┌─ Current intensity\n")
	fmt.Printf("│  Slot:       %s\n", record.Timestamp.Format("2006-01-02 15:04"))
	fmt.Printf("│  Intensity:  %.0f gCO2e/kWh (%s)\n",
		record.GramsPerKWh(), forecast.Classify(record.CarbonIntensity))
	fmt.Printf("│  Generation: %.1f MW (storage %.1f MW excluded)\n",
		record.TotalGenerationMW, record.StorageMW)
	return nil
}

func printReadiness(ctx context.Context, dbService *database.Service) error {
	counts, err := dbService.WindowCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get window counts: %w", err)
	}

	readiness := forecast.Readiness(counts)
	fmt.Printf("\n┌─ Forecast readiness\n")
	for i, r := range readiness {
		state := "building"
		if r.Ready {
			state = "ready"
		}
		fmt.Printf("%s %-8s %s (%s)\n", common.TreePrefix(i == len(readiness)-1), r.Region, r.String(), state)
	}
	return nil
}

func printUsers(ctx context.Context, dbService *database.Service) (int, error) {
	users, err := dbService.GetUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get users: %w", err)
	}

	fmt.Printf("\n┌─ Users (%d)\n", len(users))
	for i, user := range users {
		lastClose := "never"
		if user.LastCalculationDate != nil {
			lastClose = user.LastCalculationDate.Format("2006-01-02")
		}
		fmt.Printf("%s %-20s %-8s month: %8s g  total: %10s g  last close: %s\n",
			common.TreePrefix(i == len(users)-1),
			user.Name,
			user.CurrentLeague.String(),
			user.CurrentMonthSavedGrams.StringFixed(1),
			user.TotalSavedGrams.StringFixed(1),
			lastClose)
	}
	return len(users), nil
}

func printMonth(ctx context.Context, dbService *database.Service, year int, month time.Month) error {
	summaries, err := dbService.SummariesForMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("failed to get summaries: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Printf("\nNo monthly summaries for %d-%02d\n", year, int(month))
		return nil
	}

	fmt.Printf("\n┌─ Monthly summaries %d-%02d (%d)\n", year, int(month), len(summaries))
	for i, summary := range summaries {
		promotion := summary.LeagueAtEnd.String()
		if summary.Promoted {
			promotion = fmt.Sprintf("%s -> %s", summary.LeagueAtStart, summary.LeagueAtEnd)
		}
		fmt.Printf("%s %-36s %10s g  %-18s events: %d\n",
			common.TreePrefix(i == len(summaries)-1),
			summary.UserId,
			summary.TotalSavedGrams.StringFixed(1),
			promotion,
			summary.EventsLogged)
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	monthFlag := flag.String("month", "", "Also show monthly summaries for this month (YYYY-MM)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	common.PrintReportHeader("CARBON INTENSITY STATUS", common.ReportWidth)

	if err := printCurrent(ctx, dbService); err != nil {
		logger.Fatal("Status query failed", zap.Error(err))
	}
	if err := printReadiness(ctx, dbService); err != nil {
		logger.Fatal("Status query failed", zap.Error(err))
	}
	userCount, err := printUsers(ctx, dbService)
	if err != nil {
		logger.Fatal("Status query failed", zap.Error(err))
	}

	if *monthFlag != "" {
		month, err := time.Parse("2006-01", *monthFlag)
		if err != nil {
			logger.Fatal("Invalid -month", zap.String("value", *monthFlag), zap.Error(err))
		}
		if err := printMonth(ctx, dbService, month.Year(), month.Month()); err != nil {
			logger.Fatal("Status query failed", zap.Error(err))
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d users, window size %d, horizon %d steps",
		userCount, models.CacheWindowSize, models.ForecastSteps)
	common.PrintReportSummary(summary, common.ReportWidth)
}
