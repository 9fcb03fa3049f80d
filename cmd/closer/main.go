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
	"os"
	"os/signal"
	"syscall"
	"time"

	"greenmoment-go/internal/accounting"
	"greenmoment-go/internal/common"
	"greenmoment-go/internal/config"
	"greenmoment-go/internal/scheduler"

	"go.uber.org/zap"
)

func main() {
	closeDate := flag.String("date", "", "Run the daily close for this date (YYYY-MM-DD) and exit")
	closeMonth := flag.String("month", "", "Run the monthly close for this month (YYYY-MM) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting carbon accounting closer")

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	catalog, err := config.LoadApplianceCatalog(cfg.Accounting.AppliancesFile)
	if err != nil {
		zap.L().Fatal("Failed to load appliance catalog", zap.Error(err))
	}

	location, err := time.LoadLocation(cfg.Generator.Timezone)
	if err != nil {
		zap.L().Fatal("Unknown timezone", zap.String("timezone", cfg.Generator.Timezone), zap.Error(err))
	}

	calculator := accounting.NewCalculator(dbService, dbService, catalog, cfg.Accounting.BaselineIntensityGrams)
	closer := accounting.NewCloser(dbService)

	if *closeDate != "" {
		date, err := time.ParseInLocation("2006-01-02", *closeDate, location)
		if err != nil {
			zap.L().Fatal("Invalid -date", zap.String("value", *closeDate), zap.Error(err))
		}
		if err := calculator.CloseDay(ctx, date); err != nil {
			zap.L().Fatal("Daily close failed", zap.Error(err))
		}
		return
	}

	if *closeMonth != "" {
		month, err := time.Parse("2006-01", *closeMonth)
		if err != nil {
			zap.L().Fatal("Invalid -month", zap.String("value", *closeMonth), zap.Error(err))
		}
		summaries, err := closer.CloseMonth(ctx, month.Year(), month.Month())
		if err != nil {
			zap.L().Fatal("Monthly close failed", zap.Error(err))
		}
		zap.L().Info("Monthly close complete", zap.Int("summaries", len(summaries)))
		return
	}

	closeScheduler := scheduler.NewCloseScheduler(calculator, closer, location)
	closeScheduler.Start(ctx)

	zap.L().Info("Closer running")
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping closer...")
	closeScheduler.Stop()
	zap.L().Info("Closer stopped gracefully")
}
