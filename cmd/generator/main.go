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

	"greenmoment-go/internal/common"
	"greenmoment-go/internal/config"
	"greenmoment-go/internal/models"
	"greenmoment-go/internal/scheduler"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Run a single tick for the current reporting slot and exit")
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

	zap.L().Info("Starting carbon intensity generator")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	generator := scheduler.NewGenerator(scheduler.GeneratorConfig{
		GridStore:  services.DbService,
		Ingestor:   services.Ingestor,
		Engine:     services.Engine,
		Writer:     services.Writer,
		TickOffset: cfg.Generator.TickOffset,
	})

	if *once {
		slot := models.AlignToSlot(time.Now())
		if err := generator.RunOnce(ctx, slot); err != nil {
			zap.L().Fatal("Tick failed", zap.Time("slot", slot), zap.Error(err))
		}
		zap.L().Info("Tick complete", zap.Time("slot", slot))
		return
	}

	generator.Start(ctx)

	zap.L().Info("Generator running")
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping generator...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		generator.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Generator stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
