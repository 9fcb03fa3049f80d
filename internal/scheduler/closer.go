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

package scheduler

import (
	"context"
	"time"

	"greenmoment-go/internal/accounting"

	"go.uber.org/zap"
)

// closeDelay keeps the close runner clear of midnight so the last tick of
// the finished day has landed in the intensity log.
const closeDelay = 5 * time.Minute

// CloseScheduler fires the daily close shortly after each local midnight,
// followed by the monthly close on the first of the month. The daily close
// always completes before a monthly close for the same boundary is attempted.
type CloseScheduler struct {
	calculator *accounting.Calculator
	closer     *accounting.Closer
	location   *time.Location

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewCloseScheduler(calculator *accounting.Calculator, closer *accounting.Closer, location *time.Location) *CloseScheduler {
	return &CloseScheduler{
		calculator: calculator,
		closer:     closer,
		location:   location,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start begins the close loop.
func (s *CloseScheduler) Start(ctx context.Context) {
	zap.L().Info("Starting close scheduler",
		zap.String("timezone", s.location.String()),
		zap.Duration("delay_after_midnight", closeDelay))
	go s.closeLoop(ctx)
}

// Stop gracefully stops the close scheduler.
func (s *CloseScheduler) Stop() {
	zap.L().Info("Stopping close scheduler")
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Close scheduler stopped")
}

func (s *CloseScheduler) closeLoop(ctx context.Context) {
	defer close(s.doneChan)

	for {
		next := s.nextRun(time.Now().In(s.location))
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			s.runBoundary(ctx, next)
		case <-s.stopChan:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// nextRun returns the next local midnight plus the close delay.
func (s *CloseScheduler) nextRun(now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	run := midnight.Add(closeDelay)
	if !run.After(now) {
		run = run.AddDate(0, 0, 1)
	}
	return run
}

// runBoundary closes the day that just ended, then, on the first of a month,
// the month that just ended.
func (s *CloseScheduler) runBoundary(ctx context.Context, run time.Time) {
	closedDay := run.In(s.location).AddDate(0, 0, -1)
	closedDay = time.Date(closedDay.Year(), closedDay.Month(), closedDay.Day(), 0, 0, 0, 0, s.location)

	if err := s.calculator.CloseDay(ctx, closedDay); err != nil {
		zap.L().Error("Daily close failed",
			zap.String("date", closedDay.Format("2006-01-02")),
			zap.Error(err))
		return
	}

	if run.In(s.location).Day() != 1 {
		return
	}
	if _, err := s.closer.CloseMonth(ctx, closedDay.Year(), closedDay.Month()); err != nil {
		zap.L().Error("Monthly close failed",
			zap.Int("year", closedDay.Year()),
			zap.Int("month", int(closedDay.Month())),
			zap.Error(err))
	}
}
