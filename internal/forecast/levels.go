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

package forecast

import (
	"fmt"
	"time"

	"greenmoment-go/internal/models"
)

// Fixed level cut points in kg CO2e/kWh. The same boundaries apply to every
// published value so the same number never changes color between ticks.
const (
	lowCeiling    = 0.450
	mediumCeiling = 0.550
)

// Classify maps an intensity value onto its user-facing level.
func Classify(kgPerKWh float64) models.Level {
	switch {
	case kgPerKWh <= lowCeiling:
		return models.LevelLow
	case kgPerKWh <= mediumCeiling:
		return models.LevelMedium
	default:
		return models.LevelHigh
	}
}

// minimum recommendation span when the best window collapses to one slot.
const minWindowSpan = time.Hour

// BestWindow picks the recommended usage window from a forecast series,
// considering only steps that still fall on the anchor's civil day in loc.
// Preference order: the longest contiguous run of low-level steps, then the
// lowest-mean two-hour stretch when no low steps exist at all.
func BestWindow(series *models.ForecastSeries, loc *time.Location) models.Recommendation {
	dayEnd := endOfDay(series.Anchor.In(loc))

	var today []models.ForecastPoint
	for _, point := range series.Points {
		if point.Timestamp.In(loc).Before(dayEnd) {
			today = append(today, point)
		}
	}
	if len(today) == 0 {
		today = series.Points
	}

	start, end, found := longestLowRun(today)
	if !found {
		start, end = lowestMeanStretch(today, 12)
	}

	if end.Sub(start) < minWindowSpan {
		end = start.Add(minWindowSpan)
	}

	message := fmt.Sprintf("Cleanest window today: %s to %s.",
		start.In(loc).Format("15:04"), end.In(loc).Format("15:04"))
	if !found {
		message = fmt.Sprintf("No low-carbon period expected today; the least carbon-intensive window is %s to %s.",
			start.In(loc).Format("15:04"), end.In(loc).Format("15:04"))
	}

	return models.Recommendation{
		Message:         message,
		BestWindowStart: start,
		BestWindowEnd:   end,
	}
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

// longestLowRun returns the bounds of the longest consecutive run of low
// steps. Ties keep the earlier run.
func longestLowRun(points []models.ForecastPoint) (start, end time.Time, found bool) {
	bestLen, bestStart := 0, -1
	runLen, runStart := 0, -1

	for i, point := range points {
		if point.Level == models.LevelLow {
			if runLen == 0 {
				runStart = i
			}
			runLen++
			if runLen > bestLen {
				bestLen, bestStart = runLen, runStart
			}
		} else {
			runLen = 0
		}
	}

	if bestLen == 0 {
		return time.Time{}, time.Time{}, false
	}
	return points[bestStart].Timestamp,
		points[bestStart+bestLen-1].Timestamp.Add(models.ReportingInterval),
		true
}

// lowestMeanStretch slides a window of width steps over the points and
// returns the stretch with the lowest mean intensity.
func lowestMeanStretch(points []models.ForecastPoint, width int) (start, end time.Time) {
	if width > len(points) {
		width = len(points)
	}

	var sum float64
	for i := 0; i < width; i++ {
		sum += points[i].Intensity
	}
	bestSum, bestStart := sum, 0
	for i := width; i < len(points); i++ {
		sum += points[i].Intensity - points[i-width].Intensity
		if sum < bestSum {
			bestSum, bestStart = sum, i-width+1
		}
	}

	return points[bestStart].Timestamp,
		points[bestStart+width-1].Timestamp.Add(models.ReportingInterval)
}
