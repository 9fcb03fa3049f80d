package forecast

import (
	"testing"
	"time"

	"greenmoment-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		kgPerKWh float64
		want     models.Level
	}{
		{0.0, models.LevelLow},
		{0.450, models.LevelLow},
		{0.451, models.LevelMedium},
		{0.550, models.LevelMedium},
		{0.551, models.LevelHigh},
		{1.2, models.LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.kgPerKWh), "intensity %f", tt.kgPerKWh)
	}
}

func seriesWith(anchor time.Time, intensities []float64) *models.ForecastSeries {
	series := &models.ForecastSeries{Anchor: anchor}
	for i, intensity := range intensities {
		ts := anchor.Add(time.Duration(i+1) * models.ReportingInterval)
		series.Points = append(series.Points, models.ForecastPoint{
			Timestamp: ts,
			Intensity: intensity,
			Level:     Classify(intensity),
		})
	}
	return series
}

func TestBestWindow_LongestLowRun(t *testing.T) {
	anchor := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)

	// Two low runs: 2 steps early, then 6 steps later. The longer run wins.
	intensities := []float64{
		0.4, 0.4, // low run of 2
		0.6, 0.6, 0.6,
		0.4, 0.4, 0.4, 0.4, 0.4, 0.4, // low run of 6
		0.6,
	}
	recommendation := BestWindow(seriesWith(anchor, intensities), time.UTC)

	wantStart := anchor.Add(6 * models.ReportingInterval)
	wantEnd := anchor.Add(12 * models.ReportingInterval)
	assert.Equal(t, wantStart, recommendation.BestWindowStart)
	assert.Equal(t, wantEnd, recommendation.BestWindowEnd)
	assert.Contains(t, recommendation.Message, "Cleanest window")
}

func TestBestWindow_TieKeepsEarlierRun(t *testing.T) {
	anchor := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	intensities := []float64{
		0.4, 0.4, 0.4,
		0.6,
		0.4, 0.4, 0.4,
		0.6,
	}
	recommendation := BestWindow(seriesWith(anchor, intensities), time.UTC)
	assert.Equal(t, anchor.Add(models.ReportingInterval), recommendation.BestWindowStart)
}

func TestBestWindow_NoLowFallsBackToLowestMean(t *testing.T) {
	anchor := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)

	// All medium/high. 20 steps: a dip between steps 5 and 16 makes that
	// stretch the lowest-mean two hours.
	intensities := make([]float64, 20)
	for i := range intensities {
		intensities[i] = 0.8
	}
	for i := 5; i < 17; i++ {
		intensities[i] = 0.5
	}
	recommendation := BestWindow(seriesWith(anchor, intensities), time.UTC)

	wantStart := anchor.Add(6 * models.ReportingInterval)
	assert.Equal(t, wantStart, recommendation.BestWindowStart)
	assert.Equal(t, wantStart.Add(2*time.Hour), recommendation.BestWindowEnd)
	assert.Contains(t, recommendation.Message, "No low-carbon period")
}

func TestBestWindow_SingleSlotPaddedToMinimumSpan(t *testing.T) {
	anchor := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	intensities := []float64{0.6, 0.4, 0.6, 0.6}
	recommendation := BestWindow(seriesWith(anchor, intensities), time.UTC)

	require.Equal(t, anchor.Add(2*models.ReportingInterval), recommendation.BestWindowStart)
	assert.Equal(t, time.Hour, recommendation.BestWindowEnd.Sub(recommendation.BestWindowStart))
}

func TestBestWindow_OnlyConsidersAnchorDay(t *testing.T) {
	// Anchor late in the day: only the first few steps fall on the same
	// civil day, and the low run after midnight must be ignored.
	anchor := time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC)
	intensities := make([]float64, 30)
	for i := range intensities {
		intensities[i] = 0.4 // low after midnight
	}
	intensities[0] = 0.6
	intensities[1] = 0.5
	intensities[2] = 0.46 // 23:30, lowest-mean stretch today
	intensities[3] = 0.47
	intensities[4] = 0.48
	// Steps 0..5 are on Aug 1 (23:10..24:00 exclusive); step 5 is 00:00 Aug 2.

	recommendation := BestWindow(seriesWith(anchor, intensities), time.UTC)
	assert.True(t, recommendation.BestWindowStart.Before(time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)),
		"window must start on the anchor's day, got %s", recommendation.BestWindowStart)
}
