package accounting

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"greenmoment-go/internal/database"
	"greenmoment-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaselineGrams = 500

var testCatalog = map[string]float64{
	"washing_machine": 500,
	"dryer":           2000,
	"tv":              150,
}

func setupAccountingTest(t *testing.T) (*database.Service, *Calculator) {
	t.Helper()
	service, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(service.Close)

	return service, NewCalculator(service, service, testCatalog, testBaselineGrams)
}

// appendConstantIntensity fills the historical log with a fixed intensity
// for every slot in [from, to).
func appendConstantIntensity(t *testing.T, service *database.Service, from, to time.Time, kgPerKWh float64) {
	t.Helper()
	ctx := context.Background()
	for slot := from; slot.Before(to); slot = slot.Add(models.ReportingInterval) {
		err := service.AppendIntensity(ctx, &models.IntensityRecord{
			Timestamp:         slot,
			CarbonIntensity:   kgPerKWh,
			TotalGenerationMW: 30000,
			GenerationMW:      map[models.FuelType]float64{models.FuelCoal: 30000},
			MixPercent:        map[models.FuelType]float64{models.FuelCoal: 100},
			EmissionsKg:       map[models.FuelType]float64{},
		})
		require.NoError(t, err)
	}
}

func TestCloseDay_SavingsAgainstBaseline(t *testing.T) {
	service, calculator := setupAccountingTest(t)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "user1", "Test User")
	require.NoError(t, err)

	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	start := date.Add(9 * time.Hour)

	// 300 g/kWh actual against the 500 g baseline: a 500 W hour saves 100 g.
	appendConstantIntensity(t, service, start, start.Add(time.Hour), 0.3)
	require.NoError(t, service.RecordUsageEvent(ctx, models.UsageEvent{
		UserId:          user.UserId,
		ApplianceType:   "washing_machine",
		StartTime:       start,
		DurationMinutes: 60,
	}))

	require.NoError(t, calculator.CloseDay(ctx, date))

	progress, err := service.GetDailyProgress(ctx, user.UserId, date)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.True(t, progress.DailySavedGrams.Equal(decimal.NewFromInt(100)),
		"expected 100 g saved, got %s", progress.DailySavedGrams)

	closed, err := service.IsDayClosed(ctx, date)
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestCloseDay_NegativeSavingsKept(t *testing.T) {
	service, calculator := setupAccountingTest(t)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "user1", "Test User")
	require.NoError(t, err)

	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	start := date.Add(18 * time.Hour)

	// 700 g/kWh actual: usage in a dirty period loses grams.
	appendConstantIntensity(t, service, start, start.Add(time.Hour), 0.7)
	require.NoError(t, service.RecordUsageEvent(ctx, models.UsageEvent{
		UserId:          user.UserId,
		ApplianceType:   "washing_machine",
		StartTime:       start,
		DurationMinutes: 60,
	}))

	require.NoError(t, calculator.CloseDay(ctx, date))

	progress, err := service.GetDailyProgress(ctx, user.UserId, date)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.True(t, progress.DailySavedGrams.Equal(decimal.NewFromInt(-100)),
		"expected -100 g, got %s", progress.DailySavedGrams)

	ledger, err := service.GetUserLedger(ctx, user.UserId)
	require.NoError(t, err)
	assert.True(t, ledger.TotalSavedGrams.IsNegative(),
		"negative day must pull the lifetime total below zero, got %s", ledger.TotalSavedGrams)
}

func TestCloseDay_MissingIntensityFallsBackToBaseline(t *testing.T) {
	service, calculator := setupAccountingTest(t)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "user1", "Test User")
	require.NoError(t, err)

	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, service.RecordUsageEvent(ctx, models.UsageEvent{
		UserId:          user.UserId,
		ApplianceType:   "dryer",
		StartTime:       date.Add(9 * time.Hour),
		DurationMinutes: 60,
	}))

	// Empty intensity log: actual == baseline, so the event saves nothing.
	require.NoError(t, calculator.CloseDay(ctx, date))

	progress, err := service.GetDailyProgress(ctx, user.UserId, date)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.True(t, progress.DailySavedGrams.IsZero(),
		"expected zero savings without intensity data, got %s", progress.DailySavedGrams)
}

func TestCloseDay_ReplayIsStable(t *testing.T) {
	service, calculator := setupAccountingTest(t)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "user1", "Test User")
	require.NoError(t, err)

	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	start := date.Add(9 * time.Hour)
	appendConstantIntensity(t, service, start, start.Add(time.Hour), 0.3)
	require.NoError(t, service.RecordUsageEvent(ctx, models.UsageEvent{
		UserId:          user.UserId,
		ApplianceType:   "washing_machine",
		StartTime:       start,
		DurationMinutes: 60,
	}))

	require.NoError(t, calculator.CloseDay(ctx, date))
	require.NoError(t, calculator.CloseDay(ctx, date))
	require.NoError(t, calculator.CloseDay(ctx, date))

	ledger, err := service.GetUserLedger(ctx, user.UserId)
	require.NoError(t, err)
	assert.True(t, ledger.TotalSavedGrams.Equal(decimal.NewFromInt(100)),
		"replayed closes must not inflate the total, got %s", ledger.TotalSavedGrams)
}

func TestCloseDay_MonthToDateAccumulates(t *testing.T) {
	service, calculator := setupAccountingTest(t)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "user1", "Test User")
	require.NoError(t, err)

	for day := 15; day <= 16; day++ {
		date := time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC)
		start := date.Add(9 * time.Hour)
		appendConstantIntensity(t, service, start, start.Add(time.Hour), 0.3)
		require.NoError(t, service.RecordUsageEvent(ctx, models.UsageEvent{
			UserId:          user.UserId,
			ApplianceType:   "washing_machine",
			StartTime:       start,
			DurationMinutes: 60,
		}))
		require.NoError(t, calculator.CloseDay(ctx, date))
	}

	progress, err := service.GetDailyProgress(ctx, user.UserId, time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.True(t, progress.DailySavedGrams.Equal(decimal.NewFromInt(100)))
	assert.True(t, progress.CumulativeSavedGrams.Equal(decimal.NewFromInt(200)),
		"expected month-to-date 200, got %s", progress.CumulativeSavedGrams)
}

func TestCloseDay_MonthBoundaryResetsCumulative(t *testing.T) {
	service, calculator := setupAccountingTest(t)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "user1", "Test User")
	require.NoError(t, err)

	// One saving day at the end of August, one on the first of September.
	for _, date := range []time.Time{
		time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	} {
		start := date.Add(9 * time.Hour)
		appendConstantIntensity(t, service, start, start.Add(time.Hour), 0.3)
		require.NoError(t, service.RecordUsageEvent(ctx, models.UsageEvent{
			UserId:          user.UserId,
			ApplianceType:   "washing_machine",
			StartTime:       start,
			DurationMinutes: 60,
		}))
		require.NoError(t, calculator.CloseDay(ctx, date))
	}

	// September's first cumulative is the day's own saving, with no August
	// tail.
	progress, err := service.GetDailyProgress(ctx, user.UserId, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.True(t, progress.CumulativeSavedGrams.Equal(decimal.NewFromInt(100)),
		"expected September cumulative 100, got %s", progress.CumulativeSavedGrams)

	ledger, err := service.GetUserLedger(ctx, user.UserId)
	require.NoError(t, err)
	assert.True(t, ledger.TotalSavedGrams.Equal(decimal.NewFromInt(200)),
		"lifetime total spans the boundary, got %s", ledger.TotalSavedGrams)
}

func TestCloseDay_UnknownApplianceSkipped(t *testing.T) {
	service, calculator := setupAccountingTest(t)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "user1", "Test User")
	require.NoError(t, err)

	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, service.RecordUsageEvent(ctx, models.UsageEvent{
		UserId:          user.UserId,
		ApplianceType:   "jacuzzi",
		StartTime:       date.Add(9 * time.Hour),
		DurationMinutes: 60,
	}))

	require.NoError(t, calculator.CloseDay(ctx, date))

	progress, err := service.GetDailyProgress(ctx, user.UserId, date)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.True(t, progress.DailySavedGrams.IsZero())
}
