package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"greenmoment-go/internal/models"
	"greenmoment-go/internal/store"
)

const feedTimestamp = "2026-08-01T12:00:00Z"

func generationBody(timestamp string) string {
	regions := ""
	for i, region := range models.Regions {
		if i > 0 {
			regions += ","
		}
		regions += fmt.Sprintf(`"%s": {"fuels_mw": {"Coal": 1000, "Wind": 200, "Storage": 50}, "reported_total_mw": 1250}`, region)
	}
	return fmt.Sprintf(`{"timestamp": %q, "regions": {%s}}`, timestamp, regions)
}

const weatherBody = `{"observations": [
	{"region": "North", "air_temperature": 30, "wind_speed": 3},
	{"region": "North", "air_temperature": 32, "wind_speed": -99},
	{"region": "South", "air_temperature": 28}
]}`

func newTestIngestor(generationHandler, weatherHandler http.HandlerFunc) (*Ingestor, func()) {
	generationServer := httptest.NewServer(generationHandler)
	weatherServer := httptest.NewServer(weatherHandler)

	ing := NewIngestor(models.GeneratorConfig{
		GenerationFeedURL: generationServer.URL,
		WeatherFeedURL:    weatherServer.URL,
		FetchTimeout:      5 * time.Second,
		SumTolerance:      0.005,
	})
	cleanup := func() {
		generationServer.Close()
		weatherServer.Close()
	}
	return ing, cleanup
}

func serveString(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}
}

func TestCollect_BuildsSamplesForAllRegions(t *testing.T) {
	ing, cleanup := newTestIngestor(serveString(generationBody(feedTimestamp)), serveString(weatherBody))
	defer cleanup()

	slot := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	samples, err := ing.Collect(context.Background(), slot)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(samples) != len(models.Regions) {
		t.Fatalf("Expected %d samples, got %d", len(models.Regions), len(samples))
	}
	for _, sample := range samples {
		if sample.Misaligned {
			t.Errorf("Sample for %s unexpectedly misaligned", sample.Region)
		}
		if sample.FuelMix[models.FuelCoal] != 1000 {
			t.Errorf("Expected Coal 1000 MW for %s, got %f", sample.Region, sample.FuelMix[models.FuelCoal])
		}

		switch sample.Region {
		case models.RegionNorth:
			if sample.Weather == nil || sample.Weather.AirTemperature == nil {
				t.Fatal("Expected weather for North")
			}
			// Two stations: (30+32)/2.
			if *sample.Weather.AirTemperature != 31 {
				t.Errorf("Expected mean temperature 31, got %f", *sample.Weather.AirTemperature)
			}
			// The -99 sentinel wind reading must be dropped, leaving one station.
			if sample.Weather.WindSpeed == nil || *sample.Weather.WindSpeed != 3 {
				t.Errorf("Expected wind 3 from the single valid station, got %v", sample.Weather.WindSpeed)
			}
		case models.RegionOther:
			if sample.Weather != nil {
				t.Error("The aggregate region must carry no weather")
			}
		}
	}
}

func TestCollect_MisalignedTimestampFlagged(t *testing.T) {
	ing, cleanup := newTestIngestor(serveString(generationBody("2026-08-01T12:03:00Z")), serveString(weatherBody))
	defer cleanup()

	slot := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	samples, err := ing.Collect(context.Background(), slot)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, sample := range samples {
		if !sample.Misaligned {
			t.Errorf("Expected misaligned flag for %s", sample.Region)
		}
	}
}

func TestCollect_GenerationFailureFailsTick(t *testing.T) {
	failing := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	ing, cleanup := newTestIngestor(failing, serveString(weatherBody))
	defer cleanup()

	_, err := ing.Collect(context.Background(), time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	if !errors.Is(err, store.ErrUpstreamUnavailable) {
		t.Fatalf("Expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestCollect_WeatherFailureDegrades(t *testing.T) {
	failing := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	ing, cleanup := newTestIngestor(serveString(generationBody(feedTimestamp)), failing)
	defer cleanup()

	samples, err := ing.Collect(context.Background(), time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Collect must survive a weather outage, got %v", err)
	}
	for _, sample := range samples {
		if sample.Weather != nil {
			t.Errorf("Expected no weather after outage for %s", sample.Region)
		}
	}
}

func TestValidateRegion(t *testing.T) {
	tests := []struct {
		name    string
		gen     RegionGeneration
		wantErr bool
	}{
		{
			name: "valid",
			gen: RegionGeneration{
				FuelMixMW:       map[models.FuelType]float64{models.FuelCoal: 1000, models.FuelWind: 200},
				ReportedTotalMW: 1200,
			},
		},
		{
			name: "within tolerance",
			gen: RegionGeneration{
				FuelMixMW:       map[models.FuelType]float64{models.FuelCoal: 1000},
				ReportedTotalMW: 1004,
			},
		},
		{
			name: "sum disagrees with reported total",
			gen: RegionGeneration{
				FuelMixMW:       map[models.FuelType]float64{models.FuelCoal: 1000},
				ReportedTotalMW: 1100,
			},
			wantErr: true,
		},
		{
			name: "negative megawatts",
			gen: RegionGeneration{
				FuelMixMW:       map[models.FuelType]float64{models.FuelCoal: -5, models.FuelWind: 1205},
				ReportedTotalMW: 1200,
			},
			wantErr: true,
		},
		{
			name: "no reported total skips the sum check",
			gen: RegionGeneration{
				FuelMixMW: map[models.FuelType]float64{models.FuelCoal: 1000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRegion(models.RegionNorth, tt.gen, 0.005)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRegion() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDiffRoster(t *testing.T) {
	previous := map[models.FuelType]float64{
		models.FuelCoal: 100,
		models.FuelOil:  50,
		models.FuelWind: 20,
	}
	current := map[models.FuelType]float64{
		models.FuelCoal:   100,
		models.FuelWind:   25,
		models.FuelDiesel: 10,
		models.FuelSolar:  5,
	}

	added, removed := DiffRoster(previous, current)
	if len(added) != 2 || added[0] != models.FuelDiesel || added[1] != models.FuelSolar {
		t.Errorf("Expected added [Diesel Solar], got %v", added)
	}
	if len(removed) != 1 || removed[0] != models.FuelOil {
		t.Errorf("Expected removed [Oil], got %v", removed)
	}

	added, removed = DiffRoster(current, current)
	if len(added) != 0 || len(removed) != 0 {
		t.Errorf("Expected no diff for identical rosters, got added=%v removed=%v", added, removed)
	}
}
