package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Generator  GeneratorConfig
	Accounting AccountingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	SeedDemoUsers   bool
}

// GeneratorConfig holds ingestion/forecast tick settings
type GeneratorConfig struct {
	GenerationFeedURL string
	WeatherFeedURL    string
	WeatherAPIKey     string
	FetchTimeout      time.Duration
	// TickOffset shifts each tick past the reporting slot to allow for
	// upstream publication lag.
	TickOffset   time.Duration
	ModelsDir    string
	ArtifactPath string
	// SumTolerance is the allowed relative difference between the summed
	// fuel mix and the feed's separately reported total.
	SumTolerance float64
	Timezone     string
}

// AccountingConfig holds daily/monthly close settings
type AccountingConfig struct {
	// BaselineIntensityGrams is the fixed counterfactual reference in
	// g CO2e/kWh.
	BaselineIntensityGrams float64
	AppliancesFile         string
}
