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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"greenmoment-go/internal/models"
)

func Load() (*models.Config, error) {
	fetchTimeout, err := getEnvDuration("FEED_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	tickOffset, err := getEnvDuration("TICK_OFFSET", 9*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	sumTolerance, err := getEnvFloat("FEED_SUM_TOLERANCE", 0.005)
	if err != nil {
		return nil, err
	}

	baseline, err := getEnvFloat("BASELINE_INTENSITY_G", 500)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "greenmoment.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			SeedDemoUsers:   getEnvBool("SEED_DEMO_USERS", false),
		},
		Generator: models.GeneratorConfig{
			GenerationFeedURL: getEnvString("GENERATION_FEED_URL", ""),
			WeatherFeedURL:    getEnvString("WEATHER_FEED_URL", ""),
			WeatherAPIKey:     getEnvString("WEATHER_API_KEY", ""),
			FetchTimeout:      fetchTimeout,
			TickOffset:        tickOffset,
			ModelsDir:         getEnvString("MODELS_DIR", "data/models"),
			ArtifactPath:      getEnvString("ARTIFACT_PATH", "data/carbon_intensity.json"),
			SumTolerance:      sumTolerance,
			Timezone:          getEnvString("GRID_TIMEZONE", "Asia/Taipei"),
		},
		Accounting: models.AccountingConfig{
			BaselineIntensityGrams: baseline,
			AppliancesFile:         getEnvString("APPLIANCES_FILE", "appliances.yaml"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return floatValue, nil
	}
	return defaultValue, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
