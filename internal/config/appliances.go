package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ApplianceConfig maps one appliance type to its rated power draw.
type ApplianceConfig struct {
	Type  string  `yaml:"type"`
	Watts float64 `yaml:"watts"`
}

type AppliancesConfig struct {
	Appliances []ApplianceConfig `yaml:"appliances"`
}

// defaultAppliances is the built-in catalog used when no appliances file is
// present.
var defaultAppliances = []ApplianceConfig{
	{Type: "washing_machine", Watts: 500},
	{Type: "dryer", Watts: 2000},
	{Type: "dishwasher", Watts: 1800},
	{Type: "oven", Watts: 2400},
	{Type: "microwave", Watts: 1000},
	{Type: "rice_cooker", Watts: 700},
	{Type: "tv", Watts: 150},
	{Type: "air_conditioner", Watts: 1500},
	{Type: "fan", Watts: 75},
	{Type: "ev_fast_charge", Watts: 50000},
	{Type: "ev_slow_charge", Watts: 7000},
}

// LoadApplianceCatalog reads the appliance catalog from appliancesFile and
// returns it keyed by appliance type. A missing file falls back to the
// built-in defaults; a malformed file is an error.
func LoadApplianceCatalog(appliancesFile string) (map[string]float64, error) {
	var appliancesPath string
	if filepath.IsAbs(appliancesFile) {
		appliancesPath = appliancesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		appliancesPath = filepath.Join(wd, appliancesFile)
	}

	data, err := os.ReadFile(appliancesPath)
	if os.IsNotExist(err) {
		return catalogFrom(defaultAppliances)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", appliancesFile, err)
	}

	var config AppliancesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", appliancesFile, err)
	}

	for i, appliance := range config.Appliances {
		if appliance.Type == "" {
			return nil, fmt.Errorf("appliance at index %d missing type", i)
		}
		if appliance.Watts <= 0 {
			return nil, fmt.Errorf("appliance %q must have positive watts", appliance.Type)
		}
	}

	return catalogFrom(config.Appliances)
}

func catalogFrom(appliances []ApplianceConfig) (map[string]float64, error) {
	catalog := make(map[string]float64, len(appliances))
	for _, appliance := range appliances {
		if _, exists := catalog[appliance.Type]; exists {
			return nil, fmt.Errorf("duplicate appliance type %q", appliance.Type)
		}
		catalog[appliance.Type] = appliance.Watts
	}
	return catalog, nil
}
