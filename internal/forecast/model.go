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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"greenmoment-go/internal/models"
)

// Model is one region's pretrained single-shot predictor: a dense layer over
// the flattened, standardized input window, producing all output steps at
// once. The file also freezes the exact feature order the model was trained
// with, so serving never has to guess.
type Model struct {
	Region       models.Region `json:"region"`
	FeatureOrder []string      `json:"feature_order"`
	InputSteps   int           `json:"input_steps"`
	OutputSteps  int           `json:"output_steps"`

	// Standard-scaler parameters, per input feature and per output fuel.
	XMean []float64 `json:"x_mean"`
	XStd  []float64 `json:"x_std"`
	YMean []float64 `json:"y_mean"`
	YStd  []float64 `json:"y_std"`

	// Weights is (InputSteps*len(FeatureOrder)) rows by
	// (OutputSteps*len(GenerationFuels)) columns.
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// LoadModel reads and validates one region's model file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read model file: %w", err)
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("unable to parse model file %s: %w", path, err)
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("invalid model file %s: %w", path, err)
	}
	return &model, nil
}

// LoadModels reads one model per region from dir, expecting <Region>.json
// file names. Every region must have a model.
func LoadModels(dir string) (map[models.Region]*Model, error) {
	loaded := make(map[models.Region]*Model, len(models.Regions))
	for _, region := range models.Regions {
		model, err := LoadModel(filepath.Join(dir, string(region)+".json"))
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", region, err)
		}
		if model.Region != region {
			return nil, fmt.Errorf("region %s: model file declares region %s", region, model.Region)
		}
		loaded[region] = model
	}
	return loaded, nil
}

func (m *Model) validate() error {
	if m.InputSteps != models.CacheWindowSize {
		return fmt.Errorf("expected %d input steps, got %d", models.CacheWindowSize, m.InputSteps)
	}
	if m.OutputSteps != models.ForecastSteps {
		return fmt.Errorf("expected %d output steps, got %d", models.ForecastSteps, m.OutputSteps)
	}
	if len(m.FeatureOrder) == 0 {
		return fmt.Errorf("empty feature order")
	}

	inputWidth := m.InputSteps * len(m.FeatureOrder)
	outputWidth := m.OutputSteps * len(models.GenerationFuels)

	if len(m.XMean) != len(m.FeatureOrder) || len(m.XStd) != len(m.FeatureOrder) {
		return fmt.Errorf("input scaler length %d/%d does not match %d features",
			len(m.XMean), len(m.XStd), len(m.FeatureOrder))
	}
	if len(m.YMean) != len(models.GenerationFuels) || len(m.YStd) != len(models.GenerationFuels) {
		return fmt.Errorf("output scaler length %d/%d does not match %d fuels",
			len(m.YMean), len(m.YStd), len(models.GenerationFuels))
	}
	if len(m.Weights) != inputWidth {
		return fmt.Errorf("weight rows %d does not match input width %d", len(m.Weights), inputWidth)
	}
	for i, row := range m.Weights {
		if len(row) != outputWidth {
			return fmt.Errorf("weight row %d has %d columns, want %d", i, len(row), outputWidth)
		}
	}
	if len(m.Bias) != outputWidth {
		return fmt.Errorf("bias length %d does not match output width %d", len(m.Bias), outputWidth)
	}
	return nil
}

// Predict runs the model over a full input window and returns per-step
// per-fuel generation in MW, oldest step first. Negative predictions are
// clamped to zero before they can poison the intensity math.
func (m *Model) Predict(window models.CacheWindow) ([][]float64, error) {
	if window.Len() != m.InputSteps {
		return nil, fmt.Errorf("window for %s has %d samples, want %d", m.Region, window.Len(), m.InputSteps)
	}

	input, err := buildInput(window, m.FeatureOrder)
	if err != nil {
		return nil, err
	}

	// Standardize per feature, repeated across the window's steps.
	featureCount := len(m.FeatureOrder)
	for i := range input {
		f := i % featureCount
		if m.XStd[f] != 0 {
			input[i] = (input[i] - m.XMean[f]) / m.XStd[f]
		} else {
			input[i] = input[i] - m.XMean[f]
		}
	}

	outputWidth := len(m.Bias)
	raw := make([]float64, outputWidth)
	copy(raw, m.Bias)
	for i, x := range input {
		if x == 0 {
			continue
		}
		row := m.Weights[i]
		for j := range row {
			raw[j] += x * row[j]
		}
	}

	fuels := len(models.GenerationFuels)
	steps := make([][]float64, m.OutputSteps)
	for step := 0; step < m.OutputSteps; step++ {
		values := make([]float64, fuels)
		for f := 0; f < fuels; f++ {
			value := raw[step*fuels+f]*m.YStd[f] + m.YMean[f]
			if value < 0 {
				value = 0
			}
			values[f] = value
		}
		steps[step] = values
	}
	return steps, nil
}
