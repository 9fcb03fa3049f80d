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

// Package artifact publishes the combined current+forecast output document.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"greenmoment-go/internal/models"

	"go.uber.org/zap"
)

// Writer publishes artifacts with a temp-file-and-rename swap so readers
// never observe a half-written document.
type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Publish writes the artifact atomically, creating parent directories as
// needed.
func (w *Writer) Publish(artifact *models.Artifact) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("unable to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal artifact: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(w.path), filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("unable to create temp artifact: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("unable to write temp artifact: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("unable to close temp artifact: %w", err)
	}
	if err := os.Rename(tempPath, w.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("unable to swap artifact into place: %w", err)
	}

	zap.L().Info("Artifact published",
		zap.String("path", w.path),
		zap.String("status", artifact.Status),
		zap.Bool("forecast_available", artifact.Forecast.Available))
	return nil
}

// Load reads the last published artifact, or nil when none exists yet. The
// generator uses it to re-emit the previous forecast after a failed forecast
// step.
func (w *Writer) Load() (*models.Artifact, error) {
	data, err := os.ReadFile(w.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read artifact: %w", err)
	}

	var artifact models.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("corrupt artifact at %s: %w", w.path, err)
	}
	return &artifact, nil
}
