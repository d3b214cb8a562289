package regression

import (
	"encoding/gob"
	"fmt"
	"os"
	"sync"
)

// Model is a pre-trained linear regression model. It is the opaque
// predictor behind every artifact in the models directory: the
// application never trains one, it only deserializes and evaluates it.
type Model struct {
	coefficients []float64
	intercept    float64
	mu           sync.RWMutex
}

// modelFile is the on-disk gob representation of a Model.
type modelFile struct {
	Coefficients []float64
	Intercept    float64
}

// New creates a model from explicit parameters. Used by tests and by
// tooling that produces artifacts.
func New(coefficients []float64, intercept float64) *Model {
	c := make([]float64, len(coefficients))
	copy(c, coefficients)
	return &Model{coefficients: c, intercept: intercept}
}

// NumFeatures returns the input dimension the model was trained with.
func (m *Model) NumFeatures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.coefficients)
}

// Predict evaluates the model on a single feature vector.
func (m *Model) Predict(features []float64) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.coefficients) == 0 {
		return 0, fmt.Errorf("model has no coefficients")
	}
	if len(features) != len(m.coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.coefficients), len(features))
	}

	prediction := m.intercept
	for i, c := range m.coefficients {
		prediction += c * features[i]
	}
	return prediction, nil
}

// Save writes the model to disk as a gob artifact.
func (m *Model) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewEncoder(f).Encode(modelFile{
		Coefficients: m.coefficients,
		Intercept:    m.intercept,
	})
}

// Load reads a gob artifact from disk. A truncated or non-gob file
// returns a decode error without modifying the receiver.
func (m *Model) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var data modelFile
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode model artifact: %w", err)
	}
	if len(data.Coefficients) == 0 {
		return fmt.Errorf("model artifact has no coefficients")
	}

	m.mu.Lock()
	m.coefficients = data.Coefficients
	m.intercept = data.Intercept
	m.mu.Unlock()

	return nil
}
