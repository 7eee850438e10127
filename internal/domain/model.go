package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// LinearModel is the on-disk model artifact: a linear score over latitude,
// longitude, and pressure, bucketed into tiers by three ascending cutoffs.
// The tier is the number of cutoffs the score strictly exceeds.
type LinearModel struct {
	ModelName string       `json:"name"`
	Intercept float64      `json:"intercept"`
	Weights   ModelWeights `json:"weights"`
	Cutoffs   []float64    `json:"cutoffs"`
}

// ModelWeights are the per-feature coefficients of a LinearModel.
type ModelWeights struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Pressure  float64 `json:"pressure"`
}

// ThresholdModel returns a LinearModel that reproduces the fixed pressure
// table exactly. It is the artifact `cyclonectl model init` writes.
func ThresholdModel() *LinearModel {
	return &LinearModel{
		ModelName: "pressure-linear-v1",
		Weights:   ModelWeights{Pressure: -1},
		Cutoffs:   []float64{-depressionBelowHPa, -stormBelowHPa, -cycloneBelowHPa},
	}
}

// LoadModel reads and validates a LinearModel artifact from path.
func LoadModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validate model %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks that the artifact has exactly three finite, strictly
// ascending cutoffs and finite coefficients.
func (m *LinearModel) Validate() error {
	if m.ModelName == "" {
		return errors.New("model name is required")
	}
	if len(m.Cutoffs) != int(TierCyclone) {
		return fmt.Errorf("expected %d cutoffs, got %d", int(TierCyclone), len(m.Cutoffs))
	}
	coeffs := append([]float64{m.Intercept, m.Weights.Latitude, m.Weights.Longitude, m.Weights.Pressure}, m.Cutoffs...)
	for _, v := range coeffs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("coefficients and cutoffs must be finite")
		}
	}
	for i := 1; i < len(m.Cutoffs); i++ {
		if m.Cutoffs[i] <= m.Cutoffs[i-1] {
			return errors.New("cutoffs must be strictly ascending")
		}
	}
	return nil
}

// Predict scores the features and maps the score to a tier.
func (m *LinearModel) Predict(lat, lon, pressureHPa float64) (RiskTier, error) {
	score := m.Intercept +
		m.Weights.Latitude*lat +
		m.Weights.Longitude*lon +
		m.Weights.Pressure*pressureHPa
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return TierSafe, fmt.Errorf("%w: model score %v", ErrInvalidMeasurement, score)
	}

	tier := TierSafe
	for _, c := range m.Cutoffs {
		if score > c {
			tier++
		}
	}
	return tier, nil
}

// Name returns the artifact's declared name.
func (m *LinearModel) Name() string { return m.ModelName }
