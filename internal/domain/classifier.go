package domain

import (
	"context"
	"log/slog"
)

// Classifier turns a pressure reading into a risk tier.
type Classifier interface {
	Classify(ctx context.Context, reading PressureReading) (RiskTier, error)

	// Name identifies the classifier in logs, metrics, and assessments.
	Name() string
}

// Model is an externally supplied predictor. Implementations must be safe for
// concurrent use.
type Model interface {
	Predict(lat, lon, pressureHPa float64) (RiskTier, error)
	Name() string
}

// ThresholdClassifier applies the fixed pressure table. It is the universal
// default and the fallback for every other classifier.
type ThresholdClassifier struct{}

func (ThresholdClassifier) Classify(_ context.Context, reading PressureReading) (RiskTier, error) {
	return ClassifyPressure(reading.PressureHPa)
}

func (ThresholdClassifier) Name() string { return "threshold" }

// ExternalModelClassifier consults a loaded Model and falls back to the
// threshold table whenever the model errors or returns an undefined tier.
type ExternalModelClassifier struct {
	model      Model
	fallback   ThresholdClassifier
	logger     *slog.Logger
	onFallback func(err error)
}

// NewExternalModelClassifier wraps model. onFallback, if non-nil, is called
// each time the threshold table answers in the model's place.
func NewExternalModelClassifier(model Model, logger *slog.Logger, onFallback func(err error)) *ExternalModelClassifier {
	return &ExternalModelClassifier{
		model:      model,
		logger:     logger,
		onFallback: onFallback,
	}
}

func (c *ExternalModelClassifier) Classify(ctx context.Context, reading PressureReading) (RiskTier, error) {
	// The table also guards against NaN, so bad readings are rejected before
	// the model sees them.
	tableTier, err := c.fallback.Classify(ctx, reading)
	if err != nil {
		return TierSafe, err
	}

	tier, err := c.model.Predict(reading.Latitude, reading.Longitude, reading.PressureHPa)
	if err == nil && !tier.Valid() {
		err = ErrInvalidMeasurement
	}
	if err != nil {
		c.logger.Warn("model prediction failed, using threshold table",
			"model", c.model.Name(),
			"pressure_hpa", reading.PressureHPa,
			"error", err,
		)
		if c.onFallback != nil {
			c.onFallback(err)
		}
		return tableTier, nil
	}
	return tier, nil
}

func (c *ExternalModelClassifier) Name() string { return "model:" + c.model.Name() }

// NewClassifier selects the classifier at startup. An empty modelPath or a
// model that fails to load yields the threshold classifier, so classification
// is always available.
func NewClassifier(modelPath string, logger *slog.Logger, onFallback func(err error)) Classifier {
	if modelPath == "" {
		logger.Info("no model configured, using threshold classifier")
		return ThresholdClassifier{}
	}

	model, err := LoadModel(modelPath)
	if err != nil {
		logger.Warn("model load failed, using threshold classifier", "path", modelPath, "error", err)
		return ThresholdClassifier{}
	}

	logger.Info("external model loaded", "path", modelPath, "model", model.Name())
	return NewExternalModelClassifier(model, logger, onFallback)
}
