package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate checks that both components are finite and in range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// Point converts to an orb.Point, which is ordered [lon, lat].
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// CoordinateFromPoint converts an orb.Point back to a Coordinate.
func CoordinateFromPoint(p orb.Point) Coordinate {
	return Coordinate{Latitude: p.Lat(), Longitude: p.Lon()}
}

// PressureReading is one weather observation handed to the classifier.
// Fallback is set when the weather source could not be reached and the
// configured default was substituted.
type PressureReading struct {
	Latitude      float64   `json:"lat"`
	Longitude     float64   `json:"lon"`
	PressureHPa   float64   `json:"pressure_hpa"`
	LocationLabel string    `json:"location"`
	Fallback      bool      `json:"fallback,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Coordinate returns the reading's position.
func (r PressureReading) Coordinate() Coordinate {
	return Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Assessment is a classified reading, the unit the monitor publishes and the
// API serves.
type Assessment struct {
	ID         string          `json:"id"`
	Reading    PressureReading `json:"reading"`
	Tier       RiskTier        `json:"tier"`
	Classifier string          `json:"classifier"`
	AssessedAt time.Time       `json:"assessed_at"`
}

// NewAssessment stamps a classified reading with a fresh ID and the current time.
func NewAssessment(reading PressureReading, tier RiskTier, classifier string) Assessment {
	return Assessment{
		ID:         uuid.NewString(),
		Reading:    reading,
		Tier:       tier,
		Classifier: classifier,
		AssessedAt: clock.Now().UTC(),
	}
}
