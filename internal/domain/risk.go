package domain

import (
	"fmt"
	"math"
	"strings"
)

// RiskTier is an ordered cyclone severity level.
type RiskTier int

const (
	TierSafe RiskTier = iota
	TierDepression
	TierStorm
	TierCyclone
)

// Pressure thresholds in hectopascals. Each is the inclusive lower bound of
// the next less severe tier.
const (
	cycloneBelowHPa    = 960.0
	stormBelowHPa      = 990.0
	depressionBelowHPa = 1005.0
)

var tierNames = [...]string{
	TierSafe:       "safe",
	TierDepression: "depression",
	TierStorm:      "storm",
	TierCyclone:    "cyclone",
}

// Tiers lists every tier in ascending severity.
func Tiers() []RiskTier {
	return []RiskTier{TierSafe, TierDepression, TierStorm, TierCyclone}
}

func (t RiskTier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("RiskTier(%d)", int(t))
	}
	return tierNames[t]
}

// Valid reports whether t is one of the four defined tiers.
func (t RiskTier) Valid() bool {
	return t >= TierSafe && t <= TierCyclone
}

// Alerting reports whether the tier is severe enough to notify contacts.
func (t RiskTier) Alerting() bool {
	return t >= TierStorm
}

// MarshalText encodes the tier as its lowercase name.
func (t RiskTier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal risk tier: unknown value %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name, case-insensitively.
func (t *RiskTier) UnmarshalText(b []byte) error {
	parsed, err := ParseRiskTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseRiskTier converts a tier name ("safe", "storm", ...) to a RiskTier.
func ParseRiskTier(s string) (RiskTier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range tierNames {
		if name == s {
			return RiskTier(i), nil
		}
	}
	return TierSafe, fmt.Errorf("unknown risk tier %q", s)
}

// ClassifyPressure maps a pressure reading in hPa to a risk tier using the
// fixed threshold table. It fails only for NaN or infinite input.
func ClassifyPressure(pressureHPa float64) (RiskTier, error) {
	if math.IsNaN(pressureHPa) || math.IsInf(pressureHPa, 0) {
		return TierSafe, fmt.Errorf("%w: pressure %v hPa", ErrInvalidMeasurement, pressureHPa)
	}

	switch {
	case pressureHPa < cycloneBelowHPa:
		return TierCyclone, nil
	case pressureHPa < stormBelowHPa:
		return TierStorm, nil
	case pressureHPa < depressionBelowHPa:
		return TierDepression, nil
	default:
		return TierSafe, nil
	}
}
