package domain

import "context"

// FallbackLocationLabel marks a reading substituted for an unreachable weather source.
const FallbackLocationLabel = "Default (Simulated)"

// WeatherSource supplies the current pressure reading for a city.
type WeatherSource interface {
	// Current never fails: when the upstream lookup does, it returns the
	// configured fallback reading with Fallback set.
	Current(ctx context.Context, city string) PressureReading
}

// FallbackReading builds the substitute reading used when no observation is available.
func FallbackReading(origin Coordinate, pressureHPa float64) PressureReading {
	return PressureReading{
		Latitude:      origin.Latitude,
		Longitude:     origin.Longitude,
		PressureHPa:   pressureHPa,
		LocationLabel: FallbackLocationLabel,
		Fallback:      true,
		ObservedAt:    clock.Now().UTC(),
	}
}
