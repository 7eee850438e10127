package domain

import "errors"

var (
	// ErrInvalidMeasurement is returned for NaN or infinite pressure readings.
	ErrInvalidMeasurement = errors.New("invalid measurement")

	// ErrInvalidCoordinate is returned when a latitude/longitude pair is out of
	// range or not finite.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrEmptyRegistry is returned when ranking an empty shelter registry.
	ErrEmptyRegistry = errors.New("empty shelter registry")

	// ErrDuplicateShelter is returned when two registry entries share a name.
	ErrDuplicateShelter = errors.New("duplicate shelter name")
)
