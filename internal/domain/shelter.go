package domain

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/paulmach/orb/geo"
)

// ShelterRecord is one named safe-zone candidate.
type ShelterRecord struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Coordinate returns the shelter's position.
func (s ShelterRecord) Coordinate() Coordinate {
	return Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Proximity pairs a shelter with its distance from the query origin.
type Proximity struct {
	Shelter    ShelterRecord `json:"shelter"`
	DistanceKm float64       `json:"distance_km"`
}

// ProximityResult is ordered by ascending distance; the head is the nearest shelter.
type ProximityResult []Proximity

// Nearest returns the closest shelter, if any.
func (r ProximityResult) Nearest() (Proximity, bool) {
	if len(r) == 0 {
		return Proximity{}, false
	}
	return r[0], true
}

// DistanceKm returns the haversine great-circle distance between two
// coordinates in kilometers.
func DistanceKm(a, b Coordinate) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point()) / 1000
}

// Nearest ranks the registry by distance from origin and returns the first
// limit entries. A limit <= 0 or larger than the registry returns every entry.
// Ties keep registry order. The origin and every record are validated first;
// on error no partial result is returned.
func Nearest(origin Coordinate, registry []ShelterRecord, limit int) (ProximityResult, error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if len(registry) == 0 {
		return nil, ErrEmptyRegistry
	}

	if err := ValidateRegistry(registry); err != nil {
		return nil, err
	}

	ranked := make(ProximityResult, len(registry))
	for i, s := range registry {
		ranked[i] = Proximity{Shelter: s, DistanceKm: DistanceKm(origin, s.Coordinate())}
	}
	slices.SortStableFunc(ranked, func(a, b Proximity) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// ValidateRegistry checks every record's coordinates and rejects duplicate names.
func ValidateRegistry(registry []ShelterRecord) error {
	seen := make(map[string]struct{}, len(registry))
	for _, s := range registry {
		if err := s.Coordinate().Validate(); err != nil {
			return fmt.Errorf("shelter %q: %w", s.Name, err)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateShelter, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
