package domain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vizagOrigin = Coordinate{Latitude: 17.68, Longitude: 83.21}

func vizagRegistry() []ShelterRecord {
	return []ShelterRecord{
		{Name: "A", Latitude: 17.63, Longitude: 83.18},
		{Name: "B", Latitude: 17.69, Longitude: 83.21},
		{Name: "C", Latitude: 17.68, Longitude: 83.28},
	}
}

func TestNearest_VizagScenario(t *testing.T) {
	result, err := Nearest(vizagOrigin, vizagRegistry(), 2)
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "B", result[0].Shelter.Name)
	assert.Equal(t, "A", result[1].Shelter.Name)
	assert.InDelta(t, 1.11, result[0].DistanceKm, 0.05)
	assert.InDelta(t, 6.4, result[1].DistanceKm, 0.3)

	all, err := Nearest(vizagOrigin, vizagRegistry(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "C", all[2].Shelter.Name)
	assert.InDelta(t, 7.4, all[2].DistanceKm, 0.3)
	assert.Less(t, all[0].DistanceKm, all[1].DistanceKm, "B must be strictly closer than A")
	assert.Less(t, all[0].DistanceKm, all[2].DistanceKm, "B must be strictly closer than C")
}

func TestNearest_EmptyRegistry(t *testing.T) {
	result, err := Nearest(vizagOrigin, nil, 5)
	assert.ErrorIs(t, err, ErrEmptyRegistry)
	assert.Nil(t, result)

	result, err = Nearest(vizagOrigin, []ShelterRecord{}, 5)
	assert.ErrorIs(t, err, ErrEmptyRegistry)
	assert.Nil(t, result)
}

func TestNearest_InvalidCoordinates(t *testing.T) {
	cases := []struct {
		name     string
		origin   Coordinate
		registry []ShelterRecord
	}{
		{"origin latitude too high", Coordinate{Latitude: 90.5, Longitude: 0}, vizagRegistry()},
		{"origin longitude too low", Coordinate{Latitude: 0, Longitude: -180.1}, vizagRegistry()},
		{"origin NaN", Coordinate{Latitude: math.NaN(), Longitude: 0}, vizagRegistry()},
		{"shelter latitude", vizagOrigin, []ShelterRecord{{Name: "X", Latitude: -91, Longitude: 0}}},
		{"shelter longitude infinite", vizagOrigin, []ShelterRecord{{Name: "X", Latitude: 0, Longitude: math.Inf(1)}}},
		{"bad entry after good ones", vizagOrigin, append(vizagRegistry(), ShelterRecord{Name: "Z", Latitude: 0, Longitude: 200})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Nearest(tc.origin, tc.registry, 3)
			assert.ErrorIs(t, err, ErrInvalidCoordinate)
			assert.Nil(t, result)
		})
	}
}

func TestNearest_InvalidOriginBeatsEmptyRegistry(t *testing.T) {
	_, err := Nearest(Coordinate{Latitude: 100}, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestNearest_BoundaryCoordinatesAccepted(t *testing.T) {
	registry := []ShelterRecord{
		{Name: "north pole", Latitude: 90, Longitude: 0},
		{Name: "antimeridian", Latitude: 0, Longitude: 180},
		{Name: "west edge", Latitude: 0, Longitude: -180},
	}
	result, err := Nearest(Coordinate{Latitude: -90, Longitude: -180}, registry, 0)
	require.NoError(t, err)
	assert.Len(t, result, 3)
}

func TestNearest_DuplicateNames(t *testing.T) {
	registry := append(vizagRegistry(), ShelterRecord{Name: "A", Latitude: 17.7, Longitude: 83.2})
	_, err := Nearest(vizagOrigin, registry, 1)
	assert.ErrorIs(t, err, ErrDuplicateShelter)
}

func TestNearest_TiesKeepRegistryOrder(t *testing.T) {
	// The four cardinal points sit 0.1 degrees from the origin and share an
	// exact haversine distance.
	registry := []ShelterRecord{
		{Name: "east", Latitude: 0, Longitude: 0.1},
		{Name: "far", Latitude: 1, Longitude: 1},
		{Name: "west", Latitude: 0, Longitude: -0.1},
		{Name: "north", Latitude: 0.1, Longitude: 0},
		{Name: "south", Latitude: -0.1, Longitude: 0},
	}
	origin := Coordinate{}

	result, err := Nearest(origin, registry, 0)
	require.NoError(t, err)

	names := make([]string, len(result))
	for i, p := range result {
		names[i] = p.Shelter.Name
	}
	require.Equal(t, result[0].DistanceKm, result[1].DistanceKm)
	assert.Equal(t, []string{"east", "west"}, names[:2])
	assert.Equal(t, []string{"north", "south"}, names[2:4])
	assert.Equal(t, "far", names[4])
}

func TestNearest_PrefixStability(t *testing.T) {
	registry := randomRegistry(rand.New(rand.NewPCG(7, 11)), 60)

	full, err := Nearest(vizagOrigin, registry, len(registry))
	require.NoError(t, err)

	for limit := 1; limit <= len(registry); limit++ {
		got, err := Nearest(vizagOrigin, registry, limit)
		require.NoError(t, err)
		require.Len(t, got, limit)
		if diff := cmp.Diff(full[:limit], got); diff != "" {
			t.Fatalf("limit %d is not a prefix of the full ranking (-want +got):\n%s", limit, diff)
		}
	}
}

func TestNearest_DistancesNonDecreasing(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 25; trial++ {
		registry := randomRegistry(rng, 40)
		origin := Coordinate{Latitude: rng.Float64()*180 - 90, Longitude: rng.Float64()*360 - 180}

		result, err := Nearest(origin, registry, len(registry))
		require.NoError(t, err)
		require.Len(t, result, len(registry))
		for i := 1; i < len(result); i++ {
			assert.LessOrEqual(t, result[i-1].DistanceKm, result[i].DistanceKm)
		}
	}
}

func TestNearest_Deterministic(t *testing.T) {
	registry := randomRegistry(rand.New(rand.NewPCG(3, 4)), 50)
	// Duplicate positions under different names force ties.
	registry = append(registry,
		ShelterRecord{Name: "twin-1", Latitude: registry[0].Latitude, Longitude: registry[0].Longitude},
		ShelterRecord{Name: "twin-2", Latitude: registry[0].Latitude, Longitude: registry[0].Longitude},
	)

	first, err := Nearest(vizagOrigin, registry, 0)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Nearest(vizagOrigin, registry, 0)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("ranking changed between calls (-first +again):\n%s", diff)
		}
	}
}

func TestNearest_LimitLargerThanRegistry(t *testing.T) {
	result, err := Nearest(vizagOrigin, vizagRegistry(), 10)
	require.NoError(t, err)
	assert.Len(t, result, 3)

	head, ok := result.Nearest()
	require.True(t, ok)
	assert.Equal(t, "B", head.Shelter.Name)
}

func TestNearest_DoesNotReorderInput(t *testing.T) {
	registry := vizagRegistry()
	_, err := Nearest(vizagOrigin, registry, 1)
	require.NoError(t, err)
	assert.Equal(t, vizagRegistry(), registry)
}

func TestDistanceKm(t *testing.T) {
	assert.InDelta(t, 0.0, DistanceKm(vizagOrigin, vizagOrigin), 1e-9)
	// One degree of latitude on the WGS-84 equatorial radius.
	assert.InDelta(t, 111.32, DistanceKm(Coordinate{}, Coordinate{Latitude: 1}), 0.01)
	assert.InDelta(t,
		DistanceKm(vizagOrigin, Coordinate{Latitude: 17.7, Longitude: 83.3}),
		DistanceKm(Coordinate{Latitude: 17.7, Longitude: 83.3}, vizagOrigin),
		1e-9,
	)
}

func randomRegistry(rng *rand.Rand, n int) []ShelterRecord {
	out := make([]ShelterRecord, n)
	for i := range out {
		out[i] = ShelterRecord{
			Name:      fmt.Sprintf("shelter-%d", i),
			Latitude:  17.5 + rng.Float64()*0.4,
			Longitude: 83.0 + rng.Float64()*0.4,
		}
	}
	return out
}
