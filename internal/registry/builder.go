package registry

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/paulmach/orb/geo"
)

// VizagHubs are the permanent cyclone shelters around Visakhapatnam.
var VizagHubs = []domain.ShelterRecord{
	{Name: "Gajuwaka Cyclone Shelter", Latitude: 17.6912, Longitude: 83.2105},
	{Name: "Andhra University Relief Centre", Latitude: 17.7296, Longitude: 83.3197},
	{Name: "RK Beach Community Hall", Latitude: 17.7142, Longitude: 83.3231},
	{Name: "Marripalem School Shelter", Latitude: 17.7450, Longitude: 83.2620},
	{Name: "Yarada Coastal Shelter", Latitude: 17.6560, Longitude: 83.2690},
	{Name: "Pedagantyada Relief Camp", Latitude: 17.6460, Longitude: 83.2190},
	{Name: "Madhurawada Community Hall", Latitude: 17.8170, Longitude: 83.3510},
	{Name: "Bheemunipatnam Shelter", Latitude: 17.8900, Longitude: 83.4510},
}

// BuildOptions controls registry generation.
type BuildOptions struct {
	Hubs       []domain.ShelterRecord
	Satellites int     // satellites generated per hub
	RadiusKm   float64 // maximum satellite distance from its hub
	Seed       uint64  // 0 seeds from the current time on every build
}

// Build returns every hub followed by its satellites, each placed at a random
// bearing and distance within RadiusKm of the hub.
func Build(opts BuildOptions, rng *rand.Rand) []domain.ShelterRecord {
	out := make([]domain.ShelterRecord, 0, len(opts.Hubs)*(opts.Satellites+1))
	for _, hub := range opts.Hubs {
		out = append(out, hub)
		for n := 1; n <= opts.Satellites; n++ {
			bearing := rng.Float64() * 360
			meters := rng.Float64() * opts.RadiusKm * 1000
			p := geo.PointAtBearingAndDistance(hub.Coordinate().Point(), bearing, meters)
			out = append(out, domain.ShelterRecord{
				Name:      fmt.Sprintf("%s Annex %d", hub.Name, n),
				Latitude:  p.Lat(),
				Longitude: normalizeLon(p.Lon()),
			})
		}
	}
	return out
}

// normalizeLon wraps a longitude into [-180, 180].
func normalizeLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
