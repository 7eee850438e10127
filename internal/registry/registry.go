// Package registry owns the shelter registry served to the map and the
// nearest-shelter queries: generation, periodic regeneration and a spatial
// index for radius lookups.
package registry

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb/geo"
)

// ErrInvalidRadius is returned by Within for a non-positive or non-finite radius.
var ErrInvalidRadius = errors.New("invalid radius")

const (
	dimensions  = 2
	minChildren = 4
	maxChildren = 16
	tolerance   = 1e-9
)

// Registry is an immutable snapshot of shelters with an R-tree over their positions.
type Registry struct {
	records []domain.ShelterRecord
	tree    *rtreego.Rtree
	builtAt time.Time
}

// spatialItem indexes a shelter by [lon, lat]; index is its registry position.
type spatialItem struct {
	index int
	rect  rtreego.Rect
}

func (s *spatialItem) Bounds() rtreego.Rect {
	return s.rect
}

// New validates records and indexes them. The slice is copied.
func New(records []domain.ShelterRecord, builtAt time.Time) (*Registry, error) {
	if err := domain.ValidateRegistry(records); err != nil {
		return nil, err
	}

	items := make([]rtreego.Spatial, len(records))
	for i, s := range records {
		items[i] = &spatialItem{index: i, rect: rtreego.Point{s.Longitude, s.Latitude}.ToRect(tolerance)}
	}

	return &Registry{
		records: slices.Clone(records),
		tree:    rtreego.NewTree(dimensions, minChildren, maxChildren, items...),
		builtAt: builtAt,
	}, nil
}

// Records returns a copy of the shelters in registry order.
func (r *Registry) Records() []domain.ShelterRecord {
	return slices.Clone(r.records)
}

// Len reports the number of shelters.
func (r *Registry) Len() int { return len(r.records) }

// BuiltAt reports when the snapshot was generated.
func (r *Registry) BuiltAt() time.Time { return r.builtAt }

// Nearest ranks the whole registry from origin.
func (r *Registry) Nearest(origin domain.Coordinate, limit int) (domain.ProximityResult, error) {
	return domain.Nearest(origin, r.records, limit)
}

// Within returns every shelter no farther than radiusKm from origin, nearest
// first. Ties keep registry order.
func (r *Registry) Within(origin domain.Coordinate, radiusKm float64) (domain.ProximityResult, error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return nil, fmt.Errorf("%w: %v km", ErrInvalidRadius, radiusKm)
	}
	if len(r.records) == 0 {
		return nil, domain.ErrEmptyRegistry
	}

	box, err := searchRect(origin, radiusKm)
	if err != nil {
		return nil, err
	}

	hits := r.tree.SearchIntersect(box)
	indexes := make([]int, 0, len(hits))
	for _, h := range hits {
		if item, ok := h.(*spatialItem); ok {
			indexes = append(indexes, item.index)
		}
	}
	if len(indexes) == 0 {
		return domain.ProximityResult{}, nil
	}
	slices.Sort(indexes)

	candidates := make([]domain.ShelterRecord, len(indexes))
	for i, idx := range indexes {
		candidates[i] = r.records[idx]
	}

	ranked, err := domain.Nearest(origin, candidates, 0)
	if err != nil {
		return nil, err
	}
	cut := len(ranked)
	for i, p := range ranked {
		if p.DistanceKm > radiusKm {
			cut = i
			break
		}
	}
	return ranked[:cut], nil
}

// searchRect is the [lon, lat] bounding box of the circle around origin. It
// spans every longitude when the circle crosses a pole or the antimeridian.
func searchRect(origin domain.Coordinate, radiusKm float64) (rtreego.Rect, error) {
	b := geo.NewBoundAroundPoint(origin.Point(), radiusKm*1000)
	minLon, maxLon := b.Min.Lon(), b.Max.Lon()
	if math.IsNaN(minLon) || math.IsNaN(maxLon) || minLon > maxLon {
		minLon, maxLon = -180, 180
	}
	minLat := math.Max(b.Min.Lat(), -90)
	maxLat := math.Min(b.Max.Lat(), 90)

	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{minLon - tolerance, minLat - tolerance},
		rtreego.Point{maxLon + tolerance, maxLat + tolerance},
	)
	if err != nil {
		return rtreego.Rect{}, fmt.Errorf("search box: %w", err)
	}
	return rect, nil
}
