// Package domain holds the cyclone-risk decision core: pressure classification
// and nearest-shelter ranking. Everything here is safe to call from any number
// of goroutines. Apart from [LoadModel] reading its artifact, I/O lives in the
// adapter packages.
//
// # Risk Tiers
//
// Tiers are ordered so callers can compare them directly
// (tier >= TierStorm triggers dispatch):
//
//	TierSafe < TierDepression < TierStorm < TierCyclone
//
// The default classifier is a fixed pressure table in hectopascals. Lower
// bounds are inclusive, so a reading sitting exactly on a threshold belongs to
// the less severe tier:
//
//	p < 960           Cyclone
//	960 <= p < 990    Storm
//	990 <= p < 1005   Depression
//	p >= 1005         Safe
//
// Any finite value classifies, however implausible. NaN and infinities are
// rejected with [ErrInvalidMeasurement] so bad upstream data is not masked as
// a quiet tier.
//
// # External Models
//
// A [Model] artifact may be loaded at startup (see [LoadModel]) and wrapped in
// an [ExternalModelClassifier]. If no artifact is configured, or it fails to
// load, or it fails on a given reading, the threshold table answers instead.
//
// # Shelter Ranking
//
// [Nearest] ranks a registry by great-circle (haversine) distance from an
// origin. The sort is stable: shelters at equal distance keep registry order.
// Coordinates are validated before any distance is computed.
package domain
