package domain

import (
	"math"
	"sort"
)

// EarthRadiusMeters is the mean Earth radius used for haversine distances.
const EarthRadiusMeters = 6_371_000.0

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat,omitempty" yaml:"lat"`
	Lon float64 `json:"lon,omitempty" yaml:"lon"`
}

// IsZero reports whether the pair is unset. No municipality in scope sits on
// the null island, so (0, 0) is treated as "no location shared".
func (g Geo) IsZero() bool {
	return g.Lat == 0 && g.Lon == 0
}

// Bounds is a lat/lon bounding box, inclusive on all edges.
type Bounds struct {
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// IsZero reports whether the box is unset.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Contains reports whether p lies inside the box. An unset box only checks
// that p is a valid coordinate.
func (b Bounds) Contains(p Geo) bool {
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return false
	}
	if b.IsZero() {
		return true
	}
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// GeofenceDefinition is a circular zone around a named landmark.
type GeofenceDefinition struct {
	Name             string   `json:"name"`
	Center           Geo      `json:"center"`
	RadiusMeters     float64  `json:"radius_meters"`
	Category         Category `json:"category"`
	IsStrict         bool     `json:"is_strict"`
	FineAmount       float64  `json:"fine_amount"`
	EnforcementHours string   `json:"enforcement_hours"`
}

// GeofenceMatch is a geofence that contains a point, with the point's distance
// from the geofence center.
type GeofenceMatch struct {
	Geofence       GeofenceDefinition `json:"geofence"`
	DistanceMeters float64            `json:"distance_meters"`
	order          int
}

// GeofenceEvaluator tests points against a fixed set of geofences.
type GeofenceEvaluator struct {
	fences []GeofenceDefinition
	bounds Bounds
}

// NewGeofenceEvaluator copies defs; definition order is preserved and used as
// the final tie-break in PrimaryMatch.
func NewGeofenceEvaluator(defs []GeofenceDefinition, bounds Bounds) *GeofenceEvaluator {
	fences := make([]GeofenceDefinition, len(defs))
	copy(fences, defs)
	return &GeofenceEvaluator{fences: fences, bounds: bounds}
}

// EvaluatePoint returns every geofence whose center lies within its radius of
// (lat, lon), boundary inclusive, in definition order. Points outside the
// municipality simply match nothing.
func (e *GeofenceEvaluator) EvaluatePoint(lat, lon float64) []GeofenceMatch {
	var matches []GeofenceMatch
	for i, f := range e.fences {
		d := HaversineMeters(lat, lon, f.Center.Lat, f.Center.Lon)
		if d <= f.RadiusMeters {
			matches = append(matches, GeofenceMatch{Geofence: f, DistanceMeters: d, order: i})
		}
	}
	return matches
}

// EvaluatePointStrict is EvaluatePoint for callers that want out-of-bounds
// coordinates rejected rather than silently unmatched.
func (e *GeofenceEvaluator) EvaluatePointStrict(lat, lon float64) ([]GeofenceMatch, error) {
	p := Geo{Lat: lat, Lon: lon}
	if !e.bounds.Contains(p) {
		return nil, newValidationError("coordinates", p, "outside municipal bounds")
	}
	return e.EvaluatePoint(lat, lon), nil
}

// Bounds returns the municipal bounding box used for strict validation.
func (e *GeofenceEvaluator) Bounds() Bounds {
	return e.bounds
}

// Definitions returns a copy of the geofence seeds in definition order.
func (e *GeofenceEvaluator) Definitions() []GeofenceDefinition {
	out := make([]GeofenceDefinition, len(e.fences))
	copy(out, e.fences)
	return out
}

// PrimaryMatch picks the single geofence that represents a point: strict
// zones first, then the smallest radius, then the earliest definition.
// It returns false when matches is empty.
func PrimaryMatch(matches []GeofenceMatch) (GeofenceMatch, bool) {
	if len(matches) == 0 {
		return GeofenceMatch{}, false
	}
	ranked := make([]GeofenceMatch, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Geofence, ranked[j].Geofence
		if a.IsStrict != b.IsStrict {
			return a.IsStrict
		}
		if a.RadiusMeters != b.RadiusMeters {
			return a.RadiusMeters < b.RadiusMeters
		}
		return ranked[i].order < ranked[j].order
	})
	return ranked[0], true
}

// HaversineMeters returns the great-circle distance in meters between two
// points given in decimal degrees.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0
	la1 := lat1 * math.Pi / 180.0
	la2 := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}
