// Package geo resolves city names to coordinates and computes great-circle
// distances, backing the geographic-decay stage of the scoring pipeline.
package geo

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"manifold/internal/textnorm"
)

// Geocoder resolves a city name to coordinates when the static table misses.
// Implementations must be side-effect-safe and cacheable; Resolver serializes
// and caches all calls, so a Geocoder need not be internally thread-safe.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (orb.Point, bool, error)
}

// staticCities mirrors the hardcoded coordinate table from the original
// matcher (original_source/src/utils/geo_utils.py COORDONNEES_VILLES).
// orb.Point is {X: longitude, Y: latitude}.
var staticCities = map[string]orb.Point{
	"paris":         {2.3522, 48.8566},
	"lyon":          {4.8357, 45.7640},
	"marseille":     {5.3698, 43.2965},
	"toulouse":      {1.4442, 43.6047},
	"lille":         {3.0573, 50.6292},
	"bordeaux":      {-0.5792, 44.8378},
	"nice":          {7.2620, 43.7102},
	"nantes":        {-1.5536, 47.2184},
	"strasbourg":    {7.7521, 48.5734},
	"montpellier":   {3.8767, 43.6108},
	"rennes":        {-1.6778, 48.1173},
	"toulon":        {5.9280, 43.1242},
	"grenoble":      {5.7245, 45.1885},
	"dijon":         {5.0415, 47.3220},
	"angers":        {-0.5632, 47.4784},
	"brest":         {-4.4860, 48.3905},
	"le mans":       {0.1984, 48.0077},
	"metz":          {6.1757, 49.1193},
	"reims":         {4.0317, 49.2583},
	"orleans":       {1.9093, 47.9029},
	"bourges":       {2.3987, 47.0816},
	"vendee":        {-1.4269, 46.6706},
	"versailles":    {2.1204, 48.8049},
	"rouen":         {1.0993, 49.4432},
	"mulhouse":      {7.3359, 47.7508},
	"caen":          {-0.3707, 49.1829},
	"nancy":         {6.1844, 48.6921},
	"saint-etienne": {4.3872, 45.4397},
	"avignon":       {4.8055, 43.9493},
}

// Resolver resolves city-to-city distances with a two-step strategy: the
// static table first, then an optional Geocoder behind a mutex-guarded
// cache. The cache belongs to the Resolver: every lookup through the same
// Resolver shares it, while separate Resolvers keep separate caches.
// Entries (including misses) never expire for the Resolver's lifetime.
type Resolver struct {
	geocoder Geocoder

	mu    sync.Mutex
	cache map[string]*orb.Point // nil value means "looked up, not found"
}

// NewResolver constructs a Resolver. geocoder may be nil, in which case
// cities outside the static table resolve to "unknown".
func NewResolver(geocoder Geocoder) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		cache:    make(map[string]*orb.Point),
	}
}

// coordinates resolves a city name to a point, consulting the static table,
// then the process cache, then the geocoder.
func (r *Resolver) coordinates(ctx context.Context, city string) (orb.Point, bool) {
	key := textnorm.Normalize(city)
	if pt, ok := staticCities[key]; ok {
		return pt, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[key]; ok {
		if cached == nil {
			return orb.Point{}, false
		}
		return *cached, true
	}

	if r.geocoder == nil {
		r.cache[key] = nil
		return orb.Point{}, false
	}

	pt, found, err := r.geocoder.Geocode(ctx, city)
	if err != nil || !found {
		r.cache[key] = nil
		return orb.Point{}, false
	}
	cp := pt
	r.cache[key] = &cp
	return pt, true
}

// DistanceKM returns the great-circle distance in km between two cities, or
// false if either city cannot be resolved to coordinates.
func (r *Resolver) DistanceKM(ctx context.Context, cityA, cityB string) (float64, bool) {
	a, ok := r.coordinates(ctx, cityA)
	if !ok {
		return 0, false
	}
	b, ok := r.coordinates(ctx, cityB)
	if !ok {
		return 0, false
	}
	// geo.Distance returns meters on a WGS84-ish sphere; the pipeline is
	// insensitive at the km scale to Haversine vs. geodesic (spec.md §4.2).
	return geo.Distance(a, b) / 1000.0, true
}
