package places

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/itsatony/flightwatch/internal/models"
	"github.com/paulmach/orb"
	nuts "github.com/vaudience/go-nuts"
)

// nameKeys is the order in which address fields are considered as place name
var nameKeys = []string{
	"aeroway", "airport", "city", "town", "village", "hamlet",
	"municipality", "suburb", "county", "state",
}

// CacheRecorder receives geocode cache statistics
type CacheRecorder interface {
	GeocodeHit()
	GeocodeMiss()
}

// Options configures a Resolver
type Options struct {
	// MatchRadius returns the global match radius in metres. It is read on
	// every resolution so configuration reloads apply immediately.
	MatchRadius func() float64
	CacheTTL    time.Duration
	CacheSize   int
	Precision   int
	Recorder    CacheRecorder
}

// cached is a geocode cache value; a nil place marks a negative result
type cached struct {
	place *models.Place
}

// Resolver attributes coordinates to a gazetteer entry or, failing that, to
// a reverse-geocoded place.
type Resolver struct {
	gazetteer *Gazetteer
	geocoder  Geocoder
	cache     *expirable.LRU[string, cached]
	opts      Options
	now       func() time.Time
}

// NewResolver creates a resolver. geocoder may be nil, in which case
// anything not in the gazetteer resolves to the unknown place.
func NewResolver(gazetteer *Gazetteer, geocoder Geocoder, opts Options) *Resolver {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.MatchRadius == nil {
		opts.MatchRadius = func() float64 { return 1500 }
	}
	return &Resolver{
		gazetteer: gazetteer,
		geocoder:  geocoder,
		cache:     expirable.NewLRU[string, cached](opts.CacheSize, nil, opts.CacheTTL),
		opts:      opts,
		now:       time.Now,
	}
}

// Resolve returns the place for the given coordinates. It never fails; any
// lookup problem yields the unknown placeholder.
func (r *Resolver) Resolve(ctx context.Context, lat, lon *float64) *models.Place {
	now := r.now().UTC()
	if lat == nil || lon == nil || !validCoordinates(*lat, *lon) {
		return models.UnknownPlace(now)
	}
	if place, ok := r.MatchGazetteer(*lat, *lon); ok {
		return place
	}

	key := r.cacheKey(*lat, *lon)
	if hit, ok := r.cache.Get(key); ok {
		r.recordHit()
		if hit.place == nil {
			return models.UnknownPlace(now)
		}
		return r.fromCache(hit.place, *lat, *lon)
	}
	r.recordMiss()

	if r.geocoder == nil {
		return models.UnknownPlace(now)
	}

	addr, err := r.geocoder.Reverse(ctx, *lat, *lon)
	if err != nil {
		nuts.L.Warnf("[Places] Reverse geocoding %s failed: %v", key, err)
		r.cache.Add(key, cached{})
		return models.UnknownPlace(now)
	}
	place := r.externalPlace(addr, *lat, *lon, now)
	r.cache.Add(key, cached{place: place})
	return place.Clone()
}

// MatchGazetteer returns a user place when an entry covers the coordinates
func (r *Resolver) MatchGazetteer(lat, lon float64) (*models.Place, bool) {
	if r.gazetteer == nil || !validCoordinates(lat, lon) {
		return nil, false
	}
	entry, dist, radius, ok := r.gazetteer.match(lat, lon, r.opts.MatchRadius())
	if !ok {
		return nil, false
	}
	return &models.Place{
		Name:       entry.Name,
		Type:       entry.Category,
		Lat:        entry.Lat,
		Lon:        entry.Lon,
		Source:     models.PlaceSourceUser,
		PlaceID:    entry.ID,
		Distance:   models.Float(dist),
		Radius:     models.Float(radius),
		ResolvedAt: r.now().UTC(),
	}, true
}

// CacheLen returns the number of live geocode cache entries
func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}

func (r *Resolver) cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.*f,%.*f", r.opts.Precision, lat, r.opts.Precision, lon)
}

func (r *Resolver) externalPlace(addr *Address, lat, lon float64, now time.Time) *models.Place {
	name := ""
	for _, k := range nameKeys {
		if v := addr.Fields[k]; v != "" {
			name = v
			break
		}
	}
	if name == "" {
		name = addr.Name
	}
	if name == "" {
		name = addr.DisplayName
	}
	if name == "" {
		name = models.UnknownPlaceName
	}

	placeType := addr.Type
	if placeType == "" {
		placeType = addr.Category
	}
	if placeType == "" {
		placeType = "place"
	}

	place := &models.Place{
		Name:        name,
		Type:        placeType,
		Lat:         addr.Lat,
		Lon:         addr.Lon,
		Source:      models.PlaceSourceExternal,
		Provider:    r.geocoder.Provider(),
		DisplayName: addr.DisplayName,
		Country:     addr.Country,
		CountryCode: addr.CountryCode,
		ResolvedAt:  now,
	}
	if place.Lat == nil || place.Lon == nil {
		place.Lat, place.Lon = models.Float(lat), models.Float(lon)
	}
	place.Distance = models.Float(Distance(pointOf(lat, lon), pointOf(*place.Lat, *place.Lon)))
	return place
}

// fromCache copies a cached place and measures its distance from the new position
func (r *Resolver) fromCache(p *models.Place, lat, lon float64) *models.Place {
	c := p.Clone()
	if c.Lat != nil && c.Lon != nil {
		c.Distance = models.Float(Distance(pointOf(lat, lon), pointOf(*c.Lat, *c.Lon)))
	}
	return c
}

func (r *Resolver) recordHit() {
	if r.opts.Recorder != nil {
		r.opts.Recorder.GeocodeHit()
	}
}

func (r *Resolver) recordMiss() {
	if r.opts.Recorder != nil {
		r.opts.Recorder.GeocodeMiss()
	}
}

func pointOf(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}
