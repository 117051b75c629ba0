// FilePath: internal/models/models.place.go
package models

import (
	"time"

	"github.com/paulmach/orb"
)

type PlaceSource string

const (
	PlaceSourceUser     PlaceSource = "user"
	PlaceSourceExternal PlaceSource = "external"

	UnknownPlaceName = "Unknown"
	UnknownPlaceType = "unknown"
)

// Place is the location snapshot attached to an event
type Place struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Lat         *float64    `json:"lat"`
	Lon         *float64    `json:"lon"`
	Source      PlaceSource `json:"source"`
	PlaceID     string      `json:"placeId,omitempty"`
	Distance    *float64    `json:"distance,omitempty"`
	Radius      *float64    `json:"radius,omitempty"`
	Provider    string      `json:"provider,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	Country     string      `json:"country,omitempty"`
	CountryCode string      `json:"countryCode,omitempty"`
	ResolvedAt  time.Time   `json:"resolvedAt"`
}

// UnknownPlace is the placeholder returned when nothing could be resolved
func UnknownPlace(now time.Time) *Place {
	return &Place{
		Name:       UnknownPlaceName,
		Type:       UnknownPlaceType,
		Source:     PlaceSourceExternal,
		ResolvedAt: now,
	}
}

// IsUnknown reports whether p is nil or the unknown placeholder
func (p *Place) IsUnknown() bool {
	return p == nil || (p.Type == UnknownPlaceType && p.Name == UnknownPlaceName)
}

// Clone returns a deep copy of the place
func (p *Place) Clone() *Place {
	if p == nil {
		return nil
	}
	c := *p
	c.Lat = cloneFloat(p.Lat)
	c.Lon = cloneFloat(p.Lon)
	c.Distance = cloneFloat(p.Distance)
	c.Radius = cloneFloat(p.Radius)
	return &c
}

// GazetteerEntry is a user-defined named place
type GazetteerEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Lat       *float64  `json:"lat"`
	Lon       *float64  `json:"lon"`
	Radius    *float64  `json:"radius,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasCoordinates reports whether the entry can take part in matching
func (e *GazetteerEntry) HasCoordinates() bool {
	return e != nil && e.Lat != nil && e.Lon != nil
}

// Point returns the entry position as an orb point (lon, lat)
func (e *GazetteerEntry) Point() orb.Point {
	if !e.HasCoordinates() {
		return orb.Point{}
	}
	return orb.Point{*e.Lon, *e.Lat}
}

// Clone returns a deep copy of the entry
func (e *GazetteerEntry) Clone() *GazetteerEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Lat = cloneFloat(e.Lat)
	c.Lon = cloneFloat(e.Lon)
	c.Radius = cloneFloat(e.Radius)
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
