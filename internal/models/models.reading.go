// FilePath: internal/models/models.reading.go
package models

import (
	"regexp"
	"time"
)

var hexPattern = regexp.MustCompile(`^~?[0-9a-f]{6}$`)

// ValidHex reports whether hex is a lowercase ICAO address, optionally with
// the "~" prefix used for non-ICAO targets.
func ValidHex(hex string) bool {
	return hexPattern.MatchString(hex)
}

// RawReading holds the unparsed text fragments read from the tracking page
type RawReading struct {
	Time         time.Time `json:"time"`
	Hex          string    `json:"hex"`
	Callsign     string    `json:"callsign"`
	Registration string    `json:"reg"`
	Type         string    `json:"type"`
	Speed        string    `json:"gs"`
	Altitude     string    `json:"alt"`
	Position     string    `json:"pos"`
	VerticalRate string    `json:"vr"`
	Track        string    `json:"hdg"`
	LastSeen     string    `json:"lastSeen"`
}

// Reading is one normalized telemetry sample. Every field is always present;
// unknown numeric values are nil.
type Reading struct {
	Time         time.Time `json:"time" db:"time"`
	Hex          string    `json:"hex" db:"hex"`
	Callsign     string    `json:"callsign" db:"callsign"`
	Registration string    `json:"reg" db:"registration"`
	Type         string    `json:"type" db:"aircraft_type"`
	GroundSpeed  *float64  `json:"gs" db:"ground_speed"`
	Altitude     *float64  `json:"alt" db:"altitude"`
	VerticalRate *float64  `json:"vr" db:"vertical_rate"`
	Heading      *float64  `json:"hdg" db:"heading"`
	Lat          *float64  `json:"lat" db:"lat"`
	Lon          *float64  `json:"lon" db:"lon"`
	LastSeen     *int      `json:"lastSeen" db:"last_seen"`
}

// HasPosition reports whether both coordinates are known
func (r *Reading) HasPosition() bool {
	return r != nil && r.Lat != nil && r.Lon != nil
}

// Target is the vehicle currently selected for scraping
type Target struct {
	Hex       string    `json:"hex"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v
func Int(v int) *int {
	return &v
}
