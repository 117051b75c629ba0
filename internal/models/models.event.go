// FilePath: internal/models/models.event.go
package models

import "time"

type EventType string

const (
	EventTakeoff EventType = "takeoff"
	EventLanding EventType = "landing"
)

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	return t == EventTakeoff || t == EventLanding
}

// Event is a detected takeoff or landing
type Event struct {
	ID          int64     `json:"id" db:"id"`
	Type        EventType `json:"type" db:"type"`
	Time        time.Time `json:"time" db:"time"`
	Hex         string    `json:"hex" db:"hex"`
	Callsign    string    `json:"callsign" db:"callsign"`
	Lat         *float64  `json:"lat" db:"lat"`
	Lon         *float64  `json:"lon" db:"lon"`
	Altitude    *float64  `json:"alt" db:"altitude"`
	GroundSpeed *float64  `json:"gs" db:"ground_speed"`
	LastSeen    *int      `json:"lastSeen" db:"last_seen"`
	Place       *Place    `json:"place,omitempty" db:"-"`
}

// NewEvent builds an event of the given type from the reading that triggered it
func NewEvent(t EventType, r *Reading) *Event {
	return &Event{
		Type:        t,
		Time:        r.Time,
		Hex:         r.Hex,
		Callsign:    r.Callsign,
		Lat:         r.Lat,
		Lon:         r.Lon,
		Altitude:    r.Altitude,
		GroundSpeed: r.GroundSpeed,
		LastSeen:    r.LastSeen,
	}
}

// Clone returns a deep copy of the event
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Place = e.Place.Clone()
	return &c
}
