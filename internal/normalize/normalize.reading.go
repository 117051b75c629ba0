package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/itsatony/flightwatch/internal/errors"
	"github.com/itsatony/flightwatch/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// placeholders the page shows for absent values; they are not parse failures
var placeholders = map[string]bool{"": true, "n/a": true, "-": true, "--": true, "?": true}

// Hex extracts the lowercase vehicle identifier from the page text,
// e.g. "Hex: 3E0FE9 (DE)" becomes "3e0fe9".
func Hex(text string) string {
	s := strings.TrimSpace(text)
	if len(s) >= 4 && strings.EqualFold(s[:4], "hex:") {
		s = strings.TrimSpace(s[4:])
	}
	if fields := strings.Fields(s); len(fields) > 0 {
		return strings.ToLower(fields[0])
	}
	return ""
}

// Reading builds a normalized reading from raw page text. Fields that cannot
// be parsed are nil and reported at warn level. now is used when the raw
// reading carries no timestamp.
func Reading(raw *models.RawReading, now time.Time) *models.Reading {
	if raw == nil {
		return nil
	}
	ts := raw.Time
	if ts.IsZero() {
		ts = now
	}
	r := &models.Reading{
		Time:         ts.UTC(),
		Hex:          Hex(raw.Hex),
		Callsign:     text(raw.Callsign),
		Registration: text(raw.Registration),
		Type:         text(raw.Type),
	}
	r.GroundSpeed = numericField(r.Hex, "gs", raw.Speed)
	r.Altitude = numericField(r.Hex, "alt", raw.Altitude)
	r.VerticalRate = numericField(r.Hex, "vr", raw.VerticalRate)
	r.Heading = numericField(r.Hex, "hdg", raw.Track)

	r.Lat, r.Lon = Position(raw.Position)
	if r.Lat == nil && !isPlaceholder(raw.Position) {
		warnParse(r.Hex, "pos", raw.Position)
	}

	r.LastSeen = Duration(raw.LastSeen)
	if r.LastSeen == nil && !isPlaceholder(raw.LastSeen) {
		warnParse(r.Hex, "lastSeen", raw.LastSeen)
	}
	return r
}

func numericField(hex, name, value string) *float64 {
	if isPlaceholder(value) {
		return nil
	}
	v := Numeric(value)
	if v == nil {
		warnParse(hex, name, value)
	}
	return v
}

func text(value string) string {
	s := strings.TrimSpace(value)
	if isPlaceholder(s) {
		return ""
	}
	return s
}

func isPlaceholder(value string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(value))]
}

func warnParse(hex, field, value string) {
	err := fmt.Errorf("%w: field %s value %q", errors.ErrParse, field, value)
	nuts.L.Warnf("[Normalize] %s: %v", hex, err)
}
