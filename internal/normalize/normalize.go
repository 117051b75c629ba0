// Package normalize turns the text fragments scraped from the tracking page
// into typed, nullable values. None of the functions panic; anything that
// cannot be interpreted becomes nil.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Numeric extracts a number from text. Everything except digits, signs, the
// decimal point and the comma is dropped and every comma becomes a decimal
// point, so text with more than one separator ("1,234.5") yields nil.
func Numeric(text string) *float64 {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '+', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}
	s := b.String()
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Position parses "<lat>,<lon>". The pair is split at the first ", " when
// present, otherwise at the first comma. Both values are nil unless both
// sides parse.
func Position(text string) (lat, lon *float64) {
	idx, width := strings.Index(text, ", "), 2
	if idx < 0 {
		idx, width = strings.Index(text, ","), 1
	}
	if idx < 0 {
		return nil, nil
	}
	la := Numeric(text[:idx])
	lo := Numeric(text[idx+width:])
	if la == nil || lo == nil {
		return nil, nil
	}
	return la, lo
}

var (
	durationToken = regexp.MustCompile(`(-\s*)?(\d+(?:[.,]\d+)?)\s*([a-z]+)`)
	durationClock = regexp.MustCompile(`(-\s*)?(\d+):(\d{1,2})(?::(\d{1,2}))?`)
)

var unitSeconds = map[string]float64{
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"ms": 0.001, "msec": 0.001, "msecs": 0.001, "millisecond": 0.001, "milliseconds": 0.001,
}

// Duration converts "last seen" text into whole seconds. "live" and "now"
// are 0; unit tokens ("5m30s", "1 h 2 min") are summed; "H:MM:SS" and "M:SS"
// are accepted; a bare number is taken as seconds. Negative or unrecognized
// input yields nil.
func Duration(text string) *int {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return nil
	}
	if s == "live" || s == "now" {
		return intPtr(0)
	}

	total, matched := 0.0, false
	for _, m := range durationToken.FindAllStringSubmatch(s, -1) {
		mult, ok := unitSeconds[m[3]]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.Replace(m[2], ",", ".", 1), 64)
		if err != nil {
			continue
		}
		if m[1] != "" {
			v = -v
		}
		total += v * mult
		matched = true
	}
	if matched {
		return rounded(total)
	}

	if m := durationClock.FindStringSubmatch(s); m != nil {
		sign := 1.0
		if m[1] != "" {
			sign = -1
		}
		a, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		if m[4] == "" {
			return rounded(sign * float64(a*60+b))
		}
		c, _ := strconv.Atoi(m[4])
		return rounded(sign * float64(a*3600+b*60+c))
	}

	if v := Numeric(s); v != nil {
		return rounded(*v)
	}
	return nil
}

func rounded(seconds float64) *int {
	if seconds < 0 {
		return nil
	}
	r := math.Round(seconds)
	if r > math.MaxInt32 {
		return nil
	}
	return intPtr(int(r))
}

func intPtr(v int) *int {
	return &v
}
