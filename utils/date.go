package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KathmanduTZ is the default terminal zone. Nepal does not observe DST.
var KathmanduTZ = time.FixedZone("+05:45", 5*60*60+45*60)

// ISOLayout always renders a numeric offset, including +00:00 for UTC.
const ISOLayout = "2006-01-02T15:04:05-07:00"

const DateLayout = "2006-01-02"

// ParseOffset turns "+05:45", "-03:00" or "+0545" into a fixed zone.
func ParseOffset(offset string) (*time.Location, error) {
	s := strings.TrimSpace(offset)
	if s == "" {
		return nil, fmt.Errorf("empty offset")
	}
	if s == "Z" || s == "UTC" {
		return time.FixedZone("+00:00", 0), nil
	}

	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("offset %q must start with + or -", offset)
	}
	digits := strings.ReplaceAll(s[1:], ":", "")
	if len(digits) != 4 {
		return nil, fmt.Errorf("offset %q must look like +hh:mm", offset)
	}
	hours, err := strconv.Atoi(digits[:2])
	if err != nil {
		return nil, fmt.Errorf("offset %q: %w", offset, err)
	}
	minutes, err := strconv.Atoi(digits[2:])
	if err != nil {
		return nil, fmt.Errorf("offset %q: %w", offset, err)
	}
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("offset %q out of range", offset)
	}

	seconds := sign * (hours*3600 + minutes*60)
	name := fmt.Sprintf("%c%02d:%02d", s[0], hours, minutes)
	return time.FixedZone(name, seconds), nil
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// ParseLocalTime parses s as RFC3339 (keeping its offset) or, when s carries
// no offset, as wall-clock time in loc.
func ParseLocalTime(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty time string")
	}

	// Try standard RFC3339 format (ISO 8601)
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return &t, nil
	}

	// Try with nanoseconds (e.g. 2025-10-13T09:30:00.123Z)
	t, err = time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return &t, nil
	}

	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
	}
	for _, layout := range layouts {
		if tt, e := time.ParseInLocation(layout, s, loc); e == nil {
			return &tt, nil
		}
	}

	return nil, fmt.Errorf("failed to parse time: %v", s)
}
