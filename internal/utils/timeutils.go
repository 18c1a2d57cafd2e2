package utils

import (
	"fmt"
	"time"
)

// LoadLocation resolves an IANA timezone name, defaulting to UTC when empty.
// Hour-of-day bucketing uses a single location for the whole process lifetime
// so distributions stay comparable across report runs.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// HourRange renders an inclusive hour-of-day span as "18:00-19:59".
// A single hour renders as "18:00-18:59".
func HourRange(from, to int) string {
	return fmt.Sprintf("%02d:00-%02d:59", from, to)
}
