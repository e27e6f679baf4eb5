package timeutil

import (
	"fmt"
	"time"
)

// ToUTC projects an instant observed in the named IANA zone onto UTC.
// The underlying instant is preserved; only the representation changes.
func ToUTC(t time.Time, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading zone %q: %w", zone, err)
	}
	// Reinterpret the wall-clock reading in the source zone, then project to UTC.
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc).UTC(), nil
}

// ToZone projects an instant into the named IANA zone for display.
func ToZone(t time.Time, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading zone %q: %w", zone, err)
	}
	return t.In(loc), nil
}

// LocalDate returns the calendar date of an instant as seen in loc,
// truncated to midnight in that location.
func LocalDate(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DayBounds returns the UTC instants bracketing the local calendar day
// that contains t in loc: [start, end).
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := LocalDate(t, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
