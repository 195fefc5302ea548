// Package dates holds calendar-date and time-of-day helpers used when expanding weekly
// class templates into dated sessions. Calendar dates are represented as midnight UTC.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Clock is a time of day without a date.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ParseDate parses YYYY-MM-DD into a calendar date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// Truncate drops the time-of-day of t as observed in loc.
func Truncate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseClock accepts HH:MM or HH:MM:SS.
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return Clock{}, fmt.Errorf("invalid time of day %q: expected HH:MM or HH:MM:SS", raw)
}

// String renders the clock as HH:MM:SS, the format PostgreSQL uses for time columns.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Short renders HH:MM.
func (c Clock) Short() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Before reports whether c is strictly earlier in the day than other.
func (c Clock) Before(other Clock) bool {
	return c.seconds() < other.seconds()
}

func (c Clock) seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

// Combine places clock on the calendar day of date in loc.
func Combine(date time.Time, clock Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour, clock.Minute, clock.Second, 0, loc)
}

// DaysBetween counts calendar days from start to end inclusive; negative when end precedes start.
func DaysBetween(start, end time.Time) int {
	start = Truncate(start, time.UTC)
	end = Truncate(end, time.UTC)
	return int(end.Sub(start).Hours()/24) + 1
}

// WeekdaysBetween returns every date in [start, end] falling on weekday.
func WeekdaysBetween(start, end time.Time, weekday time.Weekday) []time.Time {
	start = Truncate(start, time.UTC)
	end = Truncate(end, time.UTC)
	if end.Before(start) {
		return nil
	}

	offset := (int(weekday) - int(start.Weekday()) + 7) % 7
	var out []time.Time
	for d := start.AddDate(0, 0, offset); !d.After(end); d = d.AddDate(0, 0, 7) {
		out = append(out, d)
	}
	return out
}

// FormatLong renders "Friday 24/10/2025".
func FormatLong(date time.Time) string {
	return date.Format("Monday 02/01/2006")
}

// FormatShort renders "Fri 24/10".
func FormatShort(date time.Time) string {
	return date.Format("Mon 02/01")
}
