// Package rozalib holds the event scheduling and alert state machine: boundary
// sets, the next-event selector, the countdown and the alert trigger.
package rozalib

import (
	"fmt"
	"strings"
	"time"
)

// Location is a point on earth with an optional display name and
// ISO 3166 alpha-2 country code.
type Location struct {
	Name        string  `json:"name,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryCode string  `json:"countryCode,omitempty"`
}

func (l Location) String() string {
	if l.Name != "" {
		return fmt.Sprintf("%s (%.4f, %.4f)", l.Name, l.Latitude, l.Longitude)
	}
	return fmt.Sprintf("%.4f, %.4f", l.Latitude, l.Longitude)
}

// CalendarDate is a date on the local wall clock.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// AddDays returns the date n days after d. Month and year overflow is
// normalised the way time.Date does it.
func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Midnight returns the start of d in loc.
func (d CalendarDate) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseCalendarDate parses a YYYY-MM-DD date.
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return CalendarDate{}, err
	}
	return DateOf(t), nil
}

// Madhab selects the asr shadow rule and, for Jafri, the calculation method.
type Madhab string

const (
	MadhabHanafi Madhab = "Hanafi"
	MadhabJafri  Madhab = "Jafri"
)

// ParseMadhab accepts the persisted names case-insensitively.
func ParseMadhab(s string) (Madhab, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hanafi":
		return MadhabHanafi, nil
	case "jafri", "jafari":
		return MadhabJafri, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMadhab, s)
}

// Ruleset is the key identifying how a BoundarySet was computed. The core
// treats it as opaque; solar providers interpret Method.
type Ruleset struct {
	Madhab Madhab `json:"madhab"`
	Method string `json:"method"`
}

// BoundarySet holds the six boundary instants for one date at one location.
type BoundarySet struct {
	Date        CalendarDate
	Ruleset     Ruleset
	DawnLimit   time.Time
	Sunrise     time.Time
	Midday      time.Time
	Afternoon   time.Time
	SunsetLimit time.Time
	Nightfall   time.Time
}

// Ordered reports whether the instants are strictly increasing.
func (b BoundarySet) Ordered() bool {
	ts := []time.Time{b.DawnLimit, b.Sunrise, b.Midday, b.Afternoon, b.SunsetLimit, b.Nightfall}
	for i := 1; i < len(ts); i++ {
		if !ts[i-1].Before(ts[i]) {
			return false
		}
	}
	return true
}

// Provider computes boundary sets. Implementations must be pure functions of
// their inputs and fail with *CalculationError on invalid input.
type Provider interface {
	Compute(loc Location, date CalendarDate, rs Ruleset) (BoundarySet, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(loc Location, date CalendarDate, rs Ruleset) (BoundarySet, error)

func (f ProviderFunc) Compute(loc Location, date CalendarDate, rs Ruleset) (BoundarySet, error) {
	return f(loc, date, rs)
}
