package solar

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/rozadev/roza/pkg/rozalib"
)

var errNoSunriseSunset = errors.New("sun does not rise or set on this date")

// Times are the raw prayer instants for one date.
type Times struct {
	Fajr    time.Time `json:"fajr"`
	Sunrise time.Time `json:"sunrise"`
	Dhuhr   time.Time `json:"dhuhr"`
	Asr     time.Time `json:"asr"`
	Maghrib time.Time `json:"maghrib"`
	Isha    time.Time `json:"isha"`
}

// Calculator implements rozalib.Provider.
type Calculator struct {
	// Zone is the location the results are expressed in. Defaults to time.Local.
	Zone *time.Location
}

// NewCalculator returns a calculator expressing results in zone.
func NewCalculator(zone *time.Location) *Calculator {
	if zone == nil {
		zone = time.Local
	}
	return &Calculator{Zone: zone}
}

var _ rozalib.Provider = (*Calculator)(nil)

// Compute maps the prayer times of date onto a boundary set.
func (c *Calculator) Compute(loc rozalib.Location, date rozalib.CalendarDate, rs rozalib.Ruleset) (rozalib.BoundarySet, error) {
	t, err := c.Times(loc, date, rs)
	if err != nil {
		return rozalib.BoundarySet{}, err
	}
	return rozalib.BoundarySet{
		Date:        date,
		Ruleset:     rs,
		DawnLimit:   t.Fajr,
		Sunrise:     t.Sunrise,
		Midday:      t.Dhuhr,
		Afternoon:   t.Asr,
		SunsetLimit: t.Maghrib,
		Nightfall:   t.Isha,
	}, nil
}

// Times computes the prayer instants of date at loc, rounded to the minute.
func (c *Calculator) Times(loc rozalib.Location, date rozalib.CalendarDate, rs rozalib.Ruleset) (Times, error) {
	lat, lon := loc.Latitude, loc.Longitude
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Times{}, rozalib.NewCalculationError(date, fmt.Sprintf("invalid coordinates %v,%v", lat, lon), nil)
	}
	m, ok := MethodByName(rs.Method)
	if !ok {
		return Times{}, rozalib.NewCalculationError(date, fmt.Sprintf("unknown method %q", rs.Method), nil)
	}

	rise, set := sunrise.SunriseSunset(lat, lon, date.Year, date.Month, date.Day)
	if rise.IsZero() || set.IsZero() || !rise.Before(set) {
		return Times{}, rozalib.NewCalculationError(date, "no sunrise or sunset", errNoSunriseSunset)
	}
	noon := rise.Add(set.Sub(rise) / 2)
	decl := declination(noon)
	night := rise.Add(24 * time.Hour).Sub(set)

	maghrib := set
	if m.MaghribAngle > 0 {
		if h, ok := hourAngle(-m.MaghribAngle, lat, decl); ok {
			maghrib = noon.Add(h)
		}
	}

	fajr := rise.Add(-night / 2)
	if h, ok := hourAngle(-m.FajrAngle, lat, decl); ok {
		if f := noon.Add(-h); f.After(fajr) {
			fajr = f
		}
	}

	isha := set.Add(night / 2)
	if m.IshaInterval > 0 {
		isha = maghrib.Add(m.IshaInterval)
	} else if h, ok := hourAngle(-m.IshaAngle, lat, decl); ok {
		if i := noon.Add(h); i.Before(isha) {
			isha = i
		}
	}

	asrAlt := rad2deg(math.Atan(1 / (ShadowFactor(rs.Madhab) + math.Tan(deg2rad(math.Abs(lat-decl))))))
	h, ok := hourAngle(asrAlt, lat, decl)
	if !ok {
		return Times{}, rozalib.NewCalculationError(date, "asr altitude never reached", nil)
	}
	asr := noon.Add(h)

	out := Times{
		Fajr:    c.round(fajr),
		Sunrise: c.round(rise),
		Dhuhr:   c.round(noon),
		Asr:     c.round(asr),
		Maghrib: c.round(maghrib),
		Isha:    c.round(isha),
	}
	if !out.Asr.Before(out.Maghrib) || !out.Maghrib.Before(out.Isha) {
		return Times{}, rozalib.NewCalculationError(date, "inconsistent boundary order", nil)
	}
	return out, nil
}

func (c *Calculator) round(t time.Time) time.Time {
	zone := c.Zone
	if zone == nil {
		zone = time.Local
	}
	return t.Round(time.Minute).In(zone)
}

// hourAngle returns the time from solar noon until the sun reaches altitude
// alt (degrees). ok is false when that altitude is never reached.
func hourAngle(alt, lat, decl float64) (time.Duration, bool) {
	phi, d := deg2rad(lat), deg2rad(decl)
	cosH := (math.Sin(deg2rad(alt)) - math.Sin(phi)*math.Sin(d)) / (math.Cos(phi) * math.Cos(d))
	if math.IsNaN(cosH) || cosH < -1 || cosH > 1 {
		return 0, false
	}
	hours := rad2deg(math.Acos(cosH)) / 15
	return time.Duration(hours * float64(time.Hour)), true
}

// declination is the low-precision solar declination in degrees.
func declination(t time.Time) float64 {
	n := julianDay(t) - 2451545.0
	l := normalizeDeg(280.460 + 0.9856474*n)
	g := deg2rad(normalizeDeg(357.528 + 0.9856003*n))
	lambda := deg2rad(l + 1.915*math.Sin(g) + 0.020*math.Sin(2*g))
	eps := deg2rad(23.439 - 0.0000004*n)
	return rad2deg(math.Asin(math.Sin(eps) * math.Sin(lambda)))
}

func julianDay(t time.Time) float64 {
	return float64(t.UnixNano())/float64(24*time.Hour) + 2440587.5
}

func normalizeDeg(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
