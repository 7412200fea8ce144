// Package calendar builds the month-long Ramzan timetable of sehri and iftar
// times and exports it as text, xlsx or pdf.
package calendar

import (
	"errors"
	"time"

	"github.com/rozadev/roza/pkg/rozalib"
)

const (
	DefaultDays   = 30
	DefaultMargin = time.Minute
)

// DefaultStart is the first day of Ramzan 1447.
var DefaultStart = rozalib.CalendarDate{Year: 2026, Month: time.February, Day: 18}

// Options configures Build. Zero values select the defaults; use a negative
// margin to disable it.
type Options struct {
	Start       rozalib.CalendarDate
	Days        int
	SehriMargin time.Duration
	IftarMargin time.Duration
}

// Day is one row of the timetable. Sehri ends SehriMargin before the dawn
// limit; iftar begins IftarMargin after the sunset limit.
type Day struct {
	Number  int                  `json:"day"`
	Date    rozalib.CalendarDate `json:"-"`
	Weekday time.Weekday         `json:"-"`
	Sehri   time.Time            `json:"sehri"`
	Iftar   time.Time            `json:"iftar"`
}

// Table is a built timetable.
type Table struct {
	Location rozalib.Location
	Ruleset  rozalib.Ruleset
	Days     []Day
}

// Build computes the timetable at loc.
func Build(p rozalib.Provider, loc rozalib.Location, rs rozalib.Ruleset, opts Options) (*Table, error) {
	if p == nil {
		return nil, errors.New("calendar: provider is required")
	}
	if opts.Start == (rozalib.CalendarDate{}) {
		opts.Start = DefaultStart
	}
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	sehriMargin := margin(opts.SehriMargin)
	iftarMargin := margin(opts.IftarMargin)

	t := &Table{Location: loc, Ruleset: rs, Days: make([]Day, 0, opts.Days)}
	for i := 0; i < opts.Days; i++ {
		date := opts.Start.AddDays(i)
		b, err := p.Compute(loc, date, rs)
		if err != nil {
			return nil, err
		}
		t.Days = append(t.Days, Day{
			Number:  i + 1,
			Date:    date,
			Weekday: date.Midnight(time.UTC).Weekday(),
			Sehri:   b.DawnLimit.Add(-sehriMargin),
			Iftar:   b.SunsetLimit.Add(iftarMargin),
		})
	}
	return t, nil
}

func margin(d time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case d == 0:
		return DefaultMargin
	}
	return d
}
