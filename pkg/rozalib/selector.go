package rozalib

import "time"

// DefaultRollover is the grace period a just-passed boundary stays selected.
const DefaultRollover = 20 * time.Minute

// TomorrowFunc computes the following day's boundary set on demand.
type TomorrowFunc func() (BoundarySet, error)

// SelectNextEvent picks the boundary to count down to. It is a pure function:
// tomorrow is only invoked when today's candidates are exhausted.
//
// A boundary b is still current when it lies in the future or when
// 0 <= now-b < rollover, so now == b counts as current.
func SelectNextEvent(today BoundarySet, tomorrow TomorrowFunc, now time.Time, mode TrackingMode, rollover time.Duration) (NextEvent, error) {
	current := func(b time.Time) bool {
		return now.Before(b) || withinRollover(b, now, rollover)
	}
	next := func(kind EventKind, pick func(BoundarySet) time.Time) (NextEvent, error) {
		tm, err := tomorrow()
		if err != nil {
			return NextEvent{}, asCalculationError(today.Date.AddDays(1), err)
		}
		return NextEvent{Kind: kind, Target: pick(tm)}, nil
	}

	switch mode {
	case ModeForceAftari:
		if current(today.SunsetLimit) {
			return NextEvent{Kind: KindAftari, Target: today.SunsetLimit}, nil
		}
		return next(KindAftari, sunsetOf)
	case ModeForceSehri:
		if current(today.DawnLimit) {
			return NextEvent{Kind: KindSehri, Target: today.DawnLimit}, nil
		}
		return next(KindSehri, dawnOf)
	default:
		if current(today.DawnLimit) {
			return NextEvent{Kind: KindSehri, Target: today.DawnLimit}, nil
		}
		if current(today.SunsetLimit) {
			return NextEvent{Kind: KindAftari, Target: today.SunsetLimit}, nil
		}
		return next(KindSehri, dawnOf)
	}
}

func withinRollover(b, now time.Time, rollover time.Duration) bool {
	d := now.Sub(b)
	return d >= 0 && d < rollover
}

func dawnOf(b BoundarySet) time.Time   { return b.DawnLimit }
func sunsetOf(b BoundarySet) time.Time { return b.SunsetLimit }

func asCalculationError(date CalendarDate, err error) error {
	if ce, ok := err.(*CalculationError); ok {
		return ce
	}
	return NewCalculationError(date, "boundary set unavailable", err)
}
