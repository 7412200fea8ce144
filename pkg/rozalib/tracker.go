package rozalib

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rozadev/roza/pkg/logger"
)

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	Provider Provider
	Location *Location
	Ruleset  Ruleset
	Mode     TrackingMode
	// Rollover defaults to DefaultRollover.
	Rollover time.Duration
	// Zone is the wall clock the calendar date is taken from. Defaults to
	// time.Local.
	Zone *time.Location
	// Alert is optional; without it Tick only selects and counts down.
	Alert *AlertTrigger
	Log   logger.Logger
}

// Tracker owns the current NextEvent and countdown snapshot and drives the
// alert trigger. Tick is meant to be called from a single goroutine; the
// accessors are safe for concurrent use.
type Tracker struct {
	provider Provider
	alert    *AlertTrigger
	rollover time.Duration
	zone     *time.Location
	log      logger.Logger

	mu       sync.RWMutex
	loc      Location
	hasLoc   bool
	rs       Ruleset
	mode     TrackingMode
	today    BoundarySet
	hasToday bool
	event    NextEvent
	hasEvent bool
	snapshot CountdownSnapshot

	lmu       sync.Mutex
	listeners map[int]func(NextEvent)
	nextID    int
}

// NewTracker creates a tracker. Provider is required.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if cfg.Provider == nil {
		return nil, errors.New("tracker: provider is required")
	}
	t := &Tracker{
		provider:  cfg.Provider,
		alert:     cfg.Alert,
		rollover:  cfg.Rollover,
		zone:      cfg.Zone,
		log:       cfg.Log,
		rs:        cfg.Ruleset,
		mode:      cfg.Mode,
		snapshot:  Expired,
		listeners: make(map[int]func(NextEvent)),
	}
	if t.rollover <= 0 {
		t.rollover = DefaultRollover
	}
	if t.zone == nil {
		t.zone = time.Local
	}
	if t.log == nil {
		t.log = logger.NewNopLogger()
	}
	if cfg.Location != nil {
		t.loc, t.hasLoc = *cfg.Location, true
	}
	return t, nil
}

// Tick runs one selector, countdown and alert pass. A failing stage never
// prevents the later stages from running against the current event.
func (t *Tracker) Tick(ctx context.Context, now time.Time) error {
	var errs []error
	if err := guard("select", func() error { return t.Select(now) }); err != nil {
		errs = append(errs, err)
	}
	if err := guard("countdown", func() error { t.countdown(now); return nil }); err != nil {
		errs = append(errs, err)
	}
	if t.alert != nil {
		if err := guard("alert", func() error {
			if ev, ok := t.CurrentNextEvent(); ok {
				t.alert.Tick(ctx, ev, now)
			}
			return nil
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Select recomputes today's boundaries and replaces the held event when the
// selection changed. On error the previous event is kept.
func (t *Tracker) Select(now time.Time) error {
	t.mu.RLock()
	loc, hasLoc, rs, mode := t.loc, t.hasLoc, t.rs, t.mode
	t.mu.RUnlock()
	if !hasLoc {
		return ErrNoLocation
	}

	date := DateOf(now.In(t.zone))
	today, err := t.provider.Compute(loc, date, rs)
	if err != nil {
		return asCalculationError(date, err)
	}
	tomorrow := func() (BoundarySet, error) {
		return t.provider.Compute(loc, date.AddDays(1), rs)
	}
	ev, err := SelectNextEvent(today, tomorrow, now, mode, t.rollover)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.today, t.hasToday = today, true
	changed := !t.hasEvent || !t.event.Equal(ev)
	if changed {
		t.event, t.hasEvent = ev, true
		t.snapshot = Tick(ev.Target, now)
	}
	t.mu.Unlock()

	if changed {
		t.log.Info("next event: %s", ev)
		t.emit(ev)
	}
	return nil
}

func (t *Tracker) countdown(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasEvent {
		t.snapshot = Expired
		return
	}
	t.snapshot = Tick(t.event.Target, now)
}

// CurrentNextEvent returns the held event, false before the first
// successful selection.
func (t *Tracker) CurrentNextEvent() (NextEvent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.event, t.hasEvent
}

// CountdownSnapshot returns the snapshot computed by the last tick.
func (t *Tracker) CountdownSnapshot() CountdownSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Today returns the boundary set computed by the last successful selection.
func (t *Tracker) Today() (BoundarySet, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.today, t.hasToday
}

// SetTrackingMode changes the mode; it takes effect on the next Select.
func (t *Tracker) SetTrackingMode(m TrackingMode) {
	t.mu.Lock()
	t.mode = m
	t.mu.Unlock()
}

// TrackingMode returns the configured mode.
func (t *Tracker) TrackingMode() TrackingMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// SetRuleset changes the ruleset; it takes effect on the next Select.
func (t *Tracker) SetRuleset(rs Ruleset) {
	t.mu.Lock()
	t.rs = rs
	t.mu.Unlock()
}

// Ruleset returns the configured ruleset.
func (t *Tracker) Ruleset() Ruleset {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rs
}

// SetLocation changes the location; it takes effect on the next Select.
func (t *Tracker) SetLocation(loc Location) {
	t.mu.Lock()
	t.loc, t.hasLoc = loc, true
	t.mu.Unlock()
}

// Location returns the configured location.
func (t *Tracker) Location() (Location, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loc, t.hasLoc
}

// OnEventChanged subscribes fn to every replacement of the held event.
func (t *Tracker) OnEventChanged(fn func(NextEvent)) (cancel func()) {
	t.lmu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.lmu.Unlock()
	return func() {
		t.lmu.Lock()
		delete(t.listeners, id)
		t.lmu.Unlock()
	}
}

func (t *Tracker) emit(ev NextEvent) {
	t.lmu.Lock()
	fns := make([]func(NextEvent), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.lmu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func guard(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", stage, r)
		}
	}()
	return fn()
}
