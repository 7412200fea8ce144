package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rozadev/roza/common"
	"github.com/rozadev/roza/internal/metrics"
	"github.com/rozadev/roza/internal/notify"
	"github.com/rozadev/roza/internal/server"
	"github.com/rozadev/roza/internal/store"
	"github.com/rozadev/roza/pkg/geo"
	"github.com/rozadev/roza/pkg/logger"
	"github.com/rozadev/roza/pkg/rozalib"
	"github.com/rozadev/roza/pkg/solar"
)

// SettingsStore persists the user's choices.
type SettingsStore interface {
	SaveSettings(ctx context.Context, st store.Settings) error
	SaveLocation(ctx context.Context, loc rozalib.Location) error
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Tracker  *rozalib.Tracker
	Provider rozalib.Provider
	Gate     *rozalib.AudioGate
	Store    SettingsStore
	Geocoder geo.Geocoder
	// Resolver re-resolves the configured location on refresh. A location
	// chosen through SetLocation takes precedence over it.
	Resolver *geo.Resolver
	// Manual is true when the tracked location came from the store.
	Manual bool
	// Method overrides the country-derived calculation method.
	Method  string
	Zone    *time.Location
	Push    notify.Broadcaster
	Metrics *metrics.Metrics
	Log     logger.Logger
	Now     func() time.Time
}

// Service implements server.Service on top of a tracker.
type Service struct {
	tracker  *rozalib.Tracker
	provider rozalib.Provider
	gate     *rozalib.AudioGate
	store    SettingsStore
	geocoder geo.Geocoder
	resolver *geo.Resolver
	method   string
	zone     *time.Location
	push     notify.Broadcaster
	metrics  *metrics.Metrics
	log      logger.Logger
	now      func() time.Time

	// mu serialises the setters so the persisted settings match the tracker.
	mu      sync.Mutex
	manual  bool
	lastErr string
}

var _ server.Service = (*Service)(nil)

// NewService wires the tracker's change listeners into the push channel.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Tracker == nil || opts.Provider == nil {
		return nil, errors.New("daemon: tracker and provider are required")
	}
	s := &Service{
		tracker:  opts.Tracker,
		provider: opts.Provider,
		gate:     opts.Gate,
		store:    opts.Store,
		geocoder: opts.Geocoder,
		resolver: opts.Resolver,
		manual:   opts.Manual,
		method:   opts.Method,
		zone:     opts.Zone,
		push:     opts.Push,
		metrics:  opts.Metrics,
		log:      opts.Log,
		now:      opts.Now,
	}
	if s.gate == nil {
		s.gate = rozalib.NewAudioGate(true, nil)
	}
	if s.zone == nil {
		s.zone = time.Local
	}
	if s.log == nil {
		s.log = logger.NewNopLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.tracker.OnEventChanged(s.eventChanged)
	s.gate.OnChange(s.unlockChanged)
	return s, nil
}

func (s *Service) eventChanged(ev rozalib.NextEvent) {
	if s.metrics != nil {
		s.metrics.ObserveEventChange(ev)
	}
	s.broadcast(common.PushEventChanged, server.EventResultOf(ev))
}

func (s *Service) unlockChanged(unlocked bool) {
	if unlocked {
		s.log.Info("audio playback unlocked")
	} else {
		s.log.Warning("audio playback locked")
	}
	s.broadcast(common.PushUnlockChanged, &common.AudioStateResult{Unlocked: unlocked})
}

// Delivered is the alert trigger's OnDelivered hook.
func (s *Service) Delivered(d rozalib.Delivery) {
	if s.metrics != nil {
		s.metrics.ObserveDelivery(d)
	}
	n := &common.AlertFiredNotification{
		Kind:     string(d.Event.Kind),
		Target:   d.Event.Target,
		Tier:     d.Tier,
		Locked:   d.Locked,
		Notified: d.Notified,
	}
	for _, err := range d.Errors {
		n.Errors = append(n.Errors, err.Error())
	}
	s.broadcast(common.PushAlertFired, n)
}

func (s *Service) broadcast(method string, params any) {
	if s.push == nil || s.push.Count() == 0 {
		return
	}
	s.push.Broadcast(method, params)
}

// Tick runs one tracker pass. Repeated identical failures are logged once.
func (s *Service) Tick(ctx context.Context, now time.Time) error {
	err := s.tracker.Tick(ctx, now)
	snap := s.tracker.CountdownSnapshot()
	if s.metrics != nil {
		s.metrics.ObserveTick(err, snap)
	}

	s.mu.Lock()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	changed := msg != s.lastErr
	s.lastErr = msg
	s.mu.Unlock()
	if changed {
		if err != nil {
			s.log.Warning("tick: %v", err)
		} else {
			s.log.Info("tick: recovered")
		}
	}

	ev, ok := s.tracker.CurrentNextEvent()
	s.broadcast(common.PushCountdownUpdate, server.CountdownResultOf(snap, ev, ok))
	return err
}

// RefreshLocation re-resolves the configured location. It is a no-op when
// the user picked a location explicitly.
func (s *Service) RefreshLocation(ctx context.Context, _ time.Time) error {
	s.mu.Lock()
	manual := s.manual
	s.mu.Unlock()
	if manual || s.resolver == nil {
		return nil
	}
	loc, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if cur, ok := s.tracker.Location(); ok && cur == loc {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocation(loc)
	s.log.Info("location refreshed: %s", loc)
	return nil
}

func (s *Service) NextEvent() (rozalib.NextEvent, bool) {
	return s.tracker.CurrentNextEvent()
}

func (s *Service) Countdown() rozalib.CountdownSnapshot {
	return s.tracker.CountdownSnapshot()
}

func (s *Service) Mode() rozalib.TrackingMode {
	return s.tracker.TrackingMode()
}

// SetMode changes the tracking mode and persists it. The new mode takes
// effect on the next tick.
func (s *Service) SetMode(ctx context.Context, m rozalib.TrackingMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.SetTrackingMode(m)
	s.log.Info("tracking mode set to %s", m)
	return s.saveSettings(ctx)
}

func (s *Service) Madhab() rozalib.Madhab {
	return s.tracker.Ruleset().Madhab
}

// SetMadhab switches the madhab, re-deriving the calculation method.
func (s *Service) SetMadhab(ctx context.Context, m rozalib.Madhab) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, _ := s.tracker.Location()
	s.tracker.SetRuleset(s.rulesetFor(m, loc.CountryCode))
	s.log.Info("madhab set to %s", m)
	return s.saveSettings(ctx)
}

func (s *Service) Location() (rozalib.Location, bool) {
	return s.tracker.Location()
}

// SetLocation geocodes p.Query, or takes the coordinates as given with a
// best-effort reverse lookup for the name, then persists the result.
func (s *Service) SetLocation(ctx context.Context, p common.LocationParams) (rozalib.Location, error) {
	loc, err := s.lookup(ctx, p)
	if err != nil {
		return rozalib.Location{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocation(loc)
	s.manual = true
	if s.store != nil {
		if err := s.store.SaveLocation(ctx, loc); err != nil {
			return loc, fmt.Errorf("error: cannot save location: %w", err)
		}
	}
	s.log.Info("location set to %s", loc)
	return loc, nil
}

func (s *Service) lookup(ctx context.Context, p common.LocationParams) (rozalib.Location, error) {
	if p.Query != "" {
		if s.geocoder == nil {
			return rozalib.Location{}, fmt.Errorf("%w: geocoding disabled", geo.ErrNotFound)
		}
		return s.geocoder.Search(ctx, p.Query)
	}
	if p.Latitude == nil || p.Longitude == nil {
		return rozalib.Location{}, fmt.Errorf("%w: latitude and longitude are required", rozalib.ErrInvalidLocation)
	}
	loc := rozalib.Location{Name: p.Name, Latitude: *p.Latitude, Longitude: *p.Longitude}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return rozalib.Location{}, fmt.Errorf("%w: coordinates out of range", rozalib.ErrInvalidLocation)
	}
	if s.geocoder != nil {
		named, err := s.geocoder.Reverse(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			s.log.Warning("reverse geocoding %.4f,%.4f failed: %v", loc.Latitude, loc.Longitude, err)
		} else {
			if loc.Name == "" {
				loc.Name = named.Name
			}
			loc.CountryCode = named.CountryCode
		}
	}
	return loc, nil
}

// applyLocation updates the tracker. Caller must hold mu.
func (s *Service) applyLocation(loc rozalib.Location) {
	s.tracker.SetLocation(loc)
	s.tracker.SetRuleset(s.rulesetFor(s.tracker.Ruleset().Madhab, loc.CountryCode))
}

func (s *Service) rulesetFor(m rozalib.Madhab, countryCode string) rozalib.Ruleset {
	return RulesetFor(s.method, m, countryCode)
}

// RulesetFor derives the ruleset for a madhab and country. A non-empty
// method overrides the country default except under Jafri, which always
// uses Tehran.
func RulesetFor(method string, m rozalib.Madhab, countryCode string) rozalib.Ruleset {
	if method != "" && m != rozalib.MadhabJafri {
		return rozalib.Ruleset{Madhab: m, Method: method}
	}
	return solar.RulesetFor(m, countryCode)
}

// saveSettings writes the tracker's current preferences. Caller must hold mu.
func (s *Service) saveSettings(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	st := store.Settings{Madhab: s.tracker.Ruleset().Madhab, CountdownMode: s.tracker.TrackingMode()}
	if err := s.store.SaveSettings(ctx, st); err != nil {
		return fmt.Errorf("error: cannot save settings: %w", err)
	}
	return nil
}

// Today is the current date on the tracking zone's wall clock.
func (s *Service) Today() rozalib.CalendarDate {
	return rozalib.DateOf(s.now().In(s.zone))
}

// Times computes the boundaries of date at the tracked location.
func (s *Service) Times(date rozalib.CalendarDate) (rozalib.BoundarySet, error) {
	loc, ok := s.tracker.Location()
	if !ok {
		return rozalib.BoundarySet{}, rozalib.ErrNoLocation
	}
	return s.provider.Compute(loc, date, s.tracker.Ruleset())
}

func (s *Service) AudioUnlocked() bool {
	return s.gate.Unlocked()
}

func (s *Service) UnlockAudio(ctx context.Context) error {
	return s.gate.Unlock(ctx)
}
