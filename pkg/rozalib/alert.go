package rozalib

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rozadev/roza/pkg/logger"
)

// DefaultFireWindow bounds how late an alert may fire after its target.
const DefaultFireWindow = 2 * time.Second

// Player is one playback tier.
type Player interface {
	Name() string
	Play(ctx context.Context) error
}

// Notification is the payload handed to the notification side channel.
type Notification struct {
	Kind   EventKind `json:"kind"`
	Target time.Time `json:"target"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
}

// Notifier is the system notification side channel.
type Notifier interface {
	// Permission reports whether the host currently allows notifications.
	Permission() bool
	Notify(ctx context.Context, n Notification) error
}

// Delivery describes the outcome of one firing.
type Delivery struct {
	Event    NextEvent
	FiredAt  time.Time
	Tier     string // tier that played, empty if none did
	Errors   []error
	Notified bool
	Locked   bool
}

// AlertOptions configures an AlertTrigger.
type AlertOptions struct {
	FireWindow time.Duration
	Players    []Player
	Notifier   Notifier
	Gate       *AudioGate
	Log        logger.Logger
	// PlayTimeout bounds every tier attempt. Zero means no bound.
	PlayTimeout time.Duration
	// OnDelivered observes every completed delivery.
	OnDelivered func(Delivery)
}

// AlertTrigger fires once per distinct target instant.
type AlertTrigger struct {
	opts AlertOptions

	mu     sync.Mutex
	marker time.Time
	wg     sync.WaitGroup
}

// NewAlertTrigger builds a trigger, applying defaults for zero options.
func NewAlertTrigger(opts AlertOptions) *AlertTrigger {
	if opts.FireWindow <= 0 {
		opts.FireWindow = DefaultFireWindow
	}
	if opts.Log == nil {
		opts.Log = logger.NewNopLogger()
	}
	return &AlertTrigger{opts: opts}
}

// Marker returns the last fired target instant.
func (a *AlertTrigger) Marker() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.marker
}

// ShouldFire reports whether ev is due at now and has not fired yet.
func (a *AlertTrigger) ShouldFire(ev NextEvent, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.due(ev, now)
}

func (a *AlertTrigger) due(ev NextEvent, now time.Time) bool {
	if ev.Target.IsZero() {
		return false
	}
	d := now.Sub(ev.Target)
	if d < 0 || d >= a.opts.FireWindow {
		return false
	}
	return ev.Target.UnixMilli() != a.marker.UnixMilli()
}

// Tick checks the fire predicate and, on the first satisfying call for a
// target, records the marker and starts delivery in the background. It
// reports whether this call fired.
func (a *AlertTrigger) Tick(ctx context.Context, ev NextEvent, now time.Time) bool {
	a.mu.Lock()
	if !a.due(ev, now) {
		a.mu.Unlock()
		return false
	}
	a.marker = ev.Target
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		a.deliver(ctx, ev, now)
	}()
	return true
}

// Wait blocks until all in-flight deliveries are done.
func (a *AlertTrigger) Wait() {
	a.wg.Wait()
}

func (a *AlertTrigger) deliver(ctx context.Context, ev NextEvent, now time.Time) {
	d := Delivery{Event: ev, FiredAt: now}
	defer func() {
		if r := recover(); r != nil {
			a.opts.Log.Error("alert delivery for %s panicked: %v", ev, r)
			d.Errors = append(d.Errors, fmt.Errorf("panic: %v", r))
		}
		if a.opts.OnDelivered != nil {
			a.opts.OnDelivered(d)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Notified = a.notify(ctx, ev)
	}()
	defer wg.Wait()

	if a.opts.Gate != nil && !a.opts.Gate.Unlocked() {
		d.Locked = true
		a.opts.Log.Warning("alert for %s: audio locked, skipping playback", ev)
	} else {
		d.Tier, d.Errors = a.play(ctx)
		if d.Tier == "" && len(d.Errors) > 0 {
			a.opts.Log.Error("alert for %s: all playback tiers failed: %v", ev, errors.Join(d.Errors...))
		}
	}
}

// play tries every tier in order and stops at the first success.
func (a *AlertTrigger) play(ctx context.Context) (string, []error) {
	var errs []error
	for _, p := range a.opts.Players {
		pctx, cancel := ctx, context.CancelFunc(func() {})
		if a.opts.PlayTimeout > 0 {
			pctx, cancel = context.WithTimeout(ctx, a.opts.PlayTimeout)
		}
		err := p.Play(pctx)
		cancel()
		if err == nil {
			return p.Name(), errs
		}
		perr := &PlaybackError{Tier: p.Name(), Err: err}
		a.opts.Log.Warning("%v", perr)
		errs = append(errs, perr)
	}
	return "", errs
}

func (a *AlertTrigger) notify(ctx context.Context, ev NextEvent) bool {
	n := a.opts.Notifier
	if n == nil || !n.Permission() {
		return false
	}
	err := n.Notify(ctx, NotificationFor(ev))
	if err != nil {
		if !errors.Is(err, ErrNotificationUnavailable) {
			a.opts.Log.Warning("alert for %s: notification failed: %v", ev, err)
		}
		return false
	}
	return true
}

// NotificationFor builds the notification text for ev.
func NotificationFor(ev NextEvent) Notification {
	n := Notification{Kind: ev.Kind, Target: ev.Target}
	switch ev.Kind {
	case KindAftari:
		n.Title = "Aftari time"
		n.Body = "The fast is over. Aftari at " + ev.Target.Format("15:04")
	default:
		n.Title = "Sehri time"
		n.Body = "Sehri has ended at " + ev.Target.Format("15:04")
	}
	return n
}
