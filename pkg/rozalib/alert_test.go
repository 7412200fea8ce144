package rozalib

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rozadev/roza/pkg/logger"
)

func newRecordingTrigger(players []Player, n Notifier, gate *AudioGate) (*AlertTrigger, *[]Delivery, *logger.MockLogger) {
	var mu sync.Mutex
	var deliveries []Delivery
	log := logger.NewMockLogger()
	trig := NewAlertTrigger(AlertOptions{
		Players:  players,
		Notifier: n,
		Gate:     gate,
		Log:      log,
		OnDelivered: func(d Delivery) {
			mu.Lock()
			deliveries = append(deliveries, d)
			mu.Unlock()
		},
	})
	return trig, &deliveries, log
}

func TestAlertTrigger_FiresOnceWithinWindow(t *testing.T) {
	local := &fakePlayer{name: "local"}
	trig, deliveries, _ := newRecordingTrigger([]Player{local}, nil, nil)
	ctx := context.Background()

	target := at(t, testDate, "05:00:00.000")
	ev := NextEvent{Kind: KindSehri, Target: target}
	fired := 0
	for _, clock := range []string{"04:59:59.900", "05:00:00.200", "05:00:00.700", "05:00:01.900", "05:00:02.000"} {
		if trig.Tick(ctx, ev, at(t, testDate, clock)) {
			fired++
			if clock != "05:00:00.200" {
				t.Fatalf("fired at %s, expected the first tick inside the window", clock)
			}
		}
	}
	trig.Wait()
	if fired != 1 {
		t.Fatalf("expected exactly one fire, got %d", fired)
	}
	if local.plays() != 1 {
		t.Fatalf("expected one playback, got %d", local.plays())
	}
	if len(*deliveries) != 1 || (*deliveries)[0].Tier != "local" {
		t.Fatalf("unexpected deliveries: %+v", *deliveries)
	}
}

func TestAlertTrigger_NoDoubleFireAcrossInstants(t *testing.T) {
	local := &fakePlayer{name: "local"}
	trig, _, _ := newRecordingTrigger([]Player{local}, nil, nil)
	ctx := context.Background()

	t1 := at(t, testDate, "05:00:00.000")
	t2 := at(t, testDate, "18:30:00.000")
	if !trig.Tick(ctx, NextEvent{Kind: KindSehri, Target: t1}, t1) {
		t.Fatal("expected first instant to fire")
	}
	if !trig.Tick(ctx, NextEvent{Kind: KindAftari, Target: t2}, t2.Add(500*time.Millisecond)) {
		t.Fatal("expected second instant to fire")
	}
	trig.Wait()
	if local.plays() != 2 {
		t.Fatalf("expected two playbacks, got %d", local.plays())
	}
	if !trig.Marker().Equal(t2) {
		t.Fatalf("marker should be the latest target, got %s", trig.Marker())
	}
}

func TestAlertTrigger_FallbackTier(t *testing.T) {
	local := &fakePlayer{name: "local", err: errBoom}
	remote := &fakePlayer{name: "remote"}
	never := &fakePlayer{name: "never"}
	trig, deliveries, log := newRecordingTrigger([]Player{local, remote, never}, nil, nil)

	target := at(t, testDate, "18:30:00.000")
	trig.Tick(context.Background(), NextEvent{Kind: KindAftari, Target: target}, target)
	trig.Wait()

	if remote.plays() != 1 {
		t.Fatalf("expected the fallback to play once, got %d", remote.plays())
	}
	if never.plays() != 0 {
		t.Fatal("tiers after the first success must not be tried")
	}
	d := (*deliveries)[0]
	if d.Tier != "remote" {
		t.Fatalf("expected remote tier, got %q", d.Tier)
	}
	if len(d.Errors) != 1 {
		t.Fatalf("expected one recorded tier failure, got %v", d.Errors)
	}
	var pe *PlaybackError
	if !errors.As(d.Errors[0], &pe) || pe.Tier != "local" {
		t.Fatalf("expected PlaybackError for local tier, got %v", d.Errors[0])
	}
	if len(log.ErrorCalls) != 0 {
		t.Fatalf("a successful fallback must not be reported as an error: %v", log.ErrorCalls)
	}
}

func TestAlertTrigger_AllTiersFail(t *testing.T) {
	local := &fakePlayer{name: "local", err: errBoom}
	remote := &fakePlayer{name: "remote", err: errBoom}
	n := &fakeNotifier{granted: true}
	trig, deliveries, log := newRecordingTrigger([]Player{local, remote}, n, nil)

	target := at(t, testDate, "18:30:00.000")
	ev := NextEvent{Kind: KindAftari, Target: target}
	if !trig.Tick(context.Background(), ev, target) {
		t.Fatal("expected fire")
	}
	trig.Wait()
	if trig.Tick(context.Background(), ev, target.Add(time.Second)) {
		t.Fatal("a failed delivery must not refire the same instant")
	}
	trig.Wait()

	d := (*deliveries)[0]
	if d.Tier != "" || len(d.Errors) != 2 {
		t.Fatalf("unexpected delivery: %+v", d)
	}
	if !d.Notified || len(n.sent) != 1 {
		t.Fatal("notification channel must be independent of playback failures")
	}
	if len(log.ErrorCalls) != 1 {
		t.Fatalf("expected exhaustion to be logged once, got %v", log.ErrorCalls)
	}
}

func TestAlertTrigger_NotificationPermission(t *testing.T) {
	denied := &fakeNotifier{granted: false}
	trig, deliveries, log := newRecordingTrigger([]Player{&fakePlayer{name: "local"}}, denied, nil)
	target := at(t, testDate, "05:00:00.000")
	trig.Tick(context.Background(), NextEvent{Kind: KindSehri, Target: target}, target)
	trig.Wait()
	if (*deliveries)[0].Notified || len(denied.sent) != 0 {
		t.Fatal("notifier without permission must not be used")
	}

	unavailable := &fakeNotifier{granted: true, err: ErrNotificationUnavailable}
	trig2, _, log2 := newRecordingTrigger(nil, unavailable, nil)
	trig2.Tick(context.Background(), NextEvent{Kind: KindSehri, Target: target}, target)
	trig2.Wait()
	if len(log.WarningCalls)+len(log2.WarningCalls) != 0 {
		t.Fatalf("unavailable notifications are skipped silently, got %v %v", log.WarningCalls, log2.WarningCalls)
	}
}

func TestAlertTrigger_LockedGate(t *testing.T) {
	local := &fakePlayer{name: "local"}
	gate := NewAudioGate(false, nil)
	trig, deliveries, _ := newRecordingTrigger([]Player{local}, nil, gate)

	target := at(t, testDate, "05:00:00.000")
	ev := NextEvent{Kind: KindSehri, Target: target}
	trig.Tick(context.Background(), ev, target)
	trig.Wait()
	if local.plays() != 0 || !(*deliveries)[0].Locked {
		t.Fatal("locked gate must skip autonomous playback")
	}
	if !trig.Marker().Equal(target) {
		t.Fatal("marker must be set even when playback is skipped")
	}
}

func TestAlertTrigger_IndependentInstances(t *testing.T) {
	a := NewAlertTrigger(AlertOptions{})
	b := NewAlertTrigger(AlertOptions{})
	target := at(t, testDate, "05:00:00.000")
	ev := NextEvent{Kind: KindSehri, Target: target}
	if !a.Tick(context.Background(), ev, target) || !b.Tick(context.Background(), ev, target) {
		t.Fatal("each trigger owns its own marker")
	}
	a.Wait()
	b.Wait()
}

func TestAlertTrigger_IgnoresZeroEvent(t *testing.T) {
	a := NewAlertTrigger(AlertOptions{})
	if a.ShouldFire(NextEvent{}, time.Now()) {
		t.Fatal("zero event must never fire")
	}
}
