package rozalib

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var testDate = CalendarDate{Year: 2026, Month: time.February, Day: 18}

func at(t *testing.T, d CalendarDate, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05.000", d.String()+" "+clock, time.UTC)
	if err != nil {
		t.Fatalf("bad clock %q: %v", clock, err)
	}
	return ts
}

// boundaries builds a plausible boundary set; tomorrow's dawn moves one
// minute earlier and sunset one minute later per day.
func boundaries(t *testing.T, d CalendarDate) BoundarySet {
	t.Helper()
	shift := time.Duration(d.Midnight(time.UTC).Sub(testDate.Midnight(time.UTC)).Hours()/24) * time.Minute
	return BoundarySet{
		Date:        d,
		DawnLimit:   at(t, d, "05:10:00.000").Add(-shift),
		Sunrise:     at(t, d, "06:35:00.000"),
		Midday:      at(t, d, "12:30:00.000"),
		Afternoon:   at(t, d, "15:45:00.000"),
		SunsetLimit: at(t, d, "18:30:00.000").Add(shift),
		Nightfall:   at(t, d, "19:50:00.000"),
	}
}

type fakeProvider struct {
	t     *testing.T
	mu    sync.Mutex
	calls []CalendarDate
	fail  error
}

func (p *fakeProvider) Compute(_ Location, d CalendarDate, _ Ruleset) (BoundarySet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, d)
	if p.fail != nil {
		return BoundarySet{}, p.fail
	}
	return boundaries(p.t, d), nil
}

func (p *fakeProvider) setFail(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

type fakePlayer struct {
	name string
	err  error
	mu   sync.Mutex
	n    int
}

func (p *fakePlayer) Name() string { return p.name }

func (p *fakePlayer) Play(context.Context) error {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
	return p.err
}

func (p *fakePlayer) plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

type fakeNotifier struct {
	granted bool
	err     error
	mu      sync.Mutex
	sent    []Notification
}

func (n *fakeNotifier) Permission() bool { return n.granted }

func (n *fakeNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

var errBoom = errors.New("boom")
