package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rozadev/roza/common"
	"github.com/rozadev/roza/pkg/rozalib"
)

var (
	testDate   = rozalib.CalendarDate{Year: 2026, Month: time.February, Day: 18}
	testTarget = time.Date(2026, 2, 18, 18, 30, 0, 0, time.UTC)
)

// fakeService is an in-memory Service.
type fakeService struct {
	mu       sync.Mutex
	event    rozalib.NextEvent
	hasEvent bool
	snap     rozalib.CountdownSnapshot
	mode     rozalib.TrackingMode
	madhab   rozalib.Madhab
	loc      rozalib.Location
	hasLoc   bool
	unlocked bool
	timesErr error
	setErr   error
}

func newFakeService() *fakeService {
	return &fakeService{
		event:    rozalib.NextEvent{Kind: rozalib.KindAftari, Target: testTarget},
		hasEvent: true,
		snap:     rozalib.Tick(testTarget, testTarget.Add(-(time.Hour + 2*time.Minute + 3*time.Second))),
		madhab:   rozalib.MadhabHanafi,
		loc:      rozalib.Location{Name: "Lahore", Latitude: 31.5656, Longitude: 74.3142, CountryCode: "PK"},
		hasLoc:   true,
	}
}

func (f *fakeService) NextEvent() (rozalib.NextEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.event, f.hasEvent
}

func (f *fakeService) Countdown() rozalib.CountdownSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeService) Mode() rozalib.TrackingMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fakeService) SetMode(_ context.Context, m rozalib.TrackingMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
	return f.setErr
}

func (f *fakeService) Madhab() rozalib.Madhab {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.madhab
}

func (f *fakeService) SetMadhab(_ context.Context, m rozalib.Madhab) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.madhab = m
	return f.setErr
}

func (f *fakeService) Location() (rozalib.Location, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loc, f.hasLoc
}

func (f *fakeService) SetLocation(_ context.Context, p common.LocationParams) (rozalib.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return rozalib.Location{}, f.setErr
	}
	loc := rozalib.Location{Name: p.Name}
	if p.Query != "" {
		loc = rozalib.Location{Name: p.Query, Latitude: 24.86, Longitude: 67.0, CountryCode: "PK"}
	} else {
		loc.Latitude, loc.Longitude = *p.Latitude, *p.Longitude
	}
	f.loc, f.hasLoc = loc, true
	return loc, nil
}

func (f *fakeService) Today() rozalib.CalendarDate { return testDate }

func (f *fakeService) Times(date rozalib.CalendarDate) (rozalib.BoundarySet, error) {
	if f.timesErr != nil {
		return rozalib.BoundarySet{}, f.timesErr
	}
	d := date.Midnight(time.UTC)
	return rozalib.BoundarySet{
		Date:        date,
		Ruleset:     rozalib.Ruleset{Madhab: rozalib.MadhabHanafi, Method: "Karachi"},
		DawnLimit:   d.Add(5*time.Hour + 10*time.Minute),
		Sunrise:     d.Add(6*time.Hour + 35*time.Minute),
		Midday:      d.Add(12*time.Hour + 20*time.Minute),
		Afternoon:   d.Add(15*time.Hour + 45*time.Minute),
		SunsetLimit: d.Add(18*time.Hour + 30*time.Minute),
		Nightfall:   d.Add(19*time.Hour + 50*time.Minute),
	}, nil
}

func (f *fakeService) AudioUnlocked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unlocked
}

func (f *fakeService) UnlockAudio(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocked = true
	return nil
}

const testSecret = "test-rpc-secret"

// newTestWebServer starts an httptest server over the full mux.
func newTestWebServer(t *testing.T, svc Service) (*WebServer, *httptest.Server) {
	t.Helper()
	rs := NewRPCServer(&RPCConfig{Secret: testSecret, Version: "1.0.0", Commit: "abc123"}, svc, nil, nil)
	ws := NewWebServer(nil, rs, prometheus.NewRegistry())
	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(func() {
		rs.Notifier().CloseAll()
		srv.Close()
		rs.Close()
	})
	return ws, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/jsonrpc/ws"
}
