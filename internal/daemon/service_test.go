package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rozadev/roza/common"
	"github.com/rozadev/roza/internal/metrics"
	"github.com/rozadev/roza/internal/store"
	"github.com/rozadev/roza/pkg/geo"
	"github.com/rozadev/roza/pkg/logger"
	"github.com/rozadev/roza/pkg/rozalib"
)

// fixedProvider places dawn at 05:00 and sunset at 18:00 UTC on every date.
var fixedProvider = rozalib.ProviderFunc(func(_ rozalib.Location, date rozalib.CalendarDate, rs rozalib.Ruleset) (rozalib.BoundarySet, error) {
	d := date.Midnight(time.UTC)
	return rozalib.BoundarySet{
		Date:        date,
		Ruleset:     rs,
		DawnLimit:   d.Add(5 * time.Hour),
		Sunrise:     d.Add(6 * time.Hour),
		Midday:      d.Add(12 * time.Hour),
		Afternoon:   d.Add(15 * time.Hour),
		SunsetLimit: d.Add(18 * time.Hour),
		Nightfall:   d.Add(19 * time.Hour),
	}, nil
})

type recordedPush struct {
	method string
	params any
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	clients int
	pushes  []recordedPush
}

func (b *fakeBroadcaster) Broadcast(method string, params any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushes = append(b.pushes, recordedPush{method, params})
}

func (b *fakeBroadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clients
}

func (b *fakeBroadcaster) methods() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.pushes))
	for i, p := range b.pushes {
		out[i] = p.method
	}
	return out
}

type fakeGeocoder struct {
	search  rozalib.Location
	reverse rozalib.Location
	err     error
	queries []string
}

func (g *fakeGeocoder) Search(_ context.Context, q string) (rozalib.Location, error) {
	g.queries = append(g.queries, q)
	return g.search, g.err
}

func (g *fakeGeocoder) Reverse(context.Context, float64, float64) (rozalib.Location, error) {
	return g.reverse, g.err
}

type testService struct {
	svc     *Service
	tracker *rozalib.Tracker
	store   *store.Store
	push    *fakeBroadcaster
	geo     *fakeGeocoder
	metrics *metrics.Metrics
	log     *logger.MockLogger
}

var lahore = rozalib.Location{Name: "Lahore", Latitude: 31.5656, Longitude: 74.3142, CountryCode: "PK"}

func newTestService(t *testing.T, loc *rozalib.Location) *testService {
	t.Helper()
	tr, err := rozalib.NewTracker(rozalib.TrackerConfig{
		Provider: fixedProvider,
		Location: loc,
		Ruleset:  rozalib.Ruleset{Madhab: rozalib.MadhabHanafi, Method: "Karachi"},
		Zone:     time.UTC,
	})
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ts := &testService{
		tracker: tr,
		store:   st,
		push:    &fakeBroadcaster{clients: 1},
		geo:     &fakeGeocoder{},
		metrics: metrics.New(prometheus.NewRegistry()),
		log:     logger.NewMockLogger(),
	}
	ts.svc, err = NewService(ServiceOptions{
		Tracker:  tr,
		Provider: fixedProvider,
		Gate:     rozalib.NewAudioGate(false, nil),
		Store:    st,
		Geocoder: ts.geo,
		Zone:     time.UTC,
		Push:     ts.push,
		Metrics:  ts.metrics,
		Log:      ts.log,
		Now:      func() time.Time { return time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return ts
}

func TestNewService_RequiresTracker(t *testing.T) {
	if _, err := NewService(ServiceOptions{}); err == nil {
		t.Fatal("expected error without tracker")
	}
}

func TestService_TickPushesEventAndCountdown(t *testing.T) {
	ts := newTestService(t, &lahore)
	now := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)

	if err := ts.svc.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	ev, ok := ts.svc.NextEvent()
	if !ok || ev.Kind != rozalib.KindAftari {
		t.Fatalf("expected AFTARI, got %v %v", ev, ok)
	}
	if got := ts.svc.Countdown().Format(); got != "08 : 00 : 00" {
		t.Fatalf("countdown = %q", got)
	}
	got := ts.push.methods()
	if len(got) != 2 || got[0] != common.PushEventChanged || got[1] != common.PushCountdownUpdate {
		t.Fatalf("unexpected pushes %v", got)
	}
	if v := testutil.ToFloat64(ts.metrics.EventChanges.WithLabelValues("AFTARI")); v != 1 {
		t.Fatalf("event changes = %v", v)
	}
	if v := testutil.ToFloat64(ts.metrics.Ticks); v != 1 {
		t.Fatalf("ticks = %v", v)
	}

	// same selection: only the countdown is pushed
	if err := ts.svc.Tick(context.Background(), now.Add(time.Second)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := ts.push.methods(); len(got) != 3 || got[2] != common.PushCountdownUpdate {
		t.Fatalf("unexpected pushes %v", got)
	}
}

func TestService_TickWithoutClientsDoesNotPush(t *testing.T) {
	ts := newTestService(t, &lahore)
	ts.push.clients = 0
	_ = ts.svc.Tick(context.Background(), time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC))
	if got := ts.push.methods(); len(got) != 0 {
		t.Fatalf("expected no pushes, got %v", got)
	}
}

func TestService_TickNoLocationLogsOnce(t *testing.T) {
	ts := newTestService(t, nil)
	now := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := ts.svc.Tick(context.Background(), now.Add(time.Duration(i)*time.Second))
		if !errors.Is(err, rozalib.ErrNoLocation) {
			t.Fatalf("expected ErrNoLocation, got %v", err)
		}
	}
	if n := len(ts.log.WarningCalls); n != 1 {
		t.Fatalf("expected 1 warning, got %d", n)
	}
	if v := testutil.ToFloat64(ts.metrics.TickFailures); v != 3 {
		t.Fatalf("tick failures = %v", v)
	}
	if !ts.svc.Countdown().Expired {
		t.Fatal("countdown without event must be expired")
	}
}

func TestService_SetModePersists(t *testing.T) {
	ts := newTestService(t, &lahore)
	ctx := context.Background()
	if err := ts.svc.SetMode(ctx, rozalib.ModeForceSehri); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if ts.svc.Mode() != rozalib.ModeForceSehri {
		t.Fatalf("mode = %v", ts.svc.Mode())
	}
	st, err := ts.store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if st.CountdownMode != rozalib.ModeForceSehri || st.Madhab != rozalib.MadhabHanafi {
		t.Fatalf("persisted %+v", st)
	}

	_ = ts.svc.Tick(ctx, time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC))
	if ev, _ := ts.svc.NextEvent(); ev.Kind != rozalib.KindSehri {
		t.Fatalf("forced sehri, got %v", ev)
	}
}

func TestService_SetMadhab(t *testing.T) {
	ts := newTestService(t, &lahore)
	ctx := context.Background()
	if err := ts.svc.SetMadhab(ctx, rozalib.MadhabJafri); err != nil {
		t.Fatalf("SetMadhab: %v", err)
	}
	if rs := ts.tracker.Ruleset(); rs.Madhab != rozalib.MadhabJafri || rs.Method != "Tehran" {
		t.Fatalf("ruleset = %+v", rs)
	}
	st, _ := ts.store.LoadSettings(ctx)
	if st.Madhab != rozalib.MadhabJafri {
		t.Fatalf("persisted madhab %v", st.Madhab)
	}

	if err := ts.svc.SetMadhab(ctx, rozalib.MadhabHanafi); err != nil {
		t.Fatalf("SetMadhab: %v", err)
	}
	if rs := ts.tracker.Ruleset(); rs.Method != "Karachi" {
		t.Fatalf("expected Karachi for PK, got %+v", rs)
	}
}

func TestService_MethodOverride(t *testing.T) {
	ts := newTestService(t, &lahore)
	ts.svc.method = "MuslimWorldLeague"
	_ = ts.svc.SetMadhab(context.Background(), rozalib.MadhabHanafi)
	if rs := ts.tracker.Ruleset(); rs.Method != "MuslimWorldLeague" {
		t.Fatalf("override ignored: %+v", rs)
	}
	_ = ts.svc.SetMadhab(context.Background(), rozalib.MadhabJafri)
	if rs := ts.tracker.Ruleset(); rs.Method != "Tehran" {
		t.Fatalf("jafri must use Tehran: %+v", rs)
	}
}

func TestService_SetLocationByQuery(t *testing.T) {
	ts := newTestService(t, nil)
	ts.geo.search = rozalib.Location{Name: "Istanbul", Latitude: 41.01, Longitude: 28.97, CountryCode: "TR"}
	ctx := context.Background()

	loc, err := ts.svc.SetLocation(ctx, common.LocationParams{Query: "Istanbul"})
	if err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	if loc.Name != "Istanbul" || ts.geo.queries[0] != "Istanbul" {
		t.Fatalf("unexpected location %+v", loc)
	}
	if rs := ts.tracker.Ruleset(); rs.Method != "Turkey" {
		t.Fatalf("expected Turkey method, got %+v", rs)
	}
	saved, err := ts.store.LoadLocation(ctx)
	if err != nil || saved != loc {
		t.Fatalf("persisted %+v, %v", saved, err)
	}
	if got, ok := ts.svc.Location(); !ok || got != loc {
		t.Fatalf("Location() = %+v %v", got, ok)
	}
}

func TestService_SetLocationByCoordinates(t *testing.T) {
	ts := newTestService(t, nil)
	ts.geo.reverse = rozalib.Location{Name: "Karachi", CountryCode: "PK"}
	lat, lon := 24.86, 67.0

	loc, err := ts.svc.SetLocation(context.Background(), common.LocationParams{Latitude: &lat, Longitude: &lon})
	if err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	if loc.Name != "Karachi" || loc.CountryCode != "PK" || loc.Latitude != lat {
		t.Fatalf("unexpected location %+v", loc)
	}

	ts.geo.err = geo.ErrNotFound
	loc, err = ts.svc.SetLocation(context.Background(), common.LocationParams{Name: "Home", Latitude: &lat, Longitude: &lon})
	if err != nil {
		t.Fatalf("reverse failures must not fail: %v", err)
	}
	if loc.Name != "Home" {
		t.Fatalf("name = %q", loc.Name)
	}
}

func TestService_SetLocationErrors(t *testing.T) {
	ts := newTestService(t, nil)
	bad := 91.0
	zero := 0.0
	if _, err := ts.svc.SetLocation(context.Background(), common.LocationParams{Latitude: &bad, Longitude: &zero}); !errors.Is(err, rozalib.ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
	ts.geo.err = geo.ErrNotFound
	if _, err := ts.svc.SetLocation(context.Background(), common.LocationParams{Query: "Atlantis"}); !errors.Is(err, geo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := ts.svc.Location(); ok {
		t.Fatal("failed lookups must not set a location")
	}
}

func TestService_RefreshLocation(t *testing.T) {
	ts := newTestService(t, nil)
	ts.geo.search = lahore
	ts.svc.resolver = &geo.Resolver{City: "Lahore", Geocoder: ts.geo}

	if err := ts.svc.RefreshLocation(context.Background(), time.Now()); err != nil {
		t.Fatalf("RefreshLocation: %v", err)
	}
	if loc, ok := ts.svc.Location(); !ok || loc != lahore {
		t.Fatalf("location = %+v %v", loc, ok)
	}

	// a manual choice wins over refreshes
	lat, lon := 24.86, 67.0
	if _, err := ts.svc.SetLocation(context.Background(), common.LocationParams{Name: "Karachi", Latitude: &lat, Longitude: &lon}); err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	if err := ts.svc.RefreshLocation(context.Background(), time.Now()); err != nil {
		t.Fatalf("RefreshLocation: %v", err)
	}
	if loc, _ := ts.svc.Location(); loc.Name != "Karachi" {
		t.Fatalf("refresh overrode manual location: %+v", loc)
	}
}

func TestService_TimesAndToday(t *testing.T) {
	ts := newTestService(t, nil)
	if _, err := ts.svc.Times(ts.svc.Today()); !errors.Is(err, rozalib.ErrNoLocation) {
		t.Fatalf("expected ErrNoLocation, got %v", err)
	}
	ts.tracker.SetLocation(lahore)
	today := ts.svc.Today()
	if today.String() != "2026-02-18" {
		t.Fatalf("today = %s", today)
	}
	b, err := ts.svc.Times(today)
	if err != nil {
		t.Fatalf("Times: %v", err)
	}
	if b.SunsetLimit.Hour() != 18 || b.Ruleset.Method != "Karachi" {
		t.Fatalf("unexpected boundaries %+v", b)
	}
}

func TestService_UnlockAudioPushes(t *testing.T) {
	ts := newTestService(t, &lahore)
	if ts.svc.AudioUnlocked() {
		t.Fatal("gate should start locked")
	}
	if err := ts.svc.UnlockAudio(context.Background()); err != nil {
		t.Fatalf("UnlockAudio: %v", err)
	}
	if !ts.svc.AudioUnlocked() {
		t.Fatal("gate still locked")
	}
	got := ts.push.methods()
	if len(got) != 1 || got[0] != common.PushUnlockChanged {
		t.Fatalf("unexpected pushes %v", got)
	}
}

func TestService_Delivered(t *testing.T) {
	ts := newTestService(t, &lahore)
	ev := rozalib.NextEvent{Kind: rozalib.KindSehri, Target: time.Date(2026, 2, 19, 5, 0, 0, 0, time.UTC)}
	ts.svc.Delivered(rozalib.Delivery{
		Event:  ev,
		Tier:   "remote",
		Errors: []error{&rozalib.PlaybackError{Tier: "local", Err: errors.New("missing")}},
	})

	ts.push.mu.Lock()
	defer ts.push.mu.Unlock()
	if len(ts.push.pushes) != 1 || ts.push.pushes[0].method != common.PushAlertFired {
		t.Fatalf("unexpected pushes %v", ts.push.pushes)
	}
	n := ts.push.pushes[0].params.(*common.AlertFiredNotification)
	if n.Kind != "SEHRI" || n.Tier != "remote" || len(n.Errors) != 1 {
		t.Fatalf("unexpected notification %+v", n)
	}
	if v := testutil.ToFloat64(ts.metrics.PlaybackFailures.WithLabelValues("local")); v != 1 {
		t.Fatalf("playback failures = %v", v)
	}
}
