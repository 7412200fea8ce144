package rozacli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rozadev/roza/common"
)

const testToken = "client-test-token"

// testDaemon is a minimal JSON-RPC WebSocket peer.
type testDaemon struct {
	srv *httptest.Server

	mu       sync.Mutex
	sessions []*jrpc2.Server
	mode     string
}

func newTestDaemon(t *testing.T) *testDaemon {
	t.Helper()
	d := &testDaemon{mode: "auto"}
	methods := handler.Map{
		common.MethodSystemVersion: handler.New(func(context.Context) (*common.VersionResult, error) {
			return &common.VersionResult{Version: "1.2.3"}, nil
		}),
		common.MethodEventNext: handler.New(func(context.Context) (*common.EventResult, error) {
			return nil, &jrpc2.Error{Code: jrpc2.Code(common.CodeNoEvent), Message: "no event selected yet"}
		}),
		common.MethodModeSet: handler.New(func(_ context.Context, p *common.ModeParams) (*common.ModeResult, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.mode = p.Mode
			return &common.ModeResult{Mode: p.Mode, Madhab: "Hanafi"}, nil
		}),
		common.MethodLocationSet: handler.New(func(_ context.Context, p *common.LocationParams) (*common.LocationResult, error) {
			if p.Latitude == nil || p.Longitude == nil {
				return &common.LocationResult{Name: p.Query}, nil
			}
			return &common.LocationResult{Name: p.Name, Latitude: *p.Latitude, Longitude: *p.Longitude}, nil
		}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/jsonrpc/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := cws.Accept(w, r, nil)
		if err != nil {
			return
		}
		srv := jrpc2.NewServer(methods, &jrpc2.ServerOptions{AllowPush: true})
		d.mu.Lock()
		d.sessions = append(d.sessions, srv)
		d.mu.Unlock()
		srv.Start(&wsChannel{conn: conn, ctx: r.Context()})
		_ = srv.Wait()
	})
	d.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		d.stopAll()
		d.srv.Close()
	})
	return d
}

func (d *testDaemon) addr() string {
	return strings.TrimPrefix(d.srv.URL, "http://")
}

func (d *testDaemon) session(t *testing.T) *jrpc2.Server {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		if len(d.sessions) > 0 {
			s := d.sessions[len(d.sessions)-1]
			d.mu.Unlock()
			return s
		}
		d.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no session registered")
	return nil
}

func (d *testDaemon) stopAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sessions {
		s.Stop()
	}
}

func dialTest(t *testing.T, d *testDaemon) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, Options{Addr: d.addr(), Token: testToken})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestURL(t *testing.T) {
	if got := URL("127.0.0.1:7650"); got != "ws://127.0.0.1:7650/jsonrpc/ws" {
		t.Fatalf("URL = %q", got)
	}
	if got := URL("wss://example.com/rpc"); got != "wss://example.com/rpc" {
		t.Fatalf("URL = %q", got)
	}
}

func TestDial_Unauthorized(t *testing.T) {
	d := newTestDaemon(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Dial(ctx, Options{Addr: d.addr(), Token: "wrong"}); err == nil {
		t.Fatal("expected dial error with wrong token")
	}
}

func TestClient_Methods(t *testing.T) {
	d := newTestDaemon(t)
	c := dialTest(t, d)
	ctx := context.Background()

	v, err := c.GetDaemonVersion(ctx)
	if err != nil || v.Version != "1.2.3" {
		t.Fatalf("GetDaemonVersion = %+v, %v", v, err)
	}
	m, err := c.SetMode(ctx, "sehri")
	if err != nil || m.Mode != "sehri" {
		t.Fatalf("SetMode = %+v, %v", m, err)
	}
	loc, err := c.SetCoordinates(ctx, "Home", 31.5, 74.3)
	if err != nil || loc.Name != "Home" || loc.Latitude != 31.5 {
		t.Fatalf("SetCoordinates = %+v, %v", loc, err)
	}
	loc, err = c.SearchLocation(ctx, "Lahore")
	if err != nil || loc.Name != "Lahore" {
		t.Fatalf("SearchLocation = %+v, %v", loc, err)
	}
}

func TestClient_RPCErrorCode(t *testing.T) {
	d := newTestDaemon(t)
	c := dialTest(t, d)

	_, err := c.NextEvent(context.Background())
	var rerr *jrpc2.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *jrpc2.Error, got %v", err)
	}
	if rerr.Code != jrpc2.Code(common.CodeNoEvent) {
		t.Fatalf("code = %v", rerr.Code)
	}
}

func TestClient_PushHandlers(t *testing.T) {
	d := newTestDaemon(t)
	c := dialTest(t, d)

	got := make(chan *common.CountdownResult, 1)
	c.OnCountdown(func(r *common.CountdownResult) error {
		got <- r
		return nil
	})
	srv := d.session(t)
	if err := srv.Notify(context.Background(), common.PushCountdownUpdate, &common.CountdownResult{Kind: "AFTARI", Display: "00 : 00 : 05"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	select {
	case r := <-got:
		if r.Display != "00 : 00 : 05" || r.Kind != "AFTARI" {
			t.Fatalf("unexpected push %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("push not delivered")
	}
}

func TestClient_WaitReturnsHandlerError(t *testing.T) {
	d := newTestDaemon(t)
	c := dialTest(t, d)

	boom := errors.New("stop watching")
	c.OnEventChanged(func(*common.EventResult) error { return boom })
	srv := d.session(t)
	_ = srv.Notify(context.Background(), common.PushEventChanged, &common.EventResult{Kind: "SEHRI"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Wait(ctx); !errors.Is(err, boom) {
		t.Fatalf("Wait = %v, want handler error", err)
	}
}

func TestClient_WaitDisconnect(t *testing.T) {
	d := newTestDaemon(t)
	c := dialTest(t, d)
	d.session(t).Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Wait(ctx); !errors.Is(err, ErrDisconnect) {
		t.Fatalf("Wait = %v, want ErrDisconnect", err)
	}
}

func TestEnsureDaemon(t *testing.T) {
	d := newTestDaemon(t)
	spawned := false
	old := spawn
	spawn = func() error {
		spawned = true
		return nil
	}
	defer func() { spawn = old }()

	if err := EnsureDaemon(context.Background(), d.addr()); err != nil {
		t.Fatalf("EnsureDaemon: %v", err)
	}
	if spawned {
		t.Fatal("must not spawn when the daemon is healthy")
	}
}

func TestEnsureDaemon_SpawnFailure(t *testing.T) {
	want := errors.New("no binary")
	old := spawn
	spawn = func() error { return want }
	defer func() { spawn = old }()

	// nothing listens on a closed httptest server
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	if err := EnsureDaemon(context.Background(), addr); !errors.Is(err, want) {
		t.Fatalf("EnsureDaemon = %v, want %v", err, want)
	}
}

func TestCheckVersionMismatch(t *testing.T) {
	d := newTestDaemon(t)
	c := dialTest(t, d)

	var b strings.Builder
	c.CheckVersionMismatch(context.Background(), &b, "1.2.3")
	if b.Len() != 0 {
		t.Fatalf("unexpected warning %q", b.String())
	}
	c.CheckVersionMismatch(context.Background(), &b, "2.0.0")
	if !strings.Contains(b.String(), "differs from daemon version (1.2.3)") {
		t.Fatalf("missing warning, got %q", b.String())
	}
	t.Setenv(VersionCheckEnv, "1")
	b.Reset()
	c.CheckVersionMismatch(context.Background(), &b, "2.0.0")
	if b.Len() != 0 {
		t.Fatalf("suppressed check still warned: %q", b.String())
	}
}
