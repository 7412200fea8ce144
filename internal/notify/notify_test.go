package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rozadev/roza/pkg/rozalib"
)

func testNotification() rozalib.Notification {
	target := time.Date(2026, 2, 18, 18, 30, 0, 0, time.UTC)
	return rozalib.NotificationFor(rozalib.NextEvent{Kind: rozalib.KindAftari, Target: target})
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	clients int
	methods []string
	params  []any
}

func (f *fakeBroadcaster) Broadcast(method string, params any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)
	f.params = append(f.params, params)
}

func (f *fakeBroadcaster) Count() int { return f.clients }

func TestRPC_PermissionFollowsClients(t *testing.T) {
	b := &fakeBroadcaster{}
	r := NewRPC(b)
	if r.Permission() {
		t.Fatal("no clients attached, permission must be false")
	}
	if err := r.Notify(context.Background(), testNotification()); !errors.Is(err, ErrNotificationUnavailable) {
		t.Fatalf("expected ErrNotificationUnavailable, got %v", err)
	}
	b.clients = 1
	if err := r.Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(b.methods) != 1 || b.methods[0] != MethodAlertNotification {
		t.Fatalf("unexpected broadcasts %v", b.methods)
	}
}

func TestDesktop_Permission(t *testing.T) {
	found := func(string) (string, error) { return "/usr/bin/notify-send", nil }
	missing := func(string) (string, error) { return "", errors.New("not found") }

	if NewDesktop(DesktopOptions{Enabled: false, LookPath: found}).Permission() {
		t.Fatal("disabled desktop notifier must not be permitted")
	}
	if NewDesktop(DesktopOptions{Enabled: true, LookPath: missing}).Permission() {
		t.Fatal("missing binary must not be permitted")
	}
	if !NewDesktop(DesktopOptions{Enabled: true, LookPath: found}).Permission() {
		t.Fatal("expected permission")
	}
}

func TestDesktop_NotifySendArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	d := NewDesktop(DesktopOptions{
		Enabled:  true,
		Binary:   "notify-send",
		LookPath: func(string) (string, error) { return "notify-send", nil },
		Runner: func(_ context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			return nil
		},
	})
	n := testNotification()
	if err := d.Notify(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	if gotName != "notify-send" || gotArgs[len(gotArgs)-2] != n.Title || gotArgs[len(gotArgs)-1] != n.Body {
		t.Fatalf("unexpected invocation %s %v", gotName, gotArgs)
	}
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakePublisher struct {
	connected bool
	err       error
	topic     string
	qos       byte
	payload   []byte
}

func (f *fakePublisher) IsConnected() bool { return f.connected }

func (f *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	f.topic, f.qos = topic, qos
	f.payload, _ = payload.([]byte)
	return &fakeToken{err: f.err}
}

func TestMQTT_Publishes(t *testing.T) {
	p := &fakePublisher{connected: true}
	m := NewMQTT(p, "")
	n := testNotification()
	if err := m.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if p.topic != DefaultTopic || p.qos != 1 {
		t.Fatalf("published to %s qos %d", p.topic, p.qos)
	}
	var got rozalib.Notification
	if err := json.Unmarshal(p.payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.Kind != rozalib.KindAftari || !got.Target.Equal(n.Target) {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestMQTT_DisconnectedAndFailing(t *testing.T) {
	m := NewMQTT(&fakePublisher{connected: false}, "x")
	if err := m.Notify(context.Background(), testNotification()); !errors.Is(err, ErrNotificationUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	boom := errors.New("broker refused")
	m = NewMQTT(&fakePublisher{connected: true, err: boom}, "x")
	if err := m.Notify(context.Background(), testNotification()); !errors.Is(err, boom) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

type stubChannel struct {
	name    string
	allowed bool
	err     error
	calls   int
}

func (s *stubChannel) Name() string     { return s.name }
func (s *stubChannel) Permission() bool { return s.allowed }
func (s *stubChannel) Notify(context.Context, rozalib.Notification) error {
	s.calls++
	return s.err
}

func TestMulti_FanOut(t *testing.T) {
	a := &stubChannel{name: "a", allowed: true}
	b := &stubChannel{name: "b", allowed: false}
	c := &stubChannel{name: "c", allowed: true}
	results := map[string]error{}
	m := NewMulti(a, nil, b, c)
	m.OnResult = func(name string, err error) { results[name] = err }

	if !m.Permission() {
		t.Fatal("expected permission")
	}
	if err := m.Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if a.calls != 1 || b.calls != 0 || c.calls != 1 {
		t.Fatalf("calls a=%d b=%d c=%d", a.calls, b.calls, c.calls)
	}
	if !errors.Is(results["b"], ErrNotificationUnavailable) || results["a"] != nil {
		t.Fatalf("unexpected results %v", results)
	}
	if got := m.Channels(); len(got) != 3 {
		t.Fatalf("Channels() = %v", got)
	}
}

func TestMulti_Errors(t *testing.T) {
	none := NewMulti(&stubChannel{name: "a"})
	if none.Permission() {
		t.Fatal("no permitted channel")
	}
	if err := none.Notify(context.Background(), testNotification()); !errors.Is(err, ErrNotificationUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	boom := errors.New("boom")
	m := NewMulti(&stubChannel{name: "a", allowed: true, err: boom}, &stubChannel{name: "b", allowed: true})
	if err := m.Notify(context.Background(), testNotification()); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
}
