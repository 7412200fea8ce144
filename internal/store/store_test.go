package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rozadev/roza/pkg/rozalib"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), DefaultFileName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSettings_DefaultsWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestSettings_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	want := Settings{Madhab: rozalib.MadhabJafri, CountdownMode: rozalib.ModeForceSehri}
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, err := s.LoadSettings(ctx)
	if err != nil || got != want {
		t.Fatalf("got %+v, %v; want %+v", got, err, want)
	}

	var raw map[string]string
	if err := s.Get(ctx, SettingsKey, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["madhab"] != "Jafri" || raw["countdownMode"] != "sehri" {
		t.Fatalf("unexpected stored form %v", raw)
	}
}

func TestSettings_PerFieldFallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, SettingsKey, map[string]string{"madhab": "Maliki", "countdownMode": "aftari"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Madhab != rozalib.MadhabHanafi || got.CountdownMode != rozalib.ModeForceAftari {
		t.Fatalf("unexpected settings %+v", got)
	}
}

func TestSettings_CallerDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	def := Settings{Madhab: rozalib.MadhabJafri, CountdownMode: rozalib.ModeForceSehri}
	got, err := s.LoadSettingsOr(ctx, def)
	if err != nil {
		t.Fatal(err)
	}
	if got != def {
		t.Fatalf("expected caller defaults, got %+v", got)
	}
	if err := s.Put(ctx, SettingsKey, map[string]string{"countdownMode": "auto"}); err != nil {
		t.Fatal(err)
	}
	got, err = s.LoadSettingsOr(ctx, def)
	if err != nil {
		t.Fatal(err)
	}
	if got.Madhab != rozalib.MadhabJafri || got.CountdownMode != rozalib.ModeAutomatic {
		t.Fatalf("unexpected settings %+v", got)
	}
}

func TestLocation_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.LoadLocation(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	want := rozalib.Location{Name: "Lahore", Latitude: 31.5656, Longitude: 74.3142, CountryCode: "PK"}
	if err := s.SaveLocation(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadLocation(ctx)
	if err != nil || got != want {
		t.Fatalf("got %+v, %v", got, err)
	}
	if err := s.Delete(ctx, LocationKey); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadLocation(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.SaveSettings(context.Background(), Settings{Madhab: rozalib.MadhabJafri})
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, _ := s2.LoadSettings(context.Background())
	if got.Madhab != rozalib.MadhabJafri {
		t.Fatalf("expected persisted madhab, got %+v", got)
	}
}
