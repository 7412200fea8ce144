package rozalib

import (
	"testing"
	"time"
)

func TestTick_Boundary(t *testing.T) {
	target := at(t, testDate, "05:00:00.000")

	s := Tick(target, target.Add(-time.Millisecond))
	if s.Expired {
		t.Fatal("expected a live snapshot one millisecond before target")
	}
	if s.Hours+s.Minutes+s.Seconds == 0 {
		t.Fatalf("expected a strictly positive snapshot, got %+v", s)
	}

	if got := Tick(target, target); !got.Expired {
		t.Fatalf("expected Expired at target, got %+v", got)
	}
	if got := Tick(target, target.Add(time.Hour)); !got.Expired {
		t.Fatalf("expected Expired after target, got %+v", got)
	}
}

func TestTick_Decomposition(t *testing.T) {
	now := at(t, testDate, "04:00:00.000")
	tests := []struct {
		rem     time.Duration
		h, m, s int
		format  string
	}{
		{time.Hour, 1, 0, 0, "01 : 00 : 00"},
		{time.Hour - time.Second, 0, 59, 59, "00 : 59 : 59"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, 2, 3, 4, "02 : 03 : 04"},
		{1500 * time.Millisecond, 0, 0, 2, "00 : 00 : 02"},
		{26 * time.Hour, 26, 0, 0, "26 : 00 : 00"},
	}
	for _, tt := range tests {
		got := Tick(now.Add(tt.rem), now)
		if got.Hours != tt.h || got.Minutes != tt.m || got.Seconds != tt.s {
			t.Fatalf("remaining %v: got %dh%dm%ds, want %dh%dm%ds", tt.rem, got.Hours, got.Minutes, got.Seconds, tt.h, tt.m, tt.s)
		}
		if got.Format() != tt.format {
			t.Fatalf("remaining %v: got %q, want %q", tt.rem, got.Format(), tt.format)
		}
	}
}

func TestCountdownSnapshot_FormatExpired(t *testing.T) {
	if got := Expired.Format(); got != "00 : 00 : 00" {
		t.Fatalf("unexpected expired format %q", got)
	}
}
