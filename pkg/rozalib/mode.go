package rozalib

import (
	"fmt"
	"strings"
)

// TrackingMode decides which boundary the selector follows.
type TrackingMode int

const (
	// ModeAutomatic follows the nearest upcoming boundary.
	ModeAutomatic TrackingMode = iota
	// ModeForceAftari always follows the sunset limit.
	ModeForceAftari
	// ModeForceSehri always follows the dawn limit.
	ModeForceSehri
)

// String returns the persisted name of the mode.
func (m TrackingMode) String() string {
	switch m {
	case ModeForceAftari:
		return "aftari"
	case ModeForceSehri:
		return "sehri"
	default:
		return "auto"
	}
}

// ParseTrackingMode parses the persisted names, also accepting the
// spelled-out constant names.
func ParseTrackingMode(s string) (TrackingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "automatic":
		return ModeAutomatic, nil
	case "aftari", "force_aftari", "iftar":
		return ModeForceAftari, nil
	case "sehri", "force_sehri", "suhoor":
		return ModeForceSehri, nil
	}
	return ModeAutomatic, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m TrackingMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TrackingMode) UnmarshalText(b []byte) error {
	v, err := ParseTrackingMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
