package rozalib

import (
	"fmt"
	"time"
)

// CountdownSnapshot is the remaining time to a target, split into fields.
// Hours is not capped at 23.
type CountdownSnapshot struct {
	Hours     int           `json:"hours"`
	Minutes   int           `json:"minutes"`
	Seconds   int           `json:"seconds"`
	Remaining time.Duration `json:"remaining"`
	Expired   bool          `json:"expired"`
}

// Expired is the snapshot reported once the target has been reached.
var Expired = CountdownSnapshot{Expired: true}

// Tick returns the countdown to target as seen at now. The remainder is
// rounded up to the next whole second, so any instant before target yields a
// strictly positive snapshot; at or after target the snapshot is Expired.
func Tick(target, now time.Time) CountdownSnapshot {
	if !now.Before(target) {
		return Expired
	}
	rem := target.Sub(now)
	secs := int64(rem / time.Second)
	if rem%time.Second != 0 {
		secs++
	}
	return CountdownSnapshot{
		Hours:     int(secs / 3600),
		Minutes:   int(secs % 3600 / 60),
		Seconds:   int(secs % 60),
		Remaining: rem,
	}
}

// Format renders the snapshot as "HH : MM : SS".
func (s CountdownSnapshot) Format() string {
	if s.Expired {
		return "00 : 00 : 00"
	}
	return fmt.Sprintf("%02d : %02d : %02d", s.Hours, s.Minutes, s.Seconds)
}

// Compact renders the snapshot as "HH:MM:SS".
func (s CountdownSnapshot) Compact() string {
	return fmt.Sprintf("%02d:%02d:%02d", s.Hours, s.Minutes, s.Seconds)
}
