package rozalib

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEvent is returned by accessors before the first successful selection.
	ErrNoEvent = errors.New("no event selected yet")
	// ErrInvalidMode is returned when a tracking mode string is not recognised.
	ErrInvalidMode = errors.New("invalid tracking mode")
	// ErrInvalidMadhab is returned when a madhab string is not recognised.
	ErrInvalidMadhab = errors.New("invalid madhab")
	// ErrInvalidLocation is returned for coordinates outside the valid range.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrNotificationUnavailable is returned by a notifier whose permission is
	// not granted. The alert trigger skips it silently.
	ErrNotificationUnavailable = errors.New("notification unavailable")
	// ErrAudioLocked is returned when autonomous playback is attempted before
	// the audio gate has been unlocked.
	ErrAudioLocked = errors.New("audio is locked")
)

// CalculationError reports that boundary instants could not be computed for
// the given inputs. It is never fatal: the previously selected event is kept.
type CalculationError struct {
	Date   CalendarDate
	Reason string
	Err    error
}

func (e *CalculationError) Error() string {
	msg := fmt.Sprintf("calculation failed for %s: %s", e.Date, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CalculationError) Unwrap() error {
	return e.Err
}

// NewCalculationError is a shorthand used by providers.
func NewCalculationError(date CalendarDate, reason string, err error) *CalculationError {
	return &CalculationError{Date: date, Reason: reason, Err: err}
}

// PlaybackError wraps a failure of a single playback tier.
type PlaybackError struct {
	Tier string
	Err  error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback tier %q failed: %v", e.Tier, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// ErrNoLocation is returned by a tracker that has no location yet.
var ErrNoLocation = errors.New("no location set")
