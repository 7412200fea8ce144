// Package notify carries alert notifications to the channels a headless
// host has: attached RPC clients, the desktop notification daemon and MQTT.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rozadev/roza/pkg/rozalib"
)

// ErrNotificationUnavailable is re-exported so callers need one import.
var ErrNotificationUnavailable = rozalib.ErrNotificationUnavailable

// Channel is a named notifier.
type Channel interface {
	rozalib.Notifier
	Name() string
}

// Multi fans a notification out to every permitted channel.
type Multi struct {
	channels []Channel
	// OnResult observes the outcome per channel.
	OnResult func(channel string, err error)
}

// NewMulti combines channels. Nil entries are ignored.
func NewMulti(channels ...Channel) *Multi {
	m := &Multi{}
	for _, c := range channels {
		if c != nil {
			m.channels = append(m.channels, c)
		}
	}
	return m
}

// Channels returns the configured channel names.
func (m *Multi) Channels() []string {
	out := make([]string, len(m.channels))
	for i, c := range m.channels {
		out[i] = c.Name()
	}
	return out
}

// Permission is true when at least one channel is permitted.
func (m *Multi) Permission() bool {
	for _, c := range m.channels {
		if c.Permission() {
			return true
		}
	}
	return false
}

// Notify delivers to every permitted channel. It returns
// ErrNotificationUnavailable when none delivered and none actually failed.
func (m *Multi) Notify(ctx context.Context, n rozalib.Notification) error {
	var errs []error
	delivered := false
	for _, c := range m.channels {
		if !c.Permission() {
			m.report(c.Name(), ErrNotificationUnavailable)
			continue
		}
		err := c.Notify(ctx, n)
		m.report(c.Name(), err)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, ErrNotificationUnavailable):
		default:
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if !delivered {
		return ErrNotificationUnavailable
	}
	return nil
}

func (m *Multi) report(name string, err error) {
	if m.OnResult != nil {
		m.OnResult(name, err)
	}
}
