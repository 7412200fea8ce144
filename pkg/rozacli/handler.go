package rozacli

import (
	"encoding/json"

	"github.com/rozadev/roza/common"
)

// Handler processes the raw params of one push.
type Handler interface {
	Handle(json.RawMessage) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(json.RawMessage) error

func (f HandlerFunc) Handle(m json.RawMessage) error { return f(m) }

// typed decodes the params into T before calling fn.
func typed[T any](fn func(*T) error) Handler {
	return HandlerFunc(func(m json.RawMessage) error {
		var v T
		if err := json.Unmarshal(m, &v); err != nil {
			return err
		}
		return fn(&v)
	})
}

// OnCountdown handles the per-second countdown push.
func (c *Client) OnCountdown(fn func(*common.CountdownResult) error) {
	c.AddHandler(common.PushCountdownUpdate, typed(fn))
}

// OnEventChanged handles replacements of the tracked event.
func (c *Client) OnEventChanged(fn func(*common.EventResult) error) {
	c.AddHandler(common.PushEventChanged, typed(fn))
}

// OnAlertFired handles completed alert deliveries.
func (c *Client) OnAlertFired(fn func(*common.AlertFiredNotification) error) {
	c.AddHandler(common.PushAlertFired, typed(fn))
}

// OnUnlockChanged handles audio gate transitions.
func (c *Client) OnUnlockChanged(fn func(*common.AudioStateResult) error) {
	c.AddHandler(common.PushUnlockChanged, typed(fn))
}
