package notify

import (
	"context"

	"github.com/rozadev/roza/pkg/rozalib"
)

// MethodAlertNotification is the push method attached clients receive.
const MethodAlertNotification = "alert.notification"

// Broadcaster is the push side of the RPC server.
type Broadcaster interface {
	Broadcast(method string, params any)
	Count() int
}

// RPC pushes notifications to attached clients.
type RPC struct {
	b Broadcaster
}

func NewRPC(b Broadcaster) *RPC {
	return &RPC{b: b}
}

func (r *RPC) Name() string { return "rpc" }

// Permission is true while at least one client is attached.
func (r *RPC) Permission() bool {
	return r.b != nil && r.b.Count() > 0
}

func (r *RPC) Notify(_ context.Context, n rozalib.Notification) error {
	if !r.Permission() {
		return ErrNotificationUnavailable
	}
	r.b.Broadcast(MethodAlertNotification, n)
	return nil
}
