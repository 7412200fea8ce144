package rozalib

import (
	"fmt"
	"strings"
	"time"
)

// EventKind is the kind of boundary being tracked.
type EventKind string

const (
	KindSehri  EventKind = "SEHRI"
	KindAftari EventKind = "AFTARI"
)

// Title is the human readable label of the kind.
func (k EventKind) Title() string {
	switch k {
	case KindSehri:
		return "Sehri"
	case KindAftari:
		return "Aftari"
	}
	return strings.ToLower(string(k))
}

// NextEvent is the boundary the countdown and alert trigger key off.
type NextEvent struct {
	Kind   EventKind `json:"kind"`
	Target time.Time `json:"target"`
}

// Equal compares kind and target at millisecond resolution.
func (e NextEvent) Equal(o NextEvent) bool {
	return e.Kind == o.Kind && e.Target.UnixMilli() == o.Target.UnixMilli()
}

// IsZero reports whether e is the zero event.
func (e NextEvent) IsZero() bool {
	return e.Kind == "" && e.Target.IsZero()
}

func (e NextEvent) String() string {
	return fmt.Sprintf("%s at %s", e.Kind, e.Target.Format("2006-01-02 15:04:05"))
}
