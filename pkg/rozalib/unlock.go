package rozalib

import (
	"context"
	"sync"
)

// AudioGate tracks whether autonomous playback is currently permitted.
// Hosts that gate audio behind a user interaction start locked and call
// Unlock when that interaction happens.
type AudioGate struct {
	mu       sync.Mutex
	unlocked bool
	probe    func(ctx context.Context) error
	subs     map[int]func(bool)
	nextID   int
}

// NewAudioGate returns a gate in the given initial state. probe is run by
// Unlock; a nil probe always succeeds.
func NewAudioGate(unlocked bool, probe func(ctx context.Context) error) *AudioGate {
	return &AudioGate{
		unlocked: unlocked,
		probe:    probe,
		subs:     make(map[int]func(bool)),
	}
}

// Unlocked reports the current state.
func (g *AudioGate) Unlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlocked
}

// Unlock attempts to unlock playback. It is a no-op when already unlocked.
func (g *AudioGate) Unlock(ctx context.Context) error {
	if g.Unlocked() {
		return nil
	}
	if g.probe != nil {
		if err := g.probe(ctx); err != nil {
			return err
		}
	}
	g.set(true)
	return nil
}

// Lock revokes the permission, for example when the output device goes away.
func (g *AudioGate) Lock() {
	g.set(false)
}

// OnChange registers fn to be called with every state transition. The
// returned function removes the subscription.
func (g *AudioGate) OnChange(fn func(unlocked bool)) (cancel func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

func (g *AudioGate) set(v bool) {
	g.mu.Lock()
	if g.unlocked == v {
		g.mu.Unlock()
		return
	}
	g.unlocked = v
	subs := make([]func(bool), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}
