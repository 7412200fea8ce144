package rozacli

import (
	"encoding/json"
	"sync"

	"github.com/creachadair/jrpc2"
)

// Dispatcher routes server pushes to handlers by method name.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	errs     chan error
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		errs:     make(chan error, 1),
	}
}

func (d *Dispatcher) AddHandler(method string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[method] = append(d.handlers[method], h)
}

// process runs on the jrpc2 client goroutine. The first handler error is
// kept for Wait.
func (d *Dispatcher) process(req *jrpc2.Request) {
	d.mu.RLock()
	hs := d.handlers[req.Method()]
	d.mu.RUnlock()
	if len(hs) == 0 {
		return
	}
	var raw json.RawMessage
	if err := req.UnmarshalParams(&raw); err != nil {
		d.fail(err)
		return
	}
	for _, h := range hs {
		if err := h.Handle(raw); err != nil {
			d.fail(err)
			return
		}
	}
}

func (d *Dispatcher) fail(err error) {
	select {
	case d.errs <- err:
	default:
	}
}
