// Package daemon runs the roza tracking daemon. The Runner owns the listener
// lifecycle; Service holds the state the RPC methods and scheduled jobs act on.
package daemon

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/net/netutil"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// DefaultShutdownTimeout bounds a graceful stop when Config leaves it unset.
const DefaultShutdownTimeout = 5 * time.Second

// Config holds the configuration for the daemon runner.
type Config struct {
	// Listen is the TCP address to serve on. Empty selects an ephemeral
	// loopback port.
	Listen string

	// MaxConns caps concurrent connections. Zero means no cap.
	MaxConns int

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// Dependencies holds the external dependencies for the daemon runner.
type Dependencies struct {
	// ListenerFactory creates network listeners.
	// If nil, net.Listen is used.
	ListenerFactory func(network, address string) (net.Listener, error)

	// Serve blocks serving l until ShutdownFunc is called. If nil, Start
	// only holds the listener open.
	Serve func(l net.Listener) error

	// ShutdownFunc stops Serve and releases resources.
	ShutdownFunc func(ctx context.Context) error
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config   *Config
	deps     *Dependencies
	running  bool
	mu       sync.Mutex
	cancel   context.CancelFunc
	listener net.Listener
}

// New creates a daemon runner. Nil config and deps select the defaults.
func New(config *Config, deps *Dependencies) *Runner {
	return &Runner{
		config: applyConfigDefaults(config),
		deps:   applyDependencyDefaults(deps),
	}
}

func applyConfigDefaults(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	if config.Listen == "" {
		config.Listen = "127.0.0.1:0"
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	return config
}

func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	return deps
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Addr returns the bound address, nil when not running.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Start binds the listener, serves on it and blocks until the context is
// canceled, Shutdown is called or Serve fails.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, r.cancel = context.WithCancel(ctx)

	listener, err := r.deps.ListenerFactory("tcp", r.config.Listen)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if r.config.MaxConns > 0 {
		listener = netutil.LimitListener(listener, r.config.MaxConns)
	}
	r.listener = listener
	r.running = true
	r.mu.Unlock()

	serveErr := make(chan error, 1)
	if r.deps.Serve != nil {
		go func() { serveErr <- r.deps.Serve(listener) }()
	}

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-serveErr:
	}
	r.cleanupOnStop()
	return err
}

func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	r.closeListener()
}

// closeListener closes the listener if it exists.
// Caller must hold the mutex.
func (r *Runner) closeListener() {
	if r.listener != nil {
		_ = r.listener.Close()
		r.listener = nil
	}
}

// Shutdown gracefully stops the daemon.
// Returns ErrNotRunning if the daemon is not running and ErrShutdownTimeout
// if the shutdown function does not return within the configured timeout.
func (r *Runner) Shutdown() error {
	if !r.IsRunning() {
		return ErrNotRunning
	}
	err := r.executeShutdownFunc()
	r.performShutdown()
	return err
}

func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
	defer cancel()
	return r.executeWithTimeout(ctx, r.deps.ShutdownFunc)
}

// executeWithTimeout runs fn and gives up once ctx expires, even when fn
// ignores ctx.
func (r *Runner) executeWithTimeout(ctx context.Context, fn func(context.Context) error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrShutdownTimeout
		}
		return err
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}

func (r *Runner) performShutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
	r.closeListener()
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
