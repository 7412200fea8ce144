package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rozadev/roza/pkg/logger"
)

// WebServer serves the JSON-RPC endpoints, metrics and health probes on
// one HTTP mux.
type WebServer struct {
	l        logger.Logger
	rpc      *RPCServer
	gatherer prometheus.Gatherer
	started  time.Time
	server   *http.Server
	mu       sync.Mutex
}

// NewWebServer wires rpc into an HTTP server. gatherer may be nil to use
// the default registry.
func NewWebServer(l logger.Logger, rpc *RPCServer, gatherer prometheus.Gatherer) *WebServer {
	if l == nil {
		l = logger.NewNopLogger()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &WebServer{l: l, rpc: rpc, gatherer: gatherer, started: time.Now()}
}

// Handler returns the routed mux.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/jsonrpc", requireToken(s.rpc.secret, s.rpc.bridge))
	mux.Handle("/jsonrpc/ws", requireToken(s.rpc.secret, http.HandlerFunc(s.rpc.serveWS)))
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.health)
	return mux
}

func (s *WebServer) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"clients": s.rpc.notifier.Count(),
	}
	if ev, ok := s.rpc.svc.NextEvent(); ok {
		body["next"] = EventResultOf(ev)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// Serve blocks serving on l until Shutdown.
func (s *WebServer) Serve(l net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.ToStdLogger(s.l),
	}
	srv := s.server
	s.mu.Unlock()

	err := srv.Serve(l)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the web server.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	s.rpc.notifier.CloseAll()
	return s.server.Shutdown(ctx)
}
