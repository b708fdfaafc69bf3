// Package debug serves the CLI's observability endpoints: liveness,
// Prometheus metrics, and a JSON view of the live gateway sessions.
package debug

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gatewire-dev/gatewire/pkg/gateway"
)

// StatsSource yields the current per-shard session stats.
// *gateway.Manager implements it.
type StatsSource interface {
	Stats() []gateway.Stats
}

// Server is the debug HTTP server. Construct with NewServer, bind with
// Start, stop with Shutdown.
type Server struct {
	addr   string
	source StatsSource
	logger *slog.Logger

	httpServer *http.Server
	listener   net.Listener
}

// NewServer builds a debug server for the given listen address.
func NewServer(addr string, source StatsSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:   addr,
		source: source,
		logger: logger.With("component", "debug"),
	}
	s.httpServer = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/debug/sessions", s.handleSessions)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	stats := []gateway.Stats{}
	if s.source != nil {
		stats = s.source.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		s.logger.Error("encode session stats", "error", err)
	}
}

// Start binds the listener and serves in the background. The returned
// error covers the bind only; later serve failures are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("debug server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("debug server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address. Before Start it returns the
// configured address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server. A Server that was never
// started shuts down without error.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
