// Package health serves the readiness endpoint of miragend on its own
// listener.
//
// GET /health answers 503 "starting" until the proxy is listening and
// 200 "ok" afterwards. It goes back to 503 while the proxy drains on
// shutdown.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Server is the readiness endpoint.
type Server struct {
	addr   string
	server *http.Server
	ready  atomic.Bool
}

// New creates a health server for addr.
func New(addr string) *Server {
	s := &Server{addr: addr}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	slog.Info("Starting health server", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// MarkReady makes /health answer 200.
func (s *Server) MarkReady() {
	s.ready.Store(true)
	slog.Info("Health server marked as ready")
}

// MarkNotReady makes /health answer 503.
func (s *Server) MarkNotReady() {
	s.ready.Store(false)
	slog.Info("Health server marked as not ready")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	status, body := http.StatusServiceUnavailable, "starting"
	if s.ready.Load() {
		status, body = http.StatusOK, "ok"
	}
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}
