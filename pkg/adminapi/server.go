package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ddurler/icomsim/pkg/tagdb"
)

// Server wraps the diagnostic HTTP API's http.Server with graceful
// shutdown, following the teacher's server-lifecycle shape (listen, run in
// a goroutine, Shutdown on context cancellation).
type Server struct {
	httpServer *http.Server
}

// NewServer builds a Server listening on addr, serving db's introspection
// routes. auth may be nil, in which case the mutating route is unguarded —
// callers should only do this in development.
func NewServer(addr string, db *tagdb.Database, auth *JWTService) *Server {
	handler := NewRouter(db, auth, time.Now())
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe starts the server. It blocks until the server stops or
// errors; it returns nil on graceful shutdown (http.ErrServerClosed is not
// passed on).
func (s *Server) ListenAndServe() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("adminapi: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
