package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/udisondev/otgate/internal/config"
)

// requestTimeout bounds a single launcher exchange.
const requestTimeout = 5 * time.Second

// Server is the HTTP login service.
type Server struct {
	cfg     config.Config
	handler *Handler

	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
}

// NewServer creates the login service.
func NewServer(cfg config.Config, store AccountStore) *Server {
	return &Server{
		cfg:     cfg,
		handler: NewHandler(cfg, store),
	}
}

// Addr returns the listen address, nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run begins serving login requests until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.BindAddress(s.cfg.HTTPPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves login requests from the given listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = srv
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("login service listening", "address", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("login service: %w", err)
	}
	return ctx.Err()
}
