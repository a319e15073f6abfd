package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/udisondev/otgate/internal/config"
	"github.com/udisondev/otgate/internal/constants"
)

// exchangeTimeout bounds the whole request/response exchange.
const exchangeTimeout = 5 * time.Second

// Server answers the legacy status query: a 6-byte "info" request gets
// the current status string back. Denied peers are accepted and dropped
// without a reply.
type Server struct {
	cfg     config.Config
	holder  *Holder
	limiter *RateLimiter

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a status service around the shared holder.
func NewServer(cfg config.Config, holder *Holder) *Server {
	return &Server{
		cfg:     cfg,
		holder:  holder,
		limiter: NewRateLimiter(cfg.StatusMinRequestInterval()),
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

// Close closes the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run begins listening for status queries.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.BindAddress(s.cfg.StatusPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts queries from the given listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	slog.Info("status service listening", "address", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}
			slog.Error("status accept failed", "error", err)
			continue
		}

		host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
		if err != nil {
			conn.Close()
			continue
		}

		if !s.limiter.Allow(host) {
			conn.Close()
			continue
		}

		wg.Go(func() {
			s.handle(conn)
		})
	}

	wg.Wait()
	return ctx.Err()
}

// handle serves one query within the exchange deadline.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(exchangeTimeout))

	var buf [constants.StatusMaxResponse]byte
	if _, err := io.ReadFull(conn, buf[:2]); err != nil {
		return
	}

	requestLen := int(buf[0]) | int(buf[1])<<8
	if requestLen != constants.StatusRequestSize {
		slog.Debug("invalid status request length", "length", requestLen)
		return
	}

	if _, err := io.ReadFull(conn, buf[:requestLen]); err != nil {
		return
	}
	if buf[0] != 0xFF || buf[1] != 0xFF || string(buf[2:6]) != "info" {
		slog.Debug("unknown status request", "request", buf[:requestLen])
		return
	}

	status := s.holder.StatusString()
	if len(status) == 0 || len(status) > constants.StatusMaxResponse {
		return
	}
	conn.Write(status)
}
