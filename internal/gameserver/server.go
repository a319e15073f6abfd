package gameserver

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
	"github.com/udisondev/otgate/internal/crypto"
	"github.com/udisondev/otgate/internal/protocol"
)

// Connection timing constants, fixed by the client protocol.
const (
	loginTimeout   = 5 * time.Second
	readTimeout    = 15 * time.Second
	writeTimeout   = 15 * time.Second
	writerIdlePoll = 10 * time.Millisecond
)

// World is the game-loop surface the network goroutines hand work to.
// Every method is safe to call from any goroutine; implementations
// serialize onto the game loop internally.
type World interface {
	// HandleLogin resolves a completed handshake: it must eventually move
	// the connection out of LOGIN via ResolveLogin or leave it to the
	// login timer.
	HandleLogin(conn *Conn, gamemaster bool, sessionToken []byte, characterName string)

	// HandlePacket delivers one decrypted inbound packet in arrival order.
	HandlePacket(conn *Conn, data []byte)

	// ConnectionClosed runs detach bookkeeping after the socket is gone.
	ConnectionClosed(conn *Conn)

	// UptimeSeconds feeds the handshake challenge.
	UptimeSeconds() uint64
}

// Server is the game service: it accepts connections, runs the handshake
// and attaches the reader/writer loops.
type Server struct {
	cfg   config.Config
	world World
	rsa   *crypto.RSAKey
	arena *protocol.Arena

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a game service.
func NewServer(cfg config.Config, world World, rsa *crypto.RSAKey, arena *protocol.Arena) *Server {
	return &Server{cfg: cfg, world: world, rsa: rsa, arena: arena}
}

// Arena returns the output arena shared with the game loop.
func (s *Server) Arena() *protocol.Arena { return s.arena }

// Addr returns the address the server is listening on, nil before Run.
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

// Run begins listening for game client connections.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.BindAddress(s.cfg.GamePort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections from the given listener. Split out so tests
// can hand in their own listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	slog.Info("game service listening", "address", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}
			slog.Error("game accept failed", "error", err)
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetKeepAlive(true)
			tcpConn.SetKeepAlivePeriod(30 * time.Second)
			tcpConn.SetNoDelay(true)
		}

		wg.Go(func() {
			s.handleConnection(ctx, conn)
		})
	}

	wg.Wait()
	return ctx.Err()
}

// handleConnection drives one connection: handshake, then reader and
// writer loops. It returns only when every loop has exited.
func (s *Server) handleConnection(ctx context.Context, sock net.Conn) {
	c := NewConn(sock)
	defer func() {
		c.Abort()
		s.world.ConnectionClosed(c)
	}()

	stop := context.AfterFunc(ctx, func() { c.Abort() })
	defer stop()

	slog.Info("new game connection", "client", c.ip)

	if !s.handshake(c) {
		return
	}

	state := c.State()
	if state == StateLogin || state == StateAbort {
		c.Abort()
		return
	}

	var wg sync.WaitGroup
	if state == StateOK {
		wg.Go(func() { s.readerLoop(c) })
	}
	wg.Go(func() { s.writerLoop(c) })
	wg.Wait()
}

// readerLoop reads frames while the connection is OK, enforcing the
// per-frame deadline and the receive-rate cap, and dispatches decrypted
// payloads to the game loop in arrival order.
func (s *Server) readerLoop(c *Conn) {
	msg := &protocol.NetworkMessage{}
	for c.State() == StateOK {
		if err := c.sock.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			c.Abort()
			return
		}

		if err := protocol.ReadFrame(c.sock, msg); err != nil {
			if errors.Is(err, io.EOF) {
				c.Close(false)
			} else {
				if c.State() == StateOK {
					slog.Info("game reader stopped", "client", c.ip, "error", err)
				}
				c.Abort()
			}
			return
		}

		if !s.admitPacket(c) {
			slog.Info(c.ip + " disconnected for exceeding packet per second limit.")
			c.Close(false)
			return
		}

		reserved, err := c.codec.Unwrap(msg, c.clientSeq)
		if err != nil {
			slog.Info("game frame rejected", "client", c.ip, "error", err)
			c.Abort()
			return
		}
		if reserved {
			slog.Debug("reserved sequence bit set by client", "client", c.ip)
		}
		c.clientSeq++

		if payload := msg.RemainingBuffer(); len(payload) > 0 {
			data := make([]byte, len(payload))
			copy(data, payload)
			s.world.HandlePacket(c, data)
		}
	}
}

// admitPacket applies the per-connection receive-rate cap. The window
// restarts once more than two seconds have passed, mirroring the
// accounting the client was tuned against.
func (s *Server) admitPacket(c *Conn) bool {
	limit := uint32(s.cfg.MaxPacketsPerSecond)
	if limit == 0 {
		return true
	}

	timePassed := uint32(time.Since(c.timeConnected)/time.Second) + 1
	c.packetsRecv++
	if c.packetsRecv/timePassed > limit {
		return false
	}
	if timePassed > 2 {
		c.timeConnected = time.Now()
		c.packetsRecv = 0
	}
	return true
}

// writerLoop polls the write queue, wraps frames and writes them while
// the connection is OK or draining. In CLOSE, observing an empty queue
// shuts the socket down.
func (s *Server) writerLoop(c *Conn) {
	for {
		state := c.State()
		if state != StateOK && state != StateClose {
			return
		}

		out := c.popOutput()
		if out == nil {
			if state == StateClose {
				c.shutdown()
				return
			}
			time.Sleep(writerIdlePoll)
			continue
		}

		if err := c.sock.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			s.arena.Put(out)
			c.Abort()
			return
		}

		if err := c.codec.Wrap(out, c.serverSeq); err != nil {
			s.arena.Put(out)
			slog.Error("failed to wrap frame", "client", c.ip, "error", err)
			c.Abort()
			return
		}
		c.serverSeq++

		_, err := c.sock.Write(out.OutputBuffer())
		s.arena.Put(out)
		if err != nil {
			if c.State() == StateOK || c.State() == StateClose {
				slog.Info("game writer stopped", "client", c.ip, "error", err)
			}
			c.Abort()
			return
		}
	}
}
