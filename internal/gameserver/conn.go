package gameserver

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/otgate/internal/protocol"
)

// State is the per-connection lifecycle state. Transitions are forward
// only: LOGIN→{OK,CLOSE,ABORT}, OK→{CLOSE,ABORT}, CLOSE→ABORT. Both
// terminal states are absorbing.
type State int32

const (
	StateLogin State = iota
	StateOK
	StateClose
	StateAbort
)

func (s State) String() string {
	switch s {
	case StateLogin:
		return "LOGIN"
	case StateOK:
		return "OK"
	case StateClose:
		return "CLOSE"
	case StateAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

var connIDs atomic.Uint64

// Conn is a single game client connection. It is shared by the reader,
// the writer, the handshake goroutine and the game loop; each field is
// annotated with its owner.
type Conn struct {
	id   uint64
	sock net.Conn
	ip   string

	state atomic.Int32

	// Sequence counters: serverSeq is mutated only by the writer,
	// clientSeq only by the reader/handshake. Monotonically
	// non-decreasing.
	serverSeq uint32
	clientSeq uint32

	// codec carries the XTEA key, written exactly once during the
	// handshake before the reader and writer start.
	codec *protocol.Codec

	// The output queue is shared between the network goroutines and the
	// game loop and is the only explicitly synchronized field.
	outputMu   sync.Mutex
	outputHead *protocol.OutputMessage

	// Constant after the handshake.
	terminalType    int
	terminalVersion int

	// Accessed only on the game loop.
	playerGUID          uint32
	debugAssertReceived bool

	// Reader-owned receive-rate accounting.
	timeConnected time.Time
	packetsRecv   uint32

	// loginResolved is closed by the first successful transition out of
	// LOGIN so the handshake goroutine stops waiting on its timer.
	loginResolved chan struct{}
	resolveOnce   sync.Once
}

// NewConn wraps an accepted socket in LOGIN state.
func NewConn(sock net.Conn) *Conn {
	ip := sock.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return &Conn{
		id:            connIDs.Add(1),
		sock:          sock,
		ip:            ip,
		codec:         protocol.NewCodec(),
		timeConnected: time.Now(),
		loginResolved: make(chan struct{}),
	}
}

// ID returns the process-unique connection id.
func (c *Conn) ID() uint64 { return c.id }

// IP returns the peer address without the port.
func (c *Conn) IP() string { return c.ip }

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Transition moves from → to, returning false when another actor got
// there first or when to does not lie ahead of from. Concurrent actors
// use the result to agree on who executes teardown.
func (c *Conn) Transition(from, to State) bool {
	if to <= from {
		return false
	}
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// SetTerminal records the client-declared terminal identity. Called
// once, before the connection leaves LOGIN.
func (c *Conn) SetTerminal(terminalType, terminalVersion int) {
	c.terminalType = terminalType
	c.terminalVersion = terminalVersion
}

// TerminalType returns the client-declared terminal type.
func (c *Conn) TerminalType() int { return c.terminalType }

// TerminalVersion returns the client-declared terminal version.
func (c *Conn) TerminalVersion() int { return c.terminalVersion }

// PlayerGUID returns the attached player, zero when none. Game loop only.
func (c *Conn) PlayerGUID() uint32 { return c.playerGUID }

// SetPlayerGUID attaches or detaches a player. Game loop only.
func (c *Conn) SetPlayerGUID(guid uint32) { c.playerGUID = guid }

// DebugAssertOnce latches the one-shot debug-assert acceptance. Game loop
// only.
func (c *Conn) DebugAssertOnce() bool {
	if c.debugAssertReceived {
		return false
	}
	c.debugAssertReceived = true
	return true
}

// ResolveLogin completes the handshake with the given state (OK or
// CLOSE) and wakes the handshake goroutine. A no-op when the connection
// already left LOGIN.
func (c *Conn) ResolveLogin(to State) {
	if c.Transition(StateLogin, to) {
		c.resolveOnce.Do(func() { close(c.loginResolved) })
	}
}

// Close requests a graceful shutdown: the writer drains the queue and
// then shuts the socket down. Callable from any goroutine; with force
// set, pending output is discarded and the socket closes immediately.
func (c *Conn) Close(force bool) {
	if force {
		c.Abort()
		return
	}
	if !c.Transition(StateOK, StateClose) {
		c.ResolveLogin(StateClose)
	}
}

// Abort moves to ABORT from whatever state the connection is in and
// closes the socket immediately, failing any pending reads and writes.
func (c *Conn) Abort() {
	for {
		s := c.State()
		if s == StateAbort {
			return
		}
		if c.Transition(s, StateAbort) {
			break
		}
	}
	c.resolveOnce.Do(func() { close(c.loginResolved) })
	c.outputMu.Lock()
	c.outputHead = nil
	c.outputMu.Unlock()
	c.sock.Close()
}

// shutdown closes the socket after a graceful drain.
func (c *Conn) shutdown() {
	if tcp, ok := c.sock.(*net.TCPConn); ok {
		tcp.CloseWrite()
	}
	c.sock.Close()
}

// EnqueueOutput appends the written region of msg to the connection's
// write queue. The game loop grows the current tail message until its
// remaining capacity drops below the payload plus padding room, then
// chains a fresh one, so small packets coalesce into one frame.
func (c *Conn) EnqueueOutput(arena *protocol.Arena, msg *protocol.NetworkMessage) {
	const maxPadding = 8

	c.outputMu.Lock()
	defer c.outputMu.Unlock()

	if s := c.State(); s == StateAbort {
		return
	}

	if c.outputHead == nil {
		c.outputHead = arena.Get()
	}

	tail := c.outputHead
	for tail.Next() != nil {
		tail = tail.Next()
	}

	if !tail.CanAdd(msg.WrittenLength() + maxPadding) {
		tail.SetNext(arena.Get())
		tail = tail.Next()
	}

	tail.Append(msg)
}

// popOutput removes and returns the queue head, nil when empty. Writer
// only.
func (c *Conn) popOutput() *protocol.OutputMessage {
	c.outputMu.Lock()
	defer c.outputMu.Unlock()
	out := c.outputHead
	if out != nil {
		c.outputHead = out.Next()
		out.SetNext(nil)
	}
	return out
}
