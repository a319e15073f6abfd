package protocol

import (
	"encoding/binary"

	"github.com/udisondev/otgate/internal/constants"
)

// OutputMessage is a NetworkMessage whose payload begins at a movable
// start cursor. The first 8 bytes are reserved so the writer can prepend
// the frame headers without copying; every AddHeader* call decrements
// start, and start must never go below zero.
type OutputMessage struct {
	NetworkMessage
	start int
	next  *OutputMessage
}

// NewOutputMessage allocates a reset message outside of any arena.
func NewOutputMessage() *OutputMessage {
	m := &OutputMessage{}
	m.ResetOutput()
	return m
}

// ResetOutput rewinds the message, re-reserving the header region.
func (m *OutputMessage) ResetOutput() {
	m.start = constants.OutputHeaderReserve
	m.rdpos = m.start
	m.wrpos = m.start
	m.next = nil
}

// Next returns the queue successor.
func (m *OutputMessage) Next() *OutputMessage {
	return m.next
}

// SetNext chains a queue successor.
func (m *OutputMessage) SetNext(n *OutputMessage) {
	m.next = n
}

// OutputBuffer returns the logical frame: headers prepended so far plus
// the payload.
func (m *OutputMessage) OutputBuffer() []byte {
	return m.buffer[m.start:m.wrpos]
}

// OutputLength returns the logical frame length.
func (m *OutputMessage) OutputLength() int {
	if m.IsOverrun() {
		return 0
	}
	return m.wrpos - m.start
}

// AddHeaderByte prepends one byte.
func (m *OutputMessage) AddHeaderByte(v byte) {
	m.start--
	m.buffer[m.start] = v
}

// AddHeaderUint16 prepends a little-endian uint16.
func (m *OutputMessage) AddHeaderUint16(v uint16) {
	m.start -= 2
	binary.LittleEndian.PutUint16(m.buffer[m.start:], v)
}

// AddHeaderUint32 prepends a little-endian uint32.
func (m *OutputMessage) AddHeaderUint32(v uint32) {
	m.start -= 4
	binary.LittleEndian.PutUint32(m.buffer[m.start:], v)
}

// Append copies the written region of msg onto the tail.
func (m *OutputMessage) Append(msg *NetworkMessage) {
	if msg.IsOverrun() {
		return
	}
	m.AddBytes(msg.buffer[:msg.wrpos])
}

// Arena is a bounded free list of OutputMessages. Get falls back to a
// fresh allocation when the list is empty; Put drops the message when the
// list is full. Capacity is fixed at construction, before any listener
// binds.
type Arena struct {
	free chan *OutputMessage
}

// NewArena builds an arena with the standard capacity.
func NewArena() *Arena {
	return &Arena{free: make(chan *OutputMessage, constants.OutputArenaSize)}
}

// Get returns a reset OutputMessage.
func (a *Arena) Get() *OutputMessage {
	select {
	case m := <-a.free:
		m.ResetOutput()
		return m
	default:
		return NewOutputMessage()
	}
}

// Put returns a message to the free list.
func (a *Arena) Put(m *OutputMessage) {
	if m == nil {
		return
	}
	m.next = nil
	select {
	case a.free <- m:
	default:
	}
}
