package protocol

import (
	"encoding/binary"

	"github.com/udisondev/otgate/internal/constants"
)

// NetworkMessage is a fixed-capacity packet buffer with independent read
// and write cursors. Getters never fail mid-decode; a decode that walked
// past the written region is detected afterwards through IsOverrun, which
// keeps command parsing branch-free the way the client expects.
type NetworkMessage struct {
	rdpos  int
	wrpos  int
	buffer [constants.NetworkMessageMaxSize]byte
}

// Reset rewinds both cursors.
func (m *NetworkMessage) Reset() {
	m.rdpos = 0
	m.wrpos = 0
}

// CanRead reports whether n more bytes can be read.
func (m *NetworkMessage) CanRead(n int) bool {
	return m.rdpos+n <= m.wrpos
}

// CanAdd reports whether n more bytes fit.
func (m *NetworkMessage) CanAdd(n int) bool {
	return m.wrpos+n <= len(m.buffer)
}

// IsOverrun reports whether a cursor walked out of bounds.
func (m *NetworkMessage) IsOverrun() bool {
	return m.rdpos > m.wrpos || m.wrpos > len(m.buffer)
}

// Buffer exposes the backing array for frame I/O.
func (m *NetworkMessage) Buffer() []byte {
	return m.buffer[:]
}

// SetWindow positions the cursors over an externally-filled region.
func (m *NetworkMessage) SetWindow(rdpos, wrpos int) {
	m.rdpos = rdpos
	m.wrpos = wrpos
}

// RemainingBuffer returns the unread region.
func (m *NetworkMessage) RemainingBuffer() []byte {
	if m.IsOverrun() {
		return m.buffer[:0]
	}
	return m.buffer[m.rdpos:m.wrpos]
}

// RemainingLength returns the number of unread bytes.
func (m *NetworkMessage) RemainingLength() int {
	if m.IsOverrun() {
		return 0
	}
	return m.wrpos - m.rdpos
}

// WrittenLength returns the number of written bytes.
func (m *NetworkMessage) WrittenLength() int {
	if m.IsOverrun() {
		return 0
	}
	return m.wrpos
}

// DiscardPadding drops n bytes from the tail of the written region.
func (m *NetworkMessage) DiscardPadding(n int) bool {
	if n < 0 || n > m.RemainingLength() {
		return false
	}
	m.wrpos -= n
	return true
}

// PeekByte returns the next byte without advancing the cursor.
func (m *NetworkMessage) PeekByte() byte {
	if !m.CanRead(1) {
		return 0
	}
	return m.buffer[m.rdpos]
}

// GetByte reads one byte.
func (m *NetworkMessage) GetByte() byte {
	var v byte
	if m.CanRead(1) {
		v = m.buffer[m.rdpos]
	}
	m.rdpos++
	return v
}

// GetUint16 reads a little-endian uint16.
func (m *NetworkMessage) GetUint16() uint16 {
	var v uint16
	if m.CanRead(2) {
		v = binary.LittleEndian.Uint16(m.buffer[m.rdpos:])
	}
	m.rdpos += 2
	return v
}

// GetUint32 reads a little-endian uint32.
func (m *NetworkMessage) GetUint32() uint32 {
	var v uint32
	if m.CanRead(4) {
		v = binary.LittleEndian.Uint32(m.buffer[m.rdpos:])
	}
	m.rdpos += 4
	return v
}

// GetUint64 reads a little-endian uint64.
func (m *NetworkMessage) GetUint64() uint64 {
	var v uint64
	if m.CanRead(8) {
		v = binary.LittleEndian.Uint64(m.buffer[m.rdpos:])
	}
	m.rdpos += 8
	return v
}

// GetString reads a uint16-length-prefixed string.
func (m *NetworkMessage) GetString() string {
	n := int(m.GetUint16())
	if !m.CanRead(n) {
		m.rdpos += n
		return ""
	}
	s := string(m.buffer[m.rdpos : m.rdpos+n])
	m.rdpos += n
	return s
}

// GetBytes reads n raw bytes.
func (m *NetworkMessage) GetBytes(n int) []byte {
	if !m.CanRead(n) {
		m.rdpos += n
		return nil
	}
	b := m.buffer[m.rdpos : m.rdpos+n]
	m.rdpos += n
	return b
}

// GetPosition reads a map position triple (x u16, y u16, z u8).
func (m *NetworkMessage) GetPosition() Position {
	return Position{
		X: m.GetUint16(),
		Y: m.GetUint16(),
		Z: m.GetByte(),
	}
}

// SkipBytes advances the read cursor by n.
func (m *NetworkMessage) SkipBytes(n int) {
	m.rdpos += n
}

// AddByte appends one byte.
func (m *NetworkMessage) AddByte(v byte) {
	if m.CanAdd(1) {
		m.buffer[m.wrpos] = v
	}
	m.wrpos++
}

// AddUint16 appends a little-endian uint16.
func (m *NetworkMessage) AddUint16(v uint16) {
	if m.CanAdd(2) {
		binary.LittleEndian.PutUint16(m.buffer[m.wrpos:], v)
	}
	m.wrpos += 2
}

// AddUint32 appends a little-endian uint32.
func (m *NetworkMessage) AddUint32(v uint32) {
	if m.CanAdd(4) {
		binary.LittleEndian.PutUint32(m.buffer[m.wrpos:], v)
	}
	m.wrpos += 4
}

// AddUint64 appends a little-endian uint64.
func (m *NetworkMessage) AddUint64(v uint64) {
	if m.CanAdd(8) {
		binary.LittleEndian.PutUint64(m.buffer[m.wrpos:], v)
	}
	m.wrpos += 8
}

// AddString appends a uint16-length-prefixed string.
func (m *NetworkMessage) AddString(s string) {
	m.AddUint16(uint16(len(s)))
	m.AddBytes([]byte(s))
}

// AddBytes appends raw bytes.
func (m *NetworkMessage) AddBytes(b []byte) {
	if m.CanAdd(len(b)) {
		copy(m.buffer[m.wrpos:], b)
	}
	m.wrpos += len(b)
}

// AddPosition appends a map position triple.
func (m *NetworkMessage) AddPosition(p Position) {
	m.AddUint16(p.X)
	m.AddUint16(p.Y)
	m.AddByte(p.Z)
}

// Position is a map coordinate as carried on the wire.
type Position struct {
	X uint16
	Y uint16
	Z byte
}
