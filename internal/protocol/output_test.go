package protocol

import (
	"bytes"
	"testing"

	"github.com/udisondev/otgate/internal/constants"
)

func TestOutputHeaderPrepend(t *testing.T) {
	out := NewOutputMessage()
	out.AddByte(0xAA)
	out.AddByte(0xBB)

	out.AddHeaderByte(0x01)
	out.AddHeaderUint32(0x11223344)
	out.AddHeaderUint16(0x5566)

	want := []byte{0x66, 0x55, 0x44, 0x33, 0x22, 0x11, 0x01, 0xAA, 0xBB}
	if !bytes.Equal(out.OutputBuffer(), want) {
		t.Errorf("OutputBuffer = % x, want % x", out.OutputBuffer(), want)
	}
	if out.OutputLength() != len(want) {
		t.Errorf("OutputLength = %d, want %d", out.OutputLength(), len(want))
	}
}

func TestOutputHeaderReserveIsExact(t *testing.T) {
	// The full frame header is 2 + 4 + 1 = 7 bytes plus one spare; the
	// reserve must absorb it with start never going negative.
	out := NewOutputMessage()
	out.AddByte(0x00)
	out.AddHeaderByte(0)
	out.AddHeaderUint32(0)
	out.AddHeaderUint16(0)
	if out.start < 0 {
		t.Fatalf("start = %d after full header, must stay >= 0", out.start)
	}
	if out.start != constants.OutputHeaderReserve-7 {
		t.Errorf("start = %d, want %d", out.start, constants.OutputHeaderReserve-7)
	}
}

func TestOutputAppend(t *testing.T) {
	var msg NetworkMessage
	msg.AddByte(0x14)
	msg.AddString("error")

	out := NewOutputMessage()
	out.Append(&msg)
	if out.OutputLength() != msg.WrittenLength() {
		t.Errorf("OutputLength = %d, want %d", out.OutputLength(), msg.WrittenLength())
	}
}

func TestArenaReuse(t *testing.T) {
	arena := NewArena()

	m := arena.Get()
	m.AddByte(0xFF)
	m.SetNext(NewOutputMessage())
	arena.Put(m)

	again := arena.Get()
	if again != m {
		t.Fatal("arena did not reuse the returned message")
	}
	if again.OutputLength() != 0 || again.Next() != nil {
		t.Error("reused message was not reset")
	}
}

func TestArenaFallbackAllocation(t *testing.T) {
	arena := NewArena()

	// Exhausting the free list must fall back to plain allocation, never
	// block or fail.
	a := arena.Get()
	b := arena.Get()
	if a == b {
		t.Fatal("arena returned the same message twice")
	}
}
