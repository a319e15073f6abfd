package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"hash/adler32"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/udisondev/otgate/internal/constants"
	"github.com/udisondev/otgate/internal/crypto"
)

// ChecksumMode selects what the 4-byte field after the block count
// carries. The mode is fixed per connection.
type ChecksumMode int

const (
	// ChecksumDisabled carries no checksum: Wrap omits the field and
	// Unwrap does not check it.
	ChecksumDisabled ChecksumMode = iota
	// ChecksumAdler carries an Adler-32 over the plaintext payload.
	ChecksumAdler
	// ChecksumSequence carries a per-direction monotonic counter. The
	// default from connection start (the login frame is already
	// sequenced); the only mode eligible for compression.
	ChecksumSequence
)

// Framing errors surfaced to the connection loops.
var (
	ErrFrameBounds   = errors.New("frame block count out of range")
	ErrSequenceSkew  = errors.New("frame sequence skew")
	ErrBadPadding    = errors.New("frame padding out of range")
	ErrBadChecksum   = errors.New("frame checksum mismatch")
	ErrFrameOverrun  = errors.New("frame buffer overrun")
	ErrFrameTooLarge = errors.New("frame exceeds block count limit")
)

// Codec holds the per-connection cipher state consulted by Wrap and
// Unwrap. The XTEA key is written once during the handshake and read-only
// afterwards, so the reader and writer share a Codec without locking.
type Codec struct {
	Key       crypto.XTEAKey
	Encrypted bool
	Mode      ChecksumMode

	deflater *flate.Writer
	scratch  bytes.Buffer
}

// NewCodec returns a handshake-phase codec: sequence numbering active,
// encryption off until the session key is exchanged.
func NewCodec() *Codec {
	w, _ := flate.NewWriter(io.Discard, 6)
	return &Codec{Mode: ChecksumSequence, deflater: w}
}

// EnableEncryption installs the session key. Called exactly once, from
// the handshake.
func (c *Codec) EnableEncryption(key crypto.XTEAKey) {
	c.Key = key
	c.Encrypted = true
}

// ReadFrame reads one length-prefixed frame from r into msg. The 2-byte
// prelude carries the XTEA block count; the body is 4 + 8*count bytes
// (checksum field plus cipher blocks). Rejects zero block counts and
// frames larger than the buffer.
func ReadFrame(r io.Reader, msg *NetworkMessage) error {
	buf := msg.Buffer()
	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return err
	}

	blocks := int(buf[0]) | int(buf[1])<<8
	bodyLen := 4 + blocks*constants.XTEABlockSize
	if blocks == 0 || bodyLen > len(buf) {
		return fmt.Errorf("%w: %d blocks", ErrFrameBounds, blocks)
	}

	if _, err := io.ReadFull(r, buf[:bodyLen]); err != nil {
		return err
	}

	msg.SetWindow(0, bodyLen)
	return nil
}

// Unwrap verifies the sequence, decrypts the cipher blocks and strips the
// padding, leaving msg positioned at the command payload. expect is the
// connection's next inbound sequence value. reserved reports whether the
// peer set the undocumented second-highest sequence bit.
func (c *Codec) Unwrap(msg *NetworkMessage, expect uint32) (reserved bool, err error) {
	field := msg.GetUint32()
	if c.Mode == ChecksumSequence {
		reserved = field&constants.SequenceReservedBit != 0
		if field&constants.SequenceValueMask != expect&constants.SequenceValueMask {
			return reserved, fmt.Errorf("%w: got %d, want %d",
				ErrSequenceSkew, field&constants.SequenceValueMask, expect)
		}
	}

	if c.Encrypted {
		if err := crypto.XTEADecrypt(c.Key, msg.RemainingBuffer()); err != nil {
			return reserved, err
		}
	}

	decrypted := msg.RemainingLength()
	padding := int(msg.GetByte())
	if padding+2 > decrypted || !msg.DiscardPadding(padding) {
		return reserved, fmt.Errorf("%w: %d of %d bytes", ErrBadPadding, padding, decrypted)
	}

	if c.Mode == ChecksumAdler {
		if field != adler32.Checksum(msg.RemainingBuffer()) {
			return reserved, ErrBadChecksum
		}
	}

	return reserved, nil
}

// Wrap finalizes out into a wire frame: optional deflate, random padding
// to the cipher block size, padding-count header, XTEA, checksum or
// sequence header, block-count header. seq is this frame's sequence
// number; Wrap does not advance counters.
func (c *Codec) Wrap(out *OutputMessage, seq uint32) error {
	if out.IsOverrun() {
		return ErrFrameOverrun
	}

	var checksum uint32
	switch c.Mode {
	case ChecksumAdler:
		checksum = adler32.Checksum(out.OutputBuffer())
	case ChecksumSequence:
		checksum = seq & ^uint32(constants.SequenceDeflateBit|constants.SequenceReservedBit)
		if out.OutputLength() >= constants.DeflateMinPayload && c.deflate(out) {
			checksum |= constants.SequenceDeflateBit
		}
	}

	padding := 0
	for (out.OutputLength()+1)%constants.XTEABlockSize != 0 {
		out.AddByte(crypto.RandByte())
		padding++
	}
	out.AddHeaderByte(byte(padding))

	blocks := out.OutputLength() / constants.XTEABlockSize
	if out.IsOverrun() {
		return ErrFrameOverrun
	}
	if blocks <= 0 || blocks > 0xFFFF {
		return ErrFrameTooLarge
	}

	if c.Encrypted {
		if err := crypto.XTEAEncrypt(c.Key, out.OutputBuffer()); err != nil {
			return err
		}
	}

	if c.Mode != ChecksumDisabled {
		out.AddHeaderUint32(checksum)
	}
	out.AddHeaderUint16(uint16(blocks))
	return nil
}

// deflate compresses the payload in place, reporting success only when
// the compressed form is strictly smaller.
func (c *Codec) deflate(out *OutputMessage) bool {
	payload := out.OutputBuffer()
	c.scratch.Reset()
	c.deflater.Reset(&c.scratch)
	if _, err := c.deflater.Write(payload); err != nil {
		return false
	}
	if err := c.deflater.Close(); err != nil {
		return false
	}

	compressed := c.scratch.Bytes()
	if len(compressed) >= len(payload) {
		return false
	}

	copy(payload, compressed)
	out.DiscardPadding(len(payload) - len(compressed))
	return true
}
