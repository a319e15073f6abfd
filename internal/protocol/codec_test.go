package protocol

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"

	"github.com/udisondev/otgate/internal/constants"
	"github.com/udisondev/otgate/internal/crypto"
)

var testKey = crypto.XTEAKey{0xA1B2C3D4, 0x11223344, 0x55667788, 0x99AABBCC}

func encryptedCodec() *Codec {
	c := NewCodec()
	c.EnableEncryption(testKey)
	return c
}

// parseFrame decodes a wire frame by hand: block count, sequence field,
// XTEA region, padding byte. When the deflate bit is set the payload is
// inflated before returning.
func parseFrame(t *testing.T, frame []byte) (seq uint32, payload []byte) {
	t.Helper()

	blocks := int(binary.LittleEndian.Uint16(frame[:2]))
	if blocks == 0 {
		t.Fatal("frame has zero block count")
	}
	body := frame[2:]
	if len(body) != 4+blocks*8 {
		t.Fatalf("frame body is %d bytes, want %d", len(body), 4+blocks*8)
	}

	seq = binary.LittleEndian.Uint32(body[:4])
	region := bytes.Clone(body[4:])
	if err := crypto.XTEADecrypt(testKey, region); err != nil {
		t.Fatalf("decrypting frame: %v", err)
	}

	padding := int(region[0])
	if padding+2 > len(region) {
		t.Fatalf("padding %d out of range for %d-byte region", padding, len(region))
	}
	payload = region[1 : len(region)-padding]

	if seq&constants.SequenceDeflateBit != 0 {
		inflated, err := io.ReadAll(flate.NewReader(bytes.NewReader(payload)))
		if err != nil {
			t.Fatalf("inflating frame: %v", err)
		}
		payload = inflated
	}
	return seq, payload
}

func wrapPayload(t *testing.T, c *Codec, seq uint32, payload []byte) []byte {
	t.Helper()
	out := NewOutputMessage()
	out.AddBytes(payload)
	if err := c.Wrap(out, seq); err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	return bytes.Clone(out.OutputBuffer())
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	server := encryptedCodec()
	client := encryptedCodec()

	payload := []byte{0x1E, 0xAA, 0xBB, 0xCC}
	frame := wrapPayload(t, server, 0, payload)

	var msg NetworkMessage
	if err := ReadFrame(bytes.NewReader(frame), &msg); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if _, err := client.Unwrap(&msg, 0); err != nil {
		t.Fatalf("Unwrap failed: %v", err)
	}
	if !bytes.Equal(msg.RemainingBuffer(), payload) {
		t.Errorf("payload = % x, want % x", msg.RemainingBuffer(), payload)
	}
}

func TestUnwrapSequenceSkew(t *testing.T) {
	server := encryptedCodec()
	client := encryptedCodec()

	frame := wrapPayload(t, server, 2, []byte{0x01})

	var msg NetworkMessage
	if err := ReadFrame(bytes.NewReader(frame), &msg); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if _, err := client.Unwrap(&msg, 0); !errors.Is(err, ErrSequenceSkew) {
		t.Errorf("Unwrap error = %v, want ErrSequenceSkew", err)
	}
}

func TestUnwrapToleratesReservedBit(t *testing.T) {
	server := encryptedCodec()
	client := encryptedCodec()

	frame := wrapPayload(t, server, 5, []byte{0x01})
	// Set the undocumented second-highest bit the way a future client
	// might; the frame must still be accepted and the bit reported.
	field := binary.LittleEndian.Uint32(frame[2:6])
	binary.LittleEndian.PutUint32(frame[2:6], field|constants.SequenceReservedBit)

	var msg NetworkMessage
	if err := ReadFrame(bytes.NewReader(frame), &msg); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	reserved, err := client.Unwrap(&msg, 5)
	if err != nil {
		t.Fatalf("Unwrap failed: %v", err)
	}
	if !reserved {
		t.Error("reserved bit not reported")
	}
}

func TestReadFrameRejectsBadBlockCounts(t *testing.T) {
	var msg NetworkMessage

	zero := []byte{0x00, 0x00}
	if err := ReadFrame(bytes.NewReader(zero), &msg); !errors.Is(err, ErrFrameBounds) {
		t.Errorf("zero block count: error = %v, want ErrFrameBounds", err)
	}

	huge := []byte{0xFF, 0xFF}
	if err := ReadFrame(bytes.NewReader(huge), &msg); !errors.Is(err, ErrFrameBounds) {
		t.Errorf("oversized block count: error = %v, want ErrFrameBounds", err)
	}
}

func TestWrapDeflateBoundary(t *testing.T) {
	t.Run("127 bytes stays uncompressed", func(t *testing.T) {
		payload := make([]byte, 127)
		frame := wrapPayload(t, encryptedCodec(), 0, payload)
		seq, got := parseFrame(t, frame)
		if seq&constants.SequenceDeflateBit != 0 {
			t.Error("deflate bit set below the compression threshold")
		}
		if !bytes.Equal(got, payload) {
			t.Error("payload mismatch")
		}
	})

	t.Run("128 zero bytes compresses", func(t *testing.T) {
		payload := make([]byte, 128)
		frame := wrapPayload(t, encryptedCodec(), 0, payload)
		seq, got := parseFrame(t, frame)
		if seq&constants.SequenceDeflateBit == 0 {
			t.Error("deflate bit clear for highly compressible payload")
		}
		if !bytes.Equal(got, payload) {
			t.Error("inflated payload mismatch")
		}
	})

	t.Run("128 random bytes round-trips either way", func(t *testing.T) {
		payload := make([]byte, 128)
		rand.Read(payload)
		frame := wrapPayload(t, encryptedCodec(), 0, payload)
		_, got := parseFrame(t, frame)
		if !bytes.Equal(got, payload) {
			t.Error("payload mismatch")
		}
	})

	t.Run("compression requires sequence mode", func(t *testing.T) {
		c := encryptedCodec()
		c.Mode = ChecksumAdler
		payload := make([]byte, 256)
		frame := wrapPayload(t, c, 0, payload)

		blocks := int(binary.LittleEndian.Uint16(frame[:2]))
		region := bytes.Clone(frame[6:])
		if err := crypto.XTEADecrypt(testKey, region); err != nil {
			t.Fatalf("decrypting frame: %v", err)
		}
		padding := int(region[0])
		if got := region[1 : blocks*8-padding]; !bytes.Equal(got, payload) {
			t.Error("adler-mode payload was not sent verbatim")
		}
	})
}

func TestWrapSequenceIncrementsPerFrame(t *testing.T) {
	server := encryptedCodec()
	client := encryptedCodec()

	for seq := uint32(0); seq < 5; seq++ {
		frame := wrapPayload(t, server, seq, []byte{byte(seq)})
		var msg NetworkMessage
		if err := ReadFrame(bytes.NewReader(frame), &msg); err != nil {
			t.Fatalf("ReadFrame failed at %d: %v", seq, err)
		}
		if _, err := client.Unwrap(&msg, seq); err != nil {
			t.Fatalf("Unwrap failed at %d: %v", seq, err)
		}
	}
}

func TestAdlerModeVerifiesChecksum(t *testing.T) {
	server := NewCodec()
	server.EnableEncryption(testKey)
	server.Mode = ChecksumAdler

	frame := wrapPayload(t, server, 0, []byte{0x01, 0x02, 0x03})

	// Corrupt the checksum field; the payload no longer matches.
	frame[2] ^= 0xFF

	client := NewCodec()
	client.EnableEncryption(testKey)
	client.Mode = ChecksumAdler

	var msg NetworkMessage
	if err := ReadFrame(bytes.NewReader(frame), &msg); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if _, err := client.Unwrap(&msg, 0); !errors.Is(err, ErrBadChecksum) {
		t.Errorf("Unwrap error = %v, want ErrBadChecksum", err)
	}
}

func TestUnwrapRejectsBadPadding(t *testing.T) {
	// A frame whose decrypted padding count exceeds the region length
	// must be rejected, not wrap the cursor.
	region := make([]byte, 8)
	region[0] = 0xF0
	if err := crypto.XTEAEncrypt(testKey, region); err != nil {
		t.Fatalf("XTEAEncrypt failed: %v", err)
	}

	frame := make([]byte, 2+4+8)
	binary.LittleEndian.PutUint16(frame[:2], 1)
	binary.LittleEndian.PutUint32(frame[2:6], 0)
	copy(frame[6:], region)

	var msg NetworkMessage
	if err := ReadFrame(bytes.NewReader(frame), &msg); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if _, err := encryptedCodec().Unwrap(&msg, 0); !errors.Is(err, ErrBadPadding) {
		t.Errorf("Unwrap error = %v, want ErrBadPadding", err)
	}
}
