package crypto

import (
	"encoding/binary"
	"fmt"
)

// XTEAKey is the 128-bit session key negotiated during the handshake,
// stored as four little-endian words the way the client derives them.
type XTEAKey [4]uint32

// XTEAKeyFromBytes builds a key from 16 little-endian bytes.
func XTEAKeyFromBytes(b []byte) (XTEAKey, error) {
	var key XTEAKey
	if len(b) != 16 {
		return key, fmt.Errorf("xtea key: expected 16 bytes, got %d", len(b))
	}
	for i := range 4 {
		key[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return key, nil
}

// The client runs XTEA in ECB mode over pairs of little-endian uint32
// words, so every block is independent and the byte order differs from
// golang.org/x/crypto/xtea (which treats a block as one big-endian
// uint64). The loops below mirror the client exactly.

const xteaDelta = 0x9E3779B9

// XTEAEncrypt encrypts data in place. The length must be a multiple of 8.
func XTEAEncrypt(key XTEAKey, data []byte) error {
	if len(data)%8 != 0 {
		return fmt.Errorf("xtea encrypt: length %d is not a multiple of 8", len(data))
	}
	for i := 0; i < len(data); i += 8 {
		v0 := binary.LittleEndian.Uint32(data[i:])
		v1 := binary.LittleEndian.Uint32(data[i+4:])
		var sum uint32
		for range 32 {
			v0 += ((v1<<4 ^ v1>>5) + v1) ^ (sum + key[sum&3])
			sum += xteaDelta
			v1 += ((v0<<4 ^ v0>>5) + v0) ^ (sum + key[sum>>11&3])
		}
		binary.LittleEndian.PutUint32(data[i:], v0)
		binary.LittleEndian.PutUint32(data[i+4:], v1)
	}
	return nil
}

// XTEADecrypt decrypts data in place. The length must be a multiple of 8.
func XTEADecrypt(key XTEAKey, data []byte) error {
	if len(data)%8 != 0 {
		return fmt.Errorf("xtea decrypt: length %d is not a multiple of 8", len(data))
	}
	for i := 0; i < len(data); i += 8 {
		v0 := binary.LittleEndian.Uint32(data[i:])
		v1 := binary.LittleEndian.Uint32(data[i+4:])
		sum := uint32(0xC6EF3720)
		for range 32 {
			v1 -= ((v0<<4 ^ v0>>5) + v0) ^ (sum + key[sum>>11&3])
			sum -= xteaDelta
			v0 -= ((v1<<4 ^ v1>>5) + v1) ^ (sum + key[sum&3])
		}
		binary.LittleEndian.PutUint32(data[i:], v0)
		binary.LittleEndian.PutUint32(data[i+4:], v1)
	}
	return nil
}
