package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestXTEARoundTrip(t *testing.T) {
	key := XTEAKey{0x11111111, 0x22222222, 0x33333333, 0x44444444}

	for _, size := range []int{8, 16, 64, 248, 8192} {
		data := make([]byte, size)
		rand.Read(data)
		original := bytes.Clone(data)

		if err := XTEAEncrypt(key, data); err != nil {
			t.Fatalf("XTEAEncrypt(%d bytes) failed: %v", size, err)
		}
		if bytes.Equal(data, original) {
			t.Fatalf("XTEAEncrypt(%d bytes) left data unchanged", size)
		}
		if err := XTEADecrypt(key, data); err != nil {
			t.Fatalf("XTEADecrypt(%d bytes) failed: %v", size, err)
		}
		if !bytes.Equal(data, original) {
			t.Fatalf("XTEA round trip mismatch at %d bytes", size)
		}
	}
}

func TestXTEABlocksIndependent(t *testing.T) {
	// ECB mode: identical plaintext blocks produce identical ciphertext
	// blocks, and each block decrypts on its own.
	key := XTEAKey{1, 2, 3, 4}
	data := make([]byte, 16)
	for i := range data {
		data[i] = 0xAB
	}

	if err := XTEAEncrypt(key, data); err != nil {
		t.Fatalf("XTEAEncrypt failed: %v", err)
	}
	if !bytes.Equal(data[:8], data[8:]) {
		t.Error("identical blocks encrypted differently; not ECB")
	}

	first := bytes.Clone(data[:8])
	if err := XTEADecrypt(key, first); err != nil {
		t.Fatalf("XTEADecrypt failed: %v", err)
	}
	for i, b := range first {
		if b != 0xAB {
			t.Fatalf("independent block decrypt: byte %d = %#x, want 0xAB", i, b)
		}
	}
}

func TestXTEAWrongKeyDoesNotDecrypt(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	original := bytes.Clone(data)

	if err := XTEAEncrypt(XTEAKey{1, 2, 3, 4}, data); err != nil {
		t.Fatalf("XTEAEncrypt failed: %v", err)
	}
	if err := XTEADecrypt(XTEAKey{4, 3, 2, 1}, data); err != nil {
		t.Fatalf("XTEADecrypt failed: %v", err)
	}
	if bytes.Equal(data, original) {
		t.Error("wrong key produced the original plaintext")
	}
}

func TestXTEARejectsUnalignedLength(t *testing.T) {
	key := XTEAKey{}
	for _, size := range []int{1, 7, 9, 15} {
		if err := XTEAEncrypt(key, make([]byte, size)); err == nil {
			t.Errorf("XTEAEncrypt accepted %d bytes", size)
		}
		if err := XTEADecrypt(key, make([]byte, size)); err == nil {
			t.Errorf("XTEADecrypt accepted %d bytes", size)
		}
	}
}

func TestXTEAKeyFromBytes(t *testing.T) {
	raw := []byte{
		0x01, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00,
	}
	key, err := XTEAKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("XTEAKeyFromBytes failed: %v", err)
	}
	want := XTEAKey{1, 2, 3, 4}
	if key != want {
		t.Errorf("XTEAKeyFromBytes = %v, want %v", key, want)
	}

	if _, err := XTEAKeyFromBytes(raw[:15]); err == nil {
		t.Error("XTEAKeyFromBytes accepted 15 bytes")
	}
}
