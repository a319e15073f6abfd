package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"math/big"
	"testing"

	"github.com/udisondev/otgate/internal/constants"
)

// rawEncrypt performs the client-side operation: m^e mod n, no padding.
func rawEncrypt(pub *rsa.PublicKey, plaintext []byte) []byte {
	m := new(big.Int).SetBytes(plaintext)
	c := new(big.Int).Exp(m, big.NewInt(int64(pub.E)), pub.N)
	out := make([]byte, constants.RSABlockSize)
	raw := c.Bytes()
	copy(out[len(out)-len(raw):], raw)
	return out
}

func generateTestKey(t *testing.T) *RSAKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, constants.RSAKeyBits)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}
	key, err := NewRSAKey(priv)
	if err != nil {
		t.Fatalf("NewRSAKey failed: %v", err)
	}
	return key
}

func TestRSADecryptRoundTrip(t *testing.T) {
	key := generateTestKey(t)

	plaintext := make([]byte, constants.RSABlockSize)
	plaintext[0] = 0x00 // structural marker the handshake checks
	rand.Read(plaintext[1:])

	block := rawEncrypt(&key.key.PublicKey, plaintext)
	if err := key.Decrypt(block); err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(block, plaintext) {
		t.Error("decrypted block differs from plaintext")
	}
	if block[0] != 0x00 {
		t.Errorf("leading byte = %#x, want 0x00", block[0])
	}
}

func TestRSADecryptWrongLength(t *testing.T) {
	key := generateTestKey(t)
	if err := key.Decrypt(make([]byte, 64)); err == nil {
		t.Error("Decrypt accepted a 64-byte block")
	}
}

func TestRSADecryptConcurrent(t *testing.T) {
	// The key is shared by every handshake; decrypts must serialize
	// without corrupting each other.
	key := generateTestKey(t)

	plaintext := make([]byte, constants.RSABlockSize)
	rand.Read(plaintext[1:])
	encrypted := rawEncrypt(&key.key.PublicKey, plaintext)

	done := make(chan error, 8)
	for range 8 {
		go func() {
			block := bytes.Clone(encrypted)
			if err := key.Decrypt(block); err != nil {
				done <- err
				return
			}
			if !bytes.Equal(block, plaintext) {
				done <- errors.New("plaintext mismatch")
				return
			}
			done <- nil
		}()
	}
	for range 8 {
		if err := <-done; err != nil {
			t.Fatalf("concurrent decrypt failed: %v", err)
		}
	}
}

func TestNewRSAKeyRejectsWrongSize(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}
	if _, err := NewRSAKey(priv); err == nil {
		t.Error("NewRSAKey accepted a 2048-bit key")
	}
}
