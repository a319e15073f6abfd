package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/udisondev/otgate/internal/constants"
)

// RSAKey holds the server's RSA-1024 private key. The client encrypts its
// session key block against the matching public modulus with no padding,
// so decryption is a raw modular exponentiation. The key object is guarded
// by a mutex; it is shared by every handshake on the process.
type RSAKey struct {
	mu  sync.Mutex
	key *rsa.PrivateKey
}

// LoadPrivateKey reads a PEM private key (PKCS#1 or PKCS#8) and validates
// that it carries a 1024-bit modulus.
func LoadPrivateKey(path string) (*RSAKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSA key %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("parsing RSA key %s: no PEM block found", path)
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		parsed, err8 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err8 != nil {
			return nil, fmt.Errorf("parsing RSA key %s: %w", path, err)
		}
		var ok bool
		key, ok = parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("parsing RSA key %s: not an RSA key", path)
		}
	}

	return NewRSAKey(key)
}

// NewRSAKey wraps an already-parsed private key, validating its size.
func NewRSAKey(key *rsa.PrivateKey) (*RSAKey, error) {
	if size := key.Size(); size != constants.RSABlockSize {
		return nil, fmt.Errorf("rsa key: expected %d-byte modulus, got %d",
			constants.RSABlockSize, size)
	}
	return &RSAKey{key: key}, nil
}

// Decrypt performs the raw RSA operation ciphertext^d mod n in place on a
// 128-byte block. The result is left-padded with zeros to the block size;
// the caller checks the leading 0x00 byte for structural validity.
func (k *RSAKey) Decrypt(buf []byte) error {
	if len(buf) != constants.RSABlockSize {
		return fmt.Errorf("rsa decrypt: expected %d bytes, got %d",
			constants.RSABlockSize, len(buf))
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	c := new(big.Int).SetBytes(buf)
	if c.Cmp(k.key.N) >= 0 {
		return fmt.Errorf("rsa decrypt: ciphertext out of range")
	}
	m := new(big.Int).Exp(c, k.key.D, k.key.N)

	out := m.Bytes()
	clear(buf[:constants.RSABlockSize-len(out)])
	copy(buf[constants.RSABlockSize-len(out):], out)
	return nil
}
