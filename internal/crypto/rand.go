package crypto

import "crypto/rand"

// Rand fills buf with bytes from the OS entropy source.
func Rand(buf []byte) {
	// crypto/rand.Read never fails on supported platforms since Go 1.24.
	rand.Read(buf)
}

// RandByte returns a single byte from the OS entropy source.
func RandByte() byte {
	var b [1]byte
	rand.Read(b[:])
	return b[0]
}
