// Package cryptoalgo implements the primitive algorithms an encryption
// profile composes: streaming SHA-256 (C6) and AES-256-CBC with PKCS#7
// (C7), in both whole-buffer and block-random-access shapes.
package cryptoalgo

import (
	"crypto/sha256"
	"hash"
)

// HashSize is the digest size of the hash algorithm used throughout this
// module, SHA-256.
const HashSize = sha256.Size

// Hash is a streaming SHA-256 accumulator. It is used both for
// passphrase-based user-key derivation and for publication-file
// fingerprinting.
type Hash struct {
	h hash.Hash
}

// NewHash returns a fresh, empty SHA-256 accumulator.
func NewHash() *Hash {
	return &Hash{h: sha256.New()}
}

// Update feeds more bytes into the running digest.
func (h *Hash) Update(p []byte) {
	h.h.Write(p)
}

// Finalize returns the 32-byte digest of everything written so far.
func (h *Hash) Finalize() [sha256.Size]byte {
	var out [sha256.Size]byte
	copy(out[:], h.h.Sum(nil))
	return out
}

// SumPassphrase is the user-key hash of the "basic" encryption profile:
// SHA-256 over the UTF-8 bytes of a passphrase.
func SumPassphrase(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	out := make([]byte, len(sum))
	copy(out, sum[:])
	return out
}
