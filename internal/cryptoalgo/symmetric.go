package cryptoalgo

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"fmt"

	"github.com/readium/lcp-crypto-core/internal/domain"
)

// KeySize is the AES-256 key size in bytes.
const KeySize = 32

// BlockSize is the AES block size, also used as the IV size for CBC.
const BlockSize = aes.BlockSize

// Symmetric is an AES-256-CBC/PKCS#7 cipher keyed once at construction,
// used both for whole-buffer license-scoped ciphertexts (content key,
// UserKeyCheck) and, via DecryptBlocks, for the block-random-access
// decryption that drives internal/stream.
type Symmetric struct {
	block cipher.Block
}

// NewSymmetric keys a Symmetric cipher. key must be exactly KeySize bytes.
func NewSymmetric(key []byte) (*Symmetric, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", domain.ErrDecryptionCommonError, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, err)
	}
	return &Symmetric{block: block}, nil
}

// DecryptBuffer decrypts an IV‖ciphertext buffer (the wire format for
// license-scoped secrets): the first BlockSize bytes are the IV, the
// remainder is PKCS#7-padded CBC ciphertext.
func (s *Symmetric) DecryptBuffer(ivCiphertext []byte) ([]byte, error) {
	if len(ivCiphertext) < BlockSize+BlockSize {
		return nil, fmt.Errorf("%w: ciphertext too short", domain.ErrDecryptionCommonError)
	}
	iv := ivCiphertext[:BlockSize]
	ct := ivCiphertext[BlockSize:]
	if len(ct)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext not block aligned", domain.ErrDecryptionCommonError)
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(s.block, iv).CryptBlocks(pt, ct)
	return unpadPKCS7(pt)
}

// EncryptBuffer pads plaintext with PKCS#7, CBC-encrypts it under iv, and
// prepends iv, producing the same IV‖ciphertext wire format DecryptBuffer
// consumes. Used by tests to build fixtures and by tooling that issues
// license-scoped secrets.
func (s *Symmetric) EncryptBuffer(plaintext []byte, iv []byte) ([]byte, error) {
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", domain.ErrDecryptionCommonError, BlockSize)
	}
	padded := padPKCS7(plaintext, BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(s.block, iv).CryptBlocks(ct, padded)
	out := make([]byte, 0, BlockSize+len(ct))
	out = append(out, iv...)
	out = append(out, ct...)
	return out, nil
}

// DecryptBlocks decrypts a whole number of ciphertext blocks under iv
// with no padding removal, for callers (internal/stream) that manage the
// CBC chaining and padding themselves across a random-access window.
func (s *Symmetric) DecryptBlocks(ciphertext []byte, iv []byte) ([]byte, error) {
	if len(ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext not block aligned", domain.ErrDecryptionCommonError)
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", domain.ErrDecryptionCommonError, BlockSize)
	}
	pt := make([]byte, len(ciphertext))
	if len(ciphertext) > 0 {
		cipher.NewCBCDecrypter(s.block, iv).CryptBlocks(pt, ciphertext)
	}
	return pt, nil
}

// UnpadBlock removes PKCS#7 padding from a single decrypted block,
// without requiring a key — used by internal/stream to determine a
// publication's true plaintext size from its final ciphertext block.
func UnpadBlock(block []byte) ([]byte, error) {
	if len(block) != BlockSize {
		return nil, fmt.Errorf("%w: block must be %d bytes", domain.ErrDecryptionCommonError, BlockSize)
	}
	return unpadPKCS7(block)
}

func padPKCS7(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// unpadPKCS7 removes PKCS#7 padding from a decrypted, block-aligned
// buffer. The padding length check runs over a fixed-size window and
// combines its two conditions (range validity, content match) without
// short-circuiting on the secret-dependent one, so a wrong key and a
// corrupted-but-right-key ciphertext take comparably shaped code paths.
func unpadPKCS7(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 || n%BlockSize != 0 {
		return nil, fmt.Errorf("%w: invalid padding", domain.ErrDecryptionCommonError)
	}
	padLen := int(data[n-1])
	inRange := 1
	clamped := padLen
	if clamped < 1 || clamped > BlockSize {
		inRange = 0
		clamped = BlockSize
	}
	got := data[n-clamped:]
	want := bytes.Repeat([]byte{byte(clamped)}, clamped)
	matches := subtle.ConstantTimeCompare(got, want)
	if inRange&matches != 1 {
		return nil, fmt.Errorf("%w: invalid padding", domain.ErrDecryptionCommonError)
	}
	return data[:n-padLen], nil
}
