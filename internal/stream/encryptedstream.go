// Package stream implements the Encrypted Stream component (C8): a
// random-access view over an AES-256-CBC encrypted publication resource,
// decrypting only the blocks a read actually touches rather than the
// whole resource.
package stream

import (
	"fmt"
	"io"
	"sync"

	"github.com/readium/lcp-crypto-core/internal/cryptoalgo"
	"github.com/readium/lcp-crypto-core/internal/domain"
)

// EncryptedStream wraps a raw ciphertext container — IV‖CBC-ciphertext,
// PKCS#7-padded at the end — and exposes it as plaintext via io.ReaderAt.
// CBC decryption of block i only needs ciphertext block i−1 as the IV,
// so a read seeks straight to the blocks it needs instead of decrypting
// from the start of the resource.
type EncryptedStream struct {
	raw domain.ReadableStream
	sym *cryptoalgo.Symmetric

	mu   sync.Mutex
	size int64 // -1 until computed
}

// New wraps raw, keyed by sym, as a decrypting random-access stream.
func New(raw domain.ReadableStream, sym *cryptoalgo.Symmetric) *EncryptedStream {
	return &EncryptedStream{raw: raw, sym: sym, size: -1}
}

// Size returns the plaintext length, computed once by decrypting the
// final ciphertext block to learn its PKCS#7 padding length, then
// cached.
func (s *EncryptedStream) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size >= 0 {
		return s.size, nil
	}

	rawSize, err := s.raw.Size()
	if err != nil {
		return 0, err
	}
	if rawSize < 2*cryptoalgo.BlockSize {
		return 0, fmt.Errorf("%w: encrypted stream shorter than one block", domain.ErrDecryptionCommonError)
	}
	cipherLen := rawSize - cryptoalgo.BlockSize
	if cipherLen%cryptoalgo.BlockSize != 0 {
		return 0, fmt.Errorf("%w: encrypted stream not block aligned", domain.ErrDecryptionCommonError)
	}

	lastBlockIndex := cipherLen/cryptoalgo.BlockSize - 1
	iv, lastCipherBlock, err := s.readBlockWithIV(lastBlockIndex, rawSize)
	if err != nil {
		return 0, err
	}
	plain, err := s.sym.DecryptBlocks(lastCipherBlock, iv)
	if err != nil {
		return 0, err
	}
	unpadded, err := cryptoalgo.UnpadBlock(plain)
	if err != nil {
		return 0, err
	}
	padLen := cryptoalgo.BlockSize - len(unpadded)

	s.size = cipherLen - int64(padLen)
	return s.size, nil
}

// readBlockWithIV returns the IV needed to decrypt the single ciphertext
// block at blockIndex (the IV itself, or the preceding ciphertext block)
// together with that block's ciphertext.
func (s *EncryptedStream) readBlockWithIV(blockIndex int64, rawSize int64) (iv, block []byte, err error) {
	ivOffset := blockIndex * cryptoalgo.BlockSize
	buf := make([]byte, 2*cryptoalgo.BlockSize)
	if err := s.readFullAt(buf, ivOffset); err != nil {
		return nil, nil, err
	}
	return buf[:cryptoalgo.BlockSize], buf[cryptoalgo.BlockSize:], nil
}

func (s *EncryptedStream) readFullAt(buf []byte, off int64) error {
	n, err := s.raw.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, err)
}

// ReadAt implements io.ReaderAt over the decrypted plaintext. Only the
// ciphertext blocks overlapping [off, off+len(p)) are fetched and
// decrypted.
func (s *EncryptedStream) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size, err := s.Size()
	if err != nil {
		return 0, err
	}
	if off < 0 || off >= size {
		return 0, io.EOF
	}

	end := off + int64(len(p))
	truncated := false
	if end > size {
		end = size
		truncated = true
	}

	startBlock := off / cryptoalgo.BlockSize
	endBlock := (end - 1) / cryptoalgo.BlockSize

	var iv []byte
	if startBlock == 0 {
		iv = make([]byte, cryptoalgo.BlockSize)
		if err := s.readFullAt(iv, 0); err != nil {
			return 0, err
		}
	} else {
		iv = make([]byte, cryptoalgo.BlockSize)
		if err := s.readFullAt(iv, cryptoalgo.BlockSize+(startBlock-1)*cryptoalgo.BlockSize); err != nil {
			return 0, err
		}
	}

	blockCount := endBlock - startBlock + 1
	ciphertext := make([]byte, blockCount*cryptoalgo.BlockSize)
	if err := s.readFullAt(ciphertext, cryptoalgo.BlockSize+startBlock*cryptoalgo.BlockSize); err != nil {
		return 0, err
	}

	plaintext, err := s.sym.DecryptBlocks(ciphertext, iv)
	if err != nil {
		return 0, err
	}

	relStart := off % cryptoalgo.BlockSize
	n := end - off
	copy(p[:n], plaintext[relStart:relStart+n])

	if truncated || n < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}
