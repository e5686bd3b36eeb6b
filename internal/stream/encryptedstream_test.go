package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/readium/lcp-crypto-core/internal/cryptoalgo"
)

// memStream adapts an in-memory buffer to domain.ReadableStream.
type memStream struct {
	data []byte
}

func (m *memStream) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memStream) Size() (int64, error) {
	return int64(len(m.data)), nil
}

func buildEncrypted(t *testing.T, sym *cryptoalgo.Symmetric, plaintext []byte, iv []byte) *memStream {
	t.Helper()
	encrypted, err := sym.EncryptBuffer(plaintext, iv)
	if err != nil {
		t.Fatalf("EncryptBuffer failed: %v", err)
	}
	return &memStream{data: encrypted}
}

func newSym(t *testing.T) *cryptoalgo.Symmetric {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, cryptoalgo.KeySize)
	sym, err := cryptoalgo.NewSymmetric(key)
	if err != nil {
		t.Fatalf("NewSymmetric failed: %v", err)
	}
	return sym
}

func TestEncryptedStream_SizeMatchesPlaintext(t *testing.T) {
	sym := newSym(t)
	iv := bytes.Repeat([]byte{0x01}, cryptoalgo.BlockSize)
	plaintext := []byte("the quick brown fox jumps over the lazy dog, twice over")
	raw := buildEncrypted(t, sym, plaintext, iv)

	es := New(raw, sym)
	size, err := es.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != int64(len(plaintext)) {
		t.Fatalf("expected size %d, got %d", len(plaintext), size)
	}
}

func TestEncryptedStream_ReadAtFullRange(t *testing.T) {
	sym := newSym(t)
	iv := bytes.Repeat([]byte{0x02}, cryptoalgo.BlockSize)
	plaintext := bytes.Repeat([]byte("0123456789ABCDEF"), 5) // multiple of block size
	raw := buildEncrypted(t, sym, plaintext, iv)

	es := New(raw, sym)
	got := make([]byte, len(plaintext))
	n, err := es.ReadAt(got, 0)
	if err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if n != len(plaintext) || !bytes.Equal(got, plaintext) {
		t.Fatalf("ReadAt mismatch: got %q want %q", got[:n], plaintext)
	}
}

func TestEncryptedStream_ReadAtMidRange(t *testing.T) {
	sym := newSym(t)
	iv := bytes.Repeat([]byte{0x03}, cryptoalgo.BlockSize)
	plaintext := []byte("block-zero------block-one-------block-two------tail")
	raw := buildEncrypted(t, sym, plaintext, iv)

	es := New(raw, sym)
	want := plaintext[20:40]
	got := make([]byte, len(want))
	n, err := es.ReadAt(got, 20)
	if err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if n != len(want) || !bytes.Equal(got, want) {
		t.Fatalf("ReadAt mismatch: got %q want %q", got[:n], want)
	}
}

func TestEncryptedStream_ReadAtPastEndReturnsEOF(t *testing.T) {
	sym := newSym(t)
	iv := bytes.Repeat([]byte{0x04}, cryptoalgo.BlockSize)
	plaintext := []byte("short plaintext")
	raw := buildEncrypted(t, sym, plaintext, iv)

	es := New(raw, sym)
	buf := make([]byte, 10)
	n, err := es.ReadAt(buf, int64(len(plaintext)-3))
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 trailing bytes, got %d", n)
	}
	if string(buf[:n]) != string(plaintext[len(plaintext)-3:]) {
		t.Fatalf("tail mismatch: got %q", buf[:n])
	}
}
