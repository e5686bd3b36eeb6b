// Package domain defines the contracts the crypto core consumes from its
// collaborators (a parsed license, a network transport, a key store, a
// readable publication container) and the sentinel errors the core's
// operations map onto at their boundary.
package domain

import (
	"context"
	"io"
)

// CryptoDescriptor is the crypto-relevant slice of a license document, as
// supplied by the external license parser. The core never parses a
// license itself — it only reads these fields.
type CryptoDescriptor struct {
	// EncryptionProfile is the URI identifying the algorithm suite this
	// license was encrypted under.
	EncryptionProfile string
	// SignatureCertificate is the base64-encoded DER of the content
	// provider's certificate.
	SignatureCertificate string
	// Signature is the base64-encoded raw signature over the license's
	// canonical content.
	Signature string
	// UserKeyCheck is base64(IV‖ciphertext) of the license id under the
	// user key.
	UserKeyCheck string
	// ContentKey is base64(IV‖ciphertext) of the content key under the
	// user key.
	ContentKey string
}

// License is the external collaborator that supplies a signed license
// document's canonical bytes and crypto descriptor. Parsing the on-disk
// or on-wire license format is out of scope for this module.
type License interface {
	// ID is the license identifier; UserKeyCheck decrypts to this value
	// under the true user key.
	ID() string
	// Issued is the license's issuance timestamp, RFC 3339/ISO-8601.
	Issued() string
	// Updated is the license's last-update timestamp, RFC 3339/ISO-8601,
	// or the empty string if the license has never been updated.
	Updated() string
	// CanonicalContent is the exact byte sequence that was signed.
	CanonicalContent() []byte
	// Crypto returns the license's crypto descriptor.
	Crypto() CryptoDescriptor
}

// SimpleLicense is a plain, struct-literal implementation of License for
// callers that already hold canonical bytes and descriptor fields —
// tests and the CLI's own JSON envelope. It performs no parsing.
type SimpleLicense struct {
	IDValue      string
	IssuedValue  string
	UpdatedValue string
	Canonical    []byte
	CryptoValue  CryptoDescriptor
}

func (l *SimpleLicense) ID() string               { return l.IDValue }
func (l *SimpleLicense) Issued() string           { return l.IssuedValue }
func (l *SimpleLicense) Updated() string          { return l.UpdatedValue }
func (l *SimpleLicense) CanonicalContent() []byte { return l.Canonical }
func (l *SimpleLicense) Crypto() CryptoDescriptor { return l.CryptoValue }

// NetProvider fetches bytes from a URL, cancellable via ctx. Implemented
// by internal/infra.HTTPNetProvider in this module; in tests it is
// usually a closure.
type NetProvider interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// KeyProvider holds the two key material byte sequences derived from a
// license open. The core never persists these; it is the caller's
// responsibility to store and zero them.
type KeyProvider interface {
	UserKey() []byte
	ContentKey() []byte
}

// MemoryKeyProvider is a caller-owned, process-memory-only KeyProvider.
// It is not a secret store — persisting key material to disk is out of
// scope for this module.
type MemoryKeyProvider struct {
	userKey    []byte
	contentKey []byte
}

func NewMemoryKeyProvider() *MemoryKeyProvider {
	return &MemoryKeyProvider{}
}

func (p *MemoryKeyProvider) UserKey() []byte    { return p.userKey }
func (p *MemoryKeyProvider) ContentKey() []byte { return p.contentKey }

func (p *MemoryKeyProvider) SetUserKey(key []byte) {
	p.userKey = key
}

func (p *MemoryKeyProvider) SetContentKey(key []byte) {
	p.contentKey = key
}

// Zero zeroes the held key material and drops the references. Callers
// should defer this on any KeyProvider they own.
func (p *MemoryKeyProvider) Zero() {
	Zero(p.userKey)
	Zero(p.contentKey)
	p.userKey = nil
	p.contentKey = nil
}

// Zero overwrites b in place with zero bytes. Used to scrub key material
// before it is dropped.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ReadableStream is a random-access byte source — an encrypted
// publication container on disk, typically. Size reports the stream's
// total length in bytes.
type ReadableStream interface {
	io.ReaderAt
	Size() (int64, error)
}
