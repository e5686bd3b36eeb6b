// Package profile implements the encryption profile registry (C1): a
// process-wide, immutable mapping from a profile URI to the concrete
// algorithm suite a license was encrypted under.
package profile

import (
	"crypto/x509"
	"fmt"

	"github.com/readium/lcp-crypto-core/internal/cryptoalgo"
	"github.com/readium/lcp-crypto-core/internal/domain"
)

// BasicProfileURI identifies the "basic" (v1.0) encryption profile: a
// SHA-256 user-key hash and AES-256-CBC/PKCS#7 for both the content key
// and the publication payload.
const BasicProfileURI = "http://readium.org/lcp/basic-profile"

// Suite is an immutable, named tuple of cryptographic primitives: how a
// passphrase becomes a user key, and how to construct the ciphers keyed
// by the user key and content key respectively.
type Suite struct {
	Name string
	URI  string

	// UserKeyHash derives the user key from the UTF-8 passphrase bytes.
	UserKeyHash func(passphrase string) []byte

	// NewContentKeyCipher keys the content-key cipher (used to unwrap
	// UserKeyCheck and the content key itself) with the user key.
	NewContentKeyCipher func(userKey []byte) (*cryptoalgo.Symmetric, error)

	// NewPublicationCipher keys the publication cipher with the content
	// key.
	NewPublicationCipher func(contentKey []byte) (*cryptoalgo.Symmetric, error)

	// SignatureAlgorithm is the algorithm used to verify a license's
	// detached signature and a certificate's signature over its issuer.
	SignatureAlgorithm x509.SignatureAlgorithm
}

var registry = map[string]Suite{
	BasicProfileURI: {
		Name:                 "basic",
		URI:                  BasicProfileURI,
		UserKeyHash:          cryptoalgo.SumPassphrase,
		NewContentKeyCipher:  cryptoalgo.NewSymmetric,
		NewPublicationCipher: cryptoalgo.NewSymmetric,
		SignatureAlgorithm:   x509.SHA256WithRSA,
	},
}

// GetProfile looks up a profile by URI. Unknown URIs fail with
// domain.ErrEncryptionProfileNotFound.
func GetProfile(uri string) (Suite, error) {
	suite, ok := registry[uri]
	if !ok {
		return Suite{}, fmt.Errorf("%w: %s", domain.ErrEncryptionProfileNotFound, uri)
	}
	return suite, nil
}
