// Package certificate implements the Certificate component (C2): DER
// parsing, chain verification against a supplied issuer (no path
// building — callers provide the parent directly), detached-signature
// verification, and accessors for the fields the crypto provider and
// CRL updater need.
package certificate

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Certificate is an immutable, parsed X.509 v3 certificate. The raw DER
// is retained so signature recomputation against it is always exact.
type Certificate struct {
	raw  []byte
	cert *x509.Certificate
}

// Parse decodes a certificate from either base64-wrapped DER (the wire
// format license documents and root certificates use) or raw DER bytes.
func Parse(input string) (*Certificate, error) {
	der, err := decodeDEROrBase64(input)
	if err != nil {
		return nil, fmt.Errorf("decoding certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate DER: %w", err)
	}
	return &Certificate{raw: der, cert: cert}, nil
}

func decodeDEROrBase64(input string) ([]byte, error) {
	trimmed := strings.TrimSpace(input)
	if der, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return der, nil
	}
	// Not valid base64 — assume the caller already handed us raw DER.
	return []byte(input), nil
}

// Raw returns the certificate's original DER bytes.
func (c *Certificate) Raw() []byte {
	return c.raw
}

// VerifyAgainst reports whether this certificate's signature verifies
// under issuer's public key and issuer is allowed to sign certificates
// (its basic constraints mark it as a CA and its key usage, if set,
// includes certificate signing). No path building is performed; the
// caller supplies the parent directly.
func (c *Certificate) VerifyAgainst(issuer *Certificate) bool {
	return c.cert.CheckSignatureFrom(issuer.cert) == nil
}

// VerifyMessage reports whether signature is a valid signature over
// message under this certificate's public key, using algo.
func (c *Certificate) VerifyMessage(message, signature []byte, algo x509.SignatureAlgorithm) bool {
	return c.cert.CheckSignature(algo, message, signature) == nil
}

// DistributionPoints returns the certificate's CRL distribution-point
// URLs. May be empty.
func (c *Certificate) DistributionPoints() []string {
	return c.cert.CRLDistributionPoints
}

// SerialNumber returns the certificate's serial number as a big-endian
// byte sequence.
func (c *Certificate) SerialNumber() []byte {
	return c.cert.SerialNumber.Bytes()
}

// NotBefore returns the start of the certificate's validity window, UTC.
func (c *Certificate) NotBefore() time.Time {
	return c.cert.NotBefore.UTC()
}

// NotAfter returns the end of the certificate's validity window, UTC.
func (c *Certificate) NotAfter() time.Time {
	return c.cert.NotAfter.UTC()
}

// WithinValidity reports whether at falls within [NotBefore, NotAfter],
// inclusive on both ends.
func (c *Certificate) WithinValidity(at time.Time) bool {
	return !at.Before(c.NotBefore()) && !at.After(c.NotAfter())
}
