package certificate

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"
)

// generateChain builds a self-signed root and a certificate it issues,
// returning both as base64 DER plus the provider key for signing
// messages in tests.
func generateChain(t *testing.T, notBefore, notAfter time.Time) (rootB64, providerB64 string, providerKey *rsa.PrivateKey) {
	t.Helper()

	rootKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating root key: %v", err)
	}
	rootTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Test Root"},
		NotBefore:    notBefore.Add(-24 * time.Hour),
		NotAfter:     notAfter.Add(24 * time.Hour),
		IsCA:         true,
		KeyUsage:     x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		// without this the basic-constraints extension is not encoded and
		// the root does not count as a CA
		BasicConstraintsValid: true,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("creating root certificate: %v", err)
	}

	providerKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating provider key: %v", err)
	}
	providerTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(42),
		Subject:               pkix.Name{CommonName: "Test Provider"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		CRLDistributionPoints: []string{"https://crl.example.com/test.crl"},
	}
	rootCert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		t.Fatalf("parsing root certificate: %v", err)
	}
	providerDER, err := x509.CreateCertificate(rand.Reader, providerTemplate, rootCert, &providerKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("creating provider certificate: %v", err)
	}

	return base64.StdEncoding.EncodeToString(rootDER), base64.StdEncoding.EncodeToString(providerDER), providerKey
}

func TestCertificate_ParseAndVerifyChain(t *testing.T) {
	now := time.Now().UTC()
	rootB64, providerB64, _ := generateChain(t, now.Add(-time.Hour), now.Add(time.Hour))

	root, err := Parse(rootB64)
	if err != nil {
		t.Fatalf("parsing root: %v", err)
	}
	provider, err := Parse(providerB64)
	if err != nil {
		t.Fatalf("parsing provider: %v", err)
	}

	if !provider.VerifyAgainst(root) {
		t.Error("expected provider certificate to verify against root")
	}
	if provider.VerifyAgainst(provider) {
		t.Error("expected provider certificate to NOT verify against itself")
	}

	if len(provider.DistributionPoints()) != 1 {
		t.Errorf("expected 1 distribution point, got %d", len(provider.DistributionPoints()))
	}
	if provider.SerialNumber()[len(provider.SerialNumber())-1] != 42 {
		t.Errorf("expected serial ending in 42, got %v", provider.SerialNumber())
	}
}

func TestCertificate_VerifyMessage(t *testing.T) {
	now := time.Now().UTC()
	_, providerB64, providerKey := generateChain(t, now.Add(-time.Hour), now.Add(time.Hour))
	provider, err := Parse(providerB64)
	if err != nil {
		t.Fatalf("parsing provider: %v", err)
	}

	message := []byte("canonical license bytes")
	digest := sha256.Sum256(message)
	signature, err := rsa.SignPKCS1v15(rand.Reader, providerKey, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("signing message: %v", err)
	}

	if !provider.VerifyMessage(message, signature, x509.SHA256WithRSA) {
		t.Error("expected signature to verify")
	}

	tampered := append([]byte{}, message...)
	tampered[0] ^= 0xFF
	if provider.VerifyMessage(tampered, signature, x509.SHA256WithRSA) {
		t.Error("expected tampered message to fail verification")
	}
}

func TestCertificate_WithinValidity(t *testing.T) {
	now := time.Now().UTC()
	_, providerB64, _ := generateChain(t, now.Add(-time.Hour), now.Add(time.Hour))
	provider, err := Parse(providerB64)
	if err != nil {
		t.Fatalf("parsing provider: %v", err)
	}

	if !provider.WithinValidity(now) {
		t.Error("expected now to be within validity window")
	}
	if provider.WithinValidity(now.Add(2 * time.Hour)) {
		t.Error("expected future time to be outside validity window")
	}
	if provider.WithinValidity(now.Add(-2 * time.Hour)) {
		t.Error("expected past time to be outside validity window")
	}
}
