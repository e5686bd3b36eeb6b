package crl

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/readium/lcp-crypto-core/internal/revocation"
)

type fakeNetProvider struct {
	responses map[string][]byte
	errs      map[string]error
	fetched   []string
}

func (f *fakeNetProvider) Fetch(_ context.Context, url string) ([]byte, error) {
	f.fetched = append(f.fetched, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.responses[url], nil
}

func buildCRL(t *testing.T, revoked []*big.Int, thisUpdate, nextUpdate time.Time) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	issuer := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test-issuer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, issuer, issuer, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create issuer cert: %v", err)
	}
	issuerCert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse issuer cert: %v", err)
	}

	entries := make([]x509.RevocationListEntry, 0, len(revoked))
	for _, serial := range revoked {
		entries = append(entries, x509.RevocationListEntry{
			SerialNumber:   serial,
			RevocationTime: thisUpdate,
		})
	}

	template := &x509.RevocationList{
		Number:                    big.NewInt(1),
		ThisUpdate:                thisUpdate,
		NextUpdate:                nextUpdate,
		RevokedCertificateEntries: entries,
	}

	crlDER, err := x509.CreateRevocationList(rand.Reader, template, issuerCert, key)
	if err != nil {
		t.Fatalf("create crl: %v", err)
	}
	return crlDER
}

func TestUpdater_UpdateMergesRevokedSerials(t *testing.T) {
	now := time.Now()
	serial := big.NewInt(42)
	crlDER := buildCRL(t, []*big.Int{serial}, now, now.Add(2*time.Hour))

	url := "https://crl.example.com/issuer.crl"
	net := &fakeNetProvider{responses: map[string][]byte{url: crlDER}}
	list := revocation.New()
	u := New(net, list, time.Minute, time.Hour)
	u.UpdateDistributionPoints([]string{url})

	if err := u.Update(context.Background()); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !list.ContainsSerial(serial.Bytes()) {
		t.Fatal("expected revoked serial to be merged into the list")
	}
	if got := u.NextRefreshInterval(); got != time.Hour {
		t.Fatalf("expected interval clamped to max (1h), got %v", got)
	}
}

func TestUpdater_SingleURLFailureDoesNotBlockOthers(t *testing.T) {
	now := time.Now()
	okURL := "https://crl.example.com/ok.crl"
	badURL := "https://crl.example.com/bad.crl"
	serial := big.NewInt(7)
	crlDER := buildCRL(t, []*big.Int{serial}, now, now.Add(30*time.Minute))

	net := &fakeNetProvider{
		responses: map[string][]byte{okURL: crlDER},
		errs:      map[string]error{badURL: errors.New("connection refused")},
	}
	list := revocation.New()
	u := New(net, list, time.Minute, time.Hour)
	u.UpdateDistributionPoints([]string{okURL, badURL})

	err := u.Update(context.Background())
	if err == nil {
		t.Fatal("expected Update to surface the fetch failure")
	}
	if !list.ContainsSerial(serial.Bytes()) {
		t.Fatal("expected the reachable CRL to still be merged")
	}
}

func TestUpdater_StaleCRLIsIgnored(t *testing.T) {
	now := time.Now()
	url := "https://crl.example.com/issuer.crl"
	serialOld := big.NewInt(1)
	serialNew := big.NewInt(2)

	list := revocation.New()
	list.ReplaceFromURL(url, [][]byte{serialOld.Bytes()}, now)

	staleCRL := buildCRL(t, []*big.Int{serialNew}, now.Add(-time.Hour), now)
	net := &fakeNetProvider{responses: map[string][]byte{url: staleCRL}}
	u := New(net, list, time.Minute, time.Hour)
	u.UpdateDistributionPoints([]string{url})

	if err := u.Update(context.Background()); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if list.ContainsSerial(serialNew.Bytes()) {
		t.Fatal("expected stale CRL to be ignored")
	}
	if !list.ContainsSerial(serialOld.Bytes()) {
		t.Fatal("expected prior revocation data to be retained")
	}
}

func TestUpdater_CancelStopsFurtherFetches(t *testing.T) {
	url := "https://crl.example.com/issuer.crl"
	net := &fakeNetProvider{responses: map[string][]byte{}}
	list := revocation.New()
	u := New(net, list, time.Minute, time.Hour)
	u.UpdateDistributionPoints([]string{url})
	u.Cancel()

	if err := u.Update(context.Background()); err != nil {
		t.Fatalf("expected cancelled Update to return nil, got %v", err)
	}
	if len(net.fetched) != 0 {
		t.Fatalf("expected no fetches after Cancel, got %d", len(net.fetched))
	}
}

func TestUpdater_ContainsAnyURL(t *testing.T) {
	u := New(&fakeNetProvider{}, revocation.New(), time.Minute, time.Hour)
	if u.ContainsAnyURL() {
		t.Fatal("expected no URLs initially")
	}
	u.UpdateDistributionPoints([]string{"https://crl.example.com/a.crl", "https://crl.example.com/a.crl", ""})
	if !u.ContainsAnyURL() {
		t.Fatal("expected URL to be registered")
	}
}
