// Package usecase implements the Crypto Provider component (C9): the
// orchestrator that sequences license verification, revocation
// processing, key derivation and publication decryption across C1–C8.
package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/readium/lcp-crypto-core/internal/certificate"
	"github.com/readium/lcp-crypto-core/internal/crl"
	"github.com/readium/lcp-crypto-core/internal/cryptoalgo"
	"github.com/readium/lcp-crypto-core/internal/domain"
	"github.com/readium/lcp-crypto-core/internal/profile"
	"github.com/readium/lcp-crypto-core/internal/revocation"
	"github.com/readium/lcp-crypto-core/internal/stream"
	"github.com/readium/lcp-crypto-core/internal/timer"
	"github.com/readium/lcp-crypto-core/pkg/hexutil"
)

var tracer = otel.Tracer("github.com/readium/lcp-crypto-core/internal/usecase")

// CryptoProvider binds the profile registry, certificate verification,
// revocation processing and key derivation into the pass-or-fail
// pipeline a license open drives. One instance owns one background CRL
// refresh goroutine, joined by Close.
type CryptoProvider struct {
	net                      domain.NetProvider
	list                     *revocation.List
	updater                  *crl.Updater
	clock                    *timer.Timer
	hardFailOnCRLUnreachable bool
}

// NewCryptoProvider wires a CryptoProvider around net, the transport the
// CRL updater uses to fetch distribution points. minRefresh/maxRefresh
// bound the background refresh cadence; hardFailOnCRLUnreachable
// decides whether an unreachable CRL on first use fails verifyLicense
// outright (ErrCRLUnreachable) or is treated as a soft, logged warning.
func NewCryptoProvider(net domain.NetProvider, minRefresh, maxRefresh time.Duration, hardFailOnCRLUnreachable bool) *CryptoProvider {
	list := revocation.New()
	updater := crl.New(net, list, minRefresh, maxRefresh)
	clock := timer.New(minRefresh)

	cp := &CryptoProvider{
		net:                      net,
		list:                     list,
		updater:                  updater,
		clock:                    clock,
		hardFailOnCRLUnreachable: hardFailOnCRLUnreachable,
	}

	clock.SetAutoReset(true)
	clock.SetHandler(func() error {
		err := updater.Update(context.Background())
		clock.SetInterval(updater.NextRefreshInterval())
		return err
	})

	return cp
}

// VerifyLicense walks the full trust-chain-to-signature pipeline: root
// parsing, provider-certificate chain verification, revocation
// processing, detached-signature verification, and validity-window
// enforcement against the license's last-updated timestamp.
func (cp *CryptoProvider) VerifyLicense(ctx context.Context, rootCertBase64 string, lic domain.License) (err error) {
	ctx, span := tracer.Start(ctx, "VerifyLicense")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrContentProviderCertificateNotVerified, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	desc := lic.Crypto()

	suite, err := profile.GetProfile(desc.EncryptionProfile)
	if err != nil {
		return err
	}

	if rootCertBase64 == "" {
		return domain.ErrNoRootCertificate
	}
	root, err := certificate.Parse(rootCertBase64)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRootCertificateNotValid, err)
	}

	providerCert, err := certificate.Parse(desc.SignatureCertificate)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrContentProviderCertificateNotValid, err)
	}

	if !providerCert.VerifyAgainst(root) {
		return domain.ErrContentProviderCertificateNotVerified
	}

	if err := cp.processRevocation(ctx, providerCert); err != nil {
		return err
	}

	signature, err := base64.StdEncoding.DecodeString(desc.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLicenseSignatureNotValid, err)
	}
	if !providerCert.VerifyMessage(lic.CanonicalContent(), signature, suite.SignatureAlgorithm) {
		return domain.ErrLicenseSignatureNotValid
	}

	lastUpdated, err := parseLastUpdated(lic)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLicenseSignatureNotValid, err)
	}
	if lastUpdated.Before(providerCert.NotBefore()) {
		return domain.ErrContentProviderCertificateNotStarted
	}
	if lastUpdated.After(providerCert.NotAfter()) {
		return domain.ErrContentProviderCertificateExpired
	}

	return nil
}

// processRevocation merges providerCert's distribution points into the
// CRL updater, performs one synchronous fetch and starts the background
// refresh the first time any distribution point is discovered, surfaces
// any previously captured background failure, and finally checks the
// provider certificate's serial against the merged revocation list.
func (cp *CryptoProvider) processRevocation(ctx context.Context, providerCert *certificate.Certificate) error {
	hadAnyURL := cp.updater.ContainsAnyURL()
	cp.updater.UpdateDistributionPoints(providerCert.DistributionPoints())

	if !hadAnyURL && cp.updater.ContainsAnyURL() {
		if err := cp.updater.Update(ctx); err != nil {
			if cp.hardFailOnCRLUnreachable {
				return fmt.Errorf("%w: %v", domain.ErrCRLUnreachable, err)
			}
			slog.Warn("initial crl fetch unreachable, proceeding without fresh revocation data", "error", err)
		}
		if err := cp.clock.Start(); err != nil {
			slog.Warn("crl refresh timer start failed", "error", err)
		}
	}

	if err := cp.clock.RethrowExceptionIfAny(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, err)
	}

	if cp.list.ContainsSerial(providerCert.SerialNumber()) {
		return domain.ErrContentProviderCertificateRevoked
	}
	return nil
}

// DecryptUserKey derives the user key from passphrase and verifies it
// against the license's userKeyCheck token. A wrong passphrase and a
// corrupted check token are deliberately indistinguishable.
func (cp *CryptoProvider) DecryptUserKey(passphrase string, lic domain.License) (key []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			key, err = nil, fmt.Errorf("%w: %v", domain.ErrUserPassphraseNotValid, r)
		}
	}()

	desc := lic.Crypto()
	suite, err := profile.GetProfile(desc.EncryptionProfile)
	if err != nil {
		return nil, err
	}

	userKey := suite.UserKeyHash(passphrase)

	checkCipher, err := suite.NewContentKeyCipher(userKey)
	if err != nil {
		return nil, domain.ErrUserPassphraseNotValid
	}

	ciphertext, err := base64.StdEncoding.DecodeString(desc.UserKeyCheck)
	if err != nil {
		return nil, domain.ErrUserPassphraseNotValid
	}

	plain, err := checkCipher.DecryptBuffer(ciphertext)
	if err != nil {
		return nil, domain.ErrUserPassphraseNotValid
	}
	if string(plain) != lic.ID() {
		return nil, domain.ErrUserPassphraseNotValid
	}

	return userKey, nil
}

// DecryptContentKey unwraps the license's content key under userKey.
func (cp *CryptoProvider) DecryptContentKey(userKey []byte, lic domain.License) (key []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			key, err = nil, fmt.Errorf("%w: %v", domain.ErrLicenseEncrypted, r)
		}
	}()

	desc := lic.Crypto()
	suite, err := profile.GetProfile(desc.EncryptionProfile)
	if err != nil {
		return nil, err
	}

	cipher, err := suite.NewContentKeyCipher(userKey)
	if err != nil {
		return nil, domain.ErrLicenseEncrypted
	}

	ciphertext, err := base64.StdEncoding.DecodeString(desc.ContentKey)
	if err != nil {
		return nil, domain.ErrLicenseEncrypted
	}

	plain, err := cipher.DecryptBuffer(ciphertext)
	if err != nil {
		return nil, domain.ErrLicenseEncrypted
	}
	return plain, nil
}

// DecryptLicenseData decrypts an arbitrary license-scoped ciphertext
// (base64 IV‖ciphertext) under the caller's user key.
func (cp *CryptoProvider) DecryptLicenseData(ciphertextBase64 string, lic domain.License, kp domain.KeyProvider) (plain []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			plain, err = nil, fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, r)
		}
	}()

	desc := lic.Crypto()
	suite, err := profile.GetProfile(desc.EncryptionProfile)
	if err != nil {
		return nil, err
	}

	cipher, err := suite.NewContentKeyCipher(kp.UserKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, err)
	}

	plain, err = cipher.DecryptBuffer(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, err)
	}
	return plain, nil
}

// DecryptPublicationData decrypts a whole in-memory publication-scoped
// buffer (IV‖ciphertext) under the caller's content key.
func (cp *CryptoProvider) DecryptPublicationData(lic domain.License, kp domain.KeyProvider, cipherBytes []byte) (plain []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			plain, err = nil, fmt.Errorf("%w: %v", domain.ErrPublicationEncrypted, r)
		}
	}()

	desc := lic.Crypto()
	suite, err := profile.GetProfile(desc.EncryptionProfile)
	if err != nil {
		return nil, err
	}

	cipher, err := suite.NewPublicationCipher(kp.ContentKey())
	if err != nil {
		return nil, domain.ErrPublicationEncrypted
	}

	plain, err = cipher.DecryptBuffer(cipherBytes)
	if err != nil {
		return nil, domain.ErrPublicationEncrypted
	}
	return plain, nil
}

// CreateEncryptedPublicationStream returns an owning random-access
// decrypting view over raw, keyed by the caller's content key. The
// caller owns all subsequent reads.
func (cp *CryptoProvider) CreateEncryptedPublicationStream(lic domain.License, kp domain.KeyProvider, raw domain.ReadableStream) (es *stream.EncryptedStream, err error) {
	defer func() {
		if r := recover(); r != nil {
			es, err = nil, fmt.Errorf("%w: %v", domain.ErrPublicationEncrypted, r)
		}
	}()

	desc := lic.Crypto()
	suite, err := profile.GetProfile(desc.EncryptionProfile)
	if err != nil {
		return nil, err
	}

	cipher, err := suite.NewPublicationCipher(kp.ContentKey())
	if err != nil {
		return nil, domain.ErrPublicationEncrypted
	}

	return stream.New(raw, cipher), nil
}

// CalculateFileHash streams s in 1 MiB chunks through SHA-256 and
// returns the final digest.
func (cp *CryptoProvider) CalculateFileHash(s domain.ReadableStream) (sum []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			sum, err = nil, fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, r)
		}
	}()

	size, err := s.Size()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, err)
	}

	h := cryptoalgo.NewHash()
	buf := make([]byte, 1<<20)

	var offset int64
	for offset < size {
		n, readErr := s.ReadAt(buf, offset)
		if n > 0 {
			h.Update(buf[:n])
			offset += int64(n)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionCommonError, readErr)
		}
	}

	digest := h.Finalize()
	return digest[:], nil
}

// ConvertRawToHex and ConvertHexToRaw are the hex/raw boundary helpers;
// both delegate to pkg/hexutil.
func (cp *CryptoProvider) ConvertRawToHex(raw []byte) string {
	return hexutil.Encode(raw)
}

func (cp *CryptoProvider) ConvertHexToRaw(hex string) ([]byte, error) {
	return hexutil.Decode(hex)
}

// CRLStatusReport is a snapshot of the background revocation-list
// updater's state, for diagnostics.
type CRLStatusReport struct {
	HasDistributionPoints bool
	NextRefreshInterval   time.Duration
}

// CRLStatus reports the updater's current state without forcing a fetch.
func (cp *CryptoProvider) CRLStatus() CRLStatusReport {
	return CRLStatusReport{
		HasDistributionPoints: cp.updater.ContainsAnyURL(),
		NextRefreshInterval:   cp.updater.NextRefreshInterval(),
	}
}

// Close cancels the CRL updater and stops the background timer, waiting
// for any in-flight handler run to finish. The Go analogue of the
// original's destructor-joins-thread pattern.
func (cp *CryptoProvider) Close() error {
	cp.updater.Cancel()
	cp.clock.Stop()
	return nil
}

func parseLastUpdated(lic domain.License) (time.Time, error) {
	ts := lic.Updated()
	if ts == "" {
		ts = lic.Issued()
	}
	return time.Parse(time.RFC3339, ts)
}
