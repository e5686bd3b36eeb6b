package domain

import "errors"

var (
	// ErrEncryptionProfileNotFound is returned when a license references an
	// encryption profile URI the registry does not know about.
	ErrEncryptionProfileNotFound = errors.New("encryption profile not found")

	// ErrNoRootCertificate is returned when VerifyLicense is called with an
	// empty root certificate.
	ErrNoRootCertificate = errors.New("no root certificate provided")

	// ErrRootCertificateNotValid is returned when the root certificate is
	// not well-formed DER.
	ErrRootCertificateNotValid = errors.New("root certificate not valid")

	// ErrContentProviderCertificateNotValid is returned when the license's
	// signature certificate is not well-formed DER.
	ErrContentProviderCertificateNotValid = errors.New("content provider certificate not valid")

	// ErrContentProviderCertificateNotVerified is returned when the
	// signature certificate does not chain to the root certificate.
	ErrContentProviderCertificateNotVerified = errors.New("content provider certificate not verified")

	// ErrContentProviderCertificateNotStarted is returned when the
	// license's lastUpdated timestamp precedes the certificate's notBefore.
	ErrContentProviderCertificateNotStarted = errors.New("content provider certificate not yet valid")

	// ErrContentProviderCertificateExpired is returned when the license's
	// lastUpdated timestamp is after the certificate's notAfter.
	ErrContentProviderCertificateExpired = errors.New("content provider certificate expired")

	// ErrContentProviderCertificateRevoked is returned when the
	// certificate's serial number appears in a merged CRL.
	ErrContentProviderCertificateRevoked = errors.New("content provider certificate revoked")

	// ErrLicenseSignatureNotValid is returned when the license's detached
	// signature does not verify against the signature certificate.
	ErrLicenseSignatureNotValid = errors.New("license signature not valid")

	// ErrUserPassphraseNotValid is returned both for a wrong passphrase and
	// for a corrupted userKeyCheck token — the two are indistinguishable by
	// design.
	ErrUserPassphraseNotValid = errors.New("user passphrase not valid")

	// ErrLicenseEncrypted is returned when the content key cannot be
	// unwrapped with the given user key.
	ErrLicenseEncrypted = errors.New("license content key undecryptable")

	// ErrPublicationEncrypted is returned when the publication payload
	// cannot be decrypted with the given content key.
	ErrPublicationEncrypted = errors.New("publication payload undecryptable")

	// ErrDecryptionCommonError covers hashing/hex/stream failures that do
	// not map to a more specific status.
	ErrDecryptionCommonError = errors.New("decryption common error")

	// ErrCRLUnreachable is returned by ProcessRevocation when
	// CRLHardFailOnUnreachable is enabled and the first synchronous CRL
	// fetch fails.
	ErrCRLUnreachable = errors.New("certificate revocation list unreachable")

	// ErrInvalidHexInput is returned by ConvertHexToRaw for malformed hex.
	ErrInvalidHexInput = errors.New("invalid hex input")

	// ErrTimerAlreadyRunning is returned by Start when the timer is already
	// Running.
	ErrTimerAlreadyRunning = errors.New("timer already running")

	// ErrTimerCancelled is returned by Start once a timer has been stopped;
	// timers are not restartable.
	ErrTimerCancelled = errors.New("timer cancelled")

	// ErrOffsetOutOfRange names a read outside the plaintext domain. No
	// operation in this module returns it: EncryptedStream.ReadAt reports
	// an offset outside the plaintext as io.EOF.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrKeyNotSet names a KeyProvider key that was never set. No operation
	// in this module returns it: KeyProvider methods return no error, and
	// MemoryKeyProvider returns nil for a key it never received.
	ErrKeyNotSet = errors.New("key not set")

	// ErrAuditEventNotFound mirrors the teacher's repository not-found
	// convention, applied to the audit trail.
	ErrAuditEventNotFound = errors.New("audit event not found")

	// ErrInvalidMigrationFile mirrors the teacher's migration file naming
	// convention ({version}_{name}.sql).
	ErrInvalidMigrationFile = errors.New("invalid migration file")

	// ErrMigrationFailed is returned when a migration's SQL fails to apply.
	ErrMigrationFailed = errors.New("migration failed")
)
