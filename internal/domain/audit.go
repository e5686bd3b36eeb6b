package domain

import "time"

// AuditEvent records one crypto-core verification attempt for
// compliance review. It never carries key material or passphrases —
// only the metadata an operator needs to investigate a failed open.
type AuditEvent struct {
	ID                 string
	Operation          string // e.g. "VERIFY_LICENSE", "DECRYPT_USER_KEY"
	LicenseID          string
	CertificateSerial  string // hex, empty if not yet known
	Result             string // "SUCCESS" or the sentinel error's message
	CreatedAt          time.Time
}
