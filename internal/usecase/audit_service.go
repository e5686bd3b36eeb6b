package usecase

import (
	"context"

	"github.com/readium/lcp-crypto-core/internal/domain"
)

// AuditRepository is the persistence contract AuditService depends on.
// Implemented by internal/repository.AuditRepository.
type AuditRepository interface {
	Record(ctx context.Context, event *domain.AuditEvent) error
	FindByLicenseID(ctx context.Context, licenseID string) ([]*domain.AuditEvent, error)
	CountByResult(ctx context.Context, result string) (int64, error)
}

// AuditService records and queries license-verification attempts.
// It never sees key material or passphrases — only the operation name,
// license id, certificate serial and result code the handler layer
// passes it.
type AuditService struct {
	repo AuditRepository
}

// NewAuditService は新しいAuditServiceを生成する。
func NewAuditService(repo AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// RecordVerification persists one VerifyLicense attempt.
func (s *AuditService) RecordVerification(ctx context.Context, licenseID, certificateSerial, result string) error {
	return s.repo.Record(ctx, &domain.AuditEvent{
		Operation:         "VERIFY_LICENSE",
		LicenseID:         licenseID,
		CertificateSerial: certificateSerial,
		Result:            result,
	})
}

// History returns every recorded attempt for licenseID, oldest first.
func (s *AuditService) History(ctx context.Context, licenseID string) ([]*domain.AuditEvent, error) {
	return s.repo.FindByLicenseID(ctx, licenseID)
}

// CountByResult returns how many recorded attempts resolved to result
// ("SUCCESS" or a sentinel error's message), for operator dashboards.
func (s *AuditService) CountByResult(ctx context.Context, result string) (int64, error) {
	return s.repo.CountByResult(ctx, result)
}
