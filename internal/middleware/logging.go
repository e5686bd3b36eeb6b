// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"

	"github.com/readium/lcp-crypto-core/internal/usecase"
)

// RecordVerification logs a license verification attempt and, if audit
// is non-nil, persists it through the audit service. Logging always
// happens; persistence failure is itself only logged — a broken audit
// store must never fail the verification response it is recording.
func RecordVerification(ctx context.Context, audit *usecase.AuditService, licenseID, certificateSerial, result string) {
	slog.InfoContext(ctx, "license verification completed",
		"operation", "VERIFY_LICENSE",
		"license_id", licenseID,
		"certificate_serial", certificateSerial,
		"result", result,
	)

	if audit == nil {
		return
	}
	if err := audit.RecordVerification(ctx, licenseID, certificateSerial, result); err != nil {
		slog.ErrorContext(ctx, "failed to persist audit event", "error", err)
	}
}
