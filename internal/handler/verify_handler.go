// Package handler はHTTPハンドラを提供する。
package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/readium/lcp-crypto-core/internal/certificate"
	"github.com/readium/lcp-crypto-core/internal/domain"
	"github.com/readium/lcp-crypto-core/internal/middleware"
	"github.com/readium/lcp-crypto-core/internal/usecase"
	"github.com/readium/lcp-crypto-core/pkg/httputil"
)

// CryptoDescriptorRequest mirrors domain.CryptoDescriptor over the wire.
type CryptoDescriptorRequest struct {
	EncryptionProfile    string `json:"encryption_profile"`
	SignatureCertificate string `json:"signature_certificate"`
	Signature            string `json:"signature"`
	UserKeyCheck         string `json:"user_key_check"`
	ContentKey           string `json:"content_key"`
}

// LicenseRequest mirrors the subset of a license document the crypto
// core needs, as domain.SimpleLicense expects it.
type LicenseRequest struct {
	ID               string                  `json:"id"`
	Issued           string                  `json:"issued"`
	Updated          string                  `json:"updated"`
	CanonicalContent string                  `json:"canonical_content"`
	Crypto           CryptoDescriptorRequest `json:"crypto"`
}

// VerifyLicenseRequest is the POST /v1/licenses/verify request body.
// The root certificate is not part of the request: it is a deployment
// trust anchor, configured once on the server.
type VerifyLicenseRequest struct {
	License LicenseRequest `json:"license"`
}

// VerifyLicenseResponse is the POST /v1/licenses/verify response body.
type VerifyLicenseResponse struct {
	Result            string `json:"result"`
	CertificateSerial string `json:"certificate_serial,omitempty"`
	Error             string `json:"error,omitempty"`
}

// CRLStatusResponse is the GET /v1/crl/status response body.
type CRLStatusResponse struct {
	HasDistributionPoints bool   `json:"has_distribution_points"`
	NextRefreshInterval   string `json:"next_refresh_interval"`
}

// VerifyHandler exposes the crypto core's license verification pipeline
// and CRL updater state as an HTTP diagnostics surface. It does not
// construct, store, or serve licenses or publications itself.
type VerifyHandler struct {
	provider       *usecase.CryptoProvider
	audit          *usecase.AuditService
	rootCertBase64 string
}

// NewVerifyHandler は新しいVerifyHandlerを生成する。
func NewVerifyHandler(provider *usecase.CryptoProvider, audit *usecase.AuditService, rootCertBase64 string) *VerifyHandler {
	return &VerifyHandler{provider: provider, audit: audit, rootCertBase64: rootCertBase64}
}

func (h *VerifyHandler) toDomainLicense(req LicenseRequest) (*domain.SimpleLicense, error) {
	canonical, err := base64.StdEncoding.DecodeString(req.CanonicalContent)
	if err != nil {
		return nil, err
	}
	return &domain.SimpleLicense{
		IDValue:      req.ID,
		IssuedValue:  req.Issued,
		UpdatedValue: req.Updated,
		Canonical:    canonical,
		CryptoValue: domain.CryptoDescriptor{
			EncryptionProfile:    req.Crypto.EncryptionProfile,
			SignatureCertificate: req.Crypto.SignatureCertificate,
			Signature:            req.Crypto.Signature,
			UserKeyCheck:         req.Crypto.UserKeyCheck,
			ContentKey:           req.Crypto.ContentKey,
		},
	}, nil
}

// certificateSerialHex best-effort extracts the hex serial of the
// license's signing certificate for the audit record; parse failures are
// swallowed since VerifyLicense itself will already have reported them.
func (h *VerifyHandler) certificateSerialHex(certB64 string) string {
	cert, err := certificate.Parse(certB64)
	if err != nil {
		return ""
	}
	return h.provider.ConvertRawToHex(cert.SerialNumber())
}

// VerifyLicense handles POST /v1/licenses/verify.
func (h *VerifyHandler) VerifyLicense(w http.ResponseWriter, r *http.Request) {
	var req VerifyLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST_BODY", "malformed JSON request body")
		return
	}

	lic, err := h.toDomainLicense(req.License)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_CANONICAL_CONTENT", "canonical_content must be base64")
		return
	}

	serial := h.certificateSerialHex(req.License.Crypto.SignatureCertificate)

	verr := h.provider.VerifyLicense(r.Context(), h.rootCertBase64, lic)
	result := "SUCCESS"
	if verr != nil {
		// record the sentinel's own message, not the wrapped detail
		result = verr.Error()
		for u := errors.Unwrap(verr); u != nil; u = errors.Unwrap(u) {
			result = u.Error()
		}
	}
	middleware.RecordVerification(r.Context(), h.audit, lic.ID(), serial, result)

	if verr == nil {
		httputil.JSON(w, http.StatusOK, VerifyLicenseResponse{Result: result, CertificateSerial: serial})
		return
	}

	status, code := classifyVerifyError(verr)
	httputil.JSON(w, status, VerifyLicenseResponse{
		Result:            "FAILED",
		CertificateSerial: serial,
		Error:             code,
	})
}

func classifyVerifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEncryptionProfileNotFound):
		return http.StatusBadRequest, "ENCRYPTION_PROFILE_NOT_FOUND"
	case errors.Is(err, domain.ErrNoRootCertificate):
		return http.StatusBadRequest, "NO_ROOT_CERTIFICATE"
	case errors.Is(err, domain.ErrRootCertificateNotValid):
		return http.StatusBadRequest, "ROOT_CERTIFICATE_NOT_VALID"
	case errors.Is(err, domain.ErrContentProviderCertificateNotValid):
		return http.StatusBadRequest, "PROVIDER_CERTIFICATE_NOT_VALID"
	case errors.Is(err, domain.ErrContentProviderCertificateNotVerified):
		return http.StatusForbidden, "PROVIDER_CERTIFICATE_NOT_VERIFIED"
	case errors.Is(err, domain.ErrContentProviderCertificateRevoked):
		return http.StatusForbidden, "PROVIDER_CERTIFICATE_REVOKED"
	case errors.Is(err, domain.ErrContentProviderCertificateNotStarted):
		return http.StatusForbidden, "PROVIDER_CERTIFICATE_NOT_STARTED"
	case errors.Is(err, domain.ErrContentProviderCertificateExpired):
		return http.StatusForbidden, "PROVIDER_CERTIFICATE_EXPIRED"
	case errors.Is(err, domain.ErrLicenseSignatureNotValid):
		return http.StatusForbidden, "LICENSE_SIGNATURE_NOT_VALID"
	case errors.Is(err, domain.ErrCRLUnreachable):
		return http.StatusServiceUnavailable, "CRL_UNREACHABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// CRLStatus handles GET /v1/crl/status.
func (h *VerifyHandler) CRLStatus(w http.ResponseWriter, r *http.Request) {
	status := h.provider.CRLStatus()
	httputil.JSON(w, http.StatusOK, CRLStatusResponse{
		HasDistributionPoints: status.HasDistributionPoints,
		NextRefreshInterval:   status.NextRefreshInterval.String(),
	})
}

// Healthz handles GET /healthz.
func (h *VerifyHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
