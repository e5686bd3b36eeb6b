package usecase

import (
	"context"
	"testing"

	"github.com/readium/lcp-crypto-core/internal/domain"
)

type fakeAuditRepository struct {
	events []*domain.AuditEvent
}

func (f *fakeAuditRepository) Record(_ context.Context, event *domain.AuditEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAuditRepository) FindByLicenseID(_ context.Context, licenseID string) ([]*domain.AuditEvent, error) {
	var matched []*domain.AuditEvent
	for _, e := range f.events {
		if e.LicenseID == licenseID {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func (f *fakeAuditRepository) CountByResult(_ context.Context, result string) (int64, error) {
	var count int64
	for _, e := range f.events {
		if e.Result == result {
			count++
		}
	}
	return count, nil
}

func TestAuditService_RecordAndHistory(t *testing.T) {
	ctx := context.Background()
	repo := &fakeAuditRepository{}
	svc := NewAuditService(repo)

	if err := svc.RecordVerification(ctx, "urn:uuid:1", "07", "SUCCESS"); err != nil {
		t.Fatalf("RecordVerification failed: %v", err)
	}
	if err := svc.RecordVerification(ctx, "urn:uuid:1", "07", "license signature not valid"); err != nil {
		t.Fatalf("RecordVerification failed: %v", err)
	}
	if err := svc.RecordVerification(ctx, "urn:uuid:2", "08", "SUCCESS"); err != nil {
		t.Fatalf("RecordVerification failed: %v", err)
	}

	history, err := svc.History(ctx, "urn:uuid:1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 events for urn:uuid:1, got %d", len(history))
	}
	for _, e := range history {
		if e.Operation != "VERIFY_LICENSE" {
			t.Fatalf("expected Operation VERIFY_LICENSE, got %q", e.Operation)
		}
	}

	count, err := svc.CountByResult(ctx, "SUCCESS")
	if err != nil {
		t.Fatalf("CountByResult failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 SUCCESS events, got %d", count)
	}
}
