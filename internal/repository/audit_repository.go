// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/readium/lcp-crypto-core/internal/domain"
)

// AuditEventModel はgorm用のモデル定義。
type AuditEventModel struct {
	ID                string    `gorm:"type:char(36);primaryKey"`
	Operation         string    `gorm:"type:varchar(64);not null;index:idx_operation"`
	LicenseID         string    `gorm:"type:varchar(128);not null;index:idx_license_id"`
	CertificateSerial string    `gorm:"type:varchar(128);not null"`
	Result            string    `gorm:"type:varchar(64);not null;index:idx_result"`
	CreatedAt         time.Time `gorm:"precision:6;not null;autoCreateTime"`
}

// TableName はテーブル名を返す。
func (AuditEventModel) TableName() string {
	return "audit_events"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (e *AuditEventModel) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

func (e *AuditEventModel) toDomain() *domain.AuditEvent {
	return &domain.AuditEvent{
		ID:                e.ID,
		Operation:         e.Operation,
		LicenseID:         e.LicenseID,
		CertificateSerial: e.CertificateSerial,
		Result:            e.Result,
		CreatedAt:         e.CreatedAt,
	}
}

// AuditRepository はライセンス検証操作の監査ログへのデータアクセスを提供する。
// 鍵材料やパスフレーズは決して記録しない — 操作名・ライセンスID・証明書シリアル・
// 結果コードのみを保持する。
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository は新しいAuditRepositoryを生成する。
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record は検証操作の結果を監査ログに追記する。
func (r *AuditRepository) Record(ctx context.Context, event *domain.AuditEvent) error {
	model := &AuditEventModel{
		Operation:         event.Operation,
		LicenseID:         event.LicenseID,
		CertificateSerial: event.CertificateSerial,
		Result:            event.Result,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to record audit event",
			"operation", "record",
			"license_id", event.LicenseID,
			"error", err,
		)
		return err
	}
	event.ID = model.ID
	event.CreatedAt = model.CreatedAt
	return nil
}

// FindByID は指定されたIDの監査イベントを取得する。
func (r *AuditRepository) FindByID(ctx context.Context, id string) (*domain.AuditEvent, error) {
	var model AuditEventModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAuditEventNotFound
		}
		slog.ErrorContext(ctx, "failed to find audit event",
			"operation", "find_by_id",
			"id", id,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// FindByLicenseID は指定されたライセンスに対する監査イベントを古い順に取得する。
func (r *AuditRepository) FindByLicenseID(ctx context.Context, licenseID string) ([]*domain.AuditEvent, error) {
	var models []AuditEventModel
	err := r.db.WithContext(ctx).
		Where("license_id = ?", licenseID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to find audit events by license_id",
			"operation", "find_by_license_id",
			"license_id", licenseID,
			"error", err,
		)
		return nil, err
	}

	events := make([]*domain.AuditEvent, len(models))
	for i, m := range models {
		events[i] = m.toDomain()
	}
	return events, nil
}

// CountByResult は指定された結果コードを持つ監査イベント数を返す。診断用。
func (r *AuditRepository) CountByResult(ctx context.Context, result string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&AuditEventModel{}).
		Where("result = ?", result).
		Count(&count).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to count audit events by result",
			"operation", "count_by_result",
			"result", result,
			"error", err,
		)
		return 0, err
	}
	return count, nil
}
