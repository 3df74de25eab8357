package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/tenantdesk/tenantdesk/pkg/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *model.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}
