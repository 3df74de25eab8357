package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) RegisterTenant(ctx context.Context, tenant *model.Tenant, admin *model.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Tenant{}).Where("subdomain = ?", tenant.Subdomain).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return store.ErrDuplicate
		}

		if err := tx.Create(tenant).Error; err != nil {
			return err
		}

		admin.TenantID = &tenant.ID

		if err := tx.Model(&model.User{}).
			Where("tenant_id = ? AND email = ?", tenant.ID, admin.Email).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return store.ErrDuplicate
		}

		return tx.Create(admin).Error
	})
	if errors.Is(err, store.ErrDuplicate) {
		return store.ErrDuplicate
	}
	return translate(err)
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &tenant, nil
}

func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "subdomain = ?", subdomain).Error; err != nil {
		return nil, translate(err)
	}
	return &tenant, nil
}

func (r *TenantRepository) List(ctx context.Context, filter store.TenantFilter) ([]store.TenantWithCounts, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Tenant{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Plan != "" {
		query = query.Where("subscription_plan = ?", filter.Plan)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var tenants []model.Tenant
	err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(offsetFor(filter.Page, filter.Limit)).
		Find(&tenants).Error
	if err != nil {
		return nil, 0, translate(err)
	}

	results := make([]store.TenantWithCounts, 0, len(tenants))
	for _, tenant := range tenants {
		var users, projects int64
		if err := r.db.WithContext(ctx).Model(&model.User{}).Where("tenant_id = ?", tenant.ID).Count(&users).Error; err != nil {
			return nil, 0, translate(err)
		}
		if err := r.db.WithContext(ctx).Model(&model.Project{}).Where("tenant_id = ?", tenant.ID).Count(&projects).Error; err != nil {
			return nil, 0, translate(err)
		}
		results = append(results, store.TenantWithCounts{
			Tenant:       tenant,
			UserCount:    users,
			ProjectCount: projects,
		})
	}

	return results, total, nil
}

func (r *TenantRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Tenant, error) {
	result := r.db.WithContext(ctx).Model(&model.Tenant{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *TenantRepository) Stats(ctx context.Context, id uuid.UUID) (store.TenantStats, error) {
	var stats store.TenantStats
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("tenant_id = ?", id).Count(&stats.TotalUsers).Error; err != nil {
		return stats, translate(err)
	}
	if err := r.db.WithContext(ctx).Model(&model.Project{}).Where("tenant_id = ?", id).Count(&stats.TotalProjects).Error; err != nil {
		return stats, translate(err)
	}
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("tenant_id = ?", id).Count(&stats.TotalTasks).Error; err != nil {
		return stats, translate(err)
	}
	return stats, nil
}

func (r *TenantRepository) CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Project{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, translate(err)
}

func (r *TenantRepository) CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, translate(err)
}
