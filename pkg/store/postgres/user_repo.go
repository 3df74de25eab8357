package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByTenantEmail(ctx context.Context, tenantID uuid.UUID, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "tenant_id = ? AND email = ?", tenantID, email).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) GetSuperAdminByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		First(&user, "tenant_id IS NULL AND role = ? AND email = ?", model.RoleSuperAdmin, email).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *UserRepository) List(ctx context.Context, tenantID uuid.UUID, filter store.UserFilter) ([]model.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.User{}).Where("tenant_id = ?", tenantID)
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("email ILIKE ? OR full_name ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var users []model.User
	err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(offsetFor(filter.Page, filter.Limit)).
		Find(&users).Error
	if err != nil {
		return nil, 0, translate(err)
	}

	return users, total, nil
}

func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.User, error) {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete unassigns the user's tasks before removing the row; both steps run
// in one transaction so a partial failure never leaves dangling assignments.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).
			Where("assigned_to = ?", id).
			Update("assigned_to", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, "id = ?", id).Error
	})
	return translate(err)
}

func (r *UserRepository) ExistsInTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND tenant_id = ?", userID, tenantID).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}
