package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	return translate(r.db.WithContext(ctx).Create(project).Error)
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

type projectRow struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	Name               string
	Description        string
	Status             string
	CreatedBy          uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CreatorID          uuid.UUID
	CreatorName        string
	TaskCount          int64
	CompletedTaskCount int64
}

func (r *ProjectRepository) List(ctx context.Context, tenantID uuid.UUID, filter store.ProjectFilter) ([]store.ProjectSummary, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.Project{}).Where("projects.tenant_id = ?", tenantID)
	if filter.Status != "" {
		base = base.Where("projects.status = ?", filter.Status)
	}
	if filter.Search != "" {
		base = base.Where("projects.name ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var rows []projectRow
	err := base.
		Select(`projects.*,
			u.id AS creator_id,
			u.full_name AS creator_name,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = projects.id) AS task_count,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = projects.id AND t.status = 'done') AS completed_task_count`).
		Joins("JOIN users u ON u.id = projects.created_by").
		Order("projects.created_at DESC").
		Limit(filter.Limit).
		Offset(offsetFor(filter.Page, filter.Limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, translate(err)
	}

	summaries := make([]store.ProjectSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, store.ProjectSummary{
			Project: model.Project{
				ID:          row.ID,
				TenantID:    row.TenantID,
				Name:        row.Name,
				Description: row.Description,
				Status:      row.Status,
				CreatedBy:   row.CreatedBy,
				CreatedAt:   row.CreatedAt,
				UpdatedAt:   row.UpdatedAt,
			},
			CreatorID:          row.CreatorID,
			CreatorName:        row.CreatorName,
			TaskCount:          row.TaskCount,
			CompletedTaskCount: row.CompletedTaskCount,
		})
	}

	return summaries, total, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Project, error) {
	result := r.db.WithContext(ctx).Model(&model.Project{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes child tasks first and then the project, inside one
// transaction. There is no cascading delete at the storage layer.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Task{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Project{}, "id = ?", id).Error
	})
	return translate(err)
}
