package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// taskOrderExpr sorts by priority rank then due date ascending with nulls
// last. The ranks come from model.PriorityRank so list ordering and the
// documented rank never drift apart.
var taskOrderExpr = fmt.Sprintf(
	"CASE tasks.priority WHEN 'high' THEN %d WHEN 'medium' THEN %d ELSE %d END ASC, tasks.due_date ASC NULLS LAST",
	model.PriorityRank(model.PriorityHigh),
	model.PriorityRank(model.PriorityMedium),
	model.PriorityRank(model.PriorityLow),
)

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return translate(r.db.WithContext(ctx).Create(task).Error)
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

type taskRow struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	TenantID      uuid.UUID
	Title         string
	Description   string
	Status        model.TaskStatus
	Priority      model.TaskPriority
	AssignedTo    *uuid.UUID
	DueDate       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	AssigneeID    *uuid.UUID
	AssigneeName  *string
	AssigneeEmail *string
}

func (r *TaskRepository) List(ctx context.Context, projectID uuid.UUID, filter store.TaskFilter) ([]store.TaskWithAssignee, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.Task{}).Where("tasks.project_id = ?", projectID)
	if filter.Status != "" {
		base = base.Where("tasks.status = ?", filter.Status)
	}
	if filter.AssignedTo != nil {
		base = base.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Priority != "" {
		base = base.Where("tasks.priority = ?", filter.Priority)
	}
	if filter.Search != "" {
		base = base.Where("tasks.title ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var rows []taskRow
	err := base.
		Select(`tasks.*,
			u.id AS assignee_id,
			u.full_name AS assignee_name,
			u.email AS assignee_email`).
		Joins("LEFT JOIN users u ON u.id = tasks.assigned_to").
		Order(taskOrderExpr).
		Limit(filter.Limit).
		Offset(offsetFor(filter.Page, filter.Limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, translate(err)
	}

	tasks := make([]store.TaskWithAssignee, 0, len(rows))
	for _, row := range rows {
		item := store.TaskWithAssignee{
			Task: model.Task{
				ID:          row.ID,
				ProjectID:   row.ProjectID,
				TenantID:    row.TenantID,
				Title:       row.Title,
				Description: row.Description,
				Status:      row.Status,
				Priority:    row.Priority,
				AssignedTo:  row.AssignedTo,
				DueDate:     row.DueDate,
				CreatedAt:   row.CreatedAt,
				UpdatedAt:   row.UpdatedAt,
			},
		}
		if row.AssigneeID != nil {
			assignee := store.Assignee{ID: *row.AssigneeID}
			if row.AssigneeName != nil {
				assignee.FullName = *row.AssigneeName
			}
			if row.AssigneeEmail != nil {
				assignee.Email = *row.AssigneeEmail
			}
			item.Assignee = &assignee
		}
		tasks = append(tasks, item)
	}

	return tasks, total, nil
}

func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Task, error) {
	result := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return r.GetByID(ctx, id)
}
