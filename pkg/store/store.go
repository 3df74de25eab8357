// Package store defines the storage contracts consumed by the API handlers.
// Implementations live in subpackages (postgres).
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tenantdesk/tenantdesk/pkg/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type TenantFilter struct {
	Status string
	Plan   string
	Page   int
	Limit  int
}

// TenantWithCounts is a tenant row enriched with aggregate counts for the
// platform-operator listing.
type TenantWithCounts struct {
	Tenant       model.Tenant
	UserCount    int64
	ProjectCount int64
}

type TenantStats struct {
	TotalUsers    int64
	TotalProjects int64
	TotalTasks    int64
}

type TenantStore interface {
	// RegisterTenant creates the tenant and its first admin user in one
	// atomic transaction. Returns ErrDuplicate on a subdomain or
	// (tenant, email) conflict; nothing persists on failure.
	RegisterTenant(ctx context.Context, tenant *model.Tenant, admin *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error)
	List(ctx context.Context, filter TenantFilter) ([]TenantWithCounts, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Tenant, error)
	Stats(ctx context.Context, id uuid.UUID) (TenantStats, error)
	CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type UserFilter struct {
	Search string
	Role   model.Role
	Page   int
	Limit  int
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByTenantEmail(ctx context.Context, tenantID uuid.UUID, email string) (*model.User, error)
	GetSuperAdminByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	List(ctx context.Context, tenantID uuid.UUID, filter UserFilter) ([]model.User, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.User, error)
	// Delete unassigns the user's tasks and removes the row in one
	// transaction.
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsInTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error)
}

type ProjectFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// ProjectSummary is a project row enriched with task counts and the creator
// identity for listings.
type ProjectSummary struct {
	Project            model.Project
	CreatorID          uuid.UUID
	CreatorName        string
	TaskCount          int64
	CompletedTaskCount int64
}

type ProjectStore interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ProjectFilter) ([]ProjectSummary, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Project, error)
	// Delete removes the project's tasks and then the project in one
	// transaction, so a partial failure never orphans children.
	Delete(ctx context.Context, id uuid.UUID) error
}

type TaskFilter struct {
	Status     model.TaskStatus
	AssignedTo *uuid.UUID
	Priority   model.TaskPriority
	Search     string
	Page       int
	Limit      int
}

type Assignee struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
}

type TaskWithAssignee struct {
	Task     model.Task
	Assignee *Assignee
}

type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	// List orders by priority rank (high, medium, rest) then due date
	// ascending with nulls last.
	List(ctx context.Context, projectID uuid.UUID, filter TaskFilter) ([]TaskWithAssignee, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Task, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry *model.AuditLog) error
}

// Stores bundles the per-entity contracts for handler wiring.
type Stores struct {
	Tenants  TenantStore
	Users    UserStore
	Projects ProjectStore
	Tasks    TaskStore
	Audit    AuditStore
}
