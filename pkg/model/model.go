package model

import (
	"time"

	"github.com/google/uuid"
)

type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

type SubscriptionPlan string

const (
	PlanFree       SubscriptionPlan = "free"
	PlanPro        SubscriptionPlan = "pro"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

type Role string

const (
	RoleUser        Role = "user"
	RoleTenantAdmin Role = "tenant_admin"
	RoleSuperAdmin  Role = "super_admin"
)

type Tenant struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name             string           `gorm:"not null" json:"name"`
	Subdomain        string           `gorm:"uniqueIndex;not null" json:"subdomain"`
	Status           TenantStatus     `gorm:"type:varchar(20);default:'active'" json:"status"`
	SubscriptionPlan SubscriptionPlan `gorm:"type:varchar(20);default:'free'" json:"subscriptionPlan"`
	MaxUsers         int              `gorm:"not null" json:"maxUsers"`
	MaxProjects      int              `gorm:"not null" json:"maxProjects"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// User.TenantID is nil only for the global super_admin principal. Tenant-scoped
// users are unique per (tenant_id, email); a user's tenant never changes.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID     *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_tenant_email" json:"tenantId"`
	Email        string     `gorm:"not null;uniqueIndex:idx_tenant_email" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	FullName     string     `gorm:"not null" json:"fullName"`
	Role         Role       `gorm:"type:varchar(20);default:'user'" json:"role"`
	IsActive     bool       `gorm:"default:true" json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index" json:"tenantId"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Status      string    `gorm:"type:varchar(50);default:'active'" json:"status"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null" json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Task.TenantID is a denormalized copy of the owning project's tenant so
// isolation checks never need a join. AssignedTo must reference a user in
// the same tenant. DueDate is a plain calendar date, no time component.
type Task struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"projectId"`
	TenantID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"tenantId"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `gorm:"type:varchar(20);default:'todo';index" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);default:'medium'" json:"priority"`
	AssignedTo  *uuid.UUID   `gorm:"type:uuid;index" json:"assignedTo"`
	DueDate     *string      `gorm:"type:varchar(10)" json:"dueDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// AuditLog is append-only and never read back by business logic.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID   *uuid.UUID `gorm:"type:uuid;index" json:"tenantId"`
	UserID     *uuid.UUID `gorm:"type:uuid" json:"userId"`
	Action     string     `gorm:"not null" json:"action"`
	EntityType string     `json:"entityType"`
	EntityID   string     `json:"entityId"`
	IPAddress  string     `json:"ipAddress"`
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`
}

// PlanQuota holds the per-plan ceilings assigned at tenant creation.
type PlanQuota struct {
	MaxUsers    int
	MaxProjects int
}

// PlanDefaults returns the quota ceilings for a subscription plan. Unknown
// plans get the free tier.
func PlanDefaults(plan SubscriptionPlan) PlanQuota {
	switch plan {
	case PlanPro:
		return PlanQuota{MaxUsers: 25, MaxProjects: 15}
	case PlanEnterprise:
		return PlanQuota{MaxUsers: 100, MaxProjects: 50}
	default:
		return PlanQuota{MaxUsers: 5, MaxProjects: 3}
	}
}

func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone, TaskCancelled:
		return true
	}
	return false
}

func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ValidTenantRole reports whether a role may be assigned to a tenant-scoped
// user. super_admin is a platform role and is never tenant-assignable.
func ValidTenantRole(r Role) bool {
	return r == RoleUser || r == RoleTenantAdmin
}

// PriorityRank gives the list ordering for task priorities: high first, then
// medium, then everything else. urgent deliberately sorts with low; the rank
// only distinguishes high and medium.
func PriorityRank(p TaskPriority) int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}
