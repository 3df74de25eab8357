package apiserver

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

// memStore is an in-memory store.Stores implementation for router tests. It
// honors the same contracts as the postgres store: duplicate detection,
// cascading deletes, and the task list ordering.
type memStore struct {
	mu       sync.Mutex
	tenants  map[uuid.UUID]*model.Tenant
	users    map[uuid.UUID]*model.User
	projects map[uuid.UUID]*model.Project
	tasks    map[uuid.UUID]*model.Task
	audits   []model.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		tenants:  map[uuid.UUID]*model.Tenant{},
		users:    map[uuid.UUID]*model.User{},
		projects: map[uuid.UUID]*model.Project{},
		tasks:    map[uuid.UUID]*model.Task{},
	}
}

func (m *memStore) stores() store.Stores {
	return store.Stores{
		Tenants:  (*memTenants)(m),
		Users:    (*memUsers)(m),
		Projects: (*memProjects)(m),
		Tasks:    (*memTasks)(m),
		Audit:    (*memAudit)(m),
	}
}

type memTenants memStore

func (m *memTenants) RegisterTenant(ctx context.Context, tenant *model.Tenant, admin *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tenants {
		if t.Subdomain == tenant.Subdomain {
			return store.ErrDuplicate
		}
	}

	tenant.ID = uuid.New()
	tenant.CreatedAt = time.Now().UTC()
	tenant.UpdatedAt = tenant.CreatedAt

	admin.ID = uuid.New()
	admin.TenantID = &tenant.ID
	admin.CreatedAt = tenant.CreatedAt
	admin.UpdatedAt = tenant.CreatedAt

	copied := *tenant
	adminCopy := *admin
	m.tenants[tenant.ID] = &copied
	m.users[admin.ID] = &adminCopy
	return nil
}

func (m *memTenants) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *memTenants) GetBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Subdomain == subdomain {
			copied := *t
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memTenants) List(ctx context.Context, filter store.TenantFilter) ([]store.TenantWithCounts, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []store.TenantWithCounts
	for _, t := range m.tenants {
		if filter.Status != "" && string(t.Status) != filter.Status {
			continue
		}
		if filter.Plan != "" && string(t.SubscriptionPlan) != filter.Plan {
			continue
		}
		row := store.TenantWithCounts{Tenant: *t}
		for _, u := range m.users {
			if u.TenantID != nil && *u.TenantID == t.ID {
				row.UserCount++
			}
		}
		for _, p := range m.projects {
			if p.TenantID == t.ID {
				row.ProjectCount++
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Tenant.CreatedAt.After(rows[j].Tenant.CreatedAt)
	})
	return rows, int64(len(rows)), nil
}

func (m *memTenants) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "name":
			t.Name = value.(string)
		case "status":
			t.Status = value.(model.TenantStatus)
		case "subscription_plan":
			t.SubscriptionPlan = value.(model.SubscriptionPlan)
		case "max_users":
			t.MaxUsers = value.(int)
		case "max_projects":
			t.MaxProjects = value.(int)
		}
	}
	t.UpdatedAt = time.Now().UTC()
	copied := *t
	return &copied, nil
}

func (m *memTenants) Stats(ctx context.Context, id uuid.UUID) (store.TenantStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats store.TenantStats
	for _, u := range m.users {
		if u.TenantID != nil && *u.TenantID == id {
			stats.TotalUsers++
		}
	}
	for _, p := range m.projects {
		if p.TenantID == id {
			stats.TotalProjects++
		}
	}
	for _, task := range m.tasks {
		if task.TenantID == id {
			stats.TotalTasks++
		}
	}
	return stats, nil
}

func (m *memTenants) CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.projects {
		if p.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (m *memTenants) CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.TenantID != nil && *u.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type memUsers memStore

func (m *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) GetByTenantEmail(ctx context.Context, tenantID uuid.UUID, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TenantID != nil && *u.TenantID == tenantID && u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) GetSuperAdminByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TenantID == nil && u.Role == model.RoleSuperAdmin && u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email && tenantEqual(u.TenantID, user.TenantID) {
			return store.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUsers) List(ctx context.Context, tenantID uuid.UUID, filter store.UserFilter) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		if u.TenantID == nil || *u.TenantID != tenantID {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(u.Email), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(u.FullName), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (m *memUsers) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "full_name":
			u.FullName = value.(string)
		case "role":
			u.Role = value.(model.Role)
		case "is_active":
			u.IsActive = value.(bool)
		}
	}
	u.UpdatedAt = time.Now().UTC()
	copied := *u
	return &copied, nil
}

func (m *memUsers) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	for _, task := range m.tasks {
		if task.AssignedTo != nil && *task.AssignedTo == id {
			task.AssignedTo = nil
		}
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) ExistsInTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	return u.TenantID != nil && *u.TenantID == tenantID, nil
}

type memProjects memStore

func (m *memProjects) Create(ctx context.Context, project *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project.ID = uuid.New()
	project.CreatedAt = time.Now().UTC()
	project.UpdatedAt = project.CreatedAt
	copied := *project
	m.projects[project.ID] = &copied
	return nil
}

func (m *memProjects) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memProjects) List(ctx context.Context, tenantID uuid.UUID, filter store.ProjectFilter) ([]store.ProjectSummary, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ProjectSummary
	for _, p := range m.projects {
		if p.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		summary := store.ProjectSummary{Project: *p, CreatorID: p.CreatedBy}
		if creator, ok := m.users[p.CreatedBy]; ok {
			summary.CreatorName = creator.FullName
		}
		for _, task := range m.tasks {
			if task.ProjectID != p.ID {
				continue
			}
			summary.TaskCount++
			if task.Status == model.TaskDone {
				summary.CompletedTaskCount++
			}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Project.CreatedAt.After(out[j].Project.CreatedAt)
	})
	return out, int64(len(out)), nil
}

func (m *memProjects) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "name":
			p.Name = value.(string)
		case "description":
			p.Description = value.(string)
		case "status":
			p.Status = value.(string)
		}
	}
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

func (m *memProjects) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return store.ErrNotFound
	}
	for taskID, task := range m.tasks {
		if task.ProjectID == id {
			delete(m.tasks, taskID)
		}
	}
	delete(m.projects, id)
	return nil
}

type memTasks memStore

func (m *memTasks) Create(ctx context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.ID = uuid.New()
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memTasks) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *memTasks) List(ctx context.Context, projectID uuid.UUID, filter store.TaskFilter) ([]store.TaskWithAssignee, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.TaskWithAssignee
	for _, task := range m.tasks {
		if task.ProjectID != projectID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if filter.AssignedTo != nil && (task.AssignedTo == nil || *task.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(task.Title), strings.ToLower(filter.Search)) {
			continue
		}
		row := store.TaskWithAssignee{Task: *task}
		if task.AssignedTo != nil {
			if u, ok := m.users[*task.AssignedTo]; ok {
				row.Assignee = &store.Assignee{ID: u.ID, FullName: u.FullName, Email: u.Email}
			}
		}
		out = append(out, row)
	}

	// Priority rank first, then due date ascending with nulls last.
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := model.PriorityRank(out[i].Task.Priority), model.PriorityRank(out[j].Task.Priority)
		if ri != rj {
			return ri < rj
		}
		di, dj := out[i].Task.DueDate, out[j].Task.DueDate
		switch {
		case di == nil && dj == nil:
			return false
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
	return out, int64(len(out)), nil
}

func (m *memTasks) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "title":
			task.Title = value.(string)
		case "description":
			task.Description = value.(string)
		case "status":
			task.Status = value.(model.TaskStatus)
		case "priority":
			task.Priority = value.(model.TaskPriority)
		case "assigned_to":
			if value == nil {
				task.AssignedTo = nil
			} else {
				id := value.(uuid.UUID)
				task.AssignedTo = &id
			}
		case "due_date":
			if value == nil {
				task.DueDate = nil
			} else {
				task.DueDate = value.(*string)
			}
		}
	}
	task.UpdatedAt = time.Now().UTC()
	copied := *task
	return &copied, nil
}

type memAudit memStore

func (m *memAudit) Append(ctx context.Context, entry *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, *entry)
	return nil
}

func tenantEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
