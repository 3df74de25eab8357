package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenantdesk/tenantdesk/pkg/audit"
	"github.com/tenantdesk/tenantdesk/pkg/auth"
	"github.com/tenantdesk/tenantdesk/pkg/authz"
	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

type TaskHandler struct {
	stores   store.Stores
	recorder audit.Recorder
	logger   *zap.Logger
}

func NewTaskHandler(stores store.Stores, recorder audit.Recorder, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{stores: stores, recorder: recorder, logger: logger}
}

type createTaskRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	AssignedTo  string  `json:"assignedTo"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	identity, ok := tenantMember(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}

	if req.Priority == "" {
		req.Priority = string(model.PriorityMedium)
	}
	priority := model.TaskPriority(req.Priority)
	if !model.ValidTaskPriority(priority) {
		respondErr(c, http.StatusBadRequest, "Invalid priority")
		return
	}

	var dueDate *string
	if req.DueDate != nil {
		normalized, err := model.NormalizeDateOnly(*req.DueDate)
		if err != nil {
			respondErr(c, http.StatusBadRequest, "dueDate is not a valid date")
			return
		}
		dueDate = normalized
	}

	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "Project not found")
		return
	}
	project, err := h.stores.Projects.GetByID(c.Request.Context(), projectID)
	if err != nil {
		storeErr(c, err, "Project not found")
		return
	}
	if !authz.TenantMatch(identity, project.TenantID) {
		respondErr(c, http.StatusForbidden, "Project does not belong to tenant")
		return
	}

	var assignedTo *uuid.UUID
	if req.AssignedTo != "" {
		assignee, ok := h.validAssignee(c, req.AssignedTo, project.TenantID)
		if !ok {
			return
		}
		assignedTo = assignee
	}

	task := &model.Task{
		ProjectID:   project.ID,
		TenantID:    project.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskTodo,
		Priority:    priority,
		AssignedTo:  assignedTo,
		DueDate:     dueDate,
	}
	if err := h.stores.Tasks.Create(c.Request.Context(), task); err != nil {
		h.logger.Error("task create failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	userID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   &project.TenantID,
		UserID:     &userID,
		Action:     "CREATE_TASK",
		EntityType: "task",
		EntityID:   task.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusCreated, task, "")
}

// validAssignee ensures the assignee exists in the given tenant; any other
// outcome is a 400 so cross-tenant probing cannot distinguish absent from
// foreign users.
func (h *TaskHandler) validAssignee(c *gin.Context, raw string, tenantID uuid.UUID) (*uuid.UUID, bool) {
	assigneeID, err := uuid.Parse(raw)
	if err != nil {
		respondErr(c, http.StatusBadRequest, "assignedTo user invalid")
		return nil, false
	}
	exists, err := h.stores.Users.ExistsInTenant(c.Request.Context(), assigneeID, tenantID)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return nil, false
	}
	if !exists {
		respondErr(c, http.StatusBadRequest, "assignedTo user invalid")
		return nil, false
	}
	return &assigneeID, true
}

func (h *TaskHandler) List(c *gin.Context) {
	identity, ok := tenantMember(c)
	if !ok {
		return
	}

	filter := store.TaskFilter{
		Search: c.Query("search"),
		Page:   parsePage(c),
		Limit:  parseLimit(c, 50),
	}
	if status := c.Query("status"); status != "" {
		if !model.ValidTaskStatus(model.TaskStatus(status)) {
			respondErr(c, http.StatusBadRequest, "Invalid status")
			return
		}
		filter.Status = model.TaskStatus(status)
	}
	if priority := c.Query("priority"); priority != "" {
		if !model.ValidTaskPriority(model.TaskPriority(priority)) {
			respondErr(c, http.StatusBadRequest, "Invalid priority")
			return
		}
		filter.Priority = model.TaskPriority(priority)
	}
	if assignedTo := c.Query("assignedTo"); assignedTo != "" {
		assigneeID, err := uuid.Parse(assignedTo)
		if err != nil {
			respondErr(c, http.StatusBadRequest, "Validation errors")
			return
		}
		filter.AssignedTo = &assigneeID
	}

	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "Project not found")
		return
	}
	project, err := h.stores.Projects.GetByID(c.Request.Context(), projectID)
	if err != nil {
		storeErr(c, err, "Project not found")
		return
	}
	if !authz.TenantMatch(identity, project.TenantID) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return
	}

	items, total, err := h.stores.Tasks.List(c.Request.Context(), project.ID, filter)
	if err != nil {
		h.logger.Error("task list failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	tasks := make([]gin.H, 0, len(items))
	for _, item := range items {
		entry := gin.H{
			"id":          item.Task.ID,
			"title":       item.Task.Title,
			"description": item.Task.Description,
			"status":      item.Task.Status,
			"priority":    item.Task.Priority,
			"assignedTo":  nil,
			"dueDate":     item.Task.DueDate,
			"createdAt":   item.Task.CreatedAt,
		}
		if item.Assignee != nil {
			entry["assignedTo"] = item.Assignee
		}
		tasks = append(tasks, entry)
	}

	respond(c, http.StatusOK, gin.H{
		"tasks":      tasks,
		"total":      total,
		"pagination": paginate(total, filter.Page, filter.Limit),
	}, "")
}

// loadTenantTask loads a task and enforces tenant isolation only; task
// mutations are open to any member of the owning tenant.
func (h *TaskHandler) loadTenantTask(c *gin.Context, identity auth.Identity) (*model.Task, bool) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "Task not found")
		return nil, false
	}

	task, err := h.stores.Tasks.GetByID(c.Request.Context(), taskID)
	if err != nil {
		storeErr(c, err, "Task not found")
		return nil, false
	}
	if !authz.TenantMatch(identity, task.TenantID) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	return task, true
}

type patchStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TaskHandler) PatchStatus(c *gin.Context) {
	identity, ok := tenantMember(c)
	if !ok {
		return
	}

	var req patchStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}
	status := model.TaskStatus(req.Status)
	if !model.ValidTaskStatus(status) {
		respondErr(c, http.StatusBadRequest, "Invalid status")
		return
	}

	task, ok := h.loadTenantTask(c, identity)
	if !ok {
		return
	}

	// Any valid status may replace any other; no transition graph is
	// enforced.
	updated, err := h.stores.Tasks.Update(c.Request.Context(), task.ID, map[string]interface{}{
		"status": status,
	})
	if err != nil {
		storeErr(c, err, "Task not found")
		return
	}

	respond(c, http.StatusOK, gin.H{
		"id":        updated.ID,
		"status":    updated.Status,
		"updatedAt": updated.UpdatedAt,
	}, "")
}

type updateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	AssignedTo  *string `json:"assignedTo"`
	DueDate     *string `json:"dueDate"`
}

func (h *TaskHandler) Update(c *gin.Context) {
	identity, ok := tenantMember(c)
	if !ok {
		return
	}

	// An explicit null clears dueDate, assignedTo and description; an absent
	// key leaves the field alone.
	var req updateTaskRequest
	keys, err := bindPartial(c, &req)
	if err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}

	if req.Status != "" && !model.ValidTaskStatus(model.TaskStatus(req.Status)) {
		respondErr(c, http.StatusBadRequest, "Invalid status")
		return
	}
	if req.Priority != "" && !model.ValidTaskPriority(model.TaskPriority(req.Priority)) {
		respondErr(c, http.StatusBadRequest, "Invalid priority")
		return
	}

	var dueDate *string
	_, dueDateSet := keys["dueDate"]
	if dueDateSet && req.DueDate != nil {
		normalized, err := model.NormalizeDateOnly(*req.DueDate)
		if err != nil {
			respondErr(c, http.StatusBadRequest, "dueDate is not a valid date")
			return
		}
		dueDate = normalized
	}

	task, ok := h.loadTenantTask(c, identity)
	if !ok {
		return
	}

	fields := map[string]interface{}{}
	if req.Title != "" {
		fields["title"] = req.Title
	}
	if _, set := keys["description"]; set {
		if req.Description == nil {
			fields["description"] = ""
		} else {
			fields["description"] = *req.Description
		}
	}
	if req.Status != "" {
		fields["status"] = model.TaskStatus(req.Status)
	}
	if req.Priority != "" {
		fields["priority"] = model.TaskPriority(req.Priority)
	}
	if _, set := keys["assignedTo"]; set {
		if req.AssignedTo == nil || *req.AssignedTo == "" {
			fields["assigned_to"] = nil
		} else {
			assignee, ok := h.validAssignee(c, *req.AssignedTo, task.TenantID)
			if !ok {
				return
			}
			fields["assigned_to"] = *assignee
		}
	}
	if dueDateSet {
		fields["due_date"] = dueDate
	}

	if len(fields) == 0 {
		respondErr(c, http.StatusBadRequest, "No fields to update")
		return
	}

	updated, err := h.stores.Tasks.Update(c.Request.Context(), task.ID, fields)
	if err != nil {
		storeErr(c, err, "Task not found")
		return
	}

	var assignee *store.Assignee
	if updated.AssignedTo != nil {
		if user, err := h.stores.Users.GetByID(c.Request.Context(), *updated.AssignedTo); err == nil {
			assignee = &store.Assignee{ID: user.ID, FullName: user.FullName, Email: user.Email}
		}
	}

	userID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   &task.TenantID,
		UserID:     &userID,
		Action:     "UPDATE_TASK",
		EntityType: "task",
		EntityID:   task.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusOK, gin.H{
		"id":          updated.ID,
		"title":       updated.Title,
		"description": updated.Description,
		"status":      updated.Status,
		"priority":    updated.Priority,
		"assignedTo":  assignee,
		"dueDate":     updated.DueDate,
		"updatedAt":   updated.UpdatedAt,
	}, "Task updated successfully")
}
