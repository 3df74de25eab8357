package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenantdesk/tenantdesk/pkg/apiserver/middleware"
	"github.com/tenantdesk/tenantdesk/pkg/audit"
	"github.com/tenantdesk/tenantdesk/pkg/auth"
	"github.com/tenantdesk/tenantdesk/pkg/authz"
	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

type ProjectHandler struct {
	stores   store.Stores
	recorder audit.Recorder
	logger   *zap.Logger
}

func NewProjectHandler(stores store.Stores, recorder audit.Recorder, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{stores: stores, recorder: recorder, logger: logger}
}

// tenantMember rejects unauthenticated callers and super_admin, which is a
// platform-operator role excluded from tenant business resources.
func tenantMember(c *gin.Context) (auth.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondErr(c, http.StatusUnauthorized, "Unauthorized")
		return auth.Identity{}, false
	}
	if authz.IsSuperAdmin(identity) || identity.TenantID == nil {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return auth.Identity{}, false
	}
	return identity, true
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	identity, ok := tenantMember(c)
	if !ok {
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}
	if req.Status == "" {
		req.Status = "active"
	}

	tenantID := *identity.TenantID
	tenant, err := h.stores.Tenants.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		storeErr(c, err, "Tenant not found")
		return
	}

	count, err := h.stores.Tenants.CountProjects(c.Request.Context(), tenantID)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}
	if count >= int64(tenant.MaxProjects) {
		respondErr(c, http.StatusForbidden, "Project limit reached")
		return
	}

	project := &model.Project{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		CreatedBy:   identity.UserID,
	}
	if err := h.stores.Projects.Create(c.Request.Context(), project); err != nil {
		h.logger.Error("project create failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	userID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   &tenantID,
		UserID:     &userID,
		Action:     "CREATE_PROJECT",
		EntityType: "project",
		EntityID:   project.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusCreated, project, "")
}

func (h *ProjectHandler) List(c *gin.Context) {
	identity, ok := tenantMember(c)
	if !ok {
		return
	}

	filter := store.ProjectFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   parsePage(c),
		Limit:  parseLimit(c, 20),
	}

	summaries, total, err := h.stores.Projects.List(c.Request.Context(), *identity.TenantID, filter)
	if err != nil {
		h.logger.Error("project list failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	projects := make([]gin.H, 0, len(summaries))
	for _, s := range summaries {
		projects = append(projects, gin.H{
			"id":                 s.Project.ID,
			"name":               s.Project.Name,
			"description":        s.Project.Description,
			"status":             s.Project.Status,
			"createdBy":          gin.H{"id": s.CreatorID, "fullName": s.CreatorName},
			"taskCount":          s.TaskCount,
			"completedTaskCount": s.CompletedTaskCount,
			"createdAt":          s.Project.CreatedAt,
		})
	}

	respond(c, http.StatusOK, gin.H{
		"projects":   projects,
		"total":      total,
		"pagination": paginate(total, filter.Page, filter.Limit),
	}, "")
}

// loadMutableProject loads a project and applies the mutation policy: same
// tenant, and tenant_admin or creator.
func (h *ProjectHandler) loadMutableProject(c *gin.Context, identity auth.Identity) (*model.Project, bool) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "Project not found")
		return nil, false
	}

	project, err := h.stores.Projects.GetByID(c.Request.Context(), projectID)
	if err != nil {
		storeErr(c, err, "Project not found")
		return nil, false
	}

	if !authz.TenantMatch(identity, project.TenantID) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	if !authz.CanMutateProject(identity, project.TenantID, project.CreatedBy) {
		respondErr(c, http.StatusForbidden, "Not authorized")
		return nil, false
	}

	return project, true
}

type updateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
}

func (h *ProjectHandler) Update(c *gin.Context) {
	identity, ok := tenantMember(c)
	if !ok {
		return
	}

	// An explicit null clears description; an absent key leaves it alone.
	var req updateProjectRequest
	keys, err := bindPartial(c, &req)
	if err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}

	project, ok := h.loadMutableProject(c, identity)
	if !ok {
		return
	}

	fields := map[string]interface{}{}
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if _, set := keys["description"]; set {
		if req.Description == nil {
			fields["description"] = ""
		} else {
			fields["description"] = *req.Description
		}
	}
	if req.Status != "" {
		fields["status"] = req.Status
	}
	if len(fields) == 0 {
		respondErr(c, http.StatusBadRequest, "No fields to update")
		return
	}

	updated, err := h.stores.Projects.Update(c.Request.Context(), project.ID, fields)
	if err != nil {
		storeErr(c, err, "Project not found")
		return
	}

	userID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   &project.TenantID,
		UserID:     &userID,
		Action:     "UPDATE_PROJECT",
		EntityType: "project",
		EntityID:   project.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusOK, updated, "Project updated successfully")
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	identity, ok := tenantMember(c)
	if !ok {
		return
	}

	project, ok := h.loadMutableProject(c, identity)
	if !ok {
		return
	}

	if err := h.stores.Projects.Delete(c.Request.Context(), project.ID); err != nil {
		h.logger.Error("project delete failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	userID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   &project.TenantID,
		UserID:     &userID,
		Action:     "DELETE_PROJECT",
		EntityType: "project",
		EntityID:   project.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusOK, nil, "Project deleted successfully")
}
