package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenantdesk/tenantdesk/pkg/apiserver/middleware"
	"github.com/tenantdesk/tenantdesk/pkg/audit"
	"github.com/tenantdesk/tenantdesk/pkg/authz"
	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

type TenantHandler struct {
	stores   store.Stores
	recorder audit.Recorder
	logger   *zap.Logger
}

func NewTenantHandler(stores store.Stores, recorder audit.Recorder, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{stores: stores, recorder: recorder, logger: logger}
}

func (h *TenantHandler) List(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok || !authz.IsSuperAdmin(identity) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return
	}

	filter := store.TenantFilter{
		Status: c.Query("status"),
		Plan:   c.Query("subscriptionPlan"),
		Page:   parsePage(c),
		Limit:  parseLimit(c, 10),
	}

	tenants, total, err := h.stores.Tenants.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("tenant list failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal server error occurred")
		return
	}

	items := make([]gin.H, 0, len(tenants))
	for _, t := range tenants {
		items = append(items, gin.H{
			"id":               t.Tenant.ID,
			"name":             t.Tenant.Name,
			"subdomain":        t.Tenant.Subdomain,
			"status":           t.Tenant.Status,
			"subscriptionPlan": t.Tenant.SubscriptionPlan,
			"totalUsers":       t.UserCount,
			"totalProjects":    t.ProjectCount,
			"createdAt":        t.Tenant.CreatedAt,
		})
	}

	page := paginate(total, filter.Page, filter.Limit)
	respond(c, http.StatusOK, gin.H{
		"tenants": items,
		"pagination": gin.H{
			"currentPage":  page.CurrentPage,
			"totalPages":   page.TotalPages,
			"totalTenants": total,
			"limit":        page.Limit,
		},
	}, "")
}

func (h *TenantHandler) Get(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondErr(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "Tenant not found")
		return
	}

	tenant, err := h.stores.Tenants.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		storeErr(c, err, "Tenant not found")
		return
	}

	if !authz.TenantMatch(identity, tenant.ID) {
		respondErr(c, http.StatusForbidden, "Unauthorized access")
		return
	}

	stats, err := h.stores.Tenants.Stats(c.Request.Context(), tenant.ID)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	respond(c, http.StatusOK, gin.H{
		"id":               tenant.ID,
		"name":             tenant.Name,
		"subdomain":        tenant.Subdomain,
		"status":           tenant.Status,
		"subscriptionPlan": tenant.SubscriptionPlan,
		"maxUsers":         tenant.MaxUsers,
		"maxProjects":      tenant.MaxProjects,
		"createdAt":        tenant.CreatedAt,
		"stats": gin.H{
			"totalUsers":    stats.TotalUsers,
			"totalProjects": stats.TotalProjects,
			"totalTasks":    stats.TotalTasks,
		},
	}, "")
}

type updateTenantRequest struct {
	Name             string `json:"name"`
	Status           string `json:"status"`
	SubscriptionPlan string `json:"subscriptionPlan"`
	MaxUsers         *int   `json:"maxUsers"`
	MaxProjects      *int   `json:"maxProjects"`
}

func (h *TenantHandler) Update(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondErr(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "Tenant not found")
		return
	}

	var req updateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}

	tenant, err := h.stores.Tenants.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		storeErr(c, err, "Tenant not found")
		return
	}

	update := authz.TenantUpdate{
		Name:             req.Name != "",
		Status:           req.Status != "",
		SubscriptionPlan: req.SubscriptionPlan != "",
		MaxUsers:         req.MaxUsers != nil,
		MaxProjects:      req.MaxProjects != nil,
	}
	if !authz.CanUpdateTenant(identity, tenant.ID, update) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return
	}

	fields := map[string]interface{}{}
	if update.Name {
		fields["name"] = req.Name
	}
	if update.Status {
		status := model.TenantStatus(req.Status)
		if status != model.TenantActive && status != model.TenantSuspended {
			respondErr(c, http.StatusBadRequest, "Validation errors")
			return
		}
		fields["status"] = status
	}
	if update.SubscriptionPlan {
		plan := model.SubscriptionPlan(req.SubscriptionPlan)
		if plan != model.PlanFree && plan != model.PlanPro && plan != model.PlanEnterprise {
			respondErr(c, http.StatusBadRequest, "Validation errors")
			return
		}
		fields["subscription_plan"] = plan
	}
	if update.MaxUsers {
		fields["max_users"] = *req.MaxUsers
	}
	if update.MaxProjects {
		fields["max_projects"] = *req.MaxProjects
	}

	if len(fields) == 0 {
		respondErr(c, http.StatusBadRequest, "No fields to update")
		return
	}

	updated, err := h.stores.Tenants.Update(c.Request.Context(), tenant.ID, fields)
	if err != nil {
		storeErr(c, err, "Tenant not found")
		return
	}

	userID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   &tenant.ID,
		UserID:     &userID,
		Action:     "UPDATE_TENANT",
		EntityType: "tenant",
		EntityID:   tenant.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusOK, updated, "Tenant updated successfully")
}
