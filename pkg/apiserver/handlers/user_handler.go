package handlers

import (
	"errors"
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

type UserHandler struct {
	stores   store.Stores
	recorder audit.Recorder
	logger   *zap.Logger
}

func NewUserHandler(stores store.Stores, recorder audit.Recorder, logger *zap.Logger) *UserHandler {
	return &UserHandler{stores: stores, recorder: recorder, logger: logger}
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Role     string `json:"role"`
}

func (h *UserHandler) Create(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondErr(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if !authz.RoleAllowed(identity, model.RoleTenantAdmin) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return
	}

	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "Tenant not found")
		return
	}
	if !authz.TenantMatch(identity, tenantID) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}
	if req.Role == "" {
		req.Role = string(model.RoleUser)
	}
	role := model.Role(req.Role)
	if !model.ValidTenantRole(role) {
		respondErr(c, http.StatusBadRequest, "Invalid role")
		return
	}

	tenant, err := h.stores.Tenants.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		storeErr(c, err, "Tenant not found")
		return
	}

	count, err := h.stores.Tenants.CountUsers(c.Request.Context(), tenantID)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}
	if count >= int64(tenant.MaxUsers) {
		respondErr(c, http.StatusForbidden, "Subscription limit reached")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	user := &model.User{
		TenantID:     &tenantID,
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Role:         role,
		IsActive:     true,
	}
	if err := h.stores.Users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondErr(c, http.StatusConflict, "Email already exists in this tenant")
			return
		}
		h.logger.Error("user create failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	actorID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   &tenantID,
		UserID:     &actorID,
		Action:     "CREATE_USER",
		EntityType: "user",
		EntityID:   user.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusCreated, user, "User created successfully")
}

func (h *UserHandler) List(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondErr(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "Tenant not found")
		return
	}
	if !authz.TenantMatch(identity, tenantID) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return
	}

	filter := store.UserFilter{
		Search: c.Query("search"),
		Role:   model.Role(c.Query("role")),
		Page:   parsePage(c),
		Limit:  parseLimit(c, 50),
	}

	users, total, err := h.stores.Users.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.logger.Error("user list failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	respond(c, http.StatusOK, gin.H{
		"users":      users,
		"total":      total,
		"pagination": paginate(total, filter.Page, filter.Limit),
	}, "")
}

type updateUserRequest struct {
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	IsActive *bool  `json:"isActive"`
}

func (h *UserHandler) Update(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondErr(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "User not found")
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}

	user, err := h.stores.Users.GetByID(c.Request.Context(), userID)
	if err != nil {
		storeErr(c, err, "User not found")
		return
	}

	// Global super admins have no tenant; only another super_admin passes
	// the match for them.
	if user.TenantID == nil {
		if !authz.IsSuperAdmin(identity) {
			respondErr(c, http.StatusForbidden, "Forbidden")
			return
		}
	} else if !authz.TenantMatch(identity, *user.TenantID) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return
	}

	// Fields the caller lacks permission for are skipped, not rejected; a
	// request left with nothing permitted is refused outright.
	fields := map[string]interface{}{}
	if req.FullName != "" && authz.CanEditUserFullName(identity, user.ID) {
		fields["full_name"] = req.FullName
	}
	if req.Role != "" && authz.CanEditUserRoleOrActive(identity) {
		role := model.Role(req.Role)
		if !model.ValidTenantRole(role) {
			respondErr(c, http.StatusBadRequest, "Invalid role")
			return
		}
		fields["role"] = role
	}
	if req.IsActive != nil && authz.CanEditUserRoleOrActive(identity) {
		fields["is_active"] = *req.IsActive
	}

	if len(fields) == 0 {
		respondErr(c, http.StatusForbidden, "Not authorized")
		return
	}

	updated, err := h.stores.Users.Update(c.Request.Context(), user.ID, fields)
	if err != nil {
		storeErr(c, err, "User not found")
		return
	}

	actorID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   user.TenantID,
		UserID:     &actorID,
		Action:     "UPDATE_USER",
		EntityType: "user",
		EntityID:   user.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusOK, gin.H{
		"id":        updated.ID,
		"fullName":  updated.FullName,
		"role":      updated.Role,
		"isActive":  updated.IsActive,
		"updatedAt": updated.UpdatedAt,
	}, "User updated successfully")
}

func (h *UserHandler) Delete(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondErr(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if !authz.RoleAllowed(identity, model.RoleTenantAdmin) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, http.StatusNotFound, "User not found")
		return
	}

	user, err := h.stores.Users.GetByID(c.Request.Context(), userID)
	if err != nil {
		storeErr(c, err, "User not found")
		return
	}
	if user.TenantID == nil || !authz.TenantMatch(identity, *user.TenantID) {
		respondErr(c, http.StatusForbidden, "Forbidden")
		return
	}
	if identity.UserID == user.ID {
		respondErr(c, http.StatusForbidden, "Cannot delete self")
		return
	}

	if err := h.stores.Users.Delete(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("user delete failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	actorID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   user.TenantID,
		UserID:     &actorID,
		Action:     "DELETE_USER",
		EntityType: "user",
		EntityID:   user.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusOK, nil, "User deleted successfully")
}
