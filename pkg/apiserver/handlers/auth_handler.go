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
	"github.com/tenantdesk/tenantdesk/pkg/metrics"
	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

type AuthHandler struct {
	stores   store.Stores
	tokens   *auth.TokenManager
	recorder audit.Recorder
	logger   *zap.Logger
}

func NewAuthHandler(stores store.Stores, tokens *auth.TokenManager, recorder audit.Recorder, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{stores: stores, tokens: tokens, recorder: recorder, logger: logger}
}

type registerTenantRequest struct {
	TenantName    string `json:"tenantName" binding:"required"`
	Subdomain     string `json:"subdomain" binding:"required"`
	AdminEmail    string `json:"adminEmail" binding:"required,email"`
	AdminPassword string `json:"adminPassword" binding:"required"`
	AdminFullName string `json:"adminFullName" binding:"required"`
}

func (h *AuthHandler) RegisterTenant(c *gin.Context) {
	var req registerTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}

	passwordHash, err := auth.HashPassword(req.AdminPassword)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	quota := model.PlanDefaults(model.PlanFree)
	tenant := &model.Tenant{
		Name:             req.TenantName,
		Subdomain:        req.Subdomain,
		Status:           model.TenantActive,
		SubscriptionPlan: model.PlanFree,
		MaxUsers:         quota.MaxUsers,
		MaxProjects:      quota.MaxProjects,
	}
	admin := &model.User{
		Email:        req.AdminEmail,
		PasswordHash: passwordHash,
		FullName:     req.AdminFullName,
		Role:         model.RoleTenantAdmin,
		IsActive:     true,
	}

	if err := h.stores.Tenants.RegisterTenant(c.Request.Context(), tenant, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondErr(c, http.StatusConflict, "Subdomain already exists")
			return
		}
		h.logger.Error("tenant registration failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal error")
		return
	}

	h.recorder.Record(model.AuditLog{
		TenantID:   &tenant.ID,
		Action:     "REGISTER_TENANT",
		EntityType: "tenant",
		EntityID:   tenant.ID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusCreated, gin.H{
		"tenantId":  tenant.ID,
		"subdomain": tenant.Subdomain,
		"adminUser": gin.H{
			"id":       admin.ID,
			"email":    admin.Email,
			"fullName": admin.FullName,
			"role":     admin.Role,
		},
	}, "Tenant registered successfully")
}

type loginRequest struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	TenantSubdomain string `json:"tenantSubdomain"`
	TenantID        string `json:"tenantId"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Validation errors")
		return
	}

	// Global super admin path first: no tenant selector required.
	superAdmin, err := h.stores.Users.GetSuperAdminByEmail(c.Request.Context(), req.Email)
	if err == nil {
		h.loginUser(c, superAdmin, req.Password)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		respondErr(c, http.StatusInternalServerError, "Internal server error occurred")
		return
	}

	tenant, ok := h.resolveTenant(c, req)
	if !ok {
		return
	}
	if tenant.Status != model.TenantActive {
		respondErr(c, http.StatusForbidden, "Account suspended/inactive")
		return
	}

	user, err := h.stores.Users.GetByTenantEmail(c.Request.Context(), tenant.ID, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.AuthFailuresTotal.WithLabelValues("unknown_user").Inc()
			respondErr(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondErr(c, http.StatusInternalServerError, "Internal server error occurred")
		return
	}

	h.loginUser(c, user, req.Password)
}

// resolveTenant requires exactly one of tenantSubdomain and tenantId.
func (h *AuthHandler) resolveTenant(c *gin.Context, req loginRequest) (*model.Tenant, bool) {
	if (req.TenantSubdomain == "") == (req.TenantID == "") {
		respondErr(c, http.StatusBadRequest, "Tenant identifier required")
		return nil, false
	}

	var (
		tenant *model.Tenant
		err    error
	)
	if req.TenantSubdomain != "" {
		tenant, err = h.stores.Tenants.GetBySubdomain(c.Request.Context(), req.TenantSubdomain)
	} else {
		tenantID, parseErr := uuid.Parse(req.TenantID)
		if parseErr != nil {
			respondErr(c, http.StatusNotFound, "Tenant not found")
			return nil, false
		}
		tenant, err = h.stores.Tenants.GetByID(c.Request.Context(), tenantID)
	}
	if err != nil {
		storeErr(c, err, "Tenant not found")
		return nil, false
	}
	return tenant, true
}

func (h *AuthHandler) loginUser(c *gin.Context, user *model.User, password string) {
	if !user.IsActive {
		respondErr(c, http.StatusForbidden, "Account suspended/inactive")
		return
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		metrics.AuthFailuresTotal.WithLabelValues("bad_password").Inc()
		respondErr(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	identity := auth.Identity{UserID: user.ID, TenantID: user.TenantID, Role: user.Role}
	token, err := h.tokens.Generate(identity)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		respondErr(c, http.StatusInternalServerError, "Internal server error occurred")
		return
	}

	metrics.LoginsTotal.Inc()

	respond(c, http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"email":    user.Email,
			"fullName": user.FullName,
			"role":     user.Role,
			"tenantId": user.TenantID,
		},
		"token":     token,
		"expiresIn": int(h.tokens.TTL().Seconds()),
	}, "")
}

func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondErr(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.stores.Users.GetByID(c.Request.Context(), identity.UserID)
	if err != nil {
		storeErr(c, err, "User not found")
		return
	}

	var tenantBlock gin.H
	if identity.TenantID != nil {
		tenant, err := h.stores.Tenants.GetByID(c.Request.Context(), *identity.TenantID)
		if err == nil {
			tenantBlock = gin.H{
				"id":               tenant.ID,
				"name":             tenant.Name,
				"subdomain":        tenant.Subdomain,
				"subscriptionPlan": tenant.SubscriptionPlan,
				"maxUsers":         tenant.MaxUsers,
				"maxProjects":      tenant.MaxProjects,
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			respondErr(c, http.StatusInternalServerError, "Internal error")
			return
		}
	}

	respond(c, http.StatusOK, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"fullName": user.FullName,
		"role":     user.Role,
		"isActive": user.IsActive,
		"tenant":   tenantBlock,
	}, "")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondErr(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID := identity.UserID
	h.recorder.Record(model.AuditLog{
		TenantID:   identity.TenantID,
		UserID:     &userID,
		Action:     "LOGOUT",
		EntityType: "user",
		EntityID:   userID.String(),
		IPAddress:  c.ClientIP(),
	})

	respond(c, http.StatusOK, nil, "Logged out successfully")
}
