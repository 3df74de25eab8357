package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tenantdesk/tenantdesk/pkg/apiserver/handlers"
	"github.com/tenantdesk/tenantdesk/pkg/apiserver/middleware"
	"github.com/tenantdesk/tenantdesk/pkg/audit"
	"github.com/tenantdesk/tenantdesk/pkg/auth"
	"github.com/tenantdesk/tenantdesk/pkg/lifecycle"
	"github.com/tenantdesk/tenantdesk/pkg/store"
)

// DBPinger is the slice of the database connection the health probe needs.
type DBPinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	router   *gin.Engine
	stores   store.Stores
	db       DBPinger
	tokens   *auth.TokenManager
	recorder audit.Recorder
	state    *lifecycle.State
	logger   *zap.Logger
}

func NewServer(stores store.Stores, db DBPinger, tokens *auth.TokenManager, recorder audit.Recorder, state *lifecycle.State, logger *zap.Logger) *Server {
	s := &Server{
		stores:   stores,
		db:       db,
		tokens:   tokens,
		recorder: recorder,
		state:    state,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	api := r.Group("/api")

	api.GET("/health", s.health)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api.GET("", middleware.OptionalAuth(s.tokens), s.version)

	authHandler := handlers.NewAuthHandler(s.stores, s.tokens, s.recorder, s.logger)
	api.POST("/auth/register-tenant", authHandler.RegisterTenant)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", middleware.Auth(s.tokens), authHandler.Me)
	api.POST("/auth/logout", middleware.Auth(s.tokens), authHandler.Logout)

	authed := api.Group("", middleware.Auth(s.tokens))

	tenantHandler := handlers.NewTenantHandler(s.stores, s.recorder, s.logger)
	authed.GET("/tenants", tenantHandler.List)
	authed.GET("/tenants/:tenantId", tenantHandler.Get)
	authed.PUT("/tenants/:tenantId", tenantHandler.Update)

	projectHandler := handlers.NewProjectHandler(s.stores, s.recorder, s.logger)
	authed.POST("/projects", projectHandler.Create)
	authed.GET("/projects", projectHandler.List)
	authed.PUT("/projects/:projectId", projectHandler.Update)
	authed.DELETE("/projects/:projectId", projectHandler.Delete)

	taskHandler := handlers.NewTaskHandler(s.stores, s.recorder, s.logger)
	authed.POST("/tasks/projects/:projectId/tasks", taskHandler.Create)
	authed.GET("/tasks/projects/:projectId/tasks", taskHandler.List)
	authed.PATCH("/tasks/:taskId/status", taskHandler.PatchStatus)
	authed.PUT("/tasks/:taskId", taskHandler.Update)

	// The first segment is a tenant id on the collection routes and a user
	// id on the item routes; gin requires one wildcard name per position.
	userHandler := handlers.NewUserHandler(s.stores, s.recorder, s.logger)
	authed.POST("/users/:id/users", userHandler.Create)
	authed.GET("/users/:id/users", userHandler.List)
	authed.PUT("/users/:id", userHandler.Update)
	authed.DELETE("/users/:id", userHandler.Delete)

	s.router = r
}

func (s *Server) version(c *gin.Context) {
	body := gin.H{"success": true, "data": gin.H{"version": "1.0.0"}}
	if identity, ok := middleware.IdentityFrom(c); ok {
		body["data"].(gin.H)["userId"] = identity.UserID
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) health(c *gin.Context) {
	if s.state.Phase() == lifecycle.Failed {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if s.db == nil || s.db.Ping(ctx) != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "database": "disconnected"})
		return
	}

	if s.state.Phase() != lifecycle.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing", "database": "connected"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "connected"})
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
