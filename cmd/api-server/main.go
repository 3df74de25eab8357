package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tenantdesk/tenantdesk/pkg/apiserver"
	"github.com/tenantdesk/tenantdesk/pkg/audit"
	"github.com/tenantdesk/tenantdesk/pkg/auth"
	"github.com/tenantdesk/tenantdesk/pkg/config"
	"github.com/tenantdesk/tenantdesk/pkg/lifecycle"
	"github.com/tenantdesk/tenantdesk/pkg/model"
	"github.com/tenantdesk/tenantdesk/pkg/store"
	"github.com/tenantdesk/tenantdesk/pkg/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := buildLogger(&cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	state := lifecycle.NewState()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		state.Set(lifecycle.Failed)
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		state.Set(lifecycle.Failed)
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	stores := db.Stores()

	if err := seedSuperAdmin(context.Background(), stores, &cfg.Bootstrap, logger); err != nil {
		state.Set(lifecycle.Failed)
		logger.Fatal("Failed to seed super admin", zap.Error(err))
	}

	recorder, err := audit.New(&cfg.Audit, &cfg.Redis, stores.Audit, logger)
	if err != nil {
		state.Set(lifecycle.Failed)
		logger.Fatal("Failed to start audit recorder", zap.Error(err))
	}
	defer recorder.Close()

	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	server := apiserver.NewServer(stores, db, tokens, recorder, state, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	state.Set(lifecycle.Ready)

	go func() {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func buildLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

// seedSuperAdmin creates the global super admin on first boot. An existing
// account with the configured email is left untouched.
func seedSuperAdmin(ctx context.Context, stores store.Stores, cfg *config.BootstrapConfig, logger *zap.Logger) error {
	if cfg.SuperAdminEmail == "" {
		return nil
	}
	if cfg.SuperAdminPassword == "" {
		return errors.New("bootstrap: super_admin_password is required when super_admin_email is set")
	}

	_, err := stores.Users.GetSuperAdminByEmail(ctx, cfg.SuperAdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	passwordHash, err := auth.HashPassword(cfg.SuperAdminPassword)
	if err != nil {
		return err
	}

	admin := &model.User{
		Email:        cfg.SuperAdminEmail,
		PasswordHash: passwordHash,
		FullName:     cfg.SuperAdminName,
		Role:         model.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := stores.Users.Create(ctx, admin); err != nil {
		return err
	}

	logger.Info("Seeded super admin", zap.String("email", cfg.SuperAdminEmail))
	return nil
}
