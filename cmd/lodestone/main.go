// Package main is the entrypoint for the Lodestone server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lodestone-cms/lodestone/internal/audit"
	"github.com/lodestone-cms/lodestone/internal/auth"
	"github.com/lodestone-cms/lodestone/internal/config"
	"github.com/lodestone-cms/lodestone/internal/database"
	"github.com/lodestone-cms/lodestone/internal/entity"
	"github.com/lodestone-cms/lodestone/internal/entitytypes"
	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/render"
	"github.com/lodestone-cms/lodestone/internal/schema"
	"github.com/lodestone-cms/lodestone/internal/schemaapi"
	"github.com/lodestone-cms/lodestone/internal/server"
	"github.com/lodestone-cms/lodestone/internal/storage"
	"github.com/lodestone-cms/lodestone/internal/validation"
	"github.com/lodestone-cms/lodestone/internal/value"
	"github.com/lodestone-cms/lodestone/internal/widget"
)

func main() {
	cfg := config.Load()

	// --- Set up structured logging ---
	logLevel := slog.LevelInfo
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting Lodestone",
		"port", cfg.Port,
		"schema_dir", cfg.SchemaDir,
		"dev_mode", cfg.DevMode,
	)

	// --- Connect to database ---
	if cfg.DatabaseURL == "" {
		slog.Error("LODESTONE_DATABASE_URL is required")
		os.Exit(1)
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	db, err := database.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// --- Run system table migrations ---
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied")

	// --- Load, validate, and apply entity types ---
	types, err := schema.LoadEntityTypes(cfg.SchemaDir)
	if err != nil {
		slog.Error("failed to load entity types", "error", err)
		os.Exit(1)
	}
	slog.Info("entity types loaded", "count", len(types))

	if err := schema.ValidateEntityTypes(types); err != nil {
		slog.Error("entity type validation failed", "error", err)
		os.Exit(1)
	}

	engine := schema.NewEngine(db, cfg.DevMode)

	applyCtx, applyCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer applyCancel()

	if err := engine.Apply(applyCtx, types); err != nil {
		slog.Error("failed to apply entity types", "error", err)
		os.Exit(1)
	}
	slog.Info("entity types applied")

	registry := schema.NewRegistry(types)

	// --- Start audit logging ---
	auditRepo := audit.NewRepository(db)
	auditService := audit.NewService(auditRepo)
	auditService.Start()
	auditHandler := audit.NewHandler(auditService)

	// --- Set up authentication ---
	if cfg.JWTSecret == "" {
		slog.Error("LODESTONE_JWT_SECRET is required")
		os.Exit(1)
	}

	authRepo := auth.NewRepository(db)
	authService := auth.NewService(authRepo, cfg.JWTSecret)

	// Create initial admin if configured and no admins exist yet.
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		adminCtx, adminCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer adminCancel()

		if err := authService.EnsureAdmin(adminCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("failed to ensure initial admin", "error", err)
			os.Exit(1)
		}
	}

	authHandler := auth.NewHandler(authService, auditService, cfg.DevMode)
	authMiddleware := auth.Middleware(cfg.JWTSecret)

	// --- Build the field and value pipeline ---
	fieldRepo := field.NewRepository(db)
	fieldService := field.NewService(fieldRepo, auditService)
	fieldHandler := field.NewHandler(fieldService)

	widgetRegistry := widget.NewRegistry()
	factory := value.NewFactory()
	validator := validation.NewValidator()

	store := storage.NewPostgres(db)
	entityService := entity.NewService(fieldService, store, validator, factory, auditService)
	entityHandler := entity.NewHandler(entityService)

	renderHandler := render.NewHandler(fieldService, widgetRegistry, factory, validator)

	entityTypesHandler := entitytypes.NewHandler(db.Pool(), registry)
	schemaHandler := schemaapi.NewHandler(engine, cfg.SchemaDir, registry, auditService, func(synced []schema.EntityType) {
		entityTypesHandler.UpdateRegistry(schema.NewRegistry(synced))
	})

	// --- Build router and start server ---
	deps := server.Dependencies{
		DB:                 db,
		DevMode:            cfg.DevMode,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		CacheMiddleware:    field.CacheMiddleware,
		FieldHandler:       fieldHandler,
		EntityTypesHandler: entityTypesHandler,
		ValuesHandler:      entityHandler,
		RenderHandler:      renderHandler,
		SchemaHandler:      schemaHandler,
		AuditHandler:       auditHandler,
	}

	router := server.NewRouter(deps)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := server.New(addr, router)

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.Start()
	}()

	// --- Graceful shutdown on SIGINT/SIGTERM ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down server (30s timeout)...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	auditService.Shutdown(shutdownCtx)

	slog.Info("Lodestone stopped")
}
