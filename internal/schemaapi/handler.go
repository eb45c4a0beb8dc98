// Package schemaapi provides HTTP handlers for schema management
// operations. It is separated from the schema package to avoid import
// cycles, since the handler depends on the server, auth, and audit packages.
package schemaapi

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/lodestone-cms/lodestone/internal/audit"
	"github.com/lodestone-cms/lodestone/internal/auth"
	"github.com/lodestone-cms/lodestone/internal/schema"
	"github.com/lodestone-cms/lodestone/internal/server"
)

// Handler provides HTTP handlers for schema management operations.
type Handler struct {
	engine    *schema.Engine
	schemaDir string
	audit     *audit.Service

	// mu protects registry during concurrent syncs. Schema syncs are rare
	// admin operations, but we still guard against concurrent access.
	mu       sync.RWMutex
	registry *schema.Registry

	// onSync is called after a successful sync with the new entity types.
	// This allows the server to update other components that hold entity
	// type registries.
	onSync func(types []schema.EntityType)
}

// NewHandler creates a new schema Handler.
// The audit service is optional; if nil, audit events are silently skipped.
// The onSync callback is optional; if nil, only the handler's own registry
// is updated on sync.
func NewHandler(engine *schema.Engine, schemaDir string, registry *schema.Registry, auditSvc *audit.Service, onSync func([]schema.EntityType)) *Handler {
	return &Handler{
		engine:    engine,
		schemaDir: schemaDir,
		audit:     auditSvc,
		registry:  registry,
		onSync:    onSync,
	}
}

// Registry returns the current entity type registry. Safe for concurrent
// reads because the registry reference is only replaced, never mutated.
func (h *Handler) Registry() *schema.Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.registry
}

// Sync handles POST /admin/api/schema/sync. It reloads entity type
// declarations from disk, diffs against the database, and applies changes.
// Breaking changes block the entire sync and result in a 409 Conflict
// response unless the force query parameter is set.
//
// Response on success (200):
//
//	{"data": {"applied": [...], "new_types": [...], "updated_types": [...]}}
//
// Response on breaking changes (409):
//
//	{"error": {"code": "BREAKING_CHANGES", "message": "...", "details": [...]}}
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	result, types, err := h.engine.Refresh(r.Context(), h.schemaDir, force)
	if err != nil {
		slog.Error("schema sync failed", "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"schema sync failed: "+err.Error(), nil)
		return
	}

	// If there are breaking changes, the sync was blocked. Return 409 with
	// details. Do NOT update the in-memory registry because the database
	// state was not modified.
	if len(result.Breaking) > 0 {
		details := make([]server.FieldError, 0, len(result.Breaking))
		for _, c := range result.Breaking {
			details = append(details, server.FieldError{
				Field:   c.Table + "." + c.Column,
				Message: c.Detail,
			})
		}

		server.Error(w, http.StatusConflict, "BREAKING_CHANGES",
			"schema sync blocked due to breaking changes", details)
		return
	}

	// Success: changes were applied (or there were none). Swap the registry
	// and notify other components.
	if types != nil {
		newRegistry := schema.NewRegistry(types)

		h.mu.Lock()
		h.registry = newRegistry
		h.mu.Unlock()

		if h.onSync != nil {
			h.onSync(types)
		}
	}

	if h.audit != nil {
		h.audit.Log(r.Context(), audit.Event{
			Action:  "schema.sync",
			ActorID: auth.AdminIDFromContext(r.Context()),
			Payload: map[string]any{
				"applied_count": len(result.Applied),
				"new_types":     result.NewTypes,
				"updated_types": result.UpdatedTypes,
			},
		})
	}

	type changeResponse struct {
		Type   string `json:"type"`
		Table  string `json:"table"`
		Column string `json:"column,omitempty"`
		Detail string `json:"detail"`
		Safe   bool   `json:"safe"`
	}

	appliedResp := make([]changeResponse, 0, len(result.Applied))
	for _, c := range result.Applied {
		appliedResp = append(appliedResp, changeResponse{
			Type:   string(c.Type),
			Table:  c.Table,
			Column: c.Column,
			Detail: c.Detail,
			Safe:   c.Safe,
		})
	}

	server.JSON(w, http.StatusOK, map[string]any{
		"applied":       appliedResp,
		"new_types":     result.NewTypes,
		"updated_types": result.UpdatedTypes,
	})
}

// SQL handles GET /admin/api/schema/sql/{name}. It returns the generated
// DDL for a single entity type without touching the database, for review
// before a sync.
func (h *Handler) SQL(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	et, err := h.Registry().Get(name)
	if err != nil {
		server.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		return
	}

	sql, err := schema.GenerateSQL(et)
	if err != nil {
		slog.Error("DDL generation failed", "entity_type", name, "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"DDL generation failed", nil)
		return
	}

	server.JSON(w, http.StatusOK, map[string]any{
		"entity_type": name,
		"sql":         sql,
	})
}

// SQLAll handles GET /admin/api/schema/sql. It returns the full DDL batch
// for every registered entity type.
func (h *Handler) SQLAll(w http.ResponseWriter, r *http.Request) {
	sql, err := schema.GenerateAllSQL(h.Registry())
	if err != nil {
		slog.Error("DDL generation failed", "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"DDL generation failed", nil)
		return
	}

	server.JSON(w, http.StatusOK, map[string]any{"sql": sql})
}
