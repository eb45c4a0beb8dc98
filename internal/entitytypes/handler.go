// Package entitytypes provides HTTP handlers for entity type introspection,
// allowing the admin UI to discover declared entity types with their columns,
// relations, and row counts.
package entitytypes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodestone-cms/lodestone/internal/schema"
	"github.com/lodestone-cms/lodestone/internal/server"
)

// ColumnResponse represents a single column in the introspection response.
type ColumnResponse struct {
	Name      string            `json:"name"`
	Type      schema.ColumnType `json:"type"`
	Length    int               `json:"length,omitempty"`
	Precision int               `json:"precision,omitempty"`
	Scale     int               `json:"scale,omitempty"`
	Required  bool              `json:"required"`
	Unique    bool              `json:"unique"`
	Index     bool              `json:"index"`
	Default   string            `json:"default,omitempty"`
}

// RelationResponse represents a relation in the introspection response.
type RelationResponse struct {
	Name   string              `json:"name"`
	Target string              `json:"target"`
	Kind   schema.RelationKind `json:"kind"`
}

// EntityTypeResponse represents an entity type in the introspection API
// response.
type EntityTypeResponse struct {
	Name         string             `json:"name"`
	Label        string             `json:"label"`
	Revisionable bool               `json:"revisionable"`
	Columns      []ColumnResponse   `json:"columns"`
	Relations    []RelationResponse `json:"relations"`
	EntityCount  int                `json:"entity_count"`
}

// Handler provides HTTP handlers for entity type introspection.
type Handler struct {
	pool *pgxpool.Pool

	mu       sync.RWMutex
	registry *schema.Registry
}

// NewHandler creates a new entity types Handler.
func NewHandler(pool *pgxpool.Pool, registry *schema.Registry) *Handler {
	return &Handler{
		pool:     pool,
		registry: registry,
	}
}

// UpdateRegistry replaces the in-memory registry. This is called after a
// schema sync so the handler serves the latest declarations.
func (h *Handler) UpdateRegistry(registry *schema.Registry) {
	h.mu.Lock()
	h.registry = registry
	h.mu.Unlock()
}

// getRegistry returns the current registry with read locking.
func (h *Handler) getRegistry() *schema.Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.registry
}

// List handles GET /admin/api/entity-types.
// Returns all entity types with their declarations and row counts. This
// endpoint is not paginated because the number of entity types is typically
// small and the payload is lightweight.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	types := h.getRegistry().All()

	responses := make([]EntityTypeResponse, 0, len(types))
	for _, et := range types {
		count, err := h.countEntities(r.Context(), et)
		if err != nil {
			// Log the error but continue with count=0 for graceful
			// degradation. A missing count shouldn't block the whole list.
			slog.Error("failed to count entities", "entity_type", et.Name, "error", err)
			count = 0
		}
		responses = append(responses, buildResponse(et, count))
	}

	server.JSON(w, http.StatusOK, responses)
}

// Get handles GET /admin/api/entity-types/{name}.
// Returns a single entity type with its full declaration and row count.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	et, err := h.getRegistry().Get(name)
	if err != nil {
		server.Error(w, http.StatusNotFound, "NOT_FOUND",
			fmt.Sprintf("entity type '%s' not found", name), nil)
		return
	}

	count, err := h.countEntities(r.Context(), et)
	if err != nil {
		slog.Error("failed to count entities", "entity_type", et.Name, "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"failed to retrieve entity count", nil)
		return
	}

	server.JSON(w, http.StatusOK, buildResponse(et, count))
}

// countEntities queries the database for the total number of rows in an
// entity type's table.
func (h *Handler) countEntities(ctx context.Context, et schema.EntityType) (int, error) {
	query := fmt.Sprintf("SELECT count(*) FROM %s", schema.QuoteIdent(et.TableName()))

	var count int
	if err := h.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entities for %s: %w", et.Name, err)
	}
	return count, nil
}

// buildResponse converts a schema.EntityType and row count into the API
// response type.
func buildResponse(et schema.EntityType, entityCount int) EntityTypeResponse {
	columns := make([]ColumnResponse, len(et.Columns))
	for i, c := range et.Columns {
		columns[i] = ColumnResponse{
			Name:      c.Name,
			Type:      c.Type,
			Length:    c.Length,
			Precision: c.Precision,
			Scale:     c.Scale,
			Required:  c.Required,
			Unique:    c.Unique,
			Index:     c.Index,
			Default:   c.Default,
		}
	}

	relations := make([]RelationResponse, len(et.Relations))
	for i, rel := range et.Relations {
		relations[i] = RelationResponse{
			Name:   rel.Name,
			Target: rel.Target,
			Kind:   rel.Kind,
		}
	}

	return EntityTypeResponse{
		Name:         et.Name,
		Label:        et.Label,
		Revisionable: et.Revisionable,
		Columns:      columns,
		Relations:    relations,
		EntityCount:  entityCount,
	}
}
