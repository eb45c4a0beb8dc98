package field

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lodestone-cms/lodestone/internal/auth"
	"github.com/lodestone-cms/lodestone/internal/server"
)

// maxBodySize is the maximum allowed request body size (1 MiB).
const maxBodySize = 1 << 20

// Handler provides HTTP handlers for field definition management.
type Handler struct {
	service *Service
}

// NewHandler creates a new field definition Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// definitionRequest is the JSON body for create and update operations.
type definitionRequest struct {
	EntityType  string         `json:"entity_type"`
	MachineName string         `json:"machine_name"`
	Name        string         `json:"name"`
	Kind        Kind           `json:"kind"`
	Required    bool           `json:"required"`
	Cardinality int            `json:"cardinality"`
	Settings    Settings       `json:"settings"`
	Validation  map[string]any `json:"validation"`
	Description string         `json:"description"`
	WidgetID    string         `json:"widget_id"`
}

func (req definitionRequest) toDefinition() Definition {
	return Definition{
		EntityType:  req.EntityType,
		MachineName: req.MachineName,
		Name:        req.Name,
		Kind:        req.Kind,
		Required:    req.Required,
		Cardinality: req.Cardinality,
		Settings:    req.Settings,
		Validation:  req.Validation,
		Description: req.Description,
		WidgetID:    req.WidgetID,
	}
}

// decodeBody reads and decodes a JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		server.Error(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid or too-large JSON body", nil)
		return false
	}
	return true
}

// handleServiceError writes the appropriate error response for service errors.
func handleServiceError(w http.ResponseWriter, err error) {
	var defErr *DefinitionError
	if errors.As(err, &defErr) {
		details := make([]server.FieldError, len(defErr.Problems))
		for i, p := range defErr.Problems {
			details[i] = server.FieldError{Field: "definition", Message: p}
		}
		server.Error(w, http.StatusBadRequest, "INVALID_DEFINITION",
			"field definition failed validation", details)
		return
	}
	if errors.Is(err, ErrNotFound) {
		server.Error(w, http.StatusNotFound, "NOT_FOUND", "field definition not found", nil)
		return
	}
	if errors.Is(err, ErrMachineNameTaken) {
		server.Error(w, http.StatusConflict, "MACHINE_NAME_TAKEN",
			"machine name already in use for this entity type", nil)
		return
	}
	slog.Error("field service error", "error", err)
	server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"an internal error occurred", nil)
}

// List handles GET /admin/api/fields. The optional entity_type query
// parameter filters by entity type.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")

	defs, err := h.service.List(r.Context(), entityType)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if defs == nil {
		defs = []Definition{}
	}

	server.JSON(w, http.StatusOK, defs)
}

// Get handles GET /admin/api/fields/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	def, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	server.JSON(w, http.StatusOK, def)
}

// Create handles POST /admin/api/fields.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	def, err := h.service.Create(r.Context(), req.toDefinition(), auth.AdminIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	server.JSON(w, http.StatusCreated, def)
}

// Update handles PUT /admin/api/fields/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	def, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.toDefinition(), auth.AdminIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	server.JSON(w, http.StatusOK, def)
}

// Delete handles DELETE /admin/api/fields/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), auth.AdminIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
