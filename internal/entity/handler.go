package entity

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lodestone-cms/lodestone/internal/auth"
	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/server"
	"github.com/lodestone-cms/lodestone/internal/storage"
)

// maxBodySize is the maximum allowed request body size (1 MiB).
const maxBodySize = 1 << 20

// Handler provides HTTP handlers for entity value operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new entity value Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// langcode returns the requested language code, defaulting to the
// undetermined language.
func langcode(r *http.Request) string {
	if lc := r.URL.Query().Get("langcode"); lc != "" {
		return lc
	}
	return storage.DefaultLangcode
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
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		var details []server.FieldError
		for name, messages := range valErr.Errors {
			for _, msg := range messages {
				details = append(details, server.FieldError{Field: name, Message: msg})
			}
		}
		server.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Validation failed", details)
		return
	}
	if errors.Is(err, field.ErrNotFound) {
		server.Error(w, http.StatusNotFound, "NOT_FOUND", "field definition not found", nil)
		return
	}
	if errors.Is(err, storage.ErrRevisionNotFound) {
		server.Error(w, http.StatusNotFound, "NOT_FOUND", "revision not found", nil)
		return
	}
	slog.Error("entity service error", "error", err)
	server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"an internal error occurred", nil)
}

// Get handles GET /admin/api/values/{entityType}/{entityID}. The mode query
// parameter selects form shape (default) or display strings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	if r.URL.Query().Get("mode") == "display" {
		values, err := h.service.Display(r.Context(), entityType, entityID, langcode(r))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		server.JSON(w, http.StatusOK, values)
		return
	}

	values, err := h.service.Values(r.Context(), entityType, entityID, langcode(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	server.JSON(w, http.StatusOK, values)
}

// Put handles PUT /admin/api/values/{entityType}/{entityID}. The body is a
// JSON object keyed by machine name.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	var input map[string]any
	if !decodeBody(w, r, &input) {
		return
	}

	err := h.service.SetValues(r.Context(), entityType, entityID, langcode(r), input, auth.AdminIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	values, err := h.service.Values(r.Context(), entityType, entityID, langcode(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	server.JSON(w, http.StatusOK, values)
}

// Delete handles DELETE /admin/api/values/{entityType}/{entityID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	err := h.service.DeleteValues(r.Context(), entityType, entityID, auth.AdminIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// revisionRequest is the JSON body for revision creation.
type revisionRequest struct {
	Log string `json:"log"`
}

// CreateRevision handles POST /admin/api/values/{entityType}/{entityID}/revisions.
func (h *Handler) CreateRevision(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	var req revisionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	revisionID, err := h.service.CreateRevision(r.Context(), entityType, entityID, langcode(r),
		auth.AdminIDFromContext(r.Context()), req.Log)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	server.JSON(w, http.StatusCreated, map[string]string{"revision_id": revisionID})
}

// RestoreRevision handles POST /admin/api/values/{entityType}/{entityID}/revisions/{revisionID}/restore.
func (h *Handler) RestoreRevision(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")
	revisionID := chi.URLParam(r, "revisionID")

	err := h.service.RestoreRevision(r.Context(), entityType, entityID, langcode(r), revisionID,
		auth.AdminIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	values, err := h.service.Values(r.Context(), entityType, entityID, langcode(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	server.JSON(w, http.StatusOK, values)
}

// validateResponse reports per-field validation errors. Fields that pass
// are omitted; an empty errors map means everything validated.
type validateResponse struct {
	Valid  bool                `json:"valid"`
	Errors map[string][]string `json:"errors"`
}

// Validate handles POST /admin/api/values/{entityType}/validate. It checks
// submitted values against every field definition of the entity type
// without persisting anything, reporting all failures at once.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")

	var input map[string]any
	if !decodeBody(w, r, &input) {
		return
	}

	fieldErrors, err := h.service.Validate(r.Context(), entityType, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if fieldErrors == nil {
		fieldErrors = map[string][]string{}
	}

	server.JSON(w, http.StatusOK, validateResponse{
		Valid:  len(fieldErrors) == 0,
		Errors: fieldErrors,
	})
}
