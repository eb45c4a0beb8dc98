// Package render exposes the widget rendering pipeline over HTTP: resolving
// a widget per field definition, shaping the value for editing, and
// returning the rendered markup with its assets.
package render

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/server"
	"github.com/lodestone-cms/lodestone/internal/validation"
	"github.com/lodestone-cms/lodestone/internal/value"
	"github.com/lodestone-cms/lodestone/internal/widget"
)

// maxBodySize is the maximum allowed request body size (1 MiB).
const maxBodySize = 1 << 20

// DefinitionSource yields field definitions by entity type or id. It is
// satisfied by the field definition service.
type DefinitionSource interface {
	ForEntityType(ctx context.Context, entityType string) ([]field.Definition, error)
	GetByID(ctx context.Context, id string) (field.Definition, error)
}

// Handler provides HTTP handlers for widget rendering.
type Handler struct {
	fields    DefinitionSource
	widgets   *widget.Registry
	factory   *value.Factory
	validator *validation.Validator
}

// NewHandler creates a new render Handler.
func NewHandler(fields DefinitionSource, widgets *widget.Registry, factory *value.Factory, validator *validation.Validator) *Handler {
	return &Handler{
		fields:    fields,
		widgets:   widgets,
		factory:   factory,
		validator: validator,
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

// renderContext builds a widget render context from request fields.
func renderContext(mode string, viewMode string) widget.RenderContext {
	ctx := widget.EditContext()
	if mode == string(widget.ModeDisplay) {
		ctx = widget.DisplayContext()
	}
	if viewMode != "" {
		ctx.ViewMode = viewMode
	}
	return ctx
}

// fieldRequest is the JSON body for single-field rendering.
type fieldRequest struct {
	EntityType  string `json:"entity_type"`
	MachineName string `json:"machine_name"`
	Value       any    `json:"value"`
	Mode        string `json:"mode"`
	ViewMode    string `json:"view_mode"`
}

// fieldResponse is the rendered output of one field.
type fieldResponse struct {
	MachineName string   `json:"machine_name"`
	WidgetID    string   `json:"widget_id"`
	HTML        string   `json:"html"`
	CSS         []string `json:"css,omitempty"`
	JS          []string `json:"js,omitempty"`
}

// renderOne resolves the widget for a definition and renders a value.
func (h *Handler) renderOne(def field.Definition, raw any, ctx widget.RenderContext) fieldResponse {
	wdg := h.widgets.ForField(def)

	v := value.New(raw, def.Kind)
	v = wdg.FormatValue(def, v)

	var result widget.RenderResult
	if ctx.Mode == widget.ModeDisplay {
		result = wdg.RenderDisplay(def, v, ctx)
	} else {
		result = wdg.Render(def, v, ctx)
	}

	return fieldResponse{
		MachineName: def.MachineName,
		WidgetID:    wdg.ID(),
		HTML:        result.HTML,
		CSS:         result.CSS,
		JS:          result.JS,
	}
}

// Field handles POST /admin/api/render/field. It renders one field of an
// entity type with the submitted value.
func (h *Handler) Field(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.EntityType == "" || req.MachineName == "" {
		server.Error(w, http.StatusBadRequest, "INVALID_PARAMS",
			"entity_type and machine_name are required", nil)
		return
	}

	defs, err := h.fields.ForEntityType(r.Context(), req.EntityType)
	if err != nil {
		h.handleError(w, err)
		return
	}

	for _, def := range defs {
		if def.MachineName != req.MachineName {
			continue
		}
		server.JSON(w, http.StatusOK, h.renderOne(def, req.Value, renderContext(req.Mode, req.ViewMode)))
		return
	}

	server.Error(w, http.StatusNotFound, "NOT_FOUND", "field not found on entity type", nil)
}

// formRequest is the JSON body for whole-form rendering.
type formRequest struct {
	EntityType string         `json:"entity_type"`
	Values     map[string]any `json:"values"`
	Mode       string         `json:"mode"`
	ViewMode   string         `json:"view_mode"`
}

// Form handles POST /admin/api/render/form. It renders every field of an
// entity type in definition order, using submitted values where present.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.EntityType == "" {
		server.Error(w, http.StatusBadRequest, "INVALID_PARAMS", "entity_type is required", nil)
		return
	}

	defs, err := h.fields.ForEntityType(r.Context(), req.EntityType)
	if err != nil {
		h.handleError(w, err)
		return
	}

	ctx := renderContext(req.Mode, req.ViewMode)
	responses := make([]fieldResponse, 0, len(defs))
	for _, def := range defs {
		responses = append(responses, h.renderOne(def, req.Values[def.MachineName], ctx))
	}

	server.JSON(w, http.StatusOK, responses)
}

// widgetResponse describes one registered widget.
type widgetResponse struct {
	ID             string            `json:"id"`
	Label          string            `json:"label"`
	Category       string            `json:"category"`
	SupportedKinds []field.Kind      `json:"supported_kinds"`
	SettingsSchema map[string]string `json:"settings_schema"`
}

// Widgets handles GET /admin/api/widgets. It lists all registered widgets
// sorted by category and id. The kind query parameter filters to widgets
// supporting one field kind.
func (h *Handler) Widgets(w http.ResponseWriter, r *http.Request) {
	var widgets []widget.Widget
	if kind := r.URL.Query().Get("kind"); kind != "" {
		widgets = h.widgets.ForKind(field.Kind(kind))
	} else {
		widgets = h.widgets.All()
	}

	responses := make([]widgetResponse, 0, len(widgets))
	for _, wdg := range widgets {
		responses = append(responses, widgetResponse{
			ID:             wdg.ID(),
			Label:          wdg.Label(),
			Category:       wdg.Category(),
			SupportedKinds: wdg.SupportedKinds(),
			SettingsSchema: wdg.SettingsSchema(),
		})
	}

	server.JSON(w, http.StatusOK, responses)
}

// validateOne runs the field validator and the resolved widget's own
// validation over a submitted value. Widget validation supplements the
// field rules for composite widgets like link.
func (h *Handler) validateOne(def field.Definition, raw any) []string {
	errs := h.validator.ValidateField(def, raw, nil)

	wdg := h.widgets.ForField(def)
	result := wdg.Validate(def, value.New(raw, def.Kind))
	errs = append(errs, result.Errors...)

	return errs
}

// validateResponse is the outcome of a value validation request.
type validateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateValue handles POST /admin/api/fields/{id}/validate. It checks one
// submitted value against a field definition without persisting anything.
func (h *Handler) ValidateValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value any `json:"value"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	def, err := h.fields.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	errs := h.validateOne(def, req.Value)
	server.JSON(w, http.StatusOK, validateResponse{
		Valid:  len(errs) == 0,
		Errors: append([]string{}, errs...),
	})
}

// ValidateValues handles POST /admin/api/fields/validate. The body maps
// field definition ids to submitted values; the response maps the same ids
// to their error lists, with fields that passed reported empty.
func (h *Handler) ValidateValues(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Values map[string]any `json:"values"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	valid := true
	byField := make(map[string][]string, len(req.Values))
	for id, raw := range req.Values {
		def, err := h.fields.GetByID(r.Context(), id)
		if err != nil {
			h.handleError(w, err)
			return
		}

		errs := h.validateOne(def, raw)
		if len(errs) > 0 {
			valid = false
		}
		byField[id] = append([]string{}, errs...)
	}

	server.JSON(w, http.StatusOK, struct {
		Valid  bool                `json:"valid"`
		Errors map[string][]string `json:"errors"`
	}{Valid: valid, Errors: byField})
}

// shapeRequest is the JSON body for the prepare and format endpoints.
type shapeRequest struct {
	FieldID string `json:"field_id"`
	Value   any    `json:"value"`
}

// shapeValue resolves a definition's widget and applies one of its value
// shaping hooks to the submitted value.
func (h *Handler) shapeValue(w http.ResponseWriter, r *http.Request, shape func(widget.Widget, field.Definition, value.Value) value.Value) {
	var req shapeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.FieldID == "" {
		server.Error(w, http.StatusBadRequest, "INVALID_PARAMS", "field_id is required", nil)
		return
	}

	def, err := h.fields.GetByID(r.Context(), req.FieldID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	wdg := h.widgets.ForField(def)
	shaped := shape(wdg, def, value.New(req.Value, def.Kind))
	server.JSON(w, http.StatusOK, struct {
		Value any `json:"value"`
	}{Value: shaped.Raw()})
}

// Prepare handles POST /admin/api/render/prepare. It shapes a form value
// into its storage form through the field's widget.
func (h *Handler) Prepare(w http.ResponseWriter, r *http.Request) {
	h.shapeValue(w, r, func(wdg widget.Widget, def field.Definition, v value.Value) value.Value {
		return wdg.PrepareValue(def, v)
	})
}

// Format handles POST /admin/api/render/format. It shapes a stored value
// into its form presentation through the field's widget.
func (h *Handler) Format(w http.ResponseWriter, r *http.Request) {
	h.shapeValue(w, r, func(wdg widget.Widget, def field.Definition, v value.Value) value.Value {
		return wdg.FormatValue(def, v)
	})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, field.ErrNotFound) {
		server.Error(w, http.StatusNotFound, "NOT_FOUND", "field definition not found", nil)
		return
	}
	slog.Error("render error", "error", err)
	server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"an internal error occurred", nil)
}
