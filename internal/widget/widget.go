// Package widget implements the rendering layer of the field engine: widgets
// turn a field definition plus a form-shaped value into editable or display
// HTML, and supplement field validation for composite value shapes.
package widget

import (
	"html"
	"sort"
	"strings"

	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/validation"
	"github.com/lodestone-cms/lodestone/internal/value"
)

// Mode selects between the edit and display rendering paths.
type Mode string

// Rendering modes.
const (
	ModeEdit    Mode = "edit"
	ModeDisplay Mode = "display"
)

// RenderContext carries the rendering configuration for one render call.
// It is a plain value object; widgets must not mutate it.
type RenderContext struct {
	Mode     Mode
	Disabled bool
	Readonly bool
	ViewMode string
}

// EditContext returns a context for form rendering.
func EditContext() RenderContext {
	return RenderContext{Mode: ModeEdit, ViewMode: "default"}
}

// DisplayContext returns a context for display rendering.
func DisplayContext() RenderContext {
	return RenderContext{Mode: ModeDisplay, ViewMode: "default"}
}

// RenderResult is the output of a widget render: markup plus the CSS and JS
// assets the markup depends on.
type RenderResult struct {
	HTML string   `json:"html"`
	CSS  []string `json:"css,omitempty"`
	JS   []string `json:"js,omitempty"`
}

// Widget renders a field's input and display markup. Implementations
// self-declare their identity, the kinds they support, and their settings
// schema; the registry uses that metadata to resolve widgets per field.
type Widget interface {
	// ID is the unique widget identifier (snake_case).
	ID() string

	// Label is the human-readable widget name.
	Label() string

	// Category groups widgets in the admin UI.
	Category() string

	// SupportedKinds lists the field kinds this widget can render.
	SupportedKinds() []field.Kind

	// SettingsSchema maps widget setting names to their value type names.
	SettingsSchema() map[string]string

	// Render produces the editable input markup for a form-shaped value.
	Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult

	// RenderDisplay produces the read-only display markup.
	RenderDisplay(def field.Definition, v value.Value, ctx RenderContext) RenderResult

	// Validate supplements the field validator for composite shapes the
	// widget owns. Most widgets pass everything through.
	Validate(def field.Definition, v value.Value) validation.Result

	// PrepareValue shapes a submitted form value for storage, e.g. encoding
	// a composite sub-structure as JSON.
	PrepareValue(def field.Definition, v value.Value) value.Value

	// FormatValue shapes a stored value for form editing, inverting
	// PrepareValue.
	FormatValue(def field.Definition, v value.Value) value.Value
}

// escape HTML-escapes a string for safe attribute and text interpolation.
func escape(s string) string {
	return html.EscapeString(s)
}

// attrs renders a deterministic attribute list from a name->value map.
// Boolean attributes use an empty value and render bare.
func attrs(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		if m[k] != "" {
			b.WriteString(`="`)
			b.WriteString(escape(m[k]))
			b.WriteString(`"`)
		}
	}
	return b.String()
}

// commonAttrs builds the attribute set shared by all input widgets: name and
// id from the machine name, plus required/disabled/readonly state.
func commonAttrs(def field.Definition, ctx RenderContext) map[string]string {
	m := map[string]string{
		"name": def.MachineName,
		"id":   "field-" + def.MachineName,
	}
	if def.Required {
		m["required"] = ""
	}
	if ctx.Disabled {
		m["disabled"] = ""
	}
	if ctx.Readonly {
		m["readonly"] = ""
	}
	return m
}

// wrapDisplay wraps display output in the standard field markup.
func wrapDisplay(def field.Definition, inner string) string {
	var b strings.Builder
	b.WriteString(`<div class="field field--` + escape(def.MachineName) + `">`)
	b.WriteString(`<span class="field__label">` + escape(def.Name) + `</span>`)
	b.WriteString(`<span class="field__value">` + inner + `</span>`)
	b.WriteString(`</div>`)
	return b.String()
}

// baseWidget provides the pass-through defaults shared by simple widgets.
type baseWidget struct{}

func (baseWidget) Validate(field.Definition, value.Value) validation.Result {
	return validation.OK()
}

func (baseWidget) PrepareValue(_ field.Definition, v value.Value) value.Value {
	return v
}

func (baseWidget) FormatValue(_ field.Definition, v value.Value) value.Value {
	return v
}

func (baseWidget) SettingsSchema() map[string]string {
	return nil
}
