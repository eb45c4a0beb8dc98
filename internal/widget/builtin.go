package widget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/value"
)

// textWidget renders a single-line text input for string-like kinds.
type textWidget struct{ baseWidget }

func (textWidget) ID() string       { return "text" }
func (textWidget) Label() string    { return "Text field" }
func (textWidget) Category() string { return "text" }

func (textWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindString, field.KindEmail, field.KindURL, field.KindSlug}
}

func (textWidget) SettingsSchema() map[string]string {
	return map[string]string{"placeholder": "string"}
}

func (textWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	a["type"] = inputType(def.Kind)
	a["value"] = v.AsString()
	if def.Settings.MaxLength != nil {
		a["maxlength"] = strconv.Itoa(*def.Settings.MaxLength)
	}
	if def.Settings.Pattern != "" {
		a["pattern"] = def.Settings.Pattern
	}
	return RenderResult{HTML: "<input" + attrs(a) + ">"}
}

func (textWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	inner := escape(v.AsString())
	if def.Kind == field.KindURL && !v.IsEmpty() {
		href := escape(v.AsString())
		inner = `<a href="` + href + `" rel="nofollow">` + href + `</a>`
	}
	return RenderResult{HTML: wrapDisplay(def, inner)}
}

// inputType maps string-like kinds to HTML input types.
func inputType(k field.Kind) string {
	switch k {
	case field.KindEmail:
		return "email"
	case field.KindURL:
		return "url"
	default:
		return "text"
	}
}

// textareaWidget renders a multi-line input for long text.
type textareaWidget struct{ baseWidget }

func (textareaWidget) ID() string       { return "textarea" }
func (textareaWidget) Label() string    { return "Text area" }
func (textareaWidget) Category() string { return "text" }

func (textareaWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindText, field.KindString}
}

func (textareaWidget) SettingsSchema() map[string]string {
	return map[string]string{"rows": "integer"}
}

func (textareaWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	a["rows"] = "6"
	return RenderResult{HTML: "<textarea" + attrs(a) + ">" + escape(v.AsString()) + "</textarea>"}
}

func (textareaWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	return RenderResult{HTML: wrapDisplay(def, escape(v.AsString()))}
}

// numberWidget renders a numeric input for integer and float kinds.
type numberWidget struct{ baseWidget }

func (numberWidget) ID() string       { return "number" }
func (numberWidget) Label() string    { return "Number field" }
func (numberWidget) Category() string { return "number" }

func (numberWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindInteger, field.KindFloat}
}

func (numberWidget) SettingsSchema() map[string]string {
	return map[string]string{"step": "float"}
}

func (numberWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	a["type"] = "number"
	a["value"] = v.AsString()
	if def.Kind == field.KindFloat {
		a["step"] = "any"
	}
	if def.Settings.Min != nil {
		a["min"] = strconv.FormatFloat(*def.Settings.Min, 'f', -1, 64)
	}
	if def.Settings.Max != nil {
		a["max"] = strconv.FormatFloat(*def.Settings.Max, 'f', -1, 64)
	}
	return RenderResult{HTML: "<input" + attrs(a) + ">"}
}

func (numberWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	return RenderResult{HTML: wrapDisplay(def, escape(v.AsString()))}
}

// checkboxWidget renders a checkbox for boolean kinds.
type checkboxWidget struct{ baseWidget }

func (checkboxWidget) ID() string       { return "checkbox" }
func (checkboxWidget) Label() string    { return "Checkbox" }
func (checkboxWidget) Category() string { return "choice" }

func (checkboxWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindBoolean}
}

func (checkboxWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	a["type"] = "checkbox"
	a["value"] = "1"
	if v.AsBool() {
		a["checked"] = ""
	}
	return RenderResult{HTML: "<input" + attrs(a) + ">"}
}

func (checkboxWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	label := "No"
	if v.AsBool() {
		label = "Yes"
	}
	return RenderResult{HTML: wrapDisplay(def, label)}
}

// selectWidget renders a select element from the options setting. It also
// backs multiselect fields with a multiple-select element.
type selectWidget struct{ baseWidget }

func (selectWidget) ID() string       { return "select" }
func (selectWidget) Label() string    { return "Select list" }
func (selectWidget) Category() string { return "choice" }

func (selectWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindSelect, field.KindMultiselect}
}

func (selectWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	selected := make(map[string]bool)
	if def.Kind == field.KindMultiselect {
		a["multiple"] = ""
		a["name"] = def.MachineName + "[]"
		for _, e := range v.AsArray() {
			selected[value.New(e, def.Kind).AsString()] = true
		}
	} else {
		selected[v.AsString()] = true
	}

	var b strings.Builder
	b.WriteString("<select" + attrs(a) + ">")
	if !def.Required && def.Kind == field.KindSelect {
		b.WriteString(`<option value="">- None -</option>`)
	}
	for _, opt := range def.Settings.Options {
		b.WriteString(`<option value="` + escape(opt) + `"`)
		if selected[opt] {
			b.WriteString(" selected")
		}
		b.WriteString(">" + escape(opt) + "</option>")
	}
	b.WriteString("</select>")
	return RenderResult{HTML: b.String()}
}

func (selectWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	if def.Kind == field.KindMultiselect {
		parts := make([]string, 0, len(v.AsArray()))
		for _, e := range v.AsArray() {
			parts = append(parts, escape(value.New(e, def.Kind).AsString()))
		}
		return RenderResult{HTML: wrapDisplay(def, strings.Join(parts, ", "))}
	}
	return RenderResult{HTML: wrapDisplay(def, escape(v.AsString()))}
}

// dateWidget renders date and datetime inputs.
type dateWidget struct{ baseWidget }

func (dateWidget) ID() string       { return "date" }
func (dateWidget) Label() string    { return "Date picker" }
func (dateWidget) Category() string { return "date" }

func (dateWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindDate, field.KindDatetime}
}

func (dateWidget) SettingsSchema() map[string]string {
	return map[string]string{"date_format": "string"}
}

func (dateWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	if def.Kind == field.KindDatetime {
		a["type"] = "datetime-local"
		if t := v.AsTime(); !t.IsZero() {
			a["value"] = t.Format("2006-01-02T15:04")
		}
	} else {
		a["type"] = "date"
		a["value"] = v.AsString()
	}
	return RenderResult{HTML: "<input" + attrs(a) + ">"}
}

func (dateWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	layout := def.Settings.DateFormat
	if layout == "" {
		layout = "Jan 2, 2006"
	}
	t := v.AsTime()
	if t.IsZero() {
		return RenderResult{HTML: wrapDisplay(def, escape(v.AsString()))}
	}
	return RenderResult{HTML: wrapDisplay(def, escape(t.Format(layout)))}
}

// jsonWidget renders a raw JSON editor textarea.
type jsonWidget struct{ baseWidget }

func (jsonWidget) ID() string       { return "json" }
func (jsonWidget) Label() string    { return "JSON editor" }
func (jsonWidget) Category() string { return "structured" }

func (jsonWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindJSON}
}

func (jsonWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	a["rows"] = "8"
	a["class"] = "json-editor"
	return RenderResult{
		HTML: "<textarea" + attrs(a) + ">" + escape(v.AsString()) + "</textarea>",
		CSS:  []string{"/assets/css/json-editor.css"},
		JS:   []string{"/assets/js/json-editor.js"},
	}
}

func (jsonWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	return RenderResult{HTML: wrapDisplay(def, "<pre>"+escape(v.AsString())+"</pre>")}
}

// colorWidget renders a color picker input.
type colorWidget struct{ baseWidget }

func (colorWidget) ID() string       { return "color" }
func (colorWidget) Label() string    { return "Color picker" }
func (colorWidget) Category() string { return "text" }

func (colorWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindColor}
}

func (colorWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	a["type"] = "color"
	a["value"] = v.AsString()
	return RenderResult{HTML: "<input" + attrs(a) + ">"}
}

func (colorWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	c := escape(v.AsString())
	swatch := fmt.Sprintf(`<span class="color-swatch" style="background-color:%s"></span>%s`, c, c)
	return RenderResult{HTML: wrapDisplay(def, swatch)}
}

// referenceWidget renders an entity reference as an autocomplete input bound
// to the target entity type.
type referenceWidget struct{ baseWidget }

func (referenceWidget) ID() string       { return "reference" }
func (referenceWidget) Label() string    { return "Entity reference" }
func (referenceWidget) Category() string { return "reference" }

func (referenceWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindReference}
}

func (referenceWidget) SettingsSchema() map[string]string {
	return map[string]string{"target_type": "string"}
}

func (referenceWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	a["type"] = "text"
	a["value"] = v.AsString()
	a["class"] = "entity-autocomplete"
	a["data-target-type"] = def.Settings.TargetType
	return RenderResult{
		HTML: "<input" + attrs(a) + ">",
		JS:   []string{"/assets/js/entity-autocomplete.js"},
	}
}

func (referenceWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	return RenderResult{HTML: wrapDisplay(def, escape(v.AsString()))}
}

// fallbackWidget is the generic widget used when no registered widget matches
// a field. It renders a plain text input so forms stay renderable even with
// stale or missing widget registrations.
type fallbackWidget struct{ baseWidget }

// FallbackID is the identifier of the generic fallback widget.
const FallbackID = "generic"

func (fallbackWidget) ID() string       { return FallbackID }
func (fallbackWidget) Label() string    { return "Generic field" }
func (fallbackWidget) Category() string { return "text" }

func (fallbackWidget) SupportedKinds() []field.Kind { return nil }

func (fallbackWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	a := commonAttrs(def, ctx)
	a["type"] = "text"
	a["value"] = v.AsString()
	return RenderResult{HTML: "<input" + attrs(a) + ">"}
}

func (fallbackWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	return RenderResult{HTML: wrapDisplay(def, escape(v.AsString()))}
}
