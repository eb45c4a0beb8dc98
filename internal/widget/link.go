package widget

import (
	"encoding/json"
	"net/url"

	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/validation"
	"github.com/lodestone-cms/lodestone/internal/value"
)

// linkWidget renders a composite link value (url + title). The composite is
// stored as a JSON object in the field's json column: PrepareValue encodes
// the sub-structure and FormatValue decodes it back for editing.
type linkWidget struct{ baseWidget }

func (linkWidget) ID() string       { return "link" }
func (linkWidget) Label() string    { return "Link" }
func (linkWidget) Category() string { return "structured" }

func (linkWidget) SupportedKinds() []field.Kind {
	return []field.Kind{field.KindJSON, field.KindURL}
}

func (linkWidget) SettingsSchema() map[string]string {
	return map[string]string{"title_required": "boolean"}
}

// linkParts extracts the url and title sub-values from either a decoded map
// or a stored JSON string.
func linkParts(v value.Value) (linkURL, title string) {
	var m map[string]any
	switch raw := v.Raw().(type) {
	case map[string]any:
		m = raw
	case string:
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return raw, ""
		}
	default:
		return "", ""
	}
	linkURL, _ = m["url"].(string)
	title, _ = m["title"].(string)
	return linkURL, title
}

func (linkWidget) Render(def field.Definition, v value.Value, ctx RenderContext) RenderResult {
	linkURL, title := linkParts(v)

	urlAttrs := commonAttrs(def, ctx)
	urlAttrs["type"] = "url"
	urlAttrs["name"] = def.MachineName + "[url]"
	urlAttrs["id"] = "field-" + def.MachineName + "-url"
	urlAttrs["value"] = linkURL

	titleAttrs := commonAttrs(def, ctx)
	titleAttrs["type"] = "text"
	titleAttrs["name"] = def.MachineName + "[title]"
	titleAttrs["id"] = "field-" + def.MachineName + "-title"
	titleAttrs["value"] = title
	delete(titleAttrs, "required")

	html := `<div class="link-widget">` +
		"<input" + attrs(urlAttrs) + ">" +
		"<input" + attrs(titleAttrs) + ">" +
		"</div>"
	return RenderResult{HTML: html}
}

func (linkWidget) RenderDisplay(def field.Definition, v value.Value, _ RenderContext) RenderResult {
	linkURL, title := linkParts(v)
	if title == "" {
		title = linkURL
	}
	inner := `<a href="` + escape(linkURL) + `" rel="nofollow">` + escape(title) + `</a>`
	return RenderResult{HTML: wrapDisplay(def, inner)}
}

// Validate checks the composite shape: the url sub-value must be a valid
// absolute URL when present, and required fields must carry one.
func (linkWidget) Validate(def field.Definition, v value.Value) validation.Result {
	if v.IsEmpty() {
		return validation.OK()
	}
	linkURL, _ := linkParts(v)
	if linkURL == "" {
		if def.Required {
			return validation.Fail(def.Name + " link URL is required")
		}
		return validation.OK()
	}
	parsed, err := url.Parse(linkURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return validation.Fail(def.Name + " link URL must be a valid URL")
	}
	return validation.OK()
}

// PrepareValue encodes the composite map as a JSON string for storage.
func (linkWidget) PrepareValue(def field.Definition, v value.Value) value.Value {
	if v.IsEmpty() {
		return v
	}
	if _, ok := v.Raw().(map[string]any); !ok {
		return v
	}
	encoded, err := json.Marshal(v.Raw())
	if err != nil {
		return v
	}
	return value.New(string(encoded), def.Kind)
}

// FormatValue decodes the stored JSON string back to the composite map.
func (linkWidget) FormatValue(def field.Definition, v value.Value) value.Value {
	s, ok := v.Raw().(string)
	if !ok || s == "" {
		return v
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return v
	}
	return value.New(m, def.Kind)
}
