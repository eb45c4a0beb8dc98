package widget

import (
	"log/slog"
	"sort"

	"github.com/lodestone-cms/lodestone/internal/field"
)

// defaultWidgets maps each field kind to its default widget id.
var defaultWidgets = map[field.Kind]string{
	field.KindString:      "text",
	field.KindText:        "textarea",
	field.KindEmail:       "text",
	field.KindURL:         "text",
	field.KindSlug:        "text",
	field.KindColor:       "color",
	field.KindInteger:     "number",
	field.KindFloat:       "number",
	field.KindBoolean:     "checkbox",
	field.KindDate:        "date",
	field.KindDatetime:    "date",
	field.KindJSON:        "json",
	field.KindSelect:      "select",
	field.KindMultiselect: "select",
	field.KindReference:   "reference",
}

// Registry maps widget ids to widget instances and resolves the widget for a
// field. Registration happens at startup; lookups are read-only afterwards,
// so no locking is needed.
type Registry struct {
	widgets  map[string]Widget
	fallback Widget
}

// NewRegistry creates a Registry with all built-in widgets registered.
func NewRegistry() *Registry {
	r := &Registry{
		widgets:  make(map[string]Widget),
		fallback: fallbackWidget{},
	}
	r.Register(textWidget{})
	r.Register(textareaWidget{})
	r.Register(numberWidget{})
	r.Register(checkboxWidget{})
	r.Register(selectWidget{})
	r.Register(dateWidget{})
	r.Register(jsonWidget{})
	r.Register(colorWidget{})
	r.Register(referenceWidget{})
	r.Register(linkWidget{})
	r.Register(fallbackWidget{})
	return r
}

// Register adds a widget to the registry, replacing any widget with the same id.
func (r *Registry) Register(w Widget) {
	r.widgets[w.ID()] = w
}

// Get returns the widget with the given id.
func (r *Registry) Get(id string) (Widget, bool) {
	w, ok := r.widgets[id]
	return w, ok
}

// ForField resolves the widget for a field definition. Precedence: the
// definition's widget_id override, then the kind's default widget, then the
// generic fallback. Unknown widget ids and kinds resolve to the fallback
// with a logged diagnostic instead of an error, so forms stay renderable
// when registrations go stale.
func (r *Registry) ForField(def field.Definition) Widget {
	if def.WidgetID != "" {
		if w, ok := r.widgets[def.WidgetID]; ok {
			return w
		}
		slog.Warn("unknown widget id, falling back to generic widget",
			"widget_id", def.WidgetID,
			"field", def.MachineName,
		)
	}

	id, ok := defaultWidgets[def.Kind]
	if !ok {
		slog.Warn("no default widget for field kind, falling back to generic widget",
			"kind", def.Kind,
			"field", def.MachineName,
		)
		return r.fallback
	}

	w, ok := r.widgets[id]
	if !ok {
		slog.Warn("default widget not registered, falling back to generic widget",
			"widget_id", id,
			"kind", def.Kind,
		)
		return r.fallback
	}
	return w
}

// All returns all registered widgets sorted by category then id, for the
// widget listing endpoint.
func (r *Registry) All() []Widget {
	out := make([]Widget, 0, len(r.widgets))
	for _, w := range r.widgets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category() != out[j].Category() {
			return out[i].Category() < out[j].Category()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// ForKind returns the widgets that declare support for the given kind,
// sorted by id.
func (r *Registry) ForKind(kind field.Kind) []Widget {
	var out []Widget
	for _, w := range r.widgets {
		for _, k := range w.SupportedKinds() {
			if k == kind {
				out = append(out, w)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
