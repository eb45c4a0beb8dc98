package widget

import (
	"strings"
	"testing"

	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/value"
)

func TestTextWidgetRender(t *testing.T) {
	maxLen := 80
	def := field.Definition{
		Name:        "Title",
		MachineName: "title",
		Kind:        field.KindString,
		Required:    true,
		Settings:    field.Settings{MaxLength: &maxLen},
	}

	got := textWidget{}.Render(def, value.New("Hello", field.KindString), EditContext()).HTML
	for _, want := range []string{`name="title"`, `id="field-title"`, `type="text"`, `value="Hello"`, `maxlength="80"`, " required"} {
		if !strings.Contains(got, want) {
			t.Errorf("Render output missing %q:\n%s", want, got)
		}
	}
}

func TestTextWidgetEscapesValue(t *testing.T) {
	def := field.Definition{Name: "Title", MachineName: "title", Kind: field.KindString}
	got := textWidget{}.Render(def, value.New(`<script>"x"</script>`, field.KindString), EditContext()).HTML
	if strings.Contains(got, "<script>") {
		t.Errorf("unescaped markup in attribute: %s", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("expected escaped value, got: %s", got)
	}
}

func TestTextWidgetDisplayLinksURLs(t *testing.T) {
	def := field.Definition{Name: "Website", MachineName: "website", Kind: field.KindURL}
	got := textWidget{}.RenderDisplay(def, value.New("https://example.com", field.KindURL), DisplayContext()).HTML
	if !strings.Contains(got, `<a href="https://example.com" rel="nofollow">`) {
		t.Errorf("URL display should link: %s", got)
	}
}

func TestCheckboxWidgetRender(t *testing.T) {
	def := field.Definition{Name: "Active", MachineName: "active", Kind: field.KindBoolean}

	checked := checkboxWidget{}.Render(def, value.New(true, field.KindBoolean), EditContext()).HTML
	if !strings.Contains(checked, " checked") {
		t.Errorf("true value should render checked: %s", checked)
	}

	unchecked := checkboxWidget{}.Render(def, value.New(false, field.KindBoolean), EditContext()).HTML
	if strings.Contains(unchecked, " checked") {
		t.Errorf("false value should not render checked: %s", unchecked)
	}

	display := checkboxWidget{}.RenderDisplay(def, value.New(true, field.KindBoolean), DisplayContext()).HTML
	if !strings.Contains(display, "Yes") {
		t.Errorf("display = %s, want Yes", display)
	}
}

func TestSelectWidgetRender(t *testing.T) {
	def := field.Definition{
		Name:        "Color",
		MachineName: "color",
		Kind:        field.KindSelect,
		Settings:    field.Settings{Options: []string{"red", "green", "blue"}},
	}

	got := selectWidget{}.Render(def, value.New("green", field.KindSelect), EditContext()).HTML
	if !strings.Contains(got, `<option value="green" selected>`) {
		t.Errorf("selected option not marked: %s", got)
	}
	if !strings.Contains(got, `<option value="">- None -</option>`) {
		t.Errorf("optional select should offer a none option: %s", got)
	}

	def.Required = true
	got = selectWidget{}.Render(def, value.New("green", field.KindSelect), EditContext()).HTML
	if strings.Contains(got, "- None -") {
		t.Errorf("required select should not offer a none option: %s", got)
	}
}

func TestSelectWidgetMultiselect(t *testing.T) {
	def := field.Definition{
		Name:        "Tags",
		MachineName: "tags",
		Kind:        field.KindMultiselect,
		Settings:    field.Settings{Options: []string{"go", "sql", "http"}},
	}

	got := selectWidget{}.Render(def, value.New([]any{"go", "http"}, field.KindMultiselect), EditContext()).HTML
	if !strings.Contains(got, `name="tags[]"`) || !strings.Contains(got, " multiple") {
		t.Errorf("multiselect markup wrong: %s", got)
	}
	for _, want := range []string{`<option value="go" selected>`, `<option value="http" selected>`} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in: %s", want, got)
		}
	}
	if strings.Contains(got, `<option value="sql" selected>`) {
		t.Errorf("unselected option marked selected: %s", got)
	}
}

func TestDateWidgetRender(t *testing.T) {
	date := field.Definition{Name: "Published", MachineName: "published", Kind: field.KindDate}
	got := dateWidget{}.Render(date, value.New("2026-08-30", field.KindDate), EditContext()).HTML
	if !strings.Contains(got, `type="date"`) || !strings.Contains(got, `value="2026-08-30"`) {
		t.Errorf("date render wrong: %s", got)
	}

	dt := field.Definition{Name: "Starts", MachineName: "starts", Kind: field.KindDatetime}
	got = dateWidget{}.Render(dt, value.New("2026-08-30T10:30:00Z", field.KindDatetime), EditContext()).HTML
	if !strings.Contains(got, `type="datetime-local"`) || !strings.Contains(got, `value="2026-08-30T10:30"`) {
		t.Errorf("datetime render wrong: %s", got)
	}
}

func TestLinkWidgetRoundTrip(t *testing.T) {
	def := field.Definition{Name: "More info", MachineName: "more_info", Kind: field.KindJSON}
	w := linkWidget{}

	submitted := value.New(map[string]any{"url": "https://example.com", "title": "Example"}, field.KindJSON)
	stored := w.PrepareValue(def, submitted)
	if _, ok := stored.Raw().(string); !ok {
		t.Fatalf("PrepareValue = %#v, want JSON string", stored.Raw())
	}

	formed := w.FormatValue(def, stored)
	m, ok := formed.Raw().(map[string]any)
	if !ok {
		t.Fatalf("FormatValue = %#v, want decoded map", formed.Raw())
	}
	if m["url"] != "https://example.com" || m["title"] != "Example" {
		t.Errorf("round trip lost data: %#v", m)
	}
}

func TestLinkWidgetValidate(t *testing.T) {
	def := field.Definition{Name: "More info", MachineName: "more_info", Kind: field.KindJSON}
	w := linkWidget{}

	ok := w.Validate(def, value.New(map[string]any{"url": "https://example.com"}, field.KindJSON))
	if !ok.Valid {
		t.Errorf("valid link rejected: %v", ok.Errors)
	}

	bad := w.Validate(def, value.New(map[string]any{"url": "not a url"}, field.KindJSON))
	if bad.Valid {
		t.Error("invalid link URL accepted")
	}

	def.Required = true
	missing := w.Validate(def, value.New(map[string]any{"title": "no url"}, field.KindJSON))
	if missing.Valid {
		t.Error("required link without URL accepted")
	}
}

func TestLinkWidgetRenderDisplay(t *testing.T) {
	def := field.Definition{Name: "More info", MachineName: "more_info", Kind: field.KindJSON}
	got := linkWidget{}.RenderDisplay(def, value.New(`{"url":"https://example.com","title":"Example"}`, field.KindJSON), DisplayContext()).HTML
	if !strings.Contains(got, `<a href="https://example.com" rel="nofollow">Example</a>`) {
		t.Errorf("link display wrong: %s", got)
	}
}
