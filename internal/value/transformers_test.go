package value

import (
	"reflect"
	"testing"

	"github.com/lodestone-cms/lodestone/internal/field"
)

// TestToStorageIdempotentOverToForm checks the anchor law of the pipeline:
// running a value through ToForm and then ToStorage lands on the same storage
// shape as ToStorage alone.
func TestToStorageIdempotentOverToForm(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		name  string
		kind  field.Kind
		input any
	}{
		{"string", field.KindString, "  hello  "},
		{"text", field.KindText, "a longer body\nwith lines"},
		{"integer from string", field.KindInteger, "42"},
		{"integer from number", field.KindInteger, float64(42)},
		{"float", field.KindFloat, "3.25"},
		{"boolean true", field.KindBoolean, "1"},
		{"boolean false", field.KindBoolean, false},
		{"date", field.KindDate, "2026-08-30"},
		{"datetime", field.KindDatetime, "2026-08-30T10:30:00Z"},
		{"json object", field.KindJSON, `{"b": 2, "a": 1}`},
		{"json structured", field.KindJSON, map[string]any{"a": float64(1)}},
		{"multiselect", field.KindMultiselect, []any{"red", "green"}},
		{"select", field.KindSelect, "red"},
		{"reference", field.KindReference, "8a2b7c9e-1f34-4d56-9a78-0b1c2d3e4f5a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := factory.ForField(tt.kind, field.Settings{})
			direct := tr.ToStorage(New(tt.input, tt.kind)).Raw()
			viaForm := tr.ToStorage(tr.ToForm(New(tt.input, tt.kind))).Raw()
			if !reflect.DeepEqual(direct, viaForm) {
				t.Errorf("toStorage(toForm(x)) = %#v, toStorage(x) = %#v", viaForm, direct)
			}
		})
	}
}

func TestStringTransformerTrims(t *testing.T) {
	tr := stringTransformer{}
	got := tr.ToStorage(New("  padded  ", field.KindString)).Raw()
	if got != "padded" {
		t.Errorf("ToStorage = %#v, want trimmed string", got)
	}
}

func TestIntegerTransformer(t *testing.T) {
	tr := integerTransformer{}

	if got := tr.ToStorage(New("17", field.KindInteger)).Raw(); got != int64(17) {
		t.Errorf("ToStorage(\"17\") = %#v, want int64(17)", got)
	}
	if got := tr.ToStorage(New("", field.KindInteger)).Raw(); got != nil {
		t.Errorf("ToStorage(\"\") = %#v, want nil", got)
	}
	if got := tr.ToForm(New(int64(17), field.KindInteger)).Raw(); got != "17" {
		t.Errorf("ToForm = %#v, want form string", got)
	}
	if got := tr.ToDisplay(New(nil, field.KindInteger)); got != "" {
		t.Errorf("ToDisplay(nil) = %q, want empty", got)
	}
}

func TestFloatTransformerDisplayPlaces(t *testing.T) {
	full := floatTransformer{decimalPlaces: -1}
	if got := full.ToDisplay(New(3.14159, field.KindFloat)); got != "3.14159" {
		t.Errorf("full precision display = %q", got)
	}

	two := floatTransformer{decimalPlaces: 2}
	if got := two.ToDisplay(New(3.14159, field.KindFloat)); got != "3.14" {
		t.Errorf("2-place display = %q, want 3.14", got)
	}
	// Rounding only affects display, never storage.
	if got := two.ToStorage(New(3.14159, field.KindFloat)).Raw(); got != 3.14159 {
		t.Errorf("ToStorage = %#v, want untouched float", got)
	}
}

func TestBooleanTransformer(t *testing.T) {
	tr := booleanTransformer{}

	if got := tr.ToForm(New(true, field.KindBoolean)).Raw(); got != "1" {
		t.Errorf("ToForm(true) = %#v, want \"1\"", got)
	}
	if got := tr.ToForm(New(nil, field.KindBoolean)).Raw(); got != "0" {
		t.Errorf("ToForm(nil) = %#v, want \"0\"", got)
	}
	if got := tr.ToStorage(New("1", field.KindBoolean)).Raw(); got != true {
		t.Errorf("ToStorage(\"1\") = %#v, want true", got)
	}
	if got := tr.ToDisplay(New(true, field.KindBoolean)); got != "Yes" {
		t.Errorf("ToDisplay(true) = %q, want Yes", got)
	}
	if got := tr.ToDisplay(New("0", field.KindBoolean)); got != "No" {
		t.Errorf("ToDisplay(\"0\") = %q, want No", got)
	}
}

func TestDateTransformer(t *testing.T) {
	tr := dateTransformer{}

	if got := tr.ToStorage(New("2026-08-30T15:04:05Z", field.KindDate)).Raw(); got != "2026-08-30" {
		t.Errorf("ToStorage = %#v, want bare date", got)
	}
	// Unparseable legacy data passes through instead of being wiped.
	if got := tr.ToStorage(New("sometime last week", field.KindDate)).Raw(); got != "sometime last week" {
		t.Errorf("ToStorage(garbage) = %#v, want pass-through", got)
	}
	if got := tr.ToDisplay(New("2026-08-30", field.KindDate)); got != "Aug 30, 2026" {
		t.Errorf("ToDisplay = %q, want default layout", got)
	}

	custom := dateTransformer{format: "02/01/2006"}
	if got := custom.ToDisplay(New("2026-08-30", field.KindDate)); got != "30/08/2026" {
		t.Errorf("custom layout display = %q", got)
	}
}

func TestDatetimeTransformerNormalizesToUTC(t *testing.T) {
	tr := datetimeTransformer{}
	got := tr.ToStorage(New("2026-08-30T12:00:00+02:00", field.KindDatetime)).Raw()
	if got != "2026-08-30T10:00:00Z" {
		t.Errorf("ToStorage = %#v, want UTC RFC 3339", got)
	}
}

func TestJSONTransformerNormalizesEncoding(t *testing.T) {
	tr := jsonTransformer{}

	a := tr.ToStorage(New(`{"b": 2,   "a": 1}`, field.KindJSON)).Raw()
	b := tr.ToStorage(New(`{"a":1,"b":2}`, field.KindJSON)).Raw()
	if a != b {
		t.Errorf("equivalent JSON stored differently: %#v vs %#v", a, b)
	}

	form := tr.ToForm(New(`{"a":1}`, field.KindJSON)).Raw()
	if _, ok := form.(map[string]any); !ok {
		t.Errorf("ToForm = %#v, want decoded map", form)
	}

	// Invalid JSON strings pass through rather than being destroyed; the
	// validator is the layer that rejects them.
	if got := tr.ToStorage(New("{broken", field.KindJSON)).Raw(); got != "{broken" {
		t.Errorf("ToStorage(invalid) = %#v, want pass-through", got)
	}
}

func TestArrayTransformer(t *testing.T) {
	tr := arrayTransformer{}

	stored := tr.ToStorage(New([]any{"red", "green"}, field.KindMultiselect)).Raw()
	if stored != `["red","green"]` {
		t.Errorf("ToStorage = %#v, want JSON array string", stored)
	}

	form := tr.ToForm(New(`["red","green"]`, field.KindMultiselect)).Raw()
	if !reflect.DeepEqual(form, []any{"red", "green"}) {
		t.Errorf("ToForm = %#v, want decoded slice", form)
	}

	if got := tr.ToDisplay(New([]any{"red", "green"}, field.KindMultiselect)); got != "red, green" {
		t.Errorf("ToDisplay = %q", got)
	}

	if got := tr.ToStorage(New(nil, field.KindMultiselect)).Raw(); got != nil {
		t.Errorf("ToStorage(nil) = %#v, want nil", got)
	}
}

func TestFactoryCachesTransformers(t *testing.T) {
	factory := NewFactory()

	a := factory.ForField(field.KindString, field.Settings{})
	b := factory.ForField(field.KindString, field.Settings{})
	if a != b {
		t.Error("same kind and settings should return the cached transformer")
	}

	two := 2
	four := 4
	fa := factory.ForField(field.KindFloat, field.Settings{DecimalPlaces: &two})
	fb := factory.ForField(field.KindFloat, field.Settings{DecimalPlaces: &four})
	if fa == fb {
		t.Error("different decimal places must build distinct transformers")
	}
}

func TestFactoryUnknownKindFallsBack(t *testing.T) {
	factory := NewFactory()
	tr := factory.ForField(field.Kind("holo_projection"), field.Settings{})
	if _, ok := tr.(identityTransformer); !ok {
		t.Errorf("unknown kind resolved to %T, want identityTransformer", tr)
	}

	v := New("as-is", field.Kind("holo_projection"))
	if got := tr.ToStorage(v).Raw(); got != "as-is" {
		t.Errorf("identity ToStorage = %#v, want unchanged", got)
	}
}

// orderTransformer appends a tag on each pass so chain ordering is visible.
type orderTransformer struct{ tag string }

func (t orderTransformer) ToForm(v Value) Value {
	return New(v.AsString()+" form:"+t.tag, v.Kind())
}

func (t orderTransformer) ToStorage(v Value) Value {
	return New(v.AsString()+" store:"+t.tag, v.Kind())
}

func (t orderTransformer) ToDisplay(v Value) string {
	return "display:" + t.tag
}

func TestChainOrdering(t *testing.T) {
	chain := NewChain(orderTransformer{tag: "a"}, orderTransformer{tag: "b"})

	formed := chain.ToForm(New("x", "string"))
	if got := formed.AsString(); got != "x form:a form:b" {
		t.Errorf("ToForm = %q, want left-to-right order", got)
	}

	stored := chain.ToStorage(New("x", "string"))
	if got := stored.AsString(); got != "x store:b store:a" {
		t.Errorf("ToStorage = %q, want right-to-left order", got)
	}

	if got := chain.ToDisplay(New("x", "string")); got != "display:b" {
		t.Errorf("ToDisplay = %q, want the last transformer's output", got)
	}
}

func TestEmptyChainIsIdentity(t *testing.T) {
	chain := NewChain()

	v := New("unchanged", "string")
	if chain.ToForm(v).Raw() != "unchanged" || chain.ToStorage(v).Raw() != "unchanged" {
		t.Error("empty chain must pass values through")
	}
	if chain.ToDisplay(v) != "unchanged" {
		t.Errorf("ToDisplay = %q", chain.ToDisplay(v))
	}
}
