package value

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Transformer converts a field value between its three representations:
// the storage shape persisted in the value store, the form shape presented
// to widgets for editing, and the display string shown in rendered output.
//
// ToStorage must be idempotent over ToForm output: for any valid value x,
// toStorage(toForm(x)) equals toStorage(x). Storage normalization is the
// anchor of the pipeline; form and display shapes derive from it.
type Transformer interface {
	ToForm(Value) Value
	ToStorage(Value) Value
	ToDisplay(Value) string
}

// stringTransformer normalizes to a trimmed string.
type stringTransformer struct{}

func (stringTransformer) ToForm(v Value) Value {
	return New(v.AsString(), v.Kind())
}

func (stringTransformer) ToStorage(v Value) Value {
	return New(strings.TrimSpace(v.AsString()), v.Kind())
}

func (stringTransformer) ToDisplay(v Value) string {
	return v.AsString()
}

// integerTransformer stores int64, presents a decimal string to forms.
type integerTransformer struct{}

func (integerTransformer) ToForm(v Value) Value {
	if v.IsEmpty() {
		return New("", v.Kind())
	}
	return New(strconv.FormatInt(v.AsInt(), 10), v.Kind())
}

func (integerTransformer) ToStorage(v Value) Value {
	if v.IsEmpty() {
		return New(nil, v.Kind())
	}
	return New(v.AsInt(), v.Kind())
}

func (integerTransformer) ToDisplay(v Value) string {
	if v.IsEmpty() {
		return ""
	}
	return strconv.FormatInt(v.AsInt(), 10)
}

// floatTransformer stores float64; decimal places only affect display.
type floatTransformer struct {
	decimalPlaces int // negative means full precision
}

func (floatTransformer) ToForm(v Value) Value {
	if v.IsEmpty() {
		return New("", v.Kind())
	}
	return New(strconv.FormatFloat(v.AsFloat(), 'f', -1, 64), v.Kind())
}

func (floatTransformer) ToStorage(v Value) Value {
	if v.IsEmpty() {
		return New(nil, v.Kind())
	}
	return New(v.AsFloat(), v.Kind())
}

func (t floatTransformer) ToDisplay(v Value) string {
	if v.IsEmpty() {
		return ""
	}
	return strconv.FormatFloat(v.AsFloat(), 'f', t.decimalPlaces, 64)
}

// booleanTransformer stores bool, presents "1"/"0" to forms (checkbox
// convention), and displays Yes/No.
type booleanTransformer struct{}

func (booleanTransformer) ToForm(v Value) Value {
	if v.AsBool() {
		return New("1", v.Kind())
	}
	return New("0", v.Kind())
}

func (booleanTransformer) ToStorage(v Value) Value {
	return New(v.AsBool(), v.Kind())
}

func (booleanTransformer) ToDisplay(v Value) string {
	if v.AsBool() {
		return "Yes"
	}
	return "No"
}

// dateTransformer stores the bare YYYY-MM-DD form.
type dateTransformer struct {
	format string
}

const storedDateLayout = "2006-01-02"

func (dateTransformer) ToForm(v Value) Value {
	return dateTransformer{}.ToStorage(v)
}

func (dateTransformer) ToStorage(v Value) Value {
	if v.IsEmpty() {
		return New(nil, v.Kind())
	}
	t := v.AsTime()
	if t.IsZero() {
		// Unparseable legacy data passes through untouched rather than
		// being destroyed by normalization.
		return New(v.AsString(), v.Kind())
	}
	return New(t.Format(storedDateLayout), v.Kind())
}

func (t dateTransformer) ToDisplay(v Value) string {
	parsed := v.AsTime()
	if parsed.IsZero() {
		return v.AsString()
	}
	layout := t.format
	if layout == "" {
		layout = "Jan 2, 2006"
	}
	return parsed.Format(layout)
}

// datetimeTransformer stores RFC 3339 in UTC.
type datetimeTransformer struct {
	format string
}

func (datetimeTransformer) ToForm(v Value) Value {
	return datetimeTransformer{}.ToStorage(v)
}

func (datetimeTransformer) ToStorage(v Value) Value {
	if v.IsEmpty() {
		return New(nil, v.Kind())
	}
	t := v.AsTime()
	if t.IsZero() {
		return New(v.AsString(), v.Kind())
	}
	return New(t.UTC().Format(time.RFC3339), v.Kind())
}

func (t datetimeTransformer) ToDisplay(v Value) string {
	parsed := v.AsTime()
	if parsed.IsZero() {
		return v.AsString()
	}
	layout := t.format
	if layout == "" {
		layout = "Jan 2, 2006 15:04"
	}
	return parsed.UTC().Format(layout)
}

// jsonTransformer stores an encoded JSON string and presents the decoded
// structure to forms.
type jsonTransformer struct{}

func (jsonTransformer) ToForm(v Value) Value {
	if v.IsEmpty() {
		return New(nil, v.Kind())
	}
	switch v.Raw().(type) {
	case map[string]any, []any:
		return v
	}
	var decoded any
	if err := json.Unmarshal([]byte(v.AsString()), &decoded); err != nil {
		return v
	}
	return New(decoded, v.Kind())
}

func (jsonTransformer) ToStorage(v Value) Value {
	if v.IsEmpty() {
		return New(nil, v.Kind())
	}
	switch v.Raw().(type) {
	case string:
		s := v.AsString()
		if json.Valid([]byte(s)) {
			// Re-encode through the decoder so that key order and spacing
			// normalize and the round-trip law holds.
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				if encoded, err := json.Marshal(decoded); err == nil {
					return New(string(encoded), v.Kind())
				}
			}
		}
		return v
	default:
		encoded, err := json.Marshal(v.Raw())
		if err != nil {
			return New(v.AsString(), v.Kind())
		}
		return New(string(encoded), v.Kind())
	}
}

func (jsonTransformer) ToDisplay(v Value) string {
	form := jsonTransformer{}.ToForm(v)
	pretty, err := json.MarshalIndent(form.Raw(), "", "  ")
	if err != nil {
		return v.AsString()
	}
	return string(pretty)
}

// arrayTransformer stores a JSON-encoded array and presents a slice to forms.
type arrayTransformer struct{}

func (arrayTransformer) ToForm(v Value) Value {
	return New(v.AsArray(), v.Kind())
}

func (arrayTransformer) ToStorage(v Value) Value {
	arr := v.AsArray()
	if arr == nil {
		return New(nil, v.Kind())
	}
	encoded, err := json.Marshal(arr)
	if err != nil {
		return New(v.AsString(), v.Kind())
	}
	return New(string(encoded), v.Kind())
}

func (arrayTransformer) ToDisplay(v Value) string {
	arr := v.AsArray()
	parts := make([]string, len(arr))
	for i, e := range arr {
		parts[i] = New(e, v.Kind()).AsString()
	}
	return strings.Join(parts, ", ")
}

// identityTransformer passes values through unchanged. It backs kinds with
// no shaping of their own and serves as the fallback for unknown kinds.
type identityTransformer struct{}

func (identityTransformer) ToForm(v Value) Value    { return v }
func (identityTransformer) ToStorage(v Value) Value { return v }
func (identityTransformer) ToDisplay(v Value) string {
	return v.AsString()
}
