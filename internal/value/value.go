// Package value implements the in-flight representation of a field value and
// the bidirectional transformers that convert it between its storage, form,
// and display shapes.
package value

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/lodestone-cms/lodestone/internal/field"
)

// Value is an immutable typed wrapper around a raw field value. Emptiness is
// computed once at construction and never recomputed; every transformation
// produces a new Value.
type Value struct {
	raw   any
	kind  field.Kind
	empty bool
}

// New creates a Value for the given kind. A nil raw value, an empty or
// whitespace-only string, and an empty slice or map all count as empty.
func New(raw any, kind field.Kind) Value {
	return Value{raw: raw, kind: kind, empty: computeEmpty(raw)}
}

func computeEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// Raw returns the wrapped value as-is.
func (v Value) Raw() any { return v.raw }

// Kind returns the declared field kind.
func (v Value) Kind() field.Kind { return v.kind }

// IsEmpty reports whether the value counted as empty at construction.
func (v Value) IsEmpty() bool { return v.empty }

// AsString coerces the value to a string. It never fails: values that have
// no sensible string form render as an empty string, because rendering must
// not break on bad legacy data.
func (v Value) AsString() string {
	switch s := v.raw.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case json.Number:
		return s.String()
	case time.Time:
		return s.Format(time.RFC3339)
	case []byte:
		return string(s)
	default:
		encoded, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// AsInt coerces the value to an int64, degrading to 0.
func (v Value) AsInt() int64 {
	switch n := v.raw.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return i
	default:
		return 0
	}
}

// AsFloat coerces the value to a float64, degrading to 0.
func (v Value) AsFloat() float64 {
	switch n := v.raw.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// AsBool coerces the value to a bool, degrading to false. The strings
// accepted mirror strconv.ParseBool.
func (v Value) AsBool() bool {
	switch b := v.raw.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false
		}
		return parsed
	case int, int64, float64, float32:
		return Value{raw: b}.AsFloat() != 0
	default:
		return false
	}
}

// AsArray coerces the value to a slice, wrapping scalars in a single-element
// slice and degrading to nil for empty values.
func (v Value) AsArray() []any {
	switch a := v.raw.(type) {
	case nil:
		return nil
	case []any:
		return a
	case []string:
		out := make([]any, len(a))
		for i, s := range a {
			out[i] = s
		}
		return out
	case string:
		if strings.TrimSpace(a) == "" {
			return nil
		}
		// A stored JSON array round-trips back to a slice.
		if strings.HasPrefix(strings.TrimSpace(a), "[") {
			var decoded []any
			if err := json.Unmarshal([]byte(a), &decoded); err == nil {
				return decoded
			}
		}
		return []any{a}
	default:
		return []any{a}
	}
}

// AsTime coerces the value to a time.Time, degrading to the zero time. It
// accepts time.Time, RFC 3339 strings, bare dates, and the space-separated
// datetime form.
func (v Value) AsTime() time.Time {
	switch t := v.raw.(type) {
	case time.Time:
		return t
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
