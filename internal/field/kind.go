// Package field defines field definitions for the Lodestone field engine:
// the closed set of field kinds, the typed per-field settings, and the
// definition metadata that drives validation, rendering, and storage.
package field

// Kind represents the type of a field.
type Kind string

// Supported field kinds.
const (
	KindString      Kind = "string"
	KindText        Kind = "text"
	KindEmail       Kind = "email"
	KindURL         Kind = "url"
	KindSlug        Kind = "slug"
	KindColor       Kind = "color"
	KindInteger     Kind = "integer"
	KindFloat       Kind = "float"
	KindBoolean     Kind = "boolean"
	KindDate        Kind = "date"
	KindDatetime    Kind = "datetime"
	KindJSON        Kind = "json"
	KindSelect      Kind = "select"
	KindMultiselect Kind = "multiselect"
	KindReference   Kind = "entity_reference"
)

// validKinds is the set of all supported field kinds, used for validation.
var validKinds = map[Kind]bool{
	KindString:      true,
	KindText:        true,
	KindEmail:       true,
	KindURL:         true,
	KindSlug:        true,
	KindColor:       true,
	KindInteger:     true,
	KindFloat:       true,
	KindBoolean:     true,
	KindDate:        true,
	KindDatetime:    true,
	KindJSON:        true,
	KindSelect:      true,
	KindMultiselect: true,
	KindReference:   true,
}

// KnownKind reports whether k is one of the supported field kinds.
func KnownKind(k Kind) bool {
	return validKinds[k]
}

// textKinds are the kinds that support min_length, max_length, and pattern.
var textKinds = map[Kind]bool{
	KindString: true,
	KindText:   true,
	KindEmail:  true,
	KindURL:    true,
	KindSlug:   true,
	KindColor:  true,
}

// numericKinds are the kinds that support min and max.
var numericKinds = map[Kind]bool{
	KindInteger: true,
	KindFloat:   true,
}

// optionKinds are the kinds that require an options list.
var optionKinds = map[Kind]bool{
	KindSelect:      true,
	KindMultiselect: true,
}

// TextKind reports whether k holds free-form text subject to length and
// pattern settings.
func TextKind(k Kind) bool { return textKinds[k] }

// NumericKind reports whether k holds a numeric value subject to min/max.
func NumericKind(k Kind) bool { return numericKinds[k] }

// OptionKind reports whether k selects from a fixed options list.
func OptionKind(k Kind) bool { return optionKinds[k] }
