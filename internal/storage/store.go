// Package storage persists field values in an attribute-value table keyed by
// (field, entity type, entity id, langcode, delta), with append-only
// revision snapshots. Two implementations share the Store contract: the
// Postgres store used in production and a memory store used for tests and
// database-less development.
package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lodestone-cms/lodestone/internal/field"
)

// DefaultLangcode is the language code used when the caller does not
// distinguish translations.
const DefaultLangcode = "und"

// Sentinel errors shared by all Store implementations.
var (
	ErrRevisionNotFound = errors.New("revision not found")
)

// Store is the field value storage contract.
//
// SetValue rewrites a field's rows atomically: all existing rows for the
// (field, entity type, entity id, langcode) key are removed and the new
// values are inserted with dense 0-based deltas. Values beyond a bounded
// cardinality are silently truncated; that is documented policy, not an
// error. SetValues wraps the per-field writes of a whole submission in one
// transaction, so a concurrent reader observes either the fully-old or the
// fully-new field set, never a mix.
type Store interface {
	// GetValue returns a field's stored values ordered by delta. A missing
	// field yields a nil slice, not an error; the caller decides whether
	// absence is a problem.
	GetValue(ctx context.Context, fieldID, entityType, entityID, langcode string) ([]any, error)

	// GetEntityValues returns all stored values of an entity keyed by field id.
	GetEntityValues(ctx context.Context, entityType, entityID, langcode string) (map[string][]any, error)

	// SetValue replaces a field's values. The definition supplies the kind
	// (storage column dispatch) and cardinality (truncation limit).
	SetValue(ctx context.Context, def field.Definition, entityType, entityID, langcode string, values []any) error

	// SetValues replaces the values of several fields in one transaction.
	// The values map is keyed by definition id, the same keying
	// GetEntityValues returns; a definition with no entry clears the field.
	SetValues(ctx context.Context, defs []field.Definition, entityType, entityID, langcode string, values map[string][]any) error

	// DeleteValue removes all rows of one field on one entity.
	DeleteValue(ctx context.Context, fieldID, entityType, entityID, langcode string) error

	// DeleteEntityValues removes all rows of an entity across all languages.
	DeleteEntityValues(ctx context.Context, entityType, entityID string) error

	// CreateRevision snapshots the entity's current rows under a new
	// revision id (append-only) and returns the id.
	CreateRevision(ctx context.Context, entityType, entityID, langcode, userID, log string) (string, error)

	// RestoreRevision overwrites the entity's current rows from a revision
	// snapshot inside a transaction.
	RestoreRevision(ctx context.Context, entityType, entityID, langcode, revisionID string) error
}

// Column identifies one of the typed value columns of the field_values table.
type Column string

// Typed value columns.
const (
	ColString   Column = "value_string"
	ColText     Column = "value_text"
	ColInt      Column = "value_int"
	ColFloat    Column = "value_float"
	ColBool     Column = "value_bool"
	ColDate     Column = "value_date"
	ColDatetime Column = "value_datetime"
	ColJSON     Column = "value_json"
)

// Columns lists all typed value columns in a fixed order, used to build
// deterministic SQL.
var Columns = []Column{
	ColString, ColText, ColInt, ColFloat, ColBool, ColDate, ColDatetime, ColJSON,
}

// kindColumns is the closed dispatch table from field kind to value column.
var kindColumns = map[field.Kind]Column{
	field.KindString:      ColString,
	field.KindEmail:       ColString,
	field.KindURL:         ColString,
	field.KindSlug:        ColString,
	field.KindColor:       ColString,
	field.KindSelect:      ColString,
	field.KindReference:   ColString,
	field.KindText:        ColText,
	field.KindInteger:     ColInt,
	field.KindFloat:       ColFloat,
	field.KindBoolean:     ColBool,
	field.KindDate:        ColDate,
	field.KindDatetime:    ColDatetime,
	field.KindJSON:        ColJSON,
	field.KindMultiselect: ColJSON,
}

// ColumnFor returns the value column for a field kind. Unrecognized kinds
// fall back to the string or JSON column based on the value's shape, never an
// error, so the store tolerates type evolution in old data.
func ColumnFor(kind field.Kind, sample any) Column {
	if col, ok := kindColumns[kind]; ok {
		return col
	}
	switch v := sample.(type) {
	case map[string]any, []any:
		return ColJSON
	case string:
		if len(v) > 0 && (v[0] == '{' || v[0] == '[') && json.Valid([]byte(v)) {
			return ColJSON
		}
	}
	return ColString
}

// Truncate applies the definition's cardinality bound to a value list.
// Unbounded fields pass through; bounded fields keep the first N values.
func Truncate(def field.Definition, values []any) []any {
	if def.Unbounded() || len(values) <= def.Cardinality {
		return values
	}
	return values[:def.Cardinality]
}
