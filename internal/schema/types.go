// Package schema holds the declarative entity-type metadata of the Lodestone
// field engine and the generator that turns it into DDL. Metadata is
// declared once at startup, from YAML files or registration calls, and is
// the single source of truth for schema generation; nothing is discovered by
// reflection at runtime.
package schema

import (
	"fmt"
	"sort"
)

// ColumnType represents the logical type of an entity column.
type ColumnType string

// Supported column types.
const (
	ColumnString   ColumnType = "string"
	ColumnText     ColumnType = "text"
	ColumnInteger  ColumnType = "integer"
	ColumnFloat    ColumnType = "float"
	ColumnDecimal  ColumnType = "decimal"
	ColumnBoolean  ColumnType = "boolean"
	ColumnDate     ColumnType = "date"
	ColumnDatetime ColumnType = "datetime"
	ColumnJSON     ColumnType = "json"
)

// validColumnTypes is the set of all supported column types, used for validation.
var validColumnTypes = map[ColumnType]bool{
	ColumnString:   true,
	ColumnText:     true,
	ColumnInteger:  true,
	ColumnFloat:    true,
	ColumnDecimal:  true,
	ColumnBoolean:  true,
	ColumnDate:     true,
	ColumnDatetime: true,
	ColumnJSON:     true,
}

// RelationKind represents the cardinality of a relation declaration.
type RelationKind string

// Supported relation kinds.
const (
	RelationOne  RelationKind = "one"
	RelationMany RelationKind = "many"
)

// Column declares one column of an entity table.
type Column struct {
	// Name is the column identifier (snake_case).
	Name string `yaml:"name"`

	// Type is the logical column type, mapped to a SQL type by the generator.
	Type ColumnType `yaml:"type"`

	// Length bounds string columns (VARCHAR limit). Zero means unbounded.
	Length int `yaml:"length,omitempty"`

	// Precision and Scale size decimal columns. Defaults: 10, 2.
	Precision int `yaml:"precision,omitempty"`
	Scale     int `yaml:"scale,omitempty"`

	// Required emits NOT NULL.
	Required bool `yaml:"required,omitempty"`

	// Unique emits a unique index (omitted from revision tables).
	Unique bool `yaml:"unique,omitempty"`

	// Index emits a plain index.
	Index bool `yaml:"index,omitempty"`

	// Default is a literal SQL default expression.
	Default string `yaml:"default,omitempty"`
}

// Relation declares a relation to another entity type. One-relations add a
// foreign-key column on the owning side; many-relations add a junction table.
type Relation struct {
	// Name is the relation identifier; one-relations produce a "{name}_id" column.
	Name string `yaml:"name"`

	// Target is the related entity type's name.
	Target string `yaml:"target"`

	// Kind is the relation cardinality (one or many).
	Kind RelationKind `yaml:"kind"`
}

// EntityType is the schema metadata of one entity class: its table, columns,
// and relations. It is read-only after registration.
type EntityType struct {
	// Name is the entity type identifier (snake_case).
	Name string `yaml:"name"`

	// Label is the human-readable name shown in the admin UI.
	Label string `yaml:"label"`

	// Revisionable entity types get a parallel "_revision" table.
	Revisionable bool `yaml:"revisionable,omitempty"`

	// Columns declares the entity's own columns, in declaration order.
	Columns []Column `yaml:"columns"`

	// Relations declares references to other entity types.
	Relations []Relation `yaml:"relations,omitempty"`

	// SchemaHash is the SHA256 hex digest of the raw declaration bytes,
	// computed after loading; it is not deserialized.
	SchemaHash string `yaml:"-"`
}

// TableName returns the entity's base table name.
func (e EntityType) TableName() string {
	return "et_" + e.Name
}

// RevisionTableName returns the entity's revision table name.
func (e EntityType) RevisionTableName() string {
	return e.TableName() + "_revision"
}

// Registry is the startup-built index of entity types by name.
type Registry struct {
	types map[string]EntityType
}

// NewRegistry creates a Registry over the given entity types.
func NewRegistry(types []EntityType) *Registry {
	r := &Registry{types: make(map[string]EntityType, len(types))}
	for _, et := range types {
		r.types[et.Name] = et
	}
	return r
}

// Get returns the entity type with the given name. An unknown name is an
// error: schema generation is a deploy-time operation where silent
// degradation would produce an incomplete, unreviewed database.
func (r *Registry) Get(name string) (EntityType, error) {
	et, ok := r.types[name]
	if !ok {
		return EntityType{}, fmt.Errorf("unknown entity type %q", name)
	}
	return et, nil
}

// All returns all registered entity types sorted by name for deterministic
// iteration.
func (r *Registry) All() []EntityType {
	out := make([]EntityType, 0, len(r.types))
	for _, et := range r.types {
		out = append(out, et)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
