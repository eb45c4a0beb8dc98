package field

import (
	"fmt"
	"regexp"
)

// machineNamePattern matches valid machine names: a lowercase letter or
// underscore followed by lowercase letters, digits, or underscores.
var machineNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidMachineName reports whether name is a valid field machine name.
func ValidMachineName(name string) bool {
	return machineNamePattern.MatchString(name)
}

// Settings holds the optional per-field configuration that refines a kind's
// behaviour. All constraint fields are pointer-typed so that "unset" and
// "zero" remain distinguishable; the shape is checked once at definition
// load time, not on every access.
type Settings struct {
	// MaxLength is the maximum character length for text kinds. For string
	// fields it also bounds the generated VARCHAR column.
	MaxLength *int `json:"max_length,omitempty" yaml:"max_length,omitempty"`

	// MinLength is the minimum character length for text kinds.
	MinLength *int `json:"min_length,omitempty" yaml:"min_length,omitempty"`

	// Min is the minimum numeric value for integer and float kinds.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`

	// Max is the maximum numeric value for integer and float kinds.
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// Pattern is a regular expression the value must match (text kinds).
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Options is the list of allowed values for select and multiselect kinds.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	// Group is the admin UI grouping label.
	Group string `json:"group,omitempty" yaml:"group,omitempty"`

	// SourceField names the field a slug is derived from.
	SourceField string `json:"source_field,omitempty" yaml:"source_field,omitempty"`

	// DecimalPlaces controls display formatting for float kinds.
	DecimalPlaces *int `json:"decimal_places,omitempty" yaml:"decimal_places,omitempty"`

	// DateFormat is the Go layout used to render date and datetime kinds.
	DateFormat string `json:"date_format,omitempty" yaml:"date_format,omitempty"`

	// TargetType names the entity type an entity_reference field points at.
	TargetType string `json:"target_type,omitempty" yaml:"target_type,omitempty"`
}

// Check validates the settings shape against the field kind and returns a
// list of problems. It is called once when a definition is created or loaded.
func (s Settings) Check(kind Kind) []string {
	var problems []string

	if s.MinLength != nil && !TextKind(kind) {
		problems = append(problems, "min_length is only valid on text kinds")
	}
	if s.MaxLength != nil && !TextKind(kind) {
		problems = append(problems, "max_length is only valid on text kinds")
	}
	if s.MinLength != nil && *s.MinLength < 0 {
		problems = append(problems, fmt.Sprintf("min_length must be >= 0 (got %d)", *s.MinLength))
	}
	if s.MaxLength != nil && *s.MaxLength <= 0 {
		problems = append(problems, fmt.Sprintf("max_length must be > 0 (got %d)", *s.MaxLength))
	}
	if s.MinLength != nil && s.MaxLength != nil && *s.MinLength > *s.MaxLength {
		problems = append(problems, fmt.Sprintf("min_length (%d) must be <= max_length (%d)", *s.MinLength, *s.MaxLength))
	}

	if s.Min != nil && !NumericKind(kind) {
		problems = append(problems, "min is only valid on numeric kinds")
	}
	if s.Max != nil && !NumericKind(kind) {
		problems = append(problems, "max is only valid on numeric kinds")
	}
	if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
		problems = append(problems, fmt.Sprintf("min (%g) must be <= max (%g)", *s.Min, *s.Max))
	}

	if s.Pattern != "" {
		if !TextKind(kind) {
			problems = append(problems, "pattern is only valid on text kinds")
		} else if _, err := regexp.Compile(s.Pattern); err != nil {
			problems = append(problems, fmt.Sprintf("invalid pattern %q: %v", s.Pattern, err))
		}
	}

	if len(s.Options) > 0 && !OptionKind(kind) {
		problems = append(problems, "options is only valid on select and multiselect kinds")
	}
	if OptionKind(kind) && len(s.Options) == 0 {
		problems = append(problems, "select fields must have a non-empty options list")
	}

	if s.DecimalPlaces != nil && kind != KindFloat {
		problems = append(problems, "decimal_places is only valid on float kind")
	}
	if s.DateFormat != "" && kind != KindDate && kind != KindDatetime {
		problems = append(problems, "date_format is only valid on date and datetime kinds")
	}
	if s.TargetType != "" && kind != KindReference {
		problems = append(problems, "target_type is only valid on entity_reference kind")
	}
	if kind == KindReference && s.TargetType == "" {
		problems = append(problems, "entity_reference fields must have target_type")
	}

	return problems
}

// CardinalityUnbounded marks a field with no upper bound on its value count.
// Any cardinality <= 0 is treated as unbounded.
const CardinalityUnbounded = 0

// Definition describes one field: its identity, kind, constraints, and
// rendering configuration. The machine name is the immutable programmatic
// identifier; stored value rows reference the definition by ID, so updates
// only affect metadata, never the shape of existing rows.
type Definition struct {
	// ID is the unique identifier of the definition (UUID).
	ID string `json:"id"`

	// Name is the human-readable display label.
	Name string `json:"name"`

	// MachineName is the snake_case programmatic identifier, unique within
	// an entity-type scope and immutable once created.
	MachineName string `json:"machine_name"`

	// EntityType scopes the definition to one entity type.
	EntityType string `json:"entity_type"`

	// Kind determines validation rules, storage column, and default widget.
	Kind Kind `json:"kind"`

	// Required indicates the field must be provided on submission.
	Required bool `json:"required"`

	// Cardinality is the maximum number of values the field may hold.
	// Values <= 0 mean unbounded; 1 means a single value.
	Cardinality int `json:"cardinality"`

	// Settings refines the kind's behaviour (lengths, ranges, options, ...).
	Settings Settings `json:"settings"`

	// Validation maps rule names to their parameters, run in addition to the
	// kind's default rules.
	Validation map[string]any `json:"validation,omitempty"`

	// Description is shown as help text in forms.
	Description string `json:"description,omitempty"`

	// WidgetID overrides the kind's default widget when non-empty.
	WidgetID string `json:"widget_id,omitempty"`
}

// Multiple reports whether the field may hold more than one value.
func (d Definition) Multiple() bool {
	return d.Cardinality != 1
}

// Unbounded reports whether the field has no cardinality limit.
func (d Definition) Unbounded() bool {
	return d.Cardinality <= CardinalityUnbounded
}

// Check validates the definition's own shape (name, kind, settings) and
// returns a list of problems. Uniqueness of the machine name within the
// entity-type scope is enforced by the repository, not here.
func (d Definition) Check() []string {
	var problems []string

	if d.Name == "" {
		problems = append(problems, "name is required")
	}
	if d.MachineName == "" {
		problems = append(problems, "machine_name is required")
	} else if !ValidMachineName(d.MachineName) {
		problems = append(problems, "machine_name must match ^[a-z_][a-z0-9_]*$")
	}
	if d.EntityType == "" {
		problems = append(problems, "entity_type is required")
	}
	if !KnownKind(d.Kind) {
		problems = append(problems, fmt.Sprintf("unknown field kind %q", d.Kind))
		return problems
	}

	problems = append(problems, d.Settings.Check(d.Kind)...)
	return problems
}
