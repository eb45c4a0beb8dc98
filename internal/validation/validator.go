package validation

import (
	"sort"

	"github.com/lodestone-cms/lodestone/internal/field"
)

// kindDefaultRules maps each field kind to the rule names applied before any
// field-specific configuration. The table is closed: kinds without an entry
// carry no default rules.
var kindDefaultRules = map[field.Kind][]string{
	field.KindEmail:     {"email"},
	field.KindURL:       {"url"},
	field.KindSlug:      {"slug"},
	field.KindColor:     {"color"},
	field.KindInteger:   {"integer"},
	field.KindFloat:     {"numeric"},
	field.KindBoolean:   {"boolean"},
	field.KindDate:      {"date"},
	field.KindDatetime:  {"datetime"},
	field.KindJSON:      {"json"},
	field.KindReference: {"uuid"},
}

// Validator applies validation rules to field values according to their
// definitions. It is stateless and safe for concurrent use.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateField validates a single value against its field definition and
// returns all error messages. The checks run in a fixed order:
//
//  1. The required rule; a failure returns immediately, since no other rule
//     is meaningful for an absent value.
//  2. An empty optional value passes with no further checks.
//  3. The kind's default rules.
//  4. The rules declared in the definition's validation map.
//  5. Settings-derived rules (lengths, range, pattern, options).
//
// Steps 3-5 accumulate so a single submission reports every violation at
// once. allValues carries the sibling field values of the same submission
// for rules that need cross-field context; it may be nil.
func (v *Validator) ValidateField(def field.Definition, value any, allValues map[string]any) []string {
	label := def.Name
	if label == "" {
		label = def.MachineName
	}

	if def.Required {
		if res := Apply("required", value, nil); !res.Valid {
			return prefixAll(label, res.Errors)
		}
	}
	if IsEmpty(value) {
		return nil
	}

	result := OK()

	for _, name := range kindDefaultRules[def.Kind] {
		result = result.Merge(Apply(name, value, nil))
	}

	// Field-declared rules, in sorted order for deterministic messages.
	ruleNames := make([]string, 0, len(def.Validation))
	for name := range def.Validation {
		ruleNames = append(ruleNames, name)
	}
	sort.Strings(ruleNames)
	for _, name := range ruleNames {
		result = result.Merge(Apply(name, value, def.Validation[name]))
	}

	result = result.Merge(v.settingsRules(def, value))

	return prefixAll(label, result.Errors)
}

// settingsRules derives rules from the definition's settings, each applied
// only when the corresponding setting is present.
func (v *Validator) settingsRules(def field.Definition, value any) Result {
	result := OK()
	s := def.Settings

	if s.MaxLength != nil {
		result = result.Merge(Apply("maxLength", value, *s.MaxLength))
	}
	if s.MinLength != nil {
		result = result.Merge(Apply("minLength", value, *s.MinLength))
	}
	if s.Max != nil {
		result = result.Merge(Apply("max", value, *s.Max))
	}
	if s.Min != nil {
		result = result.Merge(Apply("min", value, *s.Min))
	}
	if s.Pattern != "" {
		result = result.Merge(Apply("pattern", value, s.Pattern))
	}

	if len(s.Options) > 0 && field.OptionKind(def.Kind) {
		if def.Kind == field.KindMultiselect {
			for _, element := range toStringSlice(value) {
				result = result.Merge(Apply("in", element, s.Options))
			}
		} else {
			result = result.Merge(Apply("in", value, s.Options))
		}
	}

	return result
}

// ValidateFields validates a set of values against their definitions and
// returns a map of machine name to error messages. Fields with no errors are
// omitted from the map, so an empty map means the whole submission passed.
func (v *Validator) ValidateFields(defs []field.Definition, values map[string]any) map[string][]string {
	errs := make(map[string][]string)
	for _, def := range defs {
		fieldErrs := v.ValidateField(def, values[def.MachineName], values)
		if len(fieldErrs) > 0 {
			errs[def.MachineName] = fieldErrs
		}
	}
	return errs
}

// prefixAll prepends the field label to each message, producing sentences
// like "Email must be a valid email address".
func prefixAll(label string, messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = label + " " + m
	}
	return out
}
