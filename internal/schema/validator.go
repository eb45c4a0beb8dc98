package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// namePattern matches valid entity type, column, and relation names: a
// lowercase letter followed by lowercase letters, digits, or underscores.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// sqlReservedWords is a set of SQL keywords that must not be used as entity
// type names because they would collide with SQL syntax in generated DDL.
var sqlReservedWords = map[string]bool{
	"select":   true,
	"insert":   true,
	"update":   true,
	"delete":   true,
	"drop":     true,
	"table":    true,
	"create":   true,
	"alter":    true,
	"index":    true,
	"where":    true,
	"from":     true,
	"join":     true,
	"order":    true,
	"group":    true,
	"having":   true,
	"limit":    true,
	"offset":   true,
	"union":    true,
	"distinct": true,
	"and":      true,
	"or":       true,
	"not":      true,
	"null":     true,
	"true":     true,
	"false":    true,
	"in":       true,
	"between":  true,
	"like":     true,
	"is":       true,
	"exists":   true,
	"case":     true,
	"when":     true,
	"then":     true,
	"else":     true,
	"end":      true,
	"as":       true,
	"on":       true,
	"into":     true,
	"values":   true,
	"set":      true,
	"primary":  true,
	"foreign":  true,
	"key":      true,
	"check":    true,
	"default":  true,
	"grant":    true,
	"revoke":   true,
	"cascade":  true,
	"trigger":  true,
	"begin":    true,
	"commit":   true,
	"rollback": true,
}

// reservedColumnNames is the set of column names automatically added to every
// entity table or its revision table. Declared columns must not use these.
var reservedColumnNames = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"revision_id":      true,
	"entity_id":        true,
	"revision_created": true,
	"revision_user":    true,
	"revision_log":     true,
}

// maxEntityTypeNameLength is the maximum length for an entity type name.
// PostgreSQL identifiers are limited to 63 bytes. Entity tables are named
// "et_{name}" and revision tables "et_{name}_revision", so the name itself
// is limited to 63 - len("et_") - len("_revision") = 51 characters.
const maxEntityTypeNameLength = 51

// maxColumnNameLength is the maximum length for a column name. PostgreSQL
// identifiers are limited to 63 bytes.
const maxColumnNameLength = 63

// ValidationError holds a list of all validation problems found across
// entity type declarations.
type ValidationError struct {
	Problems []string
}

// Error returns a human-readable summary of all validation problems.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed with %d problem(s):\n- %s",
		len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// ValidateEntityTypes validates all entity types together, including
// cross-references between them (relation targets). It returns a multi-error
// listing ALL validation problems found, or nil if everything is valid.
func ValidateEntityTypes(types []EntityType) error {
	knownTypes := make(map[string]bool, len(types))
	for _, et := range types {
		if et.Name != "" {
			knownTypes[et.Name] = true
		}
	}

	var allErrors []string

	nameCount := make(map[string]int, len(types))
	for _, et := range types {
		nameCount[et.Name]++
	}
	for name, count := range nameCount {
		if count > 1 && name != "" {
			allErrors = append(allErrors, fmt.Sprintf("entity type name %q is defined %d times", name, count))
		}
	}

	for _, et := range types {
		problems := validateEntityType(et, knownTypes)
		for _, msg := range problems {
			allErrors = append(allErrors, fmt.Sprintf("entity type %q: %s", et.Name, msg))
		}
	}

	if len(allErrors) == 0 {
		return nil
	}

	return &ValidationError{Problems: allErrors}
}

// validateEntityType validates a single entity type and returns a list of
// validation error messages. It receives the set of all known entity type
// names for relation target validation.
func validateEntityType(et EntityType, knownTypes map[string]bool) []string {
	var problems []string

	if et.Name == "" {
		problems = append(problems, "name is required")
	} else {
		if !namePattern.MatchString(et.Name) {
			problems = append(problems, "name must match ^[a-z][a-z0-9_]*$")
		}
		if len(et.Name) > maxEntityTypeNameLength {
			problems = append(problems, fmt.Sprintf("name must be at most %d characters (got %d); PostgreSQL identifier limit is 63 and tables use \"et_\" prefix", maxEntityTypeNameLength, len(et.Name)))
		}
		if strings.HasPrefix(et.Name, "et_") {
			problems = append(problems, "name must not start with \"et_\" (reserved for table prefix)")
		}
		if sqlReservedWords[strings.ToLower(et.Name)] {
			problems = append(problems, fmt.Sprintf("name %q is a reserved SQL keyword", et.Name))
		}
	}

	if et.Label == "" {
		problems = append(problems, "label is required")
	}

	if len(et.Columns) == 0 {
		problems = append(problems, "at least one column is required")
		return problems
	}

	columnNames := make(map[string]bool, len(et.Columns))

	for i, c := range et.Columns {
		prefix := fmt.Sprintf("column[%d] (%s)", i, c.Name)

		if c.Name == "" {
			problems = append(problems, fmt.Sprintf("column[%d]: name is required", i))
		} else {
			if !namePattern.MatchString(c.Name) {
				problems = append(problems, fmt.Sprintf("%s: name must match ^[a-z][a-z0-9_]*$", prefix))
			}
			if len(c.Name) > maxColumnNameLength {
				problems = append(problems, fmt.Sprintf("%s: name must be at most %d characters (got %d)", prefix, maxColumnNameLength, len(c.Name)))
			}
			if reservedColumnNames[c.Name] {
				problems = append(problems, fmt.Sprintf("%s: name %q is a reserved column name", prefix, c.Name))
			}
			if columnNames[c.Name] {
				problems = append(problems, fmt.Sprintf("%s: duplicate column name", prefix))
			}
			columnNames[c.Name] = true
		}

		if !validColumnTypes[c.Type] {
			problems = append(problems, fmt.Sprintf("%s: invalid column type %q", prefix, c.Type))
			continue
		}

		if c.Length < 0 {
			problems = append(problems, fmt.Sprintf("%s: length must be >= 0 (got %d)", prefix, c.Length))
		}
		if c.Length > 0 && c.Type != ColumnString {
			problems = append(problems, fmt.Sprintf("%s: length is only valid on string type", prefix))
		}

		if (c.Precision != 0 || c.Scale != 0) && c.Type != ColumnDecimal {
			problems = append(problems, fmt.Sprintf("%s: precision and scale are only valid on decimal type", prefix))
		}
		if c.Type == ColumnDecimal {
			if c.Precision < 0 {
				problems = append(problems, fmt.Sprintf("%s: precision must be >= 0 (got %d)", prefix, c.Precision))
			}
			if c.Scale < 0 {
				problems = append(problems, fmt.Sprintf("%s: scale must be >= 0 (got %d)", prefix, c.Scale))
			}
			if c.Precision > 0 && c.Scale > c.Precision {
				problems = append(problems, fmt.Sprintf("%s: scale (%d) must be <= precision (%d)", prefix, c.Scale, c.Precision))
			}
		}

		if c.Unique && c.Type == ColumnJSON {
			problems = append(problems, fmt.Sprintf("%s: unique is not supported on json type", prefix))
		}
	}

	relationNames := make(map[string]bool, len(et.Relations))

	for i, r := range et.Relations {
		prefix := fmt.Sprintf("relation[%d] (%s)", i, r.Name)

		if r.Name == "" {
			problems = append(problems, fmt.Sprintf("relation[%d]: name is required", i))
		} else {
			if !namePattern.MatchString(r.Name) {
				problems = append(problems, fmt.Sprintf("%s: name must match ^[a-z][a-z0-9_]*$", prefix))
			}
			if relationNames[r.Name] {
				problems = append(problems, fmt.Sprintf("%s: duplicate relation name", prefix))
			}
			if columnNames[r.Name] || columnNames[r.Name+"_id"] {
				problems = append(problems, fmt.Sprintf("%s: relation name collides with a column", prefix))
			}
			relationNames[r.Name] = true
		}

		if r.Target == "" {
			problems = append(problems, fmt.Sprintf("%s: relation must have a target", prefix))
		} else if !knownTypes[r.Target] {
			problems = append(problems, fmt.Sprintf("%s: target references unknown entity type %q", prefix, r.Target))
		}

		if r.Kind != RelationOne && r.Kind != RelationMany {
			problems = append(problems, fmt.Sprintf("%s: relation must have a kind of \"one\" or \"many\", got %q", prefix, r.Kind))
		}
	}

	return problems
}
