package schema

import (
	"fmt"
	"strings"
)

// ChangeType describes the kind of schema change detected between a declared
// entity type and its existing state in the database.
type ChangeType string

// Supported change types.
const (
	ChangeCreateTable ChangeType = "create_table"
	ChangeAddColumn   ChangeType = "add_column"
	ChangeDropColumn  ChangeType = "drop_column"
	ChangeAlterColumn ChangeType = "alter_column"
	ChangeAddIndex    ChangeType = "add_index"
	ChangeDropIndex   ChangeType = "drop_index"
)

// Change represents a single schema change with its SQL and safety
// classification.
type Change struct {
	// Type is the kind of change (create_table, add_column, etc.).
	Type ChangeType

	// Table is the target table name (e.g., "et_article").
	Table string

	// Column is the affected column name, if applicable.
	Column string

	// SQL is the DDL statement to execute this change.
	SQL string

	// Safe indicates whether this change can be auto-applied without data
	// loss. Safe changes: add nullable column, add index, create new table,
	// drop NOT NULL. Breaking changes: drop column, change type, add NOT
	// NULL column, set NOT NULL.
	Safe bool

	// Detail is a human-readable description of the change.
	Detail string
}

// GenerateAlterSQL diffs a declared entity type against its existing state
// and returns the combined DDL for all detected changes, breaking ones
// included. Callers that need the safety classification use DiffEntity
// directly.
func GenerateAlterSQL(loaded EntityType, existing *EntityType) (string, error) {
	changes, err := DiffEntity(loaded, existing)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, change := range changes {
		b.WriteString(change.SQL)
		if !strings.HasSuffix(change.SQL, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// DiffEntity compares a declared entity type against its existing state in
// the database. If existing is nil, the entity type is new and a single
// ChangeCreateTable is returned. Otherwise columns and relations are
// compared to detect additions, removals, type changes, and nullability
// changes.
//
// Type comparison is deliberately narrow: only the base SQL type token is
// compared. Changes to defaults or to DDL cosmetics never produce a diff.
func DiffEntity(loaded EntityType, existing *EntityType) ([]Change, error) {
	tableName := loaded.TableName()

	if existing == nil {
		sql, err := GenerateSQL(loaded)
		if err != nil {
			return nil, err
		}
		return []Change{{
			Type:   ChangeCreateTable,
			Table:  tableName,
			SQL:    sql,
			Safe:   true,
			Detail: fmt.Sprintf("create new table %s", tableName),
		}}, nil
	}

	var changes []Change

	existingCols := make(map[string]Column, len(existing.Columns))
	for _, c := range existing.Columns {
		existingCols[c.Name] = c
	}
	loadedCols := make(map[string]Column, len(loaded.Columns))
	for _, c := range loaded.Columns {
		loadedCols[c.Name] = c
	}

	// New columns (in loaded but not in existing).
	for _, c := range loaded.Columns {
		if _, ok := existingCols[c.Name]; ok {
			continue
		}

		// Adding a nullable column is safe. Adding a NOT NULL column is
		// breaking because existing rows would violate the constraint.
		safe := !c.Required
		detail := fmt.Sprintf("add column %s.%s (%s)", tableName, c.Name, columnSQLType(c))
		if !safe {
			detail += " [BREAKING: NOT NULL on existing table]"
		}

		changes = append(changes, Change{
			Type:   ChangeAddColumn,
			Table:  tableName,
			Column: c.Name,
			SQL: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
				QuoteIdent(tableName), buildColumnDef(c)),
			Safe:   safe,
			Detail: detail,
		})

		if c.Unique {
			idxName := fmt.Sprintf("idx_%s_%s_unique", tableName, c.Name)
			changes = append(changes, Change{
				Type:   ChangeAddIndex,
				Table:  tableName,
				Column: c.Name,
				SQL: fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s(%s);",
					QuoteIdent(idxName), QuoteIdent(tableName), QuoteIdent(c.Name)),
				Safe:   true,
				Detail: fmt.Sprintf("add unique index on %s.%s", tableName, c.Name),
			})
		}
	}

	// Removed columns (in existing but not in loaded).
	for _, c := range existing.Columns {
		if _, ok := loadedCols[c.Name]; ok {
			continue
		}
		changes = append(changes, Change{
			Type:   ChangeDropColumn,
			Table:  tableName,
			Column: c.Name,
			SQL: fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;",
				QuoteIdent(tableName), QuoteIdent(c.Name)),
			Safe:   false,
			Detail: fmt.Sprintf("drop column %s.%s [BREAKING: data loss]", tableName, c.Name),
		})
	}

	// Columns present in both: compare base type, nullability, uniqueness.
	for _, lc := range loaded.Columns {
		ec, ok := existingCols[lc.Name]
		if !ok {
			continue
		}

		loadedType := columnSQLType(lc)
		existingType := columnSQLType(ec)
		if loadedType != existingType {
			changes = append(changes, Change{
				Type:   ChangeAlterColumn,
				Table:  tableName,
				Column: lc.Name,
				SQL: fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;",
					QuoteIdent(tableName), QuoteIdent(lc.Name), loadedType),
				Safe: false,
				Detail: fmt.Sprintf("change type of %s.%s from %s to %s [BREAKING]",
					tableName, lc.Name, existingType, loadedType),
			})
		}

		if lc.Required != ec.Required {
			if lc.Required {
				changes = append(changes, Change{
					Type:  ChangeAlterColumn,
					Table: tableName, Column: lc.Name,
					SQL: fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;",
						QuoteIdent(tableName), QuoteIdent(lc.Name)),
					Safe:   false,
					Detail: fmt.Sprintf("set NOT NULL on %s.%s [BREAKING: existing NULLs will fail]", tableName, lc.Name),
				})
			} else {
				changes = append(changes, Change{
					Type:  ChangeAlterColumn,
					Table: tableName, Column: lc.Name,
					SQL: fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;",
						QuoteIdent(tableName), QuoteIdent(lc.Name)),
					Safe:   true,
					Detail: fmt.Sprintf("drop NOT NULL on %s.%s", tableName, lc.Name),
				})
			}
		}

		if lc.Unique && !ec.Unique {
			idxName := fmt.Sprintf("idx_%s_%s_unique", tableName, lc.Name)
			changes = append(changes, Change{
				Type:   ChangeAddIndex,
				Table:  tableName,
				Column: lc.Name,
				SQL: fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s(%s);",
					QuoteIdent(idxName), QuoteIdent(tableName), QuoteIdent(lc.Name)),
				Safe:   true,
				Detail: fmt.Sprintf("add unique index on %s.%s", tableName, lc.Name),
			})
		}
		if !lc.Unique && ec.Unique {
			idxName := fmt.Sprintf("idx_%s_%s_unique", tableName, lc.Name)
			changes = append(changes, Change{
				Type:   ChangeDropIndex,
				Table:  tableName,
				Column: lc.Name,
				SQL:    fmt.Sprintf("DROP INDEX IF EXISTS %s;", QuoteIdent(idxName)),
				Safe:   true,
				Detail: fmt.Sprintf("drop unique index on %s.%s", tableName, lc.Name),
			})
		}
	}

	changes = append(changes, diffRelations(loaded, existing)...)

	return changes, nil
}

// diffRelations detects added and removed relations. A changed relation
// (same name, different target or kind) shows up as a drop plus an add.
func diffRelations(loaded EntityType, existing *EntityType) []Change {
	existingRels := make(map[string]Relation, len(existing.Relations))
	for _, r := range existing.Relations {
		existingRels[r.Name] = r
	}
	loadedRels := make(map[string]Relation, len(loaded.Relations))
	for _, r := range loaded.Relations {
		loadedRels[r.Name] = r
	}

	var changes []Change

	for _, r := range loaded.Relations {
		er, ok := existingRels[r.Name]
		if ok && er.Target == r.Target && er.Kind == r.Kind {
			continue
		}
		if ok {
			changes = append(changes, dropRelationChange(loaded, er))
		}
		changes = append(changes, addRelationChange(loaded, r))
	}

	for _, r := range existing.Relations {
		if _, ok := loadedRels[r.Name]; ok {
			continue
		}
		changes = append(changes, dropRelationChange(loaded, r))
	}

	return changes
}

func addRelationChange(e EntityType, rel Relation) Change {
	tableName := e.TableName()

	if rel.Kind == RelationMany {
		return Change{
			Type:   ChangeAddColumn,
			Table:  tableName,
			Column: rel.Name,
			SQL:    generateJunctionTable(e, rel),
			Safe:   true,
			Detail: fmt.Sprintf("add junction table for relation %q", rel.Name),
		}
	}

	col := relationColumnName(rel)
	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s UUID;\n", QuoteIdent(tableName), QuoteIdent(col))
	sql += fmt.Sprintf("CREATE INDEX %s ON %s(%s);\n",
		QuoteIdent(fmt.Sprintf("idx_%s_%s", tableName, col)), QuoteIdent(tableName), QuoteIdent(col))
	sql += fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE SET NULL;",
		QuoteIdent(tableName), QuoteIdent(fmt.Sprintf("fk_%s_%s", tableName, col)),
		QuoteIdent(col), QuoteIdent("et_"+rel.Target), QuoteIdent("id"))

	return Change{
		Type:   ChangeAddColumn,
		Table:  tableName,
		Column: col,
		SQL:    sql,
		Safe:   true,
		Detail: fmt.Sprintf("add FK column %s.%s referencing et_%s", tableName, col, rel.Target),
	}
}

func dropRelationChange(e EntityType, rel Relation) Change {
	tableName := e.TableName()

	if rel.Kind == RelationMany {
		junction := junctionTableName(e, rel)
		return Change{
			Type:   ChangeDropColumn,
			Table:  tableName,
			Column: rel.Name,
			SQL:    fmt.Sprintf("DROP TABLE IF EXISTS %s;", QuoteIdent(junction)),
			Safe:   false,
			Detail: fmt.Sprintf("drop junction table %s for removed relation %q [BREAKING: data loss]", junction, rel.Name),
		}
	}

	col := relationColumnName(rel)
	return Change{
		Type:   ChangeDropColumn,
		Table:  tableName,
		Column: col,
		SQL: fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;",
			QuoteIdent(tableName), QuoteIdent(col)),
		Safe:   false,
		Detail: fmt.Sprintf("drop FK column %s.%s [BREAKING: data loss]", tableName, col),
	}
}
