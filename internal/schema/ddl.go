package schema

import (
	"fmt"
	"strings"
)

// QuoteIdent quotes a SQL identifier using double quotes, escaping any
// embedded double quotes by doubling them. The validator already restricts
// names to safe characters; quoting keeps reserved words usable.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnSQLType returns ONLY the PostgreSQL base type for a column, without
// defaults or constraints. The mapping is a fixed table; every logical type
// resolves to exactly one SQL type token.
func columnSQLType(c Column) string {
	switch c.Type {
	case ColumnString:
		if c.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Length)
		}
		return "TEXT"
	case ColumnText:
		return "TEXT"
	case ColumnInteger:
		return "INTEGER"
	case ColumnFloat:
		return "DOUBLE PRECISION"
	case ColumnDecimal:
		precision, scale := c.Precision, c.Scale
		if precision <= 0 {
			precision, scale = 10, 2
		}
		return fmt.Sprintf("NUMERIC(%d,%d)", precision, scale)
	case ColumnBoolean:
		return "BOOLEAN"
	case ColumnDate:
		return "DATE"
	case ColumnDatetime:
		return "TIMESTAMPTZ"
	case ColumnJSON:
		return "JSONB"
	default:
		return "TEXT"
	}
}

// buildColumnDef builds the inline column definition for CREATE TABLE:
// name, base type, DEFAULT, NOT NULL. Unique and foreign-key constraints are
// intentionally NOT inline; they are collected as a side list so constraint
// generation stays independent of column ordering.
func buildColumnDef(c Column) string {
	parts := []string{QuoteIdent(c.Name), columnSQLType(c)}
	if c.Default != "" {
		parts = append(parts, "DEFAULT "+c.Default)
	}
	if c.Required {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

// relationColumnName returns the FK column a one-relation adds to the
// owning table.
func relationColumnName(rel Relation) string {
	return rel.Name + "_id"
}

// junctionTableName returns the junction table name for a many-relation.
func junctionTableName(e EntityType, rel Relation) string {
	return fmt.Sprintf("%s_%s_rel", e.TableName(), rel.Name)
}

// GenerateSQL generates the full DDL batch for one entity type: the base
// table, its indexes and constraints, junction tables for many-relations,
// and the revision table when the type is revisionable. The output is
// deterministic: identical metadata yields byte-identical DDL.
func GenerateSQL(e EntityType) (string, error) {
	if e.Name == "" {
		return "", fmt.Errorf("entity type has no name")
	}
	if len(e.Columns) == 0 {
		return "", fmt.Errorf("entity type %q declares no columns", e.Name)
	}

	var b strings.Builder
	tableName := e.TableName()
	qTable := QuoteIdent(tableName)

	// -- CREATE TABLE --
	b.WriteString(fmt.Sprintf("CREATE TABLE %s (\n", qTable))
	b.WriteString(fmt.Sprintf("    %s UUID PRIMARY KEY DEFAULT gen_random_uuid(),\n", QuoteIdent("id")))

	var colDefs []string
	for _, c := range e.Columns {
		colDefs = append(colDefs, "    "+buildColumnDef(c))
	}
	// One-relations contribute an FK column on the owning side.
	for _, rel := range e.Relations {
		if rel.Kind == RelationOne {
			colDefs = append(colDefs, fmt.Sprintf("    %s UUID", QuoteIdent(relationColumnName(rel))))
		}
	}
	colDefs = append(colDefs,
		fmt.Sprintf("    %s TIMESTAMPTZ NOT NULL DEFAULT now()", QuoteIdent("created_at")),
		fmt.Sprintf("    %s TIMESTAMPTZ NOT NULL DEFAULT now()", QuoteIdent("updated_at")),
	)
	b.WriteString(strings.Join(colDefs, ",\n"))
	b.WriteString("\n);\n")

	// -- Constraint and index side list --
	for _, stmt := range constraintStatements(e) {
		b.WriteString(stmt + "\n")
	}

	// -- Junction tables for many-relations --
	for _, rel := range e.Relations {
		if rel.Kind == RelationMany {
			b.WriteString(generateJunctionTable(e, rel))
		}
	}

	// -- Revision table --
	if e.Revisionable {
		b.WriteString(generateRevisionTable(e))
	}

	return b.String(), nil
}

// constraintStatements collects the unique indexes, plain indexes, and
// foreign keys of an entity as standalone statements.
func constraintStatements(e EntityType) []string {
	var stmts []string
	tableName := e.TableName()
	qTable := QuoteIdent(tableName)

	for _, c := range e.Columns {
		if c.Unique {
			idxName := fmt.Sprintf("idx_%s_%s_unique", tableName, c.Name)
			stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s(%s);",
				QuoteIdent(idxName), qTable, QuoteIdent(c.Name)))
		}
		if c.Index && !c.Unique {
			idxName := fmt.Sprintf("idx_%s_%s", tableName, c.Name)
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s(%s);",
				QuoteIdent(idxName), qTable, QuoteIdent(c.Name)))
		}
	}

	for _, rel := range e.Relations {
		if rel.Kind != RelationOne {
			continue
		}
		col := relationColumnName(rel)
		idxName := fmt.Sprintf("idx_%s_%s", tableName, col)
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s(%s);",
			QuoteIdent(idxName), qTable, QuoteIdent(col)))

		fkName := fmt.Sprintf("fk_%s_%s", tableName, col)
		stmts = append(stmts, fmt.Sprintf(
			"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE SET NULL;",
			qTable, QuoteIdent(fkName), QuoteIdent(col),
			QuoteIdent("et_"+rel.Target), QuoteIdent("id")))
	}

	return stmts
}

// generateJunctionTable generates the junction table for a many-relation.
func generateJunctionTable(e EntityType, rel Relation) string {
	junction := junctionTableName(e, rel)
	sourceTable := e.TableName()
	targetTable := "et_" + rel.Target

	var b strings.Builder
	b.WriteString(fmt.Sprintf("\nCREATE TABLE %s (\n", QuoteIdent(junction)))
	b.WriteString(fmt.Sprintf("    %s UUID NOT NULL REFERENCES %s(%s) ON DELETE CASCADE,\n",
		QuoteIdent("source_id"), QuoteIdent(sourceTable), QuoteIdent("id")))
	b.WriteString(fmt.Sprintf("    %s UUID NOT NULL REFERENCES %s(%s) ON DELETE CASCADE,\n",
		QuoteIdent("target_id"), QuoteIdent(targetTable), QuoteIdent("id")))
	b.WriteString(fmt.Sprintf("    PRIMARY KEY (%s, %s)\n", QuoteIdent("source_id"), QuoteIdent("target_id")))
	b.WriteString(");\n")
	return b.String()
}

// generateRevisionTable generates the parallel revision table of a
// revisionable entity: the same columns as the base table but without its
// primary key and without unique constraints (multiple revisions may repeat
// a "unique" value), plus the revision bookkeeping columns and a foreign key
// back to the base table.
func generateRevisionTable(e EntityType) string {
	revTable := e.RevisionTableName()
	qRev := QuoteIdent(revTable)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("\nCREATE TABLE %s (\n", qRev))
	b.WriteString(fmt.Sprintf("    %s VARCHAR(26) PRIMARY KEY,\n", QuoteIdent("revision_id")))
	b.WriteString(fmt.Sprintf("    %s UUID NOT NULL,\n", QuoteIdent("entity_id")))

	var colDefs []string
	for _, c := range e.Columns {
		// Same shape as the base column, minus any uniqueness.
		plain := c
		plain.Unique = false
		colDefs = append(colDefs, "    "+buildColumnDef(plain))
	}
	for _, rel := range e.Relations {
		if rel.Kind == RelationOne {
			colDefs = append(colDefs, fmt.Sprintf("    %s UUID", QuoteIdent(relationColumnName(rel))))
		}
	}
	colDefs = append(colDefs,
		fmt.Sprintf("    %s TIMESTAMPTZ NOT NULL DEFAULT now()", QuoteIdent("revision_created")),
		fmt.Sprintf("    %s UUID", QuoteIdent("revision_user")),
		fmt.Sprintf("    %s TEXT", QuoteIdent("revision_log")),
	)
	b.WriteString(strings.Join(colDefs, ",\n"))
	b.WriteString("\n);\n")

	b.WriteString(fmt.Sprintf("CREATE INDEX %s ON %s(%s);\n",
		QuoteIdent("idx_"+revTable+"_entity"), qRev, QuoteIdent("entity_id")))
	b.WriteString(fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE CASCADE;\n",
		qRev, QuoteIdent("fk_"+revTable+"_entity"), QuoteIdent("entity_id"),
		QuoteIdent(e.TableName()), QuoteIdent("id")))

	return b.String()
}

// GenerateAllSQL generates the DDL for every registered entity type, sorted
// by name, wrapped in foreign-key-check disable/enable statements so that
// relations may reference tables created later in the batch. Declaration
// order between entities is therefore irrelevant.
func GenerateAllSQL(reg *Registry) (string, error) {
	var b strings.Builder
	b.WriteString("SET session_replication_role = replica;\n\n")

	for _, et := range reg.All() {
		sql, err := GenerateSQL(et)
		if err != nil {
			return "", fmt.Errorf("generating DDL for %q: %w", et.Name, err)
		}
		b.WriteString(sql)
		b.WriteString("\n")
	}

	b.WriteString("SET session_replication_role = DEFAULT;\n")
	return b.String(), nil
}

// GenerateDropSQL generates the DROP statements for an entity type,
// junction and revision tables first since they reference the base table.
func GenerateDropSQL(e EntityType) string {
	var b strings.Builder
	for _, rel := range e.Relations {
		if rel.Kind == RelationMany {
			b.WriteString(fmt.Sprintf("DROP TABLE IF EXISTS %s;\n", QuoteIdent(junctionTableName(e, rel))))
		}
	}
	if e.Revisionable {
		b.WriteString(fmt.Sprintf("DROP TABLE IF EXISTS %s;\n", QuoteIdent(e.RevisionTableName())))
	}
	b.WriteString(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;\n", QuoteIdent(e.TableName())))
	return b.String()
}
