package schema

import (
	"strings"
	"testing"
)

func baseArticle() EntityType {
	return EntityType{
		Name:  "article",
		Label: "Article",
		Columns: []Column{
			{Name: "title", Type: ColumnString, Length: 255, Required: true},
			{Name: "body", Type: ColumnText},
		},
	}
}

func TestDiffEntityNewTable(t *testing.T) {
	changes, err := DiffEntity(baseArticle(), nil)
	if err != nil {
		t.Fatalf("DiffEntity: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want exactly one create_table", len(changes))
	}
	c := changes[0]
	if c.Type != ChangeCreateTable || !c.Safe || c.Table != "et_article" {
		t.Errorf("change = %+v, want safe create_table on et_article", c)
	}
	if !strings.Contains(c.SQL, `CREATE TABLE "et_article"`) {
		t.Errorf("create SQL missing table: %s", c.SQL)
	}
}

func TestDiffEntityNoChanges(t *testing.T) {
	existing := baseArticle()
	changes, err := DiffEntity(baseArticle(), &existing)
	if err != nil {
		t.Fatalf("DiffEntity: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("identical types produced changes: %+v", changes)
	}
}

func TestDiffEntityAddColumn(t *testing.T) {
	loaded := baseArticle()
	loaded.Columns = append(loaded.Columns, Column{Name: "summary", Type: ColumnText})
	existing := baseArticle()

	changes, err := DiffEntity(loaded, &existing)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %+v, want one add_column", changes)
	}
	c := changes[0]
	if c.Type != ChangeAddColumn || !c.Safe {
		t.Errorf("adding a nullable column must be safe: %+v", c)
	}
	if !strings.Contains(c.SQL, `ALTER TABLE "et_article" ADD COLUMN "summary" TEXT;`) {
		t.Errorf("SQL = %q", c.SQL)
	}
}

func TestDiffEntityAddRequiredColumnIsBreaking(t *testing.T) {
	loaded := baseArticle()
	loaded.Columns = append(loaded.Columns, Column{Name: "slug", Type: ColumnString, Required: true})
	existing := baseArticle()

	changes, _ := DiffEntity(loaded, &existing)
	if len(changes) != 1 || changes[0].Safe {
		t.Errorf("adding NOT NULL to an existing table must be breaking: %+v", changes)
	}
}

func TestDiffEntityDropColumnIsBreaking(t *testing.T) {
	loaded := baseArticle()
	loaded.Columns = loaded.Columns[:1] // drop body
	existing := baseArticle()

	changes, _ := DiffEntity(loaded, &existing)
	if len(changes) != 1 {
		t.Fatalf("got %+v, want one drop_column", changes)
	}
	c := changes[0]
	if c.Type != ChangeDropColumn || c.Safe || c.Column != "body" {
		t.Errorf("change = %+v, want breaking drop of body", c)
	}
}

func TestDiffEntityTypeChangeIsBreaking(t *testing.T) {
	loaded := baseArticle()
	loaded.Columns[1].Type = ColumnJSON // body: text -> json
	existing := baseArticle()

	changes, _ := DiffEntity(loaded, &existing)
	if len(changes) != 1 {
		t.Fatalf("got %+v, want one alter_column", changes)
	}
	c := changes[0]
	if c.Type != ChangeAlterColumn || c.Safe {
		t.Errorf("type change must be breaking: %+v", c)
	}
	if !strings.Contains(c.SQL, "TYPE JSONB") {
		t.Errorf("SQL = %q", c.SQL)
	}
}

func TestDiffEntityVarcharWidthChangeDetected(t *testing.T) {
	loaded := baseArticle()
	loaded.Columns[0].Length = 500
	existing := baseArticle()

	changes, _ := DiffEntity(loaded, &existing)
	if len(changes) != 1 || changes[0].Type != ChangeAlterColumn {
		t.Errorf("VARCHAR width change should surface as alter_column: %+v", changes)
	}
}

func TestDiffEntityNullability(t *testing.T) {
	loaded := baseArticle()
	loaded.Columns[1].Required = true // body gains NOT NULL
	existing := baseArticle()

	changes, _ := DiffEntity(loaded, &existing)
	if len(changes) != 1 || changes[0].Safe || !strings.Contains(changes[0].SQL, "SET NOT NULL") {
		t.Errorf("SET NOT NULL must be breaking: %+v", changes)
	}

	// The reverse direction is safe.
	loaded = baseArticle()
	existing = baseArticle()
	existing.Columns[0].Required = true
	loaded.Columns[0].Required = false

	changes, _ = DiffEntity(loaded, &existing)
	if len(changes) != 1 || !changes[0].Safe || !strings.Contains(changes[0].SQL, "DROP NOT NULL") {
		t.Errorf("DROP NOT NULL must be safe: %+v", changes)
	}
}

func TestDiffEntityUniqueIndexes(t *testing.T) {
	loaded := baseArticle()
	loaded.Columns[0].Unique = true
	existing := baseArticle()

	changes, _ := DiffEntity(loaded, &existing)
	if len(changes) != 1 || changes[0].Type != ChangeAddIndex || !changes[0].Safe {
		t.Errorf("gaining unique should add a safe index: %+v", changes)
	}

	changes, _ = DiffEntity(baseArticle(), &loaded)
	if len(changes) != 1 || changes[0].Type != ChangeDropIndex || !changes[0].Safe {
		t.Errorf("losing unique should drop the index safely: %+v", changes)
	}
}

func TestDiffEntityRelations(t *testing.T) {
	loaded := baseArticle()
	loaded.Relations = []Relation{{Name: "author", Target: "person", Kind: RelationOne}}
	existing := baseArticle()

	changes, _ := DiffEntity(loaded, &existing)
	if len(changes) != 1 || !changes[0].Safe {
		t.Fatalf("adding a one-relation should be one safe change: %+v", changes)
	}
	if !strings.Contains(changes[0].SQL, `ADD COLUMN "author_id" UUID`) {
		t.Errorf("SQL = %q", changes[0].SQL)
	}

	// Removing it is breaking.
	changes, _ = DiffEntity(existing, &loaded)
	if len(changes) != 1 || changes[0].Safe || changes[0].Type != ChangeDropColumn {
		t.Errorf("dropping a relation must be breaking: %+v", changes)
	}
}

func TestDiffEntityManyRelation(t *testing.T) {
	loaded := baseArticle()
	loaded.Relations = []Relation{{Name: "tags", Target: "tag", Kind: RelationMany}}
	existing := baseArticle()

	changes, _ := DiffEntity(loaded, &existing)
	if len(changes) != 1 || !changes[0].Safe {
		t.Fatalf("adding a many-relation should be one safe change: %+v", changes)
	}
	if !strings.Contains(changes[0].SQL, `CREATE TABLE "et_article_tags_rel"`) {
		t.Errorf("SQL = %q", changes[0].SQL)
	}

	changes, _ = DiffEntity(existing, &loaded)
	if len(changes) != 1 || changes[0].Safe {
		t.Errorf("dropping the junction table must be breaking: %+v", changes)
	}
	if !strings.Contains(changes[0].SQL, `DROP TABLE IF EXISTS "et_article_tags_rel"`) {
		t.Errorf("SQL = %q", changes[0].SQL)
	}
}

func TestDiffEntityChangedRelationKind(t *testing.T) {
	loaded := baseArticle()
	loaded.Relations = []Relation{{Name: "tags", Target: "tag", Kind: RelationMany}}
	existing := baseArticle()
	existing.Relations = []Relation{{Name: "tags", Target: "tag", Kind: RelationOne}}

	changes, _ := DiffEntity(loaded, &existing)
	if len(changes) != 2 {
		t.Fatalf("kind change should be drop plus add: %+v", changes)
	}
	if changes[0].Type != ChangeDropColumn || changes[1].Type != ChangeAddColumn {
		t.Errorf("changes = %+v", changes)
	}
}

func TestGenerateAlterSQL(t *testing.T) {
	loaded := baseArticle()
	loaded.Columns = append(loaded.Columns, Column{Name: "summary", Type: ColumnText})
	loaded.Columns[1].Type = ColumnJSON
	existing := baseArticle()

	sql, err := GenerateAlterSQL(loaded, &existing)
	if err != nil {
		t.Fatalf("GenerateAlterSQL: %v", err)
	}
	for _, fragment := range []string{
		`ALTER TABLE "et_article" ALTER COLUMN "body" TYPE JSONB`,
		`ALTER TABLE "et_article" ADD COLUMN "summary" TEXT`,
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("alter SQL missing %q:\n%s", fragment, sql)
		}
	}

	sql, err = GenerateAlterSQL(baseArticle(), &existing)
	if err != nil {
		t.Fatalf("GenerateAlterSQL: %v", err)
	}
	if sql != "" {
		t.Errorf("identical types produced DDL: %q", sql)
	}
}
