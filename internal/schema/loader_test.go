package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSchemaFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const articleYAML = `name: article
label: Article
revisionable: true
columns:
  - name: title
    type: string
    length: 255
    required: true
  - name: body
    type: text
relations:
  - name: author
    target: person
    kind: one
`

func TestLoadEntityTypes(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "article.yaml", articleYAML)
	writeSchemaFile(t, dir, "person.yml", "name: person\nlabel: Person\ncolumns:\n  - name: email\n    type: string\n")
	writeSchemaFile(t, dir, "README.md", "not a schema")

	types, err := LoadEntityTypes(dir)
	if err != nil {
		t.Fatalf("LoadEntityTypes: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("got %d types, want 2 (non-YAML files skipped)", len(types))
	}

	// Sorted by name regardless of file order.
	if types[0].Name != "article" || types[1].Name != "person" {
		t.Errorf("order = %s, %s; want article, person", types[0].Name, types[1].Name)
	}

	article := types[0]
	if !article.Revisionable || article.Label != "Article" {
		t.Errorf("article parsed wrong: %+v", article)
	}
	if len(article.Columns) != 2 || article.Columns[0].Length != 255 || !article.Columns[0].Required {
		t.Errorf("columns parsed wrong: %+v", article.Columns)
	}
	if len(article.Relations) != 1 || article.Relations[0].Kind != RelationOne {
		t.Errorf("relations parsed wrong: %+v", article.Relations)
	}
	if len(article.SchemaHash) != 64 {
		t.Errorf("SchemaHash = %q, want a SHA256 hex digest", article.SchemaHash)
	}
}

func TestLoadEntityTypesHashTracksContent(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "article.yaml", articleYAML)
	before, err := LoadEntityTypes(dir)
	if err != nil {
		t.Fatal(err)
	}

	writeSchemaFile(t, dir, "article.yaml", articleYAML+"  - name: extra\n    target: person\n    kind: one\n")
	after, err := LoadEntityTypes(dir)
	if err != nil {
		t.Fatal(err)
	}

	if before[0].SchemaHash == after[0].SchemaHash {
		t.Error("hash did not change with file content")
	}
}

func TestLoadEntityTypesEmptyDir(t *testing.T) {
	types, err := LoadEntityTypes(t.TempDir())
	if err != nil {
		t.Fatalf("empty directory should not error: %v", err)
	}
	if len(types) != 0 {
		t.Errorf("got %d types, want none", len(types))
	}
}

func TestLoadEntityTypesMissingDir(t *testing.T) {
	if _, err := LoadEntityTypes(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("missing directory should error")
	}
}

func TestLoadEntityTypesRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFile(t, dir, "broken.yaml", "name: broken\nlabel: Broken\ncolumns:\n  - name: a\n    type: string\n    requred: true\n")

	_, err := LoadEntityTypes(dir)
	if err == nil {
		t.Fatal("misspelled key should fail the load")
	}
	if !strings.Contains(err.Error(), "broken.yaml") {
		t.Errorf("error %q should name the offending file", err)
	}
}
