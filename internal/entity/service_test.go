package entity

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/storage"
	"github.com/lodestone-cms/lodestone/internal/validation"
	"github.com/lodestone-cms/lodestone/internal/value"
)

// stubDefs serves a fixed definition list for any entity type.
type stubDefs []field.Definition

func (s stubDefs) ForEntityType(ctx context.Context, entityType string) ([]field.Definition, error) {
	return s, nil
}

func articleDefs() stubDefs {
	return stubDefs{
		{
			ID:          "def-title",
			Name:        "Title",
			MachineName: "title",
			EntityType:  "article",
			Kind:        field.KindString,
			Required:    true,
			Cardinality: 1,
		},
		{
			ID:          "def-tags",
			Name:        "Tags",
			MachineName: "tags",
			EntityType:  "article",
			Kind:        field.KindMultiselect,
			Cardinality: 1,
			Settings:    field.Settings{Options: []string{"red", "green", "blue"}},
		},
		{
			ID:          "def-aliases",
			Name:        "Aliases",
			MachineName: "aliases",
			EntityType:  "article",
			Kind:        field.KindString,
			Cardinality: 3,
		},
		{
			ID:          "def-published",
			Name:        "Published",
			MachineName: "published",
			EntityType:  "article",
			Kind:        field.KindBoolean,
			Cardinality: 1,
		},
	}
}

func newTestService() (*Service, *storage.Memory) {
	store := storage.NewMemory()
	svc := NewService(articleDefs(), store, validation.NewValidator(), value.NewFactory(), nil)
	return svc, store
}

func TestSetValuesRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	input := map[string]any{
		"title":     "  Hello World  ",
		"published": true,
		"aliases":   []any{"hw", "hello"},
	}
	if err := svc.SetValues(ctx, "article", "a1", storage.DefaultLangcode, input, "admin-1"); err != nil {
		t.Fatalf("SetValues: %v", err)
	}

	got, err := svc.Values(ctx, "article", "a1", storage.DefaultLangcode)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}

	want := FieldValues{
		"title":     {"Hello World"},
		"published": {"1"},
		"aliases":   {"hw", "hello"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values = %#v, want %#v", got, want)
	}
}

func TestSetValuesValidationFailure(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	err := svc.SetValues(ctx, "article", "a1", storage.DefaultLangcode, map[string]any{
		"tags": []any{"purple"},
	}, "admin-1")
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type %T, want *ValidationError", err)
	}
	if _, ok := verr.Errors["title"]; !ok {
		t.Errorf("missing required-field error for title: %v", verr.Errors)
	}
	if _, ok := verr.Errors["tags"]; !ok {
		t.Errorf("missing options error for tags: %v", verr.Errors)
	}

	// Nothing may be written when validation fails.
	stored, err := store.GetEntityValues(ctx, "article", "a1", storage.DefaultLangcode)
	if err != nil {
		t.Fatalf("GetEntityValues: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("store holds %v after failed validation", stored)
	}
}

func TestSetValuesIgnoresUnknownKeys(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	input := map[string]any{
		"title": "Hello",
		"ghost": "not a field",
	}
	if err := svc.SetValues(ctx, "article", "a1", storage.DefaultLangcode, input, "admin-1"); err != nil {
		t.Fatalf("SetValues: %v", err)
	}

	got, err := svc.Values(ctx, "article", "a1", storage.DefaultLangcode)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if _, ok := got["ghost"]; ok {
		t.Error("unknown key persisted")
	}
	if !reflect.DeepEqual(got["title"], []any{"Hello"}) {
		t.Errorf("title = %v", got["title"])
	}
}

func TestMultiselectStoredAsSingleValue(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	input := map[string]any{
		"title": "Hello",
		"tags":  []any{"red", "green"},
	}
	if err := svc.SetValues(ctx, "article", "a1", storage.DefaultLangcode, input, "admin-1"); err != nil {
		t.Fatalf("SetValues: %v", err)
	}

	stored, err := store.GetEntityValues(ctx, "article", "a1", storage.DefaultLangcode)
	if err != nil {
		t.Fatalf("GetEntityValues: %v", err)
	}
	raw := stored["def-tags"]
	if len(raw) != 1 {
		t.Fatalf("multiselect stored as %d deltas, want 1", len(raw))
	}
	if raw[0] != `["red","green"]` {
		t.Errorf("stored value = %#v, want JSON array", raw[0])
	}

	got, err := svc.Values(ctx, "article", "a1", storage.DefaultLangcode)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if !reflect.DeepEqual(got["tags"], []any{[]any{"red", "green"}}) {
		t.Errorf("form shape = %#v", got["tags"])
	}
}

func TestDisplay(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	input := map[string]any{
		"title":     "Hello",
		"tags":      []any{"red", "green"},
		"published": true,
	}
	if err := svc.SetValues(ctx, "article", "a1", storage.DefaultLangcode, input, "admin-1"); err != nil {
		t.Fatalf("SetValues: %v", err)
	}

	got, err := svc.Display(ctx, "article", "a1", storage.DefaultLangcode)
	if err != nil {
		t.Fatalf("Display: %v", err)
	}

	want := map[string][]string{
		"title":     {"Hello"},
		"tags":      {"red, green"},
		"published": {"Yes"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Display = %#v, want %#v", got, want)
	}
}

func TestDeleteValuesSpansLanguages(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, lang := range []string{"en", "de"} {
		input := map[string]any{"title": "Hello " + lang}
		if err := svc.SetValues(ctx, "article", "a1", lang, input, "admin-1"); err != nil {
			t.Fatalf("SetValues(%s): %v", lang, err)
		}
	}

	if err := svc.DeleteValues(ctx, "article", "a1", "admin-1"); err != nil {
		t.Fatalf("DeleteValues: %v", err)
	}

	for _, lang := range []string{"en", "de"} {
		got, err := svc.Values(ctx, "article", "a1", lang)
		if err != nil {
			t.Fatalf("Values(%s): %v", lang, err)
		}
		if len(got) != 0 {
			t.Errorf("values remain in %s: %v", lang, got)
		}
	}
}

func TestRevisionRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := map[string]any{"title": "First draft"}
	if err := svc.SetValues(ctx, "article", "a1", storage.DefaultLangcode, first, "admin-1"); err != nil {
		t.Fatalf("SetValues: %v", err)
	}

	revID, err := svc.CreateRevision(ctx, "article", "a1", storage.DefaultLangcode, "admin-1", "initial")
	if err != nil {
		t.Fatalf("CreateRevision: %v", err)
	}
	if len(revID) != 26 {
		t.Errorf("revision id %q is not a ULID", revID)
	}

	second := map[string]any{"title": "Second draft"}
	if err := svc.SetValues(ctx, "article", "a1", storage.DefaultLangcode, second, "admin-1"); err != nil {
		t.Fatalf("SetValues: %v", err)
	}

	if err := svc.RestoreRevision(ctx, "article", "a1", storage.DefaultLangcode, revID, "admin-1"); err != nil {
		t.Fatalf("RestoreRevision: %v", err)
	}

	got, err := svc.Values(ctx, "article", "a1", storage.DefaultLangcode)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if !reflect.DeepEqual(got["title"], []any{"First draft"}) {
		t.Errorf("title after restore = %v", got["title"])
	}
}

func TestValidateDoesNotPersist(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	errs, err := svc.Validate(ctx, "article", map[string]any{"title": "Hello"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("valid input rejected: %v", errs)
	}

	errs, err = svc.Validate(ctx, "article", map[string]any{"tags": []any{"purple"}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) == 0 {
		t.Error("expected validation errors")
	}

	stored, err := store.GetEntityValues(ctx, "article", "a1", storage.DefaultLangcode)
	if err != nil {
		t.Fatalf("GetEntityValues: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("Validate persisted values: %v", stored)
	}
}
