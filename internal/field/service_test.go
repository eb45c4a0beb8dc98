package field

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// countingStore is an in-memory definitionStore that counts List calls so
// tests can observe whether a read was served from the request cache.
type countingStore struct {
	defs      map[string][]Definition // entity type -> definitions
	listCalls int
}

func newCountingStore(defs ...Definition) *countingStore {
	s := &countingStore{defs: map[string][]Definition{}}
	for _, d := range defs {
		s.defs[d.EntityType] = append(s.defs[d.EntityType], d)
	}
	return s
}

func (s *countingStore) List(_ context.Context, entityType string) ([]Definition, error) {
	s.listCalls++
	if entityType == "" {
		var all []Definition
		for _, defs := range s.defs {
			all = append(all, defs...)
		}
		return all, nil
	}
	return s.defs[entityType], nil
}

func (s *countingStore) GetByID(_ context.Context, id string) (Definition, error) {
	for _, defs := range s.defs {
		for _, d := range defs {
			if d.ID == id {
				return d, nil
			}
		}
	}
	return Definition{}, ErrNotFound
}

func (s *countingStore) Insert(_ context.Context, def Definition) (Definition, error) {
	s.defs[def.EntityType] = append(s.defs[def.EntityType], def)
	return def, nil
}

func (s *countingStore) Update(_ context.Context, def Definition) (Definition, error) {
	for i, d := range s.defs[def.EntityType] {
		if d.ID == def.ID {
			s.defs[def.EntityType][i] = def
			return def, nil
		}
	}
	return Definition{}, ErrNotFound
}

func (s *countingStore) Delete(_ context.Context, id string) error {
	for et, defs := range s.defs {
		for i, d := range defs {
			if d.ID == id {
				s.defs[et] = append(defs[:i], defs[i+1:]...)
				return nil
			}
		}
	}
	return ErrNotFound
}

func articleTitleDef() Definition {
	return Definition{
		ID:          "def-title",
		Name:        "Title",
		MachineName: "title",
		EntityType:  "article",
		Kind:        KindString,
	}
}

func TestForEntityTypeMemoizedPerRequest(t *testing.T) {
	store := newCountingStore(articleTitleDef())
	svc := NewService(store, nil)
	ctx := WithCache(context.Background())

	for i := 0; i < 3; i++ {
		defs, err := svc.ForEntityType(ctx, "article")
		if err != nil {
			t.Fatalf("ForEntityType: %v", err)
		}
		if len(defs) != 1 {
			t.Fatalf("ForEntityType: got %d definitions, want 1", len(defs))
		}
	}
	if store.listCalls != 1 {
		t.Errorf("List called %d times within one request, want 1", store.listCalls)
	}

	// A second request gets its own cache and reads the database again.
	if _, err := svc.ForEntityType(WithCache(context.Background()), "article"); err != nil {
		t.Fatalf("ForEntityType: %v", err)
	}
	if store.listCalls != 2 {
		t.Errorf("List called %d times across two requests, want 2", store.listCalls)
	}
}

func TestForEntityTypeWithoutCacheAlwaysReads(t *testing.T) {
	store := newCountingStore(articleTitleDef())
	svc := NewService(store, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.ForEntityType(ctx, "article"); err != nil {
			t.Fatalf("ForEntityType: %v", err)
		}
	}
	if store.listCalls != 2 {
		t.Errorf("List called %d times without a cache, want 2", store.listCalls)
	}
}

func TestMutationInvalidatesRequestCache(t *testing.T) {
	store := newCountingStore(articleTitleDef())
	svc := NewService(store, nil)
	ctx := WithCache(context.Background())

	if _, err := svc.ForEntityType(ctx, "article"); err != nil {
		t.Fatalf("ForEntityType: %v", err)
	}

	created, err := svc.Create(ctx, Definition{
		Name:        "Body",
		MachineName: "body",
		EntityType:  "article",
		Kind:        KindText,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create: no ID assigned")
	}

	defs, err := svc.ForEntityType(ctx, "article")
	if err != nil {
		t.Fatalf("ForEntityType: %v", err)
	}
	if len(defs) != 2 {
		t.Errorf("ForEntityType after Create: got %d definitions, want 2", len(defs))
	}
	if store.listCalls != 2 {
		t.Errorf("List called %d times, want 2 (cache dropped by mutation)", store.listCalls)
	}
}

func TestCacheMiddlewareAttachesCache(t *testing.T) {
	store := newCountingStore(articleTitleDef())
	svc := NewService(store, nil)

	handler := CacheMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 2; i++ {
			if _, err := svc.ForEntityType(r.Context(), "article"); err != nil {
				t.Fatalf("ForEntityType: %v", err)
			}
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fields", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.listCalls != 1 {
		t.Errorf("List called %d times inside one request, want 1", store.listCalls)
	}
}
