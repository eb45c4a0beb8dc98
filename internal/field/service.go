package field

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/lodestone-cms/lodestone/internal/audit"
)

// definitionStore is the slice of Repository the service needs. Declared as
// an interface so tests can substitute an in-memory implementation.
type definitionStore interface {
	List(ctx context.Context, entityType string) ([]Definition, error)
	GetByID(ctx context.Context, id string) (Definition, error)
	Insert(ctx context.Context, def Definition) (Definition, error)
	Update(ctx context.Context, def Definition) (Definition, error)
	Delete(ctx context.Context, id string) error
}

// Service implements the business logic for field definition management.
// Reads of an entity type's definitions are memoized per request (see
// WithCache) so rendering and validating an entity hits the database once,
// while a change made by one request is visible to the next.
type Service struct {
	repo         definitionStore
	auditService *audit.Service
}

// NewService creates a new field definition Service. The audit service is
// optional; if nil, audit events are silently skipped.
func NewService(repo definitionStore, auditService *audit.Service) *Service {
	return &Service{
		repo:         repo,
		auditService: auditService,
	}
}

type cacheCtxKey struct{}

// requestCache memoizes definition lists for the lifetime of one request.
// It is a plain map, never shared across goroutines.
type requestCache struct {
	defs map[string][]Definition
}

// WithCache returns a context carrying a fresh definition memo. Lookups
// through ForEntityType on a context without one always read the database.
func WithCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheCtxKey{}, &requestCache{defs: make(map[string][]Definition)})
}

// CacheMiddleware attaches a request-scoped definition cache to every
// request passing through it.
func CacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithCache(r.Context())))
	})
}

func cacheFrom(ctx context.Context) *requestCache {
	c, _ := ctx.Value(cacheCtxKey{}).(*requestCache)
	return c
}

// DefinitionError is returned when a field definition fails its own
// structural checks.
type DefinitionError struct {
	Problems []string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid field definition: %d problem(s)", len(e.Problems))
}

// logAudit sends an audit event if the audit service is configured.
func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditService != nil {
		s.auditService.Log(ctx, event)
	}
}

// invalidate drops the memoized definitions for an entity type from the
// current request's cache, so a mutation is visible to reads later in the
// same request.
func (s *Service) invalidate(ctx context.Context, entityType string) {
	if c := cacheFrom(ctx); c != nil {
		delete(c.defs, entityType)
	}
}

// ForEntityType returns all field definitions for an entity type, serving
// from the request cache when the context carries one.
func (s *Service) ForEntityType(ctx context.Context, entityType string) ([]Definition, error) {
	c := cacheFrom(ctx)
	if c != nil {
		if defs, ok := c.defs[entityType]; ok {
			return defs, nil
		}
	}

	defs, err := s.repo.List(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("listing field definitions for %q: %w", entityType, err)
	}

	if c != nil {
		c.defs[entityType] = defs
	}
	return defs, nil
}

// List returns field definitions, optionally filtered by entity type.
// Unlike ForEntityType this always reads from the database.
func (s *Service) List(ctx context.Context, entityType string) ([]Definition, error) {
	defs, err := s.repo.List(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("listing field definitions: %w", err)
	}
	return defs, nil
}

// GetByID returns a single field definition.
func (s *Service) GetByID(ctx context.Context, id string) (Definition, error) {
	return s.repo.GetByID(ctx, id)
}

// Create checks and inserts a new field definition. The server assigns the
// ID; any client-provided ID is ignored.
func (s *Service) Create(ctx context.Context, def Definition, adminID string) (Definition, error) {
	def.ID = uuid.NewString()

	if problems := def.Check(); len(problems) > 0 {
		return Definition{}, &DefinitionError{Problems: problems}
	}

	created, err := s.repo.Insert(ctx, def)
	if err != nil {
		return Definition{}, err
	}

	s.invalidate(ctx, created.EntityType)

	s.logAudit(ctx, audit.Event{
		Action:     "field.create",
		ActorID:    adminID,
		Resource:   created.EntityType,
		ResourceID: created.ID,
		Payload:    map[string]any{"machine_name": created.MachineName, "kind": string(created.Kind)},
	})

	return created, nil
}

// Update checks and applies changes to an existing field definition.
// MachineName, EntityType, and Kind are immutable: the stored values always
// win over whatever the caller sends.
func (s *Service) Update(ctx context.Context, id string, def Definition, adminID string) (Definition, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Definition{}, err
	}

	def.ID = existing.ID
	def.EntityType = existing.EntityType
	def.MachineName = existing.MachineName
	def.Kind = existing.Kind

	if problems := def.Check(); len(problems) > 0 {
		return Definition{}, &DefinitionError{Problems: problems}
	}

	updated, err := s.repo.Update(ctx, def)
	if err != nil {
		return Definition{}, err
	}

	s.invalidate(ctx, updated.EntityType)

	s.logAudit(ctx, audit.Event{
		Action:     "field.update",
		ActorID:    adminID,
		Resource:   updated.EntityType,
		ResourceID: updated.ID,
		Payload:    map[string]any{"machine_name": updated.MachineName},
	})

	return updated, nil
}

// Delete removes a field definition. Stored values for the field are left
// in place; they become unreachable once the definition is gone.
func (s *Service) Delete(ctx context.Context, id, adminID string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, existing.EntityType)

	s.logAudit(ctx, audit.Event{
		Action:     "field.delete",
		ActorID:    adminID,
		Resource:   existing.EntityType,
		ResourceID: existing.ID,
		Payload:    map[string]any{"machine_name": existing.MachineName},
	})

	return nil
}
