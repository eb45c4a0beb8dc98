// Package entity implements the value pipeline of an entity: validating
// submitted field values, transforming them to storage shape, persisting
// them through a storage.Store, and preparing stored values for forms and
// display.
package entity

import (
	"context"
	"fmt"

	"github.com/lodestone-cms/lodestone/internal/audit"
	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/storage"
	"github.com/lodestone-cms/lodestone/internal/validation"
	"github.com/lodestone-cms/lodestone/internal/value"
)

// DefinitionSource yields the field definitions of an entity type. It is
// satisfied by the field definition service.
type DefinitionSource interface {
	ForEntityType(ctx context.Context, entityType string) ([]field.Definition, error)
}

// Service wires field definitions, validation, value transformation, and
// storage into the entity value pipeline.
type Service struct {
	fields       DefinitionSource
	store        storage.Store
	validator    *validation.Validator
	factory      *value.Factory
	auditService *audit.Service
}

// NewService creates a new entity value Service. The audit service is
// optional; if nil, audit events are silently skipped.
func NewService(fields DefinitionSource, store storage.Store, validator *validation.Validator, factory *value.Factory, auditService *audit.Service) *Service {
	return &Service{
		fields:       fields,
		store:        store,
		validator:    validator,
		factory:      factory,
		auditService: auditService,
	}
}

// ValidationError is returned when submitted values fail validation. Errors
// are keyed by machine name; fields that passed are absent.
type ValidationError struct {
	Errors map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Errors))
}

// FieldValues is an entity's values keyed by field machine name.
type FieldValues map[string][]any

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditService != nil {
		s.auditService.Log(ctx, event)
	}
}

// Values returns an entity's stored values in form shape, keyed by machine
// name. Fields with no stored rows are omitted.
func (s *Service) Values(ctx context.Context, entityType, entityID, langcode string) (FieldValues, error) {
	defs, err := s.fields.ForEntityType(ctx, entityType)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.GetEntityValues(ctx, entityType, entityID, langcode)
	if err != nil {
		return nil, fmt.Errorf("reading values for %s/%s: %w", entityType, entityID, err)
	}

	result := make(FieldValues)
	for _, def := range defs {
		raw, ok := stored[def.ID]
		if !ok {
			continue
		}
		t := s.factory.ForField(def.Kind, def.Settings)
		formed := make([]any, len(raw))
		for i, item := range raw {
			formed[i] = t.ToForm(value.New(item, def.Kind)).Raw()
		}
		result[def.MachineName] = formed
	}

	return result, nil
}

// Display returns an entity's stored values rendered to display strings,
// keyed by machine name.
func (s *Service) Display(ctx context.Context, entityType, entityID, langcode string) (map[string][]string, error) {
	defs, err := s.fields.ForEntityType(ctx, entityType)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.GetEntityValues(ctx, entityType, entityID, langcode)
	if err != nil {
		return nil, fmt.Errorf("reading values for %s/%s: %w", entityType, entityID, err)
	}

	result := make(map[string][]string)
	for _, def := range defs {
		raw, ok := stored[def.ID]
		if !ok {
			continue
		}
		t := s.factory.ForField(def.Kind, def.Settings)
		displayed := make([]string, len(raw))
		for i, item := range raw {
			displayed[i] = t.ToDisplay(value.New(item, def.Kind))
		}
		result[def.MachineName] = displayed
	}

	return result, nil
}

// SetValues validates and persists submitted values for an entity. Input is
// keyed by machine name; single values and arrays are both accepted, with a
// single value treated as a one-element list. All fields are validated
// before anything is written, and all writes happen in one transaction.
//
// Submitted keys with no matching field definition are ignored.
func (s *Service) SetValues(ctx context.Context, entityType, entityID, langcode string, input map[string]any, adminID string) error {
	defs, err := s.fields.ForEntityType(ctx, entityType)
	if err != nil {
		return err
	}

	if errs := s.validator.ValidateFields(defs, input); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	byField := make(map[string][]any, len(input))
	var written []field.Definition
	for _, def := range defs {
		raw, ok := input[def.MachineName]
		if !ok {
			continue
		}

		items := asList(def, raw)
		t := s.factory.ForField(def.Kind, def.Settings)
		storable := make([]any, len(items))
		for i, item := range items {
			storable[i] = t.ToStorage(value.New(item, def.Kind)).Raw()
		}

		byField[def.ID] = storable
		written = append(written, def)
	}

	if err := s.store.SetValues(ctx, written, entityType, entityID, langcode, byField); err != nil {
		return fmt.Errorf("writing values for %s/%s: %w", entityType, entityID, err)
	}

	s.logAudit(ctx, audit.Event{
		Action:     "values.update",
		ActorID:    adminID,
		Resource:   entityType,
		ResourceID: entityID,
		Payload:    map[string]any{"fields": len(written), "langcode": langcode},
	})

	return nil
}

// DeleteValues removes all stored values of an entity across languages.
func (s *Service) DeleteValues(ctx context.Context, entityType, entityID, adminID string) error {
	if err := s.store.DeleteEntityValues(ctx, entityType, entityID); err != nil {
		return fmt.Errorf("deleting values for %s/%s: %w", entityType, entityID, err)
	}

	s.logAudit(ctx, audit.Event{
		Action:     "values.delete",
		ActorID:    adminID,
		Resource:   entityType,
		ResourceID: entityID,
	})

	return nil
}

// CreateRevision snapshots the entity's current values and returns the new
// revision id.
func (s *Service) CreateRevision(ctx context.Context, entityType, entityID, langcode, adminID, log string) (string, error) {
	revisionID, err := s.store.CreateRevision(ctx, entityType, entityID, langcode, adminID, log)
	if err != nil {
		return "", fmt.Errorf("creating revision for %s/%s: %w", entityType, entityID, err)
	}

	s.logAudit(ctx, audit.Event{
		Action:     "revision.create",
		ActorID:    adminID,
		Resource:   entityType,
		ResourceID: entityID,
		Payload:    map[string]any{"revision_id": revisionID},
	})

	return revisionID, nil
}

// RestoreRevision replaces the entity's current values with a revision
// snapshot.
func (s *Service) RestoreRevision(ctx context.Context, entityType, entityID, langcode, revisionID, adminID string) error {
	if err := s.store.RestoreRevision(ctx, entityType, entityID, langcode, revisionID); err != nil {
		return err
	}

	s.logAudit(ctx, audit.Event{
		Action:     "revision.restore",
		ActorID:    adminID,
		Resource:   entityType,
		ResourceID: entityID,
		Payload:    map[string]any{"revision_id": revisionID},
	})

	return nil
}

// Validate runs submitted values through every field definition of the
// entity type without persisting anything. The returned map is keyed by
// machine name and empty when everything passed.
func (s *Service) Validate(ctx context.Context, entityType string, input map[string]any) (map[string][]string, error) {
	defs, err := s.fields.ForEntityType(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return s.validator.ValidateFields(defs, input), nil
}

// asList normalizes a submitted value into a delta list. Arrays spread into
// deltas only on multi-valued fields; multiselect keeps its selections as
// one JSON-encoded value, so its array stays a single item. Nil stays empty.
func asList(def field.Definition, raw any) []any {
	if raw == nil {
		return nil
	}
	if arr, ok := raw.([]any); ok {
		if def.Multiple() && def.Kind != field.KindMultiselect {
			return arr
		}
		return []any{arr}
	}
	return []any{raw}
}
