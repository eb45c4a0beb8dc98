package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/lodestone-cms/lodestone/internal/database"
)

// Engine orchestrates schema diffing and application against the database.
// It loads existing entity types from the entity_types table, compares them
// to the YAML-declared metadata, and applies safe changes (or all changes in
// dev mode).
type Engine struct {
	db      *database.DB
	devMode bool
}

// NewEngine creates a new schema engine.
func NewEngine(db *database.DB, devMode bool) *Engine {
	return &Engine{
		db:      db,
		devMode: devMode,
	}
}

// existingEntityType holds an entity type record as stored in the
// entity_types table.
type existingEntityType struct {
	Name         string
	Label        string
	Revisionable bool
	SchemaHash   string
	Columns      []Column
	Relations    []Relation
}

// Apply compares the given entity types against the database state and
// applies changes. The process is:
//  1. Query all existing entity types from the entity_types table.
//  2. For each declared type, diff against existing (by name + schema_hash).
//  3. If schema_hash matches, skip (no changes).
//  4. Collect all changes and separate safe vs breaking.
//  5. If any breaking changes and NOT dev mode, return an error listing them.
//  6. Execute all DDL changes AND upsert entity_types rows in a single
//     transaction.
func (e *Engine) Apply(ctx context.Context, types []EntityType) error {
	existing, err := e.loadExisting(ctx)
	if err != nil {
		return fmt.Errorf("loading existing entity types: %w", err)
	}

	existingMap := make(map[string]existingEntityType, len(existing))
	for _, et := range existing {
		existingMap[et.Name] = et
	}

	var allChanges []Change
	var changedTypes []EntityType // types that need an entity_types upsert

	for _, loaded := range types {
		ex, found := existingMap[loaded.Name]

		// If the schema hash matches, the declaration has not changed.
		if found && ex.SchemaHash == loaded.SchemaHash {
			slog.Debug("schema unchanged, skipping", "entity_type", loaded.Name)
			continue
		}

		var existingET *EntityType
		if found {
			et := EntityType{
				Name:         ex.Name,
				Label:        ex.Label,
				Revisionable: ex.Revisionable,
				Columns:      ex.Columns,
				Relations:    ex.Relations,
				SchemaHash:   ex.SchemaHash,
			}
			existingET = &et
		}

		changes, err := DiffEntity(loaded, existingET)
		if err != nil {
			return fmt.Errorf("diffing entity type %q: %w", loaded.Name, err)
		}
		if len(changes) > 0 {
			allChanges = append(allChanges, changes...)
		}
		// Hash changed even with no structural diff (e.g., whitespace or
		// comment change). Still update the hash in entity_types.
		changedTypes = append(changedTypes, loaded)
	}

	if len(allChanges) == 0 && len(changedTypes) == 0 {
		slog.Info("all entity types up to date, no changes to apply")
		return nil
	}

	var safeChanges, breakingChanges []Change
	for _, c := range allChanges {
		if c.Safe {
			safeChanges = append(safeChanges, c)
		} else {
			breakingChanges = append(breakingChanges, c)
		}
	}

	// Block breaking changes in non-dev mode.
	if len(breakingChanges) > 0 && !e.devMode {
		return &BreakingChangesError{Changes: breakingChanges}
	}

	if err := e.applyInTransaction(ctx, allChanges, changedTypes); err != nil {
		return fmt.Errorf("applying schema changes: %w", err)
	}

	slog.Info("schema changes applied",
		"safe", len(safeChanges),
		"breaking", len(breakingChanges),
		"entity_types_updated", len(changedTypes),
	)

	return nil
}

// loadExisting queries all existing entity types from the entity_types table.
func (e *Engine) loadExisting(ctx context.Context) ([]existingEntityType, error) {
	rows, err := e.db.Pool().Query(ctx,
		`SELECT name, label, revisionable, schema_hash, columns, relations FROM entity_types`)
	if err != nil {
		return nil, fmt.Errorf("querying entity_types: %w", err)
	}
	defer rows.Close()

	var result []existingEntityType
	for rows.Next() {
		var et existingEntityType
		var columnsJSON, relationsJSON []byte

		if err := rows.Scan(&et.Name, &et.Label, &et.Revisionable, &et.SchemaHash, &columnsJSON, &relationsJSON); err != nil {
			return nil, fmt.Errorf("scanning entity_type row: %w", err)
		}

		if err := json.Unmarshal(columnsJSON, &et.Columns); err != nil {
			return nil, fmt.Errorf("unmarshaling columns for %q: %w", et.Name, err)
		}
		if err := json.Unmarshal(relationsJSON, &et.Relations); err != nil {
			return nil, fmt.Errorf("unmarshaling relations for %q: %w", et.Name, err)
		}

		result = append(result, et)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity_type rows: %w", err)
	}

	return result, nil
}

// applyInTransaction executes all DDL change SQL statements and upserts
// entity_types rows in a single transaction. Either all DDL changes and
// metadata updates succeed together, or none do.
func (e *Engine) applyInTransaction(ctx context.Context, changes []Change, types []EntityType) error {
	tx, err := e.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		// Rollback is a no-op if the tx has been committed.
		_ = tx.Rollback(ctx)
	}()

	for _, c := range changes {
		if c.SQL == "" {
			slog.Warn("skipping change with empty SQL", "type", c.Type, "table", c.Table, "column", c.Column)
			continue
		}

		slog.Info("applying schema change", "type", c.Type, "detail", c.Detail)

		if _, err := tx.Exec(ctx, c.SQL); err != nil {
			return fmt.Errorf("executing %s on %s.%s: %w", c.Type, c.Table, c.Column, err)
		}
	}

	for _, et := range types {
		columnsJSON, err := json.Marshal(et.Columns)
		if err != nil {
			return fmt.Errorf("marshaling columns for %q: %w", et.Name, err)
		}
		relationsJSON, err := json.Marshal(et.Relations)
		if err != nil {
			return fmt.Errorf("marshaling relations for %q: %w", et.Name, err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO entity_types (name, label, revisionable, schema_hash, columns, relations)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (name) DO UPDATE SET
			   label = EXCLUDED.label,
			   revisionable = EXCLUDED.revisionable,
			   schema_hash = EXCLUDED.schema_hash,
			   columns = EXCLUDED.columns,
			   relations = EXCLUDED.relations,
			   updated_at = now()`,
			et.Name, et.Label, et.Revisionable, et.SchemaHash, columnsJSON, relationsJSON,
		)
		if err != nil {
			return fmt.Errorf("upserting entity type %q: %w", et.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetExistingEntityType returns a single existing entity type by name, or
// nil if it does not exist. Useful for targeted diffing.
func (e *Engine) GetExistingEntityType(ctx context.Context, name string) (*EntityType, error) {
	var label, schemaHash string
	var revisionable bool
	var columnsJSON, relationsJSON []byte

	err := e.db.Pool().QueryRow(ctx,
		`SELECT label, revisionable, schema_hash, columns, relations FROM entity_types WHERE name = $1`,
		name,
	).Scan(&label, &revisionable, &schemaHash, &columnsJSON, &relationsJSON)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying entity type %q: %w", name, err)
	}

	var columns []Column
	if err := json.Unmarshal(columnsJSON, &columns); err != nil {
		return nil, fmt.Errorf("unmarshaling columns for %q: %w", name, err)
	}
	var relations []Relation
	if err := json.Unmarshal(relationsJSON, &relations); err != nil {
		return nil, fmt.Errorf("unmarshaling relations for %q: %w", name, err)
	}

	return &EntityType{
		Name:         name,
		Label:        label,
		Revisionable: revisionable,
		Columns:      columns,
		Relations:    relations,
		SchemaHash:   schemaHash,
	}, nil
}

// RefreshResult summarizes the outcome of a schema refresh.
type RefreshResult struct {
	// Applied holds the changes that were executed.
	Applied []Change

	// Breaking holds breaking changes that blocked the refresh. When
	// non-empty, no changes were applied.
	Breaking []Change

	// NewTypes lists entity types that did not exist before the refresh.
	NewTypes []string

	// UpdatedTypes lists entity types whose declarations changed.
	UpdatedTypes []string
}

// Refresh reloads entity type declarations from dir, validates them, diffs
// against the database, and applies the changes. Breaking changes block the
// whole refresh unless force is set or the engine runs in dev mode; in the
// blocked case the returned result carries the breaking changes and the
// database is left untouched.
//
// On success the second return value holds the freshly loaded entity types
// so callers can swap their in-memory registries.
func (e *Engine) Refresh(ctx context.Context, dir string, force bool) (RefreshResult, []EntityType, error) {
	var result RefreshResult

	types, err := LoadEntityTypes(dir)
	if err != nil {
		return result, nil, fmt.Errorf("loading entity types: %w", err)
	}
	if err := ValidateEntityTypes(types); err != nil {
		return result, nil, err
	}

	existing, err := e.loadExisting(ctx)
	if err != nil {
		return result, nil, fmt.Errorf("loading existing entity types: %w", err)
	}
	existingMap := make(map[string]existingEntityType, len(existing))
	for _, et := range existing {
		existingMap[et.Name] = et
	}

	var allChanges []Change
	var changedTypes []EntityType

	for _, loaded := range types {
		ex, found := existingMap[loaded.Name]
		if found && ex.SchemaHash == loaded.SchemaHash {
			continue
		}

		if found {
			result.UpdatedTypes = append(result.UpdatedTypes, loaded.Name)
		} else {
			result.NewTypes = append(result.NewTypes, loaded.Name)
		}

		var existingET *EntityType
		if found {
			et := EntityType{
				Name:         ex.Name,
				Label:        ex.Label,
				Revisionable: ex.Revisionable,
				Columns:      ex.Columns,
				Relations:    ex.Relations,
				SchemaHash:   ex.SchemaHash,
			}
			existingET = &et
		}

		changes, err := DiffEntity(loaded, existingET)
		if err != nil {
			return result, nil, fmt.Errorf("diffing entity type %q: %w", loaded.Name, err)
		}
		allChanges = append(allChanges, changes...)
		changedTypes = append(changedTypes, loaded)
	}

	if !force && !e.devMode {
		for _, c := range allChanges {
			if !c.Safe {
				result.Breaking = append(result.Breaking, c)
			}
		}
		if len(result.Breaking) > 0 {
			return result, nil, nil
		}
	}

	if len(changedTypes) > 0 {
		if err := e.applyInTransaction(ctx, allChanges, changedTypes); err != nil {
			return result, nil, fmt.Errorf("applying schema changes: %w", err)
		}
	}

	result.Applied = allChanges
	return result, types, nil
}

// BreakingChangesError is returned when Apply detects breaking schema
// changes and the engine is not in dev mode.
type BreakingChangesError struct {
	Changes []Change
}

// Error returns a human-readable summary of all breaking changes.
func (e *BreakingChangesError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("schema migration blocked: %d breaking change(s) detected (use dev mode to force):\n", len(e.Changes)))
	for _, c := range e.Changes {
		b.WriteString(fmt.Sprintf("  - %s\n", c.Detail))
	}
	return b.String()
}
