package field

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lodestone-cms/lodestone/internal/database"
)

// ErrNotFound is returned when a field definition does not exist.
var ErrNotFound = errors.New("field definition not found")

// ErrMachineNameTaken is returned when inserting a definition whose machine
// name is already used on the same entity type.
var ErrMachineNameTaken = errors.New("machine name already in use for entity type")

// Repository persists field definitions in the field_definitions table.
// Settings and validation are stored as JSONB.
type Repository struct {
	db *database.DB
}

// NewRepository creates a new field definition Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const definitionColumns = `id, entity_type, machine_name, name, kind, required, cardinality, settings, validation, description, widget_id`

// scanDefinition scans a single field_definitions row.
func scanDefinition(row pgx.Row) (Definition, error) {
	var def Definition
	var settingsJSON, validationJSON []byte

	err := row.Scan(
		&def.ID,
		&def.EntityType,
		&def.MachineName,
		&def.Name,
		&def.Kind,
		&def.Required,
		&def.Cardinality,
		&settingsJSON,
		&validationJSON,
		&def.Description,
		&def.WidgetID,
	)
	if err != nil {
		return Definition{}, err
	}

	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &def.Settings); err != nil {
			return Definition{}, fmt.Errorf("unmarshaling settings for %q: %w", def.MachineName, err)
		}
	}
	if len(validationJSON) > 0 {
		if err := json.Unmarshal(validationJSON, &def.Validation); err != nil {
			return Definition{}, fmt.Errorf("unmarshaling validation for %q: %w", def.MachineName, err)
		}
	}

	return def, nil
}

// List retrieves all field definitions for an entity type, ordered by
// machine name for deterministic output. An empty entityType lists every
// definition across all entity types.
func (r *Repository) List(ctx context.Context, entityType string) ([]Definition, error) {
	query := `SELECT ` + definitionColumns + ` FROM field_definitions`
	var args []any
	if entityType != "" {
		query += ` WHERE entity_type = $1`
		args = append(args, entityType)
	}
	query += ` ORDER BY entity_type, machine_name`

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying field definitions: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning field definition: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating field definitions: %w", err)
	}

	return defs, nil
}

// GetByID retrieves a single field definition by UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (Definition, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+definitionColumns+` FROM field_definitions WHERE id = $1`, id)

	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, ErrNotFound
		}
		return Definition{}, fmt.Errorf("querying field definition: %w", err)
	}
	return def, nil
}

// GetByMachineName retrieves a field definition by entity type and machine
// name, the pair under which definitions are unique.
func (r *Repository) GetByMachineName(ctx context.Context, entityType, machineName string) (Definition, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+definitionColumns+` FROM field_definitions
		 WHERE entity_type = $1 AND machine_name = $2`,
		entityType, machineName)

	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, ErrNotFound
		}
		return Definition{}, fmt.Errorf("querying field definition: %w", err)
	}
	return def, nil
}

// Insert creates a new field definition. Machine names are unique per
// entity type; a conflict maps to ErrMachineNameTaken.
func (r *Repository) Insert(ctx context.Context, def Definition) (Definition, error) {
	if _, err := r.GetByMachineName(ctx, def.EntityType, def.MachineName); err == nil {
		return Definition{}, ErrMachineNameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Definition{}, err
	}

	settingsJSON, err := json.Marshal(def.Settings)
	if err != nil {
		return Definition{}, fmt.Errorf("marshaling settings: %w", err)
	}
	validationJSON, err := json.Marshal(def.Validation)
	if err != nil {
		return Definition{}, fmt.Errorf("marshaling validation: %w", err)
	}

	_, err = r.db.Pool().Exec(ctx,
		`INSERT INTO field_definitions
		   (id, entity_type, machine_name, name, kind, required, cardinality, settings, validation, description, widget_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		def.ID, def.EntityType, def.MachineName, def.Name, def.Kind,
		def.Required, def.Cardinality, settingsJSON, validationJSON,
		def.Description, def.WidgetID,
	)
	if err != nil {
		return Definition{}, fmt.Errorf("inserting field definition: %w", err)
	}

	return def, nil
}

// Update modifies an existing field definition. MachineName, EntityType,
// and Kind are immutable after creation and are not part of the SET list.
func (r *Repository) Update(ctx context.Context, def Definition) (Definition, error) {
	settingsJSON, err := json.Marshal(def.Settings)
	if err != nil {
		return Definition{}, fmt.Errorf("marshaling settings: %w", err)
	}
	validationJSON, err := json.Marshal(def.Validation)
	if err != nil {
		return Definition{}, fmt.Errorf("marshaling validation: %w", err)
	}

	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE field_definitions SET
		   name = $2,
		   required = $3,
		   cardinality = $4,
		   settings = $5,
		   validation = $6,
		   description = $7,
		   widget_id = $8,
		   updated_at = now()
		 WHERE id = $1`,
		def.ID, def.Name, def.Required, def.Cardinality,
		settingsJSON, validationJSON, def.Description, def.WidgetID,
	)
	if err != nil {
		return Definition{}, fmt.Errorf("updating field definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Definition{}, ErrNotFound
	}

	return r.GetByID(ctx, def.ID)
}

// Delete removes a field definition by UUID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM field_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting field definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
