package storage

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/lodestone-cms/lodestone/internal/database"
	"github.com/lodestone-cms/lodestone/internal/field"
	"github.com/lodestone-cms/lodestone/internal/value"
)

// selectColumns is the typed-column list used by every read query.
var selectColumns = func() string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}()

// Postgres is the production Store over the field_values and field_revisions
// tables. It executes prepared statements against an injected connection
// pool; DDL never runs here.
type Postgres struct {
	db      *database.DB
	entropy io.Reader
}

// NewPostgres creates a Postgres store.
func NewPostgres(db *database.DB) *Postgres {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Postgres{db: db, entropy: ulid.Monotonic(src, 0)}
}

func (p *Postgres) newRevisionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), p.entropy).String()
}

// encode converts a storage-shaped value into the Go type pgx expects for
// the target column. Unparseable date values degrade to NULL rather than
// failing the whole write.
func encode(col Column, kind field.Kind, raw any) any {
	v := value.New(raw, kind)
	switch col {
	case ColInt:
		return v.AsInt()
	case ColFloat:
		return v.AsFloat()
	case ColBool:
		return v.AsBool()
	case ColDate, ColDatetime:
		t := v.AsTime()
		if t.IsZero() {
			return nil
		}
		return t
	case ColJSON:
		s := v.AsString()
		if s == "" {
			return nil
		}
		return []byte(s)
	default:
		return v.AsString()
	}
}

// rowScan receives one field_values row's typed columns.
type rowScan struct {
	str      *string
	text     *string
	intv     *int64
	floatv   *float64
	boolv    *bool
	date     *time.Time
	datetime *time.Time
	jsonb    []byte
}

func (r *rowScan) targets() []any {
	return []any{&r.str, &r.text, &r.intv, &r.floatv, &r.boolv, &r.date, &r.datetime, &r.jsonb}
}

// decode picks the populated typed column and converts it back to the
// storage-shaped Go value.
func (r *rowScan) decode() any {
	switch {
	case r.str != nil:
		return *r.str
	case r.text != nil:
		return *r.text
	case r.intv != nil:
		return *r.intv
	case r.floatv != nil:
		return *r.floatv
	case r.boolv != nil:
		return *r.boolv
	case r.date != nil:
		return r.date.Format("2006-01-02")
	case r.datetime != nil:
		return r.datetime.UTC().Format(time.RFC3339)
	case r.jsonb != nil:
		return string(r.jsonb)
	default:
		return nil
	}
}

// GetValue returns a field's stored values ordered by delta.
func (p *Postgres) GetValue(ctx context.Context, fieldID, entityType, entityID, langcode string) ([]any, error) {
	sql := fmt.Sprintf(
		`SELECT %s FROM field_values
		 WHERE field_id = $1 AND entity_type = $2 AND entity_id = $3 AND langcode = $4
		 ORDER BY delta`, selectColumns)

	rows, err := p.db.Pool().Query(ctx, sql, fieldID, entityType, entityID, langcode)
	if err != nil {
		return nil, fmt.Errorf("querying field values: %w", err)
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		var rs rowScan
		if err := rows.Scan(rs.targets()...); err != nil {
			return nil, fmt.Errorf("scanning field value row: %w", err)
		}
		values = append(values, rs.decode())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating field value rows: %w", err)
	}
	return values, nil
}

// GetEntityValues returns all of an entity's stored values keyed by field id.
func (p *Postgres) GetEntityValues(ctx context.Context, entityType, entityID, langcode string) (map[string][]any, error) {
	sql := fmt.Sprintf(
		`SELECT field_id, %s FROM field_values
		 WHERE entity_type = $1 AND entity_id = $2 AND langcode = $3
		 ORDER BY field_id, delta`, selectColumns)

	rows, err := p.db.Pool().Query(ctx, sql, entityType, entityID, langcode)
	if err != nil {
		return nil, fmt.Errorf("querying entity values: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]any)
	for rows.Next() {
		var fieldID string
		var rs rowScan
		targets := append([]any{&fieldID}, rs.targets()...)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scanning entity value row: %w", err)
		}
		result[fieldID] = append(result[fieldID], rs.decode())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity value rows: %w", err)
	}
	return result, nil
}

// SetValue replaces one field's rows in a single transaction.
func (p *Postgres) SetValue(ctx context.Context, def field.Definition, entityType, entityID, langcode string, values []any) error {
	tx, err := p.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := setValueTx(ctx, tx, def, entityType, entityID, langcode, values); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing value write: %w", err)
	}
	return nil
}

// SetValues replaces several fields' rows in one transaction. Any failing
// per-field write rolls back the whole update.
func (p *Postgres) SetValues(ctx context.Context, defs []field.Definition, entityType, entityID, langcode string, values map[string][]any) error {
	tx, err := p.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, def := range defs {
		if err := setValueTx(ctx, tx, def, entityType, entityID, langcode, values[def.ID]); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing multi-field write: %w", err)
	}
	return nil
}

// setValueTx is the delete-then-insert rewrite of one field's rows. Deltas
// are assigned densely from 0 in input order.
func setValueTx(ctx context.Context, tx pgx.Tx, def field.Definition, entityType, entityID, langcode string, values []any) error {
	_, err := tx.Exec(ctx,
		`DELETE FROM field_values
		 WHERE field_id = $1 AND entity_type = $2 AND entity_id = $3 AND langcode = $4`,
		def.ID, entityType, entityID, langcode)
	if err != nil {
		return fmt.Errorf("clearing field %s values: %w", def.ID, err)
	}

	for delta, raw := range Truncate(def, values) {
		col := ColumnFor(def.Kind, raw)
		sql := fmt.Sprintf(
			`INSERT INTO field_values (field_id, entity_type, entity_id, langcode, delta, %s)
			 VALUES ($1, $2, $3, $4, $5, $6)`, col)
		_, err := tx.Exec(ctx, sql, def.ID, entityType, entityID, langcode, delta, encode(col, def.Kind, raw))
		if err != nil {
			return fmt.Errorf("inserting field %s delta %d: %w", def.ID, delta, err)
		}
	}
	return nil
}

// DeleteValue removes one field's rows on one entity.
func (p *Postgres) DeleteValue(ctx context.Context, fieldID, entityType, entityID, langcode string) error {
	_, err := p.db.Pool().Exec(ctx,
		`DELETE FROM field_values
		 WHERE field_id = $1 AND entity_type = $2 AND entity_id = $3 AND langcode = $4`,
		fieldID, entityType, entityID, langcode)
	if err != nil {
		return fmt.Errorf("deleting field values: %w", err)
	}
	return nil
}

// DeleteEntityValues removes all rows of an entity across all languages.
func (p *Postgres) DeleteEntityValues(ctx context.Context, entityType, entityID string) error {
	_, err := p.db.Pool().Exec(ctx,
		`DELETE FROM field_values WHERE entity_type = $1 AND entity_id = $2`,
		entityType, entityID)
	if err != nil {
		return fmt.Errorf("deleting entity values: %w", err)
	}
	return nil
}

// CreateRevision copies the entity's current rows into field_revisions under
// a new ULID. The copy is append-only; nothing in the current rows changes.
func (p *Postgres) CreateRevision(ctx context.Context, entityType, entityID, langcode, userID, log string) (string, error) {
	id := p.newRevisionID()
	sql := fmt.Sprintf(
		`INSERT INTO field_revisions
		   (revision_id, revision_created, revision_user, revision_log,
		    field_id, entity_type, entity_id, langcode, delta, %s)
		 SELECT $1, now(), $2, $3, field_id, entity_type, entity_id, langcode, delta, %s
		 FROM field_values
		 WHERE entity_type = $4 AND entity_id = $5 AND langcode = $6`,
		selectColumns, selectColumns)

	if _, err := p.db.Pool().Exec(ctx, sql, id, userID, log, entityType, entityID, langcode); err != nil {
		return "", fmt.Errorf("creating revision: %w", err)
	}
	return id, nil
}

// RestoreRevision overwrites the entity's current rows from a revision
// snapshot. The delete and copy run in one transaction so readers never see
// the entity half-restored.
func (p *Postgres) RestoreRevision(ctx context.Context, entityType, entityID, langcode, revisionID string) error {
	tx, err := p.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var count int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM field_revisions WHERE revision_id = $1 AND entity_type = $2 AND entity_id = $3`,
		revisionID, entityType, entityID).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking revision: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("restoring revision %s: %w", revisionID, ErrRevisionNotFound)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM field_values WHERE entity_type = $1 AND entity_id = $2 AND langcode = $3`,
		entityType, entityID, langcode)
	if err != nil {
		return fmt.Errorf("clearing current values: %w", err)
	}

	sql := fmt.Sprintf(
		`INSERT INTO field_values (field_id, entity_type, entity_id, langcode, delta, %s)
		 SELECT field_id, entity_type, entity_id, langcode, delta, %s
		 FROM field_revisions
		 WHERE revision_id = $1 AND langcode = $2`,
		selectColumns, selectColumns)
	if _, err := tx.Exec(ctx, sql, revisionID, langcode); err != nil {
		return fmt.Errorf("copying revision rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing revision restore: %w", err)
	}
	return nil
}
