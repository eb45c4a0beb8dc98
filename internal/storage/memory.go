package storage

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lodestone-cms/lodestone/internal/field"
)

// entityKey identifies one entity's value set in one language.
type entityKey struct {
	entityType string
	entityID   string
	langcode   string
}

// revision is an append-only snapshot of an entity's value set.
type revision struct {
	key     entityKey
	created time.Time
	user    string
	log     string
	values  map[string][]any
}

// Memory is an in-memory Store. It backs unit tests and database-less dev
// mode; the map-per-entity layout and ULID ids follow the usual in-memory
// record store shape. All operations copy value slices on the way in and
// out, so callers can never alias internal state.
type Memory struct {
	mu        sync.RWMutex
	rows      map[entityKey]map[string][]any
	revisions map[string]revision
	entropy   io.Reader

	// FailField, when non-empty, makes any write touching that field id
	// return an error. Fault injection for transaction tests.
	FailField string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Memory{
		rows:      make(map[entityKey]map[string][]any),
		revisions: make(map[string]revision),
		entropy:   ulid.Monotonic(src, 0),
	}
}

func (m *Memory) newRevisionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}

func copyValues(values []any) []any {
	if values == nil {
		return nil
	}
	return append([]any(nil), values...)
}

func copyEntity(fields map[string][]any) map[string][]any {
	out := make(map[string][]any, len(fields))
	for id, vals := range fields {
		out[id] = copyValues(vals)
	}
	return out
}

// GetValue returns the stored values of one field, ordered by delta.
func (m *Memory) GetValue(_ context.Context, fieldID, entityType, entityID, langcode string) ([]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyValues(m.rows[entityKey{entityType, entityID, langcode}][fieldID]), nil
}

// GetEntityValues returns all stored values of an entity keyed by field id.
func (m *Memory) GetEntityValues(_ context.Context, entityType, entityID, langcode string) (map[string][]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.rows[entityKey{entityType, entityID, langcode}]
	if !ok {
		return map[string][]any{}, nil
	}
	return copyEntity(fields), nil
}

// SetValue replaces one field's values, truncating to the cardinality bound.
func (m *Memory) SetValue(_ context.Context, def field.Definition, entityType, entityID, langcode string, values []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(def, entityKey{entityType, entityID, langcode}, values)
}

func (m *Memory) setLocked(def field.Definition, key entityKey, values []any) error {
	if m.FailField != "" && def.ID == m.FailField {
		return fmt.Errorf("writing field %s: injected failure", def.ID)
	}

	values = Truncate(def, values)
	fields, ok := m.rows[key]
	if !ok {
		fields = make(map[string][]any)
		m.rows[key] = fields
	}
	if len(values) == 0 {
		delete(fields, def.ID)
		return nil
	}
	fields[def.ID] = copyValues(values)
	return nil
}

// SetValues replaces several fields' values all-or-nothing: the replacement
// is staged on a copy of the entity's value set and swapped in only when
// every per-field write succeeds.
func (m *Memory) SetValues(_ context.Context, defs []field.Definition, entityType, entityID, langcode string, values map[string][]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entityKey{entityType, entityID, langcode}
	original, hadEntity := m.rows[key]
	if hadEntity {
		m.rows[key] = copyEntity(original)
	}

	for _, def := range defs {
		if err := m.setLocked(def, key, values[def.ID]); err != nil {
			// Roll the staged copy back.
			if hadEntity {
				m.rows[key] = original
			} else {
				delete(m.rows, key)
			}
			return err
		}
	}
	return nil
}

// DeleteValue removes one field's rows on one entity.
func (m *Memory) DeleteValue(_ context.Context, fieldID, entityType, entityID, langcode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[entityKey{entityType, entityID, langcode}], fieldID)
	return nil
}

// DeleteEntityValues removes all rows of an entity across all languages.
func (m *Memory) DeleteEntityValues(_ context.Context, entityType, entityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.rows {
		if key.entityType == entityType && key.entityID == entityID {
			delete(m.rows, key)
		}
	}
	return nil
}

// CreateRevision snapshots the entity's current values under a new ULID.
func (m *Memory) CreateRevision(_ context.Context, entityType, entityID, langcode, userID, log string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entityKey{entityType, entityID, langcode}
	id := m.newRevisionID()
	m.revisions[id] = revision{
		key:     key,
		created: time.Now().UTC(),
		user:    userID,
		log:     log,
		values:  copyEntity(m.rows[key]),
	}
	return id, nil
}

// RestoreRevision overwrites the entity's current values from a snapshot.
func (m *Memory) RestoreRevision(_ context.Context, entityType, entityID, langcode, revisionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rev, ok := m.revisions[revisionID]
	if !ok {
		return fmt.Errorf("restoring revision %s: %w", revisionID, ErrRevisionNotFound)
	}
	key := entityKey{entityType, entityID, langcode}
	if rev.key != key {
		return fmt.Errorf("restoring revision %s: snapshot belongs to a different entity: %w", revisionID, ErrRevisionNotFound)
	}
	m.rows[key] = copyEntity(rev.values)
	return nil
}
