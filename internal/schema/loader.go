package schema

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadEntityTypes reads all *.yaml and *.yml files from the given directory,
// parses each into an EntityType, computes the SHA256 hash of the raw file
// bytes for change detection, and returns the entity types sorted by name
// for deterministic ordering.
//
// An empty directory returns an empty slice with no error.
// A missing directory returns an error.
func LoadEntityTypes(dir string) ([]EntityType, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema directory %q: %w", dir, err)
	}

	var types []EntityType

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		et, err := loadEntityTypeFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading schema file %q: %w", entry.Name(), err)
		}

		types = append(types, et)
	}

	sort.Slice(types, func(i, j int) bool {
		return types[i].Name < types[j].Name
	})

	return types, nil
}

// loadEntityTypeFile reads a single YAML file, parses it into an EntityType,
// and computes its SHA256 hash. The decoder uses KnownFields(true) so that
// unknown or misspelled keys (e.g., "requred" instead of "required") cause
// a parse error instead of being silently ignored.
func loadEntityTypeFile(path string) (EntityType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EntityType{}, fmt.Errorf("reading file: %w", err)
	}

	var et EntityType
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&et); err != nil {
		return EntityType{}, fmt.Errorf("parsing YAML: %w", err)
	}

	et.SchemaHash = fmt.Sprintf("%x", sha256.Sum256(data))

	return et, nil
}
