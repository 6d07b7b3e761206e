// Package schema provides a registry for managing record schemas
package schema

import (
	"fmt"
	"sync"
)

// Registry manages all record schemas in the application
type Registry struct {
	schemas map[string]*RecordSchema
	mu      sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*RecordSchema),
	}
}

// Register registers a new record schema
func (r *Registry) Register(schema *RecordSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Name]; exists {
		return fmt.Errorf("record type %s is already registered", schema.Name)
	}

	if err := ValidateStructural(schema); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", schema.Name, err)
	}

	r.schemas[schema.Name] = schema
	return nil
}

// Get retrieves a record schema by name
func (r *Registry) Get(name string) (*RecordSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, exists := r.schemas[name]
	return schema, exists
}

// All returns a copy of all registered schemas
func (r *Registry) All() map[string]*RecordSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*RecordSchema, len(r.schemas))
	for k, v := range r.schemas {
		result[k] = v
	}
	return result
}

// List returns a list of all record type names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered schemas
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.schemas)
}

// Exists checks if a record schema exists
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.schemas[name]
	return exists
}

// Clear removes all registered schemas (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schemas = make(map[string]*RecordSchema)
}
