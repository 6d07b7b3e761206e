package relations

import (
	"fmt"
	"sync"

	"github.com/rowmap-io/rowmap/schema"
)

// TypeSet resolves target type names to their lookup implementations.
// It is shared by every relation registry in a process.
type TypeSet struct {
	types map[string]TargetType
	mu    sync.RWMutex
}

// NewTypeSet creates an empty type set
func NewTypeSet() *TypeSet {
	return &TypeSet{
		types: make(map[string]TargetType),
	}
}

// Register adds a target type, replacing any previous entry of the same name
func (s *TypeSet) Register(t TargetType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[t.Name()] = t
}

// Get retrieves a target type by name
func (s *TypeSet) Get(name string) (TargetType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	return t, ok
}

// AugmentFunc registers a new field on the owning type's schema at
// declaration time; list selects a string-list field over a scalar one.
type AugmentFunc func(fieldName, family string, list bool) error

// Registry is the class-level set of relations declared on one owning
// type. It is built once per type and consulted by each owner instance's
// proxy cache.
type Registry struct {
	ownerType string
	types     *TypeSet
	augment   AugmentFunc

	metadata map[string]*Metadata
	order    []string
	mu       sync.RWMutex
}

// NewRegistry creates a relation registry for one owning type. augment
// may be nil when the owner's schema is managed elsewhere.
func NewRegistry(ownerType string, types *TypeSet, augment AugmentFunc) *Registry {
	return &Registry{
		ownerType: ownerType,
		types:     types,
		augment:   augment,
		metadata:  make(map[string]*Metadata),
	}
}

// OwnerType returns the name of the owning type
func (r *Registry) OwnerType() string {
	return r.ownerType
}

// Register declares a relation. Redeclaring a name is rejected with
// ErrRelationAlreadyDefined. When the relation persists its own foreign
// key, the owning type's schema is augmented with the foreign-key field
// (and the type-tag field for polymorphic relations).
func (r *Registry) Register(meta *Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.metadata[meta.Name]; exists {
		return fmt.Errorf("%w: %s on %s", ErrRelationAlreadyDefined, meta.Name, r.ownerType)
	}

	if meta.PersistsForeignKey() && r.augment != nil {
		list := meta.Kind == ReferencesMany
		if err := r.augment(meta.ForeignKey, meta.StoreIn, list); err != nil {
			return fmt.Errorf("failed to register foreign key %s on %s: %w", meta.ForeignKey, r.ownerType, err)
		}
		if meta.Polymorphic {
			if err := r.augment(meta.PolymorphicTypeColumn(), meta.StoreIn, false); err != nil {
				return fmt.Errorf("failed to register type column for %s on %s: %w", meta.Name, r.ownerType, err)
			}
		}
	}

	r.metadata[meta.Name] = meta
	r.order = append(r.order, meta.Name)
	return nil
}

// Get retrieves relation metadata by name
func (r *Registry) Get(name string) (*Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.metadata[name]
	return meta, ok
}

// All returns the declared relations in declaration order
func (r *Registry) All() []*Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Metadata, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.metadata[name])
	}
	return result
}

// Names returns the declared relation names in declaration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of declared relations
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.metadata)
}

// targetType resolves the fixed target type of a relation
func (r *Registry) targetType(meta *Metadata) (TargetType, error) {
	return r.typeByName(meta.TargetTypeName)
}

// typeByName resolves a target type by name, for polymorphic relations
func (r *Registry) typeByName(name string) (TargetType, error) {
	t, ok := r.types.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTargetType, name)
	}
	return t, nil
}

// ValidateAll cross-checks every declared relation against its owner's
// registered schema: persisted foreign-key fields must exist, embedded
// relations must store into an embedded column family, and the
// cross-type reference graph must be acyclic.
func ValidateAll(schemas *schema.Registry, registries ...*Registry) error {
	for _, r := range registries {
		s, ok := schemas.Get(r.OwnerType())
		if !ok {
			return fmt.Errorf("no schema registered for %s", r.OwnerType())
		}

		for _, meta := range r.All() {
			if meta.PersistsForeignKey() && !s.HasField(meta.ForeignKey) {
				return fmt.Errorf("relation %s on %s: foreign-key field %s is not declared", meta.Name, r.OwnerType(), meta.ForeignKey)
			}
			if meta.Kind == EmbedsMany {
				fam, ok := s.Families[meta.StoreIn]
				if !ok || !fam.Embedded {
					return fmt.Errorf("relation %s on %s: %s is not an embedded column family", meta.Name, r.OwnerType(), meta.StoreIn)
				}
			}
		}
	}

	if cycles := DependencyGraph(registries...).DetectCycles(); len(cycles) > 0 {
		return fmt.Errorf("circular reference between record types: %v", cycles)
	}
	return nil
}

// DependencyGraph builds the reference graph across owning types:
// one edge per declared reference relation from owner type to target
// type. Embedded targets live inside the owner's row and add no edge.
func DependencyGraph(registries ...*Registry) *schema.Graph {
	g := schema.NewGraph()
	for _, r := range registries {
		g.AddNode(r.OwnerType())
		for _, meta := range r.All() {
			if meta.Kind == EmbedsMany {
				continue
			}
			g.AddEdge(r.OwnerType(), meta.TargetTypeName)
		}
	}
	return g
}
