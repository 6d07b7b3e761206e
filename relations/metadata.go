package relations

import (
	"github.com/rowmap-io/rowmap/codec"
	utilstrings "github.com/rowmap-io/rowmap/internal/util/strings"
)

// Kind represents the kind of a declared relation
type Kind int

const (
	// ReferencesOne is a single related record, its foreign key stored
	// as a scalar id on the owner
	ReferencesOne Kind = iota
	// ReferencesMany is a collection of related records identified by an
	// ordered list of foreign-key ids persisted on the owner
	ReferencesMany
	// EmbedsMany is a collection of related records whose serialized
	// state is embedded directly inside the owner's stored payload
	EmbedsMany
)

// String returns the string representation of the relation kind
func (k Kind) String() string {
	switch k {
	case ReferencesOne:
		return "references_one"
	case ReferencesMany:
		return "references_many"
	case EmbedsMany:
		return "embeds_many"
	default:
		return "unknown"
	}
}

// Options configures a relation declaration. Zero values fall back to
// derived defaults.
type Options struct {
	// TargetTypeName overrides the derived target type name
	TargetTypeName string
	// ForeignKey overrides the derived foreign-key attribute name
	ForeignKey string
	// StoreIn names the column family the relation persists into. For
	// reference relations an empty value means the foreign key is
	// computed, not stored; for embeds-many it is required.
	StoreIn string
	// Polymorphic marks a references-one relation whose target type is
	// recorded alongside the foreign key
	Polymorphic bool
	// Finder replaces the default foreign-key-based lookup strategy
	Finder FinderFunc
	// StartsWith names an owner attribute whose value is the id prefix
	// the relation's record ids must carry
	StartsWith string
	// Codec serializes embedded record snapshots (default JSON)
	Codec codec.Codec
}

// Metadata is the immutable descriptor of one declared relation. It is
// built once per declaration and shared read-only by every proxy of that
// relation.
type Metadata struct {
	Name           string
	Kind           Kind
	TargetTypeName string
	ForeignKey     string
	StoreIn        string
	Polymorphic    bool
	Finder         FinderFunc
	StartsWith     string
	Codec          codec.Codec
}

// NewMetadata builds relation metadata from a name, kind, and options,
// deriving the target type name and foreign key from the relation name
// when not supplied.
func NewMetadata(name string, kind Kind, opts Options) *Metadata {
	m := &Metadata{
		Name:           name,
		Kind:           kind,
		TargetTypeName: opts.TargetTypeName,
		ForeignKey:     opts.ForeignKey,
		StoreIn:        opts.StoreIn,
		Polymorphic:    opts.Polymorphic && kind == ReferencesOne,
		Finder:         opts.Finder,
		StartsWith:     opts.StartsWith,
		Codec:          opts.Codec,
	}

	if m.TargetTypeName == "" {
		m.TargetTypeName = utilstrings.ToCamelCase(utilstrings.Singularize(name))
	}
	if m.ForeignKey == "" {
		switch kind {
		case ReferencesOne:
			m.ForeignKey = name + "_id"
		case ReferencesMany:
			m.ForeignKey = name + "_ids"
		}
	}
	if m.Codec == nil {
		m.Codec = codec.JSON{}
	}

	return m
}

// PersistsForeignKey reports whether this relation layer, not the
// caller, writes the foreign-key attribute into the owner's schema. True
// iff a store location is set on a reference relation.
func (m *Metadata) PersistsForeignKey() bool {
	return m.StoreIn != "" && m.Kind != EmbedsMany
}

// PolymorphicTypeColumn returns the derived attribute name persisting
// the target's runtime type for polymorphic relations
func (m *Metadata) PolymorphicTypeColumn() string {
	return m.Name + "_type"
}

// Equal compares metadata by relation name only; the registry's
// uniqueness check is name-based
func (m *Metadata) Equal(other *Metadata) bool {
	return other != nil && m.Name == other.Name
}
