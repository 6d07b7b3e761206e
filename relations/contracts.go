// Package relations implements the relation proxy subsystem: metadata
// describing declared relations, lazily-loaded proxies mediating access
// to related records, foreign-key synchronization on the owner, and the
// per-owner proxy cache.
//
// Proxies and caches are scoped to one owner record instance and perform
// no internal locking; callers sharing an owner across goroutines must
// serialize access externally. Multi-step mutations (foreign-key update,
// in-memory update, record save, owner save) run sequentially with no
// rollback on partial failure.
package relations

import "context"

// Record is the contract every mapped record satisfies. The relation
// layer never owns records; it only reads their state and invokes their
// persistence operations.
type Record interface {
	ID() string
	TypeName() string
	Persisted() bool
	IsNew() bool
	Destroyed() bool
	Changed() bool
	Valid() bool
	Save(ctx context.Context) (bool, error)
	Destroy(ctx context.Context) (bool, error)
	AttributesSnapshot() map[string]interface{}
}

// Owner is the record a relation is declared on. The relation layer
// mutates only the foreign-key attribute(s) it is configured to manage.
type Owner interface {
	Record
	Attribute(name string) interface{}
	SetAttribute(name string, value interface{})
	MarkAttributeChanged(name string)

	// RawFamily exposes the raw serialized mapping (id -> bytes) of an
	// embedded column family from the owner's stored payload
	RawFamily(name string) map[string][]byte
}

// TargetType is the lookup side of a related record type: single and
// batch retrieval by id plus construction from an attribute mapping.
type TargetType interface {
	Name() string

	// Find returns the record with the given id, or a
	// RecordNotFoundError when it does not exist
	Find(ctx context.Context, id string) (Record, error)

	// FindMany batch-fetches the given ids in one call where the store
	// allows it. Missing ids are simply absent; each id appears at most
	// once, with no order guarantee.
	FindMany(ctx context.Context, ids []string) ([]Record, error)

	// New constructs an unpersisted record from an attribute mapping
	New(attributes map[string]interface{}) Record
}

// FinderFunc fully replaces the default foreign-key-based lookup
// strategy for a relation
type FinderFunc func(ctx context.Context, owner Owner) ([]Record, error)

// persistMarker is implemented by records that can be flipped to the
// persisted, clean state after their serialized snapshot was written
// through the owner's row
type persistMarker interface {
	MarkPersisted()
}

// destroyMarker is implemented by records that can be flagged destroyed
// without touching the store (embedded records have no row of their own)
type destroyMarker interface {
	MarkDestroyed()
}

// SyncResult reports the foreign-key synchronization a mutating
// operation performed on the owner, so callers can assert on it instead
// of inspecting attribute state.
type SyncResult struct {
	Added   []string
	Removed []string
}

// Empty returns true if the operation changed nothing
func (r *SyncResult) Empty() bool {
	return r == nil || (len(r.Added) == 0 && len(r.Removed) == 0)
}
