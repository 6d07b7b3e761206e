package relations

import (
	"context"
	"fmt"
	"sort"
)

// EmbedsManyProxy mediates a collection of records whose serialized
// state is embedded directly inside the owner's stored payload: the
// owner's raw column family holds a mapping of id -> serialized record.
// There is no separate foreign-key list; membership is presence in the
// embedded mapping, materialized at owner-save time through UpdateHash.
type EmbedsManyProxy struct {
	proxyState
	target []Record

	// ids removed from the collection whose stored cells still need a
	// tombstone at the next owner save
	removed map[string]bool
}

func newEmbedsManyProxy(owner Owner, meta *Metadata, reg *Registry) *EmbedsManyProxy {
	return &EmbedsManyProxy{
		proxyState: proxyState{owner: owner, meta: meta, reg: reg},
		removed:    make(map[string]bool),
	}
}

// CanLoad reports whether a load attempt is worth making
func (p *EmbedsManyProxy) CanLoad() bool {
	return len(p.owner.RawFamily(p.meta.StoreIn)) > 0 || len(p.target) > 0
}

// Reset returns the proxy to the unloaded state and discards pending
// tombstones
func (p *EmbedsManyProxy) Reset() {
	p.target = nil
	p.removed = make(map[string]bool)
	p.loaded = false
}

// Load deserializes every entry in the owner's embedded mapping and
// unions the result with records already pushed in memory, so unsaved
// additions are not lost by a reload
func (p *EmbedsManyProxy) Load(ctx context.Context) ([]Record, error) {
	if p.loaded {
		return p.target, nil
	}

	target, err := p.reg.targetType(p.meta)
	if err != nil {
		return nil, err
	}

	raw := p.owner.RawFamily(p.meta.StoreIn)
	ids := make([]string, 0, len(raw))
	for id := range raw {
		if p.removed[id] {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fetched := make([]Record, 0, len(ids))
	for _, id := range ids {
		attrs, err := p.meta.Codec.Load(raw[id])
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedded %s record %s: %w", p.meta.TargetTypeName, id, err)
		}
		attrs["id"] = id

		rec := target.New(attrs)
		if marker, ok := rec.(persistMarker); ok {
			marker.MarkPersisted()
		}
		fetched = append(fetched, rec)
	}

	p.target = mergeByID(p.target, fetched)
	p.loaded = true
	return p.target, nil
}

// Changed reports whether any member is new, destroyed, or independently
// changed
func (p *EmbedsManyProxy) Changed() bool {
	if len(p.removed) > 0 {
		return true
	}
	for _, rec := range p.target {
		if rec.IsNew() || rec.Destroyed() || rec.Changed() {
			return true
		}
	}
	return false
}

// UpdateHash produces the per-id payload the owner's save routine writes
// back into the embedded field: id -> serialized snapshot for new or
// changed members, and a tombstone list for removed or destroyed ones.
// Unchanged members are omitted.
func (p *EmbedsManyProxy) UpdateHash() (cells map[string][]byte, tombstones []string, err error) {
	cells = make(map[string][]byte)

	for id := range p.removed {
		tombstones = append(tombstones, id)
	}
	sort.Strings(tombstones)

	for _, rec := range p.target {
		switch {
		case rec.Destroyed():
			tombstones = append(tombstones, rec.ID())
		case rec.IsNew() || rec.Changed():
			data, dumpErr := p.meta.Codec.Dump(rec.AttributesSnapshot())
			if dumpErr != nil {
				return nil, nil, fmt.Errorf("failed to encode embedded %s record %s: %w", p.meta.TargetTypeName, rec.ID(), dumpErr)
			}
			cells[rec.ID()] = data
		}
	}
	return cells, tombstones, nil
}

// Commit flips every surviving member to the persisted, clean state and
// drops destroyed members; the owner's save routine calls it after the
// update hash was written
func (p *EmbedsManyProxy) Commit() {
	p.removed = make(map[string]bool)

	survivors := p.target[:0]
	for _, rec := range p.target {
		if rec.Destroyed() {
			continue
		}
		if marker, ok := rec.(persistMarker); ok {
			marker.MarkPersisted()
		}
		survivors = append(survivors, rec)
	}
	p.target = survivors
}

// Add appends records to the embedded collection. The batch is rejected
// as a whole unless every candidate passes validation; on success the
// owner is persisted immediately when it is already persisted.
func (p *EmbedsManyProxy) Add(ctx context.Context, records ...Record) (*SyncResult, error) {
	result := &SyncResult{}
	if len(records) == 0 {
		return result, nil
	}

	for _, rec := range records {
		if rec == nil || !rec.Valid() {
			return nil, nil
		}
	}

	for _, rec := range records {
		if rec.TypeName() != p.meta.TargetTypeName {
			return nil, &TypeMismatchError{
				Relation: p.meta.Name,
				Expected: p.meta.TargetTypeName,
				Actual:   rec.TypeName(),
			}
		}
	}

	for _, rec := range records {
		if indexOfID(p.target, rec.ID()) >= 0 {
			continue
		}
		delete(p.removed, rec.ID())
		p.target = append(p.target, rec)
		result.Added = append(result.Added, rec.ID())
	}

	if p.owner.Persisted() && len(result.Added) > 0 {
		if _, err := p.owner.Save(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Replace swaps the whole embedded collection for a new set. Replacing
// with a single nil clears the relation.
func (p *EmbedsManyProxy) Replace(ctx context.Context, records ...Record) (*SyncResult, error) {
	if len(records) == 1 && records[0] == nil {
		return p.clear(ctx)
	}

	result, err := p.DeleteAll(ctx)
	if err != nil {
		return result, err
	}

	added, err := p.Add(ctx, records...)
	if err != nil {
		return result, err
	}
	if added != nil {
		result.Added = added.Added
	}
	return result, nil
}

func (p *EmbedsManyProxy) clear(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}

	for id := range p.owner.RawFamily(p.meta.StoreIn) {
		p.removed[id] = true
		result.Removed = append(result.Removed, id)
	}
	for _, rec := range p.target {
		if !containsString(result.Removed, rec.ID()) {
			p.removed[rec.ID()] = true
			result.Removed = append(result.Removed, rec.ID())
		}
	}
	sort.Strings(result.Removed)

	p.target = nil
	p.loaded = true
	return result, nil
}

// Delete removes records from the in-memory collection; their stored
// cells are tombstoned at the next owner save
func (p *EmbedsManyProxy) Delete(ctx context.Context, records ...Record) (*SyncResult, error) {
	return p.deleteOrDestroy(ctx, false, records)
}

// Destroy removes records like Delete and additionally flags each one
// destroyed. Embedded records have no row of their own, so no store call
// is made here.
func (p *EmbedsManyProxy) Destroy(ctx context.Context, records ...Record) (*SyncResult, error) {
	return p.deleteOrDestroy(ctx, true, records)
}

func (p *EmbedsManyProxy) deleteOrDestroy(ctx context.Context, destroy bool, records []Record) (*SyncResult, error) {
	result := &SyncResult{}
	raw := p.owner.RawFamily(p.meta.StoreIn)

	for _, rec := range records {
		if rec == nil {
			continue
		}
		_, stored := raw[rec.ID()]
		if !stored && indexOfID(p.target, rec.ID()) < 0 {
			continue
		}

		p.target = removeByID(p.target, rec.ID())
		if stored {
			p.removed[rec.ID()] = true
		}
		if destroy {
			if marker, ok := rec.(destroyMarker); ok {
				marker.MarkDestroyed()
			}
		}
		result.Removed = append(result.Removed, rec.ID())
	}
	return result, nil
}

// DeleteAll removes every member, loading the collection first so
// unfetched members are not silently skipped. The proxy is left loaded
// and empty.
func (p *EmbedsManyProxy) DeleteAll(ctx context.Context) (*SyncResult, error) {
	return p.deleteOrDestroyAll(ctx, false)
}

// DestroyAll destroys every member with the same full-load semantics as
// DeleteAll
func (p *EmbedsManyProxy) DestroyAll(ctx context.Context) (*SyncResult, error) {
	return p.deleteOrDestroyAll(ctx, true)
}

func (p *EmbedsManyProxy) deleteOrDestroyAll(ctx context.Context, destroy bool) (*SyncResult, error) {
	if _, err := p.Load(ctx); err != nil {
		return nil, err
	}

	all := make([]Record, len(p.target))
	copy(all, p.target)

	result, err := p.deleteOrDestroy(ctx, destroy, all)
	if err != nil {
		return result, err
	}

	p.target = nil
	p.loaded = true
	return result, nil
}

// Length returns the collection size without deserializing the embedded
// payload: stored entries not yet removed, plus unsaved in-memory
// additions
func (p *EmbedsManyProxy) Length(ctx context.Context) (int, error) {
	if p.loaded {
		return len(p.target), nil
	}

	raw := p.owner.RawFamily(p.meta.StoreIn)
	count := 0
	for id := range raw {
		if !p.removed[id] {
			count++
		}
	}
	for _, rec := range p.target {
		if _, stored := raw[rec.ID()]; !stored {
			count++
		}
	}
	return count, nil
}

// Find resolves one member by id, loading the collection first; the
// embedded mapping arrives with the owner's payload, so staying unloaded
// saves no remote call. A miss signals RecordNotFoundError.
func (p *EmbedsManyProxy) Find(ctx context.Context, id string) (Record, error) {
	records, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	if idx := indexOfID(records, id); idx >= 0 {
		return records[idx], nil
	}
	return nil, &RecordNotFoundError{Type: p.meta.TargetTypeName, ID: id}
}

// Limit returns the first n members in collection order
func (p *EmbedsManyProxy) Limit(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	records, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// Includes reports whether a record (or raw id) is part of the relation
func (p *EmbedsManyProxy) Includes(ctx context.Context, ref interface{}) (bool, error) {
	var id string
	switch v := ref.(type) {
	case Record:
		id = v.ID()
	case string:
		id = v
	default:
		return false, nil
	}

	if _, err := p.Find(ctx, id); err != nil {
		if IsRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
