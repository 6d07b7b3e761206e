package relations

import (
	"context"
	"strings"
)

// DefaultBatchSize is the batch size used by FindInBatches when none is
// given
const DefaultBatchSize = 1000

// FinderOptions narrows a collection read. Offset cannot be honored when
// the foreign keys are persisted on the owner: record-level filtering
// over a plain id list would require client-side emulation.
type FinderOptions struct {
	Limit      int
	Offset     int
	StartsWith string
}

// BatchOptions configures batched iteration
type BatchOptions struct {
	// Size is the number of records per batch (default DefaultBatchSize)
	Size int
	// StartsWith pre-filters ids by prefix before fetching
	StartsWith string
}

// ReferencesManyProxy mediates a collection relation backed by an
// ordered list of foreign-key ids persisted on the owner. Mutations keep
// the owner's id list synchronized with the in-memory collection and
// report the synchronization in a SyncResult.
type ReferencesManyProxy struct {
	proxyState
	target []Record
}

func newReferencesManyProxy(owner Owner, meta *Metadata, reg *Registry) *ReferencesManyProxy {
	return &ReferencesManyProxy{
		proxyState: proxyState{owner: owner, meta: meta, reg: reg},
	}
}

// foreignKeyIDs resolves the current foreign-key id list from the owner
func (p *ReferencesManyProxy) foreignKeyIDs() []string {
	return asStringList(p.owner.Attribute(p.meta.ForeignKey))
}

func (p *ReferencesManyProxy) setForeignKeyIDs(ids []string) {
	p.owner.SetAttribute(p.meta.ForeignKey, ids)
	p.owner.MarkAttributeChanged(p.meta.ForeignKey)
}

func (p *ReferencesManyProxy) targetType() (TargetType, error) {
	return p.reg.targetType(p.meta)
}

// CanLoad reports whether a load attempt is worth making: a custom
// finder is configured, the foreign-key list is non-empty, or unsaved
// records are already held in memory
func (p *ReferencesManyProxy) CanLoad() bool {
	return p.meta.Finder != nil || len(p.foreignKeyIDs()) > 0 || len(p.target) > 0
}

// Reset returns the proxy to the unloaded state, forcing the next access
// to reload
func (p *ReferencesManyProxy) Reset() {
	p.target = nil
	p.loaded = false
}

// Load returns the full collection, fetching it on first access. Freshly
// fetched records are unioned by identity with whatever is already held
// in memory, so unsaved additions survive a reload. Load is idempotent
// while the proxy stays loaded.
func (p *ReferencesManyProxy) Load(ctx context.Context) ([]Record, error) {
	if p.loaded {
		return p.target, nil
	}

	fetched, err := p.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	p.target = mergeByID(p.target, fetched)
	p.loaded = true
	return p.target, nil
}

func (p *ReferencesManyProxy) fetchAll(ctx context.Context) ([]Record, error) {
	if p.meta.Finder != nil {
		results, err := p.meta.Finder(ctx, p.owner)
		if err != nil {
			return nil, err
		}
		records := make([]Record, 0, len(results))
		for _, rec := range results {
			if rec != nil {
				records = append(records, rec)
			}
		}
		return records, nil
	}

	ids := p.foreignKeyIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	target, err := p.targetType()
	if err != nil {
		return nil, err
	}
	return target.FindMany(ctx, ids)
}

// All is Load under its conventional finder name
func (p *ReferencesManyProxy) All(ctx context.Context) ([]Record, error) {
	return p.Load(ctx)
}

// AllWithOptions reads the collection narrowed by finder options.
// Offset on an owner-persisted foreign key signals
// UnsupportedFinderOptionError naming the rejected option.
func (p *ReferencesManyProxy) AllWithOptions(ctx context.Context, opts FinderOptions) ([]Record, error) {
	if p.meta.Finder == nil && opts.Offset > 0 {
		return nil, &UnsupportedFinderOptionError{Options: []string{"offset"}}
	}

	if p.loaded || p.meta.Finder != nil {
		records, err := p.Load(ctx)
		if err != nil {
			return nil, err
		}
		records = filterByPrefix(records, opts.StartsWith)
		if opts.Offset > 0 {
			if opts.Offset >= len(records) {
				return nil, nil
			}
			records = records[opts.Offset:]
		}
		if opts.Limit > 0 && len(records) > opts.Limit {
			records = records[:opts.Limit]
		}
		return records, nil
	}

	// Operate on the raw id list without materializing the relation
	ids := filterIDsByPrefix(p.foreignKeyIDs(), opts.StartsWith)
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}
	if len(ids) == 0 {
		return nil, nil
	}

	target, err := p.targetType()
	if err != nil {
		return nil, err
	}
	return target.FindMany(ctx, ids)
}

// Add appends records to the collection. The batch is validated
// atomically: if any candidate is invalid, nothing is added and a nil
// result is returned without error. Each accepted, not-yet-included
// record has its id appended to the owner's foreign-key list and is
// saved immediately when the owner is persisted; the owner itself is
// saved once after the batch.
func (p *ReferencesManyProxy) Add(ctx context.Context, records ...Record) (*SyncResult, error) {
	result := &SyncResult{}
	if len(records) == 0 {
		return result, nil
	}

	for _, rec := range records {
		if rec == nil || !rec.Valid() {
			return nil, nil
		}
	}

	// References-many does not support polymorphism; the target type is
	// always enforced.
	for _, rec := range records {
		if rec.TypeName() != p.meta.TargetTypeName {
			return nil, &TypeMismatchError{
				Relation: p.meta.Name,
				Expected: p.meta.TargetTypeName,
				Actual:   rec.TypeName(),
			}
		}
	}

	ids := p.foreignKeyIDs()
	for _, rec := range records {
		if containsString(ids, rec.ID()) {
			continue
		}

		ids = append(ids, rec.ID())
		p.setForeignKeyIDs(ids)
		p.target = mergeByID(p.target, []Record{rec})
		result.Added = append(result.Added, rec.ID())

		if p.owner.Persisted() {
			if _, err := rec.Save(ctx); err != nil {
				return result, err
			}
		}
	}

	if p.owner.Persisted() && len(result.Added) > 0 {
		if _, err := p.owner.Save(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Replace swaps the whole collection for a new set: a full replacement,
// not a diff. Replacing with a single nil clears the relation.
func (p *ReferencesManyProxy) Replace(ctx context.Context, records ...Record) (*SyncResult, error) {
	if len(records) == 1 && records[0] == nil {
		removed := p.foreignKeyIDs()
		p.setForeignKeyIDs(nil)
		p.Reset()
		p.loaded = true
		return &SyncResult{Removed: removed}, nil
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

// Delete removes records from the collection and the owner's foreign-key
// list, saving the owner once after the batch when persisted
func (p *ReferencesManyProxy) Delete(ctx context.Context, records ...Record) (*SyncResult, error) {
	return p.deleteOrDestroy(ctx, false, records)
}

// Destroy removes records like Delete and additionally invokes each
// removed record's destroy operation
func (p *ReferencesManyProxy) Destroy(ctx context.Context, records ...Record) (*SyncResult, error) {
	return p.deleteOrDestroy(ctx, true, records)
}

func (p *ReferencesManyProxy) deleteOrDestroy(ctx context.Context, destroy bool, records []Record) (*SyncResult, error) {
	result := &SyncResult{}
	ids := p.foreignKeyIDs()

	for _, rec := range records {
		if rec == nil {
			continue
		}
		included := containsString(ids, rec.ID()) || indexOfID(p.target, rec.ID()) >= 0
		if !included {
			continue
		}

		ids = removeString(ids, rec.ID())
		p.setForeignKeyIDs(ids)
		p.target = removeByID(p.target, rec.ID())
		result.Removed = append(result.Removed, rec.ID())

		if destroy {
			if _, err := rec.Destroy(ctx); err != nil {
				return result, err
			}
		}
	}

	if p.owner.Persisted() && len(result.Removed) > 0 {
		if _, err := p.owner.Save(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

// DeleteAll removes every record in the relation. The relation is fully
// loaded first so unfetched members are not silently skipped; afterwards
// the proxy is left loaded and empty with no further fetch.
func (p *ReferencesManyProxy) DeleteAll(ctx context.Context) (*SyncResult, error) {
	return p.deleteOrDestroyAll(ctx, false)
}

// DestroyAll destroys every record in the relation, with the same full
// load semantics as DeleteAll
func (p *ReferencesManyProxy) DestroyAll(ctx context.Context) (*SyncResult, error) {
	return p.deleteOrDestroyAll(ctx, true)
}

func (p *ReferencesManyProxy) deleteOrDestroyAll(ctx context.Context, destroy bool) (*SyncResult, error) {
	if _, err := p.Load(ctx); err != nil {
		return nil, err
	}

	all := make([]Record, len(p.target))
	copy(all, p.target)

	result, err := p.deleteOrDestroy(ctx, destroy, all)
	if err != nil {
		return result, err
	}

	p.Reset()
	p.loaded = true
	return result, nil
}

// Length returns the collection size without fetching records when the
// count is derivable from the owner's foreign-key list
func (p *ReferencesManyProxy) Length(ctx context.Context) (int, error) {
	if p.loaded {
		return len(p.target), nil
	}
	if p.meta.Finder != nil {
		records, err := p.Load(ctx)
		if err != nil {
			return 0, err
		}
		return len(records), nil
	}
	return len(p.foreignKeyIDs()), nil
}

// Includes reports whether a record (or raw id) is part of the relation.
// A lookup miss means "not included" rather than an error.
func (p *ReferencesManyProxy) Includes(ctx context.Context, ref interface{}) (bool, error) {
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

// Find resolves one member by id. When loaded it searches in memory;
// with a custom finder the id must match the configured prefix hint
// before delegating to the target type's lookup; otherwise the id must
// be present in the owner's foreign-key list or the lookup is not even
// attempted.
func (p *ReferencesManyProxy) Find(ctx context.Context, id string) (Record, error) {
	if p.loaded {
		if idx := indexOfID(p.target, id); idx >= 0 {
			return p.target[idx], nil
		}
		return nil, &RecordNotFoundError{Type: p.meta.TargetTypeName, ID: id}
	}

	if p.meta.Finder != nil {
		if p.meta.StartsWith != "" {
			prefix := asString(p.owner.Attribute(p.meta.StartsWith))
			if prefix != "" && !strings.HasPrefix(id, prefix) {
				return nil, &RecordNotFoundError{Type: p.meta.TargetTypeName, ID: id}
			}
		}
		return p.findViaLookup(ctx, id)
	}

	if !containsString(p.foreignKeyIDs(), id) {
		return nil, &RecordNotFoundError{Type: p.meta.TargetTypeName, ID: id}
	}
	return p.findViaLookup(ctx, id)
}

func (p *ReferencesManyProxy) findViaLookup(ctx context.Context, id string) (Record, error) {
	target, err := p.targetType()
	if err != nil {
		return nil, err
	}
	rec, err := target.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &RecordNotFoundError{Type: p.meta.TargetTypeName, ID: id}
	}
	return rec, nil
}

// Limit returns the first n members. On an unloaded, foreign-key-driven
// relation only the first n ids are batch-fetched and the proxy is not
// marked loaded; large relations are never materialized just to read a
// prefix.
func (p *ReferencesManyProxy) Limit(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}

	if p.loaded || p.meta.Finder != nil {
		records, err := p.Load(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) > n {
			records = records[:n]
		}
		return records, nil
	}

	ids := p.foreignKeyIDs()
	if len(ids) > n {
		ids = ids[:n]
	}
	if len(ids) == 0 {
		return nil, nil
	}

	target, err := p.targetType()
	if err != nil {
		return nil, err
	}
	return target.FindMany(ctx, ids)
}

// FindInBatches yields the relation's records batch by batch. When the
// proxy is unloaded the raw foreign-key id list is partitioned and each
// batch is fetched only after the previous one was yielded, bounding
// memory use on very large relations. Iteration restarts from the first
// batch on every call.
func (p *ReferencesManyProxy) FindInBatches(ctx context.Context, opts BatchOptions, fn func(batch []Record) error) error {
	size := opts.Size
	if size <= 0 {
		size = DefaultBatchSize
	}

	if p.loaded || p.meta.Finder != nil {
		records, err := p.Load(ctx)
		if err != nil {
			return err
		}
		records = filterByPrefix(records, p.batchPrefix(opts))
		for start := 0; start < len(records); start += size {
			end := start + size
			if end > len(records) {
				end = len(records)
			}
			if err := fn(records[start:end]); err != nil {
				return err
			}
		}
		return nil
	}

	ids := filterIDsByPrefix(p.foreignKeyIDs(), p.batchPrefix(opts))
	target, err := p.targetType()
	if err != nil {
		return err
	}

	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := target.FindMany(ctx, ids[start:end])
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			continue
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (p *ReferencesManyProxy) batchPrefix(opts BatchOptions) string {
	if opts.StartsWith != "" {
		return opts.StartsWith
	}
	if p.meta.StartsWith != "" {
		return asString(p.owner.Attribute(p.meta.StartsWith))
	}
	return ""
}

// filterByPrefix keeps records whose id carries the prefix
func filterByPrefix(records []Record, prefix string) []Record {
	if prefix == "" {
		return records
	}
	result := make([]Record, 0, len(records))
	for _, rec := range records {
		if strings.HasPrefix(rec.ID(), prefix) {
			result = append(result, rec)
		}
	}
	return result
}

// filterIDsByPrefix keeps ids carrying the prefix
func filterIDsByPrefix(ids []string, prefix string) []string {
	if prefix == "" {
		return ids
	}
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			result = append(result, id)
		}
	}
	return result
}
