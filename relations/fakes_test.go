package relations

import (
	"context"
)

// fakeRecord is a minimal in-memory Record used across the proxy tests
type fakeRecord struct {
	id        string
	typeName  string
	persisted bool
	destroyed bool
	changed   bool
	invalid   bool
	attrs     map[string]interface{}

	saveCalls    int
	destroyCalls int
}

func newFakeRecord(typeName, id string) *fakeRecord {
	return &fakeRecord{
		id:       id,
		typeName: typeName,
		attrs:    map[string]interface{}{"id": id},
	}
}

func (r *fakeRecord) ID() string       { return r.id }
func (r *fakeRecord) TypeName() string { return r.typeName }
func (r *fakeRecord) Persisted() bool  { return r.persisted }
func (r *fakeRecord) IsNew() bool      { return !r.persisted }
func (r *fakeRecord) Destroyed() bool  { return r.destroyed }
func (r *fakeRecord) Changed() bool    { return r.changed }
func (r *fakeRecord) Valid() bool      { return !r.invalid }

func (r *fakeRecord) Save(ctx context.Context) (bool, error) {
	if r.invalid {
		return false, nil
	}
	r.saveCalls++
	r.persisted = true
	r.changed = false
	return true, nil
}

func (r *fakeRecord) Destroy(ctx context.Context) (bool, error) {
	r.destroyCalls++
	r.destroyed = true
	return true, nil
}

func (r *fakeRecord) AttributesSnapshot() map[string]interface{} {
	snapshot := make(map[string]interface{}, len(r.attrs))
	for k, v := range r.attrs {
		snapshot[k] = v
	}
	return snapshot
}

func (r *fakeRecord) MarkPersisted() {
	r.persisted = true
	r.changed = false
}

func (r *fakeRecord) MarkDestroyed() {
	r.destroyed = true
}

// fakeOwner is an in-memory Owner with attribute and raw-family state
type fakeOwner struct {
	fakeRecord
	ownerAttrs   map[string]interface{}
	changedAttrs map[string]bool
	raw          map[string]map[string][]byte
}

func newFakeOwner(typeName, id string) *fakeOwner {
	return &fakeOwner{
		fakeRecord:   *newFakeRecord(typeName, id),
		ownerAttrs:   make(map[string]interface{}),
		changedAttrs: make(map[string]bool),
		raw:          make(map[string]map[string][]byte),
	}
}

func (o *fakeOwner) Attribute(name string) interface{} {
	return o.ownerAttrs[name]
}

func (o *fakeOwner) SetAttribute(name string, value interface{}) {
	if value == nil {
		delete(o.ownerAttrs, name)
		return
	}
	o.ownerAttrs[name] = value
}

func (o *fakeOwner) MarkAttributeChanged(name string) {
	o.changedAttrs[name] = true
	o.changed = true
}

func (o *fakeOwner) RawFamily(name string) map[string][]byte {
	return o.raw[name]
}

// fakeTargetType is an in-memory TargetType with call counters so tests
// can assert on how many lookups a proxy operation performed
type fakeTargetType struct {
	name  string
	store map[string]Record

	findCalls  int
	batchCalls int
}

func newFakeTargetType(name string) *fakeTargetType {
	return &fakeTargetType{
		name:  name,
		store: make(map[string]Record),
	}
}

func (t *fakeTargetType) add(records ...*fakeRecord) {
	for _, rec := range records {
		rec.persisted = true
		t.store[rec.id] = rec
	}
}

func (t *fakeTargetType) Name() string { return t.name }

func (t *fakeTargetType) Find(ctx context.Context, id string) (Record, error) {
	t.findCalls++
	rec, ok := t.store[id]
	if !ok {
		return nil, &RecordNotFoundError{Type: t.name, ID: id}
	}
	return rec, nil
}

func (t *fakeTargetType) FindMany(ctx context.Context, ids []string) ([]Record, error) {
	t.batchCalls++
	seen := make(map[string]bool, len(ids))
	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if rec, ok := t.store[id]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (t *fakeTargetType) New(attributes map[string]interface{}) Record {
	rec := &fakeRecord{typeName: t.name, attrs: attributes}
	if id, ok := attributes["id"].(string); ok {
		rec.id = id
	}
	return rec
}

func recordIDs(records []Record) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID()
	}
	return ids
}
