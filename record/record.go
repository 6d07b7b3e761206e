package record

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowmap-io/rowmap/relations"
	"github.com/rowmap-io/rowmap/storage"
)

// Record is one mapped record instance: attribute state tracked for
// changes, an identity, and lazily-built relation proxies. It implements
// the owner contract of the relation layer.
//
// Records are not safe for concurrent use.
type Record struct {
	table     *Table
	id        string
	persisted bool
	destroyed bool

	tracker *Tracker
	raw     map[string]map[string][]byte
	rels    *relations.Cache
	errs    *ValidationErrors
}

func newRecord(table *Table, attributes map[string]interface{}, persisted bool) *Record {
	attrs := deepCopyMap(attributes)

	id, _ := attrs["id"].(string)
	delete(attrs, "id")
	if id == "" {
		id = uuid.NewString()
	}

	return &Record{
		table:     table,
		id:        id,
		persisted: persisted,
		tracker:   NewTracker(attrs),
		raw:       make(map[string]map[string][]byte),
	}
}

// ID returns the record's row key
func (r *Record) ID() string {
	return r.id
}

// TypeName returns the record's type name
func (r *Record) TypeName() string {
	return r.table.schema.Name
}

// Persisted reports whether the record has a stored row
func (r *Record) Persisted() bool {
	return r.persisted
}

// IsNew reports whether the record has never been saved
func (r *Record) IsNew() bool {
	return !r.persisted
}

// Destroyed reports whether the record's row was deleted
func (r *Record) Destroyed() bool {
	return r.destroyed
}

// Changed reports whether the record has unsaved attribute changes or an
// embedded collection with pending writes
func (r *Record) Changed() bool {
	if r.tracker.HasChanges() {
		return true
	}

	changed := false
	if r.rels != nil {
		r.rels.Each(func(p relations.Proxy) {
			if ep, ok := p.(*relations.EmbedsManyProxy); ok && ep.Changed() {
				changed = true
			}
		})
	}
	return changed
}

// AttributeChanged reports whether a single attribute is dirty
func (r *Record) AttributeChanged(name string) bool {
	return r.tracker.Changed(name)
}

// Changes returns the record's value changes keyed by attribute name
func (r *Record) Changes() map[string]*FieldChange {
	return r.tracker.Changes()
}

// Valid runs schema validation over the current attribute state. The
// failures are retained and readable through Errors until the next call.
func (r *Record) Valid() bool {
	r.errs = Validate(r.table.schema, r.tracker.Snapshot())
	return !r.errs.HasErrors()
}

// Errors returns the failures recorded by the last Valid call
func (r *Record) Errors() *ValidationErrors {
	if r.errs == nil {
		return NewValidationErrors()
	}
	return r.errs
}

// Attribute returns the current value of an attribute
func (r *Record) Attribute(name string) interface{} {
	if name == "id" {
		return r.id
	}
	return r.tracker.CurrentValue(name)
}

// SetAttribute updates an attribute, tracking the change
func (r *Record) SetAttribute(name string, value interface{}) {
	if name == "id" {
		if id, ok := value.(string); ok {
			r.id = id
		}
		return
	}
	r.tracker.SetFieldValue(name, value)
}

// MarkAttributeChanged force-marks an attribute dirty regardless of
// value equality, so in-place list mutations are written on save
func (r *Record) MarkAttributeChanged(name string) {
	r.tracker.MarkChanged(name)
}

// AttributesSnapshot returns a copy of the full current attribute state
func (r *Record) AttributesSnapshot() map[string]interface{} {
	snapshot := r.tracker.Snapshot()
	snapshot["id"] = r.id
	return snapshot
}

// RawFamily exposes the raw serialized mapping of an embedded column
// family as loaded from the record's row
func (r *Record) RawFamily(name string) map[string][]byte {
	return r.raw[name]
}

// Relations returns the record's proxy cache, building it on first use
func (r *Record) Relations() *relations.Cache {
	if r.rels == nil {
		r.rels = relations.NewCache(r, r.table.rels)
	}
	return r.rels
}

// Relation returns the proxy for a declared relation, or nil
func (r *Record) Relation(name string) relations.Proxy {
	return r.Relations().Get(name)
}

// MarkPersisted flips the record to the persisted, clean state without a
// store write; the relation layer uses it for embedded records whose
// snapshot was written through their owner's row
func (r *Record) MarkPersisted() {
	r.persisted = true
	r.tracker.Reset()
}

// MarkDestroyed flags the record destroyed without a store delete
func (r *Record) MarkDestroyed() {
	r.destroyed = true
}

type embeddedWrite struct {
	proxy      *relations.EmbedsManyProxy
	family     string
	cells      map[string][]byte
	tombstones []string
}

// Save validates the record and writes its dirty cells, including the
// update hashes of changed embedded collections, in one store call. An
// invalid record yields (false, nil) with the failures kept on Errors.
func (r *Record) Save(ctx context.Context) (bool, error) {
	if r.destroyed {
		return false, ErrRecordDestroyed
	}
	if !r.Valid() {
		return false, nil
	}

	cells := make(map[string][]byte)
	var tombstones []string

	attrs := r.tracker.GetChangedData()
	if !r.persisted {
		attrs = r.tracker.Snapshot()
	}

	for name, value := range attrs {
		field, ok := r.table.schema.Fields[name]
		if !ok {
			continue
		}
		cell := storage.CellKey(field.Family, field.Name)
		if value == nil {
			tombstones = append(tombstones, cell)
			continue
		}
		data, err := r.table.codec.DumpValue(value)
		if err != nil {
			return false, fmt.Errorf("failed to encode %s on %s row %s: %w", name, r.TypeName(), r.id, err)
		}
		cells[cell] = data
	}

	embedded, err := r.embeddedWrites()
	if err != nil {
		return false, err
	}
	for _, ew := range embedded {
		for id, data := range ew.cells {
			cells[storage.CellKey(ew.family, id)] = data
		}
		for _, id := range ew.tombstones {
			tombstones = append(tombstones, storage.CellKey(ew.family, id))
		}
	}

	if len(cells) > 0 || len(tombstones) > 0 {
		if err := r.table.store.Put(ctx, r.table.schema.TableName, r.id, cells, tombstones); err != nil {
			return false, fmt.Errorf("failed to save %s row %s: %w", r.TypeName(), r.id, err)
		}
	}

	for _, ew := range embedded {
		r.applyEmbeddedWrite(ew)
		ew.proxy.Commit()
	}

	r.persisted = true
	r.tracker.Reset()

	r.table.logger.Debug("saved record",
		zap.String("type", r.TypeName()),
		zap.String("key", r.id),
		zap.Int("cells", len(cells)),
		zap.Int("tombstones", len(tombstones)))
	return true, nil
}

func (r *Record) embeddedWrites() ([]embeddedWrite, error) {
	if r.rels == nil {
		return nil, nil
	}

	var writes []embeddedWrite
	var err error
	r.rels.Each(func(p relations.Proxy) {
		if err != nil {
			return
		}
		ep, ok := p.(*relations.EmbedsManyProxy)
		if !ok || !ep.Changed() {
			return
		}

		cells, tombstones, hashErr := ep.UpdateHash()
		if hashErr != nil {
			err = hashErr
			return
		}
		writes = append(writes, embeddedWrite{
			proxy:      ep,
			family:     ep.Metadata().StoreIn,
			cells:      cells,
			tombstones: tombstones,
		})
	})
	return writes, err
}

// applyEmbeddedWrite mirrors a committed embedded update into the raw
// payload so reloads observe the written state
func (r *Record) applyEmbeddedWrite(ew embeddedWrite) {
	family := r.raw[ew.family]
	if family == nil {
		family = make(map[string][]byte)
		r.raw[ew.family] = family
	}
	for _, id := range ew.tombstones {
		delete(family, id)
	}
	for id, data := range ew.cells {
		family[id] = data
	}
}

// Destroy deletes the record's row. Destroying an unsaved or already
// destroyed record is a no-op that reports false.
func (r *Record) Destroy(ctx context.Context) (bool, error) {
	if !r.persisted || r.destroyed {
		return false, nil
	}

	if err := r.table.store.Delete(ctx, r.table.schema.TableName, r.id); err != nil {
		return false, fmt.Errorf("failed to destroy %s row %s: %w", r.TypeName(), r.id, err)
	}

	r.destroyed = true
	r.table.logger.Debug("destroyed record",
		zap.String("type", r.TypeName()),
		zap.String("key", r.id))
	return true, nil
}
