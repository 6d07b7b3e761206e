package record

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rowmap-io/rowmap/codec"
	"github.com/rowmap-io/rowmap/relations"
	"github.com/rowmap-io/rowmap/schema"
	"github.com/rowmap-io/rowmap/storage"
)

// Table binds one record schema to a column store. It is the lookup side
// of its record type: the relation layer resolves target types to tables
// through the shared type set.
type Table struct {
	schema *schema.RecordSchema
	store  storage.Store
	codec  codec.Codec
	rels   *relations.Registry
	logger *zap.Logger
}

// Option configures a Table
type Option func(*Table)

// WithCodec sets the cell value codec (default JSON)
func WithCodec(c codec.Codec) Option {
	return func(t *Table) {
		t.codec = c
	}
}

// WithLogger sets the logger (default no-op)
func WithLogger(logger *zap.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// NewTable creates a table for a record schema and registers it as a
// relation target type in the shared type set
func NewTable(s *schema.RecordSchema, store storage.Store, types *relations.TypeSet, opts ...Option) *Table {
	t := &Table{
		schema: s,
		store:  store,
		codec:  codec.JSON{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.rels = relations.NewRegistry(s.Name, types, t.augmentSchema)
	types.Register(t)
	return t
}

// augmentSchema registers a relation-managed foreign-key field on the
// table's schema at declaration time
func (t *Table) augmentSchema(fieldName, family string, list bool) error {
	base := schema.TypeString
	if list {
		base = schema.TypeStringList
	}
	_, err := t.schema.AddField(fieldName, family, &schema.TypeSpec{BaseType: base})
	return err
}

// Schema returns the table's record schema
func (t *Table) Schema() *schema.RecordSchema {
	return t.schema
}

// Relations returns the table's relation registry
func (t *Table) Relations() *relations.Registry {
	return t.rels
}

// ReferencesOne declares a single-valued reference relation
func (t *Table) ReferencesOne(name string, opts relations.Options) error {
	return t.rels.Register(relations.NewMetadata(name, relations.ReferencesOne, opts))
}

// ReferencesMany declares a collection relation backed by a persisted
// foreign-key id list
func (t *Table) ReferencesMany(name string, opts relations.Options) error {
	return t.rels.Register(relations.NewMetadata(name, relations.ReferencesMany, opts))
}

// EmbedsMany declares an embedded collection relation. The named column
// family is declared embedded on the schema so its cells are kept as raw
// serialized payloads instead of decoded fields.
func (t *Table) EmbedsMany(name string, opts relations.Options) error {
	if opts.StoreIn == "" {
		return fmt.Errorf("%w: %s on %s", ErrMissingStoreIn, name, t.schema.Name)
	}
	if _, err := t.schema.AddFamily(opts.StoreIn, true); err != nil {
		return err
	}
	return t.rels.Register(relations.NewMetadata(name, relations.EmbedsMany, opts))
}

// Name returns the record type name
func (t *Table) Name() string {
	return t.schema.Name
}

// Find fetches one record by row key. A missing row yields a
// RecordNotFoundError.
func (t *Table) Find(ctx context.Context, id string) (relations.Record, error) {
	row, err := t.store.Get(ctx, t.schema.TableName, id)
	if err != nil {
		if storage.IsRowNotFound(err) {
			return nil, &relations.RecordNotFoundError{Type: t.schema.Name, ID: id}
		}
		return nil, fmt.Errorf("failed to fetch %s row %s: %w", t.schema.Name, id, err)
	}
	return t.decode(row)
}

// FindMany batch-fetches records by row key in one store round trip.
// Missing keys are simply absent from the result.
func (t *Table) FindMany(ctx context.Context, ids []string) ([]relations.Record, error) {
	rows, err := t.store.GetMany(ctx, t.schema.TableName, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s rows: %w", t.schema.Name, err)
	}

	records := make([]relations.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := t.decode(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// New constructs an unpersisted record from an attribute mapping. A
// missing id is filled with a generated one.
func (t *Table) New(attributes map[string]interface{}) relations.Record {
	return newRecord(t, attributes, false)
}

// All fetches up to limit records (0 = all), scanning row keys first and
// batch-fetching the rows
func (t *Table) All(ctx context.Context, limit int) ([]relations.Record, error) {
	keys, err := t.store.Keys(ctx, t.schema.TableName, "", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s rows: %w", t.schema.Name, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return t.FindMany(ctx, keys)
}

// decode turns a stored row into a persisted record: embedded family
// cells are kept raw for the relation layer, field cells are decoded
// into attributes
func (t *Table) decode(row *storage.Row) (*Record, error) {
	attrs := make(map[string]interface{})
	raw := make(map[string]map[string][]byte)

	for cell, data := range row.Cells {
		family, qualifier := storage.SplitCellKey(cell)

		if fam, ok := t.schema.Families[family]; ok && fam.Embedded {
			if raw[family] == nil {
				raw[family] = make(map[string][]byte)
			}
			raw[family][qualifier] = data
			continue
		}

		value, err := t.codec.LoadValue(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cell %s of %s row %s: %w", cell, t.schema.Name, row.Key, err)
		}
		attrs[qualifier] = value
	}

	rec := newRecord(t, attrs, true)
	rec.id = row.Key
	rec.raw = raw
	return rec, nil
}
