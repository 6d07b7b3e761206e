// Package schema provides type definitions for rowmap's record schema system.
// It defines column families, typed fields, and the per-type record schema
// that the mapping and relation layers consume.
package schema

import (
	"fmt"
	"time"

	utilstrings "github.com/rowmap-io/rowmap/internal/util/strings"
)

// PrimitiveType represents the built-in field types in rowmap
type PrimitiveType int

const (
	TypeString PrimitiveType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeTime
	TypeBytes

	// TypeStringList holds an ordered list of ids, used for persisted
	// foreign-key lists
	TypeStringList

	// TypeMap holds an arbitrary string-keyed mapping
	TypeMap
)

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	switch p {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeTime:
		return "time"
	case TypeBytes:
		return "bytes"
	case TypeStringList:
		return "string_list"
	case TypeMap:
		return "map"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	case "time":
		return TypeTime, nil
	case "bytes":
		return TypeBytes, nil
	case "string_list":
		return TypeStringList, nil
	case "map":
		return TypeMap, nil
	default:
		return 0, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// TypeSpec represents a complete field type specification
type TypeSpec struct {
	BaseType PrimitiveType
	Required bool
	Default  interface{}
}

// String returns a string representation of the TypeSpec
func (t *TypeSpec) String() string {
	s := t.BaseType.String()
	if t.Required {
		s += "!"
	}
	return s
}

// Accepts reports whether a runtime value is assignable to this type.
// nil is acceptable for any non-required field.
func (t *TypeSpec) Accepts(value interface{}) bool {
	if value == nil {
		return !t.Required
	}

	switch t.BaseType {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeInt:
		switch value.(type) {
		case int, int32, int64, float64:
			return true
		}
		return false
	case TypeFloat:
		switch value.(type) {
		case float32, float64, int, int64:
			return true
		}
		return false
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeTime:
		switch value.(type) {
		case time.Time, string:
			return true
		}
		return false
	case TypeBytes:
		switch value.(type) {
		case []byte, string:
			return true
		}
		return false
	case TypeStringList:
		switch v := value.(type) {
		case []string:
			return true
		case []interface{}:
			for _, e := range v {
				if _, ok := e.(string); !ok {
					return false
				}
			}
			return true
		}
		return false
	case TypeMap:
		_, ok := value.(map[string]interface{})
		return ok
	default:
		return false
	}
}

// ColumnFamily represents a named column family inside a record's row.
// An embedded family carries serialized related records keyed by id
// instead of declared fields.
type ColumnFamily struct {
	Name     string
	Embedded bool
}

// Field represents a declared field persisted inside a column family
type Field struct {
	Name   string
	Family string
	Type   *TypeSpec
}

// RecordSchema represents the complete schema for one record type
type RecordSchema struct {
	Name      string
	TableName string

	Families map[string]*ColumnFamily
	Fields   map[string]*Field
}

// NewRecordSchema creates a new RecordSchema with a derived table name
func NewRecordSchema(name string) *RecordSchema {
	return &RecordSchema{
		Name:      name,
		TableName: utilstrings.Pluralize(utilstrings.ToSnakeCase(name)),
		Families:  make(map[string]*ColumnFamily),
		Fields:    make(map[string]*Field),
	}
}

// AddFamily declares a column family. Redeclaring an existing family is
// a no-op when the definition matches.
func (r *RecordSchema) AddFamily(name string, embedded bool) (*ColumnFamily, error) {
	if existing, ok := r.Families[name]; ok {
		if existing.Embedded != embedded {
			return nil, fmt.Errorf("column family %s already declared with a different definition", name)
		}
		return existing, nil
	}

	family := &ColumnFamily{Name: name, Embedded: embedded}
	r.Families[name] = family
	return family, nil
}

// AddField declares a field inside a column family. This is also the
// augmentation hook the relation layer uses to register persisted
// foreign-key fields at declaration time; redefining a field with an
// identical spec is a no-op.
func (r *RecordSchema) AddField(name, family string, spec *TypeSpec) (*Field, error) {
	if existing, ok := r.Fields[name]; ok {
		if existing.Family == family && existing.Type.BaseType == spec.BaseType {
			return existing, nil
		}
		return nil, fmt.Errorf("field %s already declared on %s with a different definition", name, r.Name)
	}

	if _, ok := r.Families[family]; !ok {
		if _, err := r.AddFamily(family, false); err != nil {
			return nil, err
		}
	}

	field := &Field{Name: name, Family: family, Type: spec}
	r.Fields[name] = field
	return field, nil
}

// HasField returns true if the schema declares a field with the given name
func (r *RecordSchema) HasField(name string) bool {
	_, exists := r.Fields[name]
	return exists
}

// FieldsInFamily returns all fields declared in the given column family
func (r *RecordSchema) FieldsInFamily(family string) []*Field {
	var fields []*Field
	for _, f := range r.Fields {
		if f.Family == family {
			fields = append(fields, f)
		}
	}
	return fields
}

// EmbeddedFamilies returns the names of all embedded column families
func (r *RecordSchema) EmbeddedFamilies() []string {
	var names []string
	for name, fam := range r.Families {
		if fam.Embedded {
			names = append(names, name)
		}
	}
	return names
}
