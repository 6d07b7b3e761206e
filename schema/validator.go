package schema

import (
	"fmt"
)

// ValidateStructural checks a single schema for internal consistency:
// non-empty names, every field placed in a declared family, and no
// declared fields inside an embedded family.
func ValidateStructural(schema *RecordSchema) error {
	if schema.Name == "" {
		return fmt.Errorf("record schema has no name")
	}
	if schema.TableName == "" {
		return fmt.Errorf("record schema %s has no table name", schema.Name)
	}

	for name, field := range schema.Fields {
		if name == "" || field.Name == "" {
			return fmt.Errorf("record schema %s declares a field with an empty name", schema.Name)
		}
		if name != field.Name {
			return fmt.Errorf("record schema %s: field registered as %s but named %s", schema.Name, name, field.Name)
		}
		if field.Type == nil {
			return fmt.Errorf("record schema %s: field %s has no type", schema.Name, name)
		}

		family, ok := schema.Families[field.Family]
		if !ok {
			return fmt.Errorf("record schema %s: field %s references undeclared column family %s",
				schema.Name, name, field.Family)
		}
		if family.Embedded {
			return fmt.Errorf("record schema %s: field %s declared inside embedded column family %s",
				schema.Name, name, field.Family)
		}
	}

	return nil
}
