// Package record implements the mapped record layer: attribute state
// with change tracking, schema-driven validation, persistence through a
// column store, and relation access via the relation proxy subsystem.
package record

import "reflect"

// FieldChange represents a change to a single attribute
type FieldChange struct {
	Field    string
	OldValue interface{}
	NewValue interface{}
}

// Tracker tracks attribute changes on one record instance so saves only
// write the cells that actually changed. Records are not safe for
// concurrent use, and neither is their tracker.
type Tracker struct {
	original map[string]interface{}
	current  map[string]interface{}
	changes  map[string]*FieldChange

	// attributes force-marked dirty regardless of value equality, used
	// by the relation layer after in-place foreign-key list mutations
	forced map[string]bool
}

// NewTracker creates a tracker seeded with the loaded attribute state
func NewTracker(original map[string]interface{}) *Tracker {
	t := &Tracker{
		original: deepCopyMap(original),
		current:  deepCopyMap(original),
		changes:  make(map[string]*FieldChange),
		forced:   make(map[string]bool),
	}
	return t
}

// SetFieldValue updates an attribute and recomputes its change status.
// Reverting to the original value clears the change.
func (t *Tracker) SetFieldValue(field string, value interface{}) {
	t.current[field] = value

	oldValue, hadOldValue := t.original[field]
	if !hadOldValue || !deepEqual(oldValue, value) {
		t.changes[field] = &FieldChange{
			Field:    field,
			OldValue: oldValue,
			NewValue: value,
		}
	} else {
		delete(t.changes, field)
	}
}

// MarkChanged force-marks an attribute dirty even when its value
// compares equal to the original, so in-place list mutations are written
func (t *Tracker) MarkChanged(field string) {
	t.forced[field] = true
}

// CurrentValue returns the current value of an attribute
func (t *Tracker) CurrentValue(field string) interface{} {
	return t.current[field]
}

// PreviousValue returns the value an attribute had when loaded
func (t *Tracker) PreviousValue(field string) interface{} {
	return t.original[field]
}

// Changed reports whether an attribute is dirty
func (t *Tracker) Changed(field string) bool {
	if t.forced[field] {
		return true
	}
	_, ok := t.changes[field]
	return ok
}

// HasChanges reports whether any attribute is dirty
func (t *Tracker) HasChanges() bool {
	return len(t.changes) > 0 || len(t.forced) > 0
}

// ChangedFields returns the names of all dirty attributes
func (t *Tracker) ChangedFields() []string {
	fields := make([]string, 0, len(t.changes)+len(t.forced))
	for field := range t.changes {
		fields = append(fields, field)
	}
	for field := range t.forced {
		if _, ok := t.changes[field]; !ok {
			fields = append(fields, field)
		}
	}
	return fields
}

// Changes returns a copy of all value changes keyed by attribute name.
// Force-marked attributes without a value change are not included.
func (t *Tracker) Changes() map[string]*FieldChange {
	result := make(map[string]*FieldChange, len(t.changes))
	for field, change := range t.changes {
		result[field] = change
	}
	return result
}

// GetChangedData returns the dirty attributes with their current values
func (t *Tracker) GetChangedData() map[string]interface{} {
	result := make(map[string]interface{}, len(t.changes)+len(t.forced))
	for field, change := range t.changes {
		result[field] = change.NewValue
	}
	for field := range t.forced {
		if _, ok := result[field]; !ok {
			result[field] = t.current[field]
		}
	}
	return result
}

// Snapshot returns a copy of the full current attribute state
func (t *Tracker) Snapshot() map[string]interface{} {
	return deepCopyMap(t.current)
}

// Reset adopts the current state as the new original and clears all
// tracked changes; called after a successful save
func (t *Tracker) Reset() {
	t.original = deepCopyMap(t.current)
	t.changes = make(map[string]*FieldChange)
	t.forced = make(map[string]bool)
}

// deepCopyMap creates a deep copy of an attribute mapping
func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopyValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case []string:
		list := make([]string, len(val))
		copy(list, val)
		return list
	case []interface{}:
		list := make([]interface{}, len(val))
		for i, e := range val {
			list[i] = deepCopyValue(e)
		}
		return list
	case map[string]interface{}:
		return deepCopyMap(val)
	default:
		return v
	}
}

// deepEqual compares two values, handling nil on either side
func deepEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}
