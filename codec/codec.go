// Package codec defines the serialization contract used when persisting
// record attributes and embedded records, plus the default JSON codec.
package codec

import "encoding/json"

// Codec serializes attribute mappings and single cell values. Dump/Load
// handle the per-record snapshots stored in embedded column families;
// DumpValue/LoadValue handle individual cells.
type Codec interface {
	Dump(attributes map[string]interface{}) ([]byte, error)
	Load(data []byte) (map[string]interface{}, error)
	DumpValue(value interface{}) ([]byte, error)
	LoadValue(data []byte) (interface{}, error)
}

// JSON is the default codec
type JSON struct{}

// Dump serializes an attribute mapping
func (JSON) Dump(attributes map[string]interface{}) ([]byte, error) {
	return json.Marshal(attributes)
}

// Load deserializes an attribute mapping
func (JSON) Load(data []byte) (map[string]interface{}, error) {
	var attributes map[string]interface{}
	if err := json.Unmarshal(data, &attributes); err != nil {
		return nil, err
	}
	return attributes, nil
}

// DumpValue serializes a single cell value
func (JSON) DumpValue(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

// LoadValue deserializes a single cell value
func (JSON) LoadValue(data []byte) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}
