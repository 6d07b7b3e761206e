package record

import "errors"

var (
	// ErrRecordDestroyed is returned when a destroyed record is saved
	ErrRecordDestroyed = errors.New("record destroyed")

	// ErrMissingStoreIn is returned when an embedded relation is declared
	// without a column family to store into
	ErrMissingStoreIn = errors.New("embedded relation requires a store_in column family")
)
