// Package storage defines the column-store adapter contract and its
// Redis and SQLite implementations. A row is addressed by table and key
// and holds cells keyed "family:qualifier".
package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrRowNotFound is returned when a requested row does not exist
	ErrRowNotFound = errors.New("row not found")
)

// Row is one stored row: a key plus its cells
type Row struct {
	Key   string
	Cells map[string][]byte
}

// CellKey builds a cell key from a family and qualifier
func CellKey(family, qualifier string) string {
	return family + ":" + qualifier
}

// SplitCellKey splits a cell key into family and qualifier
func SplitCellKey(cell string) (family, qualifier string) {
	idx := strings.Index(cell, ":")
	if idx < 0 {
		return cell, ""
	}
	return cell[:idx], cell[idx+1:]
}

// Store is the adapter contract to the backing column store. All calls
// block until the store responds or fails.
type Store interface {
	// Get fetches one row; ErrRowNotFound when the key is absent
	Get(ctx context.Context, table, key string) (*Row, error)

	// GetMany fetches rows for the given keys in one round trip where
	// the backend allows it. Missing keys are simply absent from the
	// result; each present key appears at most once.
	GetMany(ctx context.Context, table string, keys []string) ([]*Row, error)

	// Put writes cells into a row and removes tombstoned cells
	Put(ctx context.Context, table, key string, cells map[string][]byte, tombstones []string) error

	// Delete removes a whole row
	Delete(ctx context.Context, table, key string) error

	// Keys lists row keys with the given prefix, up to limit (0 = all)
	Keys(ctx context.Context, table, prefix string, limit int) ([]string, error)

	// Close releases the underlying connection
	Close() error
}

// IsRowNotFound returns true if the error is ErrRowNotFound
func IsRowNotFound(err error) bool {
	return errors.Is(err, ErrRowNotFound)
}
