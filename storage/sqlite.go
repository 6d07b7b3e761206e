package storage

import (
	"context"
	"database/sql"
	"fmt"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore implements Store on an embedded SQLite database. Each cell
// is one relational row in a single cells table.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cells (
	tbl      TEXT NOT NULL,
	row_key  TEXT NOT NULL,
	cell     TEXT NOT NULL,
	value    BLOB NOT NULL,
	PRIMARY KEY (tbl, row_key, cell)
)`

// NewSQLiteStore opens (or creates) a SQLite database at the given path
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	store := NewSQLiteStoreWithDB(db, logger)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStoreWithDB creates a SQLite store around an existing
// connection without creating the cells table
func NewSQLiteStoreWithDB(db *sql.DB, logger *zap.Logger) *SQLiteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{db: db, logger: logger}
}

// Init creates the cells table if it does not exist
func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create cells table: %w", err)
	}
	return nil
}

// Get fetches one row
func (s *SQLiteStore) Get(ctx context.Context, table, key string) (*Row, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT cell, value FROM cells WHERE tbl = ? AND row_key = ?", table, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cells := make(map[string][]byte)
	for rows.Next() {
		var cell string
		var value []byte
		if err := rows.Scan(&cell, &value); err != nil {
			return nil, err
		}
		cells[cell] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, ErrRowNotFound
	}

	return &Row{Key: key, Cells: cells}, nil
}

// GetMany fetches rows for the given keys in one query
func (s *SQLiteStore) GetMany(ctx context.Context, table string, keys []string) ([]*Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	query := "SELECT row_key, cell, value FROM cells WHERE tbl = ? AND row_key IN ("
	args := make([]interface{}, 0, len(keys)+1)
	args = append(args, table)
	for i, key := range keys {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, key)
	}
	query += ")"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byKey := make(map[string]*Row)
	for rows.Next() {
		var rowKey, cell string
		var value []byte
		if err := rows.Scan(&rowKey, &cell, &value); err != nil {
			return nil, err
		}
		row, ok := byKey[rowKey]
		if !ok {
			row = &Row{Key: rowKey, Cells: make(map[string][]byte)}
			byKey[rowKey] = row
		}
		row.Cells[cell] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve request order for the keys that were found
	result := make([]*Row, 0, len(byKey))
	seen := make(map[string]bool, len(byKey))
	for _, key := range keys {
		if row, ok := byKey[key]; ok && !seen[key] {
			result = append(result, row)
			seen[key] = true
		}
	}
	return result, nil
}

// Put writes cells into a row and removes tombstoned cells
func (s *SQLiteStore) Put(ctx context.Context, table, key string, cells map[string][]byte, tombstones []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for cell, value := range cells {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO cells (tbl, row_key, cell, value) VALUES (?, ?, ?, ?) "+
				"ON CONFLICT (tbl, row_key, cell) DO UPDATE SET value = excluded.value",
			table, key, cell, value); err != nil {
			return err
		}
	}
	for _, cell := range tombstones {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM cells WHERE tbl = ? AND row_key = ? AND cell = ?",
			table, key, cell); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes a whole row
func (s *SQLiteStore) Delete(ctx context.Context, table, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cells WHERE tbl = ? AND row_key = ?", table, key)
	return err
}

// Keys lists row keys with the given prefix, up to limit (0 = all)
func (s *SQLiteStore) Keys(ctx context.Context, table, prefix string, limit int) ([]string, error) {
	query := "SELECT DISTINCT row_key FROM cells WHERE tbl = ? AND row_key LIKE ? ORDER BY row_key"
	args := []interface{}{table, prefix + "%"}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
