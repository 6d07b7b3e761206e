package storage

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSQLite(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewSQLiteStoreWithDB(db, nil), mock
}

func TestSQLiteStore_Get(t *testing.T) {
	store, mock := setupTestSQLite(t)
	defer store.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT cell, value FROM cells WHERE tbl = ? AND row_key = ?")).
		WithArgs("people", "p-1").
		WillReturnRows(sqlmock.NewRows([]string{"cell", "value"}).
			AddRow("info:name", []byte(`"Alice"`)).
			AddRow("info:age", []byte(`30`)))

	row, err := store.Get(context.Background(), "people", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", row.Key)
	assert.Len(t, row.Cells, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store, mock := setupTestSQLite(t)
	defer store.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT cell, value FROM cells")).
		WithArgs("people", "nope").
		WillReturnRows(sqlmock.NewRows([]string{"cell", "value"}))

	_, err := store.Get(context.Background(), "people", "nope")
	assert.True(t, IsRowNotFound(err))
}

func TestSQLiteStore_GetMany(t *testing.T) {
	store, mock := setupTestSQLite(t)
	defer store.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT row_key, cell, value FROM cells WHERE tbl = ? AND row_key IN (?,?)")).
		WithArgs("people", "p-1", "p-2").
		WillReturnRows(sqlmock.NewRows([]string{"row_key", "cell", "value"}).
			AddRow("p-2", "info:name", []byte(`"Bob"`)).
			AddRow("p-1", "info:name", []byte(`"Alice"`)))

	rows, err := store.GetMany(context.Background(), "people", []string{"p-1", "p-2"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Request order is preserved
	assert.Equal(t, "p-1", rows[0].Key)
	assert.Equal(t, "p-2", rows[1].Key)
}

func TestSQLiteStore_Put(t *testing.T) {
	store, mock := setupTestSQLite(t)
	defer store.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cells")).
		WithArgs("people", "p-1", "info:name", []byte(`"Alice"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cells WHERE tbl = ? AND row_key = ? AND cell = ?")).
		WithArgs("people", "p-1", "addresses:a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Put(context.Background(), "people", "p-1",
		map[string][]byte{"info:name": []byte(`"Alice"`)},
		[]string{"addresses:a-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_Delete(t *testing.T) {
	store, mock := setupTestSQLite(t)
	defer store.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cells WHERE tbl = ? AND row_key = ?")).
		WithArgs("people", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Delete(context.Background(), "people", "p-1"))
}

func TestSQLiteStore_Keys(t *testing.T) {
	store, mock := setupTestSQLite(t)
	defer store.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT row_key FROM cells WHERE tbl = ? AND row_key LIKE ? ORDER BY row_key LIMIT ?")).
		WithArgs("people", "a-%", 10).
		WillReturnRows(sqlmock.NewRows([]string{"row_key"}).AddRow("a-1").AddRow("a-2"))

	keys, err := store.Keys(context.Background(), "people", "a-", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "a-2"}, keys)
}
