package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStoreWithClient(client, "rowmap:", nil)
	return store, mr
}

func TestNewRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr(), Prefix: "rowmap:"}, nil)
	require.NoError(t, err)
	defer store.Close()
}

func TestNewRedisStore_ConnectionError(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "localhost:1"}, nil)
	assert.Error(t, err)
}

func TestRedisStore_PutAndGet(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	err := store.Put(ctx, "people", "p-1", map[string][]byte{
		"info:name": []byte(`"Alice"`),
		"info:age":  []byte(`30`),
	}, nil)
	require.NoError(t, err)

	row, err := store.Get(ctx, "people", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", row.Key)
	assert.Equal(t, []byte(`"Alice"`), row.Cells["info:name"])
	assert.Equal(t, []byte(`30`), row.Cells["info:age"])
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	_, err := store.Get(context.Background(), "people", "nope")
	require.Error(t, err)
	assert.True(t, IsRowNotFound(err))
}

func TestRedisStore_PutTombstones(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "people", "p-1", map[string][]byte{
		"addresses:a-1": []byte(`{"street":"Main"}`),
		"addresses:a-2": []byte(`{"street":"Oak"}`),
	}, nil))

	// Remove one embedded cell while writing another
	require.NoError(t, store.Put(ctx, "people", "p-1", map[string][]byte{
		"addresses:a-3": []byte(`{"street":"Pine"}`),
	}, []string{"addresses:a-1"}))

	row, err := store.Get(ctx, "people", "p-1")
	require.NoError(t, err)
	assert.NotContains(t, row.Cells, "addresses:a-1")
	assert.Contains(t, row.Cells, "addresses:a-2")
	assert.Contains(t, row.Cells, "addresses:a-3")
}

func TestRedisStore_GetMany(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()
	for _, key := range []string{"p-1", "p-2", "p-3"} {
		require.NoError(t, store.Put(ctx, "people", key, map[string][]byte{
			"info:name": []byte(`"x"`),
		}, nil))
	}

	// Missing and duplicate keys are tolerated
	rows, err := store.GetMany(ctx, "people", []string{"p-1", "missing", "p-3", "p-1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p-1", rows[0].Key)
	assert.Equal(t, "p-3", rows[1].Key)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "people", "p-1", map[string][]byte{
		"info:name": []byte(`"x"`),
	}, nil))

	require.NoError(t, store.Delete(ctx, "people", "p-1"))

	_, err := store.Get(ctx, "people", "p-1")
	assert.True(t, IsRowNotFound(err))
}

func TestRedisStore_Keys(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()
	for _, key := range []string{"a-1", "a-2", "b-1"} {
		require.NoError(t, store.Put(ctx, "people", key, map[string][]byte{
			"info:name": []byte(`"x"`),
		}, nil))
	}

	keys, err := store.Keys(ctx, "people", "a-", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a-1", "a-2"}, keys)

	keys, err = store.Keys(ctx, "people", "", 2)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestSplitCellKey(t *testing.T) {
	family, qualifier := SplitCellKey("info:name")
	assert.Equal(t, "info", family)
	assert.Equal(t, "name", qualifier)

	family, qualifier = SplitCellKey("bare")
	assert.Equal(t, "bare", family)
	assert.Equal(t, "", qualifier)
}
