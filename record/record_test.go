package record

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowmap-io/rowmap/relations"
	"github.com/rowmap-io/rowmap/schema"
	"github.com/rowmap-io/rowmap/storage"
)

type testTables struct {
	articles *Table
	authors  *Table
	tags     *Table
	comments *Table
}

func setupTestStore(t *testing.T) *storage.RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return storage.NewRedisStoreWithClient(client, "rowmap:", nil)
}

func setupTestTables(t *testing.T) *testTables {
	t.Helper()

	store := setupTestStore(t)
	types := relations.NewTypeSet()

	articleSchema := schema.NewRecordSchema("Article")
	_, err := articleSchema.AddField("title", "attrs", &schema.TypeSpec{BaseType: schema.TypeString, Required: true})
	require.NoError(t, err)
	_, err = articleSchema.AddField("views", "attrs", &schema.TypeSpec{BaseType: schema.TypeInt})
	require.NoError(t, err)

	authorSchema := schema.NewRecordSchema("Author")
	_, err = authorSchema.AddField("name", "attrs", &schema.TypeSpec{BaseType: schema.TypeString})
	require.NoError(t, err)

	tagSchema := schema.NewRecordSchema("Tag")
	_, err = tagSchema.AddField("label", "attrs", &schema.TypeSpec{BaseType: schema.TypeString})
	require.NoError(t, err)

	commentSchema := schema.NewRecordSchema("Comment")
	_, err = commentSchema.AddField("body", "attrs", &schema.TypeSpec{BaseType: schema.TypeString})
	require.NoError(t, err)

	tables := &testTables{
		articles: NewTable(articleSchema, store, types),
		authors:  NewTable(authorSchema, store, types),
		tags:     NewTable(tagSchema, store, types),
		comments: NewTable(commentSchema, store, types),
	}

	require.NoError(t, tables.articles.ReferencesOne("author", relations.Options{StoreIn: "attrs"}))
	require.NoError(t, tables.articles.ReferencesMany("tags", relations.Options{StoreIn: "attrs"}))
	require.NoError(t, tables.articles.EmbedsMany("comments", relations.Options{StoreIn: "comments"}))
	return tables
}

func TestTable_SchemaAugmentation(t *testing.T) {
	tables := setupTestTables(t)
	s := tables.articles.Schema()

	require.True(t, s.HasField("author_id"))
	assert.Equal(t, schema.TypeString, s.Fields["author_id"].Type.BaseType)

	require.True(t, s.HasField("tags_ids"))
	assert.Equal(t, schema.TypeStringList, s.Fields["tags_ids"].Type.BaseType)

	assert.Equal(t, []string{"comments"}, s.EmbeddedFamilies())
}

func TestRecord_SaveAndFind(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	rec := tables.articles.New(map[string]interface{}{"title": "hello", "views": 3})
	require.True(t, rec.IsNew())

	ok, err := rec.Save(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Persisted())
	assert.False(t, rec.Changed())

	found, err := tables.articles.Find(ctx, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, rec.ID(), found.ID())
	assert.Equal(t, "hello", found.(*Record).Attribute("title"))
	assert.True(t, found.Persisted())
}

func TestRecord_SaveInvalid(t *testing.T) {
	tables := setupTestTables(t)

	rec := tables.articles.New(map[string]interface{}{"views": 3}).(*Record)

	ok, err := rec.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, rec.IsNew())
	assert.Contains(t, rec.Errors().Fields["title"], "is required")
}

func TestRecord_SaveWritesOnlyChangedCells(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	rec := tables.articles.New(map[string]interface{}{"title": "v1", "views": 1}).(*Record)
	_, err := rec.Save(ctx)
	require.NoError(t, err)

	rec.SetAttribute("title", "v2")
	require.True(t, rec.Changed())

	ok, err := rec.Save(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	found, err := tables.articles.Find(ctx, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, "v2", found.(*Record).Attribute("title"))
	assert.EqualValues(t, 1, found.(*Record).Attribute("views"))
}

func TestRecord_SaveTombstonesNilAttributes(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	rec := tables.articles.New(map[string]interface{}{"title": "x", "views": 5}).(*Record)
	_, err := rec.Save(ctx)
	require.NoError(t, err)

	rec.SetAttribute("views", nil)
	ok, err := rec.Save(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	found, err := tables.articles.Find(ctx, rec.ID())
	require.NoError(t, err)
	assert.Nil(t, found.(*Record).Attribute("views"))
}

func TestRecord_Destroy(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	rec := tables.articles.New(map[string]interface{}{"title": "x"}).(*Record)
	_, err := rec.Save(ctx)
	require.NoError(t, err)

	ok, err := rec.Destroy(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Destroyed())

	_, err = tables.articles.Find(ctx, rec.ID())
	require.Error(t, err)
	assert.True(t, relations.IsRecordNotFound(err))

	// Destroying again is a no-op, saving is an error
	ok, err = rec.Destroy(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = rec.Save(ctx)
	assert.ErrorIs(t, err, ErrRecordDestroyed)
}

func TestRecord_DestroyUnsaved(t *testing.T) {
	tables := setupTestTables(t)

	rec := tables.articles.New(map[string]interface{}{"title": "x"}).(*Record)
	ok, err := rec.Destroy(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecord_ReferencesOneRoundTrip(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	author := tables.authors.New(map[string]interface{}{"name": "Ann"}).(*Record)
	_, err := author.Save(ctx)
	require.NoError(t, err)

	article := tables.articles.New(map[string]interface{}{"title": "x"}).(*Record)
	require.NoError(t, article.Relations().ReferencesOne("author").Replace(author))

	_, err = article.Save(ctx)
	require.NoError(t, err)

	reloaded, err := tables.articles.Find(ctx, article.ID())
	require.NoError(t, err)

	got, err := reloaded.(*Record).Relations().ReferencesOne("author").Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, author.ID(), got.ID())
	assert.Equal(t, "Ann", got.(*Record).Attribute("name"))
}

func TestRecord_ReferencesManyRoundTrip(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	t1 := tables.tags.New(map[string]interface{}{"label": "go"}).(*Record)
	t2 := tables.tags.New(map[string]interface{}{"label": "db"}).(*Record)
	_, err := t1.Save(ctx)
	require.NoError(t, err)
	_, err = t2.Save(ctx)
	require.NoError(t, err)

	article := tables.articles.New(map[string]interface{}{"title": "x"}).(*Record)
	_, err = article.Save(ctx)
	require.NoError(t, err)

	result, err := article.Relations().ReferencesMany("tags").Add(ctx, t1, t2)
	require.NoError(t, err)
	assert.Equal(t, []string{t1.ID(), t2.ID()}, result.Added)

	// The foreign-key list was persisted with the owner
	reloaded, err := tables.articles.Find(ctx, article.ID())
	require.NoError(t, err)

	proxy := reloaded.(*Record).Relations().ReferencesMany("tags")
	length, err := proxy.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)

	records, err := proxy.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRecord_EmbedsManyRoundTrip(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	article := tables.articles.New(map[string]interface{}{"title": "x"}).(*Record)
	_, err := article.Save(ctx)
	require.NoError(t, err)

	comment := tables.comments.New(map[string]interface{}{"body": "first"})
	_, err = article.Relations().EmbedsMany("comments").Add(ctx, comment)
	require.NoError(t, err)
	assert.True(t, comment.Persisted())

	reloaded, err := tables.articles.Find(ctx, article.ID())
	require.NoError(t, err)

	proxy := reloaded.(*Record).Relations().EmbedsMany("comments")
	records, err := proxy.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, comment.ID(), records[0].ID())
	assert.Equal(t, "first", records[0].(*Record).Attribute("body"))
	assert.True(t, records[0].Persisted())
}

func TestRecord_EmbedsManyDeleteTombstones(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	article := tables.articles.New(map[string]interface{}{"title": "x"}).(*Record)
	_, err := article.Save(ctx)
	require.NoError(t, err)

	proxy := article.Relations().EmbedsMany("comments")
	first := tables.comments.New(map[string]interface{}{"body": "keep"})
	second := tables.comments.New(map[string]interface{}{"body": "drop"})
	_, err = proxy.Add(ctx, first, second)
	require.NoError(t, err)

	_, err = proxy.Delete(ctx, second)
	require.NoError(t, err)
	require.True(t, article.Changed())

	ok, err := article.Save(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	reloaded, err := tables.articles.Find(ctx, article.ID())
	require.NoError(t, err)

	records, err := reloaded.(*Record).Relations().EmbedsMany("comments").Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, first.ID(), records[0].ID())
}

func TestTable_All(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		rec := tables.articles.New(map[string]interface{}{"title": title})
		_, err := rec.Save(ctx)
		require.NoError(t, err)
	}

	records, err := tables.articles.All(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	limited, err := tables.articles.All(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestTable_FindManyMissingKeysAbsent(t *testing.T) {
	tables := setupTestTables(t)
	ctx := context.Background()

	rec := tables.articles.New(map[string]interface{}{"title": "only"})
	_, err := rec.Save(ctx)
	require.NoError(t, err)

	records, err := tables.articles.FindMany(ctx, []string{rec.ID(), "missing"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID(), records[0].ID())
}
