package rdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkvs-io/kvstored/internal/keyspace"
	"github.com/mkvs-io/kvstored/internal/object"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := keyspace.NewStore(2)

	db0, err := store.DB(0)
	require.NoError(t, err)
	db0.Set("greeting", object.NewString([]byte("hello world")))
	db0.Set("counter", object.NewStringFromInt(42))
	db0.Expire("counter", now.Add(time.Hour), now)

	lst := object.NewList()
	lst.PushRight(object.NewString([]byte("a")))
	lst.PushRight(object.NewString([]byte("b")))
	db0.Set("mylist", lst)

	set := object.NewSet()
	set.Add("x")
	set.Add("y")
	db0.Set("myset", set)

	zset := object.NewScoreSet()
	zset.Add("alice", 1.5)
	zset.Add("bob", 2.5)
	db0.Set("myzset", zset)

	db1, err := store.DB(1)
	require.NoError(t, err)
	db1.Set("other-db-key", object.NewString([]byte("still there")))

	path := filepath.Join(t.TempDir(), "dump.rdb")
	require.NoError(t, Save(path, store, true, now))

	loaded := keyspace.NewStore(2)
	require.NoError(t, Load(path, loaded, now))

	ldb0, err := loaded.DB(0)
	require.NoError(t, err)

	v, ok := ldb0.Lookup("greeting", now)
	require.True(t, ok)
	assert.Equal(t, "hello world", string(v.(*object.String).Bytes()))

	v, ok = ldb0.Lookup("counter", now)
	require.True(t, ok)
	n, isInt := v.(*object.String).Int64()
	require.True(t, isInt)
	assert.EqualValues(t, 42, n)
	assert.Equal(t, int64(3600), ldb0.TTL("counter", now))

	v, ok = ldb0.Lookup("mylist", now)
	require.True(t, ok)
	items := v.(*object.List).ToSlice()
	require.Len(t, items, 2)
	assert.Equal(t, "a", string(items[0].Bytes()))
	assert.Equal(t, "b", string(items[1].Bytes()))

	v, ok = ldb0.Lookup("myset", now)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"x", "y"}, v.(*object.Set).Members())

	v, ok = ldb0.Lookup("myzset", now)
	require.True(t, ok)
	ranked := v.(*object.ScoreSet).RangeByRank(0, -1)
	require.Len(t, ranked, 2)
	assert.Equal(t, "alice", ranked[0].Name)
	assert.Equal(t, "bob", ranked[1].Name)

	ldb1, err := loaded.DB(1)
	require.NoError(t, err)
	v, ok = ldb1.Lookup("other-db-key", now)
	require.True(t, ok)
	assert.Equal(t, "still there", string(v.(*object.String).Bytes()))
}

func TestSaveSkipsExpiredKeys(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := keyspace.NewStore(1)
	db, _ := store.DB(0)
	db.Set("gone", object.NewString([]byte("v")))
	db.Expire("gone", now.Add(-time.Second), now)
	db.Set("stays", object.NewString([]byte("v")))

	path := filepath.Join(t.TempDir(), "dump.rdb")
	require.NoError(t, Save(path, store, false, now))

	loaded := keyspace.NewStore(1)
	require.NoError(t, Load(path, loaded, now))
	ldb, _ := loaded.DB(0)
	_, ok := ldb.Lookup("gone", now)
	assert.False(t, ok)
	_, ok = ldb.Lookup("stays", now)
	assert.True(t, ok)
}
