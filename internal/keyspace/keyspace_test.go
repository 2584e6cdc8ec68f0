package keyspace

import (
	"testing"
	"time"

	"github.com/mkvs-io/kvstored/internal/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyExpiration(t *testing.T) {
	db := NewDatabase()
	now := time.Unix(1000, 0)
	db.Set("k", object.NewString([]byte("v")))
	db.Expire("k", now.Add(-time.Second), now)

	_, ok := db.Lookup("k", now)
	assert.False(t, ok)
	assert.Equal(t, -2, int(db.TTL("k", now)))
}

func TestExpirePersistTTL(t *testing.T) {
	db := NewDatabase()
	now := time.Unix(1000, 0)
	db.Set("k", object.NewString([]byte("v")))

	assert.Equal(t, int64(-1), db.TTL("k", now))
	require.True(t, db.Expire("k", now.Add(10*time.Second), now))
	assert.Equal(t, int64(10), db.TTL("k", now))

	require.True(t, db.Persist("k", now))
	assert.Equal(t, int64(-1), db.TTL("k", now))
}

func TestRename(t *testing.T) {
	db := NewDatabase()
	now := time.Unix(1000, 0)
	db.Set("src", object.NewString([]byte("v")))
	require.True(t, db.Rename("src", "dst", now))

	_, ok := db.Lookup("src", now)
	assert.False(t, ok)
	v, ok := db.Lookup("dst", now)
	require.True(t, ok)
	assert.Equal(t, "v", string(v.(*object.String).Bytes()))
}

func TestMoveFailsOnSameIndexOrExistingDest(t *testing.T) {
	store := NewStore(2)
	now := time.Unix(1000, 0)
	db0, _ := store.DB(0)
	db0.Set("k", object.NewString([]byte("v")))

	_, err := store.Move(0, 0, "k", now)
	assert.Error(t, err)

	db1, _ := store.DB(1)
	db1.Set("k", object.NewString([]byte("already-there")))
	moved, err := store.Move(0, 1, "k", now)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestMoveSucceeds(t *testing.T) {
	store := NewStore(2)
	now := time.Unix(1000, 0)
	db0, _ := store.DB(0)
	db0.Set("k", object.NewString([]byte("v")))

	moved, err := store.Move(0, 1, "k", now)
	require.NoError(t, err)
	assert.True(t, moved)

	_, ok := db0.Lookup("k", now)
	assert.False(t, ok)
	db1, _ := store.DB(1)
	_, ok = db1.Lookup("k", now)
	assert.True(t, ok)
}

func TestBlockingWaiterQueueFIFO(t *testing.T) {
	db := NewDatabase()
	w1 := &fakeWaiter{}
	w2 := &fakeWaiter{}
	db.AddBlockingWaiter("k", w1)
	db.AddBlockingWaiter("k", w2)

	got, ok := db.PopBlockingWaiter("k")
	require.True(t, ok)
	assert.Same(t, w1, got)
	assert.True(t, db.HasWaiters("k"))

	got, ok = db.PopBlockingWaiter("k")
	require.True(t, ok)
	assert.Same(t, w2, got)
	assert.False(t, db.HasWaiters("k"))
}

type fakeWaiter struct{}

func (*fakeWaiter) Deliver(key string, value *object.String) {}
