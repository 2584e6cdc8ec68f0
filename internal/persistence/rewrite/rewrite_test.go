package rewrite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkvs-io/kvstored/internal/keyspace"
	"github.com/mkvs-io/kvstored/internal/object"
	"github.com/mkvs-io/kvstored/internal/persistence/aof"
	"github.com/mkvs-io/kvstored/internal/persistence/rdb"
)

func waitResult(t *testing.T, c *Coordinator) Result {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if res, ok := c.Poll(); ok {
			return res
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("background job did not complete in time")
	return Result{}
}

func TestBeginRDBBusy(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := keyspace.NewStore(1)
	db, _ := store.DB(0)
	db.Set("k", object.NewString([]byte("v")))

	c := New(nil)
	dbfile := filepath.Join(t.TempDir(), "dump.rdb")

	require.NoError(t, c.BeginRDB(store, dbfile, false, now))
	assert.True(t, c.Busy())

	err := c.BeginRDB(store, dbfile, false, now)
	assert.ErrorIs(t, err, ErrBusy)

	res := waitResult(t, c)
	assert.NoError(t, res.Err)
	require.NoError(t, c.FinishRDB(res))
	assert.False(t, c.Busy())

	loaded := keyspace.NewStore(1)
	require.NoError(t, rdb.Load(dbfile, loaded, now))
	ldb, _ := loaded.DB(0)
	v, ok := ldb.Lookup("k", now)
	require.True(t, ok)
	assert.Equal(t, "v", string(v.(*object.String).Bytes()))
}

func TestBeginAOFRecordsMutationsDuringRewrite(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := keyspace.NewStore(1)
	db, _ := store.DB(0)
	db.Set("existing", object.NewString([]byte("1")))

	c := New(nil)
	aofPath := filepath.Join(t.TempDir(), "appendonly.aof")

	require.NoError(t, c.BeginAOF(store, aofPath, now))

	// Simulate a command dispatched by the live server while the
	// background rewrite is in flight.
	c.RecordMutation(0, now, [][]byte{[]byte("SET"), []byte("mid-flight"), []byte("2")})

	res := waitResult(t, c)
	require.NoError(t, res.Err)

	w, err := c.FinishAOF(res, aof.FsyncNever, now)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	replay := keyspace.NewStore(1)
	require.NoError(t, aof.Replay(aofPath, replay))
	rdb0, _ := replay.DB(0)

	v, ok := rdb0.Lookup("existing", now)
	require.True(t, ok)
	assert.Equal(t, "1", string(v.(*object.String).Bytes()))

	v, ok = rdb0.Lookup("mid-flight", now)
	require.True(t, ok)
	assert.Equal(t, "2", string(v.(*object.String).Bytes()))
}

func TestRecordMutationNoopWhenIdle(t *testing.T) {
	c := New(nil)
	c.RecordMutation(0, time.Unix(1700000000, 0), [][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	assert.Empty(t, c.rewriteBuf)
}
